/*
 * Copyright 2024 PEA Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pea

import (
	"sort"

	"github.com/sixmodel/pea/internal/graph"
)

// BlockState is the per-basic-block bookkeeping the analyzer threads
// through a single forward walk of one block's instructions: which
// allocations are still hypothetical on entry (seen), which attribute
// indices of each have been bound so far (used), and which allocations
// have already been forced real inside this block (materializations).
type BlockState struct {
	Block *graph.Block

	seen             map[int]struct{}
	used             map[int]map[int]struct{}
	materializations map[int]struct{}
}

func NewBlockState(bb *graph.Block) *BlockState {
	return &BlockState{
		Block:            bb,
		seen:             map[int]struct{}{},
		used:             map[int]map[int]struct{}{},
		materializations: map[int]struct{}{},
	}
}

// See marks alloc as hypothetical as of this point in the block.
func (self *BlockState) See(alloc *Allocation) {
	self.seen[alloc.ID] = struct{}{}
}

// IsSeen reports whether alloc is currently hypothetical in this block.
func (self *BlockState) IsSeen(alloc *Allocation) bool {
	_, ok := self.seen[alloc.ID]
	return ok
}

// Unsee removes alloc from the hypothetical set, used when a
// materialize transform is emitted for it partway through the block.
func (self *BlockState) Unsee(alloc *Allocation) {
	delete(self.seen, alloc.ID)
}

// Use records that attribute index of alloc has been bound (via
// bindattr) at this point in the block.
func (self *BlockState) Use(alloc *Allocation, index int) {
	bits := self.used[alloc.ID]
	if bits == nil {
		bits = map[int]struct{}{}
		self.used[alloc.ID] = bits
	}
	bits[index] = struct{}{}
}

// UsedIndices returns the set of attribute indices of alloc bound so far
// in this block, in ascending order.
func (self *BlockState) UsedIndices(alloc *Allocation) []int {
	bits := self.used[alloc.ID]
	ret := make([]int, 0, len(bits))
	for i := range bits {
		ret = append(ret, i)
	}
	sort.Ints(ret)
	return ret
}

// Materialize records that alloc was forced real inside this block.
func (self *BlockState) Materialize(alloc *Allocation) {
	self.materializations[alloc.ID] = struct{}{}
	self.Unsee(alloc)
}

// IsMaterializedHere reports whether alloc was already forced real
// earlier in this same block.
func (self *BlockState) IsMaterializedHere(alloc *Allocation) bool {
	_, ok := self.materializations[alloc.ID]
	return ok
}

// Seen returns the allocation IDs still hypothetical at the current
// point in the block, for the merge engine to compare across
// predecessors.
func (self *BlockState) Seen() map[int]struct{} {
	return self.seen
}

// Clone deep-copies self for bb, so a caller handing a finished
// predecessor's exit state to a new block as its entry state can mutate
// the copy freely without corrupting the predecessor's own recorded
// exit state (or, when two sibling blocks share that one predecessor,
// each other's).
func (self *BlockState) Clone(bb *graph.Block) *BlockState {
	out := NewBlockState(bb)

	for id := range self.seen {
		out.seen[id] = struct{}{}
	}
	for id, bits := range self.used {
		copied := make(map[int]struct{}, len(bits))
		for idx := range bits {
			copied[idx] = struct{}{}
		}
		out.used[id] = copied
	}
	for id := range self.materializations {
		out.materializations[id] = struct{}{}
	}

	return out
}
