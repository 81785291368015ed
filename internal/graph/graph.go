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

package graph

import (
	"github.com/oleiade/lane"
)

// Graph is the whole control-flow graph for one frame's worth of code —
// the unit the pass runs over exactly once, in reverse postorder (§4.3).
type Graph struct {
	Root   *Block
	Blocks []*Block
}

// Order maps every block's ID to its index in a reverse-postorder walk, used by
// IsLoopHeader and by the materialization planner's "in branch of
// allocator" approximation.
func (self *Graph) Order() map[int]int {
	order := make(map[int]int, len(self.Blocks))
	for i, bb := range self.ReversePostOrder() {
		order[bb.ID] = i
	}
	return order
}

// ReversePostOrder walks the graph depth-first from Root and returns
// blocks in reverse postorder — the traversal order every phase of the
// pass uses, mirroring the teacher's own BasicBlockIter.Reversed.
func (self *Graph) ReversePostOrder() []*Block {
	var post []*Block
	visited := map[int]struct{}{self.Root.ID: {}}
	stack := lane.NewStack()
	stack.Push(self.Root)

	for !stack.Empty() {
		top := stack.Head().(*Block)
		advanced := false

		for _, s := range top.Succ {
			if _, ok := visited[s.ID]; !ok {
				visited[s.ID] = struct{}{}
				stack.Push(s)
				advanced = true
				break
			}
		}

		if !advanced {
			post = append(post, stack.Pop().(*Block))
		}
	}

	ret := make([]*Block, len(post))
	for i, bb := range post {
		ret[len(post)-1-i] = bb
	}
	return ret
}

// PostOrder is the same walk without the final reversal.
func (self *Graph) PostOrder() []*Block {
	rpo := self.ReversePostOrder()
	ret := make([]*Block, len(rpo))
	for i, bb := range rpo {
		ret[len(rpo)-1-i] = bb
	}
	return ret
}

// Walk visits every block of the graph in reverse postorder, invoking fn
// once per block. The analyzer walks ReversePostOrder directly, and the
// transformer applies its edits in g.Blocks order instead.
func (self *Graph) Walk(fn func(bb *Block)) {
	for _, bb := range self.ReversePostOrder() {
		fn(bb)
	}
}

// MaxRegIndex returns the highest register index used anywhere in g, or
// -1 if g defines no registers at all. A fresh register minted afterward
// — the bigint decomposition planner's get-bigint loads, the
// materializer's concrete attribute slots — only ever needs to clear this
// floor to be certain it collides with nothing already live in the graph.
func MaxRegIndex(g *Graph) int {
	max := -1
	consider := func(r *Reg) {
		if r.Index > max {
			max = r.Index
		}
	}
	for _, bb := range g.Blocks {
		for _, phi := range bb.Phi {
			consider(&phi.R)
			for _, v := range phi.V {
				consider(v)
			}
		}
		for _, ins := range bb.Ins {
			if u, ok := ins.(Usages); ok {
				for _, r := range u.Usages() {
					consider(r)
				}
			}
			if d, ok := ins.(Definitions); ok {
				for _, r := range d.Definitions() {
					consider(r)
				}
			}
		}
	}
	return max
}
