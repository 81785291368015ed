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

import "fmt"

// Block is one basic block: a straight-line run of instructions ending in
// a terminator, plus the phi nodes that live at its head.
type Block struct {
	ID   int
	Phi  []*Phi
	Ins  []Node
	Pred []*Block
	Succ []*Block
}

func (self *Block) String() string {
	return fmt.Sprintf("bb_%d", self.ID)
}

func (self *Block) AddInstr(n Node) {
	self.Ins = append(self.Ins, n)
}

// Link records a control-flow edge from self to to in both directions,
// since the pass walks both predecessors (merge engine) and successors
// (reverse postorder).
func (self *Block) Link(to *Block) {
	self.Succ = append(self.Succ, to)
	to.Pred = append(to.Pred, self)
}

// IsLoopHeader reports whether any predecessor of this block sits at the
// same or a later position in order (a reverse-postorder index map) —
// i.e. whether one of self's incoming edges is a back-edge. The analyzer
// abandons the whole pass when it meets such a block rather than attempt
// a fixed-point merge (§4.3 Non-goals).
func (self *Block) IsLoopHeader(order map[int]int) bool {
	mine, ok := order[self.ID]
	if !ok {
		return false
	}
	for _, p := range self.Pred {
		if po, ok := order[p.ID]; ok && po >= mine {
			return true
		}
	}
	return false
}
