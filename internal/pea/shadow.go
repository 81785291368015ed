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
	"github.com/sixmodel/pea/internal/graph"
	"github.com/sixmodel/pea/internal/repr"
)

// ShadowFacts records speculative type facts the analyzer can prove about
// a register or a hypothetical attribute without that register itself
// being a tracked allocation's own Def — chiefly a plain register that
// read a captured reference attribute out of one, or a Copy/Phi that
// aliases one (§3). A guard against a register nothing try_track'd can
// still be eliminated if a shadow fact already proves its type.
type ShadowFacts struct {
	byHyp map[graph.HypReg]*repr.Stable
	byReg map[graph.Reg]*repr.Stable
}

func NewShadowFacts() *ShadowFacts {
	return &ShadowFacts{byHyp: map[graph.HypReg]*repr.Stable{}, byReg: map[graph.Reg]*repr.Stable{}}
}

// SetHyp records that attribute h's value is known to hold an instance of
// ty — set when a bindattr writes a reference to a tracked allocation of
// known type into a reference-kind attribute.
func (self *ShadowFacts) SetHyp(h graph.HypReg, ty *repr.Stable) {
	self.byHyp[h] = ty
}

// GetHyp returns the type fact recorded for h, if any.
func (self *ShadowFacts) GetHyp(h graph.HypReg) (*repr.Stable, bool) {
	ty, ok := self.byHyp[h]
	return ty, ok
}

// HypToReg copies whatever type fact h carries onto r — a getattr reading
// a reference-kind attribute back out inherits the fact its bindattr
// recorded, even though r itself is never tracked as its own allocation.
func (self *ShadowFacts) HypToReg(h graph.HypReg, r graph.Reg) {
	if ty, ok := self.byHyp[h]; ok {
		self.byReg[r] = ty
	}
}

// SetReg and GetReg work the same as SetHyp/GetHyp, keyed by a plain
// register instead of a hypothetical attribute.
func (self *ShadowFacts) SetReg(r graph.Reg, ty *repr.Stable) {
	self.byReg[r] = ty
}

func (self *ShadowFacts) GetReg(r graph.Reg) (*repr.Stable, bool) {
	ty, ok := self.byReg[r]
	return ty, ok
}

// CopyReg propagates whatever fact src carries onto dst, the way a Copy
// or a single-input Phi propagates a register's identity onto another.
func (self *ShadowFacts) CopyReg(src, dst graph.Reg) {
	if ty, ok := self.byReg[src]; ok {
		self.byReg[dst] = ty
	}
}

// ProvesType reports whether r is already known, via a shadow fact, to
// hold exactly ty — handle_guard's fallback proof for a guard whose
// operand is not itself a tracked allocation's own register.
func (self *ShadowFacts) ProvesType(r graph.Reg, ty *repr.Stable) bool {
	got, ok := self.byReg[r]
	return ok && got == ty
}
