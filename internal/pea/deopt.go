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

// materializeInfo is one allocation's entry in the deopt bookkeeper's
// materialize-info side table: the deopt index its materialize transform
// is attributed to, whether that index was already present on the
// fastcreate or had to be synthesized because the allocation never had
// one of its own, and — once the transformer has resolved them — the
// stable this allocation materializes as plus the concrete register
// holding each of its attributes, the deopt metadata an interpreter needs
// to actually read the object back out of registers at a deopt point
// (§4.7).
type materializeInfo struct {
	DeoptIdx  int
	Synthetic bool

	Stable   *repr.Stable
	AttrRegs []graph.Reg
}

// DeoptBookkeeper owns the two side tables the design calls for:
// materialize-info (per allocation, where its materialize transform's
// deopt bookkeeping lives) and deopt-point (per deopt index, which
// allocations must already be real should execution deoptimize there).
// get_deopt_materialization_info is memoized per allocation since the
// transformer and the deopt-usage handling both ask for the same
// allocation's info repeatedly.
type DeoptBookkeeper struct {
	materializeInfo map[int]materializeInfo
	deoptPoint      map[int][]int // deopt index -> allocation ids that must be real there
	nextSynthetic   int
}

func NewDeoptBookkeeper() *DeoptBookkeeper {
	return &DeoptBookkeeper{
		materializeInfo: map[int]materializeInfo{},
		deoptPoint:      map[int][]int{},
		nextSynthetic:   -1,
	}
}

// RecordProducer associates alloc with the deopt index its fastcreate
// already carried, if any (a deoptIdx of zero means the fastcreate had
// none, so GetDeoptMaterializationInfo will synthesize one on first use).
func (self *DeoptBookkeeper) RecordProducer(alloc *Allocation, deoptIdx int) {
	if deoptIdx == 0 {
		return
	}
	self.materializeInfo[alloc.ID] = materializeInfo{DeoptIdx: deoptIdx, Synthetic: false}
}

// GetDeoptMaterializationInfo returns the deopt index alloc's
// materialization is attributed to, synthesizing and memoizing a fresh
// synthetic index the first time it is asked for an allocation whose
// fastcreate carried none. Synthetic indices are negative so they can
// never collide with a concrete index coming from the input graph.
func (self *DeoptBookkeeper) GetDeoptMaterializationInfo(alloc *Allocation) (int, bool) {
	if info, ok := self.materializeInfo[alloc.ID]; ok {
		return info.DeoptIdx, info.Synthetic
	}

	idx := self.nextSynthetic
	self.nextSynthetic--
	self.materializeInfo[alloc.ID] = materializeInfo{DeoptIdx: idx, Synthetic: true}
	return idx, true
}

// AddUsage records that, should execution deoptimize at deoptIdx, alloc
// must already be materialized by then.
func (self *DeoptBookkeeper) AddUsage(alloc *Allocation, deoptIdx int) {
	for _, id := range self.deoptPoint[deoptIdx] {
		if id == alloc.ID {
			return
		}
	}
	self.deoptPoint[deoptIdx] = append(self.deoptPoint[deoptIdx], alloc.ID)
}

// UsagesAt returns the allocation IDs recorded as needing to be real by
// the time execution deoptimizes at deoptIdx.
func (self *DeoptBookkeeper) UsagesAt(deoptIdx int) []int {
	return self.deoptPoint[deoptIdx]
}

// SetConcreteSlots records, once the transformer has resolved them, the
// stable and the concrete register holding each attribute of alloc's
// materialized object — the "stable slot and the array of concrete
// attribute registers" a deopt needs to reconstruct the object instead of
// reading it straight off a real heap object (§4.7).
func (self *DeoptBookkeeper) SetConcreteSlots(allocID int, stable *repr.Stable, regs []graph.Reg) {
	info := self.materializeInfo[allocID]
	info.Stable = stable
	info.AttrRegs = regs
	self.materializeInfo[allocID] = info
}

// ConcreteSlots returns the stable and attribute registers SetConcreteSlots
// recorded for allocID, if any.
func (self *DeoptBookkeeper) ConcreteSlots(allocID int) (*repr.Stable, []graph.Reg, bool) {
	info, ok := self.materializeInfo[allocID]
	if !ok || info.Stable == nil {
		return nil, nil, false
	}
	return info.Stable, info.AttrRegs, true
}
