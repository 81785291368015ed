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
	"github.com/sixmodel/pea/internal/peaopts"
	"github.com/sixmodel/pea/internal/repr"
)

// Allocation is the tracker's record for one fastcreate site: its type,
// whether it has been ruled irreplaceable, per-attribute write counts,
// and the set of basic blocks where it has already been forced real.
type Allocation struct {
	ID       int
	Def      graph.Reg
	Hyp      []graph.HypReg // one hypothetical register per attribute (§3)
	Type     *repr.Stable
	Block    *graph.Block
	DeoptIdx int
	Site     *graph.FastCreate
	MaterializeSite *graph.BigIntMaterialize

	irreplaceable bool
	writes        []int // per-attribute write count, across the whole walk so far
	slots         map[int]graph.Reg // per-attribute current value, for getattr-to-set to resolve against
	materialized  map[int]struct{} // block IDs where this allocation is already real
	bigintRead    bool
	read          bool

	aliases map[int]*Allocation // per-attribute: the allocation a captured reference attribute's value traces to, if any

	vivified            map[int]struct{} // attribute indices an auto-vivifying read has already conjured a value for
	needsVivifyType     bool
	needsVivifyConcrete bool
}

// SetSlot records that attribute index currently holds val — the value a
// later getattr-to-set resolves to instead of reading from a real object.
func (self *Allocation) SetSlot(index int, val graph.Reg) {
	if self.slots == nil {
		self.slots = map[int]graph.Reg{}
	}
	self.slots[index] = val
}

// Slot returns the register currently standing in for attribute index,
// if bindattr-to-set has ever set it.
func (self *Allocation) Slot(index int) (graph.Reg, bool) {
	r, ok := self.slots[index]
	return r, ok
}

// Irreplaceable reports whether this allocation has been ruled out for
// scalar replacement — sticky once set, per MarkIrreplaceable.
func (self *Allocation) Irreplaceable() bool {
	return self.irreplaceable
}

// RecordWrite increments the write count attributed to attribute index.
// The count is kept per allocation, not per path; the merge engine
// reconciles per-path writes from each BlockState's used set instead.
func (self *Allocation) RecordWrite(index int) {
	if index >= len(self.writes) {
		grown := make([]int, index+1)
		copy(grown, self.writes)
		self.writes = grown
	}
	self.writes[index]++
}

// WriteCount returns how many times attribute index has been written so
// far in the walk.
func (self *Allocation) WriteCount(index int) int {
	if index >= len(self.writes) {
		return 0
	}
	return self.writes[index]
}

// MarkRead records that some attribute of this allocation was read,
// feeding the materialization planner's "worth materializing" predicate
// (read ∨ bigint ∨ in-branch).
func (self *Allocation) MarkRead() {
	self.read = true
}

// MarkBigIntUse records that this allocation's big-integer attribute
// participated in a decomposition, so a later getattr of that attribute
// is planned as an unbox-bigint. It does not feed WorthMaterializing,
// whose bigint disjunct looks at the type alone.
func (self *Allocation) MarkBigIntUse() {
	self.bigintRead = true
}

// WorthMaterializing implements the read ∨ bigint ∨ in-branch predicate's
// first two disjuncts — read is whether some consumer needed the value,
// bigint is a static property of the type itself (rebuilding a bigint
// box is expensive enough that it is always worth carrying through a
// materialization once one is needed at all); the in-branch disjunct
// needs the CFG and lives in the materialization planner.
func (self *Allocation) WorthMaterializing() bool {
	if self.read {
		return true
	}
	_, hasBigInt := self.Type.HasBigInt()
	return hasBigInt
}

// MarkMaterialized records that this allocation is real as of the given
// block — the materializer consults this to avoid emitting a duplicate
// materialize transform on a path that already has one.
func (self *Allocation) MarkMaterialized(bb *graph.Block) {
	if self.materialized == nil {
		self.materialized = map[int]struct{}{}
	}
	self.materialized[bb.ID] = struct{}{}
}

func (self *Allocation) IsMaterializedIn(bb *graph.Block) bool {
	_, ok := self.materialized[bb.ID]
	return ok
}

// EverMaterialized reports whether this allocation was forced real in any
// block at all, anywhere in the graph — the conservative, whole-program
// check collapseAliasedSets uses, since a per-site-order-precise check
// would need the same dominance information InBranchOfAllocator only
// approximates.
func (self *Allocation) EverMaterialized() bool {
	return len(self.materialized) > 0
}

// SetAlias records that attribute index's value, as bound by a bindattr,
// traces to another tracked allocation rather than an already-real value
// — the capture relationship collapseAliasedSets later consults to decide
// whether the whole bind can be elided instead of merely rewritten.
func (self *Allocation) SetAlias(index int, child *Allocation) {
	if self.aliases == nil {
		self.aliases = map[int]*Allocation{}
	}
	self.aliases[index] = child
}

// Alias returns the allocation attribute index's value traces to, if any.
func (self *Allocation) Alias(index int) (*Allocation, bool) {
	a, ok := self.aliases[index]
	return a, ok
}

// MarkVivify records that some auto-vivifying read of this allocation
// planned kind — RealObjectRequired consults needsVivifyType and
// needsVivifyConcrete at materialization time instead of emitting both
// vivify guards regardless of whether any read ever actually needed one.
func (self *Allocation) MarkVivify(kind graph.VivifyKind) {
	switch kind {
	case graph.VivifyKindType:
		self.needsVivifyType = true
	case graph.VivifyKindConcrete:
		self.needsVivifyConcrete = true
	}
}

// SetVivified and IsVivified make auto-vivification idempotent per
// attribute: a second read of the same never-written attribute behaves
// like an ordinary read of an already-written one instead of planning a
// second vivify guard.
func (self *Allocation) SetVivified(index int) {
	if self.vivified == nil {
		self.vivified = map[int]struct{}{}
	}
	self.vivified[index] = struct{}{}
}

func (self *Allocation) IsVivified(index int) bool {
	_, ok := self.vivified[index]
	return ok
}

// Tracker owns the set of allocations the pass is currently following. It
// is the single source of truth the analyzer, merge engine, and
// materializer all consult and mutate.
type Tracker struct {
	allocs    []*Allocation
	byReg     map[graph.Reg]*Allocation
	nextHyp   int
	maxAllocs int
}

func NewTracker() *Tracker {
	return &Tracker{byReg: map[graph.Reg]*Allocation{}, maxAllocs: peaopts.MaxAllocsPerGraph}
}

// TryTrack is the gate every fastcreate passes through: only a handled,
// transparent, opaque type becomes a tracked allocation (§4.1). Anything
// else is left alone — it was never a candidate for replacement and the
// pass does not even allocate bookkeeping for it.
func (self *Tracker) TryTrack(bb *graph.Block, fc *graph.FastCreate) (*Allocation, bool) {
	if !fc.Type.IsHandledOpaque() {
		return nil, false
	}
	alloc, ok := self.track(bb, fc.R, fc.Type, fc.Deopt)
	if ok {
		alloc.Site = fc
	}
	return alloc, ok
}

// TrackSynthetic tracks the result of a decomposed producing bigint op
// the same way try_track tracks a fastcreate (§4.4: "try_track a result
// allocation"), except there is no originating fastcreate to delete if
// the result never escapes — Site stays nil, and finalizeSurvivors skips
// deleting anything for it on that account.
func (self *Tracker) TrackSynthetic(bb *graph.Block, r graph.Reg, ty *repr.Stable) (*Allocation, bool) {
	if !ty.IsHandledOpaque() {
		return nil, false
	}
	return self.track(bb, r, ty, 0)
}

// TryTrackMaterialize tracks a bigint box an earlier pass already
// planted, the dispatch table's "bigint-materialize op" row: try_track
// succeeds only if the type still resolves to a handled opaque record
// carrying a big-integer attribute, since there would be nothing to
// unmaterialize otherwise.
func (self *Tracker) TryTrackMaterialize(bb *graph.Block, ins *graph.BigIntMaterialize) (*Allocation, bool) {
	if !ins.Type.IsHandledOpaque() {
		return nil, false
	}
	if _, hasBigInt := ins.Type.HasBigInt(); !hasBigInt {
		return nil, false
	}
	alloc, ok := self.track(bb, ins.R, ins.Type, ins.Deopt)
	if ok {
		alloc.MaterializeSite = ins
	}
	return alloc, ok
}

func (self *Tracker) track(bb *graph.Block, r graph.Reg, ty *repr.Stable, deopt int) (*Allocation, bool) {
	if self.maxAllocs > 0 && len(self.allocs) >= self.maxAllocs {
		return nil, false
	}

	id := len(self.allocs) + 1
	hyp := make([]graph.HypReg, ty.AttrCount())
	for i := range hyp {
		hyp[i] = graph.HypReg{AllocID: id, Attr: i}
	}
	alloc := &Allocation{
		ID:       id,
		Def:      r,
		Hyp:      hyp,
		Type:     ty,
		Block:    bb,
		DeoptIdx: deopt,
		writes:   make([]int, ty.AttrCount()),
	}

	self.allocs = append(self.allocs, alloc)
	self.byReg[r] = alloc
	invariant(len(self.allocs) == id, "allocation id %d does not match slot %d", id, len(self.allocs))
	return alloc, true
}

// Lookup finds the tracked allocation currently bound to r, if any.
func (self *Tracker) Lookup(r graph.Reg) (*Allocation, bool) {
	a, ok := self.byReg[r]
	return a, ok
}

// AliasReg binds dst to the same allocation alloc, without tracking a new
// allocation of its own — a Copy, a single-input Phi, or a read of a
// captured reference attribute all produce a register that names exactly
// the same hypothetical object as some register already does, and a
// lookup against dst from then on should see straight through to it.
func (self *Tracker) AliasReg(dst graph.Reg, alloc *Allocation) {
	self.byReg[dst] = alloc
}

// MarkIrreplaceable rules an allocation out for replacement and floods
// that fact across the escape-dependency DAG: every allocation that this
// one's fate depends on (captured together, or assigned into one
// another's attributes) is also marked, transitively, since none of them
// can be replaced if one of them must be real (§2 irreplaceable flag,
// "sticky, never clears").
func (self *Tracker) MarkIrreplaceable(alloc *Allocation, deps map[int][]int) {
	if alloc.irreplaceable {
		return
	}

	queue := []int{alloc.ID}
	visited := map[int]struct{}{}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}

		a := self.byID(id)
		if a == nil {
			continue
		}
		a.irreplaceable = true

		queue = append(queue, deps[id]...)
	}
}

func (self *Tracker) byID(id int) *Allocation {
	for _, a := range self.allocs {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// All returns every allocation the tracker has recorded, in the order
// they were first tracked.
func (self *Tracker) All() []*Allocation {
	return self.allocs
}

// Replaceable returns every tracked allocation not ruled irreplaceable —
// the candidate set the materializer and transformer work from.
func (self *Tracker) Replaceable() []*Allocation {
	ret := make([]*Allocation, 0, len(self.allocs))
	for _, a := range self.allocs {
		if !a.irreplaceable {
			ret = append(ret, a)
		}
	}
	return ret
}
