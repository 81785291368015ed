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

import "github.com/sixmodel/pea/internal/graph"

// Stats summarizes what one Transformer.Apply call actually did to a
// graph, surfaced through the debug package's Stats.
type Stats struct {
	Deleted          int // fastcreates deleted outright
	GuardsElided     int
	BindsElided      int
	GetsRewritten    int
	Materialized     int
	BigIntDecomposed int
	Unboxed          int
	BigIntLoaded     int
	SetsDeleted      int
}

// Transformer is the one place the input graph is actually mutated. The
// analyzer only ever plans Transformations against a read-only view of
// the graph; applying them in a single pass afterward means every
// rewrite decision is made against one consistent picture of the graph
// instead of a partially-edited one (§4.6).
type Transformer struct {
	materializer *Materializer
	deopts       *DeoptBookkeeper
	nextReg      int // next never-before-used register index, continuing the analyzer's own numbering
}

func NewTransformer(materializer *Materializer, deopts *DeoptBookkeeper, nextReg int) *Transformer {
	return &Transformer{materializer: materializer, deopts: deopts, nextReg: nextReg}
}

// freshReg mints a register index neither the input graph nor the
// analyzer's own get-bigint loads ever used, for resolveConcreteSlots'
// attributes that never got a bindattr of their own to resolve against.
func (self *Transformer) freshReg() graph.Reg {
	r := graph.Reg{Index: self.nextReg}
	self.nextReg++
	return r
}

// pendingMaterialize is one allocation's planned real fastcreate plus the
// bindattrs needed to rebuild its attribute state, staged per block until
// Apply walks that block and can compute an exact insertion point.
type pendingMaterialize struct {
	alloc  *Allocation
	vivify []Transformation
}

// Apply rewrites g in place according to transforms and returns a
// summary of what happened.
func (self *Transformer) Apply(g *graph.Graph, transforms []Transformation) Stats {
	var stats Stats

	deleteSite := map[graph.Node]bool{}
	copySite := map[graph.Node]*graph.Copy{}
	insertBefore := map[graph.Node][]graph.Node{}
	unmaterialized := map[int]bool{}
	pending := map[int][]*pendingMaterialize{} // block ID -> materializations to insert there

	pendingByAlloc := map[int]*pendingMaterialize{}

	for _, tr := range transforms {
		// §4.6: every transformation checks its owning allocation's
		// irreplaceable flag first and becomes a no-op if set — this
		// catches rewrites planned earlier in the walk, before a later
		// instruction (a call, a return, a merge inconsistency) forced
		// the allocation irreplaceable instead of materializing it.
		if alloc := allocOf(tr); alloc != nil && alloc.Irreplaceable() {
			switch tr.(type) {
			case GetAttrToSet, BindAttrToSet, GuardToSet, UnboxBigInt, DeleteSet,
				Materialize, VivifyType, VivifyConcrete, ProfAllocated, AddDeoptPoint, AddDeoptUsage:
				continue
			}
			// DeleteFastCreate and UnmaterializeBigInt are never planned
			// for an allocation that ends up irreplaceable in the first
			// place — finalizeSurvivors only emits either one from
			// tracker.Replaceable() — so neither needs a check here.
		}

		switch v := tr.(type) {
		case DeleteFastCreate:
			deleteSite[v.Site] = true
			stats.Deleted++

		case BindAttrToSet:
			deleteSite[v.Site] = true
			stats.BindsElided++

		case DeleteSet:
			// Site names the getattr or bindattr this set's whole
			// instruction collapses to nothing — a reference-attribute
			// read that turned out to be a pure alias (handleGetAttr), or
			// a bind/read pair collapseAliasedSets proved both sides of
			// are replaceable and never materialized (§4.6). Either way
			// the instruction at Site is deleted outright rather than
			// rewritten into a set or a copy.
			if v.Site != nil {
				deleteSite[v.Site] = true
				stats.SetsDeleted++
			}

		case LoadBigInt:
			insertBefore[v.Site] = append(insertBefore[v.Site], &graph.GetAttr{R: v.Dst, Obj: v.Obj, Index: v.Index})
			stats.BigIntLoaded++

		case GuardToSet:
			deleteSite[v.Site] = true
			stats.GuardsElided++

		case GetAttrToSet:
			copySite[v.Site] = &graph.Copy{R: v.Dst, Val: v.Src}
			stats.GetsRewritten++

		case UnboxBigInt:
			copySite[v.Site] = &graph.Copy{R: v.Dst, Val: v.Src}
			stats.Unboxed++

		case DecomposeBigIntBinary, DecomposeBigIntUnary, DecomposeBigIntRelational:
			// the box-producing instruction itself is left in the graph:
			// lowering it to unboxed arithmetic is a JIT backend concern,
			// explicitly out of this pass's scope. What changes is that
			// neither operand's allocation is forced real on account of
			// feeding this op — recorded already by not calling
			// RealObjectRequired for them in the analyzer.
			stats.BigIntDecomposed++

		case Materialize:
			self.resolveConcreteSlots(v.Alloc)
			pm := &pendingMaterialize{alloc: v.Alloc}
			pending[v.At.ID] = append(pending[v.At.ID], pm)
			pendingByAlloc[v.Alloc.ID] = pm
			stats.Materialized++

		case VivifyType, VivifyConcrete:
			alloc := vivifyAlloc(v)
			if pm, ok := pendingByAlloc[alloc.ID]; ok {
				pm.vivify = append(pm.vivify, v)
			}

		case UnmaterializeBigInt:
			if v.Site != nil {
				deleteSite[v.Site] = true
			}
			if _, pending := pendingByAlloc[v.Alloc.ID]; !pending {
				// no materialize was ever queued for this allocation — it
				// stayed purely hypothetical for the whole walk, so
				// unmaterialized records that its bigint box is simply
				// gone rather than something a materialize elsewhere will
				// still reconstruct.
				unmaterialized[v.Alloc.ID] = true
			}

		case AddDeoptPoint, AddDeoptUsage, ProfAllocated:
			// the deopt kinds are bookkeeping already folded into the
			// DeoptBookkeeper at plan time; ProfAllocated is a plan-level
			// record only. None has a graph shape of its own to apply.
		}
	}

	for _, bb := range g.Blocks {
		self.applyBlock(bb, deleteSite, copySite, insertBefore, pending[bb.ID], unmaterialized)
	}

	return stats
}

// resolveConcreteSlots fills in, for alloc, the concrete register each of
// its attributes resolves to once materialized — a bindattr's Val if one
// was ever planned for that attribute, or a freshly minted register for
// one that was never written at all (auto-vivified, or simply left zero).
// This is the "array of concrete attribute registers" a deopt site needs
// to reconstruct the object's fields without alloc's own hypothetical
// Hyp registers, which name no actual storage (§4.7, §3).
func (self *Transformer) resolveConcreteSlots(alloc *Allocation) {
	regs := make([]graph.Reg, alloc.Type.AttrCount())
	for i := range regs {
		if val, ok := alloc.Slot(i); ok {
			regs[i] = val
		} else {
			regs[i] = self.freshReg()
		}
	}
	self.deopts.SetConcreteSlots(alloc.ID, alloc.Type, regs)
}

// allocOf returns the allocation a transform is planned on behalf of, or
// nil for the handful of kinds (the decompose-bigint family) that plan
// against raw registers instead of a tracked allocation.
func allocOf(tr Transformation) *Allocation {
	switch v := tr.(type) {
	case DeleteFastCreate:
		return v.Alloc
	case GetAttrToSet:
		return v.Alloc
	case BindAttrToSet:
		return v.Alloc
	case DeleteSet:
		return v.Alloc
	case GuardToSet:
		return v.Alloc
	case UnboxBigInt:
		return v.Alloc
	case Materialize:
		return v.Alloc
	case VivifyType:
		return v.Alloc
	case VivifyConcrete:
		return v.Alloc
	case UnmaterializeBigInt:
		return v.Alloc
	case AddDeoptPoint:
		return v.Alloc
	case AddDeoptUsage:
		return v.Alloc
	case ProfAllocated:
		return v.Alloc
	default:
		return nil
	}
}

func vivifyAlloc(t Transformation) *Allocation {
	switch v := t.(type) {
	case VivifyType:
		return v.Alloc
	case VivifyConcrete:
		return v.Alloc
	default:
		return nil
	}
}

func (self *Transformer) applyBlock(bb *graph.Block, deleteSite map[graph.Node]bool, copySite map[graph.Node]*graph.Copy, insertBefore map[graph.Node][]graph.Node, materializes []*pendingMaterialize, unmaterialized map[int]bool) {
	live := make([]*pendingMaterialize, 0, len(materializes))
	for _, pm := range materializes {
		if !unmaterialized[pm.alloc.ID] {
			live = append(live, pm)
		}
	}

	if len(deleteSite) == 0 && len(copySite) == 0 && len(insertBefore) == 0 && len(live) == 0 {
		return
	}

	out := make([]graph.Node, 0, len(bb.Ins)+len(live)*2)

	insertAt := map[int][]*pendingMaterialize{}
	for _, pm := range live {
		idx := self.materializer.InsertionPoint(bb, pm.alloc)
		insertAt[idx] = append(insertAt[idx], pm)
	}

	emit := func(idx int) {
		for _, pm := range insertAt[idx] {
			out = append(out, materializeInstrs(pm)...)
		}
	}

	for i, ins := range bb.Ins {
		emit(i)

		out = append(out, insertBefore[ins]...)

		if deleteSite[ins] {
			continue
		}
		if cp, ok := copySite[ins]; ok {
			out = append(out, cp)
			continue
		}
		out = append(out, ins)
	}
	emit(len(bb.Ins))

	bb.Ins = out
}

// materializeInstrs builds the real fastcreate plus the bindattr for
// every attribute this allocation's slots recorded, followed by the
// type and concreteness vivification this allocation planned.
func materializeInstrs(pm *pendingMaterialize) []graph.Node {
	alloc := pm.alloc
	out := []graph.Node{&graph.FastCreate{R: alloc.Def, Type: alloc.Type, Deopt: alloc.DeoptIdx}}

	for i := 0; i < alloc.Type.AttrCount(); i++ {
		val, ok := alloc.Slot(i)
		if !ok {
			continue
		}
		out = append(out, &graph.BindAttr{Obj: alloc.Def, Index: i, Val: val})
	}

	for _, v := range pm.vivify {
		switch t := v.(type) {
		case VivifyType:
			out = append(out, &graph.Guard{Obj: alloc.Def, Type: alloc.Type, Deopt: alloc.DeoptIdx})
		case VivifyConcrete:
			_ = t
			out = append(out, &graph.Guard{Obj: alloc.Def, Type: alloc.Type, Deopt: alloc.DeoptIdx})
		}
	}

	return out
}
