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

// Materializer decides, for an allocation that scalar replacement cannot
// carry any further, where in the graph to emit its real fastcreate and
// the bindattrs needed to reconstruct its attribute state there.
type Materializer struct {
	tracker *Tracker
	order   map[int]int
	byID    map[int]*graph.Block
	reach   *graph.Reachability
}

func NewMaterializer(tracker *Tracker, g *graph.Graph) *Materializer {
	byID := make(map[int]*graph.Block, len(g.Blocks))
	for _, bb := range g.Blocks {
		byID[bb.ID] = bb
	}
	return &Materializer{tracker: tracker, order: g.Order(), byID: byID, reach: graph.BuildReachability(g)}
}

// RealObjectRequired forces alloc real as of bb, for reason (a call
// argument, a return value, an unprovable guard, a disagreeing phi, a
// bind into an untracked object, or a capture by another allocation
// being forced real) — unless it turns out not to be worth it, in which case the
// allocation (and everything depending on it, per deps) is marked
// irreplaceable instead and no graph edit is planned at all (§4.5).
// RealObjectRequired is idempotent: calling it twice for the same block
// once it has materialized is a no-op the second time.
func (self *Materializer) RealObjectRequired(bb *graph.Block, state *BlockState, alloc *Allocation, reason string, deps map[int][]int) []Transformation {
	if !state.IsSeen(alloc) && state.IsMaterializedHere(alloc) {
		return nil
	}

	if !self.worthMaterializing(alloc, bb) {
		self.tracker.MarkIrreplaceable(alloc, deps)
		state.Unsee(alloc)
		return nil
	}

	state.Materialize(alloc)
	alloc.MarkMaterialized(bb)

	if alloc.Site == nil && alloc.MaterializeSite == nil {
		// a synthetic allocation tracking a decomposed bigint op's result
		// (§4.4): the op that defines it was never deleted, so its
		// register already names a real object. There is nothing to
		// construct — only the bookkeeping above, so a later getattr off
		// this register routes through HandleMaterializedUsages instead
		// of a hypothetical slot that was never written.
		return nil
	}

	out := []Transformation{Materialize{Alloc: alloc, At: bb}}
	// only an allocation some auto-vivifying read actually touched needs
	// its vivification re-established on the real object — unconditionally
	// emitting both regardless of whether any read ever needed either
	// would just be two meaningless, always-true guards (§4.2 row 78).
	if alloc.needsVivifyType {
		out = append(out, VivifyType{Alloc: alloc})
	}
	if alloc.needsVivifyConcrete {
		out = append(out, VivifyConcrete{Alloc: alloc})
	}
	return out
}

// HandleMaterializedUsages reports whether alloc has already been
// materialized in this block. A getattr/bindattr that arrives after that
// point is planned no rewrite, so it stays a plain attribute access
// against the real object.
func (self *Materializer) HandleMaterializedUsages(state *BlockState, alloc *Allocation) bool {
	return state.IsMaterializedHere(alloc)
}

// worthMaterializing is the predicate worth_materializing from the
// design: an allocation is worth carrying real work for only if it is
// read, feeds a bigint decomposition, or is used far enough from its
// allocating block that carrying it hypothetically all the way there
// stops being cheaper than just allocating it.
func (self *Materializer) worthMaterializing(alloc *Allocation, usageBlock *graph.Block) bool {
	if alloc.WorthMaterializing() {
		return true
	}
	return !self.InBranchOfAllocator(alloc.Block, usageBlock)
}

// InBranchOfAllocator approximates whether usage is still within the
// same conditional region the allocation was created in, by running a
// signed sum across the reverse-postorder span between the two blocks:
// every branch (multiple successors) opens a pending join, every merge
// (multiple predecessors) closes one. If the sum ever goes negative
// before reaching usage, execution has rejoined a scope that was already
// open before the allocation, which means usage is reachable by a path
// that never passed through the allocator — not safely "in branch".
//
// This is intentionally approximate: it can return false (and so trigger
// an unnecessary materialization) for some patterns a precise dominance
// query would accept, but it never returns true for a usage that is not
// actually control-dependent on the allocation, so it only costs
// performance, never correctness.
func (self *Materializer) InBranchOfAllocator(allocBlock, usageBlock *graph.Block) bool {
	if allocBlock == usageBlock {
		return true
	}
	if !self.reach.Reaches(allocBlock, usageBlock) {
		// usage cannot execute after the allocation at all, which a
		// well-formed trace should never produce — treat it the same
		// as "not in branch" rather than trust a depth count computed
		// over blocks that can't actually reach each other.
		return false
	}

	start, ok := self.order[allocBlock.ID]
	if !ok {
		return false
	}
	end, ok := self.order[usageBlock.ID]
	if !ok || end < start {
		return false
	}

	depth := 0
	byOrder := make([]*graph.Block, 0, end-start+1)
	for id, o := range self.order {
		if o >= start && o <= end {
			if bb := self.byID[id]; bb != nil {
				byOrder = append(byOrder, bb)
			}
		}
	}
	sortBlocksByOrder(byOrder, self.order)

	for _, bb := range byOrder {
		if bb.ID == allocBlock.ID {
			continue
		}
		if len(bb.Pred) > 1 {
			depth--
			if depth < 0 {
				return false
			}
		}
		if bb.ID == usageBlock.ID {
			return true
		}
		if len(bb.Succ) > 1 {
			depth++
		}
	}

	return true
}

func sortBlocksByOrder(bs []*graph.Block, order map[int]int) {
	for i := 1; i < len(bs); i++ {
		for j := i; j > 0 && order[bs[j-1].ID] > order[bs[j].ID]; j-- {
			bs[j-1], bs[j] = bs[j], bs[j-1]
		}
	}
}

// InsertionPoint picks the instruction index within bb to insert a
// Materialize's fastcreate at: for the first call in bb that takes
// alloc.Def directly as an argument, before the run of value-defining
// instructions immediately preceding that call (see marshalStart), so
// the allocation never lands between "compute this argument" and "make
// the call".
//
// When bb has no such call — for example a return-triggered
// materialize — the front of the block is
// the only placement that is always safe: appending at the end would
// either land after bb's terminator or after an instruction that reads
// alloc.Def expecting it already materialized.
func (self *Materializer) InsertionPoint(bb *graph.Block, alloc *Allocation) int {
	for i, ins := range bb.Ins {
		call, ok := ins.(*graph.Call)
		if !ok {
			continue
		}
		for _, arg := range call.Args {
			if arg == alloc.Def {
				return marshalStart(bb.Ins, i)
			}
		}
	}
	return 0
}

// marshalStart walks backward from callIdx over every immediately
// preceding instruction that defines at least one register, stopping at
// the first one that defines none (or at the block start), and returns
// the index of the earliest instruction in that run. It does not check
// whether the call actually consumes those registers.
func marshalStart(ins []graph.Node, callIdx int) int {
	start := callIdx
	for start > 0 {
		prev := ins[start-1]
		defs, ok := prev.(graph.Definitions)
		if !ok {
			break
		}
		if len(defs.Definitions()) == 0 {
			break
		}
		start--
	}
	return start
}
