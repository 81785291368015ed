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

// Analyzer drives the single reverse-postorder walk over the input
// graph: tracking new allocations, dispatching each instruction to the
// handler for its concrete kind, folding predecessor states through the
// merge engine at join points, and collecting the Transformations the
// walk decides on along the way. Nothing here mutates the input graph —
// that happens only once, in the transformer, after the whole walk
// finishes (§4.2, §4.6).
type Analyzer struct {
	tracker      *Tracker
	merge        *MergeEngine
	materializer *Materializer
	deopts       *DeoptBookkeeper
	facts        *ShadowFacts
	deps         map[int][]int // escape-dependency DAG: alloc id -> ids it depends on

	noBigIntDecompose bool

	nextFreshReg int // next never-before-used register index, for the bigint decomposition planner's get-bigint loads

	exitState map[int]*BlockState // finished per-block state, keyed by block ID
	transforms []Transformation
	bailouts   []BailoutError
}

func NewAnalyzer(g *graph.Graph) *Analyzer {
	return NewAnalyzerWithConfig(g, DefaultConfig())
}

// NewAnalyzerWithConfig is NewAnalyzer with every tunable spelled out,
// used by the top-level Compile entry point once it has folded a
// caller's Options into a Config.
func NewAnalyzerWithConfig(g *graph.Graph, cfg *Config) *Analyzer {
	tracker := NewTracker()
	tracker.maxAllocs = cfg.MaxAllocs
	deps := map[int][]int{}

	return &Analyzer{
		tracker:           tracker,
		merge:             NewMergeEngine(tracker, deps),
		materializer:      NewMaterializer(tracker, g),
		deopts:            NewDeoptBookkeeper(),
		facts:             NewShadowFacts(),
		deps:              deps,
		noBigIntDecompose: cfg.NoBigIntDecompose,
		nextFreshReg:      graph.MaxRegIndex(g) + 1,
		exitState:         map[int]*BlockState{},
	}
}

// freshReg mints a register index no instruction anywhere in the input
// graph ever used, for a transform that needs to name a value nothing in
// the original trace computed (the bigint decomposition planner's
// get-bigint loads).
func (self *Analyzer) freshReg() graph.Reg {
	r := graph.Reg{Index: self.nextFreshReg}
	self.nextFreshReg++
	return r
}

// NextFreshReg returns the next register index this analyzer has not yet
// minted, so the transformer's own concrete-register resolution can
// continue the same numbering instead of risking a collision with a
// register the analysis phase already handed out.
func (self *Analyzer) NextFreshReg() int {
	return self.nextFreshReg
}

// dispatch is the table §4.2 calls for: one handler per concrete
// instruction kind, keyed by dynamic type instead of an opcode integer
// since the input graph's instruction set is a closed set of Go types
// rather than a byte opcode.
type handler func(a *Analyzer, bb *graph.Block, state *BlockState, ins graph.Node)

var dispatch = map[string]handler{}

func register(name string, h handler) {
	dispatch[name] = h
}

func init() {
	register("fastcreate", func(a *Analyzer, bb *graph.Block, state *BlockState, ins graph.Node) {
		a.handleFastCreate(bb, state, ins.(*graph.FastCreate))
	})
	register("bigint.materialize", func(a *Analyzer, bb *graph.Block, state *BlockState, ins graph.Node) {
		a.handleBigIntMaterialize(bb, state, ins.(*graph.BigIntMaterialize))
	})
	register("getattr", func(a *Analyzer, bb *graph.Block, state *BlockState, ins graph.Node) {
		a.handleGetAttr(bb, state, ins.(*graph.GetAttr))
	})
	register("bindattr", func(a *Analyzer, bb *graph.Block, state *BlockState, ins graph.Node) {
		a.handleBindAttr(bb, state, ins.(*graph.BindAttr))
	})
	register("guard", func(a *Analyzer, bb *graph.Block, state *BlockState, ins graph.Node) {
		a.handleGuard(bb, state, ins.(*graph.Guard))
	})
	register("bigint.binary", func(a *Analyzer, bb *graph.Block, state *BlockState, ins graph.Node) {
		a.handleBigIntBinary(bb, state, ins.(*graph.BigIntBinary))
	})
	register("bigint.unary", func(a *Analyzer, bb *graph.Block, state *BlockState, ins graph.Node) {
		a.handleBigIntUnary(bb, state, ins.(*graph.BigIntUnary))
	})
	register("bigint.rel", func(a *Analyzer, bb *graph.Block, state *BlockState, ins graph.Node) {
		a.handleBigIntRel(bb, state, ins.(*graph.BigIntRel))
	})
	register("call", func(a *Analyzer, bb *graph.Block, state *BlockState, ins graph.Node) {
		a.handleCall(bb, state, ins.(*graph.Call))
	})
	register("return", func(a *Analyzer, bb *graph.Block, state *BlockState, ins graph.Node) {
		a.handleReturn(bb, state, ins.(*graph.Return))
	})
	register("copy", func(a *Analyzer, bb *graph.Block, state *BlockState, ins graph.Node) {
		a.handleCopy(bb, state, ins.(*graph.Copy))
	})
}

func kindOf(ins graph.Node) string {
	switch ins.(type) {
	case *graph.FastCreate:
		return "fastcreate"
	case *graph.BigIntMaterialize:
		return "bigint.materialize"
	case *graph.GetAttr:
		return "getattr"
	case *graph.BindAttr:
		return "bindattr"
	case *graph.Guard:
		return "guard"
	case *graph.BigIntBinary:
		return "bigint.binary"
	case *graph.BigIntUnary:
		return "bigint.unary"
	case *graph.BigIntRel:
		return "bigint.rel"
	case *graph.Call:
		return "call"
	case *graph.Return:
		return "return"
	case *graph.Copy:
		return "copy"
	default:
		return ""
	}
}

// Run walks g once in reverse postorder and returns the set of
// Transformations it planned, plus the tracker it leaves behind for the
// transformer to consult (deopt info, final write state, etc). Hitting a
// back-edge anywhere in g aborts the walk immediately: loops are
// unsupported, so the pass gives up on the whole graph rather than try to
// run the merge engine to a fixed point across one (§4.2).
func (self *Analyzer) Run(g *graph.Graph) ([]Transformation, *Tracker) {
	order := g.Order()

	for _, bb := range g.ReversePostOrder() {
		if bb.IsLoopHeader(order) {
			self.bailout(bb)
			self.abortAll()
			return self.transforms, self.tracker
		}

		state := self.stateFor(bb)

		// phi nodes live in their own slice, not bb.Ins, so they need their
		// own walk rather than a dispatch table entry keyed off bb.Ins
		// contents — mirroring every SSA pass in the specializer's own
		// compiler, which walks bb.Phi independently of bb.Ins too.
		for _, phi := range bb.Phi {
			self.handlePhi(bb, state, phi)
		}

		for _, ins := range bb.Ins {
			name := kindOf(ins)
			if h, ok := dispatch[name]; ok {
				h(self, bb, state, ins)
			} else {
				self.handleFallthrough(bb, state, ins)
			}
		}

		self.exitState[bb.ID] = state
	}

	self.finalizeSurvivors()
	return self.transforms, self.tracker
}

// abortAll discards every transform planned so far and marks every
// allocation tracked so far irreplaceable, so the graph this pass hands
// back to the transformer is left exactly as it found it and reports 0
// replaceable, per §4.2 and the back-edge end-to-end test case.
func (self *Analyzer) abortAll() {
	self.transforms = nil
	for _, a := range self.tracker.All() {
		self.tracker.MarkIrreplaceable(a, self.deps)
	}
}

// Bailouts returns every loop-header bailout the walk recorded, in the
// order they were hit — purely diagnostic, for a caller tracing why a
// particular allocation never got scalar-replaced.
func (self *Analyzer) Bailouts() []BailoutError {
	return self.bailouts
}

// finalizeSurvivors runs once the walk is complete: every allocation that
// made it through the whole graph without ever being ruled irreplaceable
// is deleted at its original construction site — whether or not it was
// forced real somewhere along the way. One that was never forced real
// simply vanishes, its fastcreate and every attribute bind rewritten
// around it already elided by the transforms planned during the walk.
// One that was forced real loses its original site in favor of the
// fastcreate-plus-bindattrs the materializer rebuilds at the
// materialization point from the attribute values its hypothetical
// slots collected.
func (self *Analyzer) finalizeSurvivors() {
	self.collapseAliasedSets()

	for _, alloc := range self.tracker.Replaceable() {
		// every replaceable allocation's original construction site is
		// deleted regardless of whether it ended up materialized
		// somewhere else in the graph: a materialized allocation gets a
		// brand new fastcreate (or bigint box) built at its insertion
		// point from the attribute values its hypothetical slots
		// collected, rather than keeping the original site alive
		// alongside it.
		switch {
		case alloc.Site != nil:
			self.transforms = append(self.transforms, DeleteFastCreate{Alloc: alloc, Site: alloc.Site})
		case alloc.MaterializeSite != nil:
			self.transforms = append(self.transforms, UnmaterializeBigInt{Alloc: alloc, Site: alloc.MaterializeSite})
		}
		// a synthetic allocation tracking a decomposed bigint op's result
		// had neither — nothing of its own to delete.
	}
}

// collapseAliasedSets runs once the whole walk is finished and rewrites
// every BindAttrToSet or GetAttrToSet whose attribute aliases another
// tracked allocation into a DeleteSet, when both allocations involved are
// replaceable and neither was ever materialized anywhere in the graph
// (§4.6: "if the other allocation involved is also replaceable, the
// entire instruction is deleted"). This is a deliberately conservative,
// whole-program check rather than a per-program-point one: by the time
// this runs every allocation's final irreplaceable and materialized state
// is already settled, so there is no ordering subtlety left to get wrong,
// only the coarser question of whether either allocation ever needed a
// real object anywhere at all.
func (self *Analyzer) collapseAliasedSets() {
	for i, tr := range self.transforms {
		switch v := tr.(type) {
		case BindAttrToSet:
			if self.collapsible(v.Alloc, v.Alias) {
				self.transforms[i] = DeleteSet{Alloc: v.Alloc, Index: v.Index, Site: v.Site}
			}
		case GetAttrToSet:
			if self.collapsible(v.Alloc, v.Alias) {
				self.transforms[i] = DeleteSet{Alloc: v.Alloc, Index: v.Index, Site: v.Site}
			}
		}
	}
}

func (self *Analyzer) collapsible(alloc, alias *Allocation) bool {
	if alias == nil {
		return false
	}
	return !alloc.Irreplaceable() && !alloc.EverMaterialized() &&
		!alias.Irreplaceable() && !alias.EverMaterialized()
}

// stateFor produces bb's entry BlockState by merging every predecessor's
// finished exit state, or a fresh empty state if bb has none yet
// recorded (the root block, or a block none of whose predecessors is
// reachable from the root).
func (self *Analyzer) stateFor(bb *graph.Block) *BlockState {
	if len(bb.Pred) == 0 {
		return NewBlockState(bb)
	}

	preds := make([]*BlockState, 0, len(bb.Pred))
	for _, p := range bb.Pred {
		if s, ok := self.exitState[p.ID]; ok {
			preds = append(preds, s)
		}
	}

	if len(preds) == 0 {
		return NewBlockState(bb)
	}
	if len(preds) == 1 {
		// clone rather than hand back the predecessor's own live exit
		// state: a sibling block sharing that same single predecessor
		// would otherwise mutate the identical object this block just
		// started mutating too, and the predecessor's own recorded exit
		// state would drift underneath it.
		return preds[0].Clone(bb)
	}

	return self.merge.Merge(bb, preds)
}

// bailout records a BailoutError for every allocation visibly live into
// bb, a loop header, purely so a caller tracing a specific allocation via
// peaopts.TraceAllocID can see why it never got scalar-replaced — by the
// time this runs the whole pass is already giving up (abortAll undoes
// everything planned so far), so nothing here plans or forces any
// rewrite of its own.
func (self *Analyzer) bailout(bb *graph.Block) {
	for _, p := range bb.Pred {
		exit, ok := self.exitState[p.ID]
		if !ok {
			continue
		}
		for id := range exit.seen {
			if a := self.tracker.byID(id); a != nil {
				self.bailouts = append(self.bailouts, BailoutError{Reason: "back-edge detected, aborting the pass", AllocID: a.ID})
			}
		}
	}
}

// handleFallthrough implements §4.2 point 4: any instruction kind the
// dispatch table has no handler for still reads whatever registers it
// names as usages, and a tracked allocation read by one is no longer
// something this pass understands well enough to keep hypothetical —
// real_object_required applies exactly as it would for a call argument.
func (self *Analyzer) handleFallthrough(bb *graph.Block, state *BlockState, ins graph.Node) {
	u, ok := ins.(graph.Usages)
	if !ok {
		return
	}
	for _, r := range u.Usages() {
		alloc, ok := self.tracker.Lookup(*r)
		if !ok || alloc.Irreplaceable() || !state.IsSeen(alloc) {
			continue
		}
		self.forceRealAt(bb, state, alloc, "read by an instruction kind this pass has no handler for")
	}
}

// handleCopy aliases R to whatever Val already names: a tracked
// allocation's own register, another alias of one, or a plain real
// value. Aliasing a tracked allocation lets later instructions keep
// reading straight through R to the same hypothetical object without
// this pass ever materializing it on R's account, rather than treating
// the copy itself as a read that forces it real (§4.2's Move/alias row).
func (self *Analyzer) handleCopy(bb *graph.Block, state *BlockState, ins *graph.Copy) {
	alloc, ok := self.tracker.Lookup(ins.Val)
	if !ok || alloc.Irreplaceable() || !state.IsSeen(alloc) {
		return
	}
	self.tracker.AliasReg(ins.R, alloc)
	state.See(alloc)
	self.facts.CopyReg(ins.Val, ins.R)
}

// handlePhi implements the merge-through-phi half of §4.3: a phi with
// exactly one distinct tracked, still-hypothetical allocation among its
// inputs aliases its result to that allocation the same way a Copy does,
// since every incoming edge agrees on what object it is. A phi whose
// inputs disagree — more than one distinct allocation, or a mix of a
// tracked allocation and an already-real value — cannot be represented
// by a single hypothetical identity, so every tracked input is forced
// real instead.
func (self *Analyzer) handlePhi(bb *graph.Block, state *BlockState, phi *graph.Phi) {
	var single *Allocation
	mixed := false

	for _, r := range phi.V {
		alloc, ok := self.tracker.Lookup(*r)
		if !ok || alloc.Irreplaceable() || !state.IsSeen(alloc) {
			mixed = true
			continue
		}
		if single == nil {
			single = alloc
		} else if single.ID != alloc.ID {
			mixed = true
		}
	}

	if single != nil && !mixed {
		self.tracker.AliasReg(phi.R, single)
		state.See(single)
		self.facts.SetReg(phi.R, single.Type)
		return
	}

	for _, r := range phi.V {
		alloc, ok := self.tracker.Lookup(*r)
		if !ok || alloc.Irreplaceable() || !state.IsSeen(alloc) {
			continue
		}
		self.forceRealAt(bb, state, alloc, "phi input disagrees with another incoming edge")
	}
}

func (self *Analyzer) handleFastCreate(bb *graph.Block, state *BlockState, ins *graph.FastCreate) {
	alloc, ok := self.tracker.TryTrack(bb, ins)
	if !ok {
		return
	}
	state.See(alloc)
	self.deopts.RecordProducer(alloc, ins.Deopt)
}

func (self *Analyzer) handleGetAttr(bb *graph.Block, state *BlockState, ins *graph.GetAttr) {
	alloc, ok := self.tracker.Lookup(ins.Obj)
	if !ok || alloc.Irreplaceable() {
		return
	}
	if !state.IsSeen(alloc) {
		// already materialized earlier in this block (or never tracked
		// into this path at all): if materialized, this getattr reads a
		// real attribute off a real object, which still counts as a use
		// worth knowing about for worth_materializing on any sibling
		// allocation sharing this read.
		if self.materializer.HandleMaterializedUsages(state, alloc) {
			alloc.MarkRead()
		}
		return
	}

	if bigIdx, hasBigInt := alloc.Type.HasBigInt(); hasBigInt && bigIdx == ins.Index && alloc.bigintRead {
		src, ok := alloc.Slot(bigIdx)
		if !ok {
			src = graph.Zero
		}
		self.transforms = append(self.transforms, UnboxBigInt{Alloc: alloc, Dst: ins.R, Src: src, Site: ins})
		return
	}

	// a reference-kind attribute whose current value traces to another
	// still-hypothetical allocation reads as an alias of it, not a plain
	// copy of a register that might itself never materialize — the
	// getattr is deleted outright and ins.R becomes another name for the
	// same object (§4.6's aliasing collapse, dispatch row 78).
	if alloc.Type.AttrKind(ins.Index) == repr.KindRef {
		if val, ok := alloc.Slot(ins.Index); ok {
			if child, ok := self.tracker.Lookup(val); ok && !child.Irreplaceable() && state.IsSeen(child) {
				self.tracker.AliasReg(ins.R, child)
				state.See(child)
				self.facts.HypToReg(alloc.Hyp[ins.Index], ins.R)
				alloc.MarkRead()
				self.transforms = append(self.transforms, DeleteSet{Alloc: alloc, Index: ins.Index, Site: ins})
				return
			}
		}
	}

	written := alloc.WriteCount(ins.Index) > 0 || alloc.IsVivified(ins.Index)
	if !written && ins.Vivify != graph.NoVivify {
		alloc.MarkVivify(ins.Vivify)
		alloc.SetVivified(ins.Index)
	}

	val, ok := alloc.Slot(ins.Index)
	if !ok {
		// read before any bindattr ever wrote this slot, and nothing
		// auto-vivified it either — the zero value for the attribute's
		// storage kind stands in, matching what a real fastcreate would
		// have zero-initialized.
		val = graph.Zero
	}

	var alias *Allocation
	if alloc.Type.AttrKind(ins.Index) == repr.KindRef {
		alias, _ = alloc.Alias(ins.Index)
	}

	alloc.MarkRead()
	self.transforms = append(self.transforms, GetAttrToSet{
		Alloc: alloc,
		Index: ins.Index,
		Dst:   ins.R,
		Src:   val,
		Alias: alias,
		Site:  ins,
	})
}

func (self *Analyzer) handleBindAttr(bb *graph.Block, state *BlockState, ins *graph.BindAttr) {
	alloc, ok := self.tracker.Lookup(ins.Obj)
	if !ok || alloc.Irreplaceable() || !state.IsSeen(alloc) {
		// the bind target isn't (or is no longer) a hypothetical
		// allocation this pass is carrying — but the value being bound
		// might still be one, and a write into an untracked, already-real
		// object is exactly as much an escape as a call argument would be.
		if val, ok := self.tracker.Lookup(ins.Val); ok && !val.Irreplaceable() && state.IsSeen(val) {
			self.forceRealAt(bb, state, val, "bound into an untracked or already-materialized target")
		}
		return
	}

	alloc.RecordWrite(ins.Index)
	alloc.SetSlot(ins.Index, ins.Val)
	state.Use(alloc, ins.Index)

	// the bound value may itself trace back to a tracked allocation —
	// record the escape dependency so that if alloc is ever forced real,
	// whichever allocation it just captured is forced real along with it
	// rather than leaving a real bindattr pointed at a hypothetical
	// register that was never actually materialized. A reference-kind
	// attribute additionally records the alias relationship itself
	// (collapseAliasedSets, §4.6) and the type fact a later getattr of
	// the same attribute inherits (shadow facts, §3).
	var alias *Allocation
	if child, ok := self.tracker.Lookup(ins.Val); ok && child != alloc {
		self.deps[alloc.ID] = append(self.deps[alloc.ID], child.ID)
		if alloc.Type.AttrKind(ins.Index) == repr.KindRef {
			alias = child
			alloc.SetAlias(ins.Index, child)
			self.facts.SetHyp(alloc.Hyp[ins.Index], child.Type)
		}
	}

	self.transforms = append(self.transforms, BindAttrToSet{
		Alloc: alloc,
		Index: ins.Index,
		Dst:   ins.Obj,
		Val:   ins.Val,
		Alias: alias,
		Site:  ins,
	})
}

func (self *Analyzer) handleGuard(bb *graph.Block, state *BlockState, ins *graph.Guard) {
	alloc, ok := self.tracker.Lookup(ins.Obj)
	if !ok || alloc.Irreplaceable() || !state.IsSeen(alloc) {
		return
	}

	// a fastcreate's type never changes afterward, so a guard against the
	// exact type it was created with can never fail. A shadow fact —
	// recorded when ins.Obj read a captured reference attribute or
	// aliased another allocation rather than being try_track'd itself —
	// is an equally valid second way to prove the same thing.
	if alloc.Type == ins.Type || self.facts.ProvesType(ins.Obj, ins.Type) {
		self.transforms = append(self.transforms, GuardToSet{Alloc: alloc, Site: ins})
		return
	}

	// the guard's type cannot be proven statically — it is a genuine read
	// of alloc that this pass cannot see through, identical in effect to
	// any other read of a tracked operand it does not specifically model.
	self.forceRealAt(bb, state, alloc, "guard against a type this pass cannot statically prove")
}

func (self *Analyzer) handleBigIntBinary(bb *graph.Block, state *BlockState, ins *graph.BigIntBinary) {
	if t := self.decomposeBinary(bb, state, ins); t != nil {
		self.transforms = append(self.transforms, t)
	}
}

func (self *Analyzer) handleBigIntUnary(bb *graph.Block, state *BlockState, ins *graph.BigIntUnary) {
	if t := self.decomposeUnary(bb, state, ins); t != nil {
		self.transforms = append(self.transforms, t)
	}
}

func (self *Analyzer) handleBigIntRel(bb *graph.Block, state *BlockState, ins *graph.BigIntRel) {
	if t := self.decomposeRelational(bb, ins); t != nil {
		self.transforms = append(self.transforms, t)
	}
}

// handleCall implements real_object_required for every tracked
// allocation passed as an argument: a call is opaque to the analyzer, so
// anything it receives might escape the current frame entirely.
func (self *Analyzer) handleCall(bb *graph.Block, state *BlockState, ins *graph.Call) {
	for _, arg := range ins.Args {
		alloc, ok := self.tracker.Lookup(arg)
		if !ok || alloc.Irreplaceable() || !state.IsSeen(alloc) {
			continue
		}
		self.forceRealAt(bb, state, alloc, "passed as a call argument")
	}
}

// handleReturn forces every tracked allocation returned from the frame
// real, since the caller can only ever see a concrete value.
func (self *Analyzer) handleReturn(bb *graph.Block, state *BlockState, ins *graph.Return) {
	for _, v := range ins.Vals {
		alloc, ok := self.tracker.Lookup(v)
		if !ok || alloc.Irreplaceable() || !state.IsSeen(alloc) {
			continue
		}
		self.forceRealAt(bb, state, alloc, "returned from the frame")
	}
}

func (self *Analyzer) forceRealAt(bb *graph.Block, state *BlockState, alloc *Allocation, reason string) {
	if !state.IsSeen(alloc) {
		return
	}

	planned := self.materializer.RealObjectRequired(bb, state, alloc, reason, self.deps)
	if len(planned) == 0 {
		// either not worth materializing (RealObjectRequired already
		// marked the allocation irreplaceable instead, so every transform
		// already planned on its behalf becomes a no-op at apply time) or
		// a synthetic decomposed-bigint-result allocation whose defining
		// op is already real and needs nothing further constructed.
		// Either way, no deopt or profiling bookkeeping applies to an
		// object this pass never actually builds.
		return
	}

	self.transforms = append(self.transforms, planned...)
	self.transforms = append(self.transforms, ProfAllocated{Alloc: alloc, Type: alloc.Type.Name})

	deoptIdx, synthetic := self.deopts.GetDeoptMaterializationInfo(alloc)
	if synthetic {
		self.transforms = append(self.transforms, AddDeoptPoint{Alloc: alloc, Index: deoptIdx})
	}
	self.deopts.AddUsage(alloc, deoptIdx)
	self.transforms = append(self.transforms, AddDeoptUsage{Alloc: alloc, DeoptIdx: deoptIdx})

	// alloc is materializing with a real bindattr planned for every
	// attribute bindattr-to-set recorded — any of those attribute values
	// that itself aliases a still-hypothetical allocation must become
	// real too, or the bindattr this plan emits would end up pointed at a
	// register nothing ever produces. Recursion bottoms out because
	// forceRealAt is a no-op on an allocation the current state no longer
	// sees (already real, or never reached this path).
	for _, depID := range self.deps[alloc.ID] {
		child := self.tracker.byID(depID)
		if child == nil || child.Irreplaceable() {
			continue
		}
		self.forceRealAt(bb, state, child, "captured by an attribute of an allocation forced real")
	}
}
