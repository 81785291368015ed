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
	"testing"

	"github.com/sixmodel/pea/internal/graph"
	"github.com/sixmodel/pea/internal/repr"
)

func twoIntType() *repr.Stable {
	return &repr.Stable{
		Name:        "Point",
		Opaque:      true,
		Attrs:       []repr.Attr{{Kind: repr.KindInt}, {Kind: repr.KindInt}},
		BigIntIndex: -1,
		CacheIndex:  -1,
	}
}

func reg(i int) graph.Reg { return graph.Reg{Index: i} }

func oneBlockGraph(ins ...graph.Node) *graph.Graph {
	bb := &graph.Block{ID: 0, Ins: ins}
	return &graph.Graph{Root: bb, Blocks: []*graph.Block{bb}}
}

// scenario 1: non-escaping opaque with two int attributes never escapes,
// so it is deleted outright and every attribute access becomes a plain
// register copy.
func TestNonEscapingTwoAttrsIsFullyReplaced(t *testing.T) {
	ty := twoIntType()
	fc := &graph.FastCreate{R: reg(1), Type: ty}
	bindA := &graph.BindAttr{Obj: reg(1), Index: 0, Val: reg(10)}
	bindB := &graph.BindAttr{Obj: reg(1), Index: 1, Val: reg(20)}
	get := &graph.GetAttr{R: reg(2), Obj: reg(1), Index: 0}
	ret := &graph.Return{Vals: []graph.Reg{reg(2)}}

	g := oneBlockGraph(fc, bindA, bindB, get, ret)

	analyzer := NewAnalyzer(g)
	transforms, tracker := analyzer.Run(g)

	allocs := tracker.All()
	if len(allocs) != 1 {
		t.Fatalf("expected 1 tracked allocation, got %d", len(allocs))
	}
	if allocs[0].Irreplaceable() {
		t.Fatal("allocation must stay replaceable, nothing escapes")
	}

	var sawDelete, sawGetToSet bool
	for _, tr := range transforms {
		switch v := tr.(type) {
		case DeleteFastCreate:
			sawDelete = true
		case GetAttrToSet:
			sawGetToSet = true
			if v.Src != reg(10) {
				t.Fatalf("expected getattr to resolve to the value bound at index 0, got %v", v.Src)
			}
		case Materialize:
			t.Fatal("non-escaping allocation must never materialize")
		}
	}
	if !sawDelete {
		t.Fatal("expected a delete-fastcreate transform")
	}
	if !sawGetToSet {
		t.Fatal("expected the getattr to become a getattr-to-set")
	}

	stats := NewTransformer(analyzer.materializer, analyzer.deopts, analyzer.NextFreshReg()).Apply(g, transforms)
	if stats.Deleted != 1 {
		t.Fatalf("expected 1 deleted fastcreate, got %d", stats.Deleted)
	}
	if stats.Materialized != 0 {
		t.Fatal("expected no materializations")
	}

	for _, ins := range g.Root.Ins {
		if _, ok := ins.(*graph.FastCreate); ok {
			t.Fatal("fastcreate must have been removed from the block")
		}
	}
}

// scenario 2: an opaque call consumes the allocation before it returns.
// Since the call sits in the very same block the allocation was created
// in, with no read and no branch distance between them, worth_materializing
// says reconstructing it buys nothing — the allocation is marked
// irreplaceable instead, and every rewrite already planned against it is
// left as a no-op, leaving the original instructions untouched.
func TestEscapeViaCallInSameBlockMarksIrreplaceable(t *testing.T) {
	ty := twoIntType()
	fc := &graph.FastCreate{R: reg(1), Type: ty}
	bindA := &graph.BindAttr{Obj: reg(1), Index: 0, Val: reg(10)}
	bindB := &graph.BindAttr{Obj: reg(1), Index: 1, Val: reg(20)}
	call := &graph.Call{R: reg(3), Callee: "unknown_sink", Args: []graph.Reg{reg(1)}}

	g := oneBlockGraph(fc, bindA, bindB, call)

	analyzer := NewAnalyzer(g)
	transforms, tracker := analyzer.Run(g)

	allocs := tracker.All()
	if len(allocs) != 1 {
		t.Fatalf("expected 1 tracked allocation, got %d", len(allocs))
	}
	if !allocs[0].Irreplaceable() {
		t.Fatal("expected worth_materializing to reject a same-block, never-read escape")
	}
	for _, tr := range transforms {
		if _, ok := tr.(Materialize); ok {
			t.Fatal("a not-worthwhile escape must not plan a materialize transform")
		}
	}

	stats := NewTransformer(analyzer.materializer, analyzer.deopts, analyzer.NextFreshReg()).Apply(g, transforms)
	if stats.Materialized != 0 || stats.Deleted != 0 || stats.BindsElided != 0 {
		t.Fatalf("expected no rewrites at all, got %+v", stats)
	}

	var sawOriginalFastCreate bool
	for _, ins := range g.Root.Ins {
		if _, ok := ins.(*graph.FastCreate); ok {
			sawOriginalFastCreate = true
		}
	}
	if !sawOriginalFastCreate {
		t.Fatal("the original fastcreate must survive untouched")
	}
}

// escaping the same way but through a register the allocator's own block
// reads first (so read is set) is worth materializing even with zero
// branch distance.
func TestEscapeViaCallAfterReadMaterializes(t *testing.T) {
	ty := twoIntType()
	fc := &graph.FastCreate{R: reg(1), Type: ty}
	bindA := &graph.BindAttr{Obj: reg(1), Index: 0, Val: reg(10)}
	get := &graph.GetAttr{R: reg(2), Obj: reg(1), Index: 0}
	call := &graph.Call{R: reg(3), Callee: "unknown_sink", Args: []graph.Reg{reg(1)}}

	g := oneBlockGraph(fc, bindA, get, call)

	analyzer := NewAnalyzer(g)
	transforms, tracker := analyzer.Run(g)

	allocs := tracker.All()
	if allocs[0].Irreplaceable() {
		t.Fatal("a read allocation must still be worth materializing")
	}

	var sawMaterialize bool
	for _, tr := range transforms {
		if _, ok := tr.(Materialize); ok {
			sawMaterialize = true
		}
	}
	if !sawMaterialize {
		t.Fatal("expected a materialize transform once the allocation was read")
	}
}

// scenario 2b: a tracked allocation is captured into a reference
// attribute of another tracked allocation, and only the outer one
// escapes (via a call). The inner one is never itself passed anywhere
// directly and, same-block and unread, is not worth a fresh materialize
// of its own — but forcing it real is still not optional, because the
// outer's reconstructed bindattr is about to reference its register
// directly. The escape dependency recorded at bindattr time must drag it
// into real_object_required too, where "not worth materializing" falls
// back to mark_irreplaceable — leaving its original fastcreate and
// bindattrs in the graph rather than deleting them out from under a
// register the outer's materialize plan still points at.
func TestCapturedAllocationResolvedWithItsContainer(t *testing.T) {
	refType := &repr.Stable{
		Name:        "Box",
		Opaque:      true,
		Attrs:       []repr.Attr{{Kind: repr.KindRef}},
		BigIntIndex: -1,
		CacheIndex:  -1,
	}
	innerTy := twoIntType()

	inner := &graph.FastCreate{R: reg(1), Type: innerTy}
	bindInnerA := &graph.BindAttr{Obj: reg(1), Index: 0, Val: reg(10)}
	bindInnerB := &graph.BindAttr{Obj: reg(1), Index: 1, Val: reg(20)}

	outer := &graph.FastCreate{R: reg(2), Type: refType}
	capture := &graph.BindAttr{Obj: reg(2), Index: 0, Val: reg(1)}
	get := &graph.GetAttr{R: reg(3), Obj: reg(2), Index: 0}
	call := &graph.Call{R: reg(4), Callee: "unknown_sink", Args: []graph.Reg{reg(2)}}

	g := oneBlockGraph(inner, bindInnerA, bindInnerB, outer, capture, get, call)

	analyzer := NewAnalyzer(g)
	transforms, tracker := analyzer.Run(g)

	innerAlloc, ok := tracker.Lookup(reg(1))
	if !ok {
		t.Fatal("expected the inner allocation to be tracked")
	}
	outerAlloc, ok := tracker.Lookup(reg(2))
	if !ok {
		t.Fatal("expected the outer allocation to be tracked")
	}

	if len(outerAlloc.materialized) == 0 {
		t.Fatal("expected the outer allocation to be forced real by the call")
	}
	if !innerAlloc.Irreplaceable() {
		t.Fatal("expected the captured inner allocation to resolve to irreplaceable, not be silently elided")
	}

	for _, tr := range transforms {
		if d, ok := tr.(DeleteFastCreate); ok && d.Alloc.ID == innerAlloc.ID {
			t.Fatal("the captured inner allocation's fastcreate must survive — the outer's rebuild still references its register")
		}
	}

	NewTransformer(analyzer.materializer, analyzer.deopts, analyzer.NextFreshReg()).Apply(g, transforms)

	var sawInnerFastCreate int
	for _, ins := range g.Root.Ins {
		if fc, ok := ins.(*graph.FastCreate); ok && fc.R == reg(1) {
			sawInnerFastCreate++
		}
	}
	if sawInnerFastCreate != 1 {
		t.Fatalf("expected the inner fastcreate to survive apply exactly once, got %d", sawInnerFastCreate)
	}
}

// scenario 3: a chain of two binary bigint adds decomposes both ops
// without ever materializing the intermediate result.
func TestBigIntAddChainDecomposesWithoutMaterializing(t *testing.T) {
	biType := &repr.Stable{
		Name:        "BigInt",
		Opaque:      true,
		Attrs:       []repr.Attr{{Kind: repr.KindBigInt}},
		BigIntIndex: 0,
		CacheIndex:  -1,
	}

	a := &graph.FastCreate{R: reg(1), Type: biType}
	b := &graph.FastCreate{R: reg(2), Type: biType}
	c := &graph.FastCreate{R: reg(3), Type: biType}
	first := &graph.BigIntBinary{R: reg(4), Op: graph.BigIntAdd, Lhs: reg(1), Rhs: reg(2)}
	second := &graph.BigIntBinary{R: reg(5), Op: graph.BigIntAdd, Lhs: reg(4), Rhs: reg(3)}
	ret := &graph.Return{Vals: []graph.Reg{reg(5)}}

	g := oneBlockGraph(a, b, c, first, second, ret)

	analyzer := NewAnalyzer(g)
	transforms, tracker := analyzer.Run(g)

	decomposed := 0
	for _, tr := range transforms {
		if _, ok := tr.(DecomposeBigIntBinary); ok {
			decomposed++
		}
	}
	if decomposed != 2 {
		t.Fatalf("expected both adds to decompose, got %d", decomposed)
	}

	// the chain's intermediate result (reg 4) only ever feeds the second
	// add, which itself decomposes — it must never be materialized.
	intermediate, ok := tracker.Lookup(reg(4))
	if ok && len(intermediate.materialized) > 0 {
		t.Fatal("the intermediate bigint result must never materialize")
	}

	// the final result escapes via return, which forces a real bigint
	// box — worth materializing unconditionally, since its type itself
	// carries a bigint attribute.
	final, ok := tracker.Lookup(reg(5))
	if !ok {
		t.Fatal("expected the final add's result to be tracked as a synthetic allocation")
	}
	if len(final.materialized) == 0 {
		t.Fatal("expected the final returned bigint to end up materialized")
	}
}

// scenario 4: a guard against an allocation's statically known type is
// eliminated outright.
func TestGuardOnKnownTypeIsEliminated(t *testing.T) {
	ty := twoIntType()
	fc := &graph.FastCreate{R: reg(1), Type: ty}
	guard := &graph.Guard{Obj: reg(1), Type: ty}
	ret := &graph.Return{Vals: []graph.Reg{reg(1)}}

	g := oneBlockGraph(fc, guard, ret)

	analyzer := NewAnalyzer(g)
	transforms, _ := analyzer.Run(g)

	var sawGuardElided bool
	for _, tr := range transforms {
		if _, ok := tr.(GuardToSet); ok {
			sawGuardElided = true
		}
	}
	if !sawGuardElided {
		t.Fatal("expected the guard to be eliminated via guard-to-set")
	}
}

// scenario 5: divergent attribute writes across two merge predecessors
// force the allocation irreplaceable at the join block, with no rewrites
// applied to either predecessor's instructions.
func TestMergeInconsistencyMarksIrreplaceable(t *testing.T) {
	ty := twoIntType()

	bb0 := &graph.Block{ID: 0}
	bb1 := &graph.Block{ID: 1}
	bb2 := &graph.Block{ID: 2}
	bb3 := &graph.Block{ID: 3}
	bb0.Link(bb1)
	bb0.Link(bb2)
	bb1.Link(bb3)
	bb2.Link(bb3)

	fc := &graph.FastCreate{R: reg(1), Type: ty}
	bb0.Ins = []graph.Node{fc}
	bb1.Ins = []graph.Node{&graph.BindAttr{Obj: reg(1), Index: 0, Val: reg(10)}}
	// bb2 writes nothing — divergent attribute-write history at the join.
	bb3.Ins = []graph.Node{&graph.Return{Vals: []graph.Reg{reg(1)}}}

	g := &graph.Graph{Root: bb0, Blocks: []*graph.Block{bb0, bb1, bb2, bb3}}

	analyzer := NewAnalyzer(g)
	_, tracker := analyzer.Run(g)

	allocs := tracker.All()
	if len(allocs) != 1 {
		t.Fatalf("expected 1 tracked allocation, got %d", len(allocs))
	}
	if !allocs[0].Irreplaceable() {
		t.Fatal("expected the allocation to be ruled irreplaceable by the merge")
	}
}

// scenario 6: any back-edge anywhere in the graph aborts the pass
// entirely — 0 replaceable, graph unmodified.
func TestBackEdgeBailsOut(t *testing.T) {
	ty := twoIntType()

	bb0 := &graph.Block{ID: 0}
	bb1 := &graph.Block{ID: 1}
	bb2 := &graph.Block{ID: 2}
	bb0.Link(bb1)
	bb1.Link(bb2)
	bb2.Link(bb1) // back-edge into bb1

	fc := &graph.FastCreate{R: reg(1), Type: ty}
	bb0.Ins = []graph.Node{fc}
	bb1.Ins = []graph.Node{&graph.GetAttr{R: reg(2), Obj: reg(1), Index: 0}}
	bb2.Ins = []graph.Node{&graph.Return{Vals: []graph.Reg{reg(2)}}}

	g := &graph.Graph{Root: bb0, Blocks: []*graph.Block{bb0, bb1, bb2}}

	analyzer := NewAnalyzer(g)
	transforms, tracker := analyzer.Run(g)

	allocs := tracker.All()
	if len(allocs) != 1 {
		t.Fatalf("expected 1 tracked allocation, got %d", len(allocs))
	}
	if !allocs[0].Irreplaceable() {
		t.Fatal("a back-edge aborts the whole pass, so every allocation ends up irreplaceable")
	}
	if len(transforms) != 0 {
		t.Fatalf("a back-edge must leave no transform planned, got %d", len(transforms))
	}

	if len(analyzer.Bailouts()) == 0 {
		t.Fatal("expected the loop header to be recorded as a bailout")
	}

	stats := NewTransformer(analyzer.materializer, analyzer.deopts, analyzer.NextFreshReg()).Apply(g, transforms)
	if stats.Materialized != 0 || stats.Deleted != 0 {
		t.Fatal("a back-edge bailout must leave the graph completely unmodified")
	}
	if len(bb1.Ins) != 1 {
		t.Fatal("bb1's instructions must be untouched after a back-edge bailout")
	}
}

// a bigint box an earlier pass already planted is re-tracked and, if it
// never escapes, removed along with everything else scalar replacement
// elided — the pre-known unboxed value stands in for any getattr of the
// bigint attribute without ever seeing a bindattr.
func TestBigIntMaterializeOpIsRetrackedAndElided(t *testing.T) {
	biType := &repr.Stable{
		Name:        "BigInt",
		Opaque:      true,
		Attrs:       []repr.Attr{{Kind: repr.KindBigInt}},
		BigIntIndex: 0,
		CacheIndex:  -1,
	}

	mat := &graph.BigIntMaterialize{R: reg(1), Type: biType, UnboxedVal: reg(10)}
	get := &graph.GetAttr{R: reg(2), Obj: reg(1), Index: 0}
	ret := &graph.Return{Vals: []graph.Reg{reg(2)}}

	g := oneBlockGraph(mat, get, ret)

	analyzer := NewAnalyzer(g)
	transforms, tracker := analyzer.Run(g)

	allocs := tracker.All()
	if len(allocs) != 1 {
		t.Fatalf("expected 1 tracked allocation, got %d", len(allocs))
	}

	var sawUnmaterialize, sawGetToSet bool
	for _, tr := range transforms {
		switch v := tr.(type) {
		case UnmaterializeBigInt:
			sawUnmaterialize = true
		case GetAttrToSet:
			sawGetToSet = true
			if v.Src != reg(10) {
				t.Fatalf("expected the getattr to resolve to the pre-known unboxed value, got %v", v.Src)
			}
		}
	}
	if !sawUnmaterialize {
		t.Fatal("expected the bigint-materialize op to plan unmaterialize-bigint")
	}
	if !sawGetToSet {
		t.Fatal("expected the getattr to become a getattr-to-set")
	}

	NewTransformer(analyzer.materializer, analyzer.deopts, analyzer.NextFreshReg()).Apply(g, transforms)
	for _, ins := range g.Root.Ins {
		if _, ok := ins.(*graph.BigIntMaterialize); ok {
			t.Fatal("the original bigint-materialize op must have been removed")
		}
	}
}

func TestConfigDisablesBigIntDecompose(t *testing.T) {
	biType := &repr.Stable{
		Name:        "BigInt",
		Opaque:      true,
		Attrs:       []repr.Attr{{Kind: repr.KindBigInt}},
		BigIntIndex: 0,
		CacheIndex:  -1,
	}
	a := &graph.FastCreate{R: reg(1), Type: biType}
	b := &graph.FastCreate{R: reg(2), Type: biType}
	add := &graph.BigIntBinary{R: reg(3), Op: graph.BigIntAdd, Lhs: reg(1), Rhs: reg(2)}
	ret := &graph.Return{Vals: []graph.Reg{reg(3)}}

	g := oneBlockGraph(a, b, add, ret)

	cfg := &Config{MaxAllocs: 4096, NoBigIntDecompose: true}
	analyzer := NewAnalyzerWithConfig(g, cfg)
	transforms, _ := analyzer.Run(g)

	for _, tr := range transforms {
		if _, ok := tr.(DecomposeBigIntBinary); ok {
			t.Fatal("expected decomposition to be disabled by config")
		}
	}
}
