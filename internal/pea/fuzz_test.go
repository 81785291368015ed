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

	gofakeit "github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"

	"github.com/sixmodel/pea/internal/graph"
	"github.com/sixmodel/pea/internal/repr"
)

// randomOpaqueType builds an opaque type with a random number of int
// attributes and, with some probability, a trailing bigint attribute —
// the same shape gofakeit.Struct randomizes a thrift struct's fields in
// the teacher's fuzz/builder, adapted here to randomize a fastcreate's
// type instead of a wire struct.
func randomOpaqueType() *repr.Stable {
	n := gofakeit.IntRange(1, 4)
	attrs := make([]repr.Attr, 0, n+1)
	for i := 0; i < n; i++ {
		attrs = append(attrs, repr.Attr{Kind: repr.KindInt})
	}

	bigIntIndex := -1
	if gofakeit.Bool() {
		bigIntIndex = len(attrs)
		attrs = append(attrs, repr.Attr{Kind: repr.KindBigInt})
	}

	return &repr.Stable{
		Name:        "Fuzzed",
		Opaque:      true,
		Attrs:       attrs,
		BigIntIndex: bigIntIndex,
		CacheIndex:  -1,
	}
}

// randomGraph builds a single-block graph around one fastcreate: a
// random subset of its attributes get bound, then the allocation either
// escapes (read, call, or return) or doesn't, decided by a coin flip
// each time. Every generated graph is well-formed by construction, so
// the only thing under test is that the pass never panics and never
// reports a result that contradicts its own bookkeeping.
func randomGraph() (*graph.Graph, *repr.Stable) {
	ty := randomOpaqueType()
	obj := graph.Reg{Index: 1}
	next := 2

	ins := []graph.Node{&graph.FastCreate{R: obj, Type: ty}}

	for i := 0; i < ty.AttrCount(); i++ {
		if gofakeit.Bool() {
			val := graph.Reg{Index: next}
			next++
			ins = append(ins, &graph.BindAttr{Obj: obj, Index: i, Val: val})
		}
	}

	if gofakeit.Bool() && ty.AttrCount() > 0 {
		dst := graph.Reg{Index: next}
		next++
		ins = append(ins, &graph.GetAttr{R: dst, Obj: obj, Index: gofakeit.IntRange(0, ty.AttrCount()-1)})
	}

	switch gofakeit.IntRange(0, 2) {
	case 0:
		ins = append(ins, &graph.Call{R: graph.Reg{Index: next}, Callee: "sink", Args: []graph.Reg{obj}})
	case 1:
		ins = append(ins, &graph.Return{Vals: []graph.Reg{obj}})
	}

	bb := &graph.Block{ID: 0, Ins: ins}
	return &graph.Graph{Root: bb, Blocks: []*graph.Block{bb}}, ty
}

func TestFuzzedGraphsNeverPanicAndStayConsistent(t *testing.T) {
	gofakeit.Seed(1)

	for i := 0; i < 200; i++ {
		g, _ := randomGraph()
		obj := graph.Reg{Index: 1}

		analyzer := NewAnalyzer(g)
		transforms, tracker := analyzer.Run(g)

		allocs := tracker.All()
		require.Len(t, allocs, 1, "every fuzzed graph tracks exactly its one fastcreate")

		for _, tr := range transforms {
			if _, ok := tr.(Materialize); ok {
				require.False(t, allocs[0].Irreplaceable(), "an irreplaceable allocation must never plan a materialize")
			}
		}

		stats := NewTransformer(analyzer.materializer, analyzer.deopts, analyzer.NextFreshReg()).Apply(g, transforms)
		require.GreaterOrEqual(t, stats.Deleted, 0)
		require.GreaterOrEqual(t, stats.Materialized, 0)

		survivingFastCreates := 0
		for _, ins := range g.Root.Ins {
			if fc, ok := ins.(*graph.FastCreate); ok && fc.R == obj {
				survivingFastCreates++
			}
		}
		require.LessOrEqual(t, survivingFastCreates, 1, "the allocation's register must never end up constructed twice")
	}
}
