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
	"github.com/davecgh/go-spew/spew"

	"github.com/sixmodel/pea/internal/graph"
	"github.com/sixmodel/pea/internal/peaopts"
)

// Pass is the shape every stage of this package's pipeline implements.
// A Pass's Run both analyzes the graph and applies the resulting plan;
// a caller that wants only the plan uses an Analyzer directly.
type Pass interface {
	Run(g *graph.Graph, cfg *Config) (Stats, error)
}

type scalarReplacementPass struct{}

// Passes lists every pipeline stage this package runs, in order. There
// is exactly one today; the slice exists so a caller can Apply a subset,
// and so a future stage (e.g. a dedicated bigint-only pass for callers
// that want decomposition without scalar replacement) has somewhere to
// slot in without changing every call site.
var Passes = []struct {
	Name string
	Pass Pass
}{
	{Name: "Partial Escape Analysis", Pass: scalarReplacementPass{}},
}

// Run executes the full pipeline: analyze the graph once, building the
// Transformation list, then apply it in a single rewrite pass.
func (scalarReplacementPass) Run(g *graph.Graph, cfg *Config) (Stats, error) {
	analyzer := NewAnalyzerWithConfig(g, cfg)
	transforms, tracker := analyzer.Run(g)

	if peaopts.TraceAllocID != 0 {
		for _, a := range tracker.All() {
			if a.ID == peaopts.TraceAllocID {
				spew.Dump(a)
			}
		}
		for _, b := range analyzer.Bailouts() {
			if b.AllocID == peaopts.TraceAllocID {
				spew.Dump(b)
				spew.Dump(graph.Loops(g))
			}
		}
	}

	transformer := NewTransformer(analyzer.materializer, analyzer.deopts, analyzer.NextFreshReg())
	stats := transformer.Apply(g, transforms)
	return stats, nil
}

// Compile runs every registered pass over g in order, using cfg (or the
// environment-variable defaults if cfg is nil), and returns the combined
// stats — mirroring the way the teacher's own SSA pipeline chains
// independent passes over one CFG.
func Compile(g *graph.Graph, cfg *Config) (Stats, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var total Stats

	for _, p := range Passes {
		stats, err := p.Pass.Run(g, cfg)
		if err != nil {
			return total, err
		}
		total.Deleted += stats.Deleted
		total.GuardsElided += stats.GuardsElided
		total.BindsElided += stats.BindsElided
		total.GetsRewritten += stats.GetsRewritten
		total.Materialized += stats.Materialized
		total.BigIntDecomposed += stats.BigIntDecomposed
		total.Unboxed += stats.Unboxed
		total.BigIntLoaded += stats.BigIntLoaded
		total.SetsDeleted += stats.SetsDeleted
	}

	return total, nil
}
