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

// Package pea implements a partial escape analysis and scalar
// replacement optimization over a traced control-flow graph: allocation
// sites that never escape their trace are deleted and their attributes
// turned into ordinary registers, guards on a known type are elided, and
// big integers that never escape are decomposed into native arithmetic.
package pea

import (
	"github.com/sixmodel/pea/debug"
	"github.com/sixmodel/pea/internal/graph"
	internalpea "github.com/sixmodel/pea/internal/pea"
)

// Stats summarizes what one Compile call rewrote.
type Stats = internalpea.Stats

// Compile runs scalar replacement over g, rewriting it in place, and
// returns a tally of what changed. The zero value of Option changes
// nothing; pass WithMaxAllocs or WithoutBigIntDecompose to override a
// single call's tunables without touching the process-wide
// environment-variable defaults in internal/peaopts.
func Compile(g *graph.Graph, opts ...Option) (Stats, error) {
	cfg := internalpea.DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	stats, err := internalpea.Compile(g, cfg)
	if err != nil {
		return stats, err
	}

	debug.Record(stats.Deleted, stats.GuardsElided, stats.BindsElided, stats.GetsRewritten,
		stats.Materialized, stats.BigIntDecomposed, stats.Unboxed)

	return stats, nil
}
