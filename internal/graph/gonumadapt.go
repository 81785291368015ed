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

package graph

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// mirror builds a gonum directed graph over g's blocks, node IDs taken
// straight from Block.ID. This package otherwise relies on the
// approximate reverse-postorder-index tests in block.go and
// reachability.go; the handful of places that want an exact answer
// borrow gonum's graph-theoretic algorithms against this mirror instead
// of hand-rolling them a second time.
func mirror(g *Graph) *simple.DirectedGraph {
	dg := simple.NewDirectedGraph()
	for _, bb := range g.Blocks {
		dg.AddNode(simple.Node(bb.ID))
	}
	for _, bb := range g.Blocks {
		for _, s := range bb.Succ {
			dg.SetEdge(simple.Edge{F: simple.Node(bb.ID), T: simple.Node(s.ID)})
		}
	}
	return dg
}

// Loops returns the block IDs participating in each nontrivial strongly
// connected component of g — the exact set of blocks on some cycle,
// computed with Tarjan's algorithm rather than approximated from the
// reverse-postorder back-edge test IsLoopHeader actually bails out on.
// Analyzer tracing uses this to cross-check that every bailout it logged
// for "predecessor not yet visited" actually corresponds to a real loop,
// not just an unusual but acyclic walk order.
func Loops(g *Graph) [][]int {
	sccs := topo.TarjanSCC(mirror(g))

	var loops [][]int
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		ids := make([]int, len(scc))
		for i, n := range scc {
			ids[i] = int(n.ID())
		}
		loops = append(loops, ids)
	}
	return loops
}
