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

import "math"

// Reachability is an all-pairs block reachability matrix, used by the
// materialization planner's approximate "in branch of allocator" test as
// a precondition: a usage block the allocating block cannot reach is
// never treated as in branch.
type Reachability struct {
	dist [][]uint64
	ids  map[int]int
}

// BuildReachability computes all-pairs reachability via Floyd-Warshall,
// the same algorithm the teacher's ssa.ReachabilityMatrix uses — cheap
// enough to run once per graph and good enough to answer "i reaches j"
// without actually tracing a path.
func BuildReachability(g *Graph) *Reachability {
	blocks := g.ReversePostOrder()
	ids := make(map[int]int, len(blocks))
	for i, bb := range blocks {
		ids[bb.ID] = i
	}

	n := len(blocks)
	dist := make([][]uint64, n)
	for i := range dist {
		dist[i] = make([]uint64, n)
		for j := range dist[i] {
			dist[i][j] = math.MaxUint32
		}
	}

	for i, bb := range blocks {
		dist[i][i] = 0
		for _, s := range bb.Succ {
			j, ok := ids[s.ID]
			if ok {
				dist[i][j] = 1
			}
		}
	}

	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if dist[i][k] == math.MaxUint32 {
				continue
			}
			for j := 0; j < n; j++ {
				if d := dist[i][k] + dist[k][j]; d < dist[i][j] {
					dist[i][j] = d
				}
			}
		}
	}

	return &Reachability{dist: dist, ids: ids}
}

// Reaches reports whether from can reach to by any path, including the
// trivial from == to path.
func (self *Reachability) Reaches(from, to *Block) bool {
	i, ok1 := self.ids[from.ID]
	j, ok2 := self.ids[to.ID]
	if !ok1 || !ok2 {
		return false
	}
	return self.dist[i][j] != math.MaxUint32
}
