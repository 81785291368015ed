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

import "testing"

// diamond builds bb0 -> {bb1, bb2} -> bb3, the shape the materialization
// planner's branch test and the merge engine both need to handle.
func diamond() *Graph {
	bb0 := &Block{ID: 0}
	bb1 := &Block{ID: 1}
	bb2 := &Block{ID: 2}
	bb3 := &Block{ID: 3}

	bb0.Link(bb1)
	bb0.Link(bb2)
	bb1.Link(bb3)
	bb2.Link(bb3)

	return &Graph{Root: bb0, Blocks: []*Block{bb0, bb1, bb2, bb3}}
}

func TestReversePostOrderVisitsRootFirst(t *testing.T) {
	g := diamond()
	rpo := g.ReversePostOrder()

	if len(rpo) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(rpo))
	}
	if rpo[0].ID != 0 {
		t.Fatalf("expected root first, got bb_%d", rpo[0].ID)
	}
	if rpo[len(rpo)-1].ID != 3 {
		t.Fatalf("expected join block last, got bb_%d", rpo[len(rpo)-1].ID)
	}
}

func TestIsLoopHeaderDetectsBackEdge(t *testing.T) {
	g := diamond()
	// turn bb3 -> bb1 into a back edge, making bb1 a loop header.
	bb1, bb3 := g.Blocks[1], g.Blocks[3]
	bb3.Link(bb1)

	order := g.Order()
	if !bb1.IsLoopHeader(order) {
		t.Fatal("expected bb1 to be detected as a loop header")
	}
	if g.Blocks[0].IsLoopHeader(order) {
		t.Fatal("root must never be a loop header in this graph")
	}
}

func TestReachability(t *testing.T) {
	g := diamond()
	r := BuildReachability(g)

	bb0, bb1, bb2, bb3 := g.Blocks[0], g.Blocks[1], g.Blocks[2], g.Blocks[3]

	if !r.Reaches(bb0, bb3) {
		t.Fatal("bb0 must reach bb3")
	}
	if r.Reaches(bb1, bb2) {
		t.Fatal("bb1 must not reach bb2 in a diamond")
	}
	if !r.Reaches(bb3, bb3) {
		t.Fatal("a block must reach itself")
	}
}
