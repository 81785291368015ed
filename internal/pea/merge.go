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
	"golang.org/x/exp/maps"

	"github.com/sixmodel/pea/internal/graph"
)

// MergeEngine reconciles the per-predecessor BlockStates flowing into a
// join block into the one state the analyzer continues walking from.
// There is no fixed-point iteration: a block whose predecessors include
// a back-edge is handed to the analyzer as a bailout before the merge
// engine ever runs (§4.3 Non-goals), so every merge here sees a DAG of
// already-finished predecessor states.
type MergeEngine struct {
	tracker *Tracker
	deps    map[int][]int
}

func NewMergeEngine(tracker *Tracker, deps map[int][]int) *MergeEngine {
	return &MergeEngine{tracker: tracker, deps: deps}
}

// Merge combines preds — one finished BlockState per predecessor of bb —
// into a fresh BlockState for bb. Step numbering matches §4.3's five-step
// description; each tracked allocation that appears, hypothetically or
// materialized, on at least one predecessor is reconciled independently.
func (self *MergeEngine) Merge(bb *graph.Block, preds []*BlockState) *BlockState {
	out := NewBlockState(bb)

	if len(preds) == 0 {
		return out
	}

	ids := map[int]struct{}{}
	for _, p := range preds {
		for _, id := range maps.Keys(p.seen) {
			ids[id] = struct{}{}
		}
		for _, id := range maps.Keys(p.materializations) {
			ids[id] = struct{}{}
		}
	}

	for id := range ids {
		alloc := self.tracker.byID(id)
		if alloc == nil || alloc.Irreplaceable() {
			continue
		}

		// step 1: P = predecessors that have seen[i] true.
		var p []*BlockState
		for _, pred := range preds {
			if _, ok := pred.seen[id]; ok {
				p = append(p, pred)
			}
		}

		materializedCount := 0
		for _, pred := range preds {
			if _, ok := pred.materializations[id]; ok {
				materializedCount++
			}
		}

		// step 4: any predecessor materialized it and not all did — an
		// inconsistent merge, since there is no single register naming
		// "the object" on every path without the merge engine inserting
		// a compensating materialization, which it does not do.
		if materializedCount > 0 && materializedCount != len(preds) {
			self.tracker.MarkIrreplaceable(alloc, self.deps)
			continue
		}
		if materializedCount == len(preds) {
			out.materializations[id] = struct{}{}
			continue
		}

		// every predecessor that didn't materialize it must still have
		// seen it hypothetically, or the paths disagree about whether
		// the allocation exists at all on this path — not reconcilable.
		if len(p) != len(preds) {
			self.tracker.MarkIrreplaceable(alloc, self.deps)
			continue
		}

		// step 2/3: accumulate a per-attribute writer count across P; a
		// count of zero means unwritten, a count of len(P) means written
		// on every path, anything in between is an inconsistent write
		// that forces the allocation irreplaceable.
		counts := map[int]int{}
		for _, pred := range p {
			for idx := range pred.used[id] {
				counts[idx]++
			}
		}

		// counts only ever holds attributes written on at least one path
		// in P, so a count of zero (unwritten on every path) never
		// appears here at all and needs no entry in used.
		inconsistent := false
		used := map[int]struct{}{}
		for idx, count := range counts {
			if count == len(p) {
				used[idx] = struct{}{}
			} else {
				inconsistent = true
			}
		}
		if inconsistent {
			self.tracker.MarkIrreplaceable(alloc, self.deps)
			continue
		}

		// step 5: adopt the merged used bitmap and mark seen.
		out.seen[id] = struct{}{}
		if len(used) > 0 {
			out.used[id] = used
		}
	}

	return out
}
