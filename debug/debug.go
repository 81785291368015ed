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

package debug

import "sync/atomic"

// A Stats records cumulative statistics about every run of the pass this
// process has performed, for an embedder to surface on a diagnostics
// endpoint the way the teacher's own debug.GetStats does for its JIT
// cache counters.
type Stats struct {
	Runs             int64
	Deleted          int64
	GuardsElided     int64
	BindsElided      int64
	GetsRewritten    int64
	Materialized     int64
	BigIntDecomposed int64
	Unboxed          int64
}

var (
	runs             int64
	deleted          int64
	guardsElided     int64
	bindsElided      int64
	getsRewritten    int64
	materialized     int64
	bigIntDecomposed int64
	unboxed          int64
)

// Record folds one pass run's outcome into the process-wide counters.
// The public pea.Compile entry point calls this after every run so
// GetStats always reflects cumulative totals, not just the last call.
func Record(deletedN, guardsN, bindsN, getsN, materializedN, bigintN, unboxedN int) {
	atomic.AddInt64(&runs, 1)
	atomic.AddInt64(&deleted, int64(deletedN))
	atomic.AddInt64(&guardsElided, int64(guardsN))
	atomic.AddInt64(&bindsElided, int64(bindsN))
	atomic.AddInt64(&getsRewritten, int64(getsN))
	atomic.AddInt64(&materialized, int64(materializedN))
	atomic.AddInt64(&bigIntDecomposed, int64(bigintN))
	atomic.AddInt64(&unboxed, int64(unboxedN))
}

// GetStats returns a snapshot of every counter recorded so far.
func GetStats() Stats {
	return Stats{
		Runs:             atomic.LoadInt64(&runs),
		Deleted:          atomic.LoadInt64(&deleted),
		GuardsElided:     atomic.LoadInt64(&guardsElided),
		BindsElided:      atomic.LoadInt64(&bindsElided),
		GetsRewritten:    atomic.LoadInt64(&getsRewritten),
		Materialized:     atomic.LoadInt64(&materialized),
		BigIntDecomposed: atomic.LoadInt64(&bigIntDecomposed),
		Unboxed:          atomic.LoadInt64(&unboxed),
	}
}
