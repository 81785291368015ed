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

import "fmt"

// BailoutError is a diagnostic record, collected by the analyzer (see
// Analyzer.Bailouts) rather than returned, for an allocation live into a
// loop header when a back-edge makes the pass give up on the whole graph.
// After such a bailout the graph is left exactly as it was received.
type BailoutError struct {
	Reason string
	AllocID int
}

func (self BailoutError) Error() string {
	if self.AllocID != 0 {
		return fmt.Sprintf("pea: bailout on alloc %d: %s", self.AllocID, self.Reason)
	}
	return fmt.Sprintf("pea: bailout: %s", self.Reason)
}

// invariant panics to flag a design violation — a bug in the pass itself,
// never a property of the input graph. Every panic site in this package
// is paired with a comment naming the invariant it enforces, per the
// design's split between graceful bailouts and panics.
func invariant(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("pea: invariant violated: "+format, args...))
	}
}
