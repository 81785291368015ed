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

// Package peaopts collects the environment-controlled knobs that tune the
// pass without going through its functional-option API — mirroring the
// teacher's own internal/opts package, which lets operators flip internal
// behavior for a running process without recompiling.
package peaopts

import (
	"os"
	"strconv"
)

// MaxAllocsPerGraph bounds how many allocation records the tracker keeps
// per input graph before it stops tracking new ones outright. Set
// PEA_MAX_ALLOCS to override; zero or a negative value disables the bound.
var MaxAllocsPerGraph = parseIntOrDefault("PEA_MAX_ALLOCS", 4096)

// DisableBigIntDecompose turns off the big-integer decomposition family
// entirely, leaving scalar replacement of non-bigint attributes active.
// Useful for isolating regressions to one half of the pass.
var DisableBigIntDecompose = parseBoolOrDefault("PEA_NO_BIGINT_DECOMPOSE", false)

// TraceAllocID, when non-zero, makes the pass dump (with spew) the
// allocation with this ID and any bailouts recorded for it. Zero turns
// this trace output off.
var TraceAllocID = parseIntOrDefault("PEA_TRACE_ALLOC", 0)

func parseIntOrDefault(name string, def int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseBoolOrDefault(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
