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

import "github.com/sixmodel/pea/internal/peaopts"

// Config is the resolved set of tunables one Compile call runs with. The
// top-level package's functional Options mutate a Config; everything in
// this package reads from one instead of reaching for the peaopts
// environment-backed globals directly, so a single process can run
// Compile with different settings on different graphs concurrently.
type Config struct {
	MaxAllocs         int
	NoBigIntDecompose bool
}

// DefaultConfig returns the Config that matches the peaopts
// environment-variable defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxAllocs:         peaopts.MaxAllocsPerGraph,
		NoBigIntDecompose: peaopts.DisableBigIntDecompose,
	}
}
