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
	"fmt"

	internalpea "github.com/sixmodel/pea/internal/pea"
)

// Option configures a single Compile call. Most callers never need one —
// the defaults match what the environment-variable knobs in peaopts
// already set process-wide.
type Option func(*internalpea.Config)

// WithMaxAllocs overrides, for one Compile call, how many allocation
// sites the tracker will follow before refusing to track any more.
//
// The default is controlled by the PEA_MAX_ALLOCS environment variable.
func WithMaxAllocs(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("pea: invalid max allocs: %d", n))
	}
	return func(c *internalpea.Config) { c.MaxAllocs = n }
}

// WithoutBigIntDecompose disables the big-integer decomposition family
// for one Compile call, leaving attribute scalar replacement active.
func WithoutBigIntDecompose() Option {
	return func(c *internalpea.Config) { c.NoBigIntDecompose = true }
}
