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

// Package graph is the input side of the pass: a minimal SSA control-flow
// graph that stands in for the specializer's own IR. It carries exactly
// the shapes the pass needs to read (registers, basic blocks, a handful
// of instruction kinds) and nothing about the VM's bytecode or the JIT
// backend that eventually consumes the transformed graph.
package graph

import "fmt"

// Reg is an SSA register name. Unlike the bit-packed register the
// specializer's own compiler uses internally, the pass only ever needs
// equality and a stable identity, so Reg stays a plain integer plus a
// version counter — bumped every time SSA renaming introduces a new
// definition of the same source-level local.
type Reg struct {
	Index   int
	Version int
}

// Zero is the well-known "no value" register, used where an instruction
// has no destination (e.g. a bare store).
var Zero = Reg{Index: -1}

func (self Reg) IsZero() bool {
	return self.Index < 0
}

func (self Reg) String() string {
	if self.IsZero() {
		return "$zero"
	}
	if self.Version == 0 {
		return fmt.Sprintf("%%r%d", self.Index)
	}
	return fmt.Sprintf("%%r%d.%d", self.Index, self.Version)
}

// HypReg is a hypothetical register: a placeholder for one attribute of
// an allocation that might be scalar-replaced — one per attribute, not
// one per allocation, since each attribute holds an independent value
// (§3). It is never a real SSA value: the pass uses it only as a key for
// shadow facts about an attribute. The concrete register an attribute
// ends up in is resolved separately, from the allocation's bound slots,
// when the transformer applies a materialization.
type HypReg struct {
	AllocID int
	Attr    int
}

func (self HypReg) String() string {
	return fmt.Sprintf("%%hyp%d.%d", self.AllocID, self.Attr)
}

// VivifyKind distinguishes the two ways an auto-vivifying attribute read
// can conjure a value for an attribute nothing has written yet: a
// type-object stand-in, or a clone of a concrete prototype. NoVivify
// marks an ordinary read that should fall back to the attribute's zero
// value instead, exactly like a plain unwritten read.
type VivifyKind uint8

const (
	NoVivify VivifyKind = iota
	VivifyKindType
	VivifyKindConcrete
)

func (self VivifyKind) String() string {
	switch self {
	case VivifyKindType:
		return "vivify-type"
	case VivifyKindConcrete:
		return "vivify-concrete"
	default:
		return "none"
	}
}
