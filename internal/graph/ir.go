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
	"fmt"
	"strings"

	"github.com/sixmodel/pea/internal/repr"
)

// Node is any instruction the analyzer walks. Every concrete instruction
// kind implements it; Usages and Definitions let generic code (the
// analyzer's fallthrough handler, MaxRegIndex, the materializer's
// insertion-point scan) inspect an instruction without a type switch on
// every call site, mirroring the teacher's own
// IrUsages/IrDefinations split.
type Node interface {
	fmt.Stringer
	irnode()
}

type Usages interface {
	Node
	Usages() []*Reg
}

type Definitions interface {
	Node
	Definitions() []*Reg
}

func (*FastCreate) irnode()   {}
func (*BigIntMaterialize) irnode() {}
func (*GetAttr) irnode()      {}
func (*BindAttr) irnode()     {}
func (*Guard) irnode()        {}
func (*BigIntBinary) irnode() {}
func (*BigIntUnary) irnode()  {}
func (*BigIntRel) irnode()    {}
func (*Call) irnode()         {}
func (*Return) irnode()       {}
func (*Phi) irnode()          {}
func (*Copy) irnode()         {}

// Copy aliases R to Val — the instruction getattr-to-set and
// bindattr-to-set rewrite into once an allocation's attribute access no
// longer touches a real object. A later copy-elimination pass outside
// this package's scope is free to fold it away entirely; the pass itself
// never needs to, since it never re-reads Copy's own output.
type Copy struct {
	R   Reg
	Val Reg
}

func (self *Copy) String() string {
	return fmt.Sprintf("%s = %s", self.R, self.Val)
}

func (self *Copy) Usages() []*Reg {
	return []*Reg{&self.Val}
}

func (self *Copy) Definitions() []*Reg {
	return []*Reg{&self.R}
}

// FastCreate allocates a fresh instance of a handled opaque type. It is
// the one instruction kind the allocation tracker's try_track accepts as
// a tracking candidate (§4.1).
type FastCreate struct {
	R     Reg
	Type  *repr.Stable
	Deopt int // synthetic deopt index this allocation is attributed to
}

func (self *FastCreate) String() string {
	return fmt.Sprintf("%s = fastcreate %s", self.R, self.Type.Name)
}

func (self *FastCreate) Definitions() []*Reg {
	return []*Reg{&self.R}
}

// BigIntMaterialize is a bigint box construction already planted by an
// earlier pass, with the unboxed value it would hold carried alongside
// in UnboxedVal rather than computed from scratch. This pass re-tracks
// it the same way it tracks a fastcreate, except the big-integer
// attribute's initial value is already known instead of unwritten.
type BigIntMaterialize struct {
	R          Reg
	Type       *repr.Stable
	UnboxedVal Reg
	Deopt      int
}

func (self *BigIntMaterialize) String() string {
	return fmt.Sprintf("%s = bigint.materialize %s <- %s", self.R, self.Type.Name, self.UnboxedVal)
}

func (self *BigIntMaterialize) Usages() []*Reg {
	return []*Reg{&self.UnboxedVal}
}

func (self *BigIntMaterialize) Definitions() []*Reg {
	return []*Reg{&self.R}
}

// GetAttr reads attribute Index of Obj into R. Vivify marks a read that
// must conjure a value when the attribute was never written instead of
// falling back to the attribute's plain zero value — an auto-vivifying
// read, per the opcode that produced it.
type GetAttr struct {
	R      Reg
	Obj    Reg
	Index  int
	Vivify VivifyKind
}

func (self *GetAttr) String() string {
	return fmt.Sprintf("%s = getattr %s[%d]", self.R, self.Obj, self.Index)
}

func (self *GetAttr) Usages() []*Reg {
	return []*Reg{&self.Obj}
}

func (self *GetAttr) Definitions() []*Reg {
	return []*Reg{&self.R}
}

// BindAttr writes Val into attribute Index of Obj. It has no destination
// register of its own.
type BindAttr struct {
	Obj   Reg
	Index int
	Val   Reg
}

func (self *BindAttr) String() string {
	return fmt.Sprintf("bindattr %s[%d] = %s", self.Obj, self.Index, self.Val)
}

func (self *BindAttr) Usages() []*Reg {
	return []*Reg{&self.Obj, &self.Val}
}

// Guard asserts that Obj currently has Type, and otherwise triggers a
// deoptimization back to the interpreter at Deopt. The analyzer turns a
// guard against a replaced allocation's known, never-reassigned type into
// a no-op (guard-to-set, with no fallback needed).
type Guard struct {
	Obj   Reg
	Type  *repr.Stable
	Deopt int
}

func (self *Guard) String() string {
	return fmt.Sprintf("guard %s is %s else deopt(%d)", self.Obj, self.Type.Name, self.Deopt)
}

func (self *Guard) Usages() []*Reg {
	return []*Reg{&self.Obj}
}

// BigIntOp names the individual operation inside a decomposition family.
type BigIntOp uint8

const (
	BigIntAdd BigIntOp = iota
	BigIntSub
	BigIntMul
	BigIntGcd
	BigIntNeg
	BigIntAbs
	BigIntCmp
	BigIntEq
	BigIntNe
	BigIntLt
	BigIntLe
	BigIntGt
	BigIntGe
)

func (self BigIntOp) String() string {
	names := [...]string{"add", "sub", "mul", "gcd", "neg", "abs", "cmp", "eq", "ne", "lt", "le", "gt", "ge"}
	if int(self) < len(names) {
		return names[self]
	}
	return "unknown"
}

// BigIntBinary is the producing-binary family: add, sub, mul, gcd. R
// receives a newly allocated bigint box.
type BigIntBinary struct {
	R     Reg
	Op    BigIntOp
	Lhs   Reg
	Rhs   Reg
	Deopt int
}

func (self *BigIntBinary) String() string {
	return fmt.Sprintf("%s = bigint.%s %s, %s", self.R, self.Op, self.Lhs, self.Rhs)
}

func (self *BigIntBinary) Usages() []*Reg {
	return []*Reg{&self.Lhs, &self.Rhs}
}

func (self *BigIntBinary) Definitions() []*Reg {
	return []*Reg{&self.R}
}

// BigIntUnary is the producing-unary family: neg, abs.
type BigIntUnary struct {
	R     Reg
	Op    BigIntOp
	Val   Reg
	Deopt int
}

func (self *BigIntUnary) String() string {
	return fmt.Sprintf("%s = bigint.%s %s", self.R, self.Op, self.Val)
}

func (self *BigIntUnary) Usages() []*Reg {
	return []*Reg{&self.Val}
}

func (self *BigIntUnary) Definitions() []*Reg {
	return []*Reg{&self.R}
}

// BigIntRel is the relational family: cmp, eq, ne, lt, le, gt, ge. It
// produces a machine integer, never a box, so it is never itself a
// tracked allocation — but its operands may be.
type BigIntRel struct {
	R   Reg
	Op  BigIntOp
	Lhs Reg
	Rhs Reg
}

func (self *BigIntRel) String() string {
	return fmt.Sprintf("%s = bigint.%s %s, %s", self.R, self.Op, self.Lhs, self.Rhs)
}

func (self *BigIntRel) Usages() []*Reg {
	return []*Reg{&self.Lhs, &self.Rhs}
}

func (self *BigIntRel) Definitions() []*Reg {
	return []*Reg{&self.R}
}

// Call is an opaque call to code the analyzer cannot see into. Any
// allocation passed as an argument or captured by a call is forced real
// (real_object_required), since the callee might stash it somewhere that
// outlives the current frame.
type Call struct {
	R      Reg
	Callee string
	Args   []Reg
	Deopt  int
}

func (self *Call) String() string {
	args := make([]string, len(self.Args))
	for i, a := range self.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s = call %s(%s)", self.R, self.Callee, strings.Join(args, ", "))
}

func (self *Call) Usages() []*Reg {
	return regrefs(self.Args)
}

func (self *Call) Definitions() []*Reg {
	return []*Reg{&self.R}
}

// Return forces every returned register real, since the caller's frame
// cannot see a hypothetical register.
type Return struct {
	Vals []Reg
}

func (self *Return) String() string {
	vals := make([]string, len(self.Vals))
	for i, v := range self.Vals {
		vals[i] = v.String()
	}
	return fmt.Sprintf("return %s", strings.Join(vals, ", "))
}

func (self *Return) Usages() []*Reg {
	return regrefs(self.Vals)
}

// Phi merges one value per predecessor block at a join point. A
// replaced allocation reaching a Phi from every incoming edge can stay
// hypothetical through the merge (§4.3); one concrete incoming value
// forces the merge result real.
type Phi struct {
	R Reg
	V map[*Block]*Reg
}

func (self *Phi) String() string {
	parts := make([]string, 0, len(self.V))
	for bb, r := range self.V {
		parts = append(parts, fmt.Sprintf("bb_%d: %s", bb.ID, *r))
	}
	return fmt.Sprintf("%s = phi(%s)", self.R, strings.Join(parts, ", "))
}

func (self *Phi) Usages() []*Reg {
	r := make([]*Reg, 0, len(self.V))
	for _, v := range self.V {
		r = append(r, v)
	}
	return r
}

func (self *Phi) Definitions() []*Reg {
	return []*Reg{&self.R}
}

func regrefs(rs []Reg) []*Reg {
	ret := make([]*Reg, len(rs))
	for i := range rs {
		ret[i] = &rs[i]
	}
	return ret
}
