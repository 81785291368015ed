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

	"github.com/sixmodel/pea/internal/graph"
)

// Transformation is a planned edit to the input graph. The set of
// concrete kinds is closed, so this is a tagged union implemented as a
// sum-type interface with a type switch in apply.go — not dynamic
// dispatch through a per-kind Apply method — to keep every transform's
// application logic next to the others it interacts with instead of
// scattered one method per file.
type Transformation interface {
	fmt.Stringer
	transformation()
}

func (DeleteFastCreate) transformation()      {}
func (GetAttrToSet) transformation()          {}
func (BindAttrToSet) transformation()         {}
func (DeleteSet) transformation()             {}
func (GuardToSet) transformation()            {}
func (AddDeoptPoint) transformation()         {}
func (AddDeoptUsage) transformation()         {}
func (ProfAllocated) transformation()         {}
func (DecomposeBigIntBinary) transformation() {}
func (DecomposeBigIntUnary) transformation()  {}
func (DecomposeBigIntRelational) transformation() {}
func (UnboxBigInt) transformation()           {}
func (Materialize) transformation()           {}
func (VivifyType) transformation()            {}
func (VivifyConcrete) transformation()        {}
func (UnmaterializeBigInt) transformation()   {}
func (LoadBigInt) transformation()            {}

// DeleteFastCreate removes the original fastcreate of an allocation that
// stayed replaceable for the whole pass — whether it stayed purely
// hypothetical or was materialized somewhere, in which case the
// materialization builds a new fastcreate at its own insertion point.
type DeleteFastCreate struct {
	Alloc *Allocation
	Site  *graph.FastCreate
}

func (self DeleteFastCreate) String() string {
	return fmt.Sprintf("delete-fastcreate(alloc=%d)", self.Alloc.ID)
}

// GetAttrToSet rewrites a getattr of a replaced allocation's attribute
// into a plain register read from the scalar that stands in for it. Alias
// names the allocation Src itself traces to, if the attribute is a
// captured reference rather than a plain scalar — collapseAliasedSets
// consults it without having to re-derive the capture relationship.
type GetAttrToSet struct {
	Alloc *Allocation
	Index int
	Dst   graph.Reg
	Src   graph.Reg
	Alias *Allocation
	Site  *graph.GetAttr
}

func (self GetAttrToSet) String() string {
	return fmt.Sprintf("getattr-to-set(alloc=%d, idx=%d)", self.Alloc.ID, self.Index)
}

// BindAttrToSet rewrites a bindattr into a set of a local scalar. Alias
// names the allocation Val traces to, if any — see GetAttrToSet.Alias.
type BindAttrToSet struct {
	Alloc *Allocation
	Index int
	Dst   graph.Reg
	Val   graph.Reg
	Alias *Allocation
	Site  *graph.BindAttr
}

func (self BindAttrToSet) String() string {
	return fmt.Sprintf("bindattr-to-set(alloc=%d, idx=%d)", self.Alloc.ID, self.Index)
}

// DeleteSet removes an instruction outright instead of rewriting it into
// a set or a copy — either a getattr of a captured reference attribute
// that resolves to a pure alias and never needs a real register of its
// own (handleGetAttr), or a bindattr/getattr
// collapseAliasedSets proved can be dropped together because both the
// allocation and the one its attribute aliases are replaceable and never
// materialized anywhere in the graph (§4.6).
type DeleteSet struct {
	Alloc *Allocation
	Index int
	Site  graph.Node
}

func (self DeleteSet) String() string {
	return fmt.Sprintf("delete-set(alloc=%d, idx=%d)", self.Alloc.ID, self.Index)
}

// GuardToSet collapses a type guard against a replaced allocation's
// statically known type into nothing — the guard can never fail because
// the allocation's type never changes after fastcreate.
type GuardToSet struct {
	Alloc *Allocation
	Site  *graph.Guard
}

func (self GuardToSet) String() string {
	return fmt.Sprintf("guard-to-set(alloc=%d)", self.Alloc.ID)
}

// AddDeoptPoint records a new synthetic deopt index for an allocation
// that, prior to replacement, had no deopt point of its own to hang
// materialization bookkeeping off of.
type AddDeoptPoint struct {
	Alloc *Allocation
	Index int
}

func (self AddDeoptPoint) String() string {
	return fmt.Sprintf("add-deopt-point(alloc=%d, idx=%d)", self.Alloc.ID, self.Index)
}

// AddDeoptUsage records that, should execution deoptimize past this
// point, the interpreter needs to know this allocation must already be
// materialized by then.
type AddDeoptUsage struct {
	Alloc    *Allocation
	DeoptIdx int
}

func (self AddDeoptUsage) String() string {
	return fmt.Sprintf("add-deopt-usage(alloc=%d, deopt=%d)", self.Alloc.ID, self.DeoptIdx)
}

// ProfAllocated marks that the allocation was materialized, naming its
// type. It is a plan-level record only: Apply makes no graph edit for it,
// and no profiling sample is moved or rewritten.
type ProfAllocated struct {
	Alloc *Allocation
	Type  string
}

func (self ProfAllocated) String() string {
	return fmt.Sprintf("prof-allocated(alloc=%d)", self.Alloc.ID)
}

// DecomposeBigIntBinary replaces a producing-binary bigint op (add, sub,
// mul, gcd) operating on scalar-replaced operands with the equivalent
// unboxed arithmetic, deferring the actual box allocation until (and
// unless) the result is itself materialized.
type DecomposeBigIntBinary struct {
	Op  graph.BigIntOp
	Lhs graph.Reg
	Rhs graph.Reg
	Dst graph.Reg
	Site *graph.BigIntBinary
}

func (self DecomposeBigIntBinary) String() string {
	return fmt.Sprintf("decompose-bigint-binary(%s)", self.Op)
}

// DecomposeBigIntUnary replaces a producing-unary bigint op (neg, abs).
type DecomposeBigIntUnary struct {
	Op  graph.BigIntOp
	Val graph.Reg
	Dst graph.Reg
	Site *graph.BigIntUnary
}

func (self DecomposeBigIntUnary) String() string {
	return fmt.Sprintf("decompose-bigint-unary(%s)", self.Op)
}

// DecomposeBigIntRelational replaces a relational bigint op (cmp, eq, ne,
// lt, le, gt, ge); relational ops never themselves produce a box.
type DecomposeBigIntRelational struct {
	Op  graph.BigIntOp
	Lhs graph.Reg
	Rhs graph.Reg
	Dst graph.Reg
	Site *graph.BigIntRel
}

func (self DecomposeBigIntRelational) String() string {
	return fmt.Sprintf("decompose-bigint-relational(%s)", self.Op)
}

// UnboxBigInt replaces a getattr of a bigint attribute with a direct read
// of the unboxed value the decomposition carried along instead.
type UnboxBigInt struct {
	Alloc *Allocation
	Dst   graph.Reg
	Src   graph.Reg
	Site  *graph.GetAttr
}

func (self UnboxBigInt) String() string {
	return fmt.Sprintf("unbox-bigint(alloc=%d)", self.Alloc.ID)
}

// Materialize emits the real allocation plus every bindattr needed to
// reconstruct its state at the point scalar replacement gave up on it
// (see RealObjectRequired for the reasons: call argument, return value,
// unprovable guard, disagreeing phi, and the like).
type Materialize struct {
	Alloc *Allocation
	At    *graph.Block
}

func (self Materialize) String() string {
	return fmt.Sprintf("materialize(alloc=%d, at=bb_%d)", self.Alloc.ID, self.At.ID)
}

// VivifyType emits a type guard recreating a fact scalar replacement had
// been carrying for free (the object's exact type), now that the object
// is materialized and guards against it again cost something.
type VivifyType struct {
	Alloc *Allocation
}

func (self VivifyType) String() string {
	return fmt.Sprintf("vivify-type(alloc=%d)", self.Alloc.ID)
}

// VivifyConcrete marks that a concrete-vivifying read touched the
// allocation. At materialization Apply emits for it the same type guard
// it emits for VivifyType; there is no separate concreteness check.
type VivifyConcrete struct {
	Alloc *Allocation
}

func (self VivifyConcrete) String() string {
	return fmt.Sprintf("vivify-concrete(alloc=%d)", self.Alloc.ID)
}

// LoadBigInt emits a real getattr reading the big-integer attribute
// directly off an operand that never itself decomposed, so a binary
// bigint op can still decompose around it instead of forcing that operand
// real just to feed the other, genuinely decomposed side (§4.4's third
// path). Obj is already a real register — the operand was never tracked
// as a decomposed box in the first place — so this never touches Obj's
// allocation, only introduces Dst as the op's actual unboxed input.
type LoadBigInt struct {
	Obj   graph.Reg
	Index int
	Dst   graph.Reg
	Site  graph.Node
}

func (self LoadBigInt) String() string {
	return fmt.Sprintf("load-bigint(%s[%d] -> %s)", self.Obj, self.Index, self.Dst)
}

// UnmaterializeBigInt is the inverse of Materialize, scoped to a bigint
// box specifically: when a decomposed bigint value turns out to never
// need its box after all (every consumer was itself decomposed), drop
// the box construction the planner had tentatively scheduled.
type UnmaterializeBigInt struct {
	Alloc *Allocation
	Site  *graph.BigIntMaterialize
}

func (self UnmaterializeBigInt) String() string {
	return fmt.Sprintf("unmaterialize-bigint(alloc=%d)", self.Alloc.ID)
}
