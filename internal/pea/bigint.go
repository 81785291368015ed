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
	"github.com/sixmodel/pea/internal/graph"
	"github.com/sixmodel/pea/internal/repr"
)

// bigIntOperand resolves a register to the tracked bigint-box allocation
// feeding it, if the register names one and the allocation still carries
// a bigint attribute worth decomposing.
func (self *Analyzer) bigIntOperand(r graph.Reg) (*Allocation, bool) {
	alloc, ok := self.tracker.Lookup(r)
	if !ok || alloc.Irreplaceable() {
		return nil, false
	}
	if _, ok := alloc.Type.HasBigInt(); !ok {
		return nil, false
	}
	return alloc, true
}

// decomposeBinary handles the producing-binary family: add, sub, mul,
// gcd. An operand that does not itself trace back to a decomposed bigint
// box still participates in the decomposition as long as the OTHER
// operand does: instead of forcing the untracked side real just to get a
// concrete bigint value to feed the op, a get-bigint load reads its
// big-integer attribute directly, using the tracked side's type to locate
// it (§4.4's third path). Only when neither operand is a decomposed box —
// so there is no type to locate a load against either — does the op stay
// un-decomposed, which forces nothing real on its own since an untracked
// operand was never hypothetical to begin with.
func (self *Analyzer) decomposeBinary(bb *graph.Block, state *BlockState, ins *graph.BigIntBinary) Transformation {
	if self.noBigIntDecompose {
		return nil
	}

	lhs, lok := self.bigIntOperand(ins.Lhs)
	rhs, rok := self.bigIntOperand(ins.Rhs)

	if !lok && !rok {
		return nil
	}

	lhsReg, rhsReg := ins.Lhs, ins.Rhs
	var resultType *repr.Stable
	var dependsOn []int
	var loads []Transformation

	if lok {
		lhs.MarkBigIntUse()
		resultType = lhs.Type
		dependsOn = append(dependsOn, lhs.ID)
	} else {
		load, ok := self.loadBigIntOperand(ins.Lhs, rhs.Type, ins)
		if !ok {
			self.forceRealAt(bb, state, rhs, "bigint binary op operand has no big-integer attribute a load could target")
			return nil
		}
		loads = append(loads, load)
		lhsReg = load.Dst
	}

	if rok {
		rhs.MarkBigIntUse()
		resultType = rhs.Type
		dependsOn = append(dependsOn, rhs.ID)
	} else {
		load, ok := self.loadBigIntOperand(ins.Rhs, lhs.Type, ins)
		if !ok {
			self.forceRealAt(bb, state, lhs, "bigint binary op operand has no big-integer attribute a load could target")
			return nil
		}
		loads = append(loads, load)
		rhsReg = load.Dst
	}

	self.trackDecomposedResult(bb, state, ins.R, resultType, dependsOn...)
	self.transforms = append(self.transforms, loads...)

	return DecomposeBigIntBinary{Op: ins.Op, Lhs: lhsReg, Rhs: rhsReg, Dst: ins.R, Site: ins}
}

// loadBigIntOperand plans a LoadBigInt reading obj's big-integer attribute
// — obj is already a real register, since it named an operand this pass
// never tracked as a decomposed box — using sibling's type to locate that
// attribute's index, since obj's own type is unknown to this pass.
func (self *Analyzer) loadBigIntOperand(obj graph.Reg, sibling *repr.Stable, ins graph.Node) (LoadBigInt, bool) {
	idx, ok := sibling.HasBigInt()
	if !ok {
		return LoadBigInt{}, false
	}
	return LoadBigInt{Obj: obj, Index: idx, Dst: self.freshReg(), Site: ins}, true
}

// decomposeUnary handles the producing-unary family: neg, abs. Unlike
// decomposeBinary there is no sibling operand to borrow a type from when
// Val is not itself a decomposed box, and BigIntUnary carries no type of
// its own either — so a get-bigint load has nothing to locate an
// attribute index against, and an untracked Val simply leaves the op
// un-decomposed rather than forcing anything real (Val was never
// hypothetical in the first place if it was never tracked at all).
func (self *Analyzer) decomposeUnary(bb *graph.Block, state *BlockState, ins *graph.BigIntUnary) Transformation {
	if self.noBigIntDecompose {
		return nil
	}

	val, ok := self.bigIntOperand(ins.Val)
	if !ok {
		return nil
	}

	val.MarkBigIntUse()
	self.trackDecomposedResult(bb, state, ins.R, val.Type, val.ID)

	return DecomposeBigIntUnary{Op: ins.Op, Val: ins.Val, Dst: ins.R, Site: ins}
}

// trackDecomposedResult try_tracks a producing bigint op's result the
// same way a fastcreate would be tracked, so a later op consuming it
// keeps chaining through hypothetical registers (§4.4) instead of
// immediately needing a materialization, and records an escape
// dependency on every operand this result was built from: if the result
// ever escapes, whichever operands backed it must be real too.
func (self *Analyzer) trackDecomposedResult(bb *graph.Block, state *BlockState, r graph.Reg, ty *repr.Stable, dependsOn ...int) {
	result, ok := self.tracker.TrackSynthetic(bb, r, ty)
	if !ok {
		return
	}
	state.See(result)
	self.deps[result.ID] = append(self.deps[result.ID], dependsOn...)
}

// handleBigIntMaterialize re-tracks a bigint box an earlier pass already
// planted (§4.2's "bigint-materialize op" row). Unlike a fastcreate, its
// big-integer attribute already has a known value — the unboxed operand
// the earlier pass carried along — so it is recorded as written on sight
// instead of waiting for a bindattr that will never come.
func (self *Analyzer) handleBigIntMaterialize(bb *graph.Block, state *BlockState, ins *graph.BigIntMaterialize) {
	alloc, ok := self.tracker.TryTrackMaterialize(bb, ins)
	if !ok {
		return
	}

	bigIdx, _ := alloc.Type.HasBigInt()
	alloc.SetSlot(bigIdx, ins.UnboxedVal)
	alloc.RecordWrite(bigIdx)
	state.See(alloc)
	state.Use(alloc, bigIdx)
	self.deopts.RecordProducer(alloc, ins.Deopt)
}

// decomposeRelational handles cmp, eq, ne, lt, le, gt, ge. Unlike the
// producing families, a relational op never itself allocates, so both
// operands may independently decompose or stay real with no further
// consequence for ins.R.
func (self *Analyzer) decomposeRelational(bb *graph.Block, ins *graph.BigIntRel) Transformation {
	if self.noBigIntDecompose {
		return nil
	}

	lhs, lok := self.bigIntOperand(ins.Lhs)
	rhs, rok := self.bigIntOperand(ins.Rhs)

	if !lok && !rok {
		return nil
	}
	if lok {
		lhs.MarkBigIntUse()
	}
	if rok {
		rhs.MarkBigIntUse()
	}

	return DecomposeBigIntRelational{Op: ins.Op, Lhs: ins.Lhs, Rhs: ins.Rhs, Dst: ins.R, Site: ins}
}
