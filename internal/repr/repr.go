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

// Package repr answers the object-model queries §6 of the specification
// lists as externally supplied: given a stable type descriptor, enumerate
// its attributes, their storage kinds, their byte offsets, and whether one
// of them is a big-integer box.
package repr

import "fmt"

// Kind is the storage kind of a single attribute slot in a transparent
// opaque record.
type Kind uint8

const (
	KindRef    Kind = iota // a reference to another heap object
	KindInt                // a 64-bit signed integer
	KindNum                // a 64-bit float
	KindStr                // a string
	KindBigInt             // a big-integer handle
)

func (self Kind) String() string {
	switch self {
	case KindRef:
		return "ref"
	case KindInt:
		return "int"
	case KindNum:
		return "num"
	case KindStr:
		return "str"
	case KindBigInt:
		return "bigint"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(self))
	}
}

// Handled reports whether a storage kind is one PEA's allocation tracker
// can replace (§4.1: "every attribute's storage kind is one of the handled
// set").
func (self Kind) Handled() bool {
	switch self {
	case KindRef, KindInt, KindNum, KindStr, KindBigInt:
		return true
	default:
		return false
	}
}

// Attr describes one attribute slot: its storage kind and its byte offset
// within the opaque record.
type Attr struct {
	Kind   Kind
	Offset uintptr
}

// Stable is a type's compiled, fixed-layout descriptor — the "6model
// stable" of a concrete type. PEA only tracks allocations of types whose
// Stable reports IsHandledOpaque() true; every other representation (arrays, custom
// reprs) is out of PEA's scope (§1 Non-goals).
type Stable struct {
	Name        string
	Opaque      bool
	Attrs       []Attr
	BigIntIndex int // index into Attrs of the bigint attribute, or -1
	CacheIndex  int // index into the integer-cache type table, or -1
}

// AttrCount returns the number of attribute slots.
func (self *Stable) AttrCount() int {
	return len(self.Attrs)
}

// AttrKind returns the storage kind of attribute i.
func (self *Stable) AttrKind(i int) Kind {
	return self.Attrs[i].Kind
}

// AttrOffset returns the byte offset of attribute i.
func (self *Stable) AttrOffset(i int) uintptr {
	return self.Attrs[i].Offset
}

// HasBigInt reports whether this type carries a big-integer attribute, and
// if so its index.
func (self *Stable) HasBigInt() (int, bool) {
	if self.BigIntIndex < 0 {
		return 0, false
	}
	return self.BigIntIndex, true
}

// BigIntOffset returns the byte offset of the big-integer attribute.
// Panics if the type has none — callers must check HasBigInt first, per
// §7's "no big integer attribute found" design-violation.
func (self *Stable) BigIntOffset() uintptr {
	i, ok := self.HasBigInt()
	if !ok {
		panic("no big integer attribute found")
	}
	return self.Attrs[i].Offset
}

// IsHandledOpaque reports whether this type is a transparent opaque record
// all of whose attributes have a handled storage kind — the exact
// acceptance test of try_track (§4.1).
func (self *Stable) IsHandledOpaque() bool {
	if !self.Opaque {
		return false
	}
	for _, a := range self.Attrs {
		if !a.Kind.Handled() {
			return false
		}
	}
	return true
}

// BoxingKind classifies the handful of well-known boxing primitives
// (single-attribute boxes of an int, num, str or bigint) from the broader
// space of opaque types. The pass's analyzer does not consult it.
type BoxingKind uint8

const (
	NotBoxing BoxingKind = iota
	BoxingInt
	BoxingNum
	BoxingStr
	BoxingBigInt
)

// ClassifyBoxing reports which (if any) boxing primitive a Stable
// represents. A boxing primitive is a single-attribute opaque record whose
// sole attribute holds the boxed scalar.
func ClassifyBoxing(s *Stable) BoxingKind {
	if !s.Opaque || len(s.Attrs) != 1 {
		return NotBoxing
	}
	switch s.Attrs[0].Kind {
	case KindInt:
		return BoxingInt
	case KindNum:
		return BoxingNum
	case KindStr:
		return BoxingStr
	case KindBigInt:
		return BoxingBigInt
	default:
		return NotBoxing
	}
}

// IntegerCache answers the "integer-cache type index lookup" query §6
// lists: small boxed integers share a process-wide cache keyed by the
// boxing type's cache index. No transform in the pass consults it: a
// materialization always emits a fresh fastcreate. CacheIndex < 0 means
// the type participates in no cache.
func (self *Stable) IntegerCache() (int, bool) {
	if self.CacheIndex < 0 {
		return 0, false
	}
	return self.CacheIndex, true
}
