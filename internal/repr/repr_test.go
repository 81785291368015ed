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

package repr

import "testing"

func point() *Stable {
	return &Stable{
		Name:        "Point",
		Opaque:      true,
		Attrs:       []Attr{{Kind: KindInt, Offset: 0}, {Kind: KindInt, Offset: 8}},
		BigIntIndex: -1,
		CacheIndex:  -1,
	}
}

func TestIsHandledOpaque(t *testing.T) {
	p := point()
	if !p.IsHandledOpaque() {
		t.Fatal("expected Point to be a handled opaque type")
	}

	notOpaque := point()
	notOpaque.Opaque = false
	if notOpaque.IsHandledOpaque() {
		t.Fatal("non-opaque type must not be handled")
	}
}

func TestHasBigInt(t *testing.T) {
	bi := &Stable{
		Name:        "BigInt",
		Opaque:      true,
		Attrs:       []Attr{{Kind: KindBigInt, Offset: 0}},
		BigIntIndex: 0,
		CacheIndex:  -1,
	}
	idx, ok := bi.HasBigInt()
	if !ok || idx != 0 {
		t.Fatalf("expected bigint at index 0, got %d, %v", idx, ok)
	}
	if bi.BigIntOffset() != 0 {
		t.Fatal("wrong bigint offset")
	}

	p := point()
	if _, ok := p.HasBigInt(); ok {
		t.Fatal("Point must report no bigint attribute")
	}
}

func TestBigIntOffsetPanicsWithoutBigInt(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when no bigint attribute present")
		}
	}()
	point().BigIntOffset()
}

func TestClassifyBoxing(t *testing.T) {
	cases := []struct {
		s    *Stable
		want BoxingKind
	}{
		{&Stable{Opaque: true, Attrs: []Attr{{Kind: KindInt}}}, BoxingInt},
		{&Stable{Opaque: true, Attrs: []Attr{{Kind: KindNum}}}, BoxingNum},
		{&Stable{Opaque: true, Attrs: []Attr{{Kind: KindStr}}}, BoxingStr},
		{&Stable{Opaque: true, Attrs: []Attr{{Kind: KindBigInt}}}, BoxingBigInt},
		{point(), NotBoxing},
		{&Stable{Opaque: false, Attrs: []Attr{{Kind: KindInt}}}, NotBoxing},
	}
	for _, c := range cases {
		if got := ClassifyBoxing(c.s); got != c.want {
			t.Errorf("ClassifyBoxing(%v) = %v, want %v", c.s, got, c.want)
		}
	}
}

func TestIntegerCache(t *testing.T) {
	s := point()
	if _, ok := s.IntegerCache(); ok {
		t.Fatal("expected no cache for Point")
	}
	s.CacheIndex = 4
	idx, ok := s.IntegerCache()
	if !ok || idx != 4 {
		t.Fatalf("expected cache index 4, got %d, %v", idx, ok)
	}
}
