// Copyright The go-3c Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package constraints

import "fmt"

// Kind enumerates the qualifier lattice.  Wild is the top element; the three
// checked kinds sit below it and are pairwise incomparable.  The bottom of the
// lattice is virtual: an unconstrained variable atom has no assignment at all
// and collapses to Ptr when its solution is read out.
type Kind uint8

const (
	// Ptr qualifies a pointer to a single object.
	Ptr Kind = iota
	// NTArr qualifies a pointer to a null-terminated array.
	NTArr
	// Arr qualifies a pointer to a counted array.
	Arr
	// Wild marks a pointer for which no safe qualifier can be proven.
	Wild
)

func (k Kind) String() string {
	switch k {
	case Ptr:
		return "PTR"
	case NTArr:
		return "NTARR"
	case Arr:
		return "ARR"
	case Wild:
		return "WILD"
	}

	panic(fmt.Sprintf("unknown qualifier kind %d", uint8(k)))
}

// Leq reports whether k is below or equal to o in the lattice.
func (k Kind) Leq(o Kind) bool {
	return k == o || o == Wild
}

// Join computes the least upper bound of two kinds.  Two distinct checked
// kinds have no common checked ancestor, hence their join is Wild.
func Join(k Kind, o Kind) Kind {
	if k == o {
		return k
	}

	return Wild
}

// Atom is the unit of inference: either an interned lattice constant or a
// variable minted for one pointer indirection of one declaration.  Atom
// identity is pointer identity; every atom belongs to exactly one Set.
type Atom interface {
	fmt.Stringer
	// sealed marks the implementations living in this package.
	sealed()
}

// ConstAtom is an interned lattice constant.  The four constants of a Set are
// the only ConstAtom values in circulation; comparing them by pointer is
// always correct.
type ConstAtom struct {
	kind Kind
}

// Kind returns the lattice value this constant denotes.
func (p *ConstAtom) Kind() Kind {
	return p.kind
}

func (p *ConstAtom) String() string {
	return p.kind.String()
}

func (p *ConstAtom) sealed() {}

// VarAtom is an inference variable, identified by a unique integer key.  Its
// current assignment is tracked by the owning Set, not by the atom itself.
type VarAtom struct {
	key uint32
}

// Key returns the unique identifier of this variable atom within its set.
func (p *VarAtom) Key() uint32 {
	return p.key
}

func (p *VarAtom) String() string {
	return fmt.Sprintf("q_%d", p.key)
}

func (p *VarAtom) sealed() {}
