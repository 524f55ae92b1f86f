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

// Package cvars implements constraint variables: the per-declaration vectors
// of inference atoms shaped like the declaration's type.  A pointer-shaped
// declaration owns one atom per indirection; a function-shaped declaration
// owns an external and an internal view of its return and parameters.
package cvars

import (
	"fmt"

	"github.com/checkedc/go-3c/pkg/constraints"
	"github.com/checkedc/go-3c/pkg/source"
)

// ConstraintVariable is the capability set shared by pointer-shaped and
// function-shaped variables.  Shape-specific operations live on the concrete
// types.
type ConstraintVariable interface {
	fmt.Stringer
	// Name returns the declared name this variable stands for.
	Name() string
	// ConstrainToWild forces every atom owned by this variable (transitively
	// through embedded function variables) to the top of the lattice.
	ConstrainToWild(cs *constraints.Set, reason string, loc source.Location)
	// Atoms returns all variable atoms owned, recursing through embedded
	// function variables and external function views.
	Atoms() []*constraints.VarAtom
	// IsForValidDecl reports whether this variable stands for a rewritable,
	// source-visible declaration.
	IsForValidDecl() bool
	// SetValidDecl marks this variable as standing for a valid declaration.
	SetValidDecl()
	// Dump returns the JSON view of this variable.
	Dump() Dump
}

// CVarSet is an identity set of constraint variables.
type CVarSet map[ConstraintVariable]struct{}

// Insert adds a variable to the set.
func (p CVarSet) Insert(cv ConstraintVariable) {
	p[cv] = struct{}{}
}

// Contains reports membership.
func (p CVarSet) Contains(cv ConstraintVariable) bool {
	_, ok := p[cv]
	return ok
}

// InsertAll adds every member of another set.
func (p CVarSet) InsertAll(other CVarSet) {
	for cv := range other {
		p[cv] = struct{}{}
	}
}

// ConsAction selects which side of the wild cliff a relational constraint
// participates in.
type ConsAction uint8

const (
	// SameToSame equates the two sides in both constraint colours.
	SameToSame ConsAction = iota
	// WildToSame propagates only wildness, on the checked side, from the
	// lesser operand to the greater.
	WildToSame
	// SafeToWild links the two sides on the pointer-type side only, from the
	// lesser operand to the greater.  Interop view links relate the body view
	// to the signature view this way, so the signature feeds type information
	// into the body while an unchecked body never drags the signature wild.
	SafeToWild
)

// Dump is the JSON view of a constraint variable.  Exactly one of the
// pointer-shaped and function-shaped halves is populated.
type Dump struct {
	Name    string   `json:"name"`
	Atoms   []string `json:"Atoms,omitempty"`
	Generic bool     `json:"Generic,omitempty"`
	// Embedded function variable of a function pointer.
	FunctionVariable *Dump  `json:"FunctionVariable,omitempty"`
	Return           *Dump  `json:"Return,omitempty"`
	Parameters       []Dump `json:"Parameters,omitempty"`
}

// ConstrainConsVarGeq emits the relational constraints for "lhs >= rhs"
// between two constraint variables, walking their structure in parallel.
// Pointer variables relate level-wise: the outermost level follows the
// action's polarity, inner levels are invariant.  Function variables relate
// return-covariantly and parameter-contravariantly.  Structural mismatches
// constrain the surplus side wild.
func ConstrainConsVarGeq(lhs ConstraintVariable, rhs ConstraintVariable,
	cs *constraints.Set, loc source.Location, action ConsAction, reason string) {
	switch l := lhs.(type) {
	case *PVConstraint:
		switch r := rhs.(type) {
		case *PVConstraint:
			constrainPointerGeq(l, r, cs, loc, action, reason)
		case *FVConstraint:
			constrainPointerFunction(l, r, cs, loc, action, reason)
		}
	case *FVConstraint:
		switch r := rhs.(type) {
		case *PVConstraint:
			constrainPointerFunction(r, l, cs, loc, action, reason)
		case *FVConstraint:
			constrainFunctionGeq(l, r, cs, loc, action, reason)
		}
	}
}

// ConstrainConsVarGeqAll relates one variable against every member of a set.
func ConstrainConsVarGeqAll(lhs ConstraintVariable, rhs CVarSet,
	cs *constraints.Set, loc source.Location, action ConsAction, reason string) {
	for r := range rhs {
		ConstrainConsVarGeq(lhs, r, cs, loc, action, reason)
	}
}

func constrainPointerGeq(lhs *PVConstraint, rhs *PVConstraint,
	cs *constraints.Set, loc source.Location, action ConsAction, reason string) {
	n := len(lhs.vars)
	if len(rhs.vars) < n {
		n = len(rhs.vars)
	}
	// Wild out any surplus indirections.
	for _, a := range lhs.vars[n:] {
		cs.AddGeq(a, cs.Wild(), true, "Mismatched pointer depth: "+reason, loc)
	}

	for _, a := range rhs.vars[n:] {
		cs.AddGeq(a, cs.Wild(), true, "Mismatched pointer depth: "+reason, loc)
	}
	// Relate the common prefix; only the outermost level is directional.
	for i := 0; i < n; i++ {
		emitAtomGeq(cs, lhs.vars[i], rhs.vars[i], action, i > 0, reason, loc)
	}
	// Recurse into embedded function pointers.
	switch {
	case lhs.fv != nil && rhs.fv != nil:
		constrainFunctionGeq(lhs.fv, rhs.fv, cs, loc, action, reason)
	case lhs.fv != nil || rhs.fv != nil:
		// Function pointer meets plain pointer; neither shape can be trusted.
		lhs.ConstrainToWild(cs, "Function pointer mismatch: "+reason, loc)
		rhs.ConstrainToWild(cs, "Function pointer mismatch: "+reason, loc)
	}
}

func constrainFunctionGeq(lhs *FVConstraint, rhs *FVConstraint,
	cs *constraints.Set, loc source.Location, action ConsAction, reason string) {
	// Returns are covariant.
	ConstrainConsVarGeq(lhs.extReturn, rhs.extReturn, cs, loc, action, reason)
	//
	n := len(lhs.extParams)
	if len(rhs.extParams) < n {
		n = len(rhs.extParams)
	}
	// Parameters are contravariant: flip the operands.
	for i := 0; i < n; i++ {
		ConstrainConsVarGeq(rhs.extParams[i], lhs.extParams[i], cs, loc, action, reason)
	}
	// Wild out any surplus parameters.
	for _, p := range lhs.extParams[n:] {
		p.ConstrainToWild(cs, "Mismatched parameter count: "+reason, loc)
	}

	for _, p := range rhs.extParams[n:] {
		p.ConstrainToWild(cs, "Mismatched parameter count: "+reason, loc)
	}
}

func constrainPointerFunction(pv *PVConstraint, fv *FVConstraint,
	cs *constraints.Set, loc source.Location, action ConsAction, reason string) {
	if pv.fv != nil {
		constrainFunctionGeq(pv.fv, fv, cs, loc, action, reason)
		return
	}
	// A function variable related to a non-function pointer; no safe
	// qualifier exists for either.
	pv.ConstrainToWild(cs, "Function variable used as pointer: "+reason, loc)
	fv.ConstrainToWild(cs, "Function variable used as pointer: "+reason, loc)
}

// emitAtomGeq emits the atom-level constraints for "lhs >= rhs" under a given
// action.  Inner pointer levels are invariant regardless of action polarity,
// but stay within the action's colour.
func emitAtomGeq(cs *constraints.Set, lhs constraints.Atom, rhs constraints.Atom,
	action ConsAction, inner bool, reason string, loc source.Location) {
	switch action {
	case SameToSame:
		cs.AddEq(lhs, rhs, true, reason, loc)
		cs.AddEq(lhs, rhs, false, reason, loc)
	case WildToSame:
		cs.AddGeq(lhs, rhs, true, reason, loc)

		if inner {
			cs.AddGeq(rhs, lhs, true, reason, loc)
		}
	case SafeToWild:
		cs.AddGeq(lhs, rhs, false, reason, loc)

		if inner {
			cs.AddGeq(rhs, lhs, false, reason, loc)
		}
	}
}
