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
package cvars

import (
	"fmt"
	"strings"

	"github.com/checkedc/go-3c/pkg/ast"
	"github.com/checkedc/go-3c/pkg/constraints"
	"github.com/checkedc/go-3c/pkg/source"
)

// FVConstraint is the constraint variable of a function declaration.  Return
// and parameters each carry two pointer variables: the external view seen by
// callers and the internal view seen by the body.  The two views are equated
// unless an interop type annotation deliberately separates them.
type FVConstraint struct {
	name      string
	extReturn *PVConstraint
	intReturn *PVConstraint
	extParams []*PVConstraint
	intParams []*PVConstraint
	// Whether a sighting with a body has been folded into this variable.
	hasBody bool
	// Number of generic type variables the function was declared with.
	typeParams uint
	// Whether the return carries an interop type annotation.
	retItype bool
	// Per-parameter interop annotation markers.
	paramItype []bool
	validDecl  bool
	// Location of the sighting this variable was built from.
	declLoc source.Location
}

// Loc returns the location of the sighting this variable was built from.
func (p *FVConstraint) Loc() source.Location {
	return p.declLoc
}

// NewFunctionVariable builds the constraint variable for a function
// declaration, minting fresh atoms for both views of the return and of every
// parameter and linking the views according to any interop annotations.
func NewFunctionVariable(cs *constraints.Set, fd *ast.FuncDecl) *FVConstraint {
	f := &FVConstraint{
		name:       fd.Name(),
		hasBody:    fd.HasBody(),
		typeParams: fd.TypeParams,
		paramItype: make([]bool, len(fd.Params)),
		declLoc:    fd.Loc(),
	}
	//
	f.intReturn = NewPointerVariable(cs, fd.Name(), fd.Return, true)
	f.retItype = fd.ReturnItype != nil
	//
	if f.retItype {
		f.extReturn = NewPointerVariable(cs, fd.Name(), fd.ReturnItype, true)
	} else {
		f.extReturn = NewPointerVariable(cs, fd.Name(), fd.Return, true)
	}
	//
	f.linkViews(cs, f.intReturn, f.extReturn, f.retItype, fd.Loc())
	//
	for i, pd := range fd.Params {
		intP := NewPointerVariable(cs, pd.Name(), pd.Type(), true)
		f.paramItype[i] = pd.Itype != nil
		//
		var extP *PVConstraint
		if f.paramItype[i] {
			extP = NewPointerVariable(cs, pd.Name(), pd.Itype, true)
		} else {
			extP = NewPointerVariable(cs, pd.Name(), pd.Type(), true)
		}
		//
		f.linkViews(cs, intP, extP, f.paramItype[i], pd.Loc())
		f.intParams = append(f.intParams, intP)
		f.extParams = append(f.extParams, extP)
	}
	//
	return f
}

// newFunctionVariableOfType builds the function variable embedded in a
// function pointer.  Plain types carry no interop annotations, so the two
// views are always equated.
func newFunctionVariableOfType(cs *constraints.Set, name string, ft *ast.Function) *FVConstraint {
	f := &FVConstraint{
		name:       name,
		paramItype: make([]bool, len(ft.Params)),
	}
	//
	f.intReturn = NewPointerVariable(cs, name, ft.Return, true)
	f.extReturn = NewPointerVariable(cs, name, ft.Return, true)
	f.linkViews(cs, f.intReturn, f.extReturn, false, source.Location{})
	//
	for _, pt := range ft.Params {
		intP := NewPointerVariable(cs, "", pt, true)
		extP := NewPointerVariable(cs, "", pt, true)
		f.linkViews(cs, intP, extP, false, source.Location{})
		f.intParams = append(f.intParams, intP)
		f.extParams = append(f.extParams, extP)
	}
	//
	return f
}

// linkViews ties the internal and external view of one signature slot
// together.  Without an interop annotation the views are the same inference
// object in all but identity; with one, only pointer-type information flows
// from the external signature into the body.
func (p *FVConstraint) linkViews(cs *constraints.Set, internal *PVConstraint,
	external *PVConstraint, itype bool, loc source.Location) {
	if itype {
		ConstrainConsVarGeq(internal, external, cs, loc, SafeToWild, "Interop type annotation")
	} else {
		ConstrainConsVarGeq(internal, external, cs, loc, SameToSame, "")
	}
}

// Name returns the function name.
func (p *FVConstraint) Name() string {
	return p.name
}

// HasBody reports whether a definition has been folded into this variable.
func (p *FVConstraint) HasBody() bool {
	return p.hasBody
}

// IsGeneric reports whether the function was declared with type parameters.
func (p *FVConstraint) IsGeneric() bool {
	return p.typeParams > 0
}

// TypeParams returns the number of declared generic type variables.
func (p *FVConstraint) TypeParams() uint {
	return p.typeParams
}

// NumParams returns the number of parameters tracked.
func (p *FVConstraint) NumParams() int {
	return len(p.extParams)
}

// ExternalReturn returns the caller-facing view of the return.
func (p *FVConstraint) ExternalReturn() *PVConstraint {
	return p.extReturn
}

// InternalReturn returns the body-facing view of the return.
func (p *FVConstraint) InternalReturn() *PVConstraint {
	return p.intReturn
}

// ExternalParam returns the caller-facing view of the i'th parameter.
func (p *FVConstraint) ExternalParam(i int) *PVConstraint {
	return p.extParams[i]
}

// InternalParam returns the body-facing view of the i'th parameter.
func (p *FVConstraint) InternalParam(i int) *PVConstraint {
	return p.intParams[i]
}

// IsForValidDecl reports whether this variable stands for a rewritable
// declaration.
func (p *FVConstraint) IsForValidDecl() bool {
	return p.validDecl
}

// SetValidDecl marks this variable as standing for a valid declaration.
func (p *FVConstraint) SetValidDecl() {
	p.validDecl = true
}

// ConstrainToWild forces both views of the return and of every parameter to
// the top of the lattice.
func (p *FVConstraint) ConstrainToWild(cs *constraints.Set, reason string, loc source.Location) {
	p.extReturn.ConstrainToWild(cs, reason, loc)
	p.intReturn.ConstrainToWild(cs, reason, loc)
	//
	for i := range p.extParams {
		p.extParams[i].ConstrainToWild(cs, reason, loc)
		p.intParams[i].ConstrainToWild(cs, reason, loc)
	}
}

// Atoms returns the atoms of the external view of the return and parameters.
func (p *FVConstraint) Atoms() []*constraints.VarAtom {
	atoms := p.extReturn.Atoms()
	//
	for _, q := range p.extParams {
		atoms = append(atoms, q.Atoms()...)
	}
	//
	return atoms
}

// BrainTransplant adopts another function variable's atoms, slot by slot.
// Subsequent constraints on this variable then accumulate on the surviving
// atom identities.  A parameterless prototype transplants only the return.
func (p *FVConstraint) BrainTransplant(old *FVConstraint) {
	p.extReturn.BrainTransplant(old.extReturn)
	p.intReturn.BrainTransplant(old.intReturn)
	//
	n := len(p.extParams)
	if len(old.extParams) < n {
		n = len(old.extParams)
	}
	//
	for i := 0; i < n; i++ {
		p.extParams[i].BrainTransplant(old.extParams[i])
		p.intParams[i].BrainTransplant(old.intParams[i])
	}
	//
	if old.hasBody {
		p.hasBody = true
	}

	if old.validDecl {
		p.validDecl = true
	}
}

// MergeError reports why two sightings of the same function could not be
// reconciled.
type MergeError struct {
	// Function name.
	Name string
	// Location of the offending sighting.
	Loc source.Location
	// Why merging failed.
	Reason string
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merging failed for %s at %s: %s", e.Name, e.Loc, e.Reason)
}

// MergeDeclaration reconciles a further prototype sighting with this one.
// On success the new sighting adopts this variable's atoms and this variable
// absorbs any richer metadata; on failure a MergeError describes the
// incompatibility and neither side is modified.
func (p *FVConstraint) MergeDeclaration(other *FVConstraint, loc source.Location) error {
	if len(p.extParams) != len(other.extParams) {
		return &MergeError{p.name, loc, fmt.Sprintf(
			"differing number of parameters (%d and %d)", len(p.extParams), len(other.extParams))}
	}

	if p.typeParams != other.typeParams {
		return &MergeError{p.name, loc, fmt.Sprintf(
			"differing generic type parameters (%d and %d)", p.typeParams, other.typeParams)}
	}

	if p.retItype != other.retItype {
		return &MergeError{p.name, loc, "incompatible interop type on return"}
	}

	for i := range p.paramItype {
		if p.paramItype[i] != other.paramItype[i] {
			return &MergeError{p.name, loc, fmt.Sprintf(
				"incompatible interop type on parameter %d", i)}
		}
	}
	// Adopt parameter names this sighting is missing.
	for i, q := range p.extParams {
		if q.name == "" && other.extParams[i].name != "" {
			q.name = other.extParams[i].name
			p.intParams[i].name = other.intParams[i].name
		}
	}
	//
	if other.validDecl {
		p.validDecl = true
	}
	//
	other.BrainTransplant(p)
	//
	return nil
}

// Dump returns the JSON view of this variable.
func (p *FVConstraint) Dump() Dump {
	ret := p.extReturn.Dump()
	d := Dump{Name: p.name, Return: &ret}
	//
	for _, q := range p.extParams {
		d.Parameters = append(d.Parameters, q.Dump())
	}
	//
	return d
}

func (p *FVConstraint) String() string {
	var b strings.Builder
	//
	b.WriteString(p.name)
	b.WriteString("(")
	//
	for i, q := range p.extParams {
		if i != 0 {
			b.WriteString(", ")
		}

		b.WriteString(q.String())
	}
	//
	b.WriteString(") ret ")
	b.WriteString(p.extReturn.String())
	//
	return b.String()
}
