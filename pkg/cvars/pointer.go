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
	"strings"

	"github.com/checkedc/go-3c/pkg/ast"
	"github.com/checkedc/go-3c/pkg/constraints"
	"github.com/checkedc/go-3c/pkg/source"
)

// PVConstraint is the constraint variable of a pointer-shaped declaration.
// It owns one variable atom per indirection of the declared type, outermost
// first.  A declaration whose pointee is a function type embeds a function
// variable for the signature.
type PVConstraint struct {
	// One atom per pointer indirection, outermost first.  Empty for
	// non-pointer declarations that still need a variable (e.g. integer
	// parameters of a tracked function).
	vars []*constraints.VarAtom
	// Function variable of the pointee signature, for function pointers.
	fv *FVConstraint
	// Declared name.
	name string
	// Whether the base type is a generic type variable.
	generic bool
	// Whether this variable is a return or parameter of a function.
	partOfProto bool
	// Whether the underlying declaration is source-visible and rewritable.
	validDecl bool
	// Name of the typedef this declaration was spelled through, if any.
	typedefName string
	hasTypedef  bool
}

// NewPointerVariable builds the constraint variable for a declaration of the
// given type, minting one fresh atom per indirection.  partOfProto marks
// variables embedded in a function signature.
func NewPointerVariable(cs *constraints.Set, name string, typ ast.Type, partOfProto bool) *PVConstraint {
	p := &PVConstraint{name: name, partOfProto: partOfProto}
	//
	t := ast.Resolve(typ)
	//
	for {
		switch tt := t.(type) {
		case *ast.Pointer:
			p.vars = append(p.vars, cs.MkVar())
			t = ast.Resolve(tt.Pointee)
		case *ast.Array:
			p.vars = append(p.vars, cs.MkVar())
			t = ast.Resolve(tt.Elem)
		case *ast.Function:
			p.fv = newFunctionVariableOfType(cs, name, tt)
			return p
		case *ast.TypeVar:
			p.generic = true
			return p
		default:
			return p
		}
	}
}

// Name returns the declared name.
func (p *PVConstraint) Name() string {
	return p.name
}

// Cvars returns the atom sequence of this variable, outermost level first.
func (p *PVConstraint) Cvars() []*constraints.VarAtom {
	return p.vars
}

// FV returns the embedded function variable, or nil when the pointee is not a
// function type.
func (p *PVConstraint) FV() *FVConstraint {
	return p.fv
}

// IsGeneric reports whether the base type is a generic type variable.
func (p *PVConstraint) IsGeneric() bool {
	return p.generic
}

// IsPartOfFunctionPrototype reports whether this variable is a return or
// parameter of a function.
func (p *PVConstraint) IsPartOfFunctionPrototype() bool {
	return p.partOfProto
}

// IsForValidDecl reports whether the underlying declaration is rewritable.
func (p *PVConstraint) IsForValidDecl() bool {
	return p.validDecl
}

// SetValidDecl marks the underlying declaration as rewritable.
func (p *PVConstraint) SetValidDecl() {
	p.validDecl = true
}

// SetTypedef records that this declaration was spelled through a named
// typedef; the unifier equates all variables sharing that typedef.
func (p *PVConstraint) SetTypedef(name string) {
	p.typedefName = name
	p.hasTypedef = true
}

// HasTypedef reports whether a typedef back-reference has been recorded.
func (p *PVConstraint) HasTypedef() bool {
	return p.hasTypedef
}

// TypedefName returns the recorded typedef name.
func (p *PVConstraint) TypedefName() string {
	return p.typedefName
}

// ConstrainToWild forces every owned atom, and those of any embedded function
// variable, to the top of the lattice.
func (p *PVConstraint) ConstrainToWild(cs *constraints.Set, reason string, loc source.Location) {
	for _, a := range p.vars {
		cs.AddGeq(a, cs.Wild(), true, reason, loc)
	}

	if p.fv != nil {
		p.fv.ConstrainToWild(cs, reason, loc)
	}
}

// Atoms returns the owned atoms, recursing into any embedded function
// variable.
func (p *PVConstraint) Atoms() []*constraints.VarAtom {
	atoms := make([]*constraints.VarAtom, len(p.vars))
	copy(atoms, p.vars)

	if p.fv != nil {
		atoms = append(atoms, p.fv.Atoms()...)
	}

	return atoms
}

// BrainTransplant replaces this variable's atoms with another's, so that
// constraints later placed on either identity accumulate on one atom vector.
func (p *PVConstraint) BrainTransplant(old *PVConstraint) {
	p.vars = old.vars

	if p.fv != nil && old.fv != nil {
		p.fv.BrainTransplant(old.fv)
	}
}

// Dump returns the JSON view of this variable.
func (p *PVConstraint) Dump() Dump {
	d := Dump{Name: p.name, Generic: p.generic}
	//
	for _, a := range p.vars {
		d.Atoms = append(d.Atoms, a.String())
	}
	//
	if p.fv != nil {
		fd := p.fv.Dump()
		d.FunctionVariable = &fd
	}
	//
	return d
}

func (p *PVConstraint) String() string {
	var b strings.Builder
	//
	b.WriteString(p.name)
	b.WriteString(" [")
	//
	for i, a := range p.vars {
		if i != 0 {
			b.WriteString(" ")
		}

		b.WriteString(a.String())
	}
	//
	b.WriteString("]")
	//
	if p.fv != nil {
		b.WriteString(" -> ")
		b.WriteString(p.fv.String())
	}
	//
	return b.String()
}
