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
package ast

import (
	"github.com/checkedc/go-3c/pkg/source"
)

// Decl is any declarator declaration the front end hands to the core.  The
// front end guarantees one sighting per unique source location, and reports
// whether the declaration text originates inside a macro expansion (the core
// does not re-derive this from a source manager).
type Decl interface {
	// Name of the declared entity; may be empty for unnamed parameters.
	Name() string
	// Loc is the persistent source location of the declarator.
	Loc() source.Location
	// InMacro reports whether the declaration is inside a macro expansion.
	InMacro() bool
}

// VarDecl is a variable declaration, at file scope or local.
type VarDecl struct {
	VarName string
	VarType Type
	VarLoc  source.Location
	Macro   bool
	// Whether the variable has global storage.
	Global bool
	// Whether this sighting carries a definition (initialiser or tentative
	// definition), as opposed to a pure extern declaration.
	Defined bool
}

func (p *VarDecl) Name() string         { return p.VarName }
func (p *VarDecl) Loc() source.Location { return p.VarLoc }
func (p *VarDecl) InMacro() bool        { return p.Macro }

// Type returns the declared type.
func (p *VarDecl) Type() Type { return p.VarType }

// ParamDecl is one parameter of a function declaration.
type ParamDecl struct {
	ParamName string
	ParamType Type
	ParamLoc  source.Location
	Macro     bool
	// Optional interop type annotation.  When present, the external view of
	// the parameter follows this type while the body keeps the declared one.
	Itype Type
}

func (p *ParamDecl) Name() string         { return p.ParamName }
func (p *ParamDecl) Loc() source.Location { return p.ParamLoc }
func (p *ParamDecl) InMacro() bool        { return p.Macro }

// Type returns the declared type.
func (p *ParamDecl) Type() Type { return p.ParamType }

// FuncDecl is a function declaration or definition.
type FuncDecl struct {
	FuncName string
	Return   Type
	// Optional interop type annotation on the return.
	ReturnItype Type
	Params      []*ParamDecl
	FuncLoc     source.Location
	Macro       bool
	// Whether this sighting carries the function body.
	Body bool
	// Whether the function has internal linkage.
	Static bool
	// Number of generic type variables the function is declared with; zero
	// for ordinary functions.
	TypeParams uint
	// Whether the parameter list ends in an ellipsis.
	VarArgs bool
}

func (p *FuncDecl) Name() string         { return p.FuncName }
func (p *FuncDecl) Loc() source.Location { return p.FuncLoc }
func (p *FuncDecl) InMacro() bool        { return p.Macro }

// HasBody reports whether this sighting is a definition.
func (p *FuncDecl) HasBody() bool { return p.Body }

// IsGeneric reports whether the function carries type parameters.
func (p *FuncDecl) IsGeneric() bool { return p.TypeParams > 0 }

// FieldDecl is a field of a struct or union.
type FieldDecl struct {
	FieldName string
	FieldType Type
	FieldLoc  source.Location
	Macro     bool
}

func (p *FieldDecl) Name() string         { return p.FieldName }
func (p *FieldDecl) Loc() source.Location { return p.FieldLoc }
func (p *FieldDecl) InMacro() bool        { return p.Macro }

// Type returns the declared type.
func (p *FieldDecl) Type() Type { return p.FieldType }

// TypedefDecl introduces a typedef name.  The front end reports these so the
// core can decide whether uses of the name should unify.
type TypedefDecl struct {
	TypedefName string
	Underlying  Type
	TypedefLoc  source.Location
	Macro       bool
}

func (p *TypedefDecl) Name() string         { return p.TypedefName }
func (p *TypedefDecl) Loc() source.Location { return p.TypedefLoc }
func (p *TypedefDecl) InMacro() bool        { return p.Macro }

// TranslationUnit is one ingested source file together with the declarator
// declarations the front end found in it, in source order.
type TranslationUnit struct {
	// Main file of the translation unit.
	File string
	// All declarator declarations, flattened in visitation order.
	Decls []Decl
}

// Walk applies a visitor to every declaration of a translation unit in
// source order.
func (p *TranslationUnit) Walk(visit func(Decl)) {
	for _, d := range p.Decls {
		visit(d)
	}
}
