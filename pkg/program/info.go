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

// Package program aggregates the whole-program view of the inference: the
// location-keyed symbol tables, the cross-unit linker, and the post-solve
// root-cause state.  Constraint state lives here from the first declaration
// sighting until the rewriter has consumed the final assignment; per-unit
// parser state is only ever borrowed between EnterCompilationUnit and
// ExitCompilationUnit.
package program

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/checkedc/go-3c/pkg/ast"
	"github.com/checkedc/go-3c/pkg/constraints"
	"github.com/checkedc/go-3c/pkg/cvars"
	"github.com/checkedc/go-3c/pkg/source"
)

// Config carries the inference options the program tables depend on.
type Config struct {
	// Treat variadic functions soundly instead of constraining them wild.
	HandleVarArgs bool
	// Propagate pointer-type information through interop type annotations.
	EnableItypeProp bool
	// Function names assumed to be safe allocators; they are never
	// constrained wild for lacking a definition.
	Allocators []string
}

// DefaultAllocators are the allocator names always treated as safe externs.
var DefaultAllocators = []string{"malloc", "calloc", "realloc", "free"}

// Info owns all inference state of one run.
type Info struct {
	cs    *constraints.Set
	scope source.WriteScope
	cfg   Config
	// Whether the engine is between compilation units (no parser state may
	// be touched).
	persisted bool
	// One constraint variable per declaration location.
	variables map[source.Location]cvars.ConstraintVariable
	// Function variables with external linkage, by name.
	externalFunctionFVCons map[string]*cvars.FVConstraint
	// Function variables with internal linkage, by file then name.
	staticFunctionFVCons map[string]map[string]*cvars.FVConstraint
	// Pointer variables of global variables, by name, in sighting order.
	globalVariableSymbols map[string][]*cvars.PVConstraint
	// Whether a definition has been sighted for each global name.
	externGVars map[string]bool
	// Typedef unification state, keyed by the typedef's own location.
	typedefVars map[source.Location]*typedefRecord
	// Expression-level constraint caches for the rewriter.
	exprConstraintVars         map[source.Location]cvars.CVarSet
	implicitCastConstraintVars map[source.Location]cvars.CVarSet
	// Generic type argument bindings, by call site then type variable index.
	typeParamBindings map[source.Location]map[uint]cvars.ConstraintVariable
	// Post-solve root-cause state.
	state *ConstraintState
}

type typedefRecord struct {
	vars        cvars.CVarSet
	shouldCheck bool
}

// NewInfo constructs an empty program table set over a fresh constraint
// store.
func NewInfo(scope source.WriteScope, cfg Config) *Info {
	return &Info{
		cs:                         constraints.NewSet(),
		scope:                      scope,
		cfg:                        cfg,
		persisted:                  true,
		variables:                  make(map[source.Location]cvars.ConstraintVariable),
		externalFunctionFVCons:     make(map[string]*cvars.FVConstraint),
		staticFunctionFVCons:       make(map[string]map[string]*cvars.FVConstraint),
		globalVariableSymbols:      make(map[string][]*cvars.PVConstraint),
		externGVars:                make(map[string]bool),
		typedefVars:                make(map[source.Location]*typedefRecord),
		exprConstraintVars:         make(map[source.Location]cvars.CVarSet),
		implicitCastConstraintVars: make(map[source.Location]cvars.CVarSet),
		typeParamBindings:          make(map[source.Location]map[uint]cvars.ConstraintVariable),
		state:                      newConstraintState(),
	}
}

// Constraints returns the underlying constraint store.
func (p *Info) Constraints() *constraints.Set {
	return p.cs
}

// State returns the root-cause state computed by the last call to
// ComputeInterimConstraintState.
func (p *Info) State() *ConstraintState {
	return p.state
}

// EnterCompilationUnit marks parser state as live.  Operations that resolve
// declarations may only run between this call and ExitCompilationUnit.
func (p *Info) EnterCompilationUnit(file string) {
	if !p.persisted {
		panic("entering a compilation unit while another is live")
	}
	//
	log.Debugf("entering compilation unit %s", file)
	p.persisted = false
}

// ExitCompilationUnit tears down any claim on parser state.  Constraint
// state survives; only the bindings into the live AST are dropped.
func (p *Info) ExitCompilationUnit() {
	if p.persisted {
		panic("exiting a compilation unit without entering one")
	}
	//
	p.persisted = true
}

// AddVariable installs the constraint variable for one declarator
// declaration.  The front end calls this exactly once per unique source
// location sighting.  Merge conflicts between function sightings surface as
// errors; structural surprises panic.
func (p *Info) AddVariable(d ast.Decl) error {
	if p.persisted {
		panic("AddVariable outside a compilation unit")
	}

	ploc := d.Loc()
	if !ploc.Valid() {
		panic(fmt.Sprintf("declaration %q without a valid source location", d.Name()))
	}
	// Typedef declarations only register unification state.
	if td, ok := d.(*ast.TypedefDecl); ok {
		if !p.SeenTypedef(ploc) {
			p.AddTypedef(ploc, !td.InMacro() && ast.IsPointerLike(td.Underlying))
		}

		return nil
	}
	// Two declarations can share a source location when both spell out of
	// the same macro expansion.  Functions are exempt: their identity is
	// their name, and the same header prototype legitimately reappears
	// across units.
	if _, ok := p.variables[ploc]; ok {
		if fd, isFunc := d.(*ast.FuncDecl); isFunc {
			return p.readdFunction(fd)
		}
		// The colliding entry can no longer be trusted; the new sighting is
		// dropped.
		p.variables[ploc].ConstrainToWild(p.cs,
			"Duplicate source location. Possibly part of a macro.", ploc)
		//
		return nil
	}

	var newCV cvars.ConstraintVariable

	switch d := d.(type) {
	case *ast.FuncDecl:
		f, err := p.addFunction(d)
		if err != nil || f == nil {
			return err
		}

		newCV = f
	case *ast.VarDecl:
		if !ast.IsPointerLike(d.Type()) {
			return nil
		}

		pv := cvars.NewPointerVariable(p.cs, d.Name(), d.Type(), false)
		pv.SetValidDecl()
		p.unifyIfTypedef(d.Type(), pv)
		//
		if d.Global {
			if d.Defined {
				p.externGVars[d.Name()] = true
			} else if !p.externGVars[d.Name()] {
				p.externGVars[d.Name()] = false
			}

			p.globalVariableSymbols[d.Name()] = append(p.globalVariableSymbols[d.Name()], pv)
		}
		//
		p.specialCaseVarIntros(d.Type(), pv, ploc)
		newCV = pv
	case *ast.FieldDecl:
		if !ast.IsPointerLike(d.Type()) {
			return nil
		}

		pv := cvars.NewPointerVariable(p.cs, d.Name(), d.Type(), false)
		pv.SetValidDecl()
		p.unifyIfTypedef(d.Type(), pv)
		p.specialCaseVarIntros(d.Type(), pv, ploc)
		newCV = pv
	default:
		panic(fmt.Sprintf("unknown declaration shape %T", d))
	}
	//
	if !p.scope.CanWrite(ploc.File()) {
		newCV.ConstrainToWild(p.cs, "Declaration in non-writable file", ploc)
	}
	//
	p.constrainWildIfMacro(newCV, d)
	p.variables[ploc] = newCV
	//
	return nil
}

// addFunction installs a function sighting at a fresh source location,
// registering the function variable, its typedef unifications and the
// per-parameter variables.
func (p *Info) addFunction(fd *ast.FuncDecl) (*cvars.FVConstraint, error) {
	f := cvars.NewFunctionVariable(p.cs, fd)
	f.SetValidDecl()
	// Installing into the function maps may transplant the atoms of an
	// earlier sighting into f, so no constraint may be placed on f before
	// this point.
	if err := p.insertNewFVConstraint(fd, f); err != nil {
		return nil, err
	}
	//
	p.unifyIfTypedef(fd.Return, f.ExternalReturn())
	p.unifyIfTypedef(fd.Return, f.InternalReturn())
	//
	if fd.VarArgs && !p.cfg.HandleVarArgs {
		f.ConstrainToWild(p.cs, "Variadic function.", fd.Loc())
	}
	//
	for i, pd := range fd.Params {
		pvInt := f.InternalParam(i)
		pvExt := f.ExternalParam(i)
		p.unifyIfTypedef(pd.Type(), pvInt)
		p.unifyIfTypedef(pd.Type(), pvExt)
		pvInt.SetValidDecl()
		// The variable lives on the function, so the wild constraint applies
		// even when the location collides below.
		p.constrainWildIfMacro(pvExt, pd)
		p.specialCaseParamIntros(pd, pvInt)
		//
		psl := pd.Loc()
		if !psl.Valid() {
			continue
		}
		// A parameter can sit inside a macro when its function does not.
		if _, ok := p.variables[psl]; ok {
			continue
		}

		p.variables[psl] = pvInt
	}
	//
	return f, nil
}

// readdFunction handles a function sighting whose location collides with an
// existing entry.  When the name is unknown the function maps still need the
// sighting; when it is known, the earlier sighting has already been
// processed.
func (p *Info) readdFunction(fd *ast.FuncDecl) error {
	if p.GetFuncConstraint(fd) != nil {
		return nil
	}
	//
	f := cvars.NewFunctionVariable(p.cs, fd)
	f.SetValidDecl()
	//
	if err := p.insertNewFVConstraint(fd, f); err != nil {
		return err
	}
	//
	p.constrainWildIfMacro(f, fd)
	//
	return nil
}

// specialCaseVarIntros constrains shapes which can never be checked: va_list
// values and non-generic void pointers.
func (p *Info) specialCaseVarIntros(typ ast.Type, pv *cvars.PVConstraint, loc source.Location) {
	if ast.IsVaList(typ) {
		pv.ConstrainToWild(p.cs, "Variable type is va_list.", loc)
	} else if isVoidPointer(typ) && !pv.IsGeneric() {
		pv.ConstrainToWild(p.cs, "Variable type void.", loc)
	}
}

func (p *Info) specialCaseParamIntros(pd *ast.ParamDecl, pv *cvars.PVConstraint) {
	p.specialCaseVarIntros(pd.Type(), pv, pd.Loc())
}

// constrainWildIfMacro wilds a variable declared inside a macro expansion;
// the rewriter cannot edit macro text.
func (p *Info) constrainWildIfMacro(cv cvars.ConstraintVariable, d ast.Decl) {
	if d.InMacro() {
		cv.ConstrainToWild(p.cs, "Pointer in Macro declaration.", d.Loc())
	}
}

// unifyIfTypedef equates a pointer variable with all other variables spelled
// through the same checked typedef.
func (p *Info) unifyIfTypedef(typ ast.Type, pv *cvars.PVConstraint) {
	named, ok := typ.(*ast.Named)
	if !ok {
		return
	}

	rec, ok := p.typedefVars[named.DefLoc]
	if !ok || !rec.shouldCheck {
		return
	}
	//
	pv.SetTypedef(named.Name)
	cvars.ConstrainConsVarGeqAll(pv, rec.vars, p.cs, named.DefLoc, cvars.SameToSame, "")
	rec.vars.Insert(pv)
}

// isVoidPointer reports whether some indirection of a type points at void.
func isVoidPointer(typ ast.Type) bool {
	switch t := ast.Resolve(typ).(type) {
	case *ast.Pointer:
		return ast.IsVoid(t.Pointee) || isVoidPointer(t.Pointee)
	case *ast.Array:
		return isVoidPointer(t.Elem)
	}

	return false
}
