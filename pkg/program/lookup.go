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
package program

import (
	"fmt"

	"github.com/checkedc/go-3c/pkg/ast"
	"github.com/checkedc/go-3c/pkg/cvars"
	"github.com/checkedc/go-3c/pkg/source"
)

// GetVariable resolves the constraint variable of a declaration, or returns
// false when none has been installed.  Functions resolve by name through the
// linkage maps; everything else resolves by source location.
func (p *Info) GetVariable(d ast.Decl) (cvars.ConstraintVariable, bool) {
	if p.persisted {
		panic("GetVariable outside a compilation unit")
	}

	if fd, ok := d.(*ast.FuncDecl); ok {
		if f := p.GetFuncConstraint(fd); f != nil {
			return f, true
		}

		return nil, false
	}
	//
	cv, ok := p.variables[d.Loc()]
	//
	return cv, ok
}

// GetFuncConstraint resolves the function variable of a function sighting,
// or nil when the name has not been seen under the sighting's linkage.
func (p *Info) GetFuncConstraint(fd *ast.FuncDecl) *cvars.FVConstraint {
	if fd.Static {
		return p.getStaticFuncConstraint(fd.Name(), fd.Loc().File())
	}

	return p.getExtFuncDefnConstraint(fd.Name())
}

func (p *Info) getExtFuncDefnConstraint(name string) *cvars.FVConstraint {
	return p.externalFunctionFVCons[name]
}

func (p *Info) getStaticFuncConstraint(name string, file string) *cvars.FVConstraint {
	if m, ok := p.staticFunctionFVCons[file]; ok {
		return m[name]
	}

	return nil
}

// AddTypedef registers a typedef declaration.  Only checked typedefs unify
// their uses; an unchecked one (e.g. declared inside a macro) is recorded so
// repeated sightings stay silent.
func (p *Info) AddTypedef(loc source.Location, shouldCheck bool) {
	p.typedefVars[loc] = &typedefRecord{make(cvars.CVarSet), shouldCheck}
}

// SeenTypedef reports whether a typedef location has been registered.
func (p *Info) SeenTypedef(loc source.Location) bool {
	_, ok := p.typedefVars[loc]
	return ok
}

// LookupTypedef returns the variables unified under a typedef and whether
// the typedef is checked.
func (p *Info) LookupTypedef(loc source.Location) (cvars.CVarSet, bool) {
	if rec, ok := p.typedefVars[loc]; ok {
		return rec.vars, rec.shouldCheck
	}

	return nil, false
}

// StorePersistentConstraints caches the constraint variables of an
// expression for the rewriting pass.  Expressions inside macro expansions
// are never cached: distinct expressions can share one location there, and a
// stale cache entry would masquerade as a computed result.
func (p *Info) StorePersistentConstraints(loc source.Location, implicitCast bool,
	inMacro bool, vars cvars.CVarSet) {
	if !loc.Valid() || inMacro {
		return
	}
	//
	cache := p.exprCache(implicitCast)
	//
	if _, ok := cache[loc]; !ok {
		cache[loc] = make(cvars.CVarSet)
	}
	//
	cache[loc].InsertAll(vars)
}

// HasPersistentConstraints reports whether an expression has a cached
// constraint variable set.
func (p *Info) HasPersistentConstraints(loc source.Location, implicitCast bool) bool {
	if !loc.Valid() {
		return false
	}
	//
	vars, ok := p.exprCache(implicitCast)[loc]
	//
	return ok && len(vars) > 0
}

// GetPersistentConstraints returns the cached constraint variable set of an
// expression; the set must exist.
func (p *Info) GetPersistentConstraints(loc source.Location, implicitCast bool) cvars.CVarSet {
	vars, ok := p.exprCache(implicitCast)[loc]
	if !ok || len(vars) == 0 {
		panic(fmt.Sprintf("persistent constraints not present for %s", loc))
	}

	return vars
}

func (p *Info) exprCache(implicitCast bool) map[source.Location]cvars.CVarSet {
	if implicitCast {
		return p.implicitCastConstraintVars
	}

	return p.exprConstraintVars
}

// SetTypeParamBinding records the constraint variable bound to one type
// variable of a generic call.  A binding is written at most once per call
// site and index.
func (p *Info) SetTypeParamBinding(call source.Location, index uint, cv cvars.ConstraintVariable) {
	m, ok := p.typeParamBindings[call]
	if !ok {
		m = make(map[uint]cvars.ConstraintVariable)
		p.typeParamBindings[call] = m
	}

	if _, ok := m[index]; ok {
		panic(fmt.Sprintf("attempting to overwrite type param binding at %s index %d", call, index))
	}
	//
	m[index] = cv
}

// HasTypeParamBindings reports whether any binding was recorded for a call
// site.
func (p *Info) HasTypeParamBindings(call source.Location) bool {
	_, ok := p.typeParamBindings[call]
	return ok
}

// TypeParamBindings returns the bindings of a call site, by type variable
// index.  At rewrite time these supply the type arguments to instantiate.
func (p *Info) TypeParamBindings(call source.Location) map[uint]cvars.ConstraintVariable {
	m, ok := p.typeParamBindings[call]
	if !ok {
		panic(fmt.Sprintf("type parameter bindings could not be found for %s", call))
	}

	return m
}
