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
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/checkedc/go-3c/pkg/ast"
	"github.com/checkedc/go-3c/pkg/cvars"
	"github.com/checkedc/go-3c/pkg/source"
)

// DuplicateDefinitionError reports two bodies for one function symbol.
type DuplicateDefinitionError struct {
	// Function name.
	Name string
	// Location of the first sighted definition.
	First source.Location
	// Location of the conflicting definition.
	Second source.Location
}

func (e *DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("duplicate definition for function %s (%s and %s)", e.Name, e.First, e.Second)
}

// Link unifies the per-unit constraint state into a whole-program view.  It
// runs after every translation unit has been ingested: globals sharing a
// name are equated, undefined externs are wilded, and functions that never
// received a body have their signatures wilded except where a generic or
// allocator escape applies.
func (p *Info) Link() error {
	log.Debugf("linking %d global names, %d external functions",
		len(p.globalVariableSymbols), len(p.externalFunctionFVCons))
	// Equate all sightings of each global variable; extern declarations in
	// headers must solve identically to the definition.
	for _, name := range sortedKeys(p.globalVariableSymbols) {
		vars := p.globalVariableSymbols[name]
		//
		if len(vars) > 1 {
			log.Debugf("linking global variable %s (%d sightings)", name, len(vars))
		}

		for i := 0; i+1 < len(vars); i++ {
			cvars.ConstrainConsVarGeq(vars[i], vars[i+1], p.cs, source.Location{}, cvars.SameToSame, "")
		}
	}
	// A global without any definition lives outside the converted program;
	// nothing about it can be checked.
	for _, name := range sortedKeys(p.externGVars) {
		if p.externGVars[name] {
			continue
		}

		reason := fmt.Sprintf("External global variable %s has no definition", name)
		for _, pv := range p.globalVariableSymbols[name] {
			pv.ConstrainToWild(p.cs, reason, source.Location{})
		}
	}
	// Functions sighted but never defined are external code.  Their
	// signatures go wild, sparing generic views (they participate in type
	// parameter binding) and known allocators.
	for _, name := range sortedKeys(p.externalFunctionFVCons) {
		f := p.externalFunctionFVCons[name]
		//
		if f.HasBody() || p.isAllocator(name) {
			continue
		}

		reason := "Unchecked pointer in parameter or return of external function " + name
		p.constrainUnresolved(f, reason)
	}
	// Static functions without a body cannot even link as C, but keeping
	// them wild lets conversion proceed during development.
	for _, file := range sortedKeys(p.staticFunctionFVCons) {
		funcs := p.staticFunctionFVCons[file]
		//
		for _, name := range sortedKeys(funcs) {
			f := funcs[name]
			//
			if f.HasBody() {
				continue
			}

			reason := fmt.Sprintf(
				"Unchecked pointer in parameter or return of static function %s in %s", name, file)
			p.constrainUnresolved(f, reason)
		}
	}
	//
	return nil
}

func (p *Info) constrainUnresolved(f *cvars.FVConstraint, reason string) {
	// A generic slot spares both views: its checked identity comes from the
	// per-call-site binding, and the views of a non-itype slot are equated,
	// so wilding the internal one would drag the external down with it.
	if !f.ExternalReturn().IsGeneric() {
		f.InternalReturn().ConstrainToWild(p.cs, reason, source.Location{})
		f.ExternalReturn().ConstrainToWild(p.cs, reason, source.Location{})
	}

	for i := 0; i < f.NumParams(); i++ {
		if !f.ExternalParam(i).IsGeneric() {
			f.InternalParam(i).ConstrainToWild(p.cs, reason, source.Location{})
			f.ExternalParam(i).ConstrainToWild(p.cs, reason, source.Location{})
		}
	}
}

func (p *Info) isAllocator(name string) bool {
	for _, a := range DefaultAllocators {
		if a == name {
			return true
		}
	}

	for _, a := range p.cfg.Allocators {
		if a == name {
			return true
		}
	}

	return false
}

// insertNewFVConstraint routes a function sighting into the external or
// static map according to its linkage.
func (p *Info) insertNewFVConstraint(fd *ast.FuncDecl, f *cvars.FVConstraint) error {
	if !fd.Static {
		return p.insertIntoFunctionMap(p.externalFunctionFVCons, fd, f)
	}
	//
	file := fd.Loc().File()
	//
	m, ok := p.staticFunctionFVCons[file]
	if !ok {
		m = make(map[string]*cvars.FVConstraint)
		p.staticFunctionFVCons[file] = m
	}
	//
	return p.insertIntoFunctionMap(m, fd, f)
}

// insertIntoFunctionMap reconciles a new function sighting with whatever the
// map already holds under its name.  Atoms always end up shared between all
// sightings of one symbol: the new sighting adopts the atoms of the entry
// already in the map.  A definition, or a prototype more specific than a
// parameterless one, then takes over the map slot.
func (p *Info) insertIntoFunctionMap(m map[string]*cvars.FVConstraint,
	fd *ast.FuncDecl, newC *cvars.FVConstraint) error {
	name := fd.Name()
	//
	old, ok := m[name]
	if !ok {
		m[name] = newC
		return nil
	}

	if old.HasBody() {
		if newC.HasBody() {
			return &DuplicateDefinitionError{name, old.Loc(), fd.Loc()}
		}
		// A further prototype of an already-seen definition: adopt the
		// definition's atoms so later constraints land on them.
		newC.BrainTransplant(old)
		//
		return nil
	}

	if newC.HasBody() || (old.NumParams() == 0 && newC.NumParams() != 0) {
		// The new sighting is a definition, or strictly more specific than a
		// parameterless prototype; it takes over the map slot with the old
		// atoms folded in.
		newC.BrainTransplant(old)
		m[name] = newC
		//
		return nil
	}
	//
	return old.MergeDeclaration(newC, fd.Loc())
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	//
	sort.Strings(keys)
	//
	return keys
}
