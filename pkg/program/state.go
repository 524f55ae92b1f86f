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
	"sort"

	"github.com/checkedc/go-3c/pkg/constraints"
	"github.com/checkedc/go-3c/pkg/cvars"
	"github.com/checkedc/go-3c/pkg/source"
)

// AtomKey identifies a variable atom within the root-cause state.
type AtomKey = uint32

// KeySet is a set of atom keys.
type KeySet map[AtomKey]struct{}

// Insert adds a key to the set.
func (p KeySet) Insert(k AtomKey) {
	p[k] = struct{}{}
}

// Contains reports membership.
func (p KeySet) Contains(k AtomKey) bool {
	_, ok := p[k]
	return ok
}

// Sorted returns the keys in ascending order.
func (p KeySet) Sorted() []AtomKey {
	keys := make([]AtomKey, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	//
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	//
	return keys
}

// WildInfo explains why an atom was directly forced wild.
type WildInfo struct {
	// Reason string recorded on the wilding constraint.
	Reason string
	// Where the wilding happened, falling back to the atom's own
	// declaration when the constraint carries no location.
	Loc source.Location
}

// ConstraintState is the post-solve root-cause view: which atoms went wild,
// which of those sit in writable source, and which directly-wilded atom each
// one traces back to.
type ConstraintState struct {
	// Atoms with a direct edge from the WILD constant.
	AllWildAtoms KeySet
	// Direct wild atoms restricted to writable files.
	InSrcWildAtoms KeySet
	// Atoms wild only transitively.
	TotalNonDirectWildAtoms KeySet
	// Transitively wild atoms restricted to writable files.
	InSrcNonDirectWildAtoms KeySet
	// Maps each affected atom to the direct wild atoms it traces back to.
	RCMap map[AtomKey]KeySet
	// Maps each direct wild atom to everything it drags wild.
	SrcWMap map[AtomKey]KeySet
	// Reason and location of each direct wilding.
	RootWildAtomsWithReason map[AtomKey]WildInfo
	// Source location of each atom, restricted to writable files.
	AtomSourceMap map[AtomKey]source.Location
	// Writable files containing at least one tracked pointer.
	ValidSourceFiles map[string]struct{}
	// Pointer-level projection of RCMap, keyed by owning variable.
	PtrRCMap map[cvars.ConstraintVariable]KeySet
	// Pointer-level projection of SrcWMap.
	PtrSrcWMap map[AtomKey]cvars.CVarSet
}

func newConstraintState() *ConstraintState {
	return &ConstraintState{
		AllWildAtoms:            make(KeySet),
		InSrcWildAtoms:          make(KeySet),
		TotalNonDirectWildAtoms: make(KeySet),
		InSrcNonDirectWildAtoms: make(KeySet),
		RCMap:                   make(map[AtomKey]KeySet),
		SrcWMap:                 make(map[AtomKey]KeySet),
		RootWildAtomsWithReason: make(map[AtomKey]WildInfo),
		AtomSourceMap:           make(map[AtomKey]source.Location),
		ValidSourceFiles:        make(map[string]struct{}),
		PtrRCMap:                make(map[cvars.ConstraintVariable]KeySet),
		PtrSrcWMap:              make(map[AtomKey]cvars.CVarSet),
	}
}

// ComputeInterimConstraintState partitions the wild atoms of the solved
// system into direct and transitive ones and attributes every transitively
// wild atom to the direct wildings that reach it through the checked graph.
func (p *Info) ComputeInterimConstraintState() {
	p.state = newConstraintState()
	// Collect the atoms of valid declarations; those in writable files form
	// the in-source restriction.
	allValid := make(map[*constraints.VarAtom]struct{})
	validKeys := make(KeySet)
	//
	for loc, cv := range p.variables {
		if !cv.IsForValidDecl() {
			continue
		}

		for _, a := range cv.Atoms() {
			allValid[a] = struct{}{}

			if p.scope.CanWrite(loc.File()) {
				validKeys.Insert(a.Key())
			}
		}
	}
	// Atoms with a direct WILD edge are the root causes.
	chk := p.cs.ChkGraph()
	//
	var direct []*constraints.VarAtom

	for _, a := range chk.Successors(p.cs.Wild()) {
		if va, ok := a.(*constraints.VarAtom); ok {
			direct = append(direct, va)
		}
	}
	//
	sort.Slice(direct, func(i, j int) bool { return direct[i].Key() < direct[j].Key() })
	// Implication firing wires the conclusion to WILD, but the logical flow
	// of wildness runs from the premise's pointer to the conclusion's.  The
	// auxiliary map lets blame follow that step.
	impMap := make(map[constraints.Atom][]constraints.Atom)
	//
	for _, c := range p.cs.All() {
		if imp, ok := c.(*constraints.Implies); ok {
			pre := imp.Premise().LHS()
			impMap[pre] = append(impMap[pre], imp.Conclusion().LHS())
		}
	}
	//
	for _, va := range direct {
		group := make(KeySet)
		visitor := func(a constraints.Atom) {
			sva, ok := a.(*constraints.VarAtom)
			if !ok {
				return
			}

			if _, ok := allValid[sva]; ok {
				p.rcInsert(sva.Key(), va.Key())
				group.Insert(sva.Key())
			}
		}
		//
		chk.VisitBreadthFirst(va, visitor)
		//
		for _, con := range impMap[va] {
			if _, ok := con.(*constraints.VarAtom); ok {
				chk.VisitBreadthFirst(con, visitor)
			}
		}
		//
		for k := range group {
			p.state.TotalNonDirectWildAtoms.Insert(k)
		}
		//
		p.state.AllWildAtoms.Insert(va.Key())
		//
		if _, ok := p.state.SrcWMap[va.Key()]; !ok {
			p.state.SrcWMap[va.Key()] = make(KeySet)
		}

		for k := range group {
			p.state.SrcWMap[va.Key()].Insert(k)
		}
	}
	//
	intersect(p.state.AllWildAtoms, validKeys, p.state.InSrcWildAtoms)
	intersect(p.state.TotalNonDirectWildAtoms, validKeys, p.state.InSrcNonDirectWildAtoms)
	// Atom locations back the per-pointer reports and the reason fallback.
	for loc, cv := range p.variables {
		p.insertIntoPtrSourceMap(loc, cv)
	}

	for loc, set := range p.exprConstraintVars {
		for cv := range set {
			p.insertIntoPtrSourceMap(loc, cv)
		}
	}
	// Record why each direct wilding happened.
	for _, c := range p.cs.All() {
		geq, ok := c.(*constraints.Geq)
		if !ok || !geq.IsChecked() {
			continue
		}

		lhs, lok := geq.LHS().(*constraints.VarAtom)
		rhs, rok := geq.RHS().(*constraints.ConstAtom)
		//
		if !lok || !rok || rhs.Kind() != constraints.Wild {
			continue
		}
		//
		loc := geq.Loc()
		if !loc.Valid() {
			if aloc, ok := p.state.AtomSourceMap[lhs.Key()]; ok && aloc.Valid() {
				loc = aloc
			}
		}
		//
		if _, ok := p.state.RootWildAtomsWithReason[lhs.Key()]; !ok {
			p.state.RootWildAtomsWithReason[lhs.Key()] = WildInfo{geq.Reason(), loc}
		}
	}
	//
	p.computePtrLevelStats()
}

func (p *Info) rcInsert(affected AtomKey, cause AtomKey) {
	if _, ok := p.state.RCMap[affected]; !ok {
		p.state.RCMap[affected] = make(KeySet)
	}

	p.state.RCMap[affected].Insert(cause)
}

func (p *Info) insertIntoPtrSourceMap(loc source.Location, cv cvars.ConstraintVariable) {
	if !p.scope.CanWrite(loc.File()) {
		return
	}

	p.state.ValidSourceFiles[loc.File()] = struct{}{}
	//
	for _, a := range cv.Atoms() {
		p.state.AtomSourceMap[a.Key()] = loc
	}
}

// computePtrLevelStats projects the atom-level blame maps up to their owning
// constraint variables for user-facing reports.
func (p *Info) computePtrLevelStats() {
	atomOwner := make(map[AtomKey]cvars.ConstraintVariable)
	//
	for _, cv := range p.variables {
		for _, a := range cv.Atoms() {
			atomOwner[a.Key()] = cv
		}
	}
	//
	for affected, causes := range p.state.RCMap {
		cv, ok := atomOwner[affected]
		if !ok {
			continue
		}

		if _, ok := p.state.PtrRCMap[cv]; !ok {
			p.state.PtrRCMap[cv] = make(KeySet)
		}

		for c := range causes {
			p.state.PtrRCMap[cv].Insert(c)
		}
	}
	//
	for cause, affected := range p.state.SrcWMap {
		for k := range affected {
			cv, ok := atomOwner[k]
			if !ok {
				continue
			}

			if _, ok := p.state.PtrSrcWMap[cause]; !ok {
				p.state.PtrSrcWMap[cause] = make(cvars.CVarSet)
			}

			p.state.PtrSrcWMap[cause].Insert(cv)
		}
	}
}

func intersect(a KeySet, b KeySet, out KeySet) {
	for k := range a {
		if b.Contains(k) {
			out.Insert(k)
		}
	}
}
