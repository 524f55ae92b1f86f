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

import (
	"github.com/checkedc/go-3c/pkg/source"
)

// Set owns every atom and constraint of one inference run.  It interns the
// four lattice constants, mints variable atoms, deduplicates constraints
// structurally, and maintains the two parallel constraint graphs together
// with the current assignment of each variable atom.
type Set struct {
	// All variable atoms, indexed by key.
	vars []*VarAtom
	// Interned lattice constants.
	consts [4]*ConstAtom
	// All constraints, in insertion order.
	constraints []Constraint
	// Structural index of Geq constraints for deduplication.
	geqIndex map[geqKey]*Geq
	// Structural index of implications for deduplication.
	impIndex map[impKey]*Implies
	// Checked-side assignment, indexed by variable key.  A nil entry is the
	// virtual bottom.
	chkEnv []*ConstAtom
	// Pointer-type-side assignment, indexed by variable key.
	ptypEnv []*ConstAtom
	// Checked-side constraint graph.
	chkGraph *Graph
	// Pointer-type-side constraint graph.
	ptypGraph *Graph
}

type geqKey struct {
	lhs     Atom
	rhs     Atom
	checked bool
}

type impKey struct {
	premise    geqKey
	conclusion geqKey
}

// NewSet constructs an empty constraint set.
func NewSet() *Set {
	s := &Set{
		geqIndex:  make(map[geqKey]*Geq),
		impIndex:  make(map[impKey]*Implies),
		chkGraph:  NewGraph(),
		ptypGraph: NewGraph(),
	}
	//
	for _, k := range []Kind{Ptr, NTArr, Arr, Wild} {
		s.consts[k] = &ConstAtom{k}
	}
	//
	return s
}

// MkVar mints a fresh variable atom owned by this set.
func (p *Set) MkVar() *VarAtom {
	v := &VarAtom{uint32(len(p.vars))}
	p.vars = append(p.vars, v)
	p.chkEnv = append(p.chkEnv, nil)
	p.ptypEnv = append(p.ptypEnv, nil)
	//
	return v
}

// ConstantOf returns the interned constant atom for a given kind.
func (p *Set) ConstantOf(k Kind) *ConstAtom {
	return p.consts[k]
}

// Wild returns the interned top constant.
func (p *Set) Wild() *ConstAtom {
	return p.consts[Wild]
}

// Vars returns all variable atoms minted so far, in key order.
func (p *Set) Vars() []*VarAtom {
	return p.vars
}

// All returns every constraint added so far, in insertion order.
func (p *Set) All() []Constraint {
	return p.constraints
}

// Size returns the number of constraints held (after deduplication).
func (p *Set) Size() uint {
	return uint(len(p.constraints))
}

// AddGeq records the fact lhs >= rhs on the side selected by checked.  A
// structurally identical fact is not recorded twice; its reasons are unioned
// with the first insertion winning for display.  Returns the surviving
// constraint.
func (p *Set) AddGeq(lhs Atom, rhs Atom, checked bool, reason string, loc source.Location) *Geq {
	key := geqKey{lhs, rhs, checked}
	//
	if g, ok := p.geqIndex[key]; ok {
		g.mergeReason(reason)
		return g
	}
	//
	g := &Geq{lhs: lhs, rhs: rhs, checked: checked, reason: reason, loc: loc}
	p.geqIndex[key] = g
	p.constraints = append(p.constraints, g)
	// Edges run from the lesser element to the greater, making WILD a source
	// whose successors are exactly the directly-wild atoms.
	p.graphOf(checked).AddEdge(rhs, lhs)
	//
	return g
}

// AddEq records bidirectional ordering between two atoms on the given side.
func (p *Set) AddEq(lhs Atom, rhs Atom, checked bool, reason string, loc source.Location) {
	p.AddGeq(lhs, rhs, checked, reason, loc)
	p.AddGeq(rhs, lhs, checked, reason, loc)
}

// AddImplies records an implication between two Geq facts.  Neither side is
// asserted by itself; the conclusion enters the system only when the solver
// finds the premise entailed.
func (p *Set) AddImplies(premise *Geq, conclusion *Geq, reason string, loc source.Location) *Implies {
	key := impKey{
		geqKey{premise.lhs, premise.rhs, premise.checked},
		geqKey{conclusion.lhs, conclusion.rhs, conclusion.checked},
	}
	//
	if imp, ok := p.impIndex[key]; ok {
		return imp
	}
	//
	imp := &Implies{premise, conclusion, reason, loc}
	p.impIndex[key] = imp
	p.constraints = append(p.constraints, imp)
	//
	return imp
}

// Assignment returns the checked-side solution for an atom.  Constants are
// their own solution; a variable atom with no lower bound solves to the most
// precise kind.
func (p *Set) Assignment(a Atom) *ConstAtom {
	return p.assignment(a, p.chkEnv)
}

// PtypAssignment returns the pointer-type-side solution for an atom.
func (p *Set) PtypAssignment(a Atom) *ConstAtom {
	return p.assignment(a, p.ptypEnv)
}

// IsBounded reports whether a variable atom has a checked-side lower bound.
// An unbounded atom is the virtual bottom, although Assignment reads it out
// as PTR.
func (p *Set) IsBounded(a *VarAtom) bool {
	return p.chkEnv[a.key] != nil
}

// ChkGraph returns the checked-side constraint graph.
func (p *Set) ChkGraph() *Graph {
	return p.chkGraph
}

// PtypGraph returns the pointer-type-side constraint graph.
func (p *Set) PtypGraph() *Graph {
	return p.ptypGraph
}

func (p *Set) assignment(a Atom, env []*ConstAtom) *ConstAtom {
	switch a := a.(type) {
	case *ConstAtom:
		return a
	case *VarAtom:
		if c := env[a.key]; c != nil {
			return c
		}
		// Bottom collapses to the most precise checked kind.
		return p.consts[Ptr]
	}
	//
	panic("unknown atom shape")
}

func (p *Set) graphOf(checked bool) *Graph {
	if checked {
		return p.chkGraph
	}

	return p.ptypGraph
}

func (p *Geq) mergeReason(reason string) {
	if reason == "" {
		return
	}
	//
	if p.reason == "" {
		p.reason = reason
		return
	}
	//
	for _, r := range p.moreReasons {
		if r == reason {
			return
		}
	}
	//
	if p.reason != reason {
		p.moreReasons = append(p.moreReasons, reason)
	}
}
