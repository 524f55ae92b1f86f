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
	"fmt"

	"github.com/checkedc/go-3c/pkg/source"
)

// Constraint is either a Geq ordering between two atoms, or an implication
// between two Geq facts.  Equality is not a separate shape; it is encoded as
// a pair of opposing Geq constraints.
type Constraint interface {
	fmt.Stringer
	// Reason returns the human-readable explanation attached to this
	// constraint, if any.
	Reason() string
	// Loc returns the source location this constraint originated from, which
	// may be invalid when no position is known.
	Loc() source.Location
}

// Geq asserts that its left-hand side is at least its right-hand side in the
// qualifier lattice.  The checked flag selects which of the two parallel
// constraint graphs the fact belongs to: checked-side facts drive the final
// qualifier solution, pointer-type-side facts carry type information across
// interop boundaries without forcing wildness.
type Geq struct {
	lhs Atom
	rhs Atom
	// Whether this constraint participates in checked-side propagation.
	checked bool
	reason  string
	// Further reasons accumulated through structural deduplication.  The
	// first-seen reason stays in reason and wins for display.
	moreReasons []string
	loc         source.Location
}

// LHS returns the greater side of this constraint.
func (p *Geq) LHS() Atom {
	return p.lhs
}

// RHS returns the lesser side of this constraint.
func (p *Geq) RHS() Atom {
	return p.rhs
}

// IsChecked reports whether this constraint belongs to the checked graph.
func (p *Geq) IsChecked() bool {
	return p.checked
}

// Reason returns the explanation attached to this constraint.
func (p *Geq) Reason() string {
	return p.reason
}

// Loc returns the source location of this constraint.
func (p *Geq) Loc() source.Location {
	return p.loc
}

// AllReasons returns every distinct reason attached to this constraint, with
// the displayed reason first.
func (p *Geq) AllReasons() []string {
	if p.reason == "" {
		return nil
	}

	return append([]string{p.reason}, p.moreReasons...)
}

func (p *Geq) String() string {
	side := "ptyp"
	if p.checked {
		side = "checked"
	}

	return fmt.Sprintf("%s >= %s [%s]", p.lhs.String(), p.rhs.String(), side)
}

// Implies fires its conclusion once its premise is entailed by the current
// assignment.  The only conclusion shape the engine ever produces is
// "atom >= WILD", and the solver relies on that.
type Implies struct {
	premise    *Geq
	conclusion *Geq
	reason     string
	loc        source.Location
}

// Premise returns the Geq which guards this implication.
func (p *Implies) Premise() *Geq {
	return p.premise
}

// Conclusion returns the Geq added to the system when the premise holds.
func (p *Implies) Conclusion() *Geq {
	return p.conclusion
}

// Reason returns the explanation attached to this constraint.
func (p *Implies) Reason() string {
	return p.reason
}

// Loc returns the source location of this constraint.
func (p *Implies) Loc() source.Location {
	return p.loc
}

func (p *Implies) String() string {
	return fmt.Sprintf("(%s) => (%s)", p.premise.String(), p.conclusion.String())
}

// NewGeq constructs a Geq fact without registering it in any store.  Use this
// to build the premise and conclusion of an implication; standalone facts
// should be added through Set.AddGeq instead.
func NewGeq(lhs Atom, rhs Atom, checked bool) *Geq {
	if lhs == nil || rhs == nil {
		panic("nil atom in constraint")
	}

	return &Geq{lhs: lhs, rhs: rhs, checked: checked}
}
