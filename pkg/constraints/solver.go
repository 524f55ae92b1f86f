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

// Solve computes the least fixed point of the ordering constraints and
// implications held by this set.  Assignments only ever move upward, and the
// lattice has height two, so each round either fires a new implication or
// raises some atom at most twice; termination follows.
func (p *Set) Solve() {
	fired := make(map[*Implies]bool)
	//
	for changed := true; changed; {
		changed = false
		// Note: p.constraints grows as implications fire; the indexed loop
		// deliberately picks up conclusions added during this round.
		for i := 0; i < len(p.constraints); i++ {
			switch c := p.constraints[i].(type) {
			case *Geq:
				changed = p.propagate(c) || changed
			case *Implies:
				if !fired[c] && p.entails(c.premise) {
					fired[c] = true
					// Asserting the conclusion also installs its graph edge,
					// making the atom a successor of WILD for root-cause
					// attribution.
					p.AddGeq(c.conclusion.LHS(), c.conclusion.RHS(), c.conclusion.IsChecked(), c.reason, c.loc)
					changed = true
				}
			}
		}
	}
}

// propagate raises the left side of a Geq to include the current value of its
// right side, returning true if the assignment changed.  Facts whose left
// side is a constant impose no lower bound on anything and are inert here.
func (p *Set) propagate(g *Geq) bool {
	lhs, ok := g.LHS().(*VarAtom)
	if !ok {
		return false
	}
	//
	env := p.chkEnv
	if !g.IsChecked() {
		env = p.ptypEnv
	}
	//
	// An unbounded right side is the virtual bottom and raises nothing.
	if v, ok := g.RHS().(*VarAtom); ok && env[v.key] == nil {
		return false
	}
	//
	rhs := p.assignment(g.RHS(), env)
	//
	cur := env[lhs.key]
	if cur == nil {
		env[lhs.key] = rhs
		return true
	}
	//
	joined := p.consts[Join(cur.kind, rhs.kind)]
	if joined != cur {
		env[lhs.key] = joined
		return true
	}
	//
	return false
}

// entails reports whether the current assignment satisfies a Geq premise.
// Premises always compare against a constant right side.
func (p *Set) entails(g *Geq) bool {
	rhs, ok := g.RHS().(*ConstAtom)
	if !ok {
		panic("implication premise with variable right side")
	}
	//
	env := p.chkEnv
	if !g.IsChecked() {
		env = p.ptypEnv
	}
	// An unbounded left side entails nothing.
	if v, ok := g.LHS().(*VarAtom); ok && env[v.key] == nil {
		return false
	}
	//
	return rhs.kind.Leq(p.assignment(g.LHS(), env).kind)
}
