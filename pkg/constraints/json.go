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

// SetDump is the JSON view of a constraint set, embedded under the "Setup"
// key of the constraints document.
type SetDump struct {
	// Number of variable atoms minted.
	Atoms uint `json:"Atoms"`
	// Every constraint in insertion order, rendered textually.
	Constraints []ConstraintDump `json:"Constraints"`
}

// ConstraintDump is the JSON view of a single constraint.
type ConstraintDump struct {
	Constraint string `json:"Constraint"`
	Reason     string `json:"Reason,omitempty"`
	Location   string `json:"Location,omitempty"`
}

// Dump produces the JSON view of this set.
func (p *Set) Dump() SetDump {
	dump := SetDump{uint(len(p.vars)), make([]ConstraintDump, len(p.constraints))}
	//
	for i, c := range p.constraints {
		d := ConstraintDump{Constraint: c.String(), Reason: c.Reason()}
		if loc := c.Loc(); loc.Valid() {
			d.Location = loc.String()
		}
		//
		dump.Constraints[i] = d
	}
	//
	return dump
}
