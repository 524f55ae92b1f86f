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
	"io"
	"sort"

	"github.com/segmentio/encoding/json"

	"github.com/checkedc/go-3c/pkg/constraints"
	"github.com/checkedc/go-3c/pkg/cvars"
	"github.com/checkedc/go-3c/pkg/source"
)

// VariableEntry is one location-keyed entry of the constraints document.
type VariableEntry struct {
	Line      string       `json:"line"`
	Variables []cvars.Dump `json:"Variables"`
}

// FunctionEntry is one external function of the constraints document.
type FunctionEntry struct {
	FuncName    string       `json:"FuncName"`
	Constraints []cvars.Dump `json:"Constraints"`
}

// StaticFileEntry is one file-scoped sighting of a static function.
type StaticFileEntry struct {
	FileName      string       `json:"FileName"`
	FVConstraints []cvars.Dump `json:"FVConstraints"`
}

// StaticFunctionEntry is one static function of the constraints document,
// with its per-file sightings.
type StaticFunctionEntry struct {
	FuncName    string            `json:"FuncName"`
	Constraints []StaticFileEntry `json:"Constraints"`
}

// InfoDump is the whole constraints document.
type InfoDump struct {
	Setup                       constraints.SetDump   `json:"Setup"`
	ConstraintVariables         []VariableEntry       `json:"ConstraintVariables"`
	ExternalFunctionDefinitions []FunctionEntry       `json:"ExternalFunctionDefinitions"`
	StaticFunctionDefinitions   []StaticFunctionEntry `json:"StaticFunctionDefinitions"`
}

// Dump produces the constraints document, with deterministic ordering.
func (p *Info) Dump() InfoDump {
	d := InfoDump{Setup: p.cs.Dump()}
	//
	locs := make([]source.Location, 0, len(p.variables))
	for loc := range p.variables {
		locs = append(locs, loc)
	}
	//
	sort.Slice(locs, func(i, j int) bool { return locs[i].Compare(locs[j]) < 0 })
	//
	for _, loc := range locs {
		d.ConstraintVariables = append(d.ConstraintVariables, VariableEntry{
			Line:      loc.String(),
			Variables: []cvars.Dump{p.variables[loc].Dump()},
		})
	}
	//
	for _, name := range sortedKeys(p.externalFunctionFVCons) {
		d.ExternalFunctionDefinitions = append(d.ExternalFunctionDefinitions, FunctionEntry{
			FuncName:    name,
			Constraints: []cvars.Dump{p.externalFunctionFVCons[name].Dump()},
		})
	}
	// Static functions group by name, with one entry per defining file.
	byName := make(map[string][]StaticFileEntry)
	//
	for _, file := range sortedKeys(p.staticFunctionFVCons) {
		funcs := p.staticFunctionFVCons[file]
		//
		for _, name := range sortedKeys(funcs) {
			byName[name] = append(byName[name], StaticFileEntry{
				FileName:      file,
				FVConstraints: []cvars.Dump{funcs[name].Dump()},
			})
		}
	}
	//
	for _, name := range sortedKeys(byName) {
		d.StaticFunctionDefinitions = append(d.StaticFunctionDefinitions, StaticFunctionEntry{
			FuncName:    name,
			Constraints: byName[name],
		})
	}
	//
	return d
}

// WriteJSON writes the constraints document to the given writer.
func (p *Info) WriteJSON(w io.Writer) error {
	bytes, err := json.Marshal(p.Dump())
	if err != nil {
		return err
	}
	//
	_, err = w.Write(bytes)
	//
	return err
}
