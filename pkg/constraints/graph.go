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
	"github.com/bits-and-blooms/bitset"
)

// Graph is a directed graph over atoms.  Nodes live in an arena and are
// addressed by dense integer indices, so traversal state fits in a bitset and
// cycles cause no ownership issues.  Edges added for a fact "L >= R" run from
// R to L; wildness therefore flows along edges, and everything transitively
// forced wild by an atom is reachable from it.
type Graph struct {
	// Arena of atom nodes.
	nodes []Atom
	// Maps each atom to its index in the arena.
	ids map[Atom]uint
	// Successor adjacency, indexed by node.
	succs [][]uint
	// Predecessor adjacency, indexed by node.
	preds [][]uint
}

// NewGraph constructs an empty graph.
func NewGraph() *Graph {
	return &Graph{nil, make(map[Atom]uint), nil, nil}
}

// AddEdge inserts a directed edge between two atoms, registering either atom
// in the arena on first sight.  Parallel edges are collapsed.
func (p *Graph) AddEdge(src Atom, dst Atom) {
	s := p.nodeOf(src)
	d := p.nodeOf(dst)
	//
	if !contains(p.succs[s], d) {
		p.succs[s] = append(p.succs[s], d)
		p.preds[d] = append(p.preds[d], s)
	}
}

// Successors returns the atoms directly reachable from a given atom.  An atom
// never registered in this graph has no successors.
func (p *Graph) Successors(a Atom) []Atom {
	id, ok := p.ids[a]
	if !ok {
		return nil
	}

	return p.atomsOf(p.succs[id])
}

// Predecessors returns the atoms with an edge into a given atom.
func (p *Graph) Predecessors(a Atom) []Atom {
	id, ok := p.ids[a]
	if !ok {
		return nil
	}

	return p.atomsOf(p.preds[id])
}

// VisitBreadthFirst walks all atoms reachable from start (start excluded) in
// breadth-first order, applying the visitor to each.
func (p *Graph) VisitBreadthFirst(start Atom, visit func(Atom)) {
	id, ok := p.ids[start]
	if !ok {
		return
	}
	//
	seen := bitset.New(uint(len(p.nodes)))
	seen.Set(id)
	worklist := []uint{id}
	//
	for len(worklist) > 0 {
		next := worklist[0]
		worklist = worklist[1:]
		//
		for _, s := range p.succs[next] {
			if !seen.Test(s) {
				seen.Set(s)
				visit(p.nodes[s])
				worklist = append(worklist, s)
			}
		}
	}
}

func (p *Graph) nodeOf(a Atom) uint {
	if id, ok := p.ids[a]; ok {
		return id
	}
	//
	id := uint(len(p.nodes))
	p.ids[a] = id
	p.nodes = append(p.nodes, a)
	p.succs = append(p.succs, nil)
	p.preds = append(p.preds, nil)
	//
	return id
}

func (p *Graph) atomsOf(ids []uint) []Atom {
	atoms := make([]Atom, len(ids))
	for i, id := range ids {
		atoms[i] = p.nodes[id]
	}

	return atoms
}

func contains(ids []uint, id uint) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}

	return false
}
