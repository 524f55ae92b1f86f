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
package source

import (
	"fmt"
	"strings"
)

// Location identifies a point in the original program text by file, line and
// column.  Unlike a raw AST pointer, a Location remains stable across
// translation units and AST rebuilds, which is what allows inference state to
// outlive any single compilation unit.
type Location struct {
	// File name (as spelled by the front end) containing this location.
	file string
	// Line number, counting from 1.
	line uint
	// Column number, counting from 1.
	col uint
}

// NewLocation constructs a location from its file, line and column.
func NewLocation(file string, line uint, col uint) Location {
	return Location{file, line, col}
}

// File returns the file name of this location.
func (p Location) File() string {
	return p.file
}

// Line returns the line number of this location, counting from 1.
func (p Location) Line() uint {
	return p.line
}

// Column returns the column number of this location, counting from 1.
func (p Location) Column() uint {
	return p.col
}

// Valid reports whether this location actually points into a file.  The zero
// location is invalid and is used wherever no source position is known.
func (p Location) Valid() bool {
	return p.file != "" && p.line > 0
}

// Compare provides a total ordering over locations, suitable for producing
// deterministic output from location-keyed tables.
func (p Location) Compare(o Location) int {
	if c := strings.Compare(p.file, o.file); c != 0 {
		return c
	}

	if p.line != o.line {
		if p.line < o.line {
			return -1
		}

		return 1
	}

	if p.col != o.col {
		if p.col < o.col {
			return -1
		}

		return 1
	}

	return 0
}

func (p Location) String() string {
	return fmt.Sprintf("%s:%d:%d", p.file, p.line, p.col)
}
