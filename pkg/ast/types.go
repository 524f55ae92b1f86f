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

// Package ast defines the slice of the C type and declaration surface that
// the inference core consumes.  The real parser front end lowers clang-style
// declarations into these shapes; the core never sees raw parser state, which
// is what allows constraint state to persist across translation units.
package ast

import (
	"github.com/checkedc/go-3c/pkg/source"
)

// Type models a C type as far as qualifier inference cares: how many pointer
// indirections it has, whether a function type sits underneath, and whether
// it bottoms out in a type variable of a generic function.
type Type interface {
	isType()
}

// Base is a non-pointer leaf type such as "int" or "void".
type Base struct {
	// Type name as spelled, e.g. "int", "char", "void", "va_list".
	Name string
}

// Pointer is one level of indirection over its pointee.
type Pointer struct {
	Pointee Type
}

// Array is a C array type.  For inference purposes an array declarator
// behaves as one pointer level; the size is retained for the rewriter.
type Array struct {
	// Number of elements, zero when unsized.
	Size uint
	Elem Type
}

// Function is a function type, reachable through pointer levels when a
// declaration has function-pointer shape.
type Function struct {
	Return Type
	Params []Type
	// Whether the parameter list ends in an ellipsis.
	VarArgs bool
}

// Named is a use of a typedef name.  DefLoc identifies the typedef
// declaration itself, which is the key under which all uses unify.
type Named struct {
	Name string
	// Location of the typedef declaration.
	DefLoc source.Location
	// The type the name abbreviates.
	Underlying Type
}

// TypeVar is an occurrence of a generic type variable within the signature of
// a function declared with type parameters.
type TypeVar struct {
	// Index of the variable in the enclosing function's parameter list of
	// type variables.
	Index uint
}

func (p *Base) isType()     {}
func (p *Pointer) isType()  {}
func (p *Array) isType()    {}
func (p *Function) isType() {}
func (p *Named) isType()    {}
func (p *TypeVar) isType()  {}

// Resolve strips typedef indirection from a type.
func Resolve(t Type) Type {
	for {
		n, ok := t.(*Named)
		if !ok {
			return t
		}

		t = n.Underlying
	}
}

// IsVoid reports whether a type is exactly "void" (not a pointer to void).
func IsVoid(t Type) bool {
	b, ok := Resolve(t).(*Base)
	return ok && b.Name == "void"
}

// IsVaList reports whether a type is the variadic argument list type.
func IsVaList(t Type) bool {
	switch t := t.(type) {
	case *Base:
		return t.Name == "va_list" || t.Name == "__builtin_va_list"
	case *Named:
		return t.Name == "va_list" || IsVaList(t.Underlying)
	}

	return false
}

// IsPointerLike reports whether a type contributes at least one inference
// atom, i.e. whether it is a pointer or array type under any typedefs.
func IsPointerLike(t Type) bool {
	switch Resolve(t).(type) {
	case *Pointer, *Array:
		return true
	}

	return false
}

// HasTypeVar reports whether a type mentions a generic type variable at any
// depth.
func HasTypeVar(t Type) bool {
	switch t := t.(type) {
	case *TypeVar:
		return true
	case *Pointer:
		return HasTypeVar(t.Pointee)
	case *Array:
		return HasTypeVar(t.Elem)
	case *Named:
		return HasTypeVar(t.Underlying)
	case *Function:
		if HasTypeVar(t.Return) {
			return true
		}

		for _, p := range t.Params {
			if HasTypeVar(p) {
				return true
			}
		}
	}

	return false
}
