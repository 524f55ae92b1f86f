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
package cvars

import (
	"testing"

	"github.com/checkedc/go-3c/pkg/ast"
	"github.com/checkedc/go-3c/pkg/constraints"
	"github.com/checkedc/go-3c/pkg/source"
)

func Test_PointerVariable_01(t *testing.T) {
	// One atom per indirection, outermost first.
	cs := constraints.NewSet()
	p := NewPointerVariable(cs, "p", ptrTo(ptrTo(base("int"))), false)
	//
	if len(p.Cvars()) != 2 {
		t.Errorf("expected 2 atoms for int**, got %d", len(p.Cvars()))
	}

	if p.IsGeneric() || p.FV() != nil {
		t.Errorf("plain pointer should be neither generic nor a function pointer")
	}
}

func Test_PointerVariable_02(t *testing.T) {
	// Arrays count as one indirection each.
	cs := constraints.NewSet()
	p := NewPointerVariable(cs, "buf", &ast.Array{Size: 5, Elem: ptrTo(base("char"))}, false)
	//
	if len(p.Cvars()) != 2 {
		t.Errorf("expected 2 atoms for char *buf[5], got %d", len(p.Cvars()))
	}
}

func Test_PointerVariable_03(t *testing.T) {
	// Typedef indirection does not change the atom count.
	cs := constraints.NewSet()
	named := &ast.Named{Name: "intp", DefLoc: loc("a.c", 1), Underlying: ptrTo(base("int"))}
	p := NewPointerVariable(cs, "p", named, false)
	//
	if len(p.Cvars()) != 1 {
		t.Errorf("expected 1 atom through typedef, got %d", len(p.Cvars()))
	}
}

func Test_PointerVariable_04(t *testing.T) {
	// A pointer to a type variable is generic and still owns its atom.
	cs := constraints.NewSet()
	p := NewPointerVariable(cs, "x", ptrTo(&ast.TypeVar{Index: 0}), true)
	//
	if !p.IsGeneric() {
		t.Errorf("pointer to type variable should be generic")
	}

	if len(p.Cvars()) != 1 {
		t.Errorf("expected 1 atom, got %d", len(p.Cvars()))
	}
}

func Test_PointerVariable_05(t *testing.T) {
	// Function pointers embed a function variable.
	cs := constraints.NewSet()
	ft := &ast.Function{Return: ptrTo(base("int")), Params: []ast.Type{ptrTo(base("char"))}}
	p := NewPointerVariable(cs, "cb", ptrTo(ft), false)
	//
	if p.FV() == nil {
		t.Fatalf("expected embedded function variable")
	}

	if p.FV().NumParams() != 1 {
		t.Errorf("expected 1 parameter, got %d", p.FV().NumParams())
	}
}

func Test_ConstrainToWild_01(t *testing.T) {
	// Wilding a function pointer reaches the embedded signature.
	cs := constraints.NewSet()
	ft := &ast.Function{Return: ptrTo(base("int")), Params: []ast.Type{ptrTo(base("char"))}}
	p := NewPointerVariable(cs, "cb", ptrTo(ft), false)
	p.ConstrainToWild(cs, "test", source.Location{})
	cs.Solve()
	//
	for _, a := range p.Atoms() {
		if cs.Assignment(a).Kind() != constraints.Wild {
			t.Errorf("atom %s should be WILD", a)
		}
	}
}

func Test_ConstrainGeq_01(t *testing.T) {
	// SameToSame propagates checked kinds in both directions.
	cs := constraints.NewSet()
	p := NewPointerVariable(cs, "p", ptrTo(base("int")), false)
	q := NewPointerVariable(cs, "q", ptrTo(base("int")), false)
	ConstrainConsVarGeq(p, q, cs, source.Location{}, SameToSame, "assign")
	cs.AddGeq(q.Cvars()[0], cs.ConstantOf(constraints.Arr), true, "", source.Location{})
	cs.Solve()
	//
	if cs.Assignment(p.Cvars()[0]).Kind() != constraints.Arr {
		t.Errorf("ARR should flow to p under SameToSame")
	}
}

func Test_ConstrainGeq_02(t *testing.T) {
	// WildToSame propagates wildness up but not safety back.
	cs := constraints.NewSet()
	p := NewPointerVariable(cs, "p", ptrTo(base("int")), false)
	q := NewPointerVariable(cs, "q", ptrTo(base("int")), false)
	ConstrainConsVarGeq(p, q, cs, source.Location{}, WildToSame, "assign")
	cs.AddGeq(q.Cvars()[0], cs.Wild(), true, "", source.Location{})
	cs.AddGeq(p.Cvars()[0], cs.ConstantOf(constraints.NTArr), true, "", source.Location{})
	cs.Solve()
	//
	if cs.Assignment(p.Cvars()[0]).Kind() != constraints.Wild {
		t.Errorf("wildness of q should reach p")
	}

	if cs.Assignment(q.Cvars()[0]).Kind() != constraints.Wild {
		t.Errorf("q itself should stay WILD")
	}
}

func Test_ConstrainGeq_03(t *testing.T) {
	// WildToSame never raises the lesser side from the greater side's bound.
	cs := constraints.NewSet()
	p := NewPointerVariable(cs, "p", ptrTo(base("int")), false)
	q := NewPointerVariable(cs, "q", ptrTo(base("int")), false)
	ConstrainConsVarGeq(p, q, cs, source.Location{}, WildToSame, "assign")
	cs.AddGeq(p.Cvars()[0], cs.ConstantOf(constraints.Arr), true, "", source.Location{})
	cs.Solve()
	//
	if cs.Assignment(q.Cvars()[0]).Kind() != constraints.Ptr {
		t.Errorf("ARR bound on p should not reach q under WildToSame")
	}
}

func Test_ConstrainGeq_04(t *testing.T) {
	// SafeToWild stays on the pointer-type side: checked solutions are
	// unaffected.
	cs := constraints.NewSet()
	p := NewPointerVariable(cs, "p", ptrTo(base("int")), false)
	q := NewPointerVariable(cs, "q", ptrTo(base("int")), false)
	ConstrainConsVarGeq(p, q, cs, source.Location{}, SafeToWild, "itype")
	cs.AddGeq(q.Cvars()[0], cs.Wild(), true, "", source.Location{})
	cs.Solve()
	//
	if cs.Assignment(p.Cvars()[0]).Kind() != constraints.Ptr {
		t.Errorf("checked wildness should not cross a SafeToWild link")
	}
}

func Test_ConstrainGeq_05(t *testing.T) {
	// Inner pointer levels are invariant even under WildToSame.
	cs := constraints.NewSet()
	p := NewPointerVariable(cs, "p", ptrTo(ptrTo(base("int"))), false)
	q := NewPointerVariable(cs, "q", ptrTo(ptrTo(base("int"))), false)
	ConstrainConsVarGeq(p, q, cs, source.Location{}, WildToSame, "assign")
	cs.AddGeq(p.Cvars()[1], cs.Wild(), true, "", source.Location{})
	cs.Solve()
	//
	if cs.Assignment(q.Cvars()[1]).Kind() != constraints.Wild {
		t.Errorf("inner level should be invariant")
	}

	if cs.Assignment(q.Cvars()[0]).Kind() != constraints.Ptr {
		t.Errorf("outer level of q should be unaffected")
	}
}

func Test_ConstrainGeq_06(t *testing.T) {
	// Mismatched pointer depths wild the surplus levels.
	cs := constraints.NewSet()
	p := NewPointerVariable(cs, "p", ptrTo(ptrTo(base("int"))), false)
	q := NewPointerVariable(cs, "q", ptrTo(base("int")), false)
	ConstrainConsVarGeq(p, q, cs, source.Location{}, SameToSame, "assign")
	cs.Solve()
	//
	if cs.Assignment(p.Cvars()[1]).Kind() != constraints.Wild {
		t.Errorf("surplus level should be WILD")
	}
}

func Test_ConstrainGeq_07(t *testing.T) {
	// Function-to-function constraints are contravariant in parameters.
	cs := constraints.NewSet()
	fd1 := funcDecl("f", false, param("a", ptrTo(base("int"))))
	fd2 := funcDecl("g", false, param("b", ptrTo(base("int"))))
	f1 := NewFunctionVariable(cs, fd1)
	f2 := NewFunctionVariable(cs, fd2)
	ConstrainConsVarGeq(f1, f2, cs, source.Location{}, WildToSame, "fnptr assign")
	// Wild the receiving side's parameter; contravariance should carry it to
	// the source side.
	cs.AddGeq(f1.ExternalParam(0).Cvars()[0], cs.Wild(), true, "", source.Location{})
	cs.Solve()
	//
	if cs.Assignment(f2.ExternalParam(0).Cvars()[0]).Kind() != constraints.Wild {
		t.Errorf("parameter wildness should flow contravariantly")
	}
}

func Test_BrainTransplant_01(t *testing.T) {
	// After a transplant both identities share atoms pointwise.
	cs := constraints.NewSet()
	fd1 := funcDecl("f", true, param("a", ptrTo(base("int"))))
	fd2 := funcDecl("f", false, param("a", ptrTo(base("int"))))
	def := NewFunctionVariable(cs, fd1)
	proto := NewFunctionVariable(cs, fd2)
	proto.BrainTransplant(def)
	//
	checkSameAtoms(t, proto, def)

	if !proto.HasBody() {
		t.Errorf("transplant should carry the body marker")
	}
}

func Test_BrainTransplant_02(t *testing.T) {
	// Constraints placed on the transplanted identity reach the original
	// atoms.
	cs := constraints.NewSet()
	def := NewFunctionVariable(cs, funcDecl("f", true, param("a", ptrTo(base("int")))))
	proto := NewFunctionVariable(cs, funcDecl("f", false, param("a", ptrTo(base("int")))))
	proto.BrainTransplant(def)
	proto.ExternalParam(0).ConstrainToWild(cs, "test", source.Location{})
	cs.Solve()
	//
	if cs.Assignment(def.ExternalParam(0).Cvars()[0]).Kind() != constraints.Wild {
		t.Errorf("constraint via transplanted identity should reach original atoms")
	}
}

func Test_BrainTransplant_03(t *testing.T) {
	// A parameterless prototype transplants the return only.
	cs := constraints.NewSet()
	defDecl := funcDecl("f", true, param("a", ptrTo(base("int"))))
	defDecl.Return = ptrTo(base("int"))
	protoDecl := funcDecl("f", false)
	protoDecl.Return = ptrTo(base("int"))
	def := NewFunctionVariable(cs, defDecl)
	proto := NewFunctionVariable(cs, protoDecl)
	proto.BrainTransplant(def)
	//
	if proto.ExternalReturn().Cvars()[0] != def.ExternalReturn().Cvars()[0] {
		t.Errorf("return atoms should be shared after transplant")
	}
}

func Test_MergeDeclaration_01(t *testing.T) {
	// Compatible prototypes merge; the new sighting adopts the old atoms.
	cs := constraints.NewSet()
	old := NewFunctionVariable(cs, funcDecl("f", false, param("", ptrTo(base("int")))))
	more := NewFunctionVariable(cs, funcDecl("f", false, param("x", ptrTo(base("int")))))
	//
	if err := old.MergeDeclaration(more, loc("b.c", 3)); err != nil {
		t.Fatalf("unexpected merge failure: %v", err)
	}

	checkSameAtoms(t, more, old)

	if old.ExternalParam(0).Name() != "x" {
		t.Errorf("merge should adopt the richer parameter name")
	}
}

func Test_MergeDeclaration_02(t *testing.T) {
	cs := constraints.NewSet()
	old := NewFunctionVariable(cs, funcDecl("f", false, param("a", ptrTo(base("int")))))
	more := NewFunctionVariable(cs, funcDecl("f", false,
		param("a", ptrTo(base("int"))), param("b", ptrTo(base("int")))))
	//
	if err := old.MergeDeclaration(more, loc("b.c", 3)); err == nil {
		t.Errorf("differing parameter counts should fail to merge")
	}
}

func Test_MergeDeclaration_03(t *testing.T) {
	cs := constraints.NewSet()
	g := funcDecl("f", false, param("a", ptrTo(&ast.TypeVar{Index: 0})))
	g.TypeParams = 1
	old := NewFunctionVariable(cs, g)
	more := NewFunctionVariable(cs, funcDecl("f", false, param("a", ptrTo(base("int")))))
	//
	if err := old.MergeDeclaration(more, loc("b.c", 3)); err == nil {
		t.Errorf("differing generic markers should fail to merge")
	}
}

func Test_MergeDeclaration_04(t *testing.T) {
	cs := constraints.NewSet()
	withItype := funcDecl("f", false, param("a", ptrTo(base("int"))))
	withItype.Params[0].Itype = ptrTo(base("int"))
	old := NewFunctionVariable(cs, withItype)
	more := NewFunctionVariable(cs, funcDecl("f", false, param("a", ptrTo(base("int")))))
	//
	if err := old.MergeDeclaration(more, loc("b.c", 3)); err == nil {
		t.Errorf("differing interop annotations should fail to merge")
	}
}

func Test_Itype_01(t *testing.T) {
	// An interop-typed parameter keeps its external view checked while the
	// body view goes wild.
	cs := constraints.NewSet()
	fd := funcDecl("f", true, param("a", ptrTo(base("int"))))
	fd.Params[0].Itype = ptrTo(base("int"))
	f := NewFunctionVariable(cs, fd)
	f.InternalParam(0).ConstrainToWild(cs, "body does arithmetic", source.Location{})
	cs.Solve()
	//
	if cs.Assignment(f.InternalParam(0).Cvars()[0]).Kind() != constraints.Wild {
		t.Errorf("internal view should be WILD")
	}

	if cs.Assignment(f.ExternalParam(0).Cvars()[0]).Kind() != constraints.Ptr {
		t.Errorf("external view should stay checked")
	}
}

// ===================================================================
// Test Helpers
// ===================================================================

func base(name string) ast.Type {
	return &ast.Base{Name: name}
}

func ptrTo(t ast.Type) ast.Type {
	return &ast.Pointer{Pointee: t}
}

func loc(file string, line uint) source.Location {
	return source.NewLocation(file, line, 1)
}

func param(name string, t ast.Type) *ast.ParamDecl {
	return &ast.ParamDecl{ParamName: name, ParamType: t}
}

func funcDecl(name string, body bool, params ...*ast.ParamDecl) *ast.FuncDecl {
	return &ast.FuncDecl{
		FuncName: name,
		Return:   base("void"),
		Params:   params,
		Body:     body,
	}
}

func checkSameAtoms(t *testing.T, a ConstraintVariable, b ConstraintVariable) {
	t.Helper()
	//
	aa := a.Atoms()
	ba := b.Atoms()
	//
	if len(aa) != len(ba) {
		t.Fatalf("atom counts differ: %d and %d", len(aa), len(ba))
	}

	for i := range aa {
		if aa[i] != ba[i] {
			t.Errorf("atom %d differs: %s and %s", i, aa[i], ba[i])
		}
	}
}
