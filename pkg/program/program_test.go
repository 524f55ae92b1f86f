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
	"strings"
	"testing"

	"github.com/checkedc/go-3c/pkg/ast"
	"github.com/checkedc/go-3c/pkg/constraints"
	"github.com/checkedc/go-3c/pkg/cvars"
	"github.com/checkedc/go-3c/pkg/source"
)

func Test_AddVariable_01(t *testing.T) {
	// A pointer variable gets installed under its location.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	addVar(t, pi, varDecl("p", ptrTo(base("int")), loc("a.c", 1)))
	pi.ExitCompilationUnit()
	//
	pi.EnterCompilationUnit("a.c")
	cv, ok := pi.GetVariable(varDecl("p", ptrTo(base("int")), loc("a.c", 1)))
	pi.ExitCompilationUnit()
	//
	if !ok || len(cv.Atoms()) != 1 {
		t.Fatalf("expected installed variable with one atom")
	}
}

func Test_AddVariable_02(t *testing.T) {
	// Non-pointer variables install nothing.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	addVar(t, pi, varDecl("n", base("int"), loc("a.c", 1)))
	//
	if _, ok := pi.GetVariable(varDecl("n", base("int"), loc("a.c", 1))); ok {
		t.Errorf("non-pointer variable should not be tracked")
	}
}

func Test_AddVariable_03(t *testing.T) {
	// Declarations inside macro expansions go wild.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	d := varDecl("p", ptrTo(base("int")), loc("a.c", 1))
	d.Macro = true
	addVar(t, pi, d)
	cv, _ := pi.GetVariable(d)
	pi.Constraints().Solve()
	//
	checkKind(t, pi, cv.Atoms()[0], constraints.Wild)
}

func Test_AddVariable_04(t *testing.T) {
	// A duplicate location wilds the existing entry and drops the newcomer.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	first := varDecl("p", ptrTo(base("int")), loc("a.c", 1))
	addVar(t, pi, first)
	cv, _ := pi.GetVariable(first)
	addVar(t, pi, varDecl("q", ptrTo(base("int")), loc("a.c", 1)))
	pi.Constraints().Solve()
	//
	checkKind(t, pi, cv.Atoms()[0], constraints.Wild)
}

func Test_AddVariable_05(t *testing.T) {
	// A variadic function is wilded wholesale unless configured otherwise.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	fd := funcDecl("log_all", false, loc("a.c", 1), param("fmt", ptrTo(base("char")), loc("a.c", 1)))
	fd.VarArgs = true
	addVar(t, pi, fd)
	pi.Constraints().Solve()
	//
	f := pi.GetFuncConstraint(fd)
	checkKind(t, pi, f.ExternalParam(0).Cvars()[0], constraints.Wild)
}

func Test_AddVariable_06(t *testing.T) {
	// void pointers are unsafe unless generic.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	d := varDecl("p", ptrTo(base("void")), loc("a.c", 2))
	addVar(t, pi, d)
	cv, _ := pi.GetVariable(d)
	pi.Constraints().Solve()
	//
	checkKind(t, pi, cv.Atoms()[0], constraints.Wild)
}

func Test_FunctionMap_01(t *testing.T) {
	// Prototype then definition: the definition takes over the map slot with
	// shared atoms.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	proto := funcDecl("f", false, loc("a.h", 1), param("x", ptrTo(base("int")), loc("a.h", 1)))
	addVar(t, pi, proto)
	protoF := pi.GetFuncConstraint(proto)
	pi.ExitCompilationUnit()
	//
	pi.EnterCompilationUnit("b.c")
	def := funcDecl("f", true, loc("b.c", 5), param("x", ptrTo(base("int")), loc("b.c", 5)))
	addVar(t, pi, def)
	defF := pi.GetFuncConstraint(def)
	pi.ExitCompilationUnit()
	//
	if !defF.HasBody() {
		t.Fatalf("definition should win the map slot")
	}

	if defF.ExternalParam(0).Cvars()[0] != protoF.ExternalParam(0).Cvars()[0] {
		t.Errorf("prototype and definition should share atoms")
	}
}

func Test_FunctionMap_02(t *testing.T) {
	// Two definitions of one external function are a hard error.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	addVar(t, pi, funcDecl("f", true, loc("a.c", 1)))
	pi.ExitCompilationUnit()
	//
	pi.EnterCompilationUnit("b.c")
	err := pi.AddVariable(funcDecl("f", true, loc("b.c", 1)))
	//
	if _, ok := err.(*DuplicateDefinitionError); !ok {
		t.Errorf("expected duplicate definition error, got %v", err)
	}
}

func Test_FunctionMap_03(t *testing.T) {
	// Incompatible prototypes fail to merge.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	addVar(t, pi, funcDecl("f", false, loc("a.c", 1), param("x", ptrTo(base("int")), loc("a.c", 1))))
	pi.ExitCompilationUnit()
	//
	pi.EnterCompilationUnit("b.c")
	err := pi.AddVariable(funcDecl("f", false, loc("b.c", 1),
		param("x", ptrTo(base("int")), loc("b.c", 1)),
		param("y", ptrTo(base("int")), loc("b.c", 2))))
	//
	if _, ok := err.(*cvars.MergeError); !ok {
		t.Errorf("expected merge error, got %v", err)
	}
}

func Test_FunctionMap_04(t *testing.T) {
	// A parameterless prototype yields to a more specific one.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	addVar(t, pi, funcDecl("f", false, loc("a.c", 1)))
	pi.ExitCompilationUnit()
	//
	pi.EnterCompilationUnit("b.c")
	specific := funcDecl("f", false, loc("b.c", 1), param("x", ptrTo(base("int")), loc("b.c", 1)))
	addVar(t, pi, specific)
	//
	if pi.GetFuncConstraint(specific).NumParams() != 1 {
		t.Errorf("the more specific prototype should win the map slot")
	}
}

func Test_FunctionMap_05(t *testing.T) {
	// Static functions with the same name in different files stay separate.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	fa := funcDecl("helper", true, loc("a.c", 1))
	fa.Static = true
	addVar(t, pi, fa)
	pi.ExitCompilationUnit()
	//
	pi.EnterCompilationUnit("b.c")
	fb := funcDecl("helper", true, loc("b.c", 1))
	fb.Static = true
	//
	if err := pi.AddVariable(fb); err != nil {
		t.Errorf("same-named statics in different files should not conflict: %v", err)
	}
}

func Test_Link_01(t *testing.T) {
	// An extern global without a definition goes wild with a reason.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	g := varDecl("g", ptrTo(base("int")), loc("a.c", 1))
	g.Global = true
	addVar(t, pi, g)
	cv, _ := pi.GetVariable(g)
	pi.ExitCompilationUnit()
	//
	checkLink(t, pi)
	pi.Constraints().Solve()
	checkKind(t, pi, cv.Atoms()[0], constraints.Wild)
	//
	pi.ComputeInterimConstraintState()
	info, ok := pi.State().RootWildAtomsWithReason[cv.Atoms()[0].Key()]
	//
	if !ok || !strings.Contains(info.Reason, "External global variable g has no definition") {
		t.Errorf("expected undefined-extern reason, got %+v", info)
	}
}

func Test_Link_02(t *testing.T) {
	// Sightings of one defined global are equated across units.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	ga := varDecl("g", ptrTo(base("int")), loc("a.c", 1))
	ga.Global = true
	ga.Defined = true
	addVar(t, pi, ga)
	cva, _ := pi.GetVariable(ga)
	pi.ExitCompilationUnit()
	//
	pi.EnterCompilationUnit("b.c")
	gb := varDecl("g", ptrTo(base("int")), loc("b.c", 1))
	gb.Global = true
	addVar(t, pi, gb)
	cvb, _ := pi.GetVariable(gb)
	pi.ExitCompilationUnit()
	//
	checkLink(t, pi)
	cs := pi.Constraints()
	cs.AddGeq(cva.Atoms()[0], cs.ConstantOf(constraints.Arr), true, "", source.Location{})
	cs.Solve()
	//
	checkKind(t, pi, cvb.Atoms()[0], constraints.Arr)
}

func Test_Link_03(t *testing.T) {
	// An undefined external function wilds its signature, sparing generic
	// views.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	fd := funcDecl("ext", false, loc("a.c", 1),
		param("p", ptrTo(base("int")), loc("a.c", 1)),
		param("q", ptrTo(&ast.TypeVar{Index: 0}), loc("a.c", 2)))
	fd.TypeParams = 1
	addVar(t, pi, fd)
	f := pi.GetFuncConstraint(fd)
	pi.ExitCompilationUnit()
	//
	checkLink(t, pi)
	pi.Constraints().Solve()
	//
	checkKind(t, pi, f.ExternalParam(0).Cvars()[0], constraints.Wild)
	checkKind(t, pi, f.InternalParam(0).Cvars()[0], constraints.Wild)
	checkKind(t, pi, f.ExternalParam(1).Cvars()[0], constraints.Ptr)
}

func Test_Link_04(t *testing.T) {
	// Known allocators are never wilded for lacking a definition.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	fd := funcDecl("malloc", false, loc("stdlib.h", 1))
	fd.Return = ptrTo(base("void"))
	addVar(t, pi, fd)
	f := pi.GetFuncConstraint(fd)
	pi.ExitCompilationUnit()
	//
	checkLink(t, pi)
	pi.Constraints().Solve()
	//
	checkKind(t, pi, f.ExternalReturn().Cvars()[0], constraints.Ptr)
}

func Test_Link_05(t *testing.T) {
	// Linking twice without new units adds no constraints.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	g := varDecl("g", ptrTo(base("int")), loc("a.c", 1))
	g.Global = true
	addVar(t, pi, g)
	addVar(t, pi, funcDecl("ext", false, loc("a.c", 2), param("p", ptrTo(base("int")), loc("a.c", 2))))
	pi.ExitCompilationUnit()
	//
	checkLink(t, pi)
	before := pi.Constraints().Size()
	checkLink(t, pi)
	//
	if after := pi.Constraints().Size(); after != before {
		t.Errorf("second link grew the store: %d then %d", before, after)
	}
}

func Test_RootCause_01(t *testing.T) {
	// Wildness is blamed on the directly-wilded atom.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	pd := varDecl("p", ptrTo(base("int")), loc("a.c", 1))
	qd := varDecl("q", ptrTo(base("int")), loc("a.c", 2))
	addVar(t, pi, pd)
	addVar(t, pi, qd)
	cvp, _ := pi.GetVariable(pd)
	cvq, _ := pi.GetVariable(qd)
	pi.ExitCompilationUnit()
	//
	cs := pi.Constraints()
	// q flows into p; q is directly wilded.
	cs.AddGeq(cvp.Atoms()[0], cvq.Atoms()[0], true, "", loc("a.c", 3))
	cvq.ConstrainToWild(cs, "cast to int", loc("a.c", 2))
	cs.Solve()
	pi.ComputeInterimConstraintState()
	//
	st := pi.State()
	qKey := cvq.Atoms()[0].Key()
	pKey := cvp.Atoms()[0].Key()
	//
	if !st.AllWildAtoms.Contains(qKey) {
		t.Errorf("q should be a direct wild atom")
	}

	if !st.RCMap[pKey].Contains(qKey) {
		t.Errorf("p should be blamed on q")
	}

	if !st.SrcWMap[qKey].Contains(pKey) {
		t.Errorf("q's blast radius should include p")
	}

	if info := st.RootWildAtomsWithReason[qKey]; info.Reason != "cast to int" {
		t.Errorf("expected recorded reason, got %+v", info)
	}
}

func Test_RootCause_02(t *testing.T) {
	// Blame follows the logical step of a fired implication.
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	pd := varDecl("p", ptrTo(base("int")), loc("a.c", 1))
	qd := varDecl("q", ptrTo(base("int")), loc("a.c", 2))
	rd := varDecl("r", ptrTo(base("int")), loc("a.c", 3))
	addVar(t, pi, pd)
	addVar(t, pi, qd)
	addVar(t, pi, rd)
	cvp, _ := pi.GetVariable(pd)
	cvq, _ := pi.GetVariable(qd)
	cvr, _ := pi.GetVariable(rd)
	pi.ExitCompilationUnit()
	//
	cs := pi.Constraints()
	p0 := cvp.Atoms()[0]
	q0 := cvq.Atoms()[0]
	r0 := cvr.Atoms()[0]
	// If p goes wild then q goes wild; r depends on q.
	cs.AddImplies(constraints.NewGeq(p0, cs.Wild(), true),
		constraints.NewGeq(q0, cs.Wild(), true), "", loc("a.c", 4))
	cs.AddGeq(r0, q0, true, "", loc("a.c", 5))
	cvp.ConstrainToWild(cs, "unsafe cast", loc("a.c", 1))
	cs.Solve()
	pi.ComputeInterimConstraintState()
	//
	if !pi.State().RCMap[r0.Key()].Contains(p0.Key()) {
		t.Errorf("blame should cross the implication from p to r")
	}
}

func Test_Typedef_01(t *testing.T) {
	// Variables spelled through one checked typedef are equated.
	pi := newTestInfo()
	tdLoc := loc("defs.h", 1)
	named := &ast.Named{Name: "intp", DefLoc: tdLoc, Underlying: ptrTo(base("int"))}
	//
	pi.EnterCompilationUnit("a.c")
	addVar(t, pi, &ast.TypedefDecl{TypedefName: "intp", Underlying: ptrTo(base("int")), TypedefLoc: tdLoc})
	da := varDecl("a", named, loc("a.c", 1))
	db := varDecl("b", named, loc("a.c", 2))
	addVar(t, pi, da)
	addVar(t, pi, db)
	cva, _ := pi.GetVariable(da)
	cvb, _ := pi.GetVariable(db)
	pi.ExitCompilationUnit()
	//
	cs := pi.Constraints()
	cs.AddGeq(cva.Atoms()[0], cs.Wild(), true, "", source.Location{})
	cs.Solve()
	//
	checkKind(t, pi, cvb.Atoms()[0], constraints.Wild)
}

func Test_TypeParamBinding_01(t *testing.T) {
	pi := newTestInfo()
	call := loc("a.c", 10)
	cs := pi.Constraints()
	cv := cvars.NewPointerVariable(cs, "arg", ptrTo(base("int")), false)
	pi.SetTypeParamBinding(call, 0, cv)
	//
	if !pi.HasTypeParamBindings(call) {
		t.Fatalf("binding should be recorded")
	}

	if pi.TypeParamBindings(call)[0] != cv {
		t.Errorf("binding should return the bound variable")
	}
	// A second write to the same index must panic.
	defer func() {
		if recover() == nil {
			t.Errorf("overwriting a binding should panic")
		}
	}()
	pi.SetTypeParamBinding(call, 0, cv)
}

func Test_Stats_01(t *testing.T) {
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	addVar(t, pi, varDecl("p", ptrTo(base("int")), loc("a.c", 1)))
	qd := varDecl("q", ptrTo(base("int")), loc("a.c", 2))
	addVar(t, pi, qd)
	cvq, _ := pi.GetVariable(qd)
	pi.ExitCompilationUnit()
	//
	cvq.ConstrainToWild(pi.Constraints(), "test", source.Location{})
	pi.Constraints().Solve()
	//
	stats := pi.Stats(false)
	//
	if stats.Summary.TotalConstraints != 2 || stats.Summary.TotalPtrs != 1 || stats.Summary.TotalWild != 1 {
		t.Errorf("unexpected summary: %+v", stats.Summary)
	}
	//
	var sb strings.Builder
	if err := pi.PrintStats(&sb, false, false); err != nil {
		t.Fatalf("print failed: %v", err)
	}

	if !strings.Contains(sb.String(), "a.c|2|1|0|0|1") {
		t.Errorf("unexpected plain stats:\n%s", sb.String())
	}
}

func Test_Dump_01(t *testing.T) {
	pi := newTestInfo()
	pi.EnterCompilationUnit("a.c")
	addVar(t, pi, varDecl("p", ptrTo(base("int")), loc("a.c", 1)))
	addVar(t, pi, funcDecl("f", true, loc("a.c", 2), param("x", ptrTo(base("int")), loc("a.c", 2))))
	pi.ExitCompilationUnit()
	//
	var sb strings.Builder
	if err := pi.WriteJSON(&sb); err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	//
	out := sb.String()
	for _, key := range []string{"\"Setup\"", "\"ConstraintVariables\"",
		"\"ExternalFunctionDefinitions\"", "\"StaticFunctionDefinitions\"", "\"line\""} {
		if !strings.Contains(out, key) {
			t.Errorf("document missing %s:\n%s", key, out)
		}
	}
}

// ===================================================================
// Test Helpers
// ===================================================================

func newTestInfo() *Info {
	return NewInfo(source.UnrestrictedWriteScope(), Config{})
}

func base(name string) ast.Type {
	return &ast.Base{Name: name}
}

func ptrTo(t ast.Type) ast.Type {
	return &ast.Pointer{Pointee: t}
}

func loc(file string, line uint) source.Location {
	return source.NewLocation(file, line, 1)
}

func varDecl(name string, t ast.Type, l source.Location) *ast.VarDecl {
	return &ast.VarDecl{VarName: name, VarType: t, VarLoc: l}
}

func param(name string, t ast.Type, l source.Location) *ast.ParamDecl {
	return &ast.ParamDecl{ParamName: name, ParamType: t, ParamLoc: l}
}

func funcDecl(name string, body bool, l source.Location, params ...*ast.ParamDecl) *ast.FuncDecl {
	return &ast.FuncDecl{
		FuncName: name,
		Return:   base("void"),
		Params:   params,
		FuncLoc:  l,
		Body:     body,
	}
}

func addVar(t *testing.T, pi *Info, d ast.Decl) {
	t.Helper()

	if err := pi.AddVariable(d); err != nil {
		t.Fatalf("AddVariable(%s) failed: %v", d.Name(), err)
	}
}

func checkLink(t *testing.T, pi *Info) {
	t.Helper()

	if err := pi.Link(); err != nil {
		t.Fatalf("link failed: %v", err)
	}
}

func checkKind(t *testing.T, pi *Info, a *constraints.VarAtom, expected constraints.Kind) {
	t.Helper()

	if actual := pi.Constraints().Assignment(a).Kind(); actual != expected {
		t.Errorf("expected %s for %s, got %s", expected, a, actual)
	}
}
