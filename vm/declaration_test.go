package vm

import "testing"

func TestDeclareConstantWithoutCreate(t *testing.T) {
	e := newTestEnv(t)
	thing := defineType(e.p, "thing", PassByValue)
	lit := e.p.AddLiteral(NewObject(thing, IntValue(1)))

	e.eval(t, "const", "thing", ":", "x", "is", lit)
	e.assertRaised(t, SysDeclarationError)
	e.p.Fail.Leave()

	if e.p.Root.Lookup("x") != nil {
		t.Fatal("a failed declaration should not bind its name")
	}
	if e.in.Evaluate(NewExpr(e.sym("x"))) != nil {
		t.Error("using the undeclared name should fail")
	}
	e.assertRaised(t, SysIllegalAction)
}

func TestDeclareFailingInitializer(t *testing.T) {
	tests := []struct {
		name string
		init func(e *testEnv) *Object
	}{
		{"raising initializer", func(e *testEnv) *Object { return e.expr(1, "div", 0) }},
		{"wrong type", func(e *testEnv) *Object { return e.strLit("seven") }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.eval(t, "const", "integer", ":", "k", "is", tc.init(e))
			e.assertRaised(t, SysDeclarationError)
			if e.p.Root.Lookup("k") != nil {
				t.Error("k should stay unbound")
			}
		})
	}
}

func TestDeclareConstAndVar(t *testing.T) {
	e := newTestEnv(t)
	e.eval(t, "const", "integer", ":", "k", "is", 3)
	e.eval(t, "var", "integer", ":", "v", "is", e.expr(2, "*", 5))
	e.assertClear(t)

	k, v := e.p.Root.Lookup("k"), e.p.Root.Lookup("v")
	if k == nil || v == nil {
		t.Fatal("declarations should bind in the current frame")
	}
	if k.Object.IsVar() || !v.Object.IsVar() {
		t.Error("const binds a constant and var a variable")
	}
	if intOf(t, v.Object) != 10 {
		t.Errorf("v = %s, want 10", v.Object)
	}

	e.eval(t, "v", ":=", "k")
	e.assertClear(t)
	if intOf(t, v.Object) != 3 {
		t.Errorf("v = %s after assignment, want 3", v.Object)
	}

	e.eval(t, "k", ":=", 4)
	e.assertRaised(t, SysIllegalAction)
}

func TestLocalFrame(t *testing.T) {
	e := newTestEnv(t)
	decl := e.expr("var", "integer", ":", "n", "is", 5)
	body := e.expr("writeln", e.expr("str", "n"))

	e.eval(t, "local", decl, "begin", body, "end")
	e.assertClear(t)
	if got := e.out.String(); got != "5\n" {
		t.Errorf("output = %q, want %q", got, "5\n")
	}
	if e.p.Root.Lookup("n") != nil {
		t.Error("names declared in a local frame should not leak")
	}
	if e.p.CurrentScope() != e.p.Root {
		t.Error("the frame should be popped")
	}
}

func TestLocalFrameStopsOnFailingDeclaration(t *testing.T) {
	e := newTestEnv(t)
	decl := e.expr("const", "integer", ":", "n", "is", e.expr(1, "div", 0))
	body := e.expr("writeln", e.strLit("body"))

	e.eval(t, "local", decl, "begin", body, "end")
	e.assertRaised(t, SysDeclarationError)
	if e.out.Len() != 0 {
		t.Errorf("body ran after a failed declaration: %q", e.out.String())
	}
	if e.p.CurrentScope() != e.p.Root {
		t.Error("the frame should be popped after a failure")
	}
}
