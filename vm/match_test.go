package vm

import (
	"errors"
	"testing"
)

func headAction(t *testing.T, call *Object) string {
	t.Helper()
	c := call.Call()
	if c == nil {
		t.Fatalf("%s is not a call", call)
	}
	act := ActionOf(c.Head)
	if act == nil {
		t.Fatalf("head of %s is not an action", call)
	}
	return act.Name
}

func TestMatchIsDeterministic(t *testing.T) {
	e := newTestEnv(t)
	ex := e.expr(3, "+", 4)

	first := e.match(t, ex)
	second := e.match(t, ex)
	if first != second {
		t.Error("matching the same expression twice should return the same call")
	}
	if got := headAction(t, first); got != "INT_ADD" {
		t.Errorf("matched %s, want INT_ADD", got)
	}
	if first.Type != e.typ("integer") {
		t.Errorf("call type = %s, want integer", first.Type)
	}
	if args := first.Call().Args; len(args) != 2 {
		t.Errorf("call binds %d arguments, want 2 (syntax symbols dropped)", len(args))
	}
}

func TestMatchParenthesizedExpression(t *testing.T) {
	e := newTestEnv(t)
	inner := e.expr(3, "+", 4)
	outer := NewExpr(inner)

	if e.match(t, outer) != e.match(t, inner) {
		t.Error("a parenthesized expression should resolve to its inner call")
	}
}

func TestMatchInnerScopeWins(t *testing.T) {
	e := newTestEnv(t)
	intT, strT := e.typ("integer"), e.typ("string")
	one := func(in *Interpreter, args List) *Object { return temp(IntValue(1)) }
	two := func(in *Interpreter, args List) *Object { return temp(IntValue(2)) }

	e.action(t, "PICK_ROOT", intT, one, Sym("pick"))
	e.action(t, "PICK_ROOT_INT", intT, one, Sym("pick"), In(intT))

	inner := NewScope("inner", e.p.Root)
	e.in.Actions.Register("PICK_INNER", two)
	e.in.Actions.Register("PICK_INNER_STR", two)
	if _, err := DeclareAction(inner, e.in.Actions, "PICK_INNER", intT, Sym("pick")); err != nil {
		t.Fatal(err)
	}
	if _, err := DeclareAction(inner, e.in.Actions, "PICK_INNER_STR", intT, Sym("pick"), In(strT)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		expr  *Object
		scope *Scope
		want  string
	}{
		{"inner declaration hides outer", e.expr("pick"), inner, "PICK_INNER"},
		{"root sees only root", e.expr("pick"), e.p.Root, "PICK_ROOT"},
		{"outer used when inner does not match", e.expr("pick", 5), inner, "PICK_ROOT_INT"},
		{"inner match by type", e.expr("pick", e.strLit("s")), inner, "PICK_INNER_STR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			call, err := e.p.Matcher().Match(tc.expr, tc.scope)
			if err != nil {
				t.Fatalf("Match: %v", err)
			}
			if got := headAction(t, call); got != tc.want {
				t.Errorf("matched %s, want %s", got, tc.want)
			}
		})
	}
}

func TestMatchAccessRight(t *testing.T) {
	e := newTestEnv(t)
	intT := e.typ("integer")

	_, err := e.p.Matcher().Match(e.expr(3, "+:=", 4), nil)
	if !errors.Is(err, ErrAccessRight) {
		t.Fatalf("constant as inout actual: err = %v, want ErrAccessRight", err)
	}
	var me *MatchError
	if !errors.As(err, &me) || me.Expr == nil {
		t.Error("match errors should carry the expression")
	}
	if e.p.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", e.p.ErrorCount)
	}

	e.variable("v", intT, IntValue(1))
	if got := headAction(t, e.match(t, e.expr("v", "+:=", 4))); got != "INT_GROW" {
		t.Errorf("variable as inout actual matched %s", got)
	}
}

func TestMatchNoDeclaration(t *testing.T) {
	e := newTestEnv(t)
	call, err := e.p.Matcher().Match(e.expr("frobnicate", 1), nil)
	if call != nil || !errors.Is(err, ErrNoMatch) {
		t.Errorf("Match = %v, %v; want nil, ErrNoMatch", call, err)
	}
	if _, err := e.p.Matcher().Match(NewExpr(), nil); !errors.Is(err, ErrNoMatch) {
		t.Errorf("empty expression: err = %v, want ErrNoMatch", err)
	}
	if e.p.ErrorCount != 2 {
		t.Errorf("ErrorCount = %d, want 2", e.p.ErrorCount)
	}
}

func TestMatchDeclaredActual(t *testing.T) {
	e := newTestEnv(t)
	e.variable("d", e.typ("integer"), Declared())

	if _, err := e.p.Matcher().Match(e.expr("d", "+", 1), nil); err == nil {
		t.Error("an object without a value should not match an in parameter")
	}
	// a plain reference formal accepts it, which is how create receives it
	if got := headAction(t, e.match(t, e.expr("d", "::=", 1))); got != "GEN_CREATE" {
		t.Errorf("create matched %s", got)
	}
}

func TestMatchDefersLazyArguments(t *testing.T) {
	e := newTestEnv(t)
	call := e.match(t, e.expr("TRUE", "and", e.expr(1, "<", 2)))

	args := call.Call().Args
	if args[0] != e.p.Bool(true) {
		t.Error("strict operand should be bound as is")
	}
	if args[1].Category() != CategoryMatch {
		t.Errorf("lazy operand category = %s, want MATCHOBJECT", args[1].Category())
	}
	if args[1].Type != e.typ("boolean") {
		t.Errorf("deferred node type = %s, want boolean", args[1].Type)
	}

	// a value is accepted by a lazy formal without deferral
	call = e.match(t, e.expr("TRUE", "and", "FALSE"))
	if call.Call().Args[1] != e.p.Bool(false) {
		t.Error("a plain value should be bound directly")
	}
}

func TestMatchAttrAndExprParameters(t *testing.T) {
	e := newTestEnv(t)

	call := e.match(t, e.expr("integer", "value", e.strLit("42")))
	if got := headAction(t, call); got != "INT_PARSE" {
		t.Fatalf("matched %s, want INT_PARSE", got)
	}
	if call.Call().Args[0] != e.typ("integer").MatchObj {
		t.Error("attr parameter should bind the type object")
	}
	if n := intOf(t, e.in.Evaluate(call)); n != 42 {
		t.Errorf("integer value \"42\" = %d", n)
	}

	// expr parameters receive the raw elements
	x, y := e.sym("x"), e.sym("y")
	call = e.match(t, e.expr("local", x, "begin", y, "end"))
	if args := call.Call().Args; args[0] != x || args[1] != y {
		t.Errorf("expr parameters bound %v, want the raw symbols", args)
	}
}

func TestMatchSymbolAsParameterlessCall(t *testing.T) {
	e := newTestEnv(t)
	intT := e.typ("integer")
	e.action(t, "SEVEN", intT, func(in *Interpreter, args List) *Object {
		return temp(IntValue(7))
	}, Sym("seven"))

	if n := intOf(t, e.eval(t, "seven", "+", 1)); n != 8 {
		t.Errorf("seven + 1 = %d", n)
	}
	e.assertClear(t)

	m := e.p.Matcher()
	if m.symbolCall(e.sym("seven")) != m.symbolCall(e.sym("seven")) {
		t.Error("identifier shapes should be memoized")
	}
}

func TestMatchForwardDeclaration(t *testing.T) {
	e := newTestEnv(t)
	intT := e.typ("integer")
	sig := e.p.Root.DeclareForward("later", []PatternElem{Sym("later")}, intT)
	ex := e.expr("later")

	call := e.match(t, ex)
	if e.in.Evaluate(call) != nil {
		t.Error("calling an undefined forward declaration should fail")
	}
	e.assertRaised(t, SysIllegalAction)
	e.p.Fail.Leave()

	act := e.in.Actions.Register("LATER", func(in *Interpreter, args List) *Object {
		return temp(IntValue(9))
	})
	if err := e.p.Root.Define(sig, NewActionObject(act, intT)); err != nil {
		t.Fatalf("Define: %v", err)
	}
	if n := intOf(t, e.in.Evaluate(call)); n != 9 {
		t.Errorf("call resolved before the definition returned %d, want 9", n)
	}
	if got := headAction(t, e.match(t, e.expr("later"))); got != "LATER" {
		t.Errorf("new match resolved to %s", got)
	}
	if err := e.p.Root.Define(sig, NewActionObject(act, intT)); err == nil {
		t.Error("defining twice should fail")
	}
}

func TestMatchForgetScope(t *testing.T) {
	e := newTestEnv(t)
	m := e.p.Matcher()
	frame := NewScope("frame", e.p.Root)
	ex := e.expr(1, "+", 2)

	first, err := m.Match(ex, frame)
	if err != nil {
		t.Fatal(err)
	}
	again, _ := m.Match(ex, frame)
	if again != first {
		t.Fatal("resolution in a frame should be memoized")
	}
	m.Forget(frame)
	fresh, _ := m.Match(ex, frame)
	if fresh == first {
		t.Error("Forget should drop the frame's resolutions")
	}
}

func TestResolveShapeIsNotMemoized(t *testing.T) {
	e := newTestEnv(t)
	shape := List{e.intLit(1), e.sym("+"), e.intLit(2)}

	a, err := e.p.Matcher().ResolveShape(shape, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.p.Matcher().ResolveShape(shape, nil)
	if a == b {
		t.Error("run time shapes should be resolved afresh")
	}
	if _, err := e.p.Matcher().ResolveShape(List{e.sym("nothing"), e.sym("here")}, nil); err == nil {
		t.Error("unresolvable shape should fail")
	}
	if e.p.ErrorCount != 0 {
		t.Error("ResolveShape should not count analysis errors")
	}
}
