package vm

import "testing"

func TestStringPrimitives(t *testing.T) {
	e := newTestEnv(t)

	if got := e.str(t, e.strLit("seed"), "&", e.strLit("core")); got != "seedcore" {
		t.Errorf("concatenation = %q", got)
	}

	lengths := []struct {
		s    string
		want int64
	}{
		{"", 0},
		{"abc", 3},
		{"äöü", 3},
	}
	for _, tc := range lengths {
		if n := intOf(t, e.eval(t, "length", e.strLit(tc.s))); n != tc.want {
			t.Errorf("length %q = %d, want %d", tc.s, n, tc.want)
		}
	}

	if !e.p.IsTrue(e.eval(t, e.strLit("a"), "=", e.strLit("a"))) {
		t.Error(`"a" = "a" should be TRUE`)
	}
	if !e.p.IsFalse(e.eval(t, e.strLit("a"), "<>", e.strLit("a"))) {
		t.Error(`"a" <> "a" should be FALSE`)
	}
	e.assertClear(t)
}

func TestStringIndex(t *testing.T) {
	e := newTestEnv(t)
	s := e.strLit("héllo")

	if got := e.eval(t, s, "[", 2, "]"); got == nil || got.Value() != CharValue('é') {
		t.Errorf("s[2] = %v, want é", got)
	}
	for _, idx := range []int{0, 6} {
		t.Run("out of range", func(t *testing.T) {
			if e.eval(t, s, "[", idx, "]") != nil {
				t.Errorf("s[%d] should fail", idx)
			}
			e.assertRaised(t, SysIndexError)
			e.p.Fail.Leave()
		})
	}
}

func TestStringAppend(t *testing.T) {
	e := newTestEnv(t)
	v := e.variable("v", e.typ("string"), StringValue("ab"))

	e.eval(t, "v", "&:=", e.strLit("cd"))
	e.assertClear(t)
	if v.Value() != StringValue("abcd") {
		t.Errorf("v = %s", v)
	}

	e.eval(t, e.strLit("x"), "&:=", e.strLit("y"))
	e.assertRaised(t, SysIllegalAction)
}
