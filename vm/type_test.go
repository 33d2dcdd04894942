package vm

import (
	"errors"
	"testing"
)

func TestTypeSubtyping(t *testing.T) {
	tt := NewTypeTable()
	number := tt.Define("number", nil, PassByValue)
	integer := tt.Define("integer", number, PassByValue)
	printable := tt.Define("printable", nil, PassByRef)
	integer.Interfaces = []*Type{printable}
	other := tt.Define("other", nil, PassByValue)

	tests := []struct {
		t, of *Type
		want  bool
	}{
		{integer, integer, true},
		{integer, number, true},
		{integer, printable, true},
		{number, integer, false},
		{other, number, false},
		{nil, number, false},
		{integer, nil, false},
	}
	for _, tc := range tests {
		if got := tc.t.IsSubtypeOf(tc.of); got != tc.want {
			t.Errorf("%s.IsSubtypeOf(%s) = %v, want %v", tc.t, tc.of, got, tc.want)
		}
	}
}

func TestTypeTableRegistration(t *testing.T) {
	tt := NewTypeTable()
	typeT := tt.Define("type", nil, PassByValue)
	tt.SetTypeOfTypes(typeT)
	a := tt.Define("a", nil, PassByValue)
	b := tt.Define("b", nil, PassByRef)

	if tt.Lookup("a") != a || tt.Lookup("b") != b || tt.Lookup("c") != nil {
		t.Error("Lookup by name failed")
	}
	if tt.ByID(a.ID) != a || tt.ByID(99) != nil {
		t.Error("ByID failed")
	}
	all := tt.All()
	if len(all) != 3 || all[0] != typeT || all[1] != a || all[2] != b {
		t.Errorf("All() should list types in registration order, got %v", all)
	}
	if tt.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tt.Len())
	}

	// match objects are type values of the type "type"
	if typeT.MatchObj.Type != typeT || a.MatchObj.Type != typeT {
		t.Error("match objects should have the type of types")
	}
	if tv, ok := a.MatchObj.Value().(TypeValue); !ok || tv.T != a {
		t.Error("match object should carry its type")
	}

	replacement := &Type{Name: "a"}
	if old := tt.Register(replacement); old != a {
		t.Error("Register should return the type it shadows")
	}
}

func TestFuncTypesAreCached(t *testing.T) {
	tt := NewTypeTable()
	integer := tt.Define("integer", nil, PassByValue)

	f := integer.FuncType()
	if f != integer.FuncType() {
		t.Error("FuncType should be created once")
	}
	if !f.IsFunc() || f.Result != integer || f.VarFunc {
		t.Error("func type should yield its result type")
	}
	vf := integer.VarFuncType()
	if !vf.VarFunc || vf.Result != integer || vf == f {
		t.Error("varfunc type should be a distinct assignable function type")
	}
	if tt.Lookup("func integer") != f {
		t.Error("derived types are registered in the table")
	}
	if integer.IsFunc() {
		t.Error("integer is not a function type")
	}
}

func TestInParamCategory(t *testing.T) {
	tests := []struct {
		passing ParamPassing
		want    Category
		err     bool
	}{
		{PassByValue, CategoryValueParam, false},
		{PassByRef, CategoryRefParam, false},
		{PassUndefined, 0, true},
	}
	for _, tc := range tests {
		typ := &Type{Name: "t", InPassing: tc.passing}
		got, err := typ.InParamCategory()
		if tc.err {
			if !errors.Is(err, ErrUndefinedPassing) {
				t.Errorf("%s: error = %v, want ErrUndefinedPassing", tc.passing, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%s: got %s, %v", tc.passing, got, err)
		}
	}
}

func TestInPatternFollowsPassing(t *testing.T) {
	byValue := &Type{Name: "v", InPassing: PassByValue}
	byRef := &Type{Name: "r", InPassing: PassByRef}

	if pe := In(byValue); pe.Kind != ParamValue || !pe.In {
		t.Errorf("In(by-value) = %v", pe.Kind)
	}
	if pe := In(byRef); pe.Kind != ParamRef || !pe.In {
		t.Errorf("In(by-reference) = %v", pe.Kind)
	}
}

func TestTypeTableClear(t *testing.T) {
	tt := NewTypeTable()
	a := tt.Define("a", nil, PassByValue)
	a.Dispatch.Store(OpCreate, NewSymbol("create"))
	a.Literal = NewObject(a, IntValue(1))

	tt.clear()
	if tt.Len() != 0 || tt.Lookup("a") != nil {
		t.Error("clear should drop every type")
	}
	if a.Dispatch.Slot(OpCreate).State != SlotEmpty || a.Literal != nil {
		t.Error("clear should reset caches of dropped types")
	}
}
