package vm

import (
	"math/big"
	"testing"
)

// ---------------------------------------------------------------------------
// Category and payload tests
// ---------------------------------------------------------------------------

func TestObjectCategoryFollowsPayload(t *testing.T) {
	tests := []struct {
		value Value
		want  Category
	}{
		{SymbolValue{Name: "x"}, CategorySymbol},
		{Declared(), CategoryDeclared},
		{Forward(), CategoryForward},
		{IntValue(3), CategoryInt},
		{BigIntValue{Int: big.NewInt(3)}, CategoryBigInt},
		{CharValue('a'), CategoryChar},
		{FloatValue(1.5), CategoryFloat},
		{StringValue("s"), CategoryString},
		{&ArrayValue{Min: 1}, CategoryArray},
		{&StructValue{}, CategoryStruct},
		{&HashValue{}, CategoryHash},
		{NewSetValue(1), CategorySet},
		{NewListValue(CategoryExpr, nil), CategoryExpr},
		{NewCallValue(CategoryMatch, nil, nil), CategoryMatch},
		{NewRef(CategoryVarEnum, nil), CategoryVarEnum},
		{TypeValue{}, CategoryType},
		{ProgValue{}, CategoryProg},
		{EnumValue{Name: "TRUE", Ordinal: 1}, CategoryEnumLiteral},
	}

	for _, tc := range tests {
		obj := NewObject(nil, tc.value)
		if got := obj.Category(); got != tc.want {
			t.Errorf("Category() = %s, want %s", got, tc.want)
		}
	}

	obj := NewObject(nil, IntValue(1))
	obj.SetPayload(StringValue("now a string"))
	if obj.Category() != CategoryString {
		t.Errorf("Category after SetPayload = %s, want STRIOBJECT", obj.Category())
	}
}

func TestObjectNilPayloadIsDeclared(t *testing.T) {
	obj := NewObject(nil, nil)
	if obj.Category() != CategoryDeclared {
		t.Errorf("Category() = %s, want DECLAREDOBJECT", obj.Category())
	}
	var zero Object
	if zero.Category() != CategoryDeclared {
		t.Error("zero object should be declared")
	}
}

func TestPayloadConstructorsRejectWrongCategory(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"NewRef", func() { NewRef(CategoryInt, nil) }},
		{"NewListValue", func() { NewListValue(CategoryCall, nil) }},
		{"NewCallValue", func() { NewCallValue(CategoryList, nil, nil) }},
		{"NewHandleValue", func() { NewHandleValue(CategoryProg, nil) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("%s should panic for a wrong category", tc.name)
				}
			}()
			tc.fn()
		})
	}
}

func TestObjectTargetAndSetTarget(t *testing.T) {
	target := NewObject(nil, IntValue(1))
	slot := NewObject(nil, NewRef(CategoryLocalVar, nil))
	slot.SetTarget(target)
	if slot.Target() != target {
		t.Error("SetTarget did not rebind the slot")
	}
	if NewObject(nil, IntValue(1)).Target() != nil {
		t.Error("non-reference objects have no target")
	}

	defer func() {
		if recover() == nil {
			t.Error("SetTarget on an integer should panic")
		}
	}()
	target.SetTarget(slot)
}

// ---------------------------------------------------------------------------
// Flag tests
// ---------------------------------------------------------------------------

func TestObjectFlags(t *testing.T) {
	obj := NewTemp(nil, IntValue(1))
	if !obj.IsTemp() {
		t.Error("NewTemp should set the temporary flag")
	}
	obj.SetVar(true)
	if !obj.IsVar() || !obj.Has(FlagVar|FlagTemp) {
		t.Error("flags should combine")
	}
	obj.SetTemp(false)
	if obj.IsTemp() || !obj.IsVar() {
		t.Error("SetTemp(false) should only clear the temporary flag")
	}

	obj.SetFlags(FlagReleased)
	obj.SetPayload(IntValue(2))
	if obj.Has(FlagReleased) {
		t.Error("SetPayload should clear the released mark")
	}
}

func TestObjectShallow(t *testing.T) {
	obj := NewTemp(nil, IntValue(5))
	obj.SetVar(true)
	obj.SetPos(Pos{File: 0, Line: 12})

	c := obj.Shallow()
	if c == obj {
		t.Fatal("Shallow should return a new object")
	}
	if c.Value() != obj.Value() {
		t.Error("Shallow should share the payload")
	}
	if !c.IsVar() || !c.HasPos() || c.Pos.Line != 12 {
		t.Error("Shallow should keep the variable flag and position")
	}
	if c.IsTemp() {
		t.Error("Shallow should not carry the temporary flag")
	}
}

// ---------------------------------------------------------------------------
// Rendering tests
// ---------------------------------------------------------------------------

func TestObjectString(t *testing.T) {
	intT := &Type{Name: "integer"}
	plus := NewSymbol("+")
	add := &Action{Name: "INT_ADD"}
	head := NewActionObject(add, intT)
	head.Entity = &Entity{Name: "(integer) + (integer)"}

	tests := []struct {
		obj  *Object
		want string
	}{
		{NewObject(nil, IntValue(-4)), "-4"},
		{NewObject(nil, StringValue("hi")), `"hi"`},
		{NewObject(nil, CharValue('x')), `'x'`},
		{NewObject(nil, FloatValue(2.5)), "2.5"},
		{NewObject(nil, EnumValue{Name: "TRUE"}), "TRUE"},
		{NewObject(nil, TypeValue{T: intT}), "integer"},
		{NewExpr(NewObject(nil, IntValue(1)), plus, NewObject(nil, IntValue(2))), "(1 + 2)"},
		{NewCall(intT, head, NewObject(nil, IntValue(1))), "(integer) + (integer)(1)"},
		{NewObject(nil, &ArrayValue{}), "<ARRAYOBJECT>"},
		{nil, "*NULL*"},
	}

	for _, tc := range tests {
		if got := tc.obj.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestObjectStringBoundsDepth(t *testing.T) {
	inner := NewExpr(NewSymbol("x"))
	for i := 0; i < 10; i++ {
		inner = NewExpr(inner)
	}
	if got := inner.String(); got != "((((...))))" {
		t.Errorf("deep expression rendered as %q", got)
	}
}

// ---------------------------------------------------------------------------
// Set and list tests
// ---------------------------------------------------------------------------

func TestSetValue(t *testing.T) {
	s := NewSetValue(5, 1, 3)
	s.Add(2)
	s.Add(3)

	if s.Len() != 4 {
		t.Errorf("Len() = %d, want 4", s.Len())
	}
	want := []int64{1, 2, 3, 5}
	got := s.Members()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Members() = %v, want %v", got, want)
		}
	}
	if !s.Contains(5) || s.Contains(4) {
		t.Error("Contains reports wrong membership")
	}

	var zero SetValue
	zero.Add(7)
	if !zero.Contains(7) {
		t.Error("Add on a zero set should work")
	}
}

func TestListCopyAndIndex(t *testing.T) {
	a, b := NewSymbol("a"), NewSymbol("b")
	l := List{a, b}

	c := l.Copy()
	c[0] = b
	if l[0] != a {
		t.Error("Copy should not share the backing array")
	}
	if l.Index(b) != 1 || l.Index(NewSymbol("a")) != -1 {
		t.Error("Index compares by identity")
	}
	if List(nil).Copy() != nil {
		t.Error("copy of a nil list should be nil")
	}
	if l.String() != "a b" {
		t.Errorf("String() = %q, want %q", l.String(), "a b")
	}
}

func TestCategoryNames(t *testing.T) {
	if CategoryCall.String() != "CALLOBJECT" {
		t.Errorf("CategoryCall = %s", CategoryCall)
	}
	if Category(200).Valid() || Category(200).String() != "*UNKNOWN_CATEGORY*" {
		t.Error("out of range categories should be invalid")
	}
	for c := Category(0); c < numCategories; c++ {
		if categoryNames[c] == "" {
			t.Errorf("category %d has no name", c)
		}
	}
}
