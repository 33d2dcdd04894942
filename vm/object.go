package vm

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Object is the universal runtime and analysis-time entity. Its payload is
// a sealed Value whose dynamic type determines the object's Category.
//
// Objects are shared by reference: the analyzer builds them once, the
// interpreter binds and rebinds parameter and local slots by pointer.
type Object struct {
	Type   *Type   // static type, nil for raw symbols
	Entity *Entity // declaring entity, nil for anonymous objects
	Pos    Pos     // source position, valid when FlagPosInfo is set

	flags Flags
	value Value
}

// Flags is the per-object flag set.
type Flags uint16

const (
	FlagVar      Flags = 1 << iota // object is a variable (assignable)
	FlagTemp                       // temporary, owns its payload and must be dumped
	FlagTemp2                      // temporary bound to a reference parameter
	FlagPosInfo                    // Pos is meaningful
	FlagReleased                   // payload already dumped
)

// Pos is a source position: an index into the program's file table plus a
// line number.
type Pos struct {
	File int
	Line int
}

// Value is the sealed payload of an Object.
type Value interface {
	Category() Category
	isValue()
}

// ---------------------------------------------------------------------------
// Payload types
// ---------------------------------------------------------------------------

// SymbolValue is a raw identifier or syntax marker.
type SymbolValue struct{ Name string }

// NoValue is the payload of declared-but-unset objects and forward
// declarations.
type NoValue struct{ cat Category }

// RefValue is the payload of every category that designates another
// object: parameter and local slots, references, enum bindings.
type RefValue struct {
	cat    Category
	Target *Object
}

// IntValue is a machine integer.
type IntValue int64

// BigIntValue is an arbitrary precision integer.
type BigIntValue struct{ Int *big.Int }

// CharValue is a single character.
type CharValue rune

// FloatValue is a double precision float.
type FloatValue float64

// StringValue is an immutable string.
type StringValue string

// ArrayValue holds the elements of an array indexed from Min.
type ArrayValue struct {
	Min   int64
	Elems []*Object
}

// StructValue holds the elements of a struct in declaration order.
type StructValue struct {
	Elems []*Object
}

// HashEntry is a single key/data pair of a hash.
type HashEntry struct {
	Key  *Object
	Data *Object
}

// HashValue holds the entries of a hash in insertion order.
type HashValue struct {
	Entries []HashEntry
}

// SetValue is a set of ordinals.
type SetValue struct {
	members map[int64]struct{}
}

// ListValue is the payload of plain lists, unresolved expressions and
// reference lists.
type ListValue struct {
	cat   Category
	Items List
}

// CallValue is a resolved invocation: Head is the callee (an action, a
// block, a value or an enum binding) and Args are the bound arguments with
// syntax symbols removed.
type CallValue struct {
	cat  Category
	Head *Object
	Args List
}

// TypeValue is a type used as a value.
type TypeValue struct{ T *Type }

// ProgValue is a handle to a program.
type ProgValue struct{ Prog *Program }

// HandleValue wraps an external resource.
type HandleValue struct {
	cat Category
	H   Handle
}

// EnumValue is an enum literal. The boolean singletons are enum literals
// with ordinals 0 and 1.
type EnumValue struct {
	Ordinal int64
	Name    string
}

func (SymbolValue) Category() Category   { return CategorySymbol }
func (v NoValue) Category() Category     { return v.cat }
func (v RefValue) Category() Category    { return v.cat }
func (IntValue) Category() Category      { return CategoryInt }
func (BigIntValue) Category() Category   { return CategoryBigInt }
func (CharValue) Category() Category     { return CategoryChar }
func (FloatValue) Category() Category    { return CategoryFloat }
func (StringValue) Category() Category   { return CategoryString }
func (*ArrayValue) Category() Category   { return CategoryArray }
func (*StructValue) Category() Category  { return CategoryStruct }
func (*HashValue) Category() Category    { return CategoryHash }
func (*SetValue) Category() Category     { return CategorySet }
func (v ListValue) Category() Category   { return v.cat }
func (v *CallValue) Category() Category  { return v.cat }
func (TypeValue) Category() Category     { return CategoryType }
func (ProgValue) Category() Category     { return CategoryProg }
func (v HandleValue) Category() Category { return v.cat }
func (EnumValue) Category() Category     { return CategoryEnumLiteral }

func (SymbolValue) isValue()  {}
func (NoValue) isValue()      {}
func (RefValue) isValue()     {}
func (IntValue) isValue()     {}
func (BigIntValue) isValue()  {}
func (CharValue) isValue()    {}
func (FloatValue) isValue()   {}
func (StringValue) isValue()  {}
func (*ArrayValue) isValue()  {}
func (*StructValue) isValue() {}
func (*HashValue) isValue()   {}
func (*SetValue) isValue()    {}
func (ListValue) isValue()    {}
func (*CallValue) isValue()   {}
func (TypeValue) isValue()    {}
func (ProgValue) isValue()    {}
func (HandleValue) isValue()  {}
func (EnumValue) isValue()    {}

// ---------------------------------------------------------------------------
// Payload constructors for categories that share a payload type
// ---------------------------------------------------------------------------

// Declared returns the payload of a declared object that has no value yet.
func Declared() Value { return NoValue{cat: CategoryDeclared} }

// Forward returns the payload of a forward declaration placeholder.
func Forward() Value { return NoValue{cat: CategoryForward} }

// NewRef returns a reference payload of the given category.
// It panics if cat does not designate another object.
func NewRef(cat Category, target *Object) Value {
	if !cat.isRefCategory() {
		panic(fmt.Sprintf("vm.NewRef: %s is not a reference category", cat))
	}
	return RefValue{cat: cat, Target: target}
}

// NewListValue returns a list payload of the given category.
// It panics if cat is not a list category.
func NewListValue(cat Category, items List) Value {
	if !cat.isListCategory() {
		panic(fmt.Sprintf("vm.NewListValue: %s is not a list category", cat))
	}
	return ListValue{cat: cat, Items: items}
}

// NewCallValue returns a call or match payload.
// It panics if cat is neither CategoryCall nor CategoryMatch.
func NewCallValue(cat Category, head *Object, args List) Value {
	if !cat.isCallCategory() {
		panic(fmt.Sprintf("vm.NewCallValue: %s is not a call category", cat))
	}
	return &CallValue{cat: cat, Head: head, Args: args}
}

// NewHandleValue returns a handle payload of the given category.
// It panics if cat is not a handle category.
func NewHandleValue(cat Category, h Handle) Value {
	if !cat.isHandleCategory() {
		panic(fmt.Sprintf("vm.NewHandleValue: %s is not a handle category", cat))
	}
	return HandleValue{cat: cat, H: h}
}

// NewSetValue returns a set containing the given ordinals.
func NewSetValue(members ...int64) *SetValue {
	s := &SetValue{members: make(map[int64]struct{}, len(members))}
	for _, m := range members {
		s.members[m] = struct{}{}
	}
	return s
}

// Contains reports whether ordinal n is in the set.
func (s *SetValue) Contains(n int64) bool {
	_, ok := s.members[n]
	return ok
}

// Add inserts ordinal n.
func (s *SetValue) Add(n int64) {
	if s.members == nil {
		s.members = make(map[int64]struct{})
	}
	s.members[n] = struct{}{}
}

// Members returns the ordinals in ascending order.
func (s *SetValue) Members() []int64 {
	out := make([]int64, 0, len(s.members))
	for m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of members.
func (s *SetValue) Len() int { return len(s.members) }

// ---------------------------------------------------------------------------
// Object creation
// ---------------------------------------------------------------------------

// NewObject creates an object of type t with payload v.
func NewObject(t *Type, v Value) *Object {
	if v == nil {
		v = Declared()
	}
	return &Object{Type: t, value: v}
}

// NewSymbol creates a raw symbol object.
func NewSymbol(name string) *Object {
	return &Object{value: SymbolValue{Name: name}}
}

// NewExpr creates an unresolved call shape from its elements.
func NewExpr(elems ...*Object) *Object {
	return &Object{value: ListValue{cat: CategoryExpr, Items: List(elems)}}
}

// NewCall creates a resolved call of result type t.
func NewCall(t *Type, head *Object, args ...*Object) *Object {
	return &Object{Type: t, value: &CallValue{cat: CategoryCall, Head: head, Args: List(args)}}
}

// NewTemp creates a temporary object of type t with payload v.
func NewTemp(t *Type, v Value) *Object {
	return &Object{Type: t, value: v, flags: FlagTemp}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Category returns the category derived from the payload.
func (o *Object) Category() Category {
	if o.value == nil {
		return CategoryDeclared
	}
	return o.value.Category()
}

// Value returns the payload.
func (o *Object) Value() Value {
	if o.value == nil {
		return Declared()
	}
	return o.value
}

// SetPayload replaces the payload. The released mark is cleared because the
// object owns a fresh payload afterwards.
func (o *Object) SetPayload(v Value) {
	o.value = v
	o.flags &^= FlagReleased
}

// Flags returns the flag set.
func (o *Object) Flags() Flags { return o.flags }

// Has reports whether all flags in f are set.
func (o *Object) Has(f Flags) bool { return o.flags&f == f }

// SetFlags sets the flags in f.
func (o *Object) SetFlags(f Flags) { o.flags |= f }

// ClearFlags clears the flags in f.
func (o *Object) ClearFlags(f Flags) { o.flags &^= f }

// IsVar reports whether the object is assignable.
func (o *Object) IsVar() bool { return o.flags&FlagVar != 0 }

// IsTemp reports whether the object is a temporary.
func (o *Object) IsTemp() bool { return o.flags&FlagTemp != 0 }

// SetVar sets or clears the variable flag.
func (o *Object) SetVar(v bool) {
	if v {
		o.flags |= FlagVar
	} else {
		o.flags &^= FlagVar
	}
}

// SetTemp sets or clears the temporary flag.
func (o *Object) SetTemp(v bool) {
	if v {
		o.flags |= FlagTemp
	} else {
		o.flags &^= FlagTemp
	}
}

// SetPos records a source position.
func (o *Object) SetPos(p Pos) {
	o.Pos = p
	o.flags |= FlagPosInfo
}

// HasPos reports whether the object carries a source position.
func (o *Object) HasPos() bool { return o.flags&FlagPosInfo != 0 }

// Target returns the object designated by a reference-category object, or
// nil for every other category.
func (o *Object) Target() *Object {
	if r, ok := o.value.(RefValue); ok {
		return r.Target
	}
	return nil
}

// SetTarget rebinds a reference-category object. It panics for other
// categories.
func (o *Object) SetTarget(target *Object) {
	r, ok := o.value.(RefValue)
	if !ok {
		panic(fmt.Sprintf("vm.Object.SetTarget: %s is not a reference", o.Category()))
	}
	r.Target = target
	o.value = r
}

// Call returns the call payload of a call or match object, or nil.
func (o *Object) Call() *CallValue {
	if c, ok := o.value.(*CallValue); ok {
		return c
	}
	return nil
}

// Items returns the elements of a list, expression or reference list.
func (o *Object) Items() List {
	if l, ok := o.value.(ListValue); ok {
		return l.Items
	}
	return nil
}

// SymbolName returns the name of a symbol object, or "".
func (o *Object) SymbolName() string {
	if s, ok := o.value.(SymbolValue); ok {
		return s.Name
	}
	return ""
}

// IsSymbol reports whether the object is a raw symbol named name.
func (o *Object) IsSymbol(name string) bool {
	s, ok := o.value.(SymbolValue)
	return ok && s.Name == name
}

// Name returns a human readable name: the declaring entity's name, a
// symbol's name, or "".
func (o *Object) Name() string {
	if o == nil {
		return ""
	}
	if o.Entity != nil && o.Entity.Name != "" {
		return o.Entity.Name
	}
	return o.SymbolName()
}

// Shallow returns a new object sharing type, entity, position and payload
// with o. Flags other than FlagVar and FlagPosInfo are not carried over.
func (o *Object) Shallow() *Object {
	return &Object{
		Type:   o.Type,
		Entity: o.Entity,
		Pos:    o.Pos,
		flags:  o.flags & (FlagVar | FlagPosInfo),
		value:  o.value,
	}
}

// String returns a short description used in traces and failure reports.
func (o *Object) String() string {
	var sb strings.Builder
	writeObject(&sb, o, 3)
	return sb.String()
}

func writeObject(sb *strings.Builder, o *Object, depth int) {
	if o == nil {
		sb.WriteString("*NULL*")
		return
	}
	if name := o.Name(); name != "" && o.Category() != CategoryString {
		sb.WriteString(name)
		return
	}
	switch v := o.Value().(type) {
	case IntValue:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case BigIntValue:
		if v.Int == nil {
			sb.WriteString("0_")
		} else {
			sb.WriteString(v.Int.String())
			sb.WriteString("_")
		}
	case CharValue:
		sb.WriteString(strconv.QuoteRune(rune(v)))
	case FloatValue:
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 64))
	case StringValue:
		sb.WriteString(strconv.Quote(string(v)))
	case EnumValue:
		if v.Name != "" {
			sb.WriteString(v.Name)
		} else {
			fmt.Fprintf(sb, "enum(%d)", v.Ordinal)
		}
	case TypeValue:
		if v.T != nil {
			sb.WriteString(v.T.Name)
		} else {
			sb.WriteString("*NULL_TYPE*")
		}
	case ListValue:
		if depth <= 0 {
			sb.WriteString("(...)")
			return
		}
		sb.WriteString("(")
		for i, item := range v.Items {
			if i > 0 {
				sb.WriteString(" ")
			}
			writeObject(sb, item, depth-1)
		}
		sb.WriteString(")")
	case *CallValue:
		if depth <= 0 {
			sb.WriteString("(...)")
			return
		}
		writeObject(sb, v.Head, depth-1)
		sb.WriteString("(")
		for i, arg := range v.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeObject(sb, arg, depth-1)
		}
		sb.WriteString(")")
	case RefValue:
		if depth <= 0 || v.Target == nil {
			sb.WriteString(o.Category().String())
			return
		}
		writeObject(sb, v.Target, depth-1)
	default:
		sb.WriteString("<")
		sb.WriteString(o.Category().String())
		sb.WriteString(">")
	}
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

// List is an ordered sequence of objects: argument lists, expression
// elements, frame lists. The holder of the slice owns it.
type List []*Object

// Copy returns a new list with the same elements.
func (l List) Copy() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}

// Index returns the position of obj in l, or -1.
func (l List) Index(obj *Object) int {
	for i, o := range l {
		if o == obj {
			return i
		}
	}
	return -1
}

// String renders the list elements separated by blanks.
func (l List) String() string {
	var sb strings.Builder
	for i, o := range l {
		if i > 0 {
			sb.WriteString(" ")
		}
		writeObject(&sb, o, 2)
	}
	return sb.String()
}
