package vm

import (
	"errors"
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// Type: static type descriptor
// ---------------------------------------------------------------------------

// ParamPassing is a type's convention for "in" parameters.
type ParamPassing uint8

const (
	PassUndefined ParamPassing = iota // no convention declared, using the type as "in" is an error
	PassByValue                       // "in" parameters receive a private copy
	PassByRef                         // "in" parameters alias the actual argument
)

func (p ParamPassing) String() string {
	switch p {
	case PassByValue:
		return "by-value"
	case PassByRef:
		return "by-reference"
	}
	return "undefined"
}

// ErrUndefinedPassing is returned when an "in" parameter is declared for a
// type that has no parameter passing convention.
var ErrUndefinedPassing = errors.New("undefined parameter passing convention")

// Type describes a static type. Types form a meta (supertype) chain and may
// implement interfaces. Function types carry their result type.
type Type struct {
	ID         uint32
	Name       string
	Meta       *Type   // supertype, nil at the root
	Result     *Type   // result type when this is a function type
	VarFunc    bool    // function type whose result is assignable
	Interfaces []*Type // interfaces implemented by this type
	InPassing  ParamPassing

	// Elem is the element type of array and set types.
	Elem *Type
	// Fields names the elements of a struct type in declaration order.
	Fields []string

	// MatchObj is the type-category object that stands for this type in
	// expressions and signatures.
	MatchObj *Object

	// Literal is an optional cached literal value of this type.
	Literal *Object

	// Dispatch holds the lazily resolved construct/copy/destroy/ordinal/
	// membership callables for values of this type.
	Dispatch DispatchCache

	funcType    *Type
	varfuncType *Type
	table       *TypeTable
}

// IsFunc reports whether t is a function type.
func (t *Type) IsFunc() bool { return t != nil && t.Result != nil }

// String returns the type name.
func (t *Type) String() string {
	if t == nil {
		return "*NULL_TYPE*"
	}
	return t.Name
}

// FuncType returns the function type yielding t, creating it on first use.
func (t *Type) FuncType() *Type {
	if t.funcType == nil {
		t.funcType = t.derive("func "+t.Name, false)
	}
	return t.funcType
}

// VarFuncType returns the varfunc type yielding t, creating it on first use.
func (t *Type) VarFuncType() *Type {
	if t.varfuncType == nil {
		t.varfuncType = t.derive("varfunc "+t.Name, true)
	}
	return t.varfuncType
}

func (t *Type) derive(name string, varfunc bool) *Type {
	d := &Type{Name: name, Result: t, VarFunc: varfunc, InPassing: PassByRef}
	if t.table != nil {
		t.table.Register(d)
	} else {
		d.MatchObj = NewObject(nil, TypeValue{T: d})
	}
	return d
}

// InParamCategory returns the slot category for an "in" parameter of this
// type, or ErrUndefinedPassing.
func (t *Type) InParamCategory() (Category, error) {
	switch t.InPassing {
	case PassByValue:
		return CategoryValueParam, nil
	case PassByRef:
		return CategoryRefParam, nil
	}
	return 0, fmt.Errorf("type %s: %w", t.Name, ErrUndefinedPassing)
}

// IsSubtypeOf reports whether t equals other, has other in its meta chain,
// or implements other as an interface.
func (t *Type) IsSubtypeOf(other *Type) bool {
	if t == nil || other == nil {
		return false
	}
	for c := t; c != nil; c = c.Meta {
		if c == other {
			return true
		}
		for _, iface := range c.Interfaces {
			if iface == other {
				return true
			}
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// TypeTable: per-program type registry
// ---------------------------------------------------------------------------

// TypeTable registers the types of one program in registration order.
type TypeTable struct {
	mu     sync.RWMutex
	types  []*Type
	byName map[string]*Type
	typeOf *Type // the type of type-category objects, once registered
}

// NewTypeTable creates an empty type table.
func NewTypeTable() *TypeTable {
	return &TypeTable{byName: make(map[string]*Type)}
}

// Register adds a type, assigning its ID and creating its match object.
// Returns the previous type with the same name, or nil.
func (tt *TypeTable) Register(t *Type) *Type {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	t.ID = uint32(len(tt.types))
	t.table = tt
	if t.MatchObj == nil {
		t.MatchObj = NewObject(tt.typeOf, TypeValue{T: t})
	}
	tt.types = append(tt.types, t)
	old := tt.byName[t.Name]
	tt.byName[t.Name] = t
	return old
}

// Define creates and registers a type with the given name and supertype.
func (tt *TypeTable) Define(name string, meta *Type, passing ParamPassing) *Type {
	t := &Type{Name: name, Meta: meta, InPassing: passing}
	tt.Register(t)
	return t
}

// SetTypeOfTypes records the type given to type-category objects. Match
// objects of already registered types are updated.
func (tt *TypeTable) SetTypeOfTypes(t *Type) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.typeOf = t
	for _, each := range tt.types {
		if each.MatchObj != nil && each.MatchObj.Type == nil {
			each.MatchObj.Type = t
		}
	}
}

// Lookup finds a type by name.
func (tt *TypeTable) Lookup(name string) *Type {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return tt.byName[name]
}

// ByID returns the type with the given ID, or nil.
func (tt *TypeTable) ByID(id uint32) *Type {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	if int(id) < len(tt.types) {
		return tt.types[id]
	}
	return nil
}

// All returns the registered types in registration order.
func (tt *TypeTable) All() []*Type {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	out := make([]*Type, len(tt.types))
	copy(out, tt.types)
	return out
}

// Len returns the number of registered types.
func (tt *TypeTable) Len() int {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return len(tt.types)
}

// clear drops every type. Used by program teardown.
func (tt *TypeTable) clear() {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	for _, t := range tt.types {
		t.Dispatch.reset()
		t.Literal = nil
		t.table = nil
	}
	tt.types = nil
	tt.byName = make(map[string]*Type)
}
