package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Entity: a declared name
// ---------------------------------------------------------------------------

// Entity is a declared name together with the object currently bound to it
// and the scope it was declared in.
type Entity struct {
	Name   string
	Object *Object
	Scope  *Scope
}

// ---------------------------------------------------------------------------
// Signatures
// ---------------------------------------------------------------------------

// ParamKind classifies one element of a signature pattern.
type ParamKind uint8

const (
	ParamSymbol ParamKind = iota // syntax marker, matched by name and dropped
	ParamValue                   // "in" parameter passed by value
	ParamRef                     // "in" or "ref" parameter passed by reference
	ParamVar                     // "inout" parameter, the actual must be assignable
	ParamAttr                    // binds a type rather than a value
	ParamExpr                    // binds the raw, unresolved element
)

func (k ParamKind) String() string {
	switch k {
	case ParamSymbol:
		return "symbol"
	case ParamValue:
		return "in"
	case ParamRef:
		return "ref"
	case ParamVar:
		return "inout"
	case ParamAttr:
		return "attr"
	case ParamExpr:
		return "expr"
	}
	return "unknown"
}

// PatternElem is one element of a signature pattern.
type PatternElem struct {
	Kind   ParamKind
	Symbol string // for ParamSymbol
	Type   *Type  // formal type for value, ref, var and attr parameters
	In     bool   // declared as "in", passing follows the type's convention
}

// Sym returns a syntax marker element.
func Sym(name string) PatternElem { return PatternElem{Kind: ParamSymbol, Symbol: name} }

// In returns an "in" parameter element using t's passing convention.
// Types without a convention yield a by-reference element; declaring such a
// parameter through DeclareBlock reports ErrUndefinedPassing.
func In(t *Type) PatternElem {
	if t.InPassing == PassByValue {
		return PatternElem{Kind: ParamValue, Type: t, In: true}
	}
	return PatternElem{Kind: ParamRef, Type: t, In: true}
}

// Ref returns a by-reference parameter element.
func Ref(t *Type) PatternElem { return PatternElem{Kind: ParamRef, Type: t} }

// Var returns an inout parameter element.
func Var(t *Type) PatternElem { return PatternElem{Kind: ParamVar, Type: t} }

// Attr returns an attribute parameter element bound to type t.
func Attr(t *Type) PatternElem { return PatternElem{Kind: ParamAttr, Type: t} }

// ExprParam returns an element that binds the raw element.
func ExprParam() PatternElem { return PatternElem{Kind: ParamExpr} }

// Signature is a declared call pattern and the callable it resolves to.
type Signature struct {
	Pattern  []PatternElem
	Callable *Object // action, block, value or forward placeholder
	Result   *Type   // type of calls matched against this signature
	Entity   *Entity

	seq int
}

// Arity returns the number of pattern elements.
func (s *Signature) Arity() int { return len(s.Pattern) }

// String renders the pattern, e.g. "(integer) + (integer)".
func (s *Signature) String() string {
	var sb strings.Builder
	for i, e := range s.Pattern {
		if i > 0 {
			sb.WriteString(" ")
		}
		switch e.Kind {
		case ParamSymbol:
			sb.WriteString(e.Symbol)
		case ParamExpr:
			sb.WriteString("(expr)")
		case ParamAttr:
			fmt.Fprintf(&sb, "(attr %s)", e.Type)
		default:
			fmt.Fprintf(&sb, "(%s)", e.Type)
		}
	}
	return sb.String()
}

// formalCount returns the number of non-symbol elements, which is the
// number of arguments a matched call binds.
func (s *Signature) formalCount() int {
	n := 0
	for _, e := range s.Pattern {
		if e.Kind != ParamSymbol {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Scope: declaration table
// ---------------------------------------------------------------------------

// Scope is a declaration table. Lookups start at a scope and walk outward
// through its parents; the program's root scope is the outermost one.
type Scope struct {
	Name   string
	Parent *Scope

	sigs    []*Signature
	byArity map[int][]*Signature
	names   map[string]*Entity
	bound   []*Entity
	seq     int
}

// NewScope creates an empty scope nested in parent.
func NewScope(name string, parent *Scope) *Scope {
	return &Scope{
		Name:    name,
		Parent:  parent,
		byArity: make(map[int][]*Signature),
		names:   make(map[string]*Entity),
	}
}

// Declare appends a signature. Signatures keep their declaration order.
func (s *Scope) Declare(sig *Signature) *Signature {
	if sig.Entity == nil {
		sig.Entity = &Entity{Name: sig.String(), Object: sig.Callable, Scope: s}
	} else if sig.Entity.Scope == nil {
		sig.Entity.Scope = s
	}
	if sig.Callable != nil && sig.Callable.Entity == nil {
		sig.Callable.Entity = sig.Entity
	}
	s.seq++
	sig.seq = s.seq
	s.sigs = append(s.sigs, sig)
	n := len(sig.Pattern)
	s.byArity[n] = append(s.byArity[n], sig)
	return sig
}

// DeclareForward declares a signature whose callable is not known yet.
// Calls matched against it resolve to the definition given later to Define.
func (s *Scope) DeclareForward(name string, pattern []PatternElem, result *Type) *Signature {
	placeholder := NewObject(result, Forward())
	return s.Declare(&Signature{
		Pattern:  pattern,
		Callable: placeholder,
		Result:   result,
		Entity:   &Entity{Name: name, Object: placeholder},
	})
}

// Define binds a forward-declared signature to its callable. Calls already
// resolved against the placeholder follow it to the definition.
func (s *Scope) Define(sig *Signature, callable *Object) error {
	placeholder := sig.Callable
	if placeholder == nil || placeholder.Category() != CategoryForward {
		return fmt.Errorf("%s: not a forward declaration", sig)
	}
	if callable.Entity == nil {
		callable.Entity = sig.Entity
	}
	if blk := BlockOf(callable); blk != nil && blk.Scope == nil {
		blk.Scope = s
	}
	placeholder.SetPayload(NewRef(CategoryFwdRef, callable))
	sig.Callable = callable
	sig.Entity.Object = callable
	return nil
}

// Candidates returns the signatures of the given arity declared directly in
// this scope, in declaration order.
func (s *Scope) Candidates(arity int) []*Signature {
	return s.byArity[arity]
}

// Signatures returns every signature declared directly in this scope.
func (s *Scope) Signatures() []*Signature {
	return s.sigs
}

// Bind declares a named object in this scope.
func (s *Scope) Bind(name string, obj *Object) *Entity {
	e := &Entity{Name: name, Object: obj, Scope: s}
	if obj != nil && obj.Entity == nil {
		obj.Entity = e
	}
	s.names[name] = e
	s.bound = append(s.bound, e)
	return e
}

// Bound returns the named objects of this scope in binding order.
func (s *Scope) Bound() []*Entity {
	return s.bound
}

// Lookup finds a named object, walking outward through enclosing scopes.
func (s *Scope) Lookup(name string) *Entity {
	for sc := s; sc != nil; sc = sc.Parent {
		if e, ok := sc.names[name]; ok {
			return e
		}
	}
	return nil
}

// Root returns the outermost scope.
func (s *Scope) Root() *Scope {
	sc := s
	for sc.Parent != nil {
		sc = sc.Parent
	}
	return sc
}

// clear drops every declaration. Used by program teardown.
func (s *Scope) clear() {
	s.sigs = nil
	s.byArity = make(map[int][]*Signature)
	s.names = make(map[string]*Entity)
	s.bound = nil
}
