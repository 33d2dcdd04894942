package vm

import "fmt"

// ---------------------------------------------------------------------------
// Block: user-defined function or procedure
// ---------------------------------------------------------------------------

// Local is a parameter, local variable or result slot of a block. The slot
// object is rebound on every invocation; Init is the value a local variable
// or result starts with.
type Local struct {
	Object *Object
	Init   *Object
}

// Block is a user-defined function or procedure body. Params line up with
// the non-symbol elements of the signature it is declared under.
type Block struct {
	Params     []*Local
	Result     *Local // explicit result variable, nil when the body returns directly
	Locals     []*Local
	Body       *Object
	ResultType *Type  // nil for procedures
	Scope      *Scope // where the block is declared; its body resolves there
}

func (*Block) Category() Category { return CategoryBlock }
func (*Block) isValue()           {}

// NewBlockObject wraps a block in an object.
func NewBlockObject(b *Block) *Object {
	return &Object{Type: b.ResultType, value: b}
}

// BlockOf returns the block carried by obj, or nil.
func BlockOf(obj *Object) *Block {
	if b, ok := obj.Value().(*Block); ok {
		return b
	}
	return nil
}

// NewParam creates the slot for a non-symbol pattern element.
func NewParam(e PatternElem, name string) *Local {
	var cat Category
	switch e.Kind {
	case ParamValue:
		cat = CategoryValueParam
	case ParamRef, ParamVar:
		cat = CategoryRefParam
	default:
		cat = CategoryFormParam
	}
	obj := NewObject(e.Type, NewRef(cat, nil))
	if e.Kind == ParamVar {
		obj.SetVar(true)
	}
	obj.Entity = &Entity{Name: name, Object: obj}
	return &Local{Object: obj}
}

// NewLocalVar creates a local variable slot initialised from init.
func NewLocalVar(t *Type, name string, init *Object) *Local {
	obj := NewObject(t, NewRef(CategoryLocalVar, nil))
	obj.SetVar(true)
	obj.Entity = &Entity{Name: name, Object: obj}
	return &Local{Object: obj, Init: init}
}

// NewResultVar creates the result slot of a function initialised from init.
func NewResultVar(t *Type, init *Object) *Local {
	obj := NewObject(t, NewRef(CategoryResult, nil))
	obj.SetVar(true)
	obj.Entity = &Entity{Name: "result", Object: obj}
	return &Local{Object: obj, Init: init}
}

// DeclareBlock declares blk in scope under pattern. It checks that every
// "in" parameter has a type with a passing convention and that the block
// has one slot per non-symbol element.
func DeclareBlock(scope *Scope, name string, pattern []PatternElem, blk *Block) (*Signature, error) {
	formals := 0
	for _, e := range pattern {
		if e.Kind == ParamSymbol {
			continue
		}
		if e.In && e.Type != nil && e.Type.InPassing == PassUndefined {
			return nil, fmt.Errorf("declare %s: %w (type %s)", name, ErrUndefinedPassing, e.Type)
		}
		formals++
	}
	if formals != len(blk.Params) {
		return nil, fmt.Errorf("declare %s: %d formal parameters, %d slots", name, formals, len(blk.Params))
	}
	if blk.Scope == nil {
		blk.Scope = scope
	}
	obj := NewBlockObject(blk)
	sig := &Signature{
		Pattern:  pattern,
		Callable: obj,
		Result:   blk.ResultType,
		Entity:   &Entity{Name: name, Object: obj},
	}
	obj.Entity = sig.Entity
	return scope.Declare(sig), nil
}
