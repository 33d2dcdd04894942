package artifact

import "strings"

// Builder assembles an image record by record. It is the producer side of
// Load: an analyzer (or a test) adds objects and declarations and gets
// back references to wire them together.
type Builder struct {
	img Image
}

// NewBuilder starts an image for a program called name.
func NewBuilder(name string) *Builder {
	return &Builder{img: Image{Magic: Magic, Version: Version, Name: name}}
}

// Image returns the assembled image.
func (b *Builder) Image() *Image { return &b.img }

// Add appends an object record.
func (b *Builder) Add(rec ObjectRecord) Ref {
	b.img.Objects = append(b.img.Objects, rec)
	return Ref(len(b.img.Objects))
}

// Record returns the record behind r for further editing.
func (b *Builder) Record(r Ref) *ObjectRecord { return &b.img.Objects[r-1] }

func (b *Builder) Symbol(name string) Ref { return b.Add(ObjectRecord{Kind: KindSymbol, Text: name}) }
func (b *Builder) SysVar(name string) Ref { return b.Add(ObjectRecord{Kind: KindSysVar, Text: name}) }
func (b *Builder) Type(name string) Ref { return b.Add(ObjectRecord{Kind: KindType, Text: name}) }
func (b *Builder) Bound(name string) Ref { return b.Add(ObjectRecord{Kind: KindBound, Text: name}) }
func (b *Builder) Int(n int64) Ref { return b.Add(ObjectRecord{Kind: KindInt, Int: n}) }
func (b *Builder) Char(r rune) Ref { return b.Add(ObjectRecord{Kind: KindChar, Int: int64(r)}) }
func (b *Builder) Float(f float64) Ref { return b.Add(ObjectRecord{Kind: KindFloat, Float: f}) }
func (b *Builder) Text(s string) Ref { return b.Add(ObjectRecord{Kind: KindString, Text: s}) }

// Variable adds an assignable object of type t without a value.
func (b *Builder) Variable(t string) Ref {
	return b.Add(ObjectRecord{Kind: KindDeclared, Type: t, Var: true})
}

// Expr adds a call shape. Elements may be Refs or strings; strings become
// symbols.
func (b *Builder) Expr(elems ...any) Ref {
	refs := make([]Ref, len(elems))
	for i, e := range elems {
		switch v := e.(type) {
		case Ref:
			refs[i] = v
		case string:
			refs[i] = b.Symbol(v)
		default:
			panic("artifact: Expr elements are Refs or strings")
		}
	}
	return b.Add(ObjectRecord{Kind: KindExpr, Elems: refs})
}

// Param adds a parameter slot. kind is a pattern kind other than "sym".
func (b *Builder) Param(kind, t, name string) Ref {
	return b.Add(ObjectRecord{Kind: KindParam, Param: kind, Type: t, Text: name})
}

// LocalVar adds a local variable slot.
func (b *Builder) LocalVar(t, name string) Ref {
	return b.Add(ObjectRecord{Kind: KindLocalVar, Type: t, Text: name})
}

// Result adds a result variable slot.
func (b *Builder) Result(t string) Ref {
	return b.Add(ObjectRecord{Kind: KindResult, Type: t})
}

// Block adds a block object.
func (b *Builder) Block(blk BlockRecord) Ref {
	return b.Add(ObjectRecord{Kind: KindBlock, Type: blk.ResultType, Block: &blk})
}

// File registers a source file and returns its index.
func (b *Builder) File(name string) int {
	b.img.Files = append(b.img.Files, name)
	return len(b.img.Files) - 1
}

// At attaches a source position to r.
func (b *Builder) At(r Ref, file, line int) Ref {
	b.Record(r).Pos = &PosRecord{File: file, Line: line}
	return r
}

// DeclareType appends a type record.
func (b *Builder) DeclareType(rec TypeRecord) {
	b.img.Types = append(b.img.Types, rec)
}

// Declare appends a declaration and returns its 1-based index, the value
// a later definition of a forward declaration puts in Defines.
func (b *Builder) Declare(rec DeclRecord) int {
	b.img.Decls = append(b.img.Decls, rec)
	return len(b.img.Decls)
}

// Bind binds r under name in the root scope.
func (b *Builder) Bind(name string, r Ref) {
	b.BindIn(0, name, r)
}

// BindIn binds r under name in scope, an index returned by Scope.
func (b *Builder) BindIn(scope int, name string, r Ref) {
	b.img.Bindings = append(b.img.Bindings, BindingRecord{Name: name, Object: r, Scope: scope})
}

// Scope adds a scope nested in parent (0 for the root) and returns the
// index declarations and bindings use to name it.
func (b *Builder) Scope(name string, parent int) int {
	b.img.Scopes = append(b.img.Scopes, ScopeRecord{Name: name, Parent: parent})
	return len(b.img.Scopes)
}

// Main sets the program's main object.
func (b *Builder) Main(r Ref) { b.img.Main = r }

// Pattern builds pattern records from a compact notation: "kind:type"
// strings with a parameter kind are parameters ("in:integer",
// "inout:string", "expr:"), everything else is a symbol.
func Pattern(elems ...string) []PatternRecord {
	out := make([]PatternRecord, len(elems))
	for i, e := range elems {
		out[i] = PatternRecord{Kind: "sym", Text: e}
		if kind, t, ok := strings.Cut(e, ":"); ok && paramKinds[kind] {
			out[i] = PatternRecord{Kind: kind, Text: t}
		}
	}
	return out
}

var paramKinds = map[string]bool{"in": true, "ref": true, "inout": true, "attr": true, "expr": true}
