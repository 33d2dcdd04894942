package artifact

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/chazu/seedcore/vm"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("seedcore.artifact")

// ErrAnalysis is returned together with a loaded program when parts of it
// could not be resolved. The program is usable; running it reaches the
// unresolved parts as illegal_action.
var ErrAnalysis = errors.New("artifact: analysis errors")

// Load builds a program from an image. The prelude is declared first with
// actions, then the image's scopes, types, objects, declarations and
// bindings. Block bodies, initializers and main are matched last, each in
// the scope it was declared in.
//
// Objects are materialized in two phases: every record that owns a payload
// is allocated first, so records may refer to each other in any order and
// cycles are allowed; the payloads are filled in afterwards.
func Load(img *Image, actions *vm.ActionTable) (*vm.Program, error) {
	p := vm.NewProgram(img.Name)
	p.SourceFile = img.Source
	if err := vm.DeclarePrelude(p, actions); err != nil {
		return nil, err
	}
	for _, f := range img.Files {
		p.AddFile(f)
	}

	l := &loader{img: img, p: p, actions: actions, objs: make([]*vm.Object, len(img.Objects))}
	err := l.load()
	if err != nil {
		if rerr := p.Release(); rerr != nil {
			log.Warningf("%s", rerr)
		}
		return nil, err
	}
	log.Infof("loaded %s (%s): %d types, %d objects, %d declarations",
		p.Name, p.ID, len(img.Types), len(img.Objects), len(img.Decls))

	if err := errors.Join(l.resolveBlocks(), l.resolveMain()); err != nil {
		return p, err
	}
	return p, nil
}

type loader struct {
	img     *Image
	p       *vm.Program
	actions *vm.ActionTable
	objs    []*vm.Object
	scopes  []*vm.Scope
	blocks  []*vm.Block
}

func (l *loader) load() error {
	for i, rec := range l.img.Scopes {
		if rec.Parent > i {
			return fmt.Errorf("scope %s: parent %d is not an earlier scope", rec.Name, rec.Parent)
		}
		parent, err := l.scope(rec.Parent)
		if err != nil {
			return fmt.Errorf("scope %s: %w", rec.Name, err)
		}
		l.scopes = append(l.scopes, l.p.DeclareScope(rec.Name, parent))
	}
	for i, rec := range l.img.Objects {
		if rec.Kind.owned() {
			l.objs[i] = vm.NewObject(nil, vm.Declared())
		}
	}
	for _, rec := range l.img.Types {
		if err := l.declareType(rec); err != nil {
			return fmt.Errorf("type %s: %w", rec.Name, err)
		}
	}
	for i := range l.img.Objects {
		if err := l.fill(i); err != nil {
			return fmt.Errorf("object %d: %w", i+1, err)
		}
	}
	if err := l.declare(); err != nil {
		return err
	}
	for _, b := range l.img.Bindings {
		obj, err := l.ref(b.Object)
		if err != nil || obj == nil {
			return fmt.Errorf("binding %s: %v", b.Name, errOrMissing(err))
		}
		sc, err := l.scope(b.Scope)
		if err != nil {
			return fmt.Errorf("binding %s: %w", b.Name, err)
		}
		sc.Bind(b.Name, obj)
	}
	return nil
}

// scope returns the scope with 1-based index i; 0 is the root scope.
func (l *loader) scope(i int) (*vm.Scope, error) {
	if i == 0 {
		return l.p.Root, nil
	}
	if i < 0 || i > len(l.scopes) {
		return nil, fmt.Errorf("scope %d out of range", i)
	}
	return l.scopes[i-1], nil
}

func errOrMissing(err error) error {
	if err != nil {
		return err
	}
	return errors.New("no object")
}

// owned reports whether records of kind k carry their own object. The
// other kinds name an object that exists independently of the image.
func (k Kind) owned() bool {
	switch k {
	case KindSymbol, KindSysVar, KindType, KindBound, KindAction:
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// References
// ---------------------------------------------------------------------------

func (l *loader) ref(r Ref) (*vm.Object, error) {
	if r == 0 {
		return nil, nil
	}
	i := int(r) - 1
	if i >= len(l.objs) {
		return nil, fmt.Errorf("reference %d out of range", r)
	}
	if obj := l.objs[i]; obj != nil {
		return obj, nil
	}
	obj, err := l.named(&l.img.Objects[i])
	if err != nil {
		return nil, fmt.Errorf("reference %d: %w", r, err)
	}
	l.objs[i] = obj
	return obj, nil
}

func (l *loader) refs(rs []Ref) (vm.List, error) {
	out := make(vm.List, len(rs))
	for i, r := range rs {
		obj, err := l.ref(r)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			return nil, fmt.Errorf("element %d is empty", i+1)
		}
		out[i] = obj
	}
	return out, nil
}

// named resolves a record that refers to an existing object by name.
// Bound names are looked up when first referenced, so a type must be
// declared before its literals are used.
func (l *loader) named(rec *ObjectRecord) (*vm.Object, error) {
	switch rec.Kind {
	case KindSymbol:
		return l.p.Intern(rec.Text), nil
	case KindSysVar:
		v, ok := vm.LookupSysVar(rec.Text)
		if !ok || l.p.SysVar(v) == nil {
			return nil, fmt.Errorf("unknown system variable %q", rec.Text)
		}
		return l.p.SysVar(v), nil
	case KindType:
		t, err := l.typ(rec.Text)
		if err != nil {
			return nil, err
		}
		return t.MatchObj, nil
	case KindBound:
		if e := l.p.Root.Lookup(rec.Text); e != nil && e.Object != nil {
			return e.Object, nil
		}
		return nil, fmt.Errorf("%q is not bound", rec.Text)
	case KindAction:
		act := l.actions.Lookup(rec.Text)
		if act == nil {
			return nil, fmt.Errorf("unknown action %q", rec.Text)
		}
		result, err := l.optType(rec.Type)
		if err != nil {
			return nil, err
		}
		return vm.NewActionObject(act, result), nil
	}
	return nil, fmt.Errorf("kind %s is not a name", rec.Kind)
}

// typ resolves a type name. "func T" and "varfunc T" name the function
// types of T.
func (l *loader) typ(name string) (*vm.Type, error) {
	if rest, ok := strings.CutPrefix(name, "varfunc "); ok {
		t, err := l.typ(rest)
		if err != nil {
			return nil, err
		}
		return t.VarFuncType(), nil
	}
	if rest, ok := strings.CutPrefix(name, "func "); ok {
		t, err := l.typ(rest)
		if err != nil {
			return nil, err
		}
		return t.FuncType(), nil
	}
	if t := l.p.Type(name); t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

func (l *loader) optType(name string) (*vm.Type, error) {
	if name == "" {
		return nil, nil
	}
	return l.typ(name)
}

func (l *loader) typeOr(name, fallback string) (*vm.Type, error) {
	if name == "" {
		name = fallback
	}
	return l.typ(name)
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

func (l *loader) declareType(rec TypeRecord) error {
	if l.p.Type(rec.Name) != nil {
		return errors.New("already declared")
	}
	switch rec.Kind {
	case "enum":
		_, err := vm.DeclareEnumType(l.p, l.actions, rec.Name, rec.Literals...)
		return err
	case "array", "set":
		elem, err := l.typ(rec.Elem)
		if err != nil {
			return err
		}
		if rec.Kind == "array" {
			_, err = vm.DeclareArrayType(l.p, l.actions, rec.Name, elem)
		} else {
			_, err = vm.DeclareSetType(l.p, l.actions, rec.Name, elem)
		}
		return err
	case "struct":
		fields := make([]vm.Field, len(rec.Fields))
		for i, f := range rec.Fields {
			t, err := l.typ(f.Type)
			if err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
			init, err := l.ref(f.Init)
			if err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
			fields[i] = vm.Field{Name: f.Name, Type: t, Init: init}
		}
		_, err := vm.DeclareStructType(l.p, l.actions, rec.Name, fields)
		return err
	case "subtype":
		base, err := l.typ(rec.Base)
		if err != nil {
			return err
		}
		passing := base.InPassing
		switch rec.Passing {
		case "":
		case "value":
			passing = vm.PassByValue
		case "ref":
			passing = vm.PassByRef
		default:
			return fmt.Errorf("unknown passing %q", rec.Passing)
		}
		t := l.p.Types.Define(rec.Name, base, passing)
		l.p.Root.Bind(rec.Name, t.MatchObj)
		return nil
	}
	return fmt.Errorf("unknown type kind %q", rec.Kind)
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

// fill builds the payload of an owned record into its allocated object.
func (l *loader) fill(i int) error {
	rec := &l.img.Objects[i]
	if !rec.Kind.owned() {
		// resolve eagerly so dangling names are reported at load time
		_, err := l.ref(Ref(i + 1))
		return err
	}
	built, err := l.build(rec)
	if err != nil {
		return err
	}
	obj := l.objs[i]
	*obj = *built
	if obj.Entity != nil {
		obj.Entity = &vm.Entity{Name: obj.Entity.Name, Object: obj}
	}
	if rec.Var {
		obj.SetVar(true)
	}
	if rec.Pos != nil {
		if rec.Pos.File < 0 || rec.Pos.File >= len(l.img.Files) {
			return fmt.Errorf("position refers to file %d", rec.Pos.File)
		}
		obj.SetPos(vm.Pos{File: rec.Pos.File, Line: rec.Pos.Line})
	}
	switch rec.Kind {
	case KindExpr, KindBlock, KindParam, KindLocalVar, KindResult:
	default:
		l.p.AddLiteral(obj)
	}
	return nil
}

func (l *loader) build(rec *ObjectRecord) (*vm.Object, error) {
	switch rec.Kind {
	case KindInt:
		t, err := l.typeOr(rec.Type, "integer")
		if err != nil {
			return nil, err
		}
		return vm.NewObject(t, vm.IntValue(rec.Int)), nil
	case KindBigInt:
		t, err := l.typ(rec.Type)
		if err != nil {
			return nil, err
		}
		n, ok := new(big.Int).SetString(rec.Text, 10)
		if !ok {
			return nil, fmt.Errorf("bad big integer %q", rec.Text)
		}
		return vm.NewObject(t, vm.BigIntValue{Int: n}), nil
	case KindChar:
		t, err := l.typeOr(rec.Type, "char")
		if err != nil {
			return nil, err
		}
		return vm.NewObject(t, vm.CharValue(rune(rec.Int))), nil
	case KindFloat:
		t, err := l.typeOr(rec.Type, "float")
		if err != nil {
			return nil, err
		}
		return vm.NewObject(t, vm.FloatValue(rec.Float)), nil
	case KindString:
		t, err := l.typeOr(rec.Type, "string")
		if err != nil {
			return nil, err
		}
		return vm.NewObject(t, vm.StringValue(rec.Text)), nil
	case KindSet:
		t, err := l.typ(rec.Type)
		if err != nil {
			return nil, err
		}
		return vm.NewObject(t, vm.NewSetValue(rec.Ints...)), nil
	case KindDeclared:
		t, err := l.typ(rec.Type)
		if err != nil {
			return nil, err
		}
		return vm.NewObject(t, vm.Declared()), nil
	case KindExpr:
		elems, err := l.refs(rec.Elems)
		if err != nil {
			return nil, err
		}
		return vm.NewExpr(elems...), nil
	case KindArray, KindStruct:
		t, err := l.typ(rec.Type)
		if err != nil {
			return nil, err
		}
		elems, err := l.refs(rec.Elems)
		if err != nil {
			return nil, err
		}
		if rec.Kind == KindArray {
			return vm.NewObject(t, &vm.ArrayValue{Min: rec.Int, Elems: elems}), nil
		}
		return vm.NewObject(t, &vm.StructValue{Elems: elems}), nil
	case KindBlock:
		if rec.Block == nil {
			return nil, errors.New("block record without body")
		}
		blk, err := l.block(rec.Block)
		if err != nil {
			return nil, err
		}
		return vm.NewBlockObject(blk), nil
	case KindParam:
		elem, err := l.patternElem(PatternRecord{Kind: rec.Param, Text: rec.Type})
		if err != nil {
			return nil, err
		}
		if elem.Kind == vm.ParamSymbol {
			return nil, errors.New("a parameter cannot be a symbol")
		}
		return vm.NewParam(elem, rec.Text).Object, nil
	case KindLocalVar:
		t, err := l.typ(rec.Type)
		if err != nil {
			return nil, err
		}
		return vm.NewLocalVar(t, rec.Text, nil).Object, nil
	case KindResult:
		t, err := l.typ(rec.Type)
		if err != nil {
			return nil, err
		}
		return vm.NewResultVar(t, nil).Object, nil
	}
	return nil, fmt.Errorf("unknown kind %s", rec.Kind)
}

func (l *loader) block(rec *BlockRecord) (*vm.Block, error) {
	resultType, err := l.optType(rec.ResultType)
	if err != nil {
		return nil, err
	}
	blk := &vm.Block{ResultType: resultType}
	if rec.Scope != 0 {
		if blk.Scope, err = l.scope(rec.Scope); err != nil {
			return nil, err
		}
	}
	for _, r := range rec.Params {
		slot, err := l.slot(r, KindParam)
		if err != nil {
			return nil, fmt.Errorf("parameter: %w", err)
		}
		blk.Params = append(blk.Params, &vm.Local{Object: slot})
	}
	if rec.Result != nil {
		if blk.Result, err = l.local(*rec.Result, KindResult); err != nil {
			return nil, fmt.Errorf("result: %w", err)
		}
	}
	for _, lr := range rec.Locals {
		local, err := l.local(lr, KindLocalVar)
		if err != nil {
			return nil, fmt.Errorf("local: %w", err)
		}
		blk.Locals = append(blk.Locals, local)
	}
	if blk.Body, err = l.ref(rec.Body); err != nil {
		return nil, err
	}
	if blk.Body == nil {
		return nil, errors.New("block without body")
	}
	l.blocks = append(l.blocks, blk)
	return blk, nil
}

func (l *loader) slot(r Ref, kind Kind) (*vm.Object, error) {
	if r == 0 || int(r) > len(l.img.Objects) || l.img.Objects[r-1].Kind != kind {
		return nil, fmt.Errorf("reference %d is not a %s slot", r, kind)
	}
	return l.ref(r)
}

func (l *loader) local(rec LocalRecord, kind Kind) (*vm.Local, error) {
	slot, err := l.slot(rec.Slot, kind)
	if err != nil {
		return nil, err
	}
	init, err := l.ref(rec.Init)
	if err != nil {
		return nil, err
	}
	return &vm.Local{Object: slot, Init: init}, nil
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func (l *loader) patternElem(rec PatternRecord) (vm.PatternElem, error) {
	if rec.Kind == "sym" {
		return vm.Sym(rec.Text), nil
	}
	if rec.Kind == "expr" {
		return vm.ExprParam(), nil
	}
	t, err := l.typ(rec.Text)
	if err != nil {
		return vm.PatternElem{}, err
	}
	switch rec.Kind {
	case "in":
		return vm.In(t), nil
	case "ref":
		return vm.Ref(t), nil
	case "inout":
		return vm.Var(t), nil
	case "attr":
		return vm.Attr(t), nil
	}
	return vm.PatternElem{}, fmt.Errorf("unknown parameter kind %q", rec.Kind)
}

func (l *loader) declare() error {
	sigs := make([]*vm.Signature, len(l.img.Decls))
	for i, rec := range l.img.Decls {
		pattern := make([]vm.PatternElem, len(rec.Pattern))
		for j, pr := range rec.Pattern {
			pe, err := l.patternElem(pr)
			if err != nil {
				return fmt.Errorf("declaration %s: %w", rec.Name, err)
			}
			pattern[j] = pe
		}
		result, err := l.optType(rec.Result)
		if err != nil {
			return fmt.Errorf("declaration %s: %w", rec.Name, err)
		}
		sc, err := l.scope(rec.Scope)
		if err != nil {
			return fmt.Errorf("declaration %s: %w", rec.Name, err)
		}

		switch {
		case rec.Forward:
			sigs[i] = sc.DeclareForward(rec.Name, pattern, result)
		case rec.Defines > 0:
			if rec.Defines > i || sigs[rec.Defines-1] == nil {
				return fmt.Errorf("declaration %s: defines %d, which is not an earlier forward declaration", rec.Name, rec.Defines)
			}
			callable, err := l.callable(rec, result)
			if err != nil {
				return err
			}
			fwd := sigs[rec.Defines-1]
			if err := fwd.Entity.Scope.Define(fwd, callable); err != nil {
				return err
			}
		case rec.Action != "":
			if _, err := vm.DeclareAction(sc, l.actions, rec.Action, result, pattern...); err != nil {
				return err
			}
		default:
			obj, err := l.ref(rec.Callable)
			if err != nil {
				return fmt.Errorf("declaration %s: %w", rec.Name, err)
			}
			blk := vm.BlockOf(obj)
			if blk == nil {
				return fmt.Errorf("declaration %s: callable is not a block", rec.Name)
			}
			sig, err := vm.DeclareBlock(sc, rec.Name, pattern, blk)
			if err != nil {
				return err
			}
			obj.Entity = sig.Entity
		}
	}
	return nil
}

func (l *loader) callable(rec DeclRecord, result *vm.Type) (*vm.Object, error) {
	if rec.Action != "" {
		act := l.actions.Lookup(rec.Action)
		if act == nil {
			return nil, fmt.Errorf("declaration %s: unknown action %q", rec.Name, rec.Action)
		}
		return vm.NewActionObject(act, result), nil
	}
	obj, err := l.ref(rec.Callable)
	if err != nil {
		return nil, fmt.Errorf("declaration %s: %w", rec.Name, err)
	}
	if vm.BlockOf(obj) == nil {
		return nil, fmt.Errorf("declaration %s: callable is not a block", rec.Name)
	}
	return obj, nil
}

// resolveBlocks matches every block body and local initializer in the
// scope its block resolves in. An expression that does not match is left
// as it is, so running it raises illegal_action; the failures are counted
// and reported as ErrAnalysis.
func (l *loader) resolveBlocks() error {
	m := l.p.Matcher()
	failed := 0
	resolve := func(obj *vm.Object, scope *vm.Scope) *vm.Object {
		if obj == nil || obj.Category() != vm.CategoryExpr {
			return obj
		}
		call, err := m.Match(obj, scope)
		if err != nil {
			failed++
			return obj
		}
		return call
	}
	for _, blk := range l.blocks {
		scope := blk.Scope
		if scope == nil {
			scope = l.p.Root
		}
		if blk.Result != nil {
			blk.Result.Init = resolve(blk.Result.Init, scope)
		}
		for _, local := range blk.Locals {
			local.Init = resolve(local.Init, scope)
		}
		blk.Body = resolve(blk.Body, scope)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d block expression(s) do not match", ErrAnalysis, failed)
	}
	return nil
}

// resolveMain installs main. A main given as an unresolved expression is
// matched now; if that fails it stays unresolved and ErrAnalysis is
// returned.
func (l *loader) resolveMain() error {
	main, err := l.ref(l.img.Main)
	if err != nil {
		return fmt.Errorf("%w: main: %v", ErrAnalysis, err)
	}
	if main == nil {
		return nil
	}
	if main.Category() == vm.CategoryExpr {
		call, err := l.p.Matcher().Match(main, nil)
		if err != nil {
			l.p.SetSysVar(vm.SysMain, main)
			return fmt.Errorf("%w: main: %v", ErrAnalysis, err)
		}
		main = call
	}
	l.p.SetSysVar(vm.SysMain, main)
	return nil
}
