package vm

import (
	"fmt"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Program: root execution context
// ---------------------------------------------------------------------------

// Program is the root context of one analyzed program: its declaration
// root, type registry, system variables and live failure state. Programs
// are shared through an explicit usage count; the last Release tears the
// program down.
type Program struct {
	ID         uuid.UUID
	Name       string
	SourceFile string
	Files      []string

	Root  *Scope
	Types *TypeTable
	Main  *Object

	// Fail is the failure channel of code running in this program.
	Fail FailureState

	// ErrorCount counts analysis errors reported while resolving.
	ErrorCount int

	sysVars  [numSysVars]*Object
	literals List
	idents   map[string]*Object
	frames   []frame
	scopes   []*Scope
	matcher  *Matcher
	usage    int

	teardownHook func(stage string)
}

// Teardown stages, in the order Release runs them.
const (
	StageFrames       = "frames"
	StageDeclarations = "declarations"
	StageIdentifiers  = "identifiers"
	StageTypes        = "types"
	StageLiterals     = "literals"
)

// NewProgram creates a program with the base types and system variables
// registered and a usage count of one.
func NewProgram(name string) *Program {
	p := &Program{
		ID:     uuid.New(),
		Name:   name,
		Types:  NewTypeTable(),
		idents: make(map[string]*Object),
		usage:  1,
	}
	p.Root = NewScope(name, nil)
	p.bootstrapTypes()
	progLog.Debugf("program %s (%s) created", p.Name, p.ID)
	return p
}

func (p *Program) bootstrapTypes() {
	typeT := p.Types.Define("type", nil, PassByValue)
	p.Types.SetTypeOfTypes(typeT)

	voidT := p.Types.Define("void", nil, PassByValue)
	boolT := p.Types.Define("boolean", nil, PassByValue)
	intT := p.Types.Define("integer", nil, PassByValue)
	charT := p.Types.Define("char", nil, PassByValue)
	strT := p.Types.Define("string", nil, PassByRef)
	floatT := p.Types.Define("float", nil, PassByValue)
	exprT := p.Types.Define("expr", nil, PassByRef)
	excT := p.Types.Define("EXCEPTION", nil, PassByValue)
	procT := voidT.FuncType()

	for _, t := range []*Type{typeT, voidT, boolT, intT, charT, strT, floatT, exprT, excT} {
		p.Root.Bind(t.Name, t.MatchObj)
	}

	empty := NewObject(voidT, EnumValue{Name: "empty"})
	p.sysVars[SysEmpty] = empty
	p.Root.Bind("empty", empty)

	for i, v := range exceptionVars {
		exc := NewObject(excT, EnumValue{Ordinal: int64(i), Name: v.String()})
		p.sysVars[v] = exc
		p.Root.Bind(v.String(), exc)
	}

	falseObj := NewObject(boolT, EnumValue{Ordinal: 0, Name: "FALSE"})
	trueObj := NewObject(boolT, EnumValue{Ordinal: 1, Name: "TRUE"})
	p.sysVars[SysFalse] = falseObj
	p.sysVars[SysTrue] = trueObj
	p.Root.Bind("FALSE", falseObj)
	p.Root.Bind("TRUE", trueObj)

	p.sysVars[SysType] = typeT.MatchObj
	p.sysVars[SysExpr] = exprT.MatchObj
	p.sysVars[SysInteger] = intT.MatchObj
	p.sysVars[SysChar] = charT.MatchObj
	p.sysVars[SysString] = strT.MatchObj
	p.sysVars[SysProc] = procT.MatchObj
	p.sysVars[SysFloat] = floatT.MatchObj

	p.sysVars[SysAssign] = p.Intern(":=")
	p.sysVars[SysCreate] = p.Intern("::=")
	p.sysVars[SysDestroy] = p.Intern("destroy")
	p.sysVars[SysOrd] = p.Intern("ord")
	p.sysVars[SysIn] = p.Intern("in")
	p.sysVars[SysValue] = p.Intern("value")
	p.sysVars[SysFlush] = p.Intern("flush")
	p.sysVars[SysWrite] = p.Intern("write")
	p.sysVars[SysWriteln] = p.Intern("writeln")
}

// SysVar returns a well-known object.
func (p *Program) SysVar(v SysVar) *Object { return p.sysVars[v] }

// SetSysVar replaces a well-known object. Loaders use it to bind objects
// the analyzer declared, main in particular.
func (p *Program) SetSysVar(v SysVar, obj *Object) {
	p.sysVars[v] = obj
	if v == SysMain {
		p.Main = obj
	}
}

// Empty returns the empty (void) value.
func (p *Program) Empty() *Object { return p.sysVars[SysEmpty] }

// Bool returns the TRUE or FALSE singleton.
func (p *Program) Bool(b bool) *Object {
	if b {
		return p.sysVars[SysTrue]
	}
	return p.sysVars[SysFalse]
}

// IsTrue reports whether obj is the TRUE singleton.
func (p *Program) IsTrue(obj *Object) bool { return obj == p.sysVars[SysTrue] }

// IsFalse reports whether obj is the FALSE singleton.
func (p *Program) IsFalse(obj *Object) bool { return obj == p.sysVars[SysFalse] }

// Exception returns the exception object for errors of kind k.
func (p *Program) Exception(k ErrorKind) *Object {
	return p.sysVars[k.ExceptionVar()]
}

// Type returns the base type registered under name, or nil.
func (p *Program) Type(name string) *Type { return p.Types.Lookup(name) }

// Intern returns the unique symbol object for name.
func (p *Program) Intern(name string) *Object {
	if sym, ok := p.idents[name]; ok {
		return sym
	}
	sym := NewSymbol(name)
	p.idents[name] = sym
	return sym
}

// AddLiteral records a literal owned by the program.
func (p *Program) AddLiteral(obj *Object) *Object {
	p.literals = append(p.literals, obj)
	return obj
}

// AddFile registers a source file name and returns its index for Pos.
func (p *Program) AddFile(name string) int {
	p.Files = append(p.Files, name)
	return len(p.Files) - 1
}

// FileName returns the file name of a position.
func (p *Program) FileName(pos Pos) string {
	if pos.File >= 0 && pos.File < len(p.Files) {
		return p.Files[pos.File]
	}
	return p.SourceFile
}

// Matcher returns the program's matcher.
func (p *Program) Matcher() *Matcher {
	if p.matcher == nil {
		p.matcher = NewMatcher(p)
	}
	return p.matcher
}

// frame is one entry of the scope stack. Frames opened by local
// declaration groups are owned and cleared when they close; a block's
// declaration scope is only borrowed while its body runs.
type frame struct {
	scope *Scope
	owned bool
}

// CurrentScope returns the innermost scope on the stack, or the
// declaration root.
func (p *Program) CurrentScope() *Scope {
	if n := len(p.frames); n > 0 {
		return p.frames[n-1].scope
	}
	return p.Root
}

// pushFrame opens a runtime declaration frame.
func (p *Program) pushFrame(name string) *Scope {
	sc := NewScope(name, p.CurrentScope())
	p.frames = append(p.frames, frame{scope: sc, owned: true})
	return sc
}

// enterScope makes sc the current scope until the matching popFrame.
func (p *Program) enterScope(sc *Scope) {
	p.frames = append(p.frames, frame{scope: sc})
}

// popFrame closes the innermost frame. Only owned frames are cleared.
func (p *Program) popFrame() {
	n := len(p.frames)
	if n == 0 {
		return
	}
	if f := p.frames[n-1]; f.owned {
		if p.matcher != nil {
			p.matcher.Forget(f.scope)
		}
		f.scope.clear()
	}
	p.frames = p.frames[:n-1]
}

// ---------------------------------------------------------------------------
// Shared ownership
// ---------------------------------------------------------------------------

// Acquire increments the usage count.
func (p *Program) Acquire() *Program {
	p.usage++
	return p
}

// Release decrements the usage count and tears the program down when it
// reaches zero. Release after teardown is an error.
func (p *Program) Release() error {
	if p.usage <= 0 {
		return fmt.Errorf("program %s: release after teardown", p.Name)
	}
	p.usage--
	if p.usage == 0 {
		p.teardown()
	}
	return nil
}

// UsageCount returns the current usage count.
func (p *Program) UsageCount() int { return p.usage }

// teardown releases everything the program owns in a fixed order: runtime
// stack frames, the declaration table, identifiers, types and finally the
// literal pool.
func (p *Program) teardown() {
	progLog.Debugf("program %s (%s) teardown", p.Name, p.ID)

	for len(p.frames) > 0 {
		p.popFrame()
	}
	p.stage(StageFrames)

	for _, sc := range p.scopes {
		sc.clear()
	}
	p.scopes = nil
	p.Root.clear()
	p.Main = nil
	p.matcher = nil
	p.stage(StageDeclarations)

	p.idents = make(map[string]*Object)
	p.stage(StageIdentifiers)

	p.Types.clear()
	p.sysVars = [numSysVars]*Object{}
	p.stage(StageTypes)

	for _, lit := range p.literals {
		lit.SetFlags(FlagReleased)
	}
	p.literals = nil
	p.stage(StageLiterals)

	p.Fail.Leave()
}

func (p *Program) stage(name string) {
	if p.teardownHook != nil {
		p.teardownHook(name)
	}
}

// DeclareScope creates a declaration scope nested in parent, or in the
// root scope when parent is nil. It lives until the program is torn down.
func (p *Program) DeclareScope(name string, parent *Scope) *Scope {
	if parent == nil {
		parent = p.Root
	}
	sc := NewScope(name, parent)
	p.scopes = append(p.scopes, sc)
	return sc
}

// ProgObject wraps the program in a program-handle object of type t.
func (p *Program) ProgObject(t *Type) *Object {
	return NewObject(t, ProgValue{Prog: p})
}
