package vm

import "fmt"

// ---------------------------------------------------------------------------
// Prelude: declarations of the primitive library
// ---------------------------------------------------------------------------

// Names of the types the prelude registers in addition to the base types.
const (
	TypeFile      = "file"
	TypeSocket    = "socket"
	TypeDatabase  = "database"
	TypeStatement = "sqlStatement"
	TypeProgram   = "PROGRAM"
)

// declarer declares native actions into a scope and keeps the first error.
type declarer struct {
	scope   *Scope
	actions *ActionTable
	err     error
}

func (d *declarer) action(name string, result *Type, pattern ...PatternElem) *Signature {
	if d.err != nil {
		return nil
	}
	sig, err := DeclareAction(d.scope, d.actions, name, result, pattern...)
	if err != nil {
		d.err = err
		return nil
	}
	return sig
}

// DeclareAction declares the native action registered as name under
// pattern. Calls matched against the signature have type result.
func DeclareAction(scope *Scope, actions *ActionTable, name string, result *Type, pattern ...PatternElem) (*Signature, error) {
	act := actions.Lookup(name)
	if act == nil {
		return nil, fmt.Errorf("declare %s: unknown action", name)
	}
	return scope.Declare(&Signature{
		Pattern:  pattern,
		Callable: NewActionObject(act, result),
		Result:   result,
	}), nil
}

// valueOps declares construct, copy and destroy for t.
func (d *declarer) valueOps(t, void *Type, create, cpy, destr string) {
	d.action(create, void, Ref(t), Sym("::="), In(t))
	d.action(cpy, void, Var(t), Sym(":="), In(t))
	d.action(destr, void, Sym("destroy"), Ref(t))
}

// enumOps declares the operations shared by every enumeration type.
func (d *declarer) enumOps(t, void, boolT, intT *Type) {
	d.valueOps(t, void, "ENU_CREATE", "ENU_CPY", "GEN_DESTR")
	d.action("ENU_ORD", intT, Sym("ord"), In(t))
	d.action("ENU_EQ", boolT, In(t), Sym("="), In(t))
	d.action("ENU_NE", boolT, In(t), Sym("<>"), In(t))
}

// DeclarePrelude registers the handle types and declares the primitive
// library in the program's root scope.
func DeclarePrelude(p *Program, actions *ActionTable) error {
	d := &declarer{scope: p.Root, actions: actions}

	typeT := p.Type("type")
	void := p.Type("void")
	boolT := p.Type("boolean")
	intT := p.Type("integer")
	charT := p.Type("char")
	strT := p.Type("string")
	floatT := p.Type("float")
	exprT := p.Type("expr")
	excT := p.Type("EXCEPTION")
	proc := void.FuncType()
	boolFn := boolT.FuncType()

	fileT := definePreludeType(p, TypeFile)
	socketT := definePreludeType(p, TypeSocket)
	dbT := definePreludeType(p, TypeDatabase)
	stmtT := definePreludeType(p, TypeStatement)
	progT := definePreludeType(p, TypeProgram)

	// integer
	d.valueOps(intT, void, "GEN_CREATE", "GEN_CPY", "GEN_DESTR")
	for _, op := range []struct{ sym, name string }{
		{"+", "INT_ADD"}, {"-", "INT_SBTR"}, {"*", "INT_MULT"},
		{"div", "INT_DIV"}, {"rem", "INT_REM"}, {"**", "INT_POW"},
	} {
		d.action(op.name, intT, In(intT), Sym(op.sym), In(intT))
	}
	for _, op := range []struct{ sym, name string }{
		{"=", "INT_EQ"}, {"<>", "INT_NE"}, {"<", "INT_LT"},
		{"<=", "INT_LE"}, {">", "INT_GT"}, {">=", "INT_GE"},
	} {
		d.action(op.name, boolT, In(intT), Sym(op.sym), In(intT))
	}
	d.action("INT_NEGATE", intT, Sym("-"), In(intT))
	d.action("INT_SUCC", intT, Sym("succ"), In(intT))
	d.action("INT_PRED", intT, Sym("pred"), In(intT))
	d.action("INT_ORD", intT, Sym("ord"), In(intT))
	d.action("INT_STR", strT, Sym("str"), In(intT))
	d.action("INT_GROW", void, Var(intT), Sym("+:="), In(intT))
	d.action("INT_PARSE", intT, Attr(intT), Sym("value"), In(strT))

	// char
	d.valueOps(charT, void, "GEN_CREATE", "GEN_CPY", "GEN_DESTR")
	d.action("CHR_ORD", intT, Sym("ord"), In(charT))
	d.action("CHR_CHR", charT, Sym("chr"), In(intT))
	d.action("CHR_EQ", boolT, In(charT), Sym("="), In(charT))

	// float
	d.valueOps(floatT, void, "GEN_CREATE", "GEN_CPY", "GEN_DESTR")
	d.action("FLT_ADD", floatT, In(floatT), Sym("+"), In(floatT))
	d.action("FLT_MULT", floatT, In(floatT), Sym("*"), In(floatT))
	d.action("FLT_LT", boolT, In(floatT), Sym("<"), In(floatT))
	d.action("FLT_FLT", floatT, Sym("flt"), In(intT))
	d.action("FLT_STR", strT, Sym("str"), In(floatT))

	// string
	d.valueOps(strT, void, "GEN_CREATE", "GEN_CPY", "GEN_DESTR")
	d.action("STR_CAT", strT, In(strT), Sym("&"), In(strT))
	d.action("STR_APPEND", void, Var(strT), Sym("&:="), In(strT))
	d.action("STR_LNG", intT, Sym("length"), In(strT))
	d.action("STR_EQ", boolT, In(strT), Sym("="), In(strT))
	d.action("STR_NE", boolT, In(strT), Sym("<>"), In(strT))
	d.action("STR_IDX", charT, In(strT), Sym("["), In(intT), Sym("]"))

	// boolean and the other enumerations
	d.enumOps(boolT, void, boolT, intT)
	d.action("BLN_AND", boolT, In(boolT), Sym("and"), Ref(boolFn))
	d.action("BLN_OR", boolT, In(boolT), Sym("or"), Ref(boolFn))
	d.action("BLN_NOT", boolT, Sym("not"), In(boolT))
	d.enumOps(excT, void, boolT, intT)

	// types
	d.valueOps(typeT, void, "GEN_CREATE", "GEN_CPY", "GEN_DESTR")
	d.action("TYP_STR", strT, Sym("str"), In(typeT))

	// control flow
	d.action("PRC_NOOP", void, Sym("noop"))
	d.action("PRC_SEQ", void, Ref(proc), Sym(";"), Ref(proc))
	d.action("PRC_IF", void, Sym("if"), In(boolT), Sym("then"), Ref(proc), Sym("end"), Sym("if"))
	d.action("PRC_IF_ELSE", void, Sym("if"), In(boolT), Sym("then"), Ref(proc),
		Sym("else"), Ref(proc), Sym("end"), Sym("if"))
	d.action("PRC_WHILE", void, Sym("while"), Ref(boolFn), Sym("do"), Ref(proc), Sym("end"), Sym("while"))
	d.action("PRC_REPEAT", void, Sym("repeat"), Ref(proc), Sym("until"), Ref(boolFn))
	d.action("PRC_RAISE", void, Sym("raise"), In(excT))
	d.action("PRC_BLOCK_CATCH", void, Sym("block"), Ref(proc), Sym("exception"), Sym("catch"),
		In(excT), Sym(":"), Ref(proc), Sym("end"), Sym("block"))
	d.action("PRC_BLOCK_OTHERWISE", void, Sym("block"), Ref(proc), Sym("exception"),
		Sym("otherwise"), Sym(":"), Ref(proc), Sym("end"), Sym("block"))
	d.action("PRC_LOCAL", void, Sym("local"), ExprParam(), Sym("begin"), ExprParam(), Sym("end"))
	d.action("PRC_WRITE", void, Sym("write"), In(strT))
	d.action("PRC_WRITELN", void, Sym("writeln"), In(strT))

	// declarations
	d.action("DCL_CONST", void, Sym("const"), In(typeT), Sym(":"), ExprParam(), Sym("is"), ExprParam())
	d.action("DCL_VAR", void, Sym("var"), In(typeT), Sym(":"), ExprParam(), Sym("is"), ExprParam())

	// programs
	d.valueOps(progT, void, "PRG_CREATE", "PRG_CPY", "PRG_DESTR")
	d.action("PRG_EVAL", exprT, Sym("evaluate"), In(progT), ExprParam())
	d.action("PRG_EXEC", void, Sym("execute"), In(progT))
	d.action("PRG_NAME", strT, Sym("name"), In(progT))
	d.action("PRG_ERROR_COUNT", intT, Sym("errorCount"), In(progT))

	// files
	d.valueOps(fileT, void, "HDL_CREATE", "HDL_CPY", "HDL_DESTR")
	d.action("FIL_OPEN", fileT, Sym("open"), In(strT), In(strT))
	d.action("FIL_CLOSE", void, Sym("close"), In(fileT))
	d.action("FIL_WRITE", void, Sym("write"), In(fileT), In(strT))
	d.action("FIL_WRITELN", void, Sym("writeln"), In(fileT))
	d.action("FIL_FLUSH", void, Sym("flush"), In(fileT))
	d.action("FIL_GETLN", strT, Sym("getln"), In(fileT))

	// sockets
	d.valueOps(socketT, void, "HDL_CREATE", "HDL_CPY", "HDL_DESTR")
	d.action("SOC_DIAL", socketT, Sym("dial"), In(strT))
	d.action("SOC_WRITE", void, Sym("write"), In(socketT), In(strT))
	d.action("SOC_GETLN", strT, Sym("getln"), In(socketT))
	d.action("SOC_CLOSE", void, Sym("close"), In(socketT))

	// databases
	d.valueOps(dbT, void, "HDL_CREATE", "HDL_CPY", "HDL_DESTR")
	d.valueOps(stmtT, void, "HDL_CREATE", "HDL_CPY", "HDL_DESTR")
	d.action("SQL_OPEN", dbT, Sym("openDatabase"), In(strT), In(strT))
	d.action("SQL_CLOSE", void, Sym("close"), In(dbT))
	d.action("SQL_PREPARE", stmtT, Sym("prepare"), In(dbT), In(strT))
	d.action("SQL_BIND_INT", void, Sym("bind"), In(stmtT), In(intT), In(intT))
	d.action("SQL_BIND_STRI", void, Sym("bind"), In(stmtT), In(intT), In(strT))
	d.action("SQL_EXECUTE", void, Sym("execute"), In(stmtT))
	d.action("SQL_FETCH", boolT, Sym("fetch"), In(stmtT))
	d.action("SQL_COLUMN_INT", intT, Sym("column"), In(stmtT), In(intT), Attr(intT))
	d.action("SQL_COLUMN_STRI", strT, Sym("column"), In(stmtT), In(intT), Attr(strT))

	if d.err != nil {
		return d.err
	}

	for _, std := range []struct {
		name string
		kind int
	}{{"IN", StdIn}, {"OUT", StdOut}, {"ERR", StdErr}} {
		obj := NewObject(fileT, NewHandleValue(CategoryFile, NewStdFile(std.kind, std.name)))
		p.Root.Bind(std.name, obj)
	}
	progLog.Debugf("prelude declared %d signatures in %s", len(p.Root.Signatures()), p.Name)
	return nil
}

// definePreludeType returns the type registered as name, defining it when
// the program does not have it yet.
func definePreludeType(p *Program, name string) *Type {
	if t := p.Type(name); t != nil {
		return t
	}
	return defineType(p, name, PassByValue)
}

// defineType registers a type and binds its name in the root scope.
func defineType(p *Program, name string, passing ParamPassing) *Type {
	t := p.Types.Define(name, nil, passing)
	p.Root.Bind(name, t.MatchObj)
	return t
}

// ---------------------------------------------------------------------------
// Composite type declarations
// ---------------------------------------------------------------------------

// DeclareEnumType registers an enumeration type and binds its literals in
// the root scope with ordinals in the given order.
func DeclareEnumType(p *Program, actions *ActionTable, name string, literals ...string) (*Type, error) {
	t := defineType(p, name, PassByValue)
	d := &declarer{scope: p.Root, actions: actions}
	d.enumOps(t, p.Type("void"), p.Type("boolean"), p.Type("integer"))
	if d.err != nil {
		return nil, d.err
	}
	for i, lit := range literals {
		p.Root.Bind(lit, p.AddLiteral(NewObject(t, EnumValue{Ordinal: int64(i), Name: lit})))
	}
	return t, nil
}

// DeclareArrayType registers an array type with elements of type elem.
func DeclareArrayType(p *Program, actions *ActionTable, name string, elem *Type) (*Type, error) {
	t := defineType(p, name, PassByRef)
	t.Elem = elem
	void, intT := p.Type("void"), p.Type("integer")
	d := &declarer{scope: p.Root, actions: actions}
	d.valueOps(t, void, "ARR_CREATE", "ARR_CPY", "ARR_DESTR")
	d.action("ARR_IDX", elem.VarFuncType(), Var(t), Sym("["), In(intT), Sym("]"))
	d.action("ARR_IDX", elem, In(t), Sym("["), In(intT), Sym("]"))
	d.action("ARR_LNG", intT, Sym("length"), In(t))
	d.action("ARR_MINIDX", intT, Sym("minIdx"), In(t))
	d.action("ARR_MAXIDX", intT, Sym("maxIdx"), In(t))
	d.action("ARR_TIMES", t, Attr(t), Sym("times"), In(intT), Sym("of"), In(elem))
	d.action("ARR_PUSH", void, Var(t), Sym("&:="), In(elem))
	if d.err != nil {
		return nil, d.err
	}
	return t, nil
}

// Field is one element of a struct type and its initial value.
type Field struct {
	Name string
	Type *Type
	Init *Object
}

// DeclareStructType registers a struct type. Every field gets a selector
// "s . name"; "(attr T) new" builds a value from the fields' initial values.
func DeclareStructType(p *Program, actions *ActionTable, name string, fields []Field) (*Type, error) {
	t := defineType(p, name, PassByRef)
	void := p.Type("void")
	d := &declarer{scope: p.Root, actions: actions}
	d.valueOps(t, void, "SCT_CREATE", "SCT_CPY", "SCT_DESTR")
	d.action("SCT_NEW", t, Attr(t), Sym("new"))
	if d.err != nil {
		return nil, d.err
	}

	act := actions.Lookup("SCT_SELECT")
	if act == nil {
		return nil, fmt.Errorf("declare %s: unknown action SCT_SELECT", name)
	}
	template := make([]*Object, len(fields))
	for i, f := range fields {
		if f.Type == nil || f.Init == nil {
			return nil, fmt.Errorf("declare %s: field %s needs a type and an initial value", name, f.Name)
		}
		t.Fields = append(t.Fields, f.Name)
		template[i] = f.Init
		// the selector learns the field from its callable's entity name
		for _, variant := range []struct {
			self   PatternElem
			result *Type
		}{{Var(t), f.Type.VarFuncType()}, {In(t), f.Type}} {
			callable := NewActionObject(act, variant.result)
			callable.Entity = &Entity{Name: f.Name, Object: callable}
			p.Root.Declare(&Signature{
				Pattern:  []PatternElem{variant.self, Sym("."), Sym(f.Name)},
				Callable: callable,
				Result:   variant.result,
			})
		}
	}
	t.Literal = p.AddLiteral(NewObject(t, &StructValue{Elems: template}))
	return t, nil
}

// DeclareSetType registers a set type over the ordinals of elem.
func DeclareSetType(p *Program, actions *ActionTable, name string, elem *Type) (*Type, error) {
	t := defineType(p, name, PassByValue)
	t.Elem = elem
	void, boolT, intT := p.Type("void"), p.Type("boolean"), p.Type("integer")
	d := &declarer{scope: p.Root, actions: actions}
	d.valueOps(t, void, "SET_CREATE", "SET_CPY", "GEN_DESTR")
	d.action("SET_ELEM", boolT, In(elem), Sym("in"), In(t))
	d.action("SET_HAS", boolT, In(t), Sym("has"), In(elem))
	d.action("SET_INCL", void, Sym("incl"), Var(t), In(elem))
	d.action("SET_CARD", intT, Sym("card"), In(t))
	d.action("SET_EMPTY", t, Attr(t), Sym("empty"))
	if d.err != nil {
		return nil, d.err
	}
	return t, nil
}
