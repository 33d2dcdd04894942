package vm

// ---------------------------------------------------------------------------
// Argument access for primitives
// ---------------------------------------------------------------------------
//
// The accessors raise range_error when an argument has no value of the
// expected kind and report false, so a primitive can return nil right away.

// temp wraps v in a temporary. The executor gives it the call's type.
func temp(v Value) *Object { return NewTemp(nil, v) }

func (in *Interpreter) intArg(args List, i int) (int64, bool) {
	if v, ok := args[i].Value().(IntValue); ok {
		return int64(v), true
	}
	in.EmptyValue(args[i])
	return 0, false
}

func (in *Interpreter) charArg(args List, i int) (rune, bool) {
	if v, ok := args[i].Value().(CharValue); ok {
		return rune(v), true
	}
	in.EmptyValue(args[i])
	return 0, false
}

func (in *Interpreter) floatArg(args List, i int) (float64, bool) {
	if v, ok := args[i].Value().(FloatValue); ok {
		return float64(v), true
	}
	in.EmptyValue(args[i])
	return 0, false
}

func (in *Interpreter) strArg(args List, i int) (string, bool) {
	if v, ok := args[i].Value().(StringValue); ok {
		return string(v), true
	}
	in.EmptyValue(args[i])
	return "", false
}

func (in *Interpreter) typeArg(args List, i int) (*Type, bool) {
	if v, ok := args[i].Value().(TypeValue); ok && v.T != nil {
		return v.T, true
	}
	in.EmptyValue(args[i])
	return nil, false
}

func (in *Interpreter) boolArg(args List, i int) (bool, bool) {
	b, ok := in.truth(args[i])
	if !ok {
		in.EmptyValue(args[i])
	}
	return b, ok
}

// varArg checks that the destination of an assignment is a variable.
func (in *Interpreter) varArg(args List, i int) (*Object, bool) {
	if !args[i].IsVar() {
		in.VarRequired(args[i])
		return nil, false
	}
	return args[i], true
}

// lazy evaluates a deferred argument and reports false when a failure is
// propagating afterwards.
func (in *Interpreter) lazy(arg *Object) (*Object, bool) {
	v := in.Evaluate(arg)
	if in.prog.Fail.Raised() {
		return nil, false
	}
	return v, true
}

// lazyBool evaluates a deferred boolean argument.
func (in *Interpreter) lazyBool(arg *Object) (bool, bool) {
	v, ok := in.lazy(arg)
	if !ok {
		return false, false
	}
	b, ok := in.truth(v)
	if !ok {
		in.EmptyValue(v)
	}
	return b, ok
}

// run evaluates a deferred statement, dumping a temporary result.
func (in *Interpreter) run(stmt *Object) bool {
	v := in.Evaluate(stmt)
	if v != nil && v.IsTemp() {
		in.Dump(v)
	}
	return !in.prog.Fail.Raised()
}
