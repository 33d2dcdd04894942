package vm

// ---------------------------------------------------------------------------
// Control Flow Primitives
// ---------------------------------------------------------------------------

// Statement arguments are bound lazily and run by the primitive; a failure
// raised by a statement stops the primitive and propagates.
func registerControlPrimitives(t *ActionTable) {
	t.Register("PRC_NOOP", func(in *Interpreter, args List) *Object {
		return nil
	})

	t.Register("PRC_SEQ", func(in *Interpreter, args List) *Object {
		if in.run(args[0]) {
			in.run(args[1])
		}
		return nil
	})

	t.Register("PRC_IF", func(in *Interpreter, args List) *Object {
		cond, ok := in.boolArg(args, 0)
		if ok && cond {
			in.run(args[1])
		}
		return nil
	})

	t.Register("PRC_IF_ELSE", func(in *Interpreter, args List) *Object {
		cond, ok := in.boolArg(args, 0)
		switch {
		case !ok:
		case cond:
			in.run(args[1])
		default:
			in.run(args[2])
		}
		return nil
	})

	t.Register("PRC_WHILE", func(in *Interpreter, args List) *Object {
		for {
			cond, ok := in.lazyBool(args[0])
			if !ok || !cond {
				return nil
			}
			if !in.run(args[1]) {
				return nil
			}
		}
	})

	t.Register("PRC_REPEAT", func(in *Interpreter, args List) *Object {
		for {
			if !in.run(args[0]) {
				return nil
			}
			done, ok := in.lazyBool(args[1])
			if !ok || done {
				return nil
			}
		}
	})

	t.Register("PRC_RAISE", func(in *Interpreter, args List) *Object {
		exc := enumLiteral(args[0])
		if exc == nil {
			return in.EmptyValue(args[0])
		}
		return in.Raise(exc)
	})

	// block body exception catch exc : handler end block
	t.Register("PRC_BLOCK_CATCH", func(in *Interpreter, args List) *Object {
		if in.run(args[0]) {
			return nil
		}
		fail := &in.prog.Fail
		if exc := enumLiteral(args[1]); exc == nil || fail.Value != exc {
			return nil
		}
		if in.Trace.Has(TraceExceptions) {
			failLog.Debugf("catch %s", fail.Value.Name())
		}
		fail.Leave()
		in.run(args[2])
		return nil
	})

	t.Register("PRC_BLOCK_OTHERWISE", func(in *Interpreter, args List) *Object {
		if in.run(args[0]) {
			return nil
		}
		if in.Trace.Has(TraceExceptions) {
			failLog.Debugf("catch %s (otherwise)", in.prog.Fail.Value.Name())
		}
		in.prog.Fail.Leave()
		in.run(args[1])
		return nil
	})

	// local declarations begin body end: the declarations are made in a
	// fresh frame that is torn down in reverse order afterwards
	t.Register("PRC_LOCAL", func(in *Interpreter, args List) *Object {
		frame, ok := in.PushScope("local")
		if !ok {
			return nil
		}
		defer in.PopScope()
		if in.runRaw(args[0]) {
			in.runRaw(args[1])
		}

		snap := in.prog.Fail.Save()
		bound := frame.Bound()
		for i := len(bound) - 1; i >= 0; i-- {
			if obj := bound[i].Object; obj != nil {
				in.destroyLocal(obj)
			}
		}
		in.prog.Fail.Restore(snap)
		return nil
	})

	t.Register("PRC_WRITE", func(in *Interpreter, args List) *Object {
		s, ok := in.strArg(args, 0)
		if !ok {
			return nil
		}
		if out := in.stdFile("OUT"); out != nil {
			in.DoWriteString(out, s)
		}
		return nil
	})

	t.Register("PRC_WRITELN", func(in *Interpreter, args List) *Object {
		s, ok := in.strArg(args, 0)
		if !ok {
			return nil
		}
		if out := in.stdFile("OUT"); out != nil && in.DoWriteString(out, s) {
			in.DoWriteln(out)
		}
		return nil
	})
}

// stdFile returns the standard file bound under name, raising file_error
// when the program has none.
func (in *Interpreter) stdFile(name string) *Object {
	if e := in.prog.Root.Lookup(name); e != nil && e.Object != nil {
		return e.Object
	}
	in.RaiseError(FileError)
	return nil
}

// evalRaw evaluates an element bound unresolved: identifiers are looked up
// in the current frame or called as parameterless operations, expressions
// are matched in the current frame.
func (in *Interpreter) evalRaw(obj *Object) *Object {
	if obj.Category() == CategorySymbol {
		if e := in.prog.CurrentScope().Lookup(obj.SymbolName()); e != nil && e.Object != nil {
			return in.Evaluate(e.Object)
		}
		return in.Evaluate(in.prog.Matcher().symbolCall(obj))
	}
	return in.Evaluate(obj)
}

func (in *Interpreter) runRaw(obj *Object) bool {
	v := in.evalRaw(obj)
	if v != nil && v.IsTemp() {
		in.Dump(v)
	}
	return !in.prog.Fail.Raised()
}

// ---------------------------------------------------------------------------
// Declaration Primitives
// ---------------------------------------------------------------------------

// Declarations made at run time bind a new object in the current frame. A
// failing initializer is reported as declaration_error.
func registerDeclarationPrimitives(t *ActionTable) {
	declare := func(isVar bool) ActionFunc {
		return func(in *Interpreter, args List) *Object {
			typ, ok := in.typeArg(args, 0)
			if !ok {
				return nil
			}
			name := args[1].SymbolName()
			if name == "" {
				return in.RaiseError(DeclFailedError)
			}

			init := in.evalRaw(args[2])
			if in.prog.Fail.Raised() {
				if in.Trace.Has(TraceExceptions) {
					failLog.Debugf("declaration of %s: initializer raised %s", name, in.prog.Fail.Value.Name())
				}
				in.prog.Fail.Leave()
				return in.RaiseError(DeclFailedError)
			}
			if init == nil || !init.Type.IsSubtypeOf(typ) {
				if init != nil && init.IsTemp() {
					in.Dump(init)
				}
				return in.RaiseError(DeclFailedError)
			}

			var obj *Object
			if init.IsTemp() {
				init.SetTemp(false)
				init.SetVar(isVar)
				obj = init
			} else {
				created, err := in.createLocal(typ, isVar, init)
				if err != nil {
					dispatchLog.Debugf("declaration of %s: %s", name, err)
					return in.RaiseError(DeclFailedError)
				}
				obj = created
			}
			obj.Entity = nil
			in.prog.CurrentScope().Bind(name, obj)
			return nil
		}
	}
	t.Register("DCL_CONST", declare(false))
	t.Register("DCL_VAR", declare(true))
}
