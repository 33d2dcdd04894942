package vm

// ---------------------------------------------------------------------------
// Program Primitives
// ---------------------------------------------------------------------------

// PROGRAM values share a program through its usage count.
func registerProgramPrimitives(t *ActionTable) {
	progArg := func(in *Interpreter, args List, i int) (*Program, bool) {
		if v, ok := args[i].Value().(ProgValue); ok && v.Prog != nil {
			return v.Prog, true
		}
		in.EmptyValue(args[i])
		return nil, false
	}

	t.Register("PRG_CREATE", func(in *Interpreter, args List) *Object {
		p, ok := progArg(in, args, 1)
		if !ok {
			return nil
		}
		args[0].SetPayload(ProgValue{Prog: p.Acquire()})
		return nil
	})

	t.Register("PRG_CPY", func(in *Interpreter, args List) *Object {
		dest, ok := in.varArg(args, 0)
		if !ok {
			return nil
		}
		p, ok := progArg(in, args, 1)
		if !ok {
			return nil
		}
		p.Acquire()
		if old, ok := dest.Value().(ProgValue); ok && old.Prog != nil {
			if err := old.Prog.Release(); err != nil {
				progLog.Errorf("%s", err)
			}
		}
		dest.SetPayload(ProgValue{Prog: p})
		return nil
	})

	t.Register("PRG_DESTR", func(in *Interpreter, args List) *Object {
		if v, ok := args[0].Value().(ProgValue); ok && v.Prog != nil {
			if err := v.Prog.Release(); err != nil {
				progLog.Errorf("%s", err)
			}
			args[0].SetPayload(Declared())
		}
		return nil
	})

	// evaluate prog expr: expr is resolved and run inside prog
	t.Register("PRG_EVAL", func(in *Interpreter, args List) *Object {
		p, ok := progArg(in, args, 0)
		if !ok {
			return nil
		}
		expr := args[1]
		if expr.Category() == CategorySymbol {
			if e := p.Root.Lookup(expr.SymbolName()); e != nil && e.Object != nil {
				expr = e.Object
			} else {
				expr = p.Matcher().symbolCall(expr)
			}
		}
		return in.ExecExpr(p, expr)
	})

	t.Register("PRG_EXEC", func(in *Interpreter, args List) *Object {
		p, ok := progArg(in, args, 0)
		if !ok {
			return nil
		}
		if p.Main == nil {
			return in.RaiseError(ActionError)
		}
		result := in.ExecExpr(p, p.Main)
		if result != nil && result.IsTemp() {
			in.Dump(result)
		}
		return nil
	})

	t.Register("PRG_NAME", func(in *Interpreter, args List) *Object {
		p, ok := progArg(in, args, 0)
		if !ok {
			return nil
		}
		return temp(StringValue(p.Name))
	})

	t.Register("PRG_ERROR_COUNT", func(in *Interpreter, args List) *Object {
		p, ok := progArg(in, args, 0)
		if !ok {
			return nil
		}
		return temp(IntValue(p.ErrorCount))
	})
}
