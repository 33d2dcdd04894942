package vm

// ---------------------------------------------------------------------------
// Boolean Primitives
// ---------------------------------------------------------------------------

// The right operand of "and" and "or" is bound lazily and only evaluated
// when the left operand does not decide the result.
func registerBooleanPrimitives(t *ActionTable) {
	t.Register("BLN_AND", func(in *Interpreter, args List) *Object {
		a, ok := in.boolArg(args, 0)
		if !ok {
			return nil
		}
		if !a {
			return in.prog.Bool(false)
		}
		b, ok := in.lazyBool(args[1])
		if !ok {
			return nil
		}
		return in.prog.Bool(b)
	})

	t.Register("BLN_OR", func(in *Interpreter, args List) *Object {
		a, ok := in.boolArg(args, 0)
		if !ok {
			return nil
		}
		if a {
			return in.prog.Bool(true)
		}
		b, ok := in.lazyBool(args[1])
		if !ok {
			return nil
		}
		return in.prog.Bool(b)
	})

	t.Register("BLN_NOT", func(in *Interpreter, args List) *Object {
		a, ok := in.boolArg(args, 0)
		if !ok {
			return nil
		}
		return in.prog.Bool(!a)
	})
}

// ---------------------------------------------------------------------------
// Enumeration Primitives
// ---------------------------------------------------------------------------

// Variables of enumeration types designate one of the type's literals.
func registerEnumPrimitives(t *ActionTable) {
	t.Register("ENU_CREATE", func(in *Interpreter, args List) *Object {
		lit := enumLiteral(args[1])
		if lit == nil {
			return in.EmptyValue(args[1])
		}
		args[0].SetPayload(NewRef(CategoryVarEnum, lit))
		return nil
	})

	t.Register("ENU_CPY", func(in *Interpreter, args List) *Object {
		dest, ok := in.varArg(args, 0)
		if !ok {
			return nil
		}
		lit := enumLiteral(args[1])
		if lit == nil {
			return in.EmptyValue(args[1])
		}
		if dest.Category() == CategoryVarEnum {
			dest.SetTarget(lit)
		} else {
			dest.SetPayload(NewRef(CategoryVarEnum, lit))
		}
		return nil
	})

	t.Register("ENU_ORD", func(in *Interpreter, args List) *Object {
		lit := enumLiteral(args[0])
		if lit == nil {
			return in.EmptyValue(args[0])
		}
		return temp(IntValue(lit.Value().(EnumValue).Ordinal))
	})

	t.Register("ENU_EQ", func(in *Interpreter, args List) *Object {
		a, b := enumLiteral(args[0]), enumLiteral(args[1])
		if a == nil || b == nil {
			return in.EmptyValue(args[0])
		}
		return in.prog.Bool(a == b)
	})

	t.Register("ENU_NE", func(in *Interpreter, args List) *Object {
		a, b := enumLiteral(args[0]), enumLiteral(args[1])
		if a == nil || b == nil {
			return in.EmptyValue(args[0])
		}
		return in.prog.Bool(a != b)
	})

	t.Register("TYP_STR", func(in *Interpreter, args List) *Object {
		typ, ok := in.typeArg(args, 0)
		if !ok {
			return nil
		}
		return temp(StringValue(typ.Name))
	})
}
