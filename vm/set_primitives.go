package vm

// ---------------------------------------------------------------------------
// Set Primitives
// ---------------------------------------------------------------------------

// Sets hold the ordinals of their elements. The ordinal of an element is
// obtained through the element type's "ord" operation.
func registerSetPrimitives(t *ActionTable) {
	setArg := func(in *Interpreter, args List, i int) (*SetValue, bool) {
		if s, ok := args[i].Value().(*SetValue); ok {
			return s, true
		}
		in.EmptyValue(args[i])
		return nil, false
	}

	ordinal := func(in *Interpreter, elem *Object) (int64, bool) {
		n, err := in.Ordinal(elem)
		if err != nil {
			in.raiseDispatch(err)
			return 0, false
		}
		return n, true
	}

	clone := func(s *SetValue) *SetValue {
		return NewSetValue(s.Members()...)
	}

	t.Register("SET_CREATE", func(in *Interpreter, args List) *Object {
		s, ok := setArg(in, args, 1)
		if !ok {
			return nil
		}
		args[0].SetPayload(clone(s))
		return nil
	})

	t.Register("SET_CPY", func(in *Interpreter, args List) *Object {
		dest, ok := in.varArg(args, 0)
		if !ok {
			return nil
		}
		s, ok := setArg(in, args, 1)
		if !ok {
			return nil
		}
		dest.SetPayload(clone(s))
		return nil
	})

	// elem in set
	t.Register("SET_ELEM", func(in *Interpreter, args List) *Object {
		s, ok := setArg(in, args, 1)
		if !ok {
			return nil
		}
		n, ok := ordinal(in, args[0])
		if !ok {
			return nil
		}
		return in.prog.Bool(s.Contains(n))
	})

	// set has elem, answered through the set type's membership operation
	t.Register("SET_HAS", func(in *Interpreter, args List) *Object {
		found, err := in.Member(args[1], args[0])
		if err != nil {
			return in.raiseDispatch(err)
		}
		return in.prog.Bool(found)
	})

	t.Register("SET_INCL", func(in *Interpreter, args List) *Object {
		if _, ok := in.varArg(args, 0); !ok {
			return nil
		}
		s, ok := setArg(in, args, 0)
		if !ok {
			return nil
		}
		n, ok := ordinal(in, args[1])
		if !ok {
			return nil
		}
		s.Add(n)
		return nil
	})

	t.Register("SET_CARD", func(in *Interpreter, args List) *Object {
		s, ok := setArg(in, args, 0)
		if !ok {
			return nil
		}
		return temp(IntValue(s.Len()))
	})

	t.Register("SET_EMPTY", func(in *Interpreter, args List) *Object {
		typ, ok := in.typeArg(args, 0)
		if !ok {
			return nil
		}
		return NewTemp(typ, NewSetValue())
	})
}
