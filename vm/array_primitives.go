package vm

import "errors"

// maxArrayLength bounds arrays built by "times".
const maxArrayLength = 1 << 24

// raiseDispatch raises the exception for a failed dispatcher operation.
func (in *Interpreter) raiseDispatch(err error) *Object {
	var de *DispatchError
	if errors.As(err, &de) {
		if in.Trace.Has(TraceExceptions) {
			failLog.Debugf("%s", de)
		}
		return in.RaiseError(de.Kind)
	}
	return in.RaiseError(ActionError)
}

func (in *Interpreter) arrayArg(args List, i int) (*ArrayValue, bool) {
	if av, ok := args[i].Value().(*ArrayValue); ok {
		return av, true
	}
	in.EmptyValue(args[i])
	return nil, false
}

// ---------------------------------------------------------------------------
// Array Primitives
// ---------------------------------------------------------------------------

func registerArrayPrimitives(t *ActionTable) {
	t.Register("ARR_CREATE", func(in *Interpreter, args List) *Object {
		if err := in.ConstructArray(args[0], args[1]); err != nil {
			return in.raiseDispatch(err)
		}
		return nil
	})

	t.Register("ARR_CPY", func(in *Interpreter, args List) *Object {
		dest, ok := in.varArg(args, 0)
		if !ok {
			return nil
		}
		if err := in.CopyArray(dest, args[1]); err != nil {
			return in.raiseDispatch(err)
		}
		return nil
	})

	t.Register("ARR_DESTR", func(in *Interpreter, args List) *Object {
		in.DestroyArray(args[0])
		return nil
	})

	// the element itself is returned so it can be assigned to
	t.Register("ARR_IDX", func(in *Interpreter, args List) *Object {
		av, ok := in.arrayArg(args, 0)
		if !ok {
			return nil
		}
		idx, ok := in.intArg(args, 1)
		if !ok {
			return nil
		}
		pos := idx - av.Min
		if pos < 0 || pos >= int64(len(av.Elems)) {
			return in.RaiseError(IndexError)
		}
		return av.Elems[pos]
	})

	t.Register("ARR_LNG", func(in *Interpreter, args List) *Object {
		av, ok := in.arrayArg(args, 0)
		if !ok {
			return nil
		}
		return temp(IntValue(len(av.Elems)))
	})

	t.Register("ARR_MINIDX", func(in *Interpreter, args List) *Object {
		av, ok := in.arrayArg(args, 0)
		if !ok {
			return nil
		}
		return temp(IntValue(av.Min))
	})

	t.Register("ARR_MAXIDX", func(in *Interpreter, args List) *Object {
		av, ok := in.arrayArg(args, 0)
		if !ok {
			return nil
		}
		return temp(IntValue(av.Min + int64(len(av.Elems)) - 1))
	})

	// (attr T) times n of elem: an array of n copies of elem indexed from 1
	t.Register("ARR_TIMES", func(in *Interpreter, args List) *Object {
		typ, ok := in.typeArg(args, 0)
		if !ok {
			return nil
		}
		n, ok := in.intArg(args, 1)
		if !ok {
			return nil
		}
		switch {
		case n < 0:
			return in.RaiseError(RangeError)
		case n > maxArrayLength:
			return in.RaiseError(MemoryError)
		}
		src := make([]*Object, n)
		for i := range src {
			src[i] = args[2]
		}
		elems, err := in.constructElems(src)
		if err != nil {
			return in.raiseDispatch(err)
		}
		return NewTemp(typ, &ArrayValue{Min: 1, Elems: elems})
	})

	t.Register("ARR_PUSH", func(in *Interpreter, args List) *Object {
		if _, ok := in.varArg(args, 0); !ok {
			return nil
		}
		av, ok := in.arrayArg(args, 0)
		if !ok {
			return nil
		}
		elem, err := in.createLocal(args[1].Type, true, args[1])
		if err != nil {
			return in.raiseDispatch(err)
		}
		av.Elems = append(av.Elems, elem)
		return nil
	})
}

// ---------------------------------------------------------------------------
// Struct Primitives
// ---------------------------------------------------------------------------

func registerStructPrimitives(t *ActionTable) {
	t.Register("SCT_CREATE", func(in *Interpreter, args List) *Object {
		if err := in.ConstructStruct(args[0], args[1]); err != nil {
			return in.raiseDispatch(err)
		}
		return nil
	})

	t.Register("SCT_CPY", func(in *Interpreter, args List) *Object {
		dest, ok := in.varArg(args, 0)
		if !ok {
			return nil
		}
		if err := in.CopyStruct(dest, args[1]); err != nil {
			return in.raiseDispatch(err)
		}
		return nil
	})

	t.Register("SCT_DESTR", func(in *Interpreter, args List) *Object {
		in.DestroyStruct(args[0])
		return nil
	})

	// (attr T) new
	t.Register("SCT_NEW", func(in *Interpreter, args List) *Object {
		typ, ok := in.typeArg(args, 0)
		if !ok {
			return nil
		}
		if typ.Literal == nil {
			return in.EmptyValue(args[0])
		}
		result := NewTemp(typ, Declared())
		if err := in.ConstructStruct(result, typ.Literal); err != nil {
			return in.raiseDispatch(err)
		}
		return result
	})

	// s . name: the field is named by the selector's entity
	t.Register("SCT_SELECT", func(in *Interpreter, args List) *Object {
		sv, ok := args[0].Value().(*StructValue)
		if !ok {
			return in.EmptyValue(args[0])
		}
		field := ""
		if call := in.CurrentCall(); call != nil && call.Call() != nil {
			head := call.Call().Head
			if head.Category() == CategoryFwdRef && head.Target() != nil {
				head = head.Target()
			}
			field = head.Name()
		}
		typ := args[0].Type
		for i, name := range typ.Fields {
			if name == field && i < len(sv.Elems) {
				return sv.Elems[i]
			}
		}
		return in.RaiseError(RangeError)
	})
}
