package vm

import "unicode/utf8"

// ---------------------------------------------------------------------------
// String Primitives
// ---------------------------------------------------------------------------

// Strings are immutable payloads; construct and copy share them, so the
// generic value actions serve the string type.
func registerStringPrimitives(t *ActionTable) {
	t.Register("STR_CAT", func(in *Interpreter, args List) *Object {
		a, ok := in.strArg(args, 0)
		if !ok {
			return nil
		}
		b, ok := in.strArg(args, 1)
		if !ok {
			return nil
		}
		return temp(StringValue(a + b))
	})

	t.Register("STR_APPEND", func(in *Interpreter, args List) *Object {
		dest, ok := in.varArg(args, 0)
		if !ok {
			return nil
		}
		a, ok := in.strArg(args, 0)
		if !ok {
			return nil
		}
		b, ok := in.strArg(args, 1)
		if !ok {
			return nil
		}
		dest.SetPayload(StringValue(a + b))
		return nil
	})

	t.Register("STR_LNG", func(in *Interpreter, args List) *Object {
		s, ok := in.strArg(args, 0)
		if !ok {
			return nil
		}
		return temp(IntValue(utf8.RuneCountInString(s)))
	})

	t.Register("STR_EQ", func(in *Interpreter, args List) *Object {
		a, ok := in.strArg(args, 0)
		if !ok {
			return nil
		}
		b, ok := in.strArg(args, 1)
		if !ok {
			return nil
		}
		return in.prog.Bool(a == b)
	})

	t.Register("STR_NE", func(in *Interpreter, args List) *Object {
		a, ok := in.strArg(args, 0)
		if !ok {
			return nil
		}
		b, ok := in.strArg(args, 1)
		if !ok {
			return nil
		}
		return in.prog.Bool(a != b)
	})

	// characters are indexed from 1
	t.Register("STR_IDX", func(in *Interpreter, args List) *Object {
		s, ok := in.strArg(args, 0)
		if !ok {
			return nil
		}
		idx, ok := in.intArg(args, 1)
		if !ok {
			return nil
		}
		if idx < 1 {
			return in.RaiseError(IndexError)
		}
		pos := int64(1)
		for _, r := range s {
			if pos == idx {
				return temp(CharValue(r))
			}
			pos++
		}
		return in.RaiseError(IndexError)
	})
}
