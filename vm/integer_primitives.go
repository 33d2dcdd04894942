package vm

import (
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Generic Primitives for value types with immutable payloads
// ---------------------------------------------------------------------------

func registerGenericPrimitives(t *ActionTable) {
	t.Register("GEN_CREATE", func(in *Interpreter, args List) *Object {
		src := args[1]
		if src.Category() == CategoryDeclared {
			return in.EmptyValue(src)
		}
		args[0].SetPayload(src.Value())
		return nil
	})

	t.Register("GEN_CPY", func(in *Interpreter, args List) *Object {
		dest, ok := in.varArg(args, 0)
		if !ok {
			return nil
		}
		if args[1].Category() == CategoryDeclared {
			return in.EmptyValue(args[1])
		}
		dest.SetPayload(args[1].Value())
		return nil
	})

	// nothing to release for scalar payloads
	t.Register("GEN_DESTR", func(in *Interpreter, args List) *Object {
		return nil
	})
}

// ---------------------------------------------------------------------------
// Integer Primitives
// ---------------------------------------------------------------------------

func registerIntegerPrimitives(t *ActionTable) {
	binary := func(name string, op func(in *Interpreter, a, b int64) (int64, bool)) {
		t.Register(name, func(in *Interpreter, args List) *Object {
			a, ok := in.intArg(args, 0)
			if !ok {
				return nil
			}
			b, ok := in.intArg(args, 1)
			if !ok {
				return nil
			}
			n, ok := op(in, a, b)
			if !ok {
				return nil
			}
			return temp(IntValue(n))
		})
	}

	// Arithmetic
	binary("INT_ADD", func(in *Interpreter, a, b int64) (int64, bool) {
		sum := a + b
		if (a >= 0) == (b >= 0) && (sum >= 0) != (a >= 0) {
			in.RaiseError(NumericError)
			return 0, false
		}
		return sum, true
	})

	binary("INT_SBTR", func(in *Interpreter, a, b int64) (int64, bool) {
		diff := a - b
		if (a >= 0) != (b >= 0) && (diff >= 0) != (a >= 0) {
			in.RaiseError(NumericError)
			return 0, false
		}
		return diff, true
	})

	binary("INT_MULT", func(in *Interpreter, a, b int64) (int64, bool) {
		hi, lo := bits.Mul64(uint64(abs64(a)), uint64(abs64(b)))
		neg := (a < 0) != (b < 0)
		if hi != 0 || (lo > math.MaxInt64 && !(neg && lo == 1<<63)) {
			in.RaiseError(NumericError)
			return 0, false
		}
		return a * b, true
	})

	binary("INT_DIV", func(in *Interpreter, a, b int64) (int64, bool) {
		if b == 0 || (a == math.MinInt64 && b == -1) {
			in.RaiseError(NumericError)
			return 0, false
		}
		return a / b, true
	})

	binary("INT_REM", func(in *Interpreter, a, b int64) (int64, bool) {
		if b == 0 {
			in.RaiseError(NumericError)
			return 0, false
		}
		if b == -1 {
			return 0, true
		}
		return a % b, true
	})

	binary("INT_POW", func(in *Interpreter, base, exp int64) (int64, bool) {
		if exp < 0 {
			in.RaiseError(NumericError)
			return 0, false
		}
		result := int64(1)
		for ; exp > 0; exp-- {
			hi, lo := bits.Mul64(uint64(abs64(result)), uint64(abs64(base)))
			if hi != 0 || lo > math.MaxInt64 {
				in.RaiseError(NumericError)
				return 0, false
			}
			result *= base
		}
		return result, true
	})

	// Comparison
	compare := func(name string, cmp func(a, b int64) bool) {
		t.Register(name, func(in *Interpreter, args List) *Object {
			a, ok := in.intArg(args, 0)
			if !ok {
				return nil
			}
			b, ok := in.intArg(args, 1)
			if !ok {
				return nil
			}
			return in.prog.Bool(cmp(a, b))
		})
	}
	compare("INT_EQ", func(a, b int64) bool { return a == b })
	compare("INT_NE", func(a, b int64) bool { return a != b })
	compare("INT_LT", func(a, b int64) bool { return a < b })
	compare("INT_LE", func(a, b int64) bool { return a <= b })
	compare("INT_GT", func(a, b int64) bool { return a > b })
	compare("INT_GE", func(a, b int64) bool { return a >= b })

	unary := func(name string, op func(in *Interpreter, a int64) (Value, bool)) {
		t.Register(name, func(in *Interpreter, args List) *Object {
			a, ok := in.intArg(args, 0)
			if !ok {
				return nil
			}
			v, ok := op(in, a)
			if !ok {
				return nil
			}
			return temp(v)
		})
	}

	unary("INT_NEGATE", func(in *Interpreter, a int64) (Value, bool) {
		if a == math.MinInt64 {
			in.RaiseError(NumericError)
			return nil, false
		}
		return IntValue(-a), true
	})

	unary("INT_SUCC", func(in *Interpreter, a int64) (Value, bool) {
		if a == math.MaxInt64 {
			in.RaiseError(NumericError)
			return nil, false
		}
		return IntValue(a + 1), true
	})

	unary("INT_PRED", func(in *Interpreter, a int64) (Value, bool) {
		if a == math.MinInt64 {
			in.RaiseError(NumericError)
			return nil, false
		}
		return IntValue(a - 1), true
	})

	unary("INT_ORD", func(in *Interpreter, a int64) (Value, bool) {
		return IntValue(a), true
	})

	unary("INT_STR", func(in *Interpreter, a int64) (Value, bool) {
		return StringValue(strconv.FormatInt(a, 10)), true
	})

	t.Register("INT_GROW", func(in *Interpreter, args List) *Object {
		dest, ok := in.varArg(args, 0)
		if !ok {
			return nil
		}
		a, ok := in.intArg(args, 0)
		if !ok {
			return nil
		}
		b, ok := in.intArg(args, 1)
		if !ok {
			return nil
		}
		sum := a + b
		if (a >= 0) == (b >= 0) && (sum >= 0) != (a >= 0) {
			return in.RaiseError(NumericError)
		}
		dest.SetPayload(IntValue(sum))
		return nil
	})

	// (attr integer) value (string)
	t.Register("INT_PARSE", func(in *Interpreter, args List) *Object {
		s, ok := in.strArg(args, 1)
		if !ok {
			return nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return in.RaiseError(RangeError)
		}
		return temp(IntValue(n))
	})
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// ---------------------------------------------------------------------------
// Character Primitives
// ---------------------------------------------------------------------------

func registerCharacterPrimitives(t *ActionTable) {
	t.Register("CHR_ORD", func(in *Interpreter, args List) *Object {
		c, ok := in.charArg(args, 0)
		if !ok {
			return nil
		}
		return temp(IntValue(c))
	})

	t.Register("CHR_CHR", func(in *Interpreter, args List) *Object {
		n, ok := in.intArg(args, 0)
		if !ok {
			return nil
		}
		if n < 0 || n > math.MaxInt32 {
			return in.RaiseError(RangeError)
		}
		return temp(CharValue(rune(n)))
	})

	t.Register("CHR_EQ", func(in *Interpreter, args List) *Object {
		a, ok := in.charArg(args, 0)
		if !ok {
			return nil
		}
		b, ok := in.charArg(args, 1)
		if !ok {
			return nil
		}
		return in.prog.Bool(a == b)
	})
}

// ---------------------------------------------------------------------------
// Float Primitives
// ---------------------------------------------------------------------------

func registerFloatPrimitives(t *ActionTable) {
	binary := func(name string, op func(a, b float64) float64) {
		t.Register(name, func(in *Interpreter, args List) *Object {
			a, ok := in.floatArg(args, 0)
			if !ok {
				return nil
			}
			b, ok := in.floatArg(args, 1)
			if !ok {
				return nil
			}
			return temp(FloatValue(op(a, b)))
		})
	}
	binary("FLT_ADD", func(a, b float64) float64 { return a + b })
	binary("FLT_MULT", func(a, b float64) float64 { return a * b })

	t.Register("FLT_LT", func(in *Interpreter, args List) *Object {
		a, ok := in.floatArg(args, 0)
		if !ok {
			return nil
		}
		b, ok := in.floatArg(args, 1)
		if !ok {
			return nil
		}
		return in.prog.Bool(a < b)
	})

	t.Register("FLT_FLT", func(in *Interpreter, args List) *Object {
		n, ok := in.intArg(args, 0)
		if !ok {
			return nil
		}
		return temp(FloatValue(float64(n)))
	})

	t.Register("FLT_STR", func(in *Interpreter, args List) *Object {
		f, ok := in.floatArg(args, 0)
		if !ok {
			return nil
		}
		return temp(StringValue(strconv.FormatFloat(f, 'g', -1, 64)))
	})
}
