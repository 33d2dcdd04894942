package vm

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Database Primitives
// ---------------------------------------------------------------------------

// Databases are reached through Interpreter.Drivers.Database. Every driver
// failure raises database_error.
func registerDatabasePrimitives(t *ActionTable) {
	dbArg := func(in *Interpreter, args List, i int) (*DatabaseHandle, bool) {
		if h, ok := HandleOf(args[i]).(*DatabaseHandle); ok {
			return h, true
		}
		in.EmptyValue(args[i])
		return nil, false
	}
	stmtArg := func(in *Interpreter, args List, i int) (*StatementHandle, bool) {
		if h, ok := HandleOf(args[i]).(*StatementHandle); ok {
			return h, true
		}
		in.EmptyValue(args[i])
		return nil, false
	}
	fail := func(in *Interpreter, err error) *Object {
		execLog.Infof("database: %s", err)
		return in.RaiseError(DatabaseError)
	}

	// openDatabase driver dsn
	t.Register("SQL_OPEN", func(in *Interpreter, args List) *Object {
		driver, ok := in.strArg(args, 0)
		if !ok {
			return nil
		}
		dsn, ok := in.strArg(args, 1)
		if !ok {
			return nil
		}
		if in.Drivers.Database == nil {
			return fail(in, fmt.Errorf("no database driver for %s", driver))
		}
		db, err := in.Drivers.Database.Open(driver, dsn)
		if err != nil {
			return fail(in, err)
		}
		return temp(NewHandleValue(CategoryDatabase, NewDatabaseHandle(driver, db)))
	})

	t.Register("SQL_CLOSE", func(in *Interpreter, args List) *Object {
		h, ok := dbArg(in, args, 0)
		if !ok {
			return nil
		}
		if err := h.Close(); err != nil {
			return fail(in, err)
		}
		return nil
	})

	t.Register("SQL_PREPARE", func(in *Interpreter, args List) *Object {
		h, ok := dbArg(in, args, 0)
		if !ok {
			return nil
		}
		query, ok := in.strArg(args, 1)
		if !ok {
			return nil
		}
		stmt, err := h.DB.Prepare(query)
		if err != nil {
			return fail(in, err)
		}
		return temp(NewHandleValue(CategorySQLStatement, NewStatementHandle(h, query, stmt)))
	})

	bind := func(get func(in *Interpreter, args List) (any, bool)) ActionFunc {
		return func(in *Interpreter, args List) *Object {
			h, ok := stmtArg(in, args, 0)
			if !ok {
				return nil
			}
			pos, ok := in.intArg(args, 1)
			if !ok {
				return nil
			}
			v, ok := get(in, args)
			if !ok {
				return nil
			}
			if err := h.Stmt.Bind(int(pos), v); err != nil {
				return fail(in, err)
			}
			return nil
		}
	}
	t.Register("SQL_BIND_INT", bind(func(in *Interpreter, args List) (any, bool) {
		return in.intArg(args, 2)
	}))
	t.Register("SQL_BIND_STRI", bind(func(in *Interpreter, args List) (any, bool) {
		return in.strArg(args, 2)
	}))

	t.Register("SQL_EXECUTE", func(in *Interpreter, args List) *Object {
		h, ok := stmtArg(in, args, 0)
		if !ok {
			return nil
		}
		if err := h.Stmt.Execute(); err != nil {
			return fail(in, err)
		}
		return nil
	})

	t.Register("SQL_FETCH", func(in *Interpreter, args List) *Object {
		h, ok := stmtArg(in, args, 0)
		if !ok {
			return nil
		}
		more, err := h.Stmt.Fetch()
		if err != nil {
			return fail(in, err)
		}
		return in.prog.Bool(more)
	})

	column := func(conv func(v any) (Value, error)) ActionFunc {
		return func(in *Interpreter, args List) *Object {
			h, ok := stmtArg(in, args, 0)
			if !ok {
				return nil
			}
			pos, ok := in.intArg(args, 1)
			if !ok {
				return nil
			}
			raw, err := h.Stmt.Column(int(pos))
			if err != nil {
				return fail(in, err)
			}
			v, err := conv(raw)
			if err != nil {
				return fail(in, fmt.Errorf("column %d: %w", pos, err))
			}
			return temp(v)
		}
	}
	t.Register("SQL_COLUMN_INT", column(columnInt))
	t.Register("SQL_COLUMN_STRI", column(columnString))
}

func columnInt(v any) (Value, error) {
	switch n := v.(type) {
	case nil:
		return IntValue(0), nil
	case int64:
		return IntValue(n), nil
	case int32:
		return IntValue(n), nil
	case int:
		return IntValue(n), nil
	case float64:
		return IntValue(int64(n)), nil
	case bool:
		if n {
			return IntValue(1), nil
		}
		return IntValue(0), nil
	case []byte:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return IntValue(i), err
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return IntValue(i), err
	}
	return nil, fmt.Errorf("cannot convert %T to integer", v)
}

func columnString(v any) (Value, error) {
	switch s := v.(type) {
	case nil:
		return StringValue(""), nil
	case string:
		return StringValue(s), nil
	case []byte:
		return StringValue(s), nil
	}
	return StringValue(fmt.Sprint(v)), nil
}
