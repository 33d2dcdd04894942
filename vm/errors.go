package vm

import (
	"errors"
	"fmt"
)

// ErrorKind is the internal error taxonomy. Every kind maps to a well-known
// exception object in the program's system-variable table.
type ErrorKind uint8

const (
	MemoryError     ErrorKind = iota + 1 // allocation failure or interpreter stack exhaustion
	NumericError                         // arithmetic fault
	RangeError                           // value outside its domain, empty value, missing variable
	IndexError                           // index outside array bounds
	FileError                            // file or socket I/O failure
	ActionError                          // illegal action, unresolved call, undefined forward
	CreateError                          // construct operation missing or failed
	DestroyError                         // destroy operation missing or failed
	CopyError                            // copy operation missing or failed
	InError                              // ordinal or membership operation missing or failed
	DeclFailedError                      // a declaration could not be completed
	DatabaseError                        // database driver failure
	GraphicError                         // graphics driver failure
)

var errorKindNames = map[ErrorKind]string{
	MemoryError:     "MEMORY_ERROR",
	NumericError:    "NUMERIC_ERROR",
	RangeError:      "RANGE_ERROR",
	IndexError:      "INDEX_ERROR",
	FileError:       "FILE_ERROR",
	ActionError:     "ACTION_ERROR",
	CreateError:     "CREATE_ERROR",
	DestroyError:    "DESTROY_ERROR",
	CopyError:       "COPY_ERROR",
	InError:         "IN_ERROR",
	DeclFailedError: "DECL_FAILED",
	DatabaseError:   "DATABASE_ERROR",
	GraphicError:    "GRAPHIC_ERROR",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// exceptionFor is the fixed mapping from error kind to exception object.
var exceptionFor = map[ErrorKind]SysVar{
	MemoryError:     SysMemoryError,
	NumericError:    SysNumericError,
	RangeError:      SysRangeError,
	IndexError:      SysIndexError,
	FileError:       SysFileError,
	ActionError:     SysIllegalAction,
	CreateError:     SysIllegalAction,
	DestroyError:    SysIllegalAction,
	CopyError:       SysIllegalAction,
	InError:         SysIllegalAction,
	DeclFailedError: SysDeclarationError,
	DatabaseError:   SysDatabaseError,
	GraphicError:    SysGraphicError,
}

// ExceptionVar returns the system variable holding the exception raised
// for errors of kind k.
func (k ErrorKind) ExceptionVar() SysVar {
	if v, ok := exceptionFor[k]; ok {
		return v
	}
	return SysIllegalAction
}

// ---------------------------------------------------------------------------
// Dispatch errors
// ---------------------------------------------------------------------------

// DispatchError reports that a type-generic operation could not be
// performed for a type: the operation is not declared, or it ran and
// raised. Callers treat it as recoverable.
type DispatchError struct {
	Kind  ErrorKind
	Op    Operation
	Type  *Type
	Cause string
}

func (e *DispatchError) Error() string {
	if e.Cause == "" {
		return fmt.Sprintf("%s: %s for type %s", e.Kind, e.Op, e.Type)
	}
	return fmt.Sprintf("%s: %s for type %s: %s", e.Kind, e.Op, e.Type, e.Cause)
}

// Is matches sentinel dispatch errors by kind and operation.
func (e *DispatchError) Is(target error) bool {
	var t *DispatchError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == nil && t.Kind == e.Kind && t.Op == e.Op
}

// Sentinel dispatch errors for errors.Is.
var (
	ErrCreate  = &DispatchError{Kind: CreateError, Op: OpCreate}
	ErrCopy    = &DispatchError{Kind: CopyError, Op: OpCopy}
	ErrDestroy = &DispatchError{Kind: DestroyError, Op: OpDestroy}
	ErrOrdinal = &DispatchError{Kind: InError, Op: OpOrdinal}
	ErrIn      = &DispatchError{Kind: InError, Op: OpMember}
)

// ---------------------------------------------------------------------------
// Analysis errors
// ---------------------------------------------------------------------------

// Analysis errors reported by the Matcher.
var (
	ErrNoMatch     = errors.New("no matching declaration")
	ErrAccessRight = errors.New("variable required, constant supplied")
)

// MatchError describes an expression that could not be resolved.
type MatchError struct {
	Expr *Object
	Err  error
}

func (e *MatchError) Error() string {
	pos := ""
	if e.Expr != nil && e.Expr.HasPos() {
		pos = fmt.Sprintf(" (line %d)", e.Expr.Pos.Line)
	}
	return fmt.Sprintf("%v: %s%s", e.Err, e.Expr, pos)
}

func (e *MatchError) Unwrap() error { return e.Err }
