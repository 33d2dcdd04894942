package vm

// SysVar indexes the program's table of well-known objects.
type SysVar uint8

const (
	SysEmpty SysVar = iota
	SysMemoryError
	SysNumericError
	SysRangeError
	SysIndexError
	SysFileError
	SysIllegalAction
	SysDeclarationError
	SysDatabaseError
	SysGraphicError
	SysInterrupt
	SysFalse
	SysTrue
	SysType
	SysExpr
	SysInteger
	SysChar
	SysString
	SysProc
	SysFloat
	SysAssign
	SysCreate
	SysDestroy
	SysOrd
	SysIn
	SysValue
	SysFlush
	SysWrite
	SysWriteln
	SysMain

	numSysVars
)

var sysVarNames = [numSysVars]string{
	SysEmpty:            "empty",
	SysMemoryError:      "memory_error",
	SysNumericError:     "numeric_error",
	SysRangeError:       "range_error",
	SysIndexError:       "index_error",
	SysFileError:        "file_error",
	SysIllegalAction:    "illegal_action",
	SysDeclarationError: "declaration_error",
	SysDatabaseError:    "database_error",
	SysGraphicError:     "graphic_error",
	SysInterrupt:        "interrupt",
	SysFalse:            "false",
	SysTrue:             "true",
	SysType:             "type",
	SysExpr:             "expr",
	SysInteger:          "integer",
	SysChar:             "char",
	SysString:           "string",
	SysProc:             "proc",
	SysFloat:            "float",
	SysAssign:           "assign",
	SysCreate:           "create",
	SysDestroy:          "destroy",
	SysOrd:              "ord",
	SysIn:               "in",
	SysValue:            "value",
	SysFlush:            "flush",
	SysWrite:            "write",
	SysWriteln:          "writeln",
	SysMain:             "main",
}

func (v SysVar) String() string {
	if v < numSysVars {
		return sysVarNames[v]
	}
	return "unknown"
}

// LookupSysVar finds a system variable by name.
func LookupSysVar(name string) (SysVar, bool) {
	for i, n := range sysVarNames {
		if n == name {
			return SysVar(i), true
		}
	}
	return 0, false
}

// exceptionVars lists the system variables that hold exception objects, in
// the order the interactive prompt numbers them.
var exceptionVars = []SysVar{
	SysMemoryError,
	SysNumericError,
	SysRangeError,
	SysIndexError,
	SysFileError,
	SysIllegalAction,
	SysDeclarationError,
	SysDatabaseError,
	SysGraphicError,
	SysInterrupt,
}
