package vm

// ---------------------------------------------------------------------------
// Reserved output operations
// ---------------------------------------------------------------------------
//
// The runtime writes through whatever flush, write and writeln operations
// the program declares for the file's type, so user-defined file types
// receive output the same way as the built-in file type.

// DoFlush executes "flush file". It reports false when a failure is
// propagating afterwards.
func (in *Interpreter) DoFlush(file *Object) bool {
	return in.doAny(List{in.prog.SysVar(SysFlush), file})
}

// DoWriteln executes "writeln file".
func (in *Interpreter) DoWriteln(file *Object) bool {
	return in.doAny(List{in.prog.SysVar(SysWriteln), file})
}

// DoWriteString executes "write file s" with s wrapped in a temporary
// string object.
func (in *Interpreter) DoWriteString(file *Object, s string) bool {
	str := NewTemp(in.prog.Type("string"), StringValue(s))
	ok := in.doAny(List{in.prog.SysVar(SysWrite), file, str})
	if str.IsTemp() {
		in.Dump(str)
	}
	return ok
}

func (in *Interpreter) doAny(shape List) bool {
	result := in.ExecDynamic(shape)
	if result != nil && result.IsTemp() {
		in.Dump(result)
	}
	return !in.prog.Fail.Raised()
}
