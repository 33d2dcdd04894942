package vm

// ---------------------------------------------------------------------------
// Dynamic-operation dispatcher
// ---------------------------------------------------------------------------
//
// Construct, copy, destroy, ordinal and membership are resolved per type
// through the Matcher from the declaration root, then cached in the type's
// DispatchCache. Construct and copy between objects of different types
// bypass the cache and resolve the shape afresh on every call. Membership
// and value conversion are cached together with the argument type they
// were resolved for.

// standIn returns an operand standing for "some value of type t" in a lookup
// shape.
func standIn(t *Type, isVar bool) *Object {
	o := NewObject(t, NewRef(CategoryValueParam, nil))
	o.SetVar(isVar)
	return o
}

// lookupOp resolves op for type t at most once.
func (in *Interpreter) lookupOp(t *Type, op Operation, shape func() List) *Object {
	return t.Dispatch.ResolveOnce(op, func() *Object {
		return in.resolveOp(t, op, shape)
	})
}

func (in *Interpreter) resolveOp(t *Type, op Operation, shape func() List) *Object {
	call, err := in.prog.Matcher().ResolveShape(shape(), in.prog.Root)
	if err != nil {
		if in.Trace.Has(TraceExecUtil) {
			dispatchLog.Debugf("no %s for %s", op, t)
		}
		return nil
	}
	c := call.Call()
	if c == nil {
		return nil
	}
	if in.Trace.Has(TraceExecUtil) {
		dispatchLog.Debugf("%s for %s resolved to %s", op, t, c.Head.Name())
	}
	return c.Head
}

// lookupOpFor is lookupOp for operations that also depend on the type of
// their argument.
func (in *Interpreter) lookupOpFor(t *Type, op Operation, arg *Type, shape func() List) *Object {
	return t.Dispatch.ResolveFor(op, arg, func() *Object {
		return in.resolveOp(t, op, shape)
	})
}

// LookupOperation returns the cached callable for op on t, resolving it on
// first use. It returns nil when no such operation is declared.
func (in *Interpreter) LookupOperation(t *Type, op Operation) *Object {
	p := in.prog
	switch op {
	case OpCreate:
		return in.lookupOp(t, op, func() List {
			return List{standIn(t, true), p.SysVar(SysCreate), standIn(t, false)}
		})
	case OpCopy:
		return in.lookupOp(t, op, func() List {
			return List{standIn(t, true), p.SysVar(SysAssign), standIn(t, false)}
		})
	case OpDestroy:
		return in.lookupOp(t, op, func() List {
			return List{p.SysVar(SysDestroy), standIn(t, true)}
		})
	case OpOrdinal:
		return in.lookupOp(t, op, func() List {
			return List{p.SysVar(SysOrd), standIn(t, false)}
		})
	}
	return nil
}

// checkEmpty converts the outcome of a create/copy/destroy call into an
// error. A raised failure is cleared and reported as the operation's error
// kind; so is any result other than the empty value.
func (in *Interpreter) checkEmpty(result *Object, kind ErrorKind, op Operation, t *Type) error {
	if in.prog.Fail.Raised() {
		cause := "raised " + in.prog.Fail.Value.Name()
		in.prog.Fail.Leave()
		return &DispatchError{Kind: kind, Op: op, Type: t, Cause: cause}
	}
	if result != in.prog.Empty() {
		if result != nil && result.IsTemp() {
			in.Dump(result)
		}
		return &DispatchError{Kind: kind, Op: op, Type: t, Cause: "unexpected result"}
	}
	return nil
}

// Construct initialises dest, a fresh object without a value, from source.
func (in *Interpreter) Construct(dest, source *Object) error {
	t := dest.Type
	if source != nil && source.Type != t {
		return in.constructDynamic(dest, source)
	}
	callable := in.LookupOperation(t, OpCreate)
	if callable == nil {
		return &DispatchError{Kind: CreateError, Op: OpCreate, Type: t, Cause: "not declared"}
	}
	result := in.Param2Call(callable, dest, source)
	return in.checkEmpty(result, CreateError, OpCreate, t)
}

// constructDynamic handles construct between different types. The shape is
// resolved on every call and never cached.
func (in *Interpreter) constructDynamic(dest, source *Object) error {
	if in.Trace.Has(TraceExecUtil) {
		dispatchLog.Debugf("heterogeneous create %s ::= %s", dest.Type, source.Type)
	}
	result := in.ExecDynamic(List{dest, in.prog.SysVar(SysCreate), source})
	return in.checkEmpty(result, CreateError, OpCreate, dest.Type)
}

// Copy assigns source to the existing object dest.
func (in *Interpreter) Copy(dest, source *Object) error {
	t := dest.Type
	if source.Type != t {
		if in.Trace.Has(TraceExecUtil) {
			dispatchLog.Debugf("heterogeneous copy %s := %s", t, source.Type)
		}
		result := in.ExecDynamic(List{dest, in.prog.SysVar(SysAssign), source})
		return in.checkEmpty(result, CopyError, OpCopy, t)
	}
	callable := in.LookupOperation(t, OpCopy)
	if callable == nil {
		return &DispatchError{Kind: CopyError, Op: OpCopy, Type: t, Cause: "not declared"}
	}
	result := in.Param2Call(callable, dest, source)
	return in.checkEmpty(result, CopyError, OpCopy, t)
}

// Destroy releases the resources of obj through its type's destroy
// operation.
func (in *Interpreter) Destroy(obj *Object) error {
	t := obj.Type
	if t == nil {
		return &DispatchError{Kind: DestroyError, Op: OpDestroy, Cause: "untyped object"}
	}
	callable := in.LookupOperation(t, OpDestroy)
	if callable == nil {
		return &DispatchError{Kind: DestroyError, Op: OpDestroy, Type: t, Cause: "not declared"}
	}
	result := in.Param1Call(callable, obj)
	return in.checkEmpty(result, DestroyError, OpDestroy, t)
}

// Ordinal returns the ordinal number of obj.
func (in *Interpreter) Ordinal(obj *Object) (int64, error) {
	t := obj.Type
	callable := in.LookupOperation(t, OpOrdinal)
	if callable == nil {
		return 0, &DispatchError{Kind: InError, Op: OpOrdinal, Type: t, Cause: "not declared"}
	}
	result := in.Param1Call(callable, obj)
	if in.prog.Fail.Raised() {
		cause := "raised " + in.prog.Fail.Value.Name()
		in.prog.Fail.Leave()
		return 0, &DispatchError{Kind: InError, Op: OpOrdinal, Type: t, Cause: cause}
	}
	n, ok := result.Value().(IntValue)
	if result.IsTemp() {
		in.Dump(result)
	}
	if !ok {
		return 0, &DispatchError{Kind: InError, Op: OpOrdinal, Type: t, Cause: "result is not an integer"}
	}
	return int64(n), nil
}

// Member reports whether elem is in set. The operation is cached on the
// set's type for the element type it was first used with.
func (in *Interpreter) Member(elem, set *Object) (bool, error) {
	t := set.Type
	elemType := elem.Type
	callable := in.lookupOpFor(t, OpMember, elemType, func() List {
		return List{standIn(elemType, false), in.prog.SysVar(SysIn), standIn(t, false)}
	})
	if callable == nil {
		return false, &DispatchError{Kind: InError, Op: OpMember, Type: t, Cause: "not declared"}
	}
	result := in.Param2Call(callable, elem, set)
	if in.prog.Fail.Raised() {
		cause := "raised " + in.prog.Fail.Value.Name()
		in.prog.Fail.Leave()
		return false, &DispatchError{Kind: InError, Op: OpMember, Type: t, Cause: cause}
	}
	b, ok := in.truth(result)
	if !ok {
		return false, &DispatchError{Kind: InError, Op: OpMember, Type: t, Cause: "result is not a boolean"}
	}
	return b, nil
}

// Value converts obj to a value of type t through the "(attr t) value obj"
// operation. The operation is cached on t for the source type it was
// first used with.
func (in *Interpreter) Value(t *Type, obj *Object) (*Object, error) {
	srcType := obj.Type
	callable := in.lookupOpFor(t, OpValue, srcType, func() List {
		return List{t.MatchObj, in.prog.SysVar(SysValue), standIn(srcType, false)}
	})
	if callable == nil {
		return nil, &DispatchError{Kind: RangeError, Op: OpValue, Type: t, Cause: "not declared"}
	}
	result := in.Param2Call(callable, t.MatchObj, obj)
	if in.prog.Fail.Raised() {
		cause := "raised " + in.prog.Fail.Value.Name()
		in.prog.Fail.Leave()
		return nil, &DispatchError{Kind: RangeError, Op: OpValue, Type: t, Cause: cause}
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Local objects
// ---------------------------------------------------------------------------

// createLocal makes a private object of type t initialised from init.
func (in *Interpreter) createLocal(t *Type, isVar bool, init *Object) (*Object, error) {
	obj := NewObject(t, Declared())
	obj.SetVar(isVar)
	if init == nil {
		return obj, nil
	}
	if err := in.Construct(obj, init); err != nil {
		return nil, err
	}
	return obj, nil
}

// destroyLocal destroys a local object unless its category needs no
// destructor. Errors are logged, teardown continues.
func (in *Interpreter) destroyLocal(obj *Object) {
	if obj.Category().isScalar() || obj.Category() == CategoryDeclared {
		return
	}
	if err := in.Destroy(obj); err != nil {
		dispatchLog.Debugf("destroy %s: %s", obj.Name(), err)
	}
	obj.SetFlags(FlagReleased)
}

// Dump releases a temporary exactly once. Aggregates run their destroy
// operation with the failure channel saved around it.
func (in *Interpreter) Dump(obj *Object) {
	if obj == nil {
		return
	}
	if obj.Has(FlagReleased) {
		dispatchLog.Debugf("ignoring second release of %s", obj)
		return
	}
	obj.ClearFlags(FlagTemp | FlagTemp2)
	switch obj.Category() {
	case CategoryArray, CategoryStruct, CategoryHash, CategoryInterface, CategorySet,
		CategoryFile, CategorySocket, CategoryDatabase, CategorySQLStatement, CategoryProg:
		snap := in.prog.Fail.Save()
		if err := in.Destroy(obj); err != nil {
			dispatchLog.Debugf("dump %s: %s", obj, err)
		}
		in.prog.Fail.Restore(snap)
	}
	obj.SetFlags(FlagReleased)
}

// ---------------------------------------------------------------------------
// Value helpers shared with the primitives
// ---------------------------------------------------------------------------

// enumLiteral returns the enum literal obj stands for.
func enumLiteral(obj *Object) *Object {
	for obj != nil {
		switch obj.Category() {
		case CategoryEnumLiteral:
			return obj
		case CategoryConstEnum, CategoryVarEnum, CategoryFwdRef:
			obj = obj.Target()
		default:
			return nil
		}
	}
	return nil
}

// truth converts a boolean object into a Go bool.
func (in *Interpreter) truth(obj *Object) (bool, bool) {
	lit := enumLiteral(obj)
	switch {
	case lit == nil:
		return false, false
	case in.prog.IsTrue(lit):
		return true, true
	case in.prog.IsFalse(lit):
		return false, true
	}
	return false, false
}
