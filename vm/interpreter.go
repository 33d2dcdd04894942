package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Interpreter: tree-walking executor
// ---------------------------------------------------------------------------

// DefaultMaxDepth is the default limit on nested block calls and local
// declaration groups.
const DefaultMaxDepth = 10000

// Interpreter executes resolved calls. It is the explicit context threaded
// through every entry point and handed to every native action; it holds the
// current program, whose failure channel all code running here shares.
type Interpreter struct {
	Actions     *ActionTable
	Trace       Trace
	MaxDepth    int
	Out         io.Writer // standard output of the running program
	Err         io.Writer // diagnostics and uncaught failure reports
	Input       io.Reader // input of the interactive prompt
	Interactive bool      // offer the diagnostic prompt on interrupts
	Drivers     Drivers

	prog     *Program
	depth    int
	currExec *Object
	currArgs List
	active   List // calls currently executing, outermost first

	interruptRequested atomic.Bool
	terminated         bool
	isTerminal         func() bool
	stdin              *bufio.Reader
}

// NewInterpreter creates an interpreter running prog.
func NewInterpreter(prog *Program) *Interpreter {
	in := &Interpreter{
		Actions:    Primitives(),
		MaxDepth:   DefaultMaxDepth,
		Out:        os.Stdout,
		Err:        os.Stderr,
		Input:      os.Stdin,
		Drivers:    DefaultDrivers(),
		prog:       prog,
		isTerminal: stdinIsTerminal,
	}
	if prog != nil {
		in.traceMatches(prog)
	}
	return in
}

// traceMatches has prog's matcher log every match while the interpreter
// traces with TraceMatch.
func (in *Interpreter) traceMatches(prog *Program) {
	m := prog.Matcher()
	if m.Trace == nil {
		m.Trace = func() bool { return in.Trace.Has(TraceMatch) }
	}
}

// Program returns the program currently executing.
func (in *Interpreter) Program() *Program { return in.prog }

// Fail returns the failure channel of the current program.
func (in *Interpreter) Fail() *FailureState { return &in.prog.Fail }

// Depth returns the current nesting depth.
func (in *Interpreter) Depth() int { return in.depth }

// Terminated reports whether the user asked to terminate from the
// interactive prompt.
func (in *Interpreter) Terminated() bool { return in.terminated }

// CurrentCall returns the call whose action is executing, or nil.
func (in *Interpreter) CurrentCall() *Object { return in.currExec }

// ---------------------------------------------------------------------------
// Evaluation
// ---------------------------------------------------------------------------

// Evaluate computes the value of obj: unresolved expressions are matched
// and executed, calls are executed, parameter and local slots yield the
// object they are bound to and every other object evaluates to itself.
func (in *Interpreter) Evaluate(obj *Object) *Object {
	if !in.checkpoint() {
		return nil
	}
	if obj == nil {
		return in.RaiseError(ActionError)
	}
	switch obj.Category() {
	case CategoryExpr:
		call, err := in.prog.Matcher().Match(obj, in.prog.CurrentScope())
		if err != nil {
			return in.raiseAt(in.prog.Exception(ActionError), obj, obj.Items())
		}
		return in.ExecCall(call)
	case CategoryCall, CategoryMatch:
		return in.ExecCall(obj)
	case CategoryBlock:
		return in.ExecCall(NewCall(obj.Type, obj))
	case CategoryAction:
		return in.ExecCall(NewCall(obj.Type, obj))
	case CategoryFwdRef, CategoryValueParam, CategoryRefParam, CategoryResult,
		CategoryLocalVar, CategoryFormParam:
		if t := obj.Target(); t != nil {
			return in.Evaluate(t)
		}
		return in.raiseAt(in.prog.Exception(RangeError), obj, nil)
	}
	return obj
}

// execObject evaluates an argument. Deferred match nodes stay deferred so
// lazy parameters reach the callee unevaluated, and raw elements bound to
// expr parameters are handed over as they are.
func (in *Interpreter) execObject(obj *Object) *Object {
	switch obj.Category() {
	case CategoryCall:
		return in.ExecCall(obj)
	case CategoryValueParam, CategoryRefParam, CategoryResult, CategoryLocalVar,
		CategoryFormParam:
		return obj.Target()
	}
	return obj
}

// ExecCall executes a resolved call according to the category of its head.
// If a failure propagates out of the call, the call is appended to the
// failure's frame list.
func (in *Interpreter) ExecCall(call *Object) *Object {
	c := call.Call()
	if c == nil {
		return in.execObject(call)
	}
	// a propagating failure only records the frames it passes
	if in.prog.Fail.Raised() {
		in.prog.Fail.AppendFrame(call)
		return nil
	}

	head := c.Head
	for head != nil && head.Category() == CategoryFwdRef && head.Target() != nil {
		head = head.Target()
	}
	if head == nil {
		in.raiseAt(in.prog.Exception(ActionError), call, c.Args)
		in.prog.Fail.AppendFrame(call)
		return nil
	}

	in.active = append(in.active, call)
	var result *Object
	switch head.Category() {
	case CategoryAction:
		result = in.execAction(call, ActionOf(head), c.Args)
	case CategoryBlock:
		result = in.execBlock(call, BlockOf(head), c.Args)
	case CategoryForward, CategoryFwdRef:
		result = in.raiseAt(in.prog.Exception(ActionError), call, c.Args)
	case CategoryConstEnum:
		if in.execArgs(c.Args) {
			result = head.Target()
		}
	case CategoryRefParam:
		result = in.Evaluate(head.Target())
	case CategoryCall, CategoryMatch, CategoryExpr:
		result = in.Evaluate(head)
	default:
		if in.execArgs(c.Args) {
			result = head
		}
	}
	in.active = in.active[:len(in.active)-1]

	if in.prog.Fail.Raised() {
		in.prog.Fail.AppendFrame(call)
		return nil
	}
	return result
}

// execArgs evaluates arguments for their side effects only.
func (in *Interpreter) execArgs(args List) bool {
	for _, arg := range args {
		v := in.execObject(arg)
		if in.prog.Fail.Raised() {
			return false
		}
		if v != nil && v.IsTemp() {
			in.Dump(v)
		}
	}
	return true
}

// execAction evaluates the arguments left to right, stopping at the first
// failure, calls the native function and dumps temporary arguments.
func (in *Interpreter) execAction(call *Object, act *Action, args List) *Object {
	evaluated := make(List, len(args))
	for i, arg := range args {
		evaluated[i] = in.execObject(arg)
		if in.prog.Fail.Raised() {
			in.dumpTemps(evaluated[:i], nil)
			return nil
		}
	}

	prevExec, prevArgs := in.currExec, in.currArgs
	in.currExec, in.currArgs = call, evaluated
	if in.Trace.Has(TraceActions) {
		execLog.Debugf("%s(%s)", act.Name, evaluated)
	}
	result := act.Fn(in, evaluated)
	in.currExec, in.currArgs = prevExec, prevArgs

	if result != nil && result.Type == nil && result.IsTemp() {
		result.Type = call.Type
	}
	in.dumpTemps(evaluated, result)

	if result == nil && !in.prog.Fail.Raised() {
		if in.Trace.Has(TraceCheckActions) {
			execLog.Warningf("action %s returned no result", act.Name)
		}
		result = in.prog.Empty()
	}
	return result
}

// ---------------------------------------------------------------------------
// Block invocation
// ---------------------------------------------------------------------------

// frameState records what a block invocation changed so it can be undone.
type frameState struct {
	paramBackup []*Object
	owned       []*Object // private copies made for value parameters
	tempRefs    []*Object // temporaries bound to reference parameters
	bound       int
	localBackup []*Object
	locals      int
	resultBack  *Object
	hasResult   bool
}

// execBlock runs a user-defined block: bind parameters, create locals and
// the result, run the body, then tear everything down in reverse order
// under a saved failure channel.
func (in *Interpreter) execBlock(call *Object, blk *Block, args List) *Object {
	if blk == nil {
		return in.raiseAt(in.prog.Exception(ActionError), call, args)
	}
	if !in.grow() {
		return in.raiseAt(in.prog.Exception(MemoryError), call, args)
	}
	defer in.shrink()

	fs := &frameState{}
	if !in.parInit(call, blk, args, fs) {
		in.teardown(blk, fs)
		return nil
	}
	// locals and the body resolve names where the block was declared
	if blk.Scope != nil {
		in.prog.enterScope(blk.Scope)
		defer in.prog.popFrame()
	}
	if !in.locInit(call, blk, fs) || !in.resInit(call, blk, fs) {
		in.teardown(blk, fs)
		return nil
	}

	var result *Object
	if blk.Body != nil {
		result = in.Evaluate(blk.Body)
	} else {
		result = in.prog.Empty()
	}

	var out *Object
	if !in.prog.Fail.Raised() {
		switch {
		case blk.Result != nil:
			out = blk.Result.Object.Target()
			// ownership moves to the caller
			blk.Result.Object.SetTarget(nil)
			out.SetTemp(true)
		default:
			out = in.returnObject(result)
		}
	}

	in.teardown(blk, fs)
	if in.prog.Fail.Raised() {
		return nil
	}
	return out
}

// parInit evaluates the actual arguments left to right and binds them to
// the formal parameter slots.
func (in *Interpreter) parInit(call *Object, blk *Block, args List, fs *frameState) bool {
	n := len(blk.Params)
	evaluated := make(List, n)
	for i := 0; i < n && i < len(args); i++ {
		evaluated[i] = in.execObject(args[i])
		if in.prog.Fail.Raised() {
			in.dumpTemps(evaluated[:i], nil)
			return false
		}
	}

	fs.paramBackup = make([]*Object, n)
	fs.owned = make([]*Object, n)
	fs.tempRefs = make([]*Object, n)
	for i, p := range blk.Params {
		slot := p.Object
		v := evaluated[i]
		fs.paramBackup[i] = slot.Target()
		fs.bound = i + 1

		switch slot.Category() {
		case CategoryValueParam:
			if v != nil && v.IsTemp() {
				v.SetTemp(false)
				v.SetVar(slot.IsVar())
				slot.SetTarget(v)
				fs.owned[i] = v
				continue
			}
			local, err := in.createLocal(slot.Type, slot.IsVar(), v)
			if err != nil {
				dispatchLog.Debugf("value parameter %d: %s", i, err)
				in.dumpTemps(evaluated[i+1:], nil)
				in.raiseAt(in.prog.Exception(CreateError), call, evaluated)
				return false
			}
			slot.SetTarget(local)
			fs.owned[i] = local
		case CategoryRefParam:
			slot.SetTarget(v)
			if v != nil && v.IsTemp() {
				v.SetTemp(false)
				v.SetFlags(FlagTemp2)
				fs.tempRefs[i] = v
			}
		default:
			slot.SetTarget(v)
		}
	}
	return true
}

// locInit creates the local variables from their initial values.
func (in *Interpreter) locInit(call *Object, blk *Block, fs *frameState) bool {
	fs.localBackup = make([]*Object, len(blk.Locals))
	for i, l := range blk.Locals {
		fs.localBackup[i] = l.Object.Target()
		obj, ok := in.initLocal(call, l)
		if !ok {
			return false
		}
		l.Object.SetTarget(obj)
		fs.locals = i + 1
	}
	return true
}

// resInit creates the result variable.
func (in *Interpreter) resInit(call *Object, blk *Block, fs *frameState) bool {
	if blk.Result == nil {
		return true
	}
	fs.resultBack = blk.Result.Object.Target()
	fs.hasResult = true
	obj, ok := in.initLocal(call, blk.Result)
	if !ok {
		return false
	}
	blk.Result.Object.SetTarget(obj)
	return true
}

func (in *Interpreter) initLocal(call *Object, l *Local) (*Object, bool) {
	var init *Object
	if l.Init != nil {
		init = in.Evaluate(l.Init)
		if in.prog.Fail.Raised() {
			return nil, false
		}
	}
	if init != nil && init.IsTemp() {
		init.SetTemp(false)
		init.SetVar(l.Object.IsVar())
		return init, true
	}
	obj, err := in.createLocal(l.Object.Type, l.Object.IsVar(), init)
	if err != nil {
		dispatchLog.Debugf("local %s: %s", l.Object.Name(), err)
		in.raiseAt(in.prog.Exception(CreateError), call, List{l.Object})
		return nil, false
	}
	return obj, true
}

// teardown destroys the result, locals and parameter copies in reverse
// order and restores the slots' previous bindings. It runs with the failure
// channel saved so destructors execute in clean state.
func (in *Interpreter) teardown(blk *Block, fs *frameState) {
	snap := in.prog.Fail.Save()

	if fs.hasResult {
		if t := blk.Result.Object.Target(); t != nil {
			in.destroyLocal(t)
		}
		blk.Result.Object.SetTarget(fs.resultBack)
	}
	for i := fs.locals - 1; i >= 0; i-- {
		l := blk.Locals[i]
		if t := l.Object.Target(); t != nil {
			in.destroyLocal(t)
		}
		l.Object.SetTarget(fs.localBackup[i])
	}
	for i := fs.bound - 1; i >= 0; i-- {
		slot := blk.Params[i].Object
		if owned := fs.owned[i]; owned != nil {
			in.destroyLocal(owned)
		}
		if ref := fs.tempRefs[i]; ref != nil {
			ref.ClearFlags(FlagTemp2)
			ref.SetTemp(true)
			in.Dump(ref)
		}
		slot.SetTarget(fs.paramBackup[i])
	}

	in.prog.Fail.Restore(snap)
}

// returnObject hands a function's result to the caller as a temporary.
// A non-temporary result is copied so the caller never owns a shared
// object.
func (in *Interpreter) returnObject(result *Object) *Object {
	if result == nil || result.IsTemp() {
		return result
	}
	switch result.Category() {
	case CategoryEnumLiteral, CategoryType, CategoryAction, CategoryBlock,
		CategoryDeclared, CategoryConstEnum:
		return result
	}
	if result.Type == nil || result.Type.Dispatch.Slot(OpCreate).State == SlotMissing {
		return result
	}
	copied, err := in.createLocal(result.Type, false, result)
	if err != nil {
		dispatchLog.Debugf("return value: %s", err)
		return result
	}
	copied.SetTemp(true)
	return copied
}

// ---------------------------------------------------------------------------
// Dynamic execution
// ---------------------------------------------------------------------------

// ExecDynamic builds a call shape from elems at run time, dereferencing
// parameter and local slots to their bound objects, resolves it from the
// declaration root and executes it. An unresolvable shape raises
// illegal_action.
func (in *Interpreter) ExecDynamic(elems List) *Object {
	shape := make(List, len(elems))
	for i, e := range elems {
		switch e.Category() {
		case CategoryValueParam, CategoryRefParam, CategoryResult, CategoryLocalVar:
			shape[i] = e.Target()
		default:
			shape[i] = e
		}
	}
	if in.Trace.Has(TraceDynamic) {
		execLog.Debugf("dynamic %s", shape)
	}
	call, err := in.prog.Matcher().ResolveShape(shape, in.prog.Root)
	if err != nil {
		if in.Trace.Has(TraceDynamic) {
			execLog.Debugf("dynamic: %s", err)
		}
		return in.raiseAt(in.prog.Exception(ActionError), in.currExec, elems)
	}
	return in.ExecCall(call)
}

// ExecExpr evaluates obj inside prog, which may differ from the program
// currently executing. A failure left raised in prog is re-raised in the
// calling program as the exception with the same name.
func (in *Interpreter) ExecExpr(prog *Program, obj *Object) *Object {
	if prog == in.prog {
		return in.Evaluate(obj)
	}
	prog.Acquire()
	in.traceMatches(prog)
	saved, savedDepth := in.prog, in.depth
	in.prog = prog
	result := in.Evaluate(obj)
	in.prog, in.depth = saved, savedDepth

	if prog.Fail.Raised() {
		name := prog.Fail.Value.Name()
		prog.Fail.Leave()
		exc := in.prog.Exception(ActionError)
		if v, ok := LookupSysVar(name); ok && in.prog.SysVar(v) != nil {
			exc = in.prog.SysVar(v)
		}
		in.Raise(exc)
		result = nil
	}
	if err := prog.Release(); err != nil {
		progLog.Errorf("%s", err)
	}
	return result
}

// ---------------------------------------------------------------------------
// Direct invocation
// ---------------------------------------------------------------------------

// Param1Call invokes callable with one argument, bypassing the matcher.
func (in *Interpreter) Param1Call(callable, arg1 *Object) *Object {
	return in.ExecCall(NewCall(callable.Type, callable, arg1))
}

// Param2Call invokes callable with two arguments, bypassing the matcher.
func (in *Interpreter) Param2Call(callable, arg1, arg2 *Object) *Object {
	return in.ExecCall(NewCall(callable.Type, callable, arg1, arg2))
}

// Param3Call invokes callable with three arguments, bypassing the matcher.
func (in *Interpreter) Param3Call(callable, arg1, arg2, arg3 *Object) *Object {
	return in.ExecCall(NewCall(callable.Type, callable, arg1, arg2, arg3))
}

// ---------------------------------------------------------------------------
// Program entry
// ---------------------------------------------------------------------------

// UncaughtError is returned by Interpret when a failure reached the top
// level.
type UncaughtError struct {
	Exception string
}

func (e *UncaughtError) Error() string {
	return fmt.Sprintf("uncaught exception %s", e.Exception)
}

// Interpret runs the program's main object. An uncaught failure is
// reported to Err and returned as *UncaughtError.
func (in *Interpreter) Interpret() error {
	main := in.prog.Main
	if main == nil {
		return fmt.Errorf("program %s: no main declared", in.prog.Name)
	}
	progLog.Infof("executing %s (%s)", in.prog.Name, in.prog.ID)
	result := in.Evaluate(main)
	if in.prog.Fail.Raised() {
		name := in.prog.Fail.Value.Name()
		in.ReportUncaught(in.Err)
		in.prog.Fail.Leave()
		return &UncaughtError{Exception: name}
	}
	if result != nil && result.IsTemp() {
		in.Dump(result)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Depth guard
// ---------------------------------------------------------------------------

// grow accounts for one more nesting level and reports false when the
// limit is exhausted.
func (in *Interpreter) grow() bool {
	if in.MaxDepth > 0 && in.depth >= in.MaxDepth {
		return false
	}
	in.depth++
	return true
}

func (in *Interpreter) shrink() {
	if in.depth > 0 {
		in.depth--
	}
}

// PushScope opens a local declaration group. It fails with memory_error
// when the nesting limit is exhausted.
func (in *Interpreter) PushScope(name string) (*Scope, bool) {
	if !in.grow() {
		in.RaiseError(MemoryError)
		return nil, false
	}
	return in.prog.pushFrame(name), true
}

// PopScope closes the innermost local declaration group.
func (in *Interpreter) PopScope() {
	in.prog.popFrame()
	in.shrink()
}

// ---------------------------------------------------------------------------
// Raising
// ---------------------------------------------------------------------------

// Raise raises exc at the currently executing action. It always returns
// nil so actions can write "return in.Raise(exc)".
func (in *Interpreter) Raise(exc *Object) *Object {
	return in.raiseAt(exc, in.currExec, in.currArgs)
}

// RaiseError raises the exception mapped to kind.
func (in *Interpreter) RaiseError(kind ErrorKind) *Object {
	return in.Raise(in.prog.Exception(kind))
}

func (in *Interpreter) raiseAt(exc, origin *Object, args List) *Object {
	first := in.prog.Fail.Raise(exc, origin, args)
	if first && in.Trace.Has(TraceExceptions) {
		failLog.Debugf("raise %s at %s", exc.Name(), origin)
	}
	return nil
}

// EmptyValue raises range_error for an object that has no value.
func (in *Interpreter) EmptyValue(obj *Object) *Object {
	if in.Trace.Has(TraceExceptions) {
		failLog.Debugf("empty value: %s", obj)
	}
	return in.RaiseError(RangeError)
}

// VarRequired raises range_error for a constant passed where a variable is
// needed.
func (in *Interpreter) VarRequired(obj *Object) *Object {
	if in.Trace.Has(TraceExceptions) {
		failLog.Debugf("variable required: %s", obj)
	}
	return in.RaiseError(RangeError)
}

// ---------------------------------------------------------------------------
// Temporaries
// ---------------------------------------------------------------------------

func (in *Interpreter) dumpTemps(objs List, keep *Object) {
	for _, o := range objs {
		if o != nil && o != keep && o.IsTemp() {
			in.Dump(o)
		}
	}
}
