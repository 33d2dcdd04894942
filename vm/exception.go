package vm

// ---------------------------------------------------------------------------
// Failure channel
// ---------------------------------------------------------------------------

// FailureState is the program-wide exception channel. While Raised is true
// every executing call unwinds, appending its call object to Stack.
// Raising is first-failure-wins: a second raise while the channel is
// already raised changes nothing.
type FailureState struct {
	raised    bool
	interrupt bool

	Value  *Object // the exception object
	Expr   List    // copy of the originating argument list
	Origin *Object // the call that raised
	Stack  List    // unwound call frames, innermost first
}

// Raised reports whether a failure is propagating.
func (f *FailureState) Raised() bool { return f.raised }

// Interrupted reports whether running loops must stop at their next step.
// It is set while a failure is propagating and by external interrupts.
func (f *FailureState) Interrupted() bool { return f.interrupt }

// Raise starts propagating exc. origin is the call currently executing and
// args its evaluated arguments. It returns false when a failure was already
// propagating. The origin is not put on Stack: the call lists itself when
// it unwinds.
func (f *FailureState) Raise(exc, origin *Object, args List) bool {
	if f.raised {
		return false
	}
	f.raised = true
	f.interrupt = true
	f.Value = exc
	f.Expr = args.Copy()
	f.Origin = origin
	f.Stack = nil
	return true
}

// AppendFrame records an unwound call frame. A recursive call appears once
// per activation.
func (f *FailureState) AppendFrame(call *Object) {
	if call == nil {
		return
	}
	f.Stack = append(f.Stack, call)
}

// Leave clears the channel. Handlers call it after catching the failure;
// the copied expression and frame list are released.
func (f *FailureState) Leave() {
	*f = FailureState{}
}

// Snapshot is a saved failure channel.
type Snapshot struct {
	state FailureState
}

// WasRaised reports whether the saved channel was raised.
func (s Snapshot) WasRaised() bool { return s.state.raised }

// Save snapshots the channel and clears it so that a nested evaluation
// (a destructor, a dynamic write) can run in clean state.
func (f *FailureState) Save() Snapshot {
	s := Snapshot{state: *f}
	*f = FailureState{}
	return s
}

// Restore merges a snapshot back. A raised snapshot wins over anything the
// nested evaluation left behind and the interrupt flag is forced on so the
// resumed context keeps unwinding. A clear snapshot keeps a failure raised
// by the nested evaluation.
func (f *FailureState) Restore(s Snapshot) {
	switch {
	case s.state.raised:
		if f.raised {
			failLog.Debugf("discarding nested %s while restoring %s",
				f.Value.Name(), s.state.Value.Name())
		}
		*f = s.state
		f.interrupt = true
	case f.raised:
		// nested failure propagates
	default:
		*f = s.state
	}
}

// Equal reports whether two channels hold identical state.
func (f *FailureState) Equal(other *FailureState) bool {
	if f.raised != other.raised || f.interrupt != other.interrupt ||
		f.Value != other.Value || f.Origin != other.Origin ||
		len(f.Expr) != len(other.Expr) || len(f.Stack) != len(other.Stack) {
		return false
	}
	for i := range f.Expr {
		if f.Expr[i] != other.Expr[i] {
			return false
		}
	}
	for i := range f.Stack {
		if f.Stack[i] != other.Stack[i] {
			return false
		}
	}
	return true
}
