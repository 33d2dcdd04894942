package vm

import (
	"fmt"
	"io"
	"runtime/debug"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Failure reports
// ---------------------------------------------------------------------------

// previewLimit bounds the rendering of the expression that raised.
const previewLimit = 256

func preview(obj *Object) string {
	s := obj.String()
	if len(s) <= previewLimit {
		return s
	}
	cut := previewLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + " ..."
}

// frameLine renders one call frame as "in NAME at FILE(LINE)".
func (in *Interpreter) frameLine(call *Object) string {
	name := "*UNKNOWN*"
	if c := call.Call(); c != nil && c.Head != nil {
		head := c.Head
		if head.Category() == CategoryFwdRef && head.Target() != nil {
			head = head.Target()
		}
		if n := head.Name(); n != "" {
			name = n
		}
	} else if n := call.Name(); n != "" {
		name = n
	}
	if call.HasPos() {
		return fmt.Sprintf("in %s at %s(%d)", name, in.prog.FileName(call.Pos), call.Pos.Line)
	}
	return "in " + name
}

// guardedWalk runs fn with memory faults turned into panics and recovers
// from them, so a report over damaged structures ends early instead of
// taking the process down.
func guardedWalk(fn func()) (ok bool) {
	old := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(old)
	defer func() {
		if r := recover(); r != nil {
			failLog.Errorf("report aborted: %v", r)
			ok = false
		}
	}()
	fn()
	return true
}

// WriteCallStack writes one line per frame, innermost first.
func (in *Interpreter) WriteCallStack(w io.Writer, frames List) {
	guardedWalk(func() {
		for _, frame := range frames {
			fmt.Fprintln(w, in.frameLine(frame))
		}
	})
}

// ReportUncaught writes the report for a failure that reached the top
// level: the exception, a bounded preview of the originating expression
// and the unwound call stack.
func (in *Interpreter) ReportUncaught(w io.Writer) {
	f := &in.prog.Fail
	if !f.Raised() {
		return
	}
	failLog.Errorf("uncaught %s in %s (%s)", f.Value.Name(), in.prog.Name, in.prog.ID)
	fmt.Fprintf(w, "\n*** Uncaught exception %s raised", f.Value.Name())
	ok := guardedWalk(func() {
		if f.Origin != nil {
			fmt.Fprintf(w, " with\n{%s}\n", preview(f.Origin))
		} else {
			fmt.Fprintln(w)
		}
	})
	if !ok {
		fmt.Fprintln(w, "\n*** expression not printable")
	}
	if len(f.Stack) > 0 {
		fmt.Fprintln(w, "\nStack:")
		in.WriteCallStack(w, f.Stack)
	}
}
