package vm

import (
	"os"
	"os/signal"
	"syscall"
)

// ---------------------------------------------------------------------------
// Interrupts
// ---------------------------------------------------------------------------

// RequestInterrupt asks the running program to stop at its next
// checkpoint. It is safe to call from any goroutine.
func (in *Interpreter) RequestInterrupt() {
	in.interruptRequested.Store(true)
}

// InstallSignals routes SIGINT to RequestInterrupt until the returned stop
// function is called.
func (in *Interpreter) InstallSignals() (stop func()) {
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigChan, syscall.SIGINT)
	go func() {
		for {
			select {
			case <-sigChan:
				execLog.Noticef("interrupt requested")
				in.RequestInterrupt()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// checkpoint handles a pending interrupt request. On a terminal the
// diagnostic prompt is offered; otherwise the interrupt exception is
// raised so the program unwinds. It reports false when execution must not
// go on.
func (in *Interpreter) checkpoint() bool {
	if !in.interruptRequested.Load() {
		return true
	}
	in.interruptRequested.Store(false)
	if in.Interactive && in.isTerminal != nil && in.isTerminal() {
		in.Prompt("PROGRAM INTERRUPTED")
		return !in.prog.Fail.Raised()
	}
	in.Raise(in.prog.SysVar(SysInterrupt))
	return false
}
