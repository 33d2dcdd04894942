package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Interactive diagnostic prompt
// ---------------------------------------------------------------------------

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// State is the snapshot of the interpreter written by the prompt's dump
// command.
type State struct {
	Program   string       `yaml:"program"`
	ID        string       `yaml:"id"`
	Depth     int          `yaml:"depth"`
	Executing string       `yaml:"executing,omitempty"`
	Failure   *FailureDump `yaml:"failure,omitempty"`
	Active    []string     `yaml:"active,omitempty"`
}

// FailureDump describes a propagating failure.
type FailureDump struct {
	Exception string   `yaml:"exception"`
	Origin    string   `yaml:"origin,omitempty"`
	Stack     []string `yaml:"stack,omitempty"`
}

// CurrentState returns the interpreter state. Active calls are listed
// innermost first.
func (in *Interpreter) CurrentState() State {
	st := State{
		Program: in.prog.Name,
		ID:      in.prog.ID.String(),
		Depth:   in.depth,
	}
	if in.currExec != nil {
		st.Executing = in.frameLine(in.currExec)
	}
	for i := len(in.active) - 1; i >= 0; i-- {
		st.Active = append(st.Active, in.frameLine(in.active[i]))
	}
	if f := &in.prog.Fail; f.Raised() {
		fd := &FailureDump{Exception: f.Value.Name()}
		if f.Origin != nil {
			fd.Origin = preview(f.Origin)
		}
		for _, frame := range f.Stack {
			fd.Stack = append(fd.Stack, in.frameLine(frame))
		}
		st.Failure = fd
	}
	return st
}

// DumpState writes the interpreter state as YAML.
func (in *Interpreter) DumpState(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(in.CurrentState()); err != nil {
		return fmt.Errorf("dump state: %w", err)
	}
	return enc.Close()
}

// Prompt stops execution and asks the user how to go on. An empty line
// continues, "*" terminates, "/" prints the active calls, "?" dumps the
// state and a number raises the exception listed under it.
func (in *Interpreter) Prompt(reason string) {
	if in.stdin == nil {
		in.stdin = bufio.NewReader(in.Input)
	}
	w := in.Err
	fmt.Fprintf(w, "\n*** %s\n", reason)
	for {
		fmt.Fprintln(w, "*** (Type RETURN to continue, '*' to terminate, '/' to trace,")
		fmt.Fprintln(w, "***  '?' to dump the state or a number to raise an exception)")
		for i, v := range exceptionVars {
			fmt.Fprintf(w, "***   %d %s\n", i+1, v)
		}
		fmt.Fprint(w, "*** ")

		line, err := readLine(in.stdin)
		if err != nil {
			// no more input: behave as if terminating was requested
			in.terminate()
			return
		}
		cmd := strings.TrimSpace(line)
		switch cmd {
		case "":
			return
		case "*":
			in.terminate()
			return
		case "/":
			frames := make(List, 0, len(in.active))
			for i := len(in.active) - 1; i >= 0; i-- {
				frames = append(frames, in.active[i])
			}
			in.WriteCallStack(w, frames)
			continue
		case "?":
			if err := in.DumpState(w); err != nil {
				fmt.Fprintf(w, "*** %v\n", err)
			}
			continue
		}
		n, err := strconv.Atoi(cmd)
		if err != nil || n < 1 || n > len(exceptionVars) {
			fmt.Fprintf(w, "*** unknown command %q\n", cmd)
			continue
		}
		in.Raise(in.prog.SysVar(exceptionVars[n-1]))
		return
	}
}

// terminate marks the run as terminated and unwinds with interrupt.
func (in *Interpreter) terminate() {
	in.terminated = true
	in.Raise(in.prog.SysVar(SysInterrupt))
}
