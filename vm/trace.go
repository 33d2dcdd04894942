package vm

import (
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var (
	execLog     = commonlog.GetLogger("seedcore.exec")
	matchLog    = commonlog.GetLogger("seedcore.match")
	dispatchLog = commonlog.GetLogger("seedcore.dispatch")
	failLog     = commonlog.GetLogger("seedcore.fail")
	progLog     = commonlog.GetLogger("seedcore.program")
)

// Trace selects which parts of the engine write trace lines.
type Trace uint16

const (
	TraceActions      Trace = 1 << iota // every action call with its arguments
	TraceCheckActions                   // actions that return no result
	TraceDynamic                        // dynamic dispatch through ExecDynamic
	TraceExceptions                     // raises and unwinding
	TraceMatch                          // matcher decisions
	TraceExecUtil                       // construct/copy/destroy dispatch

	TraceAll Trace = TraceActions | TraceCheckActions | TraceDynamic |
		TraceExceptions | TraceMatch | TraceExecUtil
)

// ParseTrace converts trace letters into a Trace set: a (actions),
// c (check actions), d (dynamic), e (exceptions), m (match), s (executil)
// and * (all). A leading '-' before a letter removes it again.
func ParseTrace(letters string) Trace {
	var t Trace
	remove := false
	for _, ch := range strings.ToLower(letters) {
		var bit Trace
		switch ch {
		case '-':
			remove = true
			continue
		case '+':
			remove = false
			continue
		case '*':
			bit = TraceAll
		case 'a':
			bit = TraceActions
		case 'c':
			bit = TraceCheckActions
		case 'd':
			bit = TraceDynamic
		case 'e':
			bit = TraceExceptions
		case 'm':
			bit = TraceMatch
		case 's':
			bit = TraceExecUtil
		default:
			continue
		}
		if remove {
			t &^= bit
		} else {
			t |= bit
		}
	}
	return t
}

// Has reports whether every bit of o is enabled.
func (t Trace) Has(o Trace) bool { return t&o == o }

func (t Trace) String() string {
	var sb strings.Builder
	for _, e := range []struct {
		bit    Trace
		letter byte
	}{
		{TraceActions, 'a'},
		{TraceCheckActions, 'c'},
		{TraceDynamic, 'd'},
		{TraceExceptions, 'e'},
		{TraceMatch, 'm'},
		{TraceExecUtil, 's'},
	} {
		if t&e.bit != 0 {
			sb.WriteByte(e.letter)
		}
	}
	return sb.String()
}
