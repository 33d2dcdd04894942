package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"
)

// captureLog sends debug logging to a buffer for the rest of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	backend := simple.NewBackend()
	backend.Buffered = false
	backend.Configure(2, nil)
	backend.Writer = &buf
	commonlog.SetBackend(backend)
	t.Cleanup(func() {
		restore := simple.NewBackend()
		restore.Configure(0, nil)
		commonlog.SetBackend(restore)
	})
	return &buf
}

func TestParseTrace(t *testing.T) {
	tests := []struct {
		letters string
		want    Trace
	}{
		{"", 0},
		{"a", TraceActions},
		{"ms", TraceMatch | TraceExecUtil},
		{"AE", TraceActions | TraceExceptions},
		{"*", TraceAll},
		{"*-m", TraceAll &^ TraceMatch},
		{"*-md+m", TraceAll &^ TraceDynamic},
		{"xyz", 0},
	}
	for _, tc := range tests {
		if got := ParseTrace(tc.letters); got != tc.want {
			t.Errorf("ParseTrace(%q) = %s, want %s", tc.letters, got, tc.want)
		}
	}
}

func TestTraceString(t *testing.T) {
	if got := TraceAll.String(); got != "acdems" {
		t.Errorf("TraceAll = %q", got)
	}
	if got := (TraceExecUtil | TraceActions).String(); got != "as" {
		t.Errorf("String() = %q, want letters in a fixed order", got)
	}
	if got := ParseTrace(TraceAll.String()); got != TraceAll {
		t.Errorf("letters do not parse back: %s", got)
	}
}

func TestTraceHas(t *testing.T) {
	tr := TraceMatch | TraceExceptions
	if !tr.Has(TraceMatch) || tr.Has(TraceActions) {
		t.Error("Has should test single letters")
	}
	if tr.Has(TraceMatch | TraceActions) {
		t.Error("Has requires every bit")
	}
}

func TestMatchTraceLogsMatches(t *testing.T) {
	tests := []struct {
		letters string
		logged  bool
	}{
		{"m", true},
		{"*", true},
		{"ae", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.letters, func(t *testing.T) {
			buf := captureLog(t)
			e := newTestEnv(t)
			e.in.Trace = ParseTrace(tc.letters)
			e.eval(t, "writeln", e.strLit("traced"))
			e.assertClear(t)

			if got := strings.Contains(buf.String(), "matched (writeln"); got != tc.logged {
				t.Errorf("match line logged = %v, want %v:\n%s", got, tc.logged, buf.String())
			}
		})
	}
}
