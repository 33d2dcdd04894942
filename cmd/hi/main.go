// hi runs program artifacts produced by the analyzer.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/seedcore/driver"
	"github.com/chazu/seedcore/manifest"
	"github.com/chazu/seedcore/vm"
	"github.com/chazu/seedcore/vm/artifact"
)

// libPaths collects repeated -l flags.
type libPaths []string

func (l *libPaths) String() string     { return strings.Join(*l, ":") }
func (l *libPaths) Set(v string) error { *l = append(*l, v); return nil }

// options are the settings after the manifest and the command line are merged.
type options struct {
	artifact    string
	analyzeOnly bool
	trace       string
	libs        []string
	protocol    string
	verbosity   int
	signals     bool
	interactive bool
	allowErrors bool
	maxDepth    int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hi", flag.ContinueOnError)
	fs.SetOutput(stderr)
	analyzeOnly := fs.Bool("a", false, "Analyze only: load the artifact and report errors")
	debug := fs.String("d", "", "Trace letters: a c d e m s, or * for all")
	trace := fs.String("t", "", "Same as -d")
	var libs libPaths
	fs.Var(&libs, "l", "Add a library directory (repeatable)")
	protocol := fs.String("p", "", "Write the log protocol to this file")
	quiet := fs.Bool("q", false, "Quiet: only warnings and errors")
	verbose := fs.Bool("v", false, "Verbose output")
	noSignals := fs.Bool("s", false, "Do not install signal handlers")
	execute := fs.Bool("x", false, "Execute despite analysis errors")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: hi [options] [artifact]\n\n")
		fmt.Fprintf(stderr, "Runs a program artifact. Without an argument the artifact named in\n")
		fmt.Fprintf(stderr, "seedcore.toml is run.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}

	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	opts := defaults(m)
	if fs.NArg() == 1 {
		opts.artifact = fs.Arg(0)
	}
	opts.analyzeOnly = *analyzeOnly
	for _, letters := range []string{*debug, *trace} {
		if letters != "" {
			opts.trace = letters
		}
	}
	opts.libs = append(opts.libs, libs...)
	if *protocol != "" {
		opts.protocol = *protocol
	}
	switch {
	case *quiet:
		opts.verbosity = -1
	case *verbose:
		opts.verbosity = 1
	}
	if *noSignals {
		opts.signals = false
	}
	if *execute {
		opts.allowErrors = true
	}

	return runArtifact(opts, stdin, stdout, stderr)
}

// defaults reads the settings a manifest provides.
func defaults(m *manifest.Manifest) options {
	opts := options{signals: true, interactive: true}
	if m == nil {
		return opts
	}
	opts.artifact = m.ArtifactPath()
	opts.libs = m.LibPaths()
	opts.protocol = m.ProtocolPath()
	opts.trace = m.Trace.Letters
	opts.verbosity = m.Trace.Verbosity
	opts.signals = m.Exec.SignalsEnabled()
	opts.interactive = m.Exec.InteractiveEnabled()
	opts.allowErrors = m.Exec.AllowErrors
	opts.maxDepth = m.Exec.MaxDepth
	return opts
}

func runArtifact(opts options, stdin io.Reader, stdout, stderr io.Writer) int {
	if opts.artifact == "" {
		fmt.Fprintf(stderr, "Error: no artifact given and none configured in %s\n", manifest.FileName)
		return 1
	}

	tr := vm.ParseTrace(opts.trace)
	verbosity := opts.verbosity
	if tr != 0 && verbosity < 2 {
		verbosity = 2
	}
	var logPath *string
	if opts.protocol != "" {
		logPath = &opts.protocol
	}
	commonlog.Configure(verbosity, logPath)

	path, err := manifest.FindArtifact(opts.artifact, opts.libs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	img, err := artifact.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	prog, err := artifact.Load(img, vm.Primitives())
	switch {
	case errors.Is(err, artifact.ErrAnalysis):
		fmt.Fprintf(stderr, "%s: %d analysis error(s)\n", path, prog.ErrorCount)
		if opts.analyzeOnly || !opts.allowErrors {
			prog.Release()
			return 1
		}
	case err != nil:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer prog.Release()
	if opts.analyzeOnly {
		if opts.verbosity > 0 {
			fmt.Fprintf(stdout, "%s: no errors\n", path)
		}
		return 0
	}

	in := vm.NewInterpreter(prog)
	in.Out, in.Err, in.Input = stdout, stderr, stdin
	in.Trace = tr
	in.Interactive = opts.interactive
	in.Drivers.Database = driver.New()
	if opts.maxDepth > 0 {
		in.MaxDepth = opts.maxDepth
	}
	if opts.signals {
		stop := in.InstallSignals()
		defer stop()
	}

	if err := in.Interpret(); err != nil {
		var ue *vm.UncaughtError
		if !errors.As(err, &ue) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	if in.Terminated() {
		return 1
	}
	return 0
}
