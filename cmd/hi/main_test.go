package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/seedcore/vm/artifact"
)

func writeArtifact(t *testing.T, dir, name string, build func(b *artifact.Builder)) string {
	t.Helper()
	b := artifact.NewBuilder(strings.TrimSuffix(name, ".sdi"))
	build(b)
	path := filepath.Join(dir, name)
	if err := artifact.WriteFile(path, b.Image()); err != nil {
		t.Fatal(err)
	}
	return path
}

func hello(b *artifact.Builder) {
	b.Main(b.Expr("writeln", b.Text("hello")))
}

func runHi(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(""), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunArtifact(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "hello.sdi", hello)
	code, out, errOut := runHi(t, "-s", path)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "hello\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	fails := writeArtifact(t, dir, "fails.sdi", func(b *artifact.Builder) {
		b.Main(b.Expr(b.Int(1), "div", b.Int(0)))
	})
	unresolved := writeArtifact(t, dir, "unresolved.sdi", func(b *artifact.Builder) {
		b.Main(b.Expr("frobnicate", b.Int(1)))
	})
	ok := writeArtifact(t, dir, "ok.sdi", hello)
	garbage := filepath.Join(dir, "garbage.sdi")
	if err := os.WriteFile(garbage, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		code    int
		errText string
	}{
		{"uncaught failure", []string{"-s", fails}, 1, "numeric_error"},
		{"analysis errors", []string{"-s", unresolved}, 1, "1 analysis error(s)"},
		{"analysis errors executed", []string{"-s", "-x", unresolved}, 1, "illegal_action"},
		{"analyze only with errors", []string{"-a", "-x", unresolved}, 1, "analysis error"},
		{"analyze only", []string{"-a", ok}, 0, ""},
		{"missing artifact", []string{filepath.Join(dir, "missing.sdi")}, 1, "artifact not found"},
		{"not an image", []string{garbage}, 1, "Error:"},
		{"too many arguments", []string{ok, ok}, 2, "Usage"},
		{"bad flag", []string{"-nope"}, 2, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _, errOut := runHi(t, tc.args...)
			if code != tc.code {
				t.Errorf("exit = %d, want %d\n%s", code, tc.code, errOut)
			}
			if !strings.Contains(errOut, tc.errText) {
				t.Errorf("stderr lacks %q:\n%s", tc.errText, errOut)
			}
		})
	}
}

func TestRunFromLibraryPath(t *testing.T) {
	lib := t.TempDir()
	writeArtifact(t, lib, "hello.sdi", hello)
	code, out, errOut := runHi(t, "-s", "-l", t.TempDir(), "-l", lib, "hello.sdi")
	if code != 0 || out != "hello\n" {
		t.Errorf("exit %d, output %q: %s", code, out, errOut)
	}
}

func TestRunFromManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "build"), 0755); err != nil {
		t.Fatal(err)
	}
	writeArtifact(t, filepath.Join(dir, "build"), "app.sdi", hello)
	config := "[program]\nname = \"app\"\nartifact = \"build/app.sdi\"\n\n[exec]\nsignals = false\n"
	if err := os.WriteFile(filepath.Join(dir, "seedcore.toml"), []byte(config), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "src")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(sub)

	code, out, errOut := runHi(t)
	if code != 0 || out != "hello\n" {
		t.Errorf("exit %d, output %q: %s", code, out, errOut)
	}
}

func TestRunWithoutArtifact(t *testing.T) {
	t.Chdir(t.TempDir())
	code, _, errOut := runHi(t)
	if code != 1 || !strings.Contains(errOut, "no artifact given") {
		t.Errorf("exit %d: %s", code, errOut)
	}
}

func TestDefaultsWithoutManifest(t *testing.T) {
	opts := defaults(nil)
	if !opts.signals || !opts.interactive || opts.artifact != "" {
		t.Errorf("defaults = %+v", opts)
	}
}
