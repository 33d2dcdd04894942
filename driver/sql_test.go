package driver

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/seedcore/vm"
	"github.com/chazu/seedcore/vm/artifact"
)

func openMemory(t *testing.T) vm.Database {
	t.Helper()
	db, err := New().Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// exec prepares, binds and runs one statement to completion.
func exec(t *testing.T, db vm.Database, query string, args ...any) {
	t.Helper()
	st, err := db.Prepare(query)
	if err != nil {
		t.Fatalf("Prepare %q: %v", query, err)
	}
	defer st.Close()
	for i, a := range args {
		if err := st.Bind(i+1, a); err != nil {
			t.Fatalf("Bind %d: %v", i+1, err)
		}
	}
	if err := st.Execute(); err != nil {
		t.Fatalf("Execute %q: %v", query, err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	for _, name := range []string{"", "postgres", "oracle"} {
		if _, err := New().Open(name, "x"); !errors.Is(err, ErrUnknownDriver) {
			t.Errorf("Open(%q) = %v, want ErrUnknownDriver", name, err)
		}
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	db := openMemory(t)
	exec(t, db, "create table t (n integer, name text)")
	exec(t, db, "insert into t values (?, ?)", int64(1), "one")
	exec(t, db, "insert into t values (?, ?)", int64(2), "two")

	st, err := db.Prepare("select n, name from t where n >= ? order by n")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if err := st.Bind(1, int64(1)); err != nil {
		t.Fatal(err)
	}
	if err := st.Execute(); err != nil {
		t.Fatal(err)
	}

	var ns []int64
	var names []string
	for {
		ok, err := st.Fetch()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		n, _ := st.Column(1)
		name, _ := st.Column(2)
		ns = append(ns, n.(int64))
		names = append(names, name.(string))
	}
	if len(ns) != 2 || ns[0] != 1 || ns[1] != 2 {
		t.Errorf("n = %v", ns)
	}
	if len(names) != 2 || names[0] != "one" || names[1] != "two" {
		t.Errorf("name = %v", names)
	}
	if _, err := st.Column(1); err == nil {
		t.Error("no row is current after the cursor is exhausted")
	}

	// a second execution starts over with the same bindings
	if err := st.Execute(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := st.Fetch(); !ok {
		t.Fatal("re-executed statement should return rows")
	}
	if _, err := st.Column(3); err == nil {
		t.Error("column 3 is out of range")
	}
}

func TestMemoryDatabasesAreSeparate(t *testing.T) {
	a := openMemory(t)
	b := openMemory(t)
	exec(t, a, "create table only_a (n integer)")
	if _, err := b.Prepare("select n from only_a"); err == nil {
		t.Error("a table of one in-memory database should not show up in another")
	}
}

func TestStatementErrors(t *testing.T) {
	db := openMemory(t)
	if _, err := db.Prepare("selec nothing"); err == nil {
		t.Error("a malformed query should not prepare")
	}
	st, err := db.Prepare("select 1")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if err := st.Bind(0, int64(1)); err == nil {
		t.Error("positions start at 1")
	}
	if ok, err := st.Fetch(); ok || err != nil {
		t.Errorf("Fetch before Execute = %v, %v", ok, err)
	}
	if _, err := st.Column(1); err == nil {
		t.Error("Column before Fetch should fail")
	}
}

func TestSqliteDSN(t *testing.T) {
	if got := sqliteDSN("data.db"); got != "data.db" {
		t.Errorf("file DSN rewritten to %q", got)
	}
	mem := sqliteDSN(":memory:")
	if !strings.HasPrefix(mem, "file:") || !strings.HasSuffix(mem, "?mode=memory&cache=shared") {
		t.Errorf("memory DSN = %q", mem)
	}
	if mem == sqliteDSN("") {
		t.Error("every in-memory database gets its own name")
	}
}

// A program drives the database through the interpreter's primitives.
func TestProgramUsesDatabase(t *testing.T) {
	b := artifact.NewBuilder("db")
	b.Bind("db", b.Variable(vm.TypeDatabase))
	b.Bind("st", b.Variable(vm.TypeStatement))
	var seq func(first artifact.Ref, rest ...artifact.Ref) artifact.Ref
	seq = func(first artifact.Ref, rest ...artifact.Ref) artifact.Ref {
		if len(rest) == 0 {
			return first
		}
		return b.Expr(first, ";", seq(rest[0], rest[1:]...))
	}
	prepare := func(q string) artifact.Ref {
		return b.Expr("st", ":=", b.Expr("prepare", "db", b.Text(q)))
	}
	b.Main(seq(
		b.Expr("db", ":=", b.Expr("openDatabase", b.Text("sqlite"), b.Text(":memory:"))),
		prepare("create table t (n integer, name text)"),
		b.Expr("execute", "st"),
		prepare("insert into t values (?, ?)"),
		b.Expr("bind", "st", b.Int(1), b.Int(7)),
		b.Expr("bind", "st", b.Int(2), b.Text("seven")),
		b.Expr("execute", "st"),
		prepare("select n, name from t"),
		b.Expr("execute", "st"),
		b.Expr("if", b.Expr("fetch", "st"), "then",
			seq(
				b.Expr("writeln", b.Expr("column", "st", b.Int(2), "string")),
				b.Expr("writeln", b.Expr("str", b.Expr("column", "st", b.Int(1), "integer"))),
			),
			"end", "if"),
	))

	p, err := artifact.Load(b.Image(), vm.Primitives())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var out, errOut bytes.Buffer
	in := vm.NewInterpreter(p)
	in.Out, in.Err = &out, &errOut
	in.Drivers.Database = New()
	if err := in.Interpret(); err != nil {
		t.Fatalf("Interpret: %v\n%s", err, errOut.String())
	}
	if out.String() != "seven\n7\n" {
		t.Errorf("output = %q", out.String())
	}

	db := vm.HandleOf(p.Root.Lookup("db").Object).(*vm.DatabaseHandle)
	if db.UsageCount() != 2 {
		t.Errorf("database usage = %d, want the variable and the statement", db.UsageCount())
	}
}
