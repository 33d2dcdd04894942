package vm

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
)

// bindHandle binds a handle object produced by a primitive as a variable.
func (e *testEnv) bindHandle(name string, obj *Object) *Object {
	obj.SetTemp(false)
	obj.SetVar(true)
	e.p.Root.Bind(name, obj)
	return obj
}

func (e *testEnv) str(t *testing.T, elems ...any) string {
	t.Helper()
	obj := e.eval(t, elems...)
	if obj == nil {
		t.Fatalf("%v: no result", elems)
	}
	s, ok := obj.Value().(StringValue)
	if !ok {
		t.Fatalf("%v: result %s is not a string", elems, obj)
	}
	return string(s)
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

func TestFileWriteAndRead(t *testing.T) {
	e := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "out.txt")
	fileT := e.typ(TypeFile)

	w, err := OpenFile(path, "w")
	if err != nil {
		t.Fatal(err)
	}
	e.variable("f", fileT, NewHandleValue(CategoryFile, w))
	e.eval(t, "write", "f", e.strLit("hello"))
	e.eval(t, "writeln", "f")
	e.eval(t, "close", "f")
	e.assertClear(t)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello\n" {
		t.Errorf("file contains %q", data)
	}

	e.bindHandle("g", e.eval(t, "open", e.strLit(path), e.strLit("r")))
	e.assertClear(t)
	if got := e.str(t, "getln", "g"); got != "hello" {
		t.Errorf("first line = %q", got)
	}
	if got := e.str(t, "getln", "g"); got != "" {
		t.Errorf("getln at end of file = %q, want empty", got)
	}
}

func TestFileErrors(t *testing.T) {
	e := newTestEnv(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		mode string
	}{
		{"missing file", filepath.Join(dir, "missing"), "r"},
		{"bad mode", filepath.Join(dir, "x"), "rw"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if e.eval(t, "open", e.strLit(tc.path), e.strLit(tc.mode)) != nil {
				t.Error("open should fail")
			}
			e.assertRaised(t, SysFileError)
			e.p.Fail.Leave()
		})
	}

	r, err := OpenFile(filepath.Join(dir, "x"), "w")
	if err != nil {
		t.Fatal(err)
	}
	e.variable("ro", e.typ(TypeFile), NewHandleValue(CategoryFile, r))
	e.eval(t, "getln", "ro")
	e.assertRaised(t, SysFileError)
}

func TestFileHandleUsage(t *testing.T) {
	e := newTestEnv(t)
	fileT := e.typ(TypeFile)
	h, err := OpenFile(filepath.Join(t.TempDir(), "shared"), "w")
	if err != nil {
		t.Fatal(err)
	}
	src := NewObject(fileT, NewHandleValue(CategoryFile, h))

	dest := NewObject(fileT, Declared())
	if err := e.in.Construct(dest, src); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if h.UsageCount() != 2 {
		t.Errorf("usage = %d after create, want 2", h.UsageCount())
	}
	if err := e.in.Destroy(dest); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if h.UsageCount() != 1 || h.closed {
		t.Error("the file should stay open while src uses it")
	}

	e.in.Dump(NewTemp(fileT, src.Value()))
	if !h.closed {
		t.Error("the last release should close the file")
	}
	if err := h.Release(); err == nil {
		t.Error("releasing an unused handle should fail")
	}
}

func TestStdOutFollowsInterpreter(t *testing.T) {
	e := newTestEnv(t)
	e.eval(t, "write", "OUT", e.strLit("to out"))
	e.assertClear(t)
	if got := e.out.String(); got != "to out" {
		t.Errorf("output = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Sockets
// ---------------------------------------------------------------------------

func TestSocketRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	client, server := net.Pipe()
	var dialed string
	e.in.Drivers.Dial = func(network, address string) (net.Conn, error) {
		dialed = network + " " + address
		return client, nil
	}

	done := make(chan error, 1)
	go func() {
		defer server.Close()
		line, err := bufio.NewReader(server).ReadString('\n')
		if err != nil {
			done <- err
			return
		}
		_, err = fmt.Fprintf(server, "pong %s", line)
		done <- err
	}()

	s := e.bindHandle("s", e.eval(t, "dial", e.strLit("example.org:7")))
	e.assertClear(t)
	if dialed != "tcp example.org:7" {
		t.Errorf("dialed %q", dialed)
	}
	e.eval(t, "write", "s", e.strLit("ping\n"))
	if got := e.str(t, "getln", "s"); got != "pong ping" {
		t.Errorf("received %q", got)
	}
	if err := <-done; err != nil {
		t.Fatalf("server: %v", err)
	}
	e.eval(t, "close", "s")
	e.assertClear(t)

	e.eval(t, "getln", "s")
	e.assertRaised(t, SysFileError)
	if HandleOf(s).UsageCount() != 1 {
		t.Error("closing does not release the handle")
	}
}

func TestSocketDialFailure(t *testing.T) {
	e := newTestEnv(t)
	e.in.Drivers.Dial = func(network, address string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}
	if e.eval(t, "dial", e.strLit("localhost:1")) != nil {
		t.Error("dial should fail")
	}
	e.assertRaised(t, SysFileError)
}

// ---------------------------------------------------------------------------
// Databases
// ---------------------------------------------------------------------------

type fakeDriver struct {
	rows [][]any
	db   *fakeDB
}

func (d *fakeDriver) Open(driver, dsn string) (Database, error) {
	if driver != "fake" {
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
	d.db = &fakeDB{rows: d.rows}
	return d.db, nil
}

type fakeDB struct {
	rows   [][]any
	stmts  []*fakeStmt
	closed bool
}

func (db *fakeDB) Prepare(query string) (Statement, error) {
	if query == "" {
		return nil, errors.New("empty query")
	}
	s := &fakeStmt{db: db, bound: map[int]any{}, cursor: -1}
	db.stmts = append(db.stmts, s)
	return s, nil
}

func (db *fakeDB) Close() error {
	db.closed = true
	return nil
}

type fakeStmt struct {
	db       *fakeDB
	bound    map[int]any
	cursor   int
	executed bool
	closed   bool
}

func (s *fakeStmt) Bind(pos int, v any) error {
	if pos < 1 {
		return fmt.Errorf("bad position %d", pos)
	}
	s.bound[pos] = v
	return nil
}

func (s *fakeStmt) Execute() error {
	s.executed = true
	s.cursor = -1
	return nil
}

func (s *fakeStmt) Fetch() (bool, error) {
	if !s.executed {
		return false, errors.New("not executed")
	}
	s.cursor++
	return s.cursor < len(s.db.rows), nil
}

func (s *fakeStmt) Column(pos int) (any, error) {
	if s.cursor < 0 || s.cursor >= len(s.db.rows) {
		return nil, errors.New("no current row")
	}
	row := s.db.rows[s.cursor]
	if pos < 1 || pos > len(row) {
		return nil, fmt.Errorf("no column %d", pos)
	}
	return row[pos-1], nil
}

func (s *fakeStmt) Close() error {
	s.closed = true
	return nil
}

func TestDatabasePrimitives(t *testing.T) {
	e := newTestEnv(t)
	drv := &fakeDriver{rows: [][]any{{int64(1), "one"}, {[]byte("2"), []byte("two")}}}
	e.in.Drivers.Database = drv

	dbObj := e.bindHandle("db", e.eval(t, "openDatabase", e.strLit("fake"), e.strLit("mem")))
	stObj := e.bindHandle("st", e.eval(t, "prepare", "db", e.strLit("select n, name from t where n > ?")))
	e.assertClear(t)

	dbh := HandleOf(dbObj).(*DatabaseHandle)
	if dbh.UsageCount() != 2 {
		t.Errorf("db usage = %d, a statement keeps its database in use", dbh.UsageCount())
	}

	e.eval(t, "bind", "st", 1, 0)
	e.eval(t, "bind", "st", 2, e.strLit("x"))
	e.eval(t, "execute", "st")
	e.assertClear(t)
	stmt := drv.db.stmts[0]
	if stmt.bound[1] != int64(0) || stmt.bound[2] != "x" {
		t.Errorf("bound = %v", stmt.bound)
	}

	var ns []int64
	var names []string
	for e.p.IsTrue(e.eval(t, "fetch", "st")) {
		ns = append(ns, intOf(t, e.eval(t, "column", "st", 1, "integer")))
		names = append(names, e.str(t, "column", "st", 2, "string"))
	}
	e.assertClear(t)
	if len(ns) != 2 || ns[0] != 1 || ns[1] != 2 {
		t.Errorf("integer column = %v", ns)
	}
	if len(names) != 2 || names[0] != "one" || names[1] != "two" {
		t.Errorf("string column = %v", names)
	}

	e.eval(t, "column", "st", 9, "integer")
	e.assertRaised(t, SysDatabaseError)
	e.p.Fail.Leave()

	if err := e.in.Destroy(stObj); err != nil {
		t.Fatal(err)
	}
	if !stmt.closed || dbh.UsageCount() != 1 || drv.db.closed {
		t.Error("releasing the statement closes it and releases one database use")
	}
	if err := e.in.Destroy(dbObj); err != nil {
		t.Fatal(err)
	}
	if !drv.db.closed {
		t.Error("the last release should close the database")
	}
}

func TestDatabaseOpenFailures(t *testing.T) {
	tests := []struct {
		name   string
		driver DatabaseDriver
	}{
		{"no driver", nil},
		{"unknown driver", &fakeDriver{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.in.Drivers.Database = tc.driver
			if e.eval(t, "openDatabase", e.strLit("other"), e.strLit("mem")) != nil {
				t.Error("open should fail")
			}
			e.assertRaised(t, SysDatabaseError)
		})
	}
}

func TestColumnConversions(t *testing.T) {
	tests := []struct {
		in   any
		want Value
	}{
		{nil, IntValue(0)},
		{int64(5), IntValue(5)},
		{3.9, IntValue(3)},
		{true, IntValue(1)},
		{"12", IntValue(12)},
	}
	for _, tc := range tests {
		got, err := columnInt(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("columnInt(%v) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
	if _, err := columnInt("twelve"); err == nil {
		t.Error("non-numeric text should not convert")
	}
	if got, _ := columnString(42); got != StringValue("42") {
		t.Errorf("columnString(42) = %v", got)
	}
}
