package vm

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
)

// ---------------------------------------------------------------------------
// External resource handles
// ---------------------------------------------------------------------------

// Handle is an external resource shared between objects through a usage
// count. The resource is closed when the last user releases it.
type Handle interface {
	Acquire()
	Release() error
	UsageCount() int
}

// counted implements the usage count shared by all handles.
type counted struct {
	mu    sync.Mutex
	usage int
}

func (c *counted) Acquire() {
	c.mu.Lock()
	c.usage++
	c.mu.Unlock()
}

// drop decrements the count and reports whether it reached zero.
func (c *counted) drop() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.usage <= 0 {
		return false, fmt.Errorf("release of unused handle")
	}
	c.usage--
	return c.usage == 0, nil
}

func (c *counted) UsageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// HandleOf returns the handle carried by obj, or nil.
func HandleOf(obj *Object) Handle {
	if obj == nil {
		return nil
	}
	if h, ok := obj.Value().(HandleValue); ok {
		return h.H
	}
	return nil
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// Standard streams a FileHandle may stand for. They are resolved through
// the interpreter so a program's output follows Interpreter.Out.
const (
	StdNone = iota
	StdIn
	StdOut
	StdErr
)

// FileHandle is an open file or one of the interpreter's standard streams.
type FileHandle struct {
	counted
	Name string
	Std  int

	file   *os.File
	reader *bufio.Reader
	writer *bufio.Writer
	closed bool
}

// NewStdFile returns a handle standing for a standard stream.
func NewStdFile(std int, name string) *FileHandle {
	h := &FileHandle{Name: name, Std: std}
	h.usage = 1
	return h
}

// OpenFile opens path with a mode of "r", "w" or "a".
func OpenFile(path, mode string) (*FileHandle, error) {
	var flag int
	switch mode {
	case "r":
		flag = os.O_RDONLY
	case "w":
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case "a":
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		return nil, fmt.Errorf("open %s: unknown mode %q", path, mode)
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	h := &FileHandle{Name: path, file: f}
	if mode == "r" {
		h.reader = bufio.NewReader(f)
	} else {
		h.writer = bufio.NewWriter(f)
	}
	h.usage = 1
	return h, nil
}

// Writer returns the stream written by h.
func (h *FileHandle) Writer(in *Interpreter) (io.Writer, error) {
	switch h.Std {
	case StdOut:
		return in.Out, nil
	case StdErr:
		return in.Err, nil
	}
	if h.closed || h.writer == nil {
		return nil, fmt.Errorf("%s: not open for writing", h.Name)
	}
	return h.writer, nil
}

// Reader returns the buffered stream read by h.
func (h *FileHandle) Reader(in *Interpreter) (*bufio.Reader, error) {
	if h.Std == StdIn {
		if in.stdin == nil {
			in.stdin = bufio.NewReader(in.Input)
		}
		return in.stdin, nil
	}
	if h.closed || h.reader == nil {
		return nil, fmt.Errorf("%s: not open for reading", h.Name)
	}
	return h.reader, nil
}

// Flush writes buffered output.
func (h *FileHandle) Flush() error {
	if h.writer != nil && !h.closed {
		return h.writer.Flush()
	}
	return nil
}

// Close flushes and closes the file. Standard streams are never closed.
func (h *FileHandle) Close() error {
	if h.Std != StdNone || h.closed {
		return nil
	}
	h.closed = true
	err := h.Flush()
	if cerr := h.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Release drops one use and closes the file with the last one.
func (h *FileHandle) Release() error {
	last, err := h.drop()
	if err != nil {
		return fmt.Errorf("file %s: %w", h.Name, err)
	}
	if last {
		return h.Close()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Sockets
// ---------------------------------------------------------------------------

// SocketHandle is a connected stream socket.
type SocketHandle struct {
	counted
	Addr string

	conn   net.Conn
	reader *bufio.Reader
	closed bool
}

// NewSocketHandle wraps an established connection.
func NewSocketHandle(addr string, conn net.Conn) *SocketHandle {
	h := &SocketHandle{Addr: addr, conn: conn, reader: bufio.NewReader(conn)}
	h.usage = 1
	return h
}

// Write sends s.
func (h *SocketHandle) Write(s string) error {
	if h.closed {
		return fmt.Errorf("socket %s: closed", h.Addr)
	}
	_, err := io.WriteString(h.conn, s)
	return err
}

// ReadLine receives one line without its terminator.
func (h *SocketHandle) ReadLine() (string, error) {
	if h.closed {
		return "", fmt.Errorf("socket %s: closed", h.Addr)
	}
	return readLine(h.reader)
}

// Close closes the connection.
func (h *SocketHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.conn.Close()
}

// Release drops one use and closes the connection with the last one.
func (h *SocketHandle) Release() error {
	last, err := h.drop()
	if err != nil {
		return fmt.Errorf("socket %s: %w", h.Addr, err)
	}
	if last {
		return h.Close()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Databases
// ---------------------------------------------------------------------------

// DatabaseDriver opens database connections. The driver package provides
// the SQL implementation.
type DatabaseDriver interface {
	Open(driver, dsn string) (Database, error)
}

// Database is an open database connection.
type Database interface {
	Prepare(query string) (Statement, error)
	Close() error
}

// Statement is a prepared statement with positional parameters starting
// at 1 and columns starting at 1.
type Statement interface {
	Bind(pos int, v any) error
	Execute() error
	Fetch() (bool, error)
	Column(pos int) (any, error)
	Close() error
}

// DatabaseHandle shares a Database between objects.
type DatabaseHandle struct {
	counted
	Driver string
	DB     Database

	closed bool
}

// Close closes the connection. Closing twice is harmless.
func (h *DatabaseHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.DB.Close()
}

// NewDatabaseHandle wraps an open database.
func NewDatabaseHandle(driver string, db Database) *DatabaseHandle {
	h := &DatabaseHandle{Driver: driver, DB: db}
	h.usage = 1
	return h
}

// Release drops one use and closes the database with the last one.
func (h *DatabaseHandle) Release() error {
	last, err := h.drop()
	if err != nil {
		return fmt.Errorf("database %s: %w", h.Driver, err)
	}
	if last {
		return h.Close()
	}
	return nil
}

// StatementHandle shares a prepared statement. It keeps its database in
// use until the statement itself is released.
type StatementHandle struct {
	counted
	Query string
	Stmt  Statement
	DB    *DatabaseHandle
}

// NewStatementHandle wraps a prepared statement of db and acquires db.
func NewStatementHandle(db *DatabaseHandle, query string, stmt Statement) *StatementHandle {
	db.Acquire()
	h := &StatementHandle{Query: query, Stmt: stmt, DB: db}
	h.usage = 1
	return h
}

// Release drops one use. The last use closes the statement and releases
// the database.
func (h *StatementHandle) Release() error {
	last, err := h.drop()
	if err != nil {
		return fmt.Errorf("statement %q: %w", h.Query, err)
	}
	if !last {
		return nil
	}
	err = h.Stmt.Close()
	if rerr := h.DB.Release(); err == nil {
		err = rerr
	}
	return err
}

// ---------------------------------------------------------------------------
// Drivers
// ---------------------------------------------------------------------------

// Drivers are the external services primitives reach through.
type Drivers struct {
	Database DatabaseDriver
	Dial     func(network, address string) (net.Conn, error)
}

// DefaultDrivers returns drivers with network dialing and no database.
func DefaultDrivers() Drivers {
	return Drivers{Dial: net.Dial}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
		if n > 0 && line[n-1] == '\r' {
			n--
		}
	}
	return line[:n], nil
}
