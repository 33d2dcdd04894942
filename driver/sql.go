// Package driver connects the interpreter's database primitives to
// database/sql. SQLite is served by modernc.org/sqlite and DuckDB by
// go-duckdb.
package driver

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/seedcore/vm"
)

var log = commonlog.GetLogger("seedcore.driver")

// ErrUnknownDriver is returned by Open for a driver name it does not serve.
var ErrUnknownDriver = errors.New("driver: unknown database driver")

// aliases maps the names programs use to registered database/sql drivers.
var aliases = map[string]string{
	"sqlite":  "sqlite",
	"sqlite3": "sqlite",
	"duckdb":  "duckdb",
}

// SQL opens database/sql connections. The zero value is ready to use.
type SQL struct{}

// New returns the SQL driver.
func New() *SQL { return &SQL{} }

var _ vm.DatabaseDriver = (*SQL)(nil)

// Open connects to dsn through the named driver and checks the connection.
func (d *SQL) Open(name, dsn string) (vm.Database, error) {
	driverName, ok := aliases[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, name)
	}
	if driverName == "sqlite" {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("driver: open %s: %w", name, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("driver: open %s: %w", name, err)
	}
	log.Debugf("opened %s database %q", driverName, dsn)
	return &database{name: driverName, db: db}, nil
}

// sqliteDSN gives every in-memory database a unique shared-cache name, so
// all pooled connections of one handle see the same tables and two
// handles never do.
func sqliteDSN(dsn string) string {
	if dsn == "" || dsn == ":memory:" {
		return "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	}
	return dsn
}

// ---------------------------------------------------------------------------
// Database
// ---------------------------------------------------------------------------

type database struct {
	name string
	db   *sql.DB
}

func (d *database) Prepare(query string) (vm.Statement, error) {
	stmt, err := d.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("driver: prepare: %w", err)
	}
	return &statement{stmt: stmt}, nil
}

func (d *database) Close() error {
	log.Debugf("closing %s database", d.name)
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Statement
// ---------------------------------------------------------------------------

// statement keeps the bound arguments between executions and the cursor of
// the last execution.
type statement struct {
	stmt *sql.Stmt
	args []any
	rows *sql.Rows
	row  []any
}

func (s *statement) Bind(pos int, v any) error {
	if pos < 1 {
		return fmt.Errorf("driver: bind position %d", pos)
	}
	for len(s.args) < pos {
		s.args = append(s.args, nil)
	}
	s.args[pos-1] = v
	return nil
}

// Execute runs the statement with the bound arguments. A statement without
// result columns runs to completion; otherwise the rows are left for Fetch.
func (s *statement) Execute() error {
	if err := s.closeRows(); err != nil {
		return err
	}
	rows, err := s.stmt.Query(s.args...)
	if err != nil {
		return fmt.Errorf("driver: execute: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return fmt.Errorf("driver: execute: %w", err)
	}
	if len(cols) == 0 {
		for rows.Next() {
		}
		err := rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("driver: execute: %w", err)
		}
		return nil
	}
	s.rows = rows
	return nil
}

// Fetch advances to the next row. It reports false once the rows are
// exhausted or when nothing was executed.
func (s *statement) Fetch() (bool, error) {
	if s.rows == nil {
		return false, nil
	}
	if !s.rows.Next() {
		err := s.rows.Err()
		s.closeRows()
		if err != nil {
			return false, fmt.Errorf("driver: fetch: %w", err)
		}
		return false, nil
	}
	cols, err := s.rows.Columns()
	if err != nil {
		return false, fmt.Errorf("driver: fetch: %w", err)
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return false, fmt.Errorf("driver: fetch: %w", err)
	}
	s.row = values
	return true, nil
}

func (s *statement) Column(pos int) (any, error) {
	if s.row == nil {
		return nil, errors.New("driver: no current row")
	}
	if pos < 1 || pos > len(s.row) {
		return nil, fmt.Errorf("driver: no column %d", pos)
	}
	return s.row[pos-1], nil
}

func (s *statement) Close() error {
	rowsErr := s.closeRows()
	if err := s.stmt.Close(); err != nil {
		return err
	}
	return rowsErr
}

func (s *statement) closeRows() error {
	s.row = nil
	if s.rows == nil {
		return nil
	}
	err := s.rows.Close()
	s.rows = nil
	return err
}
