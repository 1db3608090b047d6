package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/japaniel/jiten/pkg/rx"
)

// DriverName is the sqlite3 driver with the REGEXP function installed.
const DriverName = "sqlite3_jiten"

var (
	// ErrUnavailable wraps failures to open or query the dictionary.
	ErrUnavailable = errors.New("dictionary storage unavailable")
	// ErrNotFound is returned by single record lookups that match nothing.
	ErrNotFound = errors.New("not found")
)

//go:embed migrations.sql
var migrationsSQL string

func init() {
	sql.Register(DriverName, newDriver(nil))
}

// newDriver returns a sqlite3 driver whose connections get a regexp()
// function compiling through re, or through rx.Compile when re is nil.
// sqlite calls it for "x REGEXP pattern" as regexp(pattern, x).
func newDriver(re *rx.Cache) *sqlite3.SQLiteDriver {
	compile := rx.Compile
	if re != nil {
		compile = re.Compile
	}
	match := func(pattern, s string) (bool, error) {
		r, err := compile(pattern)
		if err != nil {
			return false, err
		}
		return r.MatchString(s), nil
	}
	return &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", match, true)
		},
	}
}

// connector opens connections to one dsn through its own driver, so each
// handle can carry its own regex cache.
type connector struct {
	dsn    string
	driver *sqlite3.SQLiteDriver
}

func (c *connector) Connect(context.Context) (driver.Conn, error) { return c.driver.Open(c.dsn) }

func (c *connector) Driver() driver.Driver { return c.driver }

// InitDB runs migrations on the given DB connection using the embedded SQL.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Open opens the dictionary at path read-only and checks that it can be
// reached. The REGEXP operator compiles through re; nil uses rx.Compile.
// Failures wrap ErrUnavailable.
func Open(ctx context.Context, path string, re *rx.Cache) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_foreign_keys=1", path)
	return open(ctx, dsn, re)
}

// Create opens the dictionary at path for writing, creating the file if
// needed, and runs migrations.
func Create(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=rwc&_foreign_keys=1", path)
	db, err := open(ctx, dsn, nil)
	if err != nil {
		return nil, err
	}
	// Writers share one connection so batches never see SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		db.Close()
		return nil, unavailable("migrate", err)
	}
	return db, nil
}

func open(ctx context.Context, dsn string, re *rx.Cache) (*sql.DB, error) {
	db := sql.OpenDB(&connector{dsn: dsn, driver: newDriver(re)})
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unavailable("open", err)
	}
	return db, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
