package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// timeLayout is fixed-width UTC so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.UTC()
}

// DB wraps the pool every record store operation runs against.
type DB struct {
	Pool *sql.DB
}

// pragmas applied by the modernc driver to each new connection
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// Open connects to the SQLite file at path. Writes go through a single
// connection, so the fingerprint UNIQUE index settles insert races.
func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(1)
	pool.SetConnMaxLifetime(5 * time.Minute)

	d := &DB{Pool: pool}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Ping(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return d, nil
}

// Ping reports whether the database still answers.
func (d *DB) Ping(ctx context.Context) error {
	var one int
	return d.Pool.QueryRowContext(ctx, `SELECT 1;`).Scan(&one)
}

// OpenAndMigrate opens path and brings its schema up to date.
func OpenAndMigrate(path string) (*DB, error) {
	d, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(d.Pool); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}
