package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, driver, path string) (*Store, error) {
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	var (
		database *sql.DB
		err      error
	)
	switch driver {
	case DriverDuckDB, "":
		database, err = sql.Open(DriverDuckDB, path)
		if err != nil {
			return nil, fmt.Errorf("failed to open DuckDB: %w", err)
		}
	case DriverSQLite:
		database, err = sql.Open(DriverSQLite, sqliteDSN(path))
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite: %w", err)
		}
		// SQLite allows one writer; queue on the pool instead of on SQLITE_BUSY.
		database.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", driver)
	}

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := New(database)
	if err := s.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return s, nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range splitStatements(Schema) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &PersistenceError{Op: "migrate", Err: err}
		}
	}
	return nil
}

// splitStatements breaks the schema into single statements; not every
// driver accepts several in one Exec.
func splitStatements(schema string) []string {
	var stmts []string
	for _, part := range strings.Split(schema, ";") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
