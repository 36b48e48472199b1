package database

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps a connection together with its driver name, which decides
// the placeholder style and column types
type DB struct {
	*sql.DB
	Driver string
}

// Open connects to the database and checks the connection
func Open(driver, dsn string) (*DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("database url is required for %s", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// sqlite allows a single writer
	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
	}

	log.Info().Str("driver", driver).Msg("Successfully connected to database")
	return &DB{DB: conn, Driver: driver}, nil
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables() error {
	timestamp := "TIMESTAMP"
	if db.Driver == DriverSQLite {
		timestamp = "DATETIME"
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS batch_runs (
			id VARCHAR(36) PRIMARY KEY,
			input_file TEXT NOT NULL,
			output_file TEXT NOT NULL DEFAULT '',
			report_file TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL,
			total_items INTEGER NOT NULL DEFAULT 0,
			updates_count INTEGER NOT NULL DEFAULT 0,
			unchanged_count INTEGER NOT NULL DEFAULT 0,
			errors_count INTEGER NOT NULL DEFAULT 0,
			started_at ` + timestamp + ` NOT NULL,
			completed_at ` + timestamp + `
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batch_runs_started ON batch_runs (started_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Rebind converts $n placeholders to ? for sqlite
func (db *DB) Rebind(query string) string {
	if db.Driver != DriverSQLite {
		return query
	}
	out := make([]byte, 0, len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '$' {
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j > i+1 {
				out = append(out, '?')
				i = j - 1
				continue
			}
		}
		out = append(out, query[i])
	}
	return string(out)
}
