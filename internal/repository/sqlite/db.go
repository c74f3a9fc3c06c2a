// Package sqlite is the embedded store used for local development and
// tests. It mirrors the postgres schema with TEXT columns.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	repo "github.com/cruiselens/payments-backend/internal/repository"
	_ "modernc.org/sqlite"
)

// Open opens (or creates) a SQLite database at dsn and ensures the schema
// exists. Pass ":memory:" for a private in-memory database.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// every connection to :memory: is its own database
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	} else {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set wal mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return db, nil
}

func NewRepositories(db *sql.DB) repo.Repositories {
	return repo.Repositories{
		Applications: &applicationsRepo{db},
		AuditLogs:    &auditLogsRepo{db},
	}
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS applications (
			txnid TEXT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','success','failure')),
			amount TEXT NOT NULL DEFAULT '',
			full_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			dob TEXT NOT NULL DEFAULT '',
			heard_from TEXT NOT NULL DEFAULT '',
			preferred_contact TEXT NOT NULL DEFAULT '[]',
			course TEXT NOT NULL DEFAULT '',
			course_data TEXT,
			payment_mode TEXT NOT NULL DEFAULT '',
			gateway_reference TEXT,
			raw_callback TEXT,
			error_message TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_created_at ON applications(created_at)`,

		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			action TEXT NOT NULL,
			details TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs(entity_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}
