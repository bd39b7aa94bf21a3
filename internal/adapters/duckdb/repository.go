package duckdb

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/manthysbr/labforge/internal/core/ports"
)

// Repository is the DuckDB-backed implementation of ports.Repository.
// Nested structures (profile, experiments) are stored as JSON text columns;
// the columns that queries filter or sort on are first-class.
type Repository struct {
	db *sql.DB
}

func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	r := &Repository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			profile TEXT NOT NULL,
			api_key_encrypted TEXT NOT NULL DEFAULT '',
			reports_generated INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS lab_jobs (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			instructor_name TEXT NOT NULL,
			subject TEXT NOT NULL,
			subject_code TEXT NOT NULL,
			practical_title TEXT NOT NULL,
			experiments TEXT NOT NULL,
			status TEXT NOT NULL,
			progress_completed INTEGER NOT NULL,
			progress_total INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		);`,
	}
	for _, q := range stmts {
		if _, err := r.db.Exec(q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Ensure Repository implements the port
var _ ports.Repository = (*Repository)(nil)
