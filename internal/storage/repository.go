// Package storage implements the persistence gateway over SQLite.
//
// All queries are hand-written SQL against a single *sql.DB. Dates are stored
// as ISO "2006-01-02" text, amounts as integer cents. Foreign keys are
// enforced: category references restrict deletion, amount history cascades
// with its owning definition.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned for point lookups that match no row.
	ErrNotFound = errors.New("not found")

	// ErrCategoryInUse is returned when deleting a category still referenced
	// by a transaction or recurring definition.
	ErrCategoryInUse = errors.New("category is referenced by existing records")
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// isForeignKeyViolation recognizes a RESTRICT failure from the driver.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
