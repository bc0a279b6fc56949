// Package migrations embeds SQL migration files and provides a function to apply them.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// FS contains the embedded SQL migration files, one directory per dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Dialects understood by Run.
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// Dir returns the migration directory for a goose dialect.
func Dir(dialect string) (string, error) {
	switch dialect {
	case DialectSQLite:
		return "sqlite", nil
	case DialectPostgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// Run applies all pending migrations to the given database.
func Run(db *sql.DB, dialect string) error {
	dir, err := Dir(dialect)
	if err != nil {
		return err
	}

	goose.SetBaseFS(FS)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
