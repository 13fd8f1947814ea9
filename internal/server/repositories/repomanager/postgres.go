// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/acme/imagestore/internal/dbx"
	"github.com/acme/imagestore/internal/server/migrations"
	"github.com/acme/imagestore/internal/server/repositories/images"
	"github.com/acme/imagestore/internal/server/repositories/tags"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

// Images returns an images.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Images(db dbx.DBTX) images.Repository {
	return images.NewPostgresRepository(db)
}

// Tags returns a tags.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Tags(db dbx.DBTX) tags.Repository {
	return tags.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetDialect("pgx")
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}
