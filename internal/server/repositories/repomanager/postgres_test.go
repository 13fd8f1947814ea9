package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepositoryManager_VendsRepositories(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewPostgresRepositoryManager()
	assert.NotNil(t, m.Images(db))
	assert.NotNil(t, m.Tags(db))
}

func TestRunMigrations_UsesEmbeddedFS(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var called bool
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		called = true
		assert.Equal(t, ".", dir)
		return nil
	}

	m := NewPostgresRepositoryManager()
	require.NoError(t, m.RunMigrations(context.Background(), nil))
	assert.True(t, called)
}

func TestRunMigrations_PropagatesError(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("migration failed")
	}

	m := NewPostgresRepositoryManager()
	require.Error(t, m.RunMigrations(context.Background(), nil))
}
