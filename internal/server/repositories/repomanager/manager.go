package repomanager

import (
	"context"
	"database/sql"

	"github.com/acme/imagestore/internal/dbx"
	"github.com/acme/imagestore/internal/server/repositories/images"
	"github.com/acme/imagestore/internal/server/repositories/tags"
)

// RepositoryManager vends repository implementations bound to a DBTX and
// exposes a schema migration hook.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Images(db dbx.DBTX) images.Repository
	Tags(db dbx.DBTX) tags.Repository
}
