// Package images implements the image record store: point reads and writes
// keyed by image_id, plus owner-scoped paginated listing over the
// (owner_id, created_at) secondary index.
package images

import (
	"context"

	"github.com/acme/imagestore/internal/server/models"
)

// Repository is the image record store contract consumed by the catalog
// service. QueryByOwner returns records in ascending (created_at, image_id)
// order together with an opaque cursor for the next page; the cursor is ""
// when the page was not filled.
type Repository interface {
	Create(ctx context.Context, img *models.Image) error
	Get(ctx context.Context, imageID string) (*models.Image, error)
	Delete(ctx context.Context, imageID string) error
	QueryByOwner(ctx context.Context, ownerID string, limit int, cursor string) ([]*models.Image, string, error)
}
