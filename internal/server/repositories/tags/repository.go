// Package tags implements the tag index: rows keyed (tag, image_id) kept in
// lockstep with image records by the catalog service, supporting paginated
// "image ids for a tag" range queries.
package tags

import (
	"context"

	"github.com/acme/imagestore/internal/server/models"
)

// Repository is the tag index contract consumed by the catalog service.
// QueryByTag returns image ids in ascending image_id order with an opaque
// cursor for the next page ("" when the page was not filled). CreateBatch
// and DeleteByImage are the bulk maintenance paths used on upload/delete.
type Repository interface {
	CreateBatch(ctx context.Context, entries []*models.TagEntry) error
	DeleteByImage(ctx context.Context, imageID string) error
	QueryByTag(ctx context.Context, tag string, limit int, cursor string) ([]string, string, error)
}
