package tags

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/acme/imagestore/internal/common"
	"github.com/acme/imagestore/internal/dbx"
	"github.com/acme/imagestore/internal/server/models"
)

// PostgresRepository implements the tag index over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateBatch inserts all entries in a single multi-row INSERT. Entries are
// mutually independent; a no-op for an empty slice.
func (r *PostgresRepository) CreateBatch(ctx context.Context, entries []*models.TagEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO image_tags (tag, image_id, owner_id, created_at) VALUES `)
	args := make([]any, 0, len(entries)*4)
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", i*4+1, i*4+2, i*4+3, i*4+4)
		args = append(args, e.Tag, e.ImageID, e.OwnerID, e.CreatedAt)
	}

	res, err := r.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != int64(len(entries)) {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

// DeleteByImage removes every index row for imageID in one statement.
// Deleting rows that are already gone is not an error; the operation is
// idempotent.
func (r *PostgresRepository) DeleteByImage(ctx context.Context, imageID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM image_tags WHERE image_id = $1`, imageID); err != nil {
		return fmt.Errorf("failed to delete tag entries: %w", err)
	}
	return nil
}

// QueryByTag pages through the image ids carrying tag, in ascending
// image_id order (the index's native key order). The cursor is the last
// image id of the previous page, base64-encoded; opaque to callers.
func (r *PostgresRepository) QueryByTag(ctx context.Context, tag string, limit int, cursor string) ([]string, string, error) {
	query := `SELECT image_id FROM image_tags WHERE tag = $1 ORDER BY image_id LIMIT $2`
	args := []any{tag, limit}

	if cursor != "" {
		after, err := decodeTagCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		query = `SELECT image_id FROM image_tags WHERE tag = $1 AND image_id > $2 ORDER BY image_id LIMIT $3`
		args = []any{tag, after, limit}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to select tag entries: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(ids) == limit {
		next = encodeTagCursor(ids[len(ids)-1])
	}
	return ids, next, nil
}

func encodeTagCursor(lastImageID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(lastImageID))
}

func decodeTagCursor(s string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("%w: malformed cursor: %v", common.ErrInvalidInput, err)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("%w: malformed cursor: empty", common.ErrInvalidInput)
	}
	return string(b), nil
}
