package images

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/acme/imagestore/internal/common"
	"github.com/acme/imagestore/internal/dbx"
	"github.com/acme/imagestore/internal/server/models"
)

// PostgresRepository implements the image record store over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new image record. The tag set is stored as JSONB on the
// record itself; index rows live in the image_tags table.
func (r *PostgresRepository) Create(ctx context.Context, img *models.Image) error {
	tags, err := json.Marshal(img.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	query := `
		INSERT INTO images (image_id, owner_id, title, description, tags, content_type, size_bytes, checksum, storage_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	res, err := r.db.ExecContext(ctx, query,
		img.ID, img.OwnerID, img.Title, img.Description, tags,
		img.ContentType, img.SizeBytes, img.Checksum, img.StorageKey, img.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

// Get returns the record for imageID or common.ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, imageID string) (*models.Image, error) {
	query := `
		SELECT image_id, owner_id, title, description, tags, content_type, size_bytes, checksum, storage_key, created_at
		FROM images WHERE image_id = $1
	`
	img, err := scanImage(r.db.QueryRowContext(ctx, query, imageID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select image: %w", err)
	}
	return img, nil
}

// Delete removes the record for imageID. Returns common.ErrNotFound when no
// row was deleted.
func (r *PostgresRepository) Delete(ctx context.Context, imageID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE image_id = $1`, imageID)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// QueryByOwner pages through one owner's records in ascending
// (created_at, image_id) order. The returned cursor is non-empty when the
// page was filled to limit; it resumes strictly after the last row.
func (r *PostgresRepository) QueryByOwner(ctx context.Context, ownerID string, limit int, cursor string) ([]*models.Image, string, error) {
	query := `
		SELECT image_id, owner_id, title, description, tags, content_type, size_bytes, checksum, storage_key, created_at
		FROM images WHERE owner_id = $1
		ORDER BY created_at, image_id
		LIMIT $2
	`
	args := []any{ownerID, limit}

	if cursor != "" {
		c, err := decodeOwnerCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		query = `
			SELECT image_id, owner_id, title, description, tags, content_type, size_bytes, checksum, storage_key, created_at
			FROM images WHERE owner_id = $1 AND (created_at, image_id) > ($2, $3)
			ORDER BY created_at, image_id
			LIMIT $4
		`
		args = []any{ownerID, c.CreatedAt, c.ImageID, limit}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to select images: %w", err)
	}
	defer rows.Close()

	var result []*models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, "", err
		}
		result = append(result, img)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(result) == limit {
		last := result[len(result)-1]
		next = encodeOwnerCursor(ownerCursor{CreatedAt: last.CreatedAt, ImageID: last.ID})
	}
	return result, next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*models.Image, error) {
	var img models.Image
	var tags []byte
	if err := row.Scan(&img.ID, &img.OwnerID, &img.Title, &img.Description, &tags,
		&img.ContentType, &img.SizeBytes, &img.Checksum, &img.StorageKey, &img.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &img.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &img, nil
}
