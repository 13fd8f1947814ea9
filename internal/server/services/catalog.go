// Package services contains the catalog service, the orchestrator that
// keeps the blob store, the image record store and the tag index consistent
// and composes paginated queries from them.
package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/acme/imagestore/internal/common"
	sc "github.com/acme/imagestore/internal/server/config"
	"github.com/acme/imagestore/internal/server/models"
	"github.com/acme/imagestore/internal/server/repositories/repomanager"
)

// ObjectStorage is the blob store contract consumed by the catalog service.
type ObjectStorage interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// CatalogService exposes the upload/list/get/delete operations over the two
// metadata repositories and the blob store. It holds no per-request state;
// all handles are long-lived and injected at construction.
type CatalogService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	blobs  ObjectStorage
	config *sc.Config
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *sql.DB, repos repomanager.RepositoryManager, blobs ObjectStorage, config *sc.Config) *CatalogService {
	return &CatalogService{
		db:     db,
		repos:  repos,
		blobs:  blobs,
		config: config,
	}
}

// UploadParams are the caller-supplied inputs for one upload.
type UploadParams struct {
	OwnerID     string
	Title       string
	Description string
	Tags        []string
	ContentType string
	Body        []byte
}

// ListParams select which images to return. At least one of OwnerID and Tag
// must be set. NameContains is a non-indexed, case-sensitive substring
// filter on the title, applied in memory after the index queries.
type ListParams struct {
	OwnerID      string
	Tag          string
	NameContains string
	Limit        int
	Cursor       string
}

// ListResult is one page of matching records. NextCursor is opaque and
// store-specific; it is "" when the listing is exhausted.
type ListResult struct {
	Items      []*models.Image
	NextCursor string
}

// StorageKeyForImage derives the blob store key for an image id.
func StorageKeyForImage(imageID string) string {
	return fmt.Sprintf("images/%s", imageID)
}

// NormalizeTags trims, lower-cases, deduplicates and sorts tags, dropping
// entries that are empty after trimming.
func NormalizeTags(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// guard converts panics escaping a backing-store call into a storage error,
// so internal failures never leak past the service boundary.
func guard(err *error) {
	if p := recover(); p != nil {
		*err = fmt.Errorf("%w: backing store panic: %v", common.ErrStorageUnavailable, p)
	}
}

// storageErr passes through errors already classified by the taxonomy and
// wraps everything else as storage unavailability, tagged with the step
// that failed.
func storageErr(step string, err error) error {
	if errors.Is(err, common.ErrInvalidInput) ||
		errors.Is(err, common.ErrNotFound) ||
		errors.Is(err, common.ErrStorageUnavailable) ||
		errors.Is(err, common.ErrPartiallyPersisted) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", common.ErrStorageUnavailable, step, err)
}

// Upload validates the input, stores the payload in the blob store and then
// writes the image record and one tag index row per normalized tag.
//
// Ordering: the blob is written first; a blob failure aborts with nothing
// persisted. A record or index failure after the blob write is reported as
// ErrPartiallyPersisted naming the failing step — the triad is not atomic
// and the error is the signal for reconciliation, never hidden.
func (s *CatalogService) Upload(ctx context.Context, p UploadParams) (_ *models.Image, err error) {
	defer guard(&err)

	switch {
	case strings.TrimSpace(p.OwnerID) == "":
		return nil, fmt.Errorf("%w: missing owner_id", common.ErrInvalidInput)
	case strings.TrimSpace(p.Title) == "":
		return nil, fmt.Errorf("%w: missing title", common.ErrInvalidInput)
	case strings.TrimSpace(p.ContentType) == "":
		return nil, fmt.Errorf("%w: missing content_type", common.ErrInvalidInput)
	case len(p.Tags) == 0:
		return nil, fmt.Errorf("%w: 'tags' must be a non-empty list", common.ErrInvalidInput)
	}

	tags := NormalizeTags(p.Tags)
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: 'tags' must contain at least one non-empty tag", common.ErrInvalidInput)
	}

	sum := sha256.Sum256(p.Body)

	img := &models.Image{
		ID:          uuid.New().String(),
		OwnerID:     p.OwnerID,
		Title:       p.Title,
		Description: p.Description,
		Tags:        tags,
		ContentType: p.ContentType,
		SizeBytes:   int64(len(p.Body)),
		Checksum:    hex.EncodeToString(sum[:]),
		CreatedAt:   time.Now().UTC(),
	}
	img.StorageKey = StorageKeyForImage(img.ID)

	if err := s.blobs.Put(ctx, img.StorageKey, p.Body, img.ContentType); err != nil {
		return nil, fmt.Errorf("%w: blob write failed: %v", common.ErrStorageUnavailable, err)
	}

	if err := s.repos.Images(s.db).Create(ctx, img); err != nil {
		return nil, fmt.Errorf("%w: image record write failed after blob write: %v", common.ErrPartiallyPersisted, err)
	}

	entries := make([]*models.TagEntry, 0, len(tags))
	for _, t := range tags {
		entries = append(entries, &models.TagEntry{
			Tag:       t,
			ImageID:   img.ID,
			OwnerID:   img.OwnerID,
			CreatedAt: img.CreatedAt,
		})
	}
	if err := s.repos.Tags(s.db).CreateBatch(ctx, entries); err != nil {
		return nil, fmt.Errorf("%w: tag index write failed after record write: %v", common.ErrPartiallyPersisted, err)
	}

	return img, nil
}

// List composes a page of records from the secondary indexes.
//
// With only a tag predicate the tag index is paginated and each id resolved
// against the record store; ids whose record has vanished mid-listing are
// skipped. With only an owner predicate the owner index is paginated
// directly. With both, the tag side is paginated by the request cursor and
// intersected in memory with one owner-index page fetched without a cursor;
// the returned cursor is the tag side's. A truncated page on either side can
// under-return matches until the caller pages further — this mirrors the
// index layout and is deliberate, not a bug to fix here.
func (s *CatalogService) List(ctx context.Context, p ListParams) (_ *ListResult, err error) {
	defer guard(&err)

	if p.OwnerID == "" && p.Tag == "" {
		return nil, fmt.Errorf("%w: provide at least one filter: owner_id or tag", common.ErrInvalidInput)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = s.config.DefaultPageLimit
	}
	if limit > s.config.MaxPageLimit {
		limit = s.config.MaxPageLimit
	}

	var (
		items      []*models.Image
		nextCursor string
	)

	switch {
	case p.Tag != "" && p.OwnerID == "":
		tag := strings.ToLower(strings.TrimSpace(p.Tag))
		ids, next, qerr := s.repos.Tags(s.db).QueryByTag(ctx, tag, limit, p.Cursor)
		if qerr != nil {
			return nil, storageErr("tag index query", qerr)
		}
		nextCursor = next
		imageRepo := s.repos.Images(s.db)
		for _, id := range ids {
			img, gerr := imageRepo.Get(ctx, id)
			if gerr != nil {
				if errors.Is(gerr, common.ErrNotFound) {
					// index row outlived its record; skip
					continue
				}
				return nil, storageErr("record fetch", gerr)
			}
			items = append(items, img)
		}

	case p.OwnerID != "" && p.Tag == "":
		records, next, qerr := s.repos.Images(s.db).QueryByOwner(ctx, p.OwnerID, limit, p.Cursor)
		if qerr != nil {
			return nil, storageErr("owner index query", qerr)
		}
		items, nextCursor = records, next

	default:
		tag := strings.ToLower(strings.TrimSpace(p.Tag))
		ids, next, qerr := s.repos.Tags(s.db).QueryByTag(ctx, tag, limit, p.Cursor)
		if qerr != nil {
			return nil, storageErr("tag index query", qerr)
		}
		nextCursor = next

		tagged := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			tagged[id] = struct{}{}
		}

		records, _, qerr := s.repos.Images(s.db).QueryByOwner(ctx, p.OwnerID, limit, "")
		if qerr != nil {
			return nil, storageErr("owner index query", qerr)
		}
		for _, img := range records {
			if _, ok := tagged[img.ID]; ok {
				items = append(items, img)
			}
		}
	}

	if p.NameContains != "" {
		filtered := items[:0]
		for _, img := range items {
			if strings.Contains(img.Title, p.NameContains) {
				filtered = append(filtered, img)
			}
		}
		items = filtered
	}

	return &ListResult{Items: items, NextCursor: nextCursor}, nil
}

// Get returns the record for imageID. When wantURL is set it also mints a
// presigned download URL for the blob, without checking that the blob still
// exists.
func (s *CatalogService) Get(ctx context.Context, imageID string, wantURL bool) (_ *models.Image, _ string, err error) {
	defer guard(&err)

	img, gerr := s.repos.Images(s.db).Get(ctx, imageID)
	if gerr != nil {
		return nil, "", storageErr("record fetch", gerr)
	}

	var url string
	if wantURL {
		url, gerr = s.blobs.PresignGet(ctx, img.StorageKey, s.config.PresignTTL)
		if gerr != nil {
			return nil, "", fmt.Errorf("%w: presign failed: %v", common.ErrStorageUnavailable, gerr)
		}
	}
	return img, url, nil
}

// Delete removes the blob, the record and the tag index rows for imageID,
// in that order. The steps are independent: a failure stops the sequence
// and is reported with the failing step, but earlier deletions stand — there
// is no rollback across the stores.
func (s *CatalogService) Delete(ctx context.Context, imageID string) (err error) {
	defer guard(&err)

	img, gerr := s.repos.Images(s.db).Get(ctx, imageID)
	if gerr != nil {
		return storageErr("record fetch", gerr)
	}

	if derr := s.blobs.Delete(ctx, img.StorageKey); derr != nil {
		return fmt.Errorf("%w: blob delete failed: %v", common.ErrStorageUnavailable, derr)
	}

	if derr := s.repos.Images(s.db).Delete(ctx, imageID); derr != nil {
		return storageErr("record delete", derr)
	}

	if derr := s.repos.Tags(s.db).DeleteByImage(ctx, imageID); derr != nil {
		return storageErr("tag index delete", derr)
	}

	return nil
}
