// Package models defines the server-side data models persisted in the
// metadata database.
package models

import "time"

// Image is the metadata record for one uploaded image. All fields are set
// at upload time and immutable afterwards; changing tags means deleting the
// image and uploading again.
type Image struct {
	// ID is the primary key, a random 128-bit identifier.
	ID string `json:"image_id"`
	// OwnerID identifies the uploading user, supplied by the caller.
	OwnerID string `json:"owner_id"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// Tags is the normalized (trimmed, lower-cased, deduplicated) tag set.
	// Every tag here has a matching row in the tag index.
	Tags []string `json:"tags"`

	ContentType string `json:"content_type"`
	// SizeBytes is the payload length; zero-length uploads are allowed.
	SizeBytes int64 `json:"size_bytes"`
	// Checksum is the hex-encoded SHA-256 digest of the payload.
	Checksum string `json:"checksum"`

	// StorageKey is the object-storage key of the payload, derived from ID.
	StorageKey string `json:"storage_key"`

	CreatedAt time.Time `json:"created_at"`
}
