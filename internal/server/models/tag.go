package models

import "time"

// TagEntry is one row of the tag index, keyed (Tag, ImageID). OwnerID and
// CreatedAt are denormalized from the image record so tag-only listings do
// not need a join.
type TagEntry struct {
	Tag     string
	ImageID string
	OwnerID string

	CreatedAt time.Time
}
