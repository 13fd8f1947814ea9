package images

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/acme/imagestore/internal/common"
)

// ownerCursor is the keyset position of the last record returned by an
// owner-scoped page. It is handed to callers base64-encoded; the catalog
// layer treats it as opaque and passes it back verbatim.
type ownerCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ImageID   string    `json:"image_id"`
}

func encodeOwnerCursor(c ownerCursor) string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeOwnerCursor(s string) (ownerCursor, error) {
	var c ownerCursor
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("%w: malformed cursor: %v", common.ErrInvalidInput, err)
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("%w: malformed cursor: %v", common.ErrInvalidInput, err)
	}
	if c.ImageID == "" {
		return c, fmt.Errorf("%w: malformed cursor: empty image_id", common.ErrInvalidInput)
	}
	return c, nil
}
