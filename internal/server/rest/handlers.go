package rest

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/acme/imagestore/internal/common"
	"github.com/acme/imagestore/internal/server/models"
	"github.com/acme/imagestore/internal/server/services"
)

type uploadRequest struct {
	OwnerID     string   `json:"owner_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	ContentType string   `json:"content_type"`
	ImageBase64 string   `json:"image_base64"`
}

// writeError maps the error taxonomy onto HTTP status codes. Anything the
// service did not classify is treated as internal.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrStorageUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, common.ErrPartiallyPersisted):
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "online"})
}

func (s *Server) uploadImage(c *gin.Context) {
	ctx := c.Request.Context()

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, common.ErrInvalidInput)
		return
	}

	body, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		writeError(c, fmt.Errorf("%w: invalid base64 payload", common.ErrInvalidInput))
		return
	}

	img, err := s.catalog.Upload(ctx, services.UploadParams{
		OwnerID:     req.OwnerID,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		ContentType: req.ContentType,
		Body:        body,
	})
	if err != nil {
		s.logger.Error(ctx, "upload failed", "error", err.Error())
		writeError(c, err)
		return
	}

	s.logger.Info(ctx, "image uploaded", "image_id", img.ID, "owner_id", img.OwnerID, "size_bytes", img.SizeBytes)
	c.JSON(http.StatusCreated, img)
}

func (s *Server) listImages(c *gin.Context) {
	ctx := c.Request.Context()

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(c, fmt.Errorf("%w: limit must be an integer", common.ErrInvalidInput))
			return
		}
		limit = n
	}

	result, err := s.catalog.List(ctx, services.ListParams{
		OwnerID:      c.Query("owner_id"),
		Tag:          c.Query("tag"),
		NameContains: c.Query("name"),
		Limit:        limit,
		Cursor:       c.Query("next_token"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	items := result.Items
	if items == nil {
		items = []*models.Image{}
	}

	resp := gin.H{"items": items}
	if result.NextCursor != "" {
		resp["next_token"] = result.NextCursor
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getImage(c *gin.Context) {
	img, _, err := s.catalog.Get(c.Request.Context(), c.Param("image_id"), false)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

func (s *Server) downloadImage(c *gin.Context) {
	img, url, err := s.catalog.Get(c.Request.Context(), c.Param("image_id"), true)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_id": img.ID, "url": url})
}

func (s *Server) deleteImage(c *gin.Context) {
	ctx := c.Request.Context()
	imageID := c.Param("image_id")

	if err := s.catalog.Delete(ctx, imageID); err != nil {
		s.logger.Error(ctx, "delete failed", "image_id", imageID, "error", err.Error())
		writeError(c, err)
		return
	}

	s.logger.Info(ctx, "image deleted", "image_id", imageID)
	c.Status(http.StatusNoContent)
}
