package handlers

import (
	"errors"
	"log"
	"net/http"

	"civicreport-backend/storage"

	"github.com/gin-gonic/gin"
)

// MediaHandler streams stored report media
type MediaHandler struct {
	storage storage.Storage
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(store storage.Storage) *MediaHandler {
	return &MediaHandler{storage: store}
}

// GetMedia handles GET /api/media/*path
func (h *MediaHandler) GetMedia(c *gin.Context) {
	storagePath := c.Param("path")

	rc, err := h.storage.Download(c.Request.Context(), storagePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MEDIA_NOT_FOUND",
					"message": "Media not found",
				},
			})
			return
		}
		log.Printf("media: download %s: %v", storagePath, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STORAGE_ERROR",
				"message": "Failed to read media",
			},
		})
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, storage.ContentTypeFor(storagePath), rc, nil)
}
