// server/internal/api/handlers/upload_handler.go
package handlers

import (
	"net/http"

	"farmwise-api-server/internal/upload"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	Service  *upload.Service
	MaxBytes int64
}

// UploadImage stores a photo and returns where it is served from.
func (h *UploadHandler) UploadImage(c *gin.Context) {
	f, err := readFormFile(c, "file", h.MaxBytes)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.Service.Upload(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_url": res.ImageURL})
}

// UploadAndIdentifyCrop stores a photo and identifies the crop in it. The
// upload succeeds even when identification does not.
func (h *UploadHandler) UploadAndIdentifyCrop(c *gin.Context) {
	f, err := readFormFile(c, "file", h.MaxBytes)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.Service.UploadAndIdentify(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
