// server/internal/api/handlers/crop_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"farmwise-api-server/internal/models"
	"farmwise-api-server/internal/repository"

	"github.com/gin-gonic/gin"
)

type CropHandler struct {
	Repo repository.Repository
}

type CreateCropRequest struct {
	UserID       string              `json:"user_id" binding:"required"`
	Name         string              `json:"name" binding:"required"`
	ImageURL     string              `json:"image_url"`
	PlantingDate *time.Time          `json:"planting_date"`
	CurrentStage models.CropStage    `json:"current_stage"`
	HealthStatus models.HealthStatus `json:"health_status"`
}

func (h *CropHandler) CreateCrop(c *gin.Context) {
	var req CreateCropRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	crop, err := h.Repo.CreateCrop(c.Request.Context(), models.Crop{
		UserID:       req.UserID,
		Name:         req.Name,
		ImageURL:     req.ImageURL,
		PlantingDate: req.PlantingDate,
		CurrentStage: req.CurrentStage,
		HealthStatus: req.HealthStatus,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, crop)
}

// GetUserCrops lists every crop of a farmer.
func (h *CropHandler) GetUserCrops(c *gin.Context) {
	crops, err := h.Repo.ListCrops(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, crops)
}

func (h *CropHandler) GetCrop(c *gin.Context) {
	crop, err := h.Repo.GetCrop(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, notFoundAs(err, "Crop not found"))
		return
	}
	c.JSON(http.StatusOK, crop)
}

func (h *CropHandler) UpdateCrop(c *gin.Context) {
	var patch models.CropPatch
	if err := bindJSON(c, &patch); err != nil {
		respondError(c, err)
		return
	}

	crop, err := h.Repo.UpdateCrop(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, notFoundAs(err, "Crop not found"))
		return
	}
	c.JSON(http.StatusOK, crop)
}

// DeleteCrop removes the crop along with its activities and advice.
func (h *CropHandler) DeleteCrop(c *gin.Context) {
	if err := h.Repo.DeleteCrop(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, notFoundAs(err, "Crop not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Crop deleted successfully"})
}

// notFoundAs gives repository.ErrNotFound a message naming the resource.
func notFoundAs(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", message, repository.ErrNotFound)
	}
	return err
}
