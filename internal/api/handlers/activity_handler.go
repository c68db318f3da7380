// server/internal/api/handlers/activity_handler.go
package handlers

import (
	"net/http"
	"time"

	"farmwise-api-server/internal/models"
	"farmwise-api-server/internal/repository"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	Repo repository.Repository
}

// CreateActivity logs an activity and moves the crop's last activity date.
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	var in models.ActivityInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, err)
		return
	}

	activity, err := models.NewActivity(in.CropID, in, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	activity, err = h.Repo.CreateActivity(c.Request.Context(), activity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

// GetCropActivities lists a crop's activities, newest first.
func (h *ActivityHandler) GetCropActivities(c *gin.Context) {
	activities, err := h.Repo.ListActivities(c.Request.Context(), c.Param("cropId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}
