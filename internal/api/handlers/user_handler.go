// server/internal/api/handlers/user_handler.go
package handlers

import (
	"net/http"

	"farmwise-api-server/internal/models"
	"farmwise-api-server/internal/repository"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	Repo repository.Repository
}

type CreateUserRequest struct {
	Name           string          `json:"name" binding:"required"`
	Phone          string          `json:"phone"`
	Location       models.Location `json:"location"`
	Crops          []string        `json:"crops"`
	FarmSize       string          `json:"farm_size"`
	IrrigationType string          `json:"irrigation_type"`
}

// CreateUser registers a farmer profile.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	user, err := h.Repo.CreateUser(c.Request.Context(), models.User{
		Name:           req.Name,
		Phone:          req.Phone,
		Location:       req.Location,
		Crops:          req.Crops,
		FarmSize:       req.FarmSize,
		IrrigationType: req.IrrigationType,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.Repo.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, notFoundAs(err, "User not found"))
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser applies the submitted fields and returns the stored profile.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var patch models.UserPatch
	if err := bindJSON(c, &patch); err != nil {
		respondError(c, err)
		return
	}

	user, err := h.Repo.UpdateUser(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, notFoundAs(err, "User not found"))
		return
	}
	c.JSON(http.StatusOK, user)
}
