// server/internal/api/handlers/health_handler.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"farmwise-api-server/internal/database"
	"farmwise-api-server/internal/repository"
	"farmwise-api-server/internal/session"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	Repo         repository.Repository
	Store        *session.Store
	AIReady      bool
	WeatherOK    bool
	TranscribeOK bool
}

func (h *HealthHandler) mongoStatus(ctx context.Context) string {
	if h.Repo == nil {
		return "not configured"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.Repo.Ping(ctx); err != nil {
		return "unreachable"
	}
	return "connected"
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "not configured"
}

// Root answers the liveness probe.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "FarmWise API is running",
		"mongodb": h.mongoStatus(c.Request.Context()),
	})
}

// Health reports which optional components are usable.
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":        "healthy",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"mongodb":       h.mongoStatus(c.Request.Context()),
		"openai":        availability(h.AIReady),
		"weather":       availability(h.WeatherOK),
		"transcription": availability(h.TranscribeOK),
	}
	if h.Store != nil {
		body["sessions"] = h.Store.Len()
	}
	c.JSON(http.StatusOK, body)
}

// Demo returns sample data so the screens have something to show without a
// database.
func (h *HealthHandler) Demo(c *gin.Context) {
	if h.Repo != nil {
		c.JSON(http.StatusOK, gin.H{"message": "Database is available - use regular endpoints"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"demo_mode":   true,
		"message":     "Database not available - running in demo mode",
		"sample_user": database.DemoUser(),
		"sample_crop": database.DemoCrop(),
		"available_endpoints": []string{
			"/weather?district={district}",
			"/weather/{lat}/{lon}",
			"/ai/identify-crop (with image)",
			"/ai/chat",
			"/ai/advice/{crop_name}",
			"/sessions",
		},
	})
}
