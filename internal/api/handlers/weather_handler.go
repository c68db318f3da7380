// server/internal/api/handlers/weather_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"farmwise-api-server/internal/models"
	"farmwise-api-server/internal/weather"

	"github.com/gin-gonic/gin"
)

type WeatherHandler struct {
	Client *weather.Client
}

// GetWeather returns the tagged weather result for a district. A failed
// lookup is still a 200; the screen renders the degraded state.
func (h *WeatherHandler) GetWeather(c *gin.Context) {
	loc := models.Location{
		District: c.Query("district"),
		Taluk:    c.Query("taluk"),
	}
	c.JSON(http.StatusOK, h.Client.Lookup(c.Request.Context(), loc))
}

// GetWeatherByCoordinates returns the snapshot at lat/lon, or 404 when the
// upstream could not provide one.
func (h *WeatherHandler) GetWeatherByCoordinates(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Param("lat"), 64)
	if err != nil {
		respondError(c, &models.ValidationError{Field: "lat", Reason: "must be a number"})
		return
	}
	lon, err := strconv.ParseFloat(c.Param("lon"), 64)
	if err != nil {
		respondError(c, &models.ValidationError{Field: "lon", Reason: "must be a number"})
		return
	}

	snap, err := h.Client.FetchCoordinates(c.Request.Context(), lat, lon)
	if err != nil {
		if errorStatus(err) == http.StatusBadRequest {
			respondError(c, err)
			return
		}
		body := errorBody(err)
		body["message"] = "Weather data not available"
		body["detail"] = err.Error()
		c.JSON(http.StatusNotFound, body)
		return
	}
	c.JSON(http.StatusOK, snap)
}
