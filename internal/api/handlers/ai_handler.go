// server/internal/api/handlers/ai_handler.go
package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"farmwise-api-server/internal/ai"
	"farmwise-api-server/internal/models"
	"farmwise-api-server/internal/repository"
	"farmwise-api-server/internal/storage"
	"farmwise-api-server/internal/weather"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AIHandler struct {
	Advisor     *ai.Advisor
	Assistant   *ai.Assistant
	Transcriber ai.Transcriber
	Weather     *weather.Client
	// Repo is nil when MongoDB is not configured.
	Repo          repository.Repository
	MaxImageBytes int64
	MaxAudioBytes int64
}

type ChatRequest struct {
	Message     string `json:"message"`
	CropID      string `json:"crop_id"`
	ImageBase64 string `json:"image_base64"`
	WordLimit   int    `json:"word_limit"`
}

// GetAdvice fetches the weather first and then asks for advice on the named
// crop.
func (h *AIHandler) GetAdvice(c *gin.Context) {
	cropName := c.Param("cropName")
	ctx := c.Request.Context()

	wx := h.Weather.Lookup(ctx, models.Location{})
	advice, err := h.Advisor.Advice(ctx, ai.AdviceRequest{
		CropName: cropName,
		Weather:  wx,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	saveAdvice(ctx, h.Repo, models.Advice{CropName: cropName, AdviceText: advice}, wx)

	c.JSON(http.StatusOK, gin.H{
		"advice":  advice,
		"weather": wx,
		"note":    fmt.Sprintf("AI advice for %s", cropName),
	})
}

// Chat answers one message. The crop's details are added to the prompt when
// the crop can be found.
func (h *AIHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	image, _, err := decodeImage("image_base64", req.ImageBase64, h.MaxImageBytes)
	if err != nil {
		respondError(c, err)
		return
	}

	reply, err := h.Assistant.Reply(c.Request.Context(), ai.ChatRequest{
		Message:     req.Message,
		CropContext: h.cropContext(c.Request.Context(), req.CropID),
		ImageBase64: image,
		WordLimit:   req.WordLimit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

// IdentifyCrop names the crop in an uploaded photo.
func (h *AIHandler) IdentifyCrop(c *gin.Context) {
	f, err := readFormFile(c, "image", h.MaxImageBytes)
	if err != nil {
		respondError(c, err)
		return
	}
	if _, err := storage.ValidateImage(f.Data, h.MaxImageBytes); err != nil {
		respondError(c, err)
		return
	}

	identification, err := h.Assistant.IdentifyCrop(c.Request.Context(), base64.StdEncoding.EncodeToString(f.Data))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identification": identification})
}

// Transcribe turns an uploaded recording into text.
func (h *AIHandler) Transcribe(c *gin.Context) {
	f, err := readFormFile(c, "file", h.MaxAudioBytes)
	if err != nil {
		respondError(c, err)
		return
	}
	contentType, err := storage.ValidateAudio(f.Data, f.ContentType, h.MaxAudioBytes)
	if err != nil {
		respondError(c, err)
		return
	}

	name := f.Name
	if name == "" {
		name = "audio.webm"
	}
	log.Printf("Transcribing %s, size=%d bytes, type=%s", name, len(f.Data), contentType)

	text, err := h.Transcriber.Transcribe(c.Request.Context(), ai.Audio{
		Filename:    name,
		ContentType: contentType,
		Data:        f.Data,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

func (h *AIHandler) cropContext(ctx context.Context, cropID string) string {
	if cropID == "" || h.Repo == nil {
		return ""
	}
	crop, err := h.Repo.GetCrop(ctx, cropID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("chat: could not load crop %s: %v", cropID, err)
		}
		return ""
	}
	return crop.ContextSentence()
}

// saveAdvice records the advice when a database is present. Failures only
// get logged.
func saveAdvice(ctx context.Context, repo repository.Repository, a models.Advice, wx weather.Result) {
	if repo == nil {
		return
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	if wx.Available() {
		a.WeatherData = wx.Snapshot.Map()
	}
	if err := repo.SaveAdvice(ctx, a); err != nil {
		log.Printf("advice: could not save advice for %s: %v", a.CropName, err)
	}
}
