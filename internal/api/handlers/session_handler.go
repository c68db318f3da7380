// server/internal/api/handlers/session_handler.go
package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"farmwise-api-server/internal/ai"
	"farmwise-api-server/internal/models"
	"farmwise-api-server/internal/repository"
	"farmwise-api-server/internal/session"
	"farmwise-api-server/internal/upload"
	"farmwise-api-server/internal/weather"

	"github.com/gin-gonic/gin"
)

// Controls guarded by session.Store.Begin.
const (
	controlAdvice = "advice:"
	controlUpload = "upload:"
)

// SessionHandler serves the screens: the session's user, crops, activities,
// photos, advice and chat.
type SessionHandler struct {
	Store     *session.Store
	Uploads   *upload.Service
	Advisor   *ai.Advisor
	Assistant *ai.Assistant
	Weather   *weather.Client
	// Repo is nil when MongoDB is not configured.
	Repo          repository.Repository
	MaxImageBytes int64
}

type SendChatRequest struct {
	Message     string `json:"message"`
	ImageBase64 string `json:"image_base64"`
	WordLimit   int    `json:"word_limit"`
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	c.JSON(http.StatusCreated, h.Store.Create())
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	st, err := h.Store.Get(c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.Store.Delete(c.Param("sid")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session closed"})
}

// ReplaceUser sets the session's farmer profile.
func (h *SessionHandler) ReplaceUser(c *gin.Context) {
	var user models.User
	if err := bindJSON(c, &user); err != nil {
		respondError(c, err)
		return
	}
	if err := user.Normalize(time.Now()); err != nil {
		respondError(c, err)
		return
	}

	sid := c.Param("sid")
	if err := h.Store.ReplaceUser(sid, user); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, sid)
}

// ReplaceCrops sets the session's whole crop list.
func (h *SessionHandler) ReplaceCrops(c *gin.Context) {
	var crops []models.Crop
	if err := bindJSON(c, &crops); err != nil {
		respondError(c, err)
		return
	}
	sid := c.Param("sid")
	owner := h.ownerID(sid)

	now := time.Now()
	for i := range crops {
		if err := crops[i].Normalize(now); err != nil {
			respondError(c, err)
			return
		}
		if crops[i].UserID == "" {
			crops[i].UserID = owner
		}
	}

	if err := h.Store.ReplaceCrops(sid, crops); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, sid)
}

// AddCrop appends one crop to the session.
func (h *SessionHandler) AddCrop(c *gin.Context) {
	var crop models.Crop
	if err := bindJSON(c, &crop); err != nil {
		respondError(c, err)
		return
	}
	crop.ID = ""
	crop.Activities = nil
	if err := crop.Normalize(time.Now()); err != nil {
		respondError(c, err)
		return
	}

	sid := c.Param("sid")
	if crop.UserID == "" {
		crop.UserID = h.ownerID(sid)
	}

	added, err := h.Store.AddCrop(sid, crop)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

func (h *SessionHandler) GetCrop(c *gin.Context) {
	crop, err := h.Store.Crop(c.Param("sid"), c.Param("cropId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, crop)
}

// AddActivity logs an activity on a session crop and returns the crop.
func (h *SessionHandler) AddActivity(c *gin.Context) {
	var in models.ActivityInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, err)
		return
	}

	cropID := c.Param("cropId")
	activity, err := models.NewActivity(cropID, in, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	crop, err := h.Store.AddActivity(c.Param("sid"), cropID, activity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"activity": activity, "crop": crop})
}

// UploadCropPhoto stores a new crop photo, identifies it and points the crop
// at it. The crop is updated even when identification failed.
func (h *SessionHandler) UploadCropPhoto(c *gin.Context) {
	sid, cropID := c.Param("sid"), c.Param("cropId")
	if _, err := h.Store.Crop(sid, cropID); err != nil {
		respondError(c, err)
		return
	}

	release, err := h.Store.Begin(sid, controlUpload+cropID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer release()

	f, err := readFormFile(c, "file", h.MaxImageBytes)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.Uploads.UploadAndIdentify(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}

	crop, err := h.Store.SetCropImage(sid, cropID, res.ImageURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload": res, "crop": crop})
}

// GetAdvice looks up the weather for the farmer's district, then asks for
// advice using it and the crop's recent activities.
func (h *SessionHandler) GetAdvice(c *gin.Context) {
	sid, cropID := c.Param("sid"), c.Param("cropId")
	st, err := h.Store.Get(sid)
	if err != nil {
		respondError(c, err)
		return
	}
	crop, err := h.Store.Crop(sid, cropID)
	if err != nil {
		respondError(c, err)
		return
	}

	release, err := h.Store.Begin(sid, controlAdvice+cropID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer release()

	var loc models.Location
	if st.User != nil {
		loc = st.User.Location
	}

	ctx := c.Request.Context()
	wx := h.Weather.Lookup(ctx, loc)
	advice, err := h.Advisor.Advice(ctx, ai.AdviceRequest{
		CropName:   crop.Name,
		Location:   loc,
		Weather:    wx,
		Activities: crop.Activities,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	saveAdvice(ctx, h.Repo, models.Advice{CropID: crop.ID, CropName: crop.Name, AdviceText: advice}, wx)

	c.JSON(http.StatusOK, gin.H{
		"crop_id": crop.ID,
		"advice":  advice,
		"weather": wx,
	})
}

// GetTranscript returns the crop's chat so far.
func (h *SessionHandler) GetTranscript(c *gin.Context) {
	t, err := h.Store.Transcript(c.Param("sid"), c.Param("cropId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": t.Messages(),
		"sending":  t.Sending(),
	})
}

// SendChat sends one farmer message on the crop's chat. A failed reply is
// still a 200: the transcript carries the inline error message.
func (h *SessionHandler) SendChat(c *gin.Context) {
	var req SendChatRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	image, data, err := decodeImage("image_base64", req.ImageBase64, h.MaxImageBytes)
	if err != nil {
		respondError(c, err)
		return
	}

	sid, cropID := c.Param("sid"), c.Param("cropId")
	crop, err := h.Store.Crop(sid, cropID)
	if err != nil {
		respondError(c, err)
		return
	}

	ex, err := h.Store.SendChat(c.Request.Context(), sid, cropID,
		session.Outgoing{Text: req.Message, Image: data},
		h.replier(crop, req.WordLimit, image),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{
		"question": ex.Question,
		"answer":   ex.Answer,
		"error":    ex.Err != nil,
	}
	if ex.Err != nil {
		log.Printf("chat: reply for crop %s in session %s failed: %v", cropID, sid, ex.Err)
		body["message"] = errorMessage(ex.Err)
	}
	c.JSON(http.StatusOK, body)
}

// replier answers with the chat assistant, passing earlier exchanges as
// history. Failed bot placeholders are left out. image is the base64 photo
// attached to this message, if any.
func (h *SessionHandler) replier(crop models.Crop, wordLimit int, image string) session.Replier {
	cropContext := crop.ContextSentence()
	return func(ctx context.Context, history []models.ChatMessage, msg models.ChatMessage) (string, error) {
		turns := make([]ai.Turn, 0, len(history))
		for _, m := range history {
			if m.Failed {
				continue
			}
			role := ai.RoleUser
			if m.IsBot {
				role = ai.RoleAssistant
			}
			turns = append(turns, ai.Turn{Role: role, Text: m.Text})
		}
		return h.Assistant.Reply(ctx, ai.ChatRequest{
			Message:     msg.Text,
			CropContext: cropContext,
			ImageBase64: image,
			WordLimit:   wordLimit,
			History:     turns,
		})
	}
}

func (h *SessionHandler) ownerID(sid string) string {
	st, err := h.Store.Get(sid)
	if err != nil || st.User == nil {
		return ""
	}
	return st.User.ID
}

func (h *SessionHandler) respondState(c *gin.Context, sid string) {
	st, err := h.Store.Get(sid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
