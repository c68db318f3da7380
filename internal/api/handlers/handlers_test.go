package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"farmwise-api-server/internal/ai"
	"farmwise-api-server/internal/models"
	"farmwise-api-server/internal/repository"
	"farmwise-api-server/internal/session"
	"farmwise-api-server/internal/socket"
	"farmwise-api-server/internal/storage"
	"farmwise-api-server/internal/upstream"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&models.ValidationError{Field: "name", Reason: "is required"}, http.StatusBadRequest},
		{storage.ErrNotImage, http.StatusBadRequest},
		{session.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("Crop not found: %w", repository.ErrNotFound), http.StatusNotFound},
		{session.ErrControlBusy, http.StatusConflict},
		{session.ErrSendInFlight, http.StatusConflict},
		{storage.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{&upstream.ConfigError{Setting: "OpenAI API key"}, http.StatusServiceUnavailable},
		{repository.ErrUnavailable, http.StatusServiceUnavailable},
		{upstream.ErrCircuitOpen, http.StatusServiceUnavailable},
		{&upstream.StatusError{Service: "openai", StatusCode: 429, Status: "Too Many Requests"}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, errorStatus(tc.err), tc.err.Error())
	}
}

func TestErrorBodyCarriesUpstreamStatus(t *testing.T) {
	body := errorBody(&upstream.StatusError{Service: "weatherapi", StatusCode: 401, Status: "Unauthorized"})
	assert.Equal(t, true, body["error"])
	assert.Equal(t, 401, body["upstream_status"])
	assert.Equal(t, "Unauthorized", body["upstream_status_text"])

	body = errorBody(repository.ErrUnavailable)
	assert.Equal(t, "Database not available", body["message"])
	assert.NotContains(t, body, "upstream_status")
}

type echoTranscriber struct {
	mu  sync.Mutex
	got []ai.Audio
}

func (e *echoTranscriber) Transcribe(_ context.Context, a ai.Audio) (string, error) {
	e.mu.Lock()
	e.got = append(e.got, a)
	e.mu.Unlock()
	return fmt.Sprintf("heard %d bytes", len(a.Data)), nil
}

func (e *echoTranscriber) calls() []ai.Audio {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ai.Audio(nil), e.got...)
}

func dialVoice(t *testing.T, h *VoiceHandler) *websocket.Conn {
	t.Helper()
	r := gin.New()
	r.GET("/voice", h.ServeVoice)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/voice", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) voiceFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f voiceFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestVoiceRecordingRoundTrip(t *testing.T) {
	tr := &echoTranscriber{}
	conn := dialVoice(t, &VoiceHandler{Transcriber: tr, MaxBytes: 1 << 20})

	assert.Equal(t, voiceFrame{Type: "state", State: "not_recording"}, readFrame(t, conn))

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "start", "mime_type": "audio/webm", "supported": true}))
	assert.Equal(t, voiceFrame{Type: "state", State: "recording"}, readFrame(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("chunk-one")))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("chunk-two")))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "stop"}))

	assert.Equal(t, voiceFrame{Type: "release"}, readFrame(t, conn))
	assert.Equal(t, voiceFrame{Type: "state", State: "transcribing"}, readFrame(t, conn))
	assert.Equal(t, voiceFrame{Type: "state", State: "not_recording"}, readFrame(t, conn))
	assert.Equal(t, voiceFrame{Type: "transcript", Text: "heard 18 bytes"}, readFrame(t, conn))

	got := tr.calls()
	require.Len(t, got, 1)
	assert.Equal(t, "recording.webm", got[0].Filename)
}

func TestVoiceRefusesUnsupportedMicrophone(t *testing.T) {
	conn := dialVoice(t, &VoiceHandler{Transcriber: &echoTranscriber{}, MaxBytes: 1 << 20})
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "start", "supported": false, "reason": "no microphone permission"}))
	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Contains(t, f.Message, "no microphone permission")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "stop"}))
	f = readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, "not recording", f.Message)
}

func TestVoiceWithoutTranscriber(t *testing.T) {
	conn := dialVoice(t, &VoiceHandler{MaxBytes: 1 << 20})
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "start", "supported": true}))
	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, "voice input is not supported on this device", f.Message)
}

func TestSessionStreamStartsWithSnapshot(t *testing.T) {
	store := session.NewStore()
	hub := socket.NewHub()
	store.Subscribe(hub.Notify)
	sid := store.Create().ID
	_, err := store.AddCrop(sid, models.Crop{ID: "c1", Name: "Rice"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/ws/:sid", (&WebSocketHandler{Hub: hub, Store: store}).ServeWs)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/"+sid, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var snap struct {
		Kind    string        `json:"kind"`
		Payload session.State `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "snapshot", snap.Kind)
	require.Len(t, snap.Payload.Crops, 1)
	assert.Equal(t, "Rice", snap.Payload.Crops[0].Name)
	assert.Equal(t, 1, hub.Count(sid))

	a, err := models.NewActivity("c1", models.ActivityInput{Type: models.ActivityWatering, Description: "drip"}, time.Now())
	require.NoError(t, err)
	_, err = store.AddActivity(sid, "c1", a)
	require.NoError(t, err)

	var ev struct {
		Kind    string          `json:"kind"`
		CropID  string          `json:"crop_id"`
		Payload models.Activity `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, string(session.EventActivityAdded), ev.Kind)
	assert.Equal(t, "c1", ev.CropID)
	assert.Equal(t, "drip", ev.Payload.Description)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDecodeImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	encoded := base64.StdEncoding.EncodeToString(png)

	got, data, err := decodeImage("image_base64", encoded, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, encoded, got)
	assert.Equal(t, png, data)

	got, _, err = decodeImage("image_base64", "data:image/png;base64,"+encoded, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, encoded, got)

	got, data, err = decodeImage("image_base64", "  ", 1<<20)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Nil(t, data)

	_, _, err = decodeImage("image_base64", "this is not an image at all", 1<<20)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, _, err = decodeImage("image_base64", base64.StdEncoding.EncodeToString([]byte("plain text")), 1<<20)
	assert.ErrorIs(t, err, storage.ErrNotImage)

	_, _, err = decodeImage("image_base64", encoded, 8)
	assert.ErrorIs(t, err, storage.ErrTooLarge)
}
