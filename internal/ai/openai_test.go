package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"farmwise-api-server/config"
	"farmwise-api-server/internal/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAI(t *testing.T, key string, h http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewOpenAI(srv.Client(), config.OpenAIConfig{
		APIKey:                  key,
		BaseURL:                 srv.URL,
		Model:                   "gpt-4o",
		TranscribeModel:         "whisper-1",
		FallbackTranscribeModel: "gpt-4o-mini-transcribe",
	})
}

func TestCompleteSendsChatCompletionShape(t *testing.T) {
	var body map[string]any
	c := newOpenAI(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"choices":[{"message":{"content":"  Water twice a week.  "}}]}`))
	})

	out, err := c.Complete(context.Background(), Request{
		System:      "persona",
		Prompt:      "How often?",
		MaxTokens:   100,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Water twice a week.", out)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, float64(100), body["max_tokens"])
	assert.Equal(t, 0.7, body["temperature"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "How often?", msgs[1].(map[string]any)["content"])
}

func TestCompleteAttachesImageAsDataURL(t *testing.T) {
	var body struct {
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	c := newOpenAI(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"choices":[{"message":{"content":"Leaf blight"}}]}`))
	})

	_, err := c.Complete(context.Background(), Request{Prompt: "What is this?", ImageBase64: "QUJD"})
	require.NoError(t, err)

	require.Len(t, body.Messages, 1)
	var parts []contentPart
	require.NoError(t, json.Unmarshal(body.Messages[0].Content, &parts))
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "data:image/jpeg;base64,QUJD", parts[1].ImageURL.URL)
}

func TestCompleteWithoutKey(t *testing.T) {
	var hits int32
	c := newOpenAI(t, "", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})

	_, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, upstream.ErrNotConfigured)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestCompleteSurfacesUpstreamStatus(t *testing.T) {
	c := newOpenAI(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})

	_, err := c.Complete(context.Background(), Request{Prompt: "hi"})

	var se *upstream.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, "Too Many Requests", se.Status)
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	c := newOpenAI(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, upstream.ErrInvalidPayload)
}

func TestTranscribeFallsBackToSecondModel(t *testing.T) {
	var models []string
	c := newOpenAI(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		model := r.FormValue("model")
		models = append(models, model)

		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "fake-audio", string(data))

		if model == "whisper-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"text":" Should I water the banana today? "}`))
	})

	text, err := c.Transcribe(context.Background(), Audio{Filename: "clip.webm", Data: []byte("fake-audio")})
	require.NoError(t, err)
	assert.Equal(t, "Should I water the banana today?", text)
	assert.Equal(t, []string{"whisper-1", "gpt-4o-mini-transcribe"}, models)
}

func TestDataURLPassesThrough(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AAA", DataURL("data:image/png;base64,AAA"))
	assert.Equal(t, "AAA", rawBase64("data:image/png;base64,AAA"))
	assert.Equal(t, "AAA", rawBase64("AAA"))
}
