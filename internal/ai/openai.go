package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"farmwise-api-server/config"
	"farmwise-api-server/internal/upstream"
)

// OpenAI is a chat-completions and audio-transcriptions client.
type OpenAI struct {
	apiKey          string
	baseURL         string
	model           string
	transcribeModel string
	fallbackModel   string
	caller          *upstream.Caller
}

func NewOpenAI(httpClient upstream.Doer, cfg config.OpenAIConfig) *OpenAI {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	transcribeModel := cfg.TranscribeModel
	if transcribeModel == "" {
		transcribeModel = "whisper-1"
	}
	return &OpenAI{
		apiKey:          cfg.APIKey,
		baseURL:         baseURL,
		model:           model,
		transcribeModel: transcribeModel,
		fallbackModel:   cfg.FallbackTranscribeModel,
		caller:          upstream.NewCaller("openai", httpClient),
	}
}

func (c *OpenAI) Configured() bool { return c.apiKey != "" }

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    Role `json:"role"`
	Content any  `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content" validate:"required"`
		} `json:"message"`
	} `json:"choices" validate:"min=1,dive"`
}

// Complete posts one chat completion and returns choices[0].message.content.
func (c *OpenAI) Complete(ctx context.Context, r Request) (string, error) {
	if c.apiKey == "" {
		return "", &upstream.ConfigError{Setting: "OpenAI API key"}
	}

	messages := make([]chatMessage, 0, len(r.History)+2)
	if r.System != "" {
		messages = append(messages, chatMessage{Role: RoleSystem, Content: r.System})
	}
	for _, t := range r.History {
		messages = append(messages, chatMessage{Role: t.Role, Content: t.Text})
	}
	if r.ImageBase64 != "" {
		messages = append(messages, chatMessage{Role: RoleUser, Content: []contentPart{
			{Type: "text", Text: r.Prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: DataURL(r.ImageBase64)}},
		}})
	} else {
		messages = append(messages, chatMessage{Role: RoleUser, Content: r.Prompt})
	}

	b, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var out chatResponse
	if err := c.caller.DoJSON(req, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe sends the clip to the primary model and, if that fails, once to
// the fallback model.
func (c *OpenAI) Transcribe(ctx context.Context, a Audio) (string, error) {
	if c.apiKey == "" {
		return "", &upstream.ConfigError{Setting: "OpenAI API key"}
	}

	text, err := c.transcribe(ctx, c.transcribeModel, a)
	if err == nil {
		return text, nil
	}
	if c.fallbackModel == "" || c.fallbackModel == c.transcribeModel ||
		ctx.Err() != nil || errors.Is(err, upstream.ErrCircuitOpen) {
		return "", err
	}

	log.Printf("openai: %s transcription failed, trying %s: %v", c.transcribeModel, c.fallbackModel, err)
	return c.transcribe(ctx, c.fallbackModel, a)
}

func (c *OpenAI) transcribe(ctx context.Context, model string, a Audio) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("model", model); err != nil {
		return "", err
	}
	filename := a.Filename
	if filename == "" {
		filename = "recording.webm"
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(a.Data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out transcriptionResponse
	if err := c.caller.DoJSON(req, &out); err != nil {
		return "", fmt.Errorf("transcribe with %s: %w", model, err)
	}
	return strings.TrimSpace(out.Text), nil
}
