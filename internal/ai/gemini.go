package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"farmwise-api-server/config"
	"farmwise-api-server/internal/upstream"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini is an alternate Completer backed by Google's Generative AI API.
type Gemini struct {
	client    *genai.Client
	modelName string
}

func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, &upstream.ConfigError{Setting: "Gemini API key"}
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &Gemini{client: cl, modelName: modelName}, nil
}

func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *Gemini) Complete(ctx context.Context, r Request) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	if r.System != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(r.System)},
		}
	}
	if r.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(r.MaxTokens))
	}
	m.SetTemperature(float32(r.Temperature))

	parts := []genai.Part{genai.Text(r.Prompt)}
	if r.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(rawBase64(r.ImageBase64))
		if err != nil {
			return "", fmt.Errorf("gemini: decode image: %w", err)
		}
		parts = append(parts, genai.ImageData("jpeg", data))
	}

	cs := m.StartChat()
	for _, t := range r.History {
		role := "user"
		if t.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Text)}})
	}

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: %w: no candidates", upstream.ErrInvalidPayload)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String()), nil
}

var _ Completer = (*Gemini)(nil)
var _ Completer = (*OpenAI)(nil)
var _ Transcriber = (*OpenAI)(nil)
