package ai

import (
	"context"
	"fmt"
	"strings"

	"farmwise-api-server/config"
	"farmwise-api-server/internal/models"
)

const (
	identifySystemPrompt = "You are an expert in crop identification, especially for Kerala, India agriculture. Identify crops accurately from images."
	identifyPrompt       = "Please identify this crop. If it's a crop commonly grown in Kerala, India, provide the name and brief growing information. If uncertain, provide your best guess with confidence level."
	imageOnlyQuestion    = "What can you tell me about this crop from the photo?"
)

// ChatRequest is one farmer message to the assistant.
type ChatRequest struct {
	Message     string
	CropContext string
	ImageBase64 string
	WordLimit   int
	History     []Turn
}

// Assistant is the "FarmWise AI" chat persona. It also identifies crops from
// photos.
type Assistant struct {
	llm               Completer
	wordLimit         int
	maxTokens         int
	identifyMaxTokens int
	temperature       float64
}

func NewAssistant(llm Completer, cfg config.AIConfig) *Assistant {
	a := &Assistant{
		llm:               llm,
		wordLimit:         cfg.ChatWordLimit,
		maxTokens:         cfg.ChatMaxTokens,
		identifyMaxTokens: cfg.IdentifyMaxTokens,
		temperature:       cfg.Temperature,
	}
	if a.wordLimit <= 0 {
		a.wordLimit = 50
	}
	if a.maxTokens <= 0 {
		a.maxTokens = 100
	}
	if a.identifyMaxTokens <= 0 {
		a.identifyMaxTokens = 500
	}
	return a
}

// Reply returns the assistant's answer with markdown marks removed.
func (a *Assistant) Reply(ctx context.Context, req ChatRequest) (string, error) {
	question := strings.TrimSpace(req.Message)
	if question == "" && req.ImageBase64 == "" {
		return "", &models.ValidationError{Field: "message", Reason: "message or image is required"}
	}
	if question == "" {
		question = imageOnlyQuestion
	}

	limit := req.WordLimit
	if limit <= 0 {
		limit = a.wordLimit
	}

	out, err := a.llm.Complete(ctx, Request{
		System:      chatSystemPrompt(limit),
		History:     req.History,
		Prompt:      chatPrompt(req.CropContext, question, limit),
		ImageBase64: req.ImageBase64,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		return "", err
	}
	return plainText(out), nil
}

// IdentifyCrop asks the vision model what crop the photo shows.
func (a *Assistant) IdentifyCrop(ctx context.Context, imageBase64 string) (string, error) {
	if imageBase64 == "" {
		return "", &models.ValidationError{Field: "image", Reason: "is required"}
	}
	return a.llm.Complete(ctx, Request{
		System:      identifySystemPrompt,
		Prompt:      identifyPrompt,
		ImageBase64: imageBase64,
		MaxTokens:   a.identifyMaxTokens,
		Temperature: a.temperature,
	})
}

func chatSystemPrompt(limit int) string {
	return fmt.Sprintf("You are FarmWise AI, an expert agricultural assistant for Kerala farmers. "+
		"Always respond in %d words or less. Speak directly to farmers using 'you'. "+
		"Provide concise, practical advice without asterisks, bullet points, or special formatting.", limit)
}

func chatPrompt(cropContext, question string, limit int) string {
	return fmt.Sprintf("%s\n\nFarmer's question: %s\n\nIMPORTANT: Respond in exactly %d words or less. "+
		"Speak directly to the farmer using 'you'. NO asterisks, bullet points, or special formatting.",
		strings.TrimSpace(cropContext), question, limit)
}
