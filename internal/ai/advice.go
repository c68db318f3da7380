package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"farmwise-api-server/config"
	"farmwise-api-server/internal/models"
	"farmwise-api-server/internal/weather"
)

const (
	adviceSystemPrompt  = "You are an expert agricultural advisor specializing in Kerala, India farming practices. Provide practical, actionable advice for farmers."
	noActivities        = "No recent activities logged"
	maxPromptActivities = 5
)

// AdviceRequest is everything the advisor knows about one crop.
type AdviceRequest struct {
	CropName   string
	Location   models.Location
	Weather    weather.Result
	Activities []models.Activity
}

// Advisor produces crop care advice.
type Advisor struct {
	llm         Completer
	maxTokens   int
	temperature float64
}

func NewAdvisor(llm Completer, cfg config.AIConfig) *Advisor {
	maxTokens := cfg.AdviceMaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &Advisor{llm: llm, maxTokens: maxTokens, temperature: cfg.Temperature}
}

// Advice asks the model for advice and returns its text unchanged.
func (a *Advisor) Advice(ctx context.Context, req AdviceRequest) (string, error) {
	if strings.TrimSpace(req.CropName) == "" {
		return "", &models.ValidationError{Field: "crop_name", Reason: "is required"}
	}
	return a.llm.Complete(ctx, Request{
		System:      adviceSystemPrompt,
		Prompt:      BuildAdvicePrompt(req),
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
}

// BuildAdvicePrompt renders the advice prompt. Equal inputs give equal prompts.
func BuildAdvicePrompt(req AdviceRequest) string {
	crop := strings.TrimSpace(req.CropName)

	var b strings.Builder
	fmt.Fprintf(&b, "As an agricultural expert for Kerala, India, provide specific advice for %s cultivation.\n\n", crop)
	fmt.Fprintf(&b, "Location: %s\n", req.Location.String())
	fmt.Fprintf(&b, "Current weather: %s\n", req.Weather.Summary())
	fmt.Fprintf(&b, "Recent activities: %s\n\n", recentActivities(req.Activities))
	b.WriteString("Please provide:\n")
	fmt.Fprintf(&b, "1. Current care recommendations for %s\n", crop)
	b.WriteString("2. Seasonal considerations for Kerala climate\n")
	b.WriteString("3. Common issues to watch for\n")
	b.WriteString("4. Best practices for this region\n\n")
	b.WriteString("Keep advice practical and focused on Kerala farming conditions.")
	return b.String()
}

func recentActivities(acts []models.Activity) string {
	if len(acts) == 0 {
		return noActivities
	}
	sorted := append([]models.Activity(nil), acts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })
	if len(sorted) > maxPromptActivities {
		sorted = sorted[:maxPromptActivities]
	}

	parts := make([]string, len(sorted))
	for i, a := range sorted {
		parts[i] = a.Summary()
	}
	return strings.Join(parts, ", ")
}
