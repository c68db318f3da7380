// Package ai talks to the language model providers behind crop advice, the
// chat assistant, crop identification and voice transcription.
package ai

import (
	"context"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one earlier message of a conversation.
type Turn struct {
	Role Role
	Text string
}

// Request is a provider-neutral completion request.
type Request struct {
	System      string
	History     []Turn
	Prompt      string
	ImageBase64 string
	MaxTokens   int
	Temperature float64
}

// Completer produces one reply for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Audio is a recorded clip to be transcribed.
type Audio struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}

// DataURL turns raw base64 JPEG data into a data URL. Values that already are
// data URLs pass through.
func DataURL(imageBase64 string) string {
	if strings.HasPrefix(imageBase64, "data:") {
		return imageBase64
	}
	return "data:image/jpeg;base64," + imageBase64
}

// rawBase64 strips a data URL prefix.
func rawBase64(image string) string {
	if i := strings.Index(image, ";base64,"); strings.HasPrefix(image, "data:") && i >= 0 {
		return image[i+len(";base64,"):]
	}
	return image
}

var markdownStripper = strings.NewReplacer("*", "", "#", "")

// plainText removes the markdown emphasis and heading marks the chat screen
// cannot render.
func plainText(s string) string {
	return strings.TrimSpace(markdownStripper.Replace(s))
}
