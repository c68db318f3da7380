package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"farmwise-api-server/internal/models"

	"github.com/google/uuid"
)

// FailedReply is the bot message shown in place of an answer that never came.
const FailedReply = "Sorry, I couldn't answer that right now. Please try again."

var ErrSendInFlight = errors.New("a chat message is already being sent")

// Outgoing is what the farmer typed, plus an optional photo. Image is the
// decoded, already validated photo; only its preview reference is kept.
type Outgoing struct {
	Text  string
	Image []byte
}

// PreviewRef names an attached photo without carrying its bytes.
func PreviewRef(image []byte) string {
	if len(image) == 0 {
		return ""
	}
	sum := sha256.Sum256(image)
	return "sha256:" + hex.EncodeToString(sum[:8])
}

// Replier answers msg given the transcript that preceded it. msg.Image is a
// preview reference; the replier gets the photo itself from its caller.
type Replier func(ctx context.Context, history []models.ChatMessage, msg models.ChatMessage) (string, error)

// Exchange is the pair of entries one Send appended. Err is the reply error,
// already rendered into Answer.
type Exchange struct {
	Question models.ChatMessage `json:"question"`
	Answer   models.ChatMessage `json:"answer"`
	Err      error              `json:"-"`
}

// Transcript is an append-only chat log. Only one message may be in flight.
type Transcript struct {
	mu       sync.Mutex
	messages []models.ChatMessage
	sending  bool
}

// Messages returns a copy of the log in order.
func (t *Transcript) Messages() []models.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.ChatMessage{}, t.messages...)
}

// Sending reports whether a reply is outstanding.
func (t *Transcript) Sending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sending
}

// Send appends the farmer's message right away, waits for reply and appends
// the answer. A failed reply is appended as a bot message marked Failed, so
// every accepted Send adds exactly two entries.
func (t *Transcript) Send(ctx context.Context, out Outgoing, reply Replier, now func() time.Time, onAppend func(models.ChatMessage)) (Exchange, error) {
	text := strings.TrimSpace(out.Text)
	if text == "" && len(out.Image) == 0 {
		return Exchange{}, &models.ValidationError{Field: "message", Reason: "message or image is required"}
	}

	question := models.ChatMessage{
		ID:        uuid.NewString(),
		Text:      text,
		Timestamp: now(),
		Image:     PreviewRef(out.Image),
	}

	t.mu.Lock()
	if t.sending {
		t.mu.Unlock()
		return Exchange{}, ErrSendInFlight
	}
	t.sending = true
	history := append([]models.ChatMessage{}, t.messages...)
	t.messages = append(t.messages, question)
	t.mu.Unlock()

	if onAppend != nil {
		onAppend(question)
	}

	answerText, err := reply(ctx, history, question)
	answer := models.ChatMessage{
		ID:        uuid.NewString(),
		Text:      answerText,
		IsBot:     true,
		Timestamp: now(),
	}
	if err != nil {
		answer.Text = FailedReply
		answer.Failed = true
	}

	t.mu.Lock()
	t.messages = append(t.messages, answer)
	t.sending = false
	t.mu.Unlock()

	if onAppend != nil {
		onAppend(answer)
	}
	return Exchange{Question: question, Answer: answer, Err: err}, nil
}
