// Package voice records a spoken question and turns it into text.
package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"farmwise-api-server/internal/ai"
)

type State int

const (
	NotRecording State = iota
	Recording
	Transcribing
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Transcribing:
		return "transcribing"
	default:
		return "not_recording"
	}
}

var (
	ErrUnsupported      = errors.New("voice input is not supported on this device")
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrEmptyRecording   = errors.New("no audio was recorded")
	ErrTooLarge         = errors.New("recording is too large")
)

// Microphone is the capture device for one recording.
type Microphone interface {
	// Supported reports why the device cannot record, or nil.
	Supported() error
	// Release stops every track the recording holds.
	Release()
}

// Capture drives NotRecording -> Recording -> Transcribing -> NotRecording.
type Capture struct {
	mu          sync.Mutex
	state       State
	mic         Microphone
	mimeType    string
	buf         bytes.Buffer
	maxBytes    int64
	transcriber ai.Transcriber
	onState     func(State)
}

// NewCapture returns an idle capture. A nil transcriber makes every Start fail
// with ErrUnsupported.
func NewCapture(t ai.Transcriber, maxBytes int64, onState func(State)) *Capture {
	return &Capture{transcriber: t, maxBytes: maxBytes, onState: onState}
}

func (c *Capture) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins recording from mic. When the capability check fails the
// capture stays NotRecording.
func (c *Capture) Start(mic Microphone, mimeType string) error {
	c.mu.Lock()
	if c.state != NotRecording {
		c.mu.Unlock()
		return ErrAlreadyRecording
	}
	if c.transcriber == nil {
		c.mu.Unlock()
		return ErrUnsupported
	}
	if err := mic.Supported(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	c.mic = mic
	c.mimeType = mimeType
	c.buf.Reset()
	c.state = Recording
	c.mu.Unlock()

	c.notify(Recording)
	return nil
}

// Write appends one audio chunk.
func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Recording {
		return 0, ErrNotRecording
	}
	if c.maxBytes > 0 && int64(c.buf.Len()+len(p)) > c.maxBytes {
		return 0, ErrTooLarge
	}
	return c.buf.Write(p)
}

// Stop ends the recording and returns the transcript. The microphone is
// released and the capture is back to NotRecording whatever the outcome.
func (c *Capture) Stop(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state != Recording {
		c.mu.Unlock()
		return "", ErrNotRecording
	}
	mic := c.mic
	audio := ai.Audio{
		Filename:    "recording" + extensionFor(c.mimeType),
		ContentType: c.mimeType,
		Data:        append([]byte(nil), c.buf.Bytes()...),
	}
	c.mic = nil
	c.buf.Reset()
	c.state = Transcribing
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = NotRecording
		c.mu.Unlock()
		c.notify(NotRecording)
	}()

	mic.Release()
	c.notify(Transcribing)

	if len(audio.Data) == 0 {
		return "", ErrEmptyRecording
	}
	return c.transcriber.Transcribe(ctx, audio)
}

// Abort drops the recording without transcribing it.
func (c *Capture) Abort() {
	c.mu.Lock()
	mic := c.mic
	wasRecording := c.state == Recording
	c.mic = nil
	c.buf.Reset()
	if wasRecording {
		c.state = NotRecording
	}
	c.mu.Unlock()

	if mic != nil {
		mic.Release()
	}
	if wasRecording {
		c.notify(NotRecording)
	}
}

func (c *Capture) notify(s State) {
	if c.onState != nil {
		c.onState(s)
	}
}

func extensionFor(mimeType string) string {
	base := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	switch base {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".webm"
	}
}
