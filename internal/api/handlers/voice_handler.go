// server/internal/api/handlers/voice_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"farmwise-api-server/internal/ai"
	"farmwise-api-server/internal/socket"
	"farmwise-api-server/internal/voice"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const transcribeTimeout = 60 * time.Second

// VoiceHandler records one spoken question per start/stop pair over a
// websocket.
//
// Client frames: {"type":"start","mime_type":"audio/webm","supported":true},
// binary audio chunks, {"type":"stop"} and {"type":"abort"}.
// Server frames: state, release, transcript and error.
type VoiceHandler struct {
	// Transcriber is nil when speech to text is not configured; every start
	// is then refused.
	Transcriber ai.Transcriber
	MaxBytes    int64
}

type voiceCommand struct {
	Type      string `json:"type"`
	MimeType  string `json:"mime_type"`
	Supported *bool  `json:"supported"`
	Reason    string `json:"reason"`
}

type voiceFrame struct {
	Type    string `json:"type"`
	State   string `json:"state,omitempty"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// wsMicrophone is the client's recorder as seen from the server.
type wsMicrophone struct {
	client    *socket.Client
	supported bool
	reason    string
}

func (m *wsMicrophone) Supported() error {
	if m.supported {
		return nil
	}
	if m.reason != "" {
		return errors.New(m.reason)
	}
	return errors.New("microphone not available")
}

// Release tells the client to stop its media tracks.
func (m *wsMicrophone) Release() {
	if !m.client.SendJSON(voiceFrame{Type: "release"}) {
		log.Println("voice: could not send release")
	}
}

func (h *VoiceHandler) ServeVoice(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}
	client := socket.NewClient(conn)

	capture := voice.NewCapture(h.Transcriber, h.MaxBytes, func(s voice.State) {
		client.SendJSON(voiceFrame{Type: "state", State: s.String()})
	})
	defer func() {
		capture.Abort()
		client.Close()
	}()

	client.SendJSON(voiceFrame{Type: "state", State: capture.State().String()})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("voice: unexpected close: %v", err)
			}
			return
		}

		switch mt {
		case websocket.BinaryMessage:
			if _, err := capture.Write(data); err != nil {
				sendVoiceError(client, err)
				if errors.Is(err, voice.ErrTooLarge) {
					capture.Abort()
				}
			}
		case websocket.TextMessage:
			h.handleCommand(client, capture, data)
		}
	}
}

func (h *VoiceHandler) handleCommand(client *socket.Client, capture *voice.Capture, data []byte) {
	var cmd voiceCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		sendVoiceError(client, errors.New("invalid command"))
		return
	}

	switch cmd.Type {
	case "start":
		mic := &wsMicrophone{client: client, supported: cmd.Supported == nil || *cmd.Supported, reason: cmd.Reason}
		if err := capture.Start(mic, cmd.MimeType); err != nil {
			sendVoiceError(client, err)
		}
	case "stop":
		ctx, cancel := context.WithTimeout(context.Background(), transcribeTimeout)
		defer cancel()
		text, err := capture.Stop(ctx)
		if err != nil {
			sendVoiceError(client, err)
			return
		}
		client.SendJSON(voiceFrame{Type: "transcript", Text: text})
	case "abort":
		capture.Abort()
	default:
		sendVoiceError(client, errors.New("unknown command "+cmd.Type))
	}
}

func sendVoiceError(client *socket.Client, err error) {
	if !client.SendJSON(voiceFrame{Type: "error", Message: errorMessage(err)}) {
		log.Printf("voice: could not send error: %v", err)
	}
}
