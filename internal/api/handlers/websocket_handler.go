// server/internal/api/handlers/websocket_handler.go
package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"farmwise-api-server/internal/session"
	"farmwise-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Longest wait for any frame from the client, pings included.
const pongWait = 60 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	Hub   *socket.Hub
	Store *session.Store
}

type snapshotFrame struct {
	Kind    string        `json:"kind"`
	Payload session.State `json:"payload"`
}

// ServeWs streams the session's store events to the client. The first frame
// is the full session state; every later frame is an event that the snapshot
// did not already contain.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	sid := c.Param("sid")
	if !h.Store.Exists(sid) {
		respondError(c, session.ErrSessionNotFound)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}
	client := socket.NewClient(conn)
	defer func() {
		h.Hub.Unregister(sid, client)
		client.Close()
	}()

	err = h.Store.Observe(sid, func(st session.State) {
		h.Hub.Register(sid, client)
		client.SendJSON(snapshotFrame{Kind: "snapshot", Payload: st})
	})
	if err != nil {
		return
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(socket.WriteWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Unexpected close error: %v", err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
