package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/justsurfingit/agentice/internal/dtos"
)

type ChatResponder interface {
	Chat(ctx context.Context, message string, chatContext map[string]interface{}) string
}

// ChatHub keeps one WebSocket per client id. A new connection for an id
// replaces the old one.
type ChatHub struct {
	Responder ChatResponder

	upgrader websocket.Upgrader
	mu       sync.Mutex
	conns    map[string]*websocket.Conn
	now      func() time.Time
}

func NewChatHub(responder ChatResponder) *ChatHub {
	return &ChatHub{
		Responder: responder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: map[string]*websocket.Conn{},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Connections reports how many clients are connected.
func (h *ChatHub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Serve is GET /ws/chat/:client_id.
func (h *ChatHub) Serve(c *gin.Context) {
	clientID := c.Param("client_id")
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ [Chat] Upgrade failed for %s: %v", clientID, err)
		return
	}

	h.register(clientID, conn)
	defer h.unregister(clientID, conn)
	log.Printf("💬 [Chat] %s connected (%d open)", clientID, h.Connections())

	for {
		var msg dtos.ChatMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("⚠️ [Chat] %s read: %v", clientID, err)
			}
			return
		}
		if err := h.answer(c.Request.Context(), conn, msg); err != nil {
			log.Printf("⚠️ [Chat] %s write: %v", clientID, err)
			return
		}
	}
}

// answer handles one message at a time: typing on, the reply, typing off.
func (h *ChatHub) answer(ctx context.Context, conn *websocket.Conn, msg dtos.ChatMessage) error {
	if strings.TrimSpace(msg.Message) == "" {
		return conn.WriteJSON(dtos.ChatFrame{Type: "error", Message: "message is required", Timestamp: h.now()})
	}

	on, off := true, false
	if err := conn.WriteJSON(dtos.ChatFrame{Type: "typing", IsTyping: &on, Timestamp: h.now()}); err != nil {
		return err
	}
	reply := h.Responder.Chat(ctx, msg.Message, msg.Context)
	if err := conn.WriteJSON(dtos.ChatFrame{Type: "response", Message: reply, Timestamp: h.now()}); err != nil {
		return err
	}
	return conn.WriteJSON(dtos.ChatFrame{Type: "typing", IsTyping: &off, Timestamp: h.now()})
}

func (h *ChatHub) register(clientID string, conn *websocket.Conn) {
	h.mu.Lock()
	old := h.conns[clientID]
	h.conns[clientID] = conn
	h.mu.Unlock()
	if old != nil {
		old.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by a new connection"),
			time.Now().Add(time.Second))
		old.Close()
	}
}

func (h *ChatHub) unregister(clientID string, conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[clientID] == conn {
		delete(h.conns, clientID)
	}
	h.mu.Unlock()
	conn.Close()
	log.Printf("[Chat] %s disconnected", clientID)
}
