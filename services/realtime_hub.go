package services

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

type WSClient struct {
	UserID string
	Conn   *websocket.Conn
}

// RealtimeHub pushes reminder events to connected websocket clients, so an
// open app session sees reminders without pulling.
type RealtimeHub struct {
	mu      sync.RWMutex
	clients map[string]map[*WSClient]struct{}
}

func NewRealtimeHub() *RealtimeHub {
	return &RealtimeHub{clients: make(map[string]map[*WSClient]struct{})}
}

var _ Notifier = (*RealtimeHub)(nil)

func (h *RealtimeHub) Register(c *WSClient) {
	h.mu.Lock()
	if h.clients[c.UserID] == nil {
		h.clients[c.UserID] = make(map[*WSClient]struct{})
	}
	h.clients[c.UserID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *RealtimeHub) Unregister(c *WSClient) {
	h.mu.Lock()
	if set := h.clients[c.UserID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()
	_ = c.Conn.Close()
}

func (h *RealtimeHub) Broadcast(userID string, payload any) {
	msg, _ := json.Marshal(payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		_ = c.Conn.WriteMessage(websocket.TextMessage, msg)
	}
}

func (h *RealtimeHub) PostReminder(userID, channel, title, body string) {
	h.Broadcast(userID, map[string]string{
		"type":    "reminder",
		"channel": channel,
		"title":   title,
		"body":    body,
	})
}
