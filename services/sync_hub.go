package services

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// SyncHub pushes import progress events to connected websocket clients.
// Single-tenant, so there is one flat client set.
type SyncHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

func NewSyncHub() *SyncHub {
	return &SyncHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *SyncHub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *SyncHub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *SyncHub) Broadcast(payload any) {
	msg, _ := json.Marshal(payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		_ = conn.WriteMessage(websocket.TextMessage, msg)
	}
}
