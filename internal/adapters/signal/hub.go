package signal

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dkeye/voicehub/internal/core"
)

// Envelope is the wire shape of every server→client message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub maps connection handles to live signaling connections and implements core.Deliverer.
type Hub struct {
	mu    sync.RWMutex
	conns map[core.ConnID]core.SignalConnection
}

func NewHub() *Hub {
	return &Hub{conns: make(map[core.ConnID]core.SignalConnection)}
}

func (h *Hub) Register(id core.ConnID, c core.SignalConnection) {
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
}

func (h *Hub) Unregister(id core.ConnID) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) lookup(id core.ConnID) (core.SignalConnection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

// SendToConnection encodes and enqueues without blocking.
func (h *Hub) SendToConnection(id core.ConnID, event string, payload any) error {
	c, ok := h.lookup(id)
	if !ok {
		return core.ErrUnknownConnection
	}
	b, err := encode(event, payload)
	if err != nil {
		return err
	}
	return c.TrySend(b)
}

// CloseConnection closes the socket; its read pump then runs the disconnect path.
func (h *Hub) CloseConnection(id core.ConnID) {
	if c, ok := h.lookup(id); ok {
		c.Close()
	}
}

func encode(event string, payload any) (core.Frame, error) {
	b, err := json.Marshal(Envelope{Type: event, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return b, nil
}
