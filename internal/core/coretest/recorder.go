// Package coretest holds in-memory fakes of core collaborators.
package coretest

import (
	"sync"

	"github.com/dkeye/voicehub/internal/core"
)

// Delivery is one recorded SendToConnection call.
type Delivery struct {
	Conn    core.ConnID
	Event   string
	Payload any
}

// Recorder is a core.Deliverer that keeps everything it was asked to send.
// Connections listed in Full answer with core.ErrBackpressure.
type Recorder struct {
	mu     sync.Mutex
	log    []Delivery
	closed []core.ConnID
	full   map[core.ConnID]bool
}

func NewRecorder() *Recorder {
	return &Recorder{full: make(map[core.ConnID]bool)}
}

func (r *Recorder) SendToConnection(conn core.ConnID, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full[conn] {
		return core.ErrBackpressure
	}
	r.log = append(r.log, Delivery{Conn: conn, Event: event, Payload: payload})
	return nil
}

func (r *Recorder) CloseConnection(conn core.ConnID) {
	r.mu.Lock()
	r.closed = append(r.closed, conn)
	r.mu.Unlock()
}

// SetFull makes conn reject sends with backpressure.
func (r *Recorder) SetFull(conn core.ConnID, full bool) {
	r.mu.Lock()
	r.full[conn] = full
	r.mu.Unlock()
}

func (r *Recorder) All() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.log...)
}

// To returns deliveries for conn, optionally filtered by event names.
func (r *Recorder) To(conn core.ConnID, events ...string) []Delivery {
	var out []Delivery
	for _, d := range r.All() {
		if d.Conn != conn {
			continue
		}
		if len(events) > 0 && !contains(events, d.Event) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Events lists event names delivered to conn, in order.
func (r *Recorder) Events(conn core.ConnID) []string {
	var out []string
	for _, d := range r.To(conn) {
		out = append(out, d.Event)
	}
	return out
}

// Count counts deliveries of event to any connection.
func (r *Recorder) Count(event string) int {
	n := 0
	for _, d := range r.All() {
		if d.Event == event {
			n++
		}
	}
	return n
}

func (r *Recorder) Closed() []core.ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.ConnID(nil), r.closed...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.log = nil
	r.closed = nil
	r.mu.Unlock()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
