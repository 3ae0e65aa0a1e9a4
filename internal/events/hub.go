package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"tubewatch/internal/logging"
)

const sessionBufferSize = 64

// SnapshotFunc supplies the current activity state for the initial event a
// session receives on attach.
type SnapshotFunc func() Snapshot

// Hub fans broadcast events out to attached sessions. Delivery is
// non-blocking: a session that falls behind its buffer loses events rather
// than stalling publishers.
type Hub struct {
	logger   *slog.Logger
	snapshot SnapshotFunc

	mu       sync.Mutex
	sessions map[string]chan Event
	closed   bool
}

// NewHub constructs a hub. snapshot may be nil, in which case attached
// sessions receive an empty state event.
func NewHub(logger *slog.Logger, snapshot SnapshotFunc) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		logger:   logger,
		snapshot: snapshot,
		sessions: make(map[string]chan Event),
	}
}

// Attach registers a new session and returns its id along with the event
// channel. The first event on the channel is always a state snapshot. The
// snapshot is taken and the session registered under the same lock, so no
// event published concurrently can fall between the two: everything after
// the snapshot reaches the session.
func (h *Hub) Attach() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, sessionBufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}

	snapshot := Snapshot{Downloading: map[string]bool{}, Summarizing: map[string]bool{}}
	if h.snapshot != nil {
		snapshot = h.snapshot()
	}
	ch <- StateEvent(snapshot)

	h.sessions[id] = ch
	h.logger.Debug("session attached", logging.String("session_id", id), logging.Int("sessions", len(h.sessions)))
	return id, ch
}

// Detach removes a session and closes its channel. Detaching an unknown id
// is a no-op.
func (h *Hub) Detach(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.sessions[id]
	if !ok {
		return
	}
	delete(h.sessions, id)
	close(ch)
	h.logger.Debug("session detached", logging.String("session_id", id), logging.Int("sessions", len(h.sessions)))
}

// Publish delivers an event to every attached session without blocking.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.sessions {
		select {
		case ch <- event:
		default:
			h.logger.Warn("session buffer full, dropping event",
				logging.String("session_id", id),
				logging.String("event_type", string(event.Type)))
		}
	}
}

// SessionCount reports the number of attached sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close detaches every session. Attach after Close returns an already
// closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.sessions {
		delete(h.sessions, id)
		close(ch)
	}
}
