package store

import (
	"time"

	"github.com/google/uuid"
)

const maxClientEvents = 1000

// ClientEvent is a telemetry event reported by a console. Only the fields the store
// assigns are typed; the rest is kept as sent.
type ClientEvent struct {
	EventID    string         `json:"event_id"`
	ReceivedAt time.Time      `json:"received_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// RecordClientEvents stores events, keeping only the most recent ones.
func (s *MemoryStore) RecordClientEvents(payloads []map[string]any) []ClientEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	stored := make([]ClientEvent, 0, len(payloads))
	for _, p := range payloads {
		id, _ := p["event_id"].(string)
		if id == "" {
			id = uuid.NewString()
		}
		stored = append(stored, ClientEvent{EventID: id, ReceivedAt: now, Payload: p})
	}
	s.clientEvents = append(s.clientEvents, stored...)
	if over := len(s.clientEvents) - maxClientEvents; over > 0 {
		s.clientEvents = append([]ClientEvent(nil), s.clientEvents[over:]...)
	}
	return stored
}

func (s *MemoryStore) ClientEvents() []ClientEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ClientEvent(nil), s.clientEvents...)
}
