// Package events fans view updates out to any number of subscribers per topic.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TasksSnapshot     Type = "tasks.snapshot"
	RunsSnapshot      Type = "runs.snapshot"
	DashboardSnapshot Type = "dashboard.snapshot"
	RetryAccepted     Type = "task.retry.accepted"
	RetryFailed       Type = "task.retry.failed"
	PollFailed        Type = "poll.failed"
	PollConverged     Type = "poll.converged"
)

// Event carries a view update. Seq increases by one per topic.
type Event struct {
	Seq     int64     `json:"seq"`
	Topic   string    `json:"topic"`
	Type    Type      `json:"type"`
	TS      time.Time `json:"ts"`
	Payload any       `json:"payload,omitempty"`
}

type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[string]chan Event
	seq  map[string]int64
}

func NewHub() *Hub {
	return &Hub{
		subs: map[string]map[string]chan Event{},
		seq:  map[string]int64{},
	}
}

func (h *Hub) Subscribe(topic string, buf int) (string, <-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subID := uuid.NewString()
	if _, ok := h.subs[topic]; !ok {
		h.subs[topic] = map[string]chan Event{}
	}
	ch := make(chan Event, buf)
	h.subs[topic][subID] = ch

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		topicSubs, ok := h.subs[topic]
		if !ok {
			return
		}
		c, ok := topicSubs[subID]
		if !ok {
			return
		}
		delete(topicSubs, subID)
		close(c)
		if len(topicSubs) == 0 {
			delete(h.subs, topic)
		}
	}
	return subID, ch, unsubscribe
}

// Publish stamps and delivers an event without blocking; a subscriber whose buffer
// is full misses it.
func (h *Hub) Publish(topic string, typ Type, payload any) Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq[topic]++
	evt := Event{Seq: h.seq[topic], Topic: topic, Type: typ, TS: time.Now().UTC(), Payload: payload}
	for _, ch := range h.subs[topic] {
		select {
		case ch <- evt:
		default:
		}
	}
	return evt
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
