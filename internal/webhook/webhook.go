package webhook

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxEvents bounds the in-memory log.
const maxEvents = 500

// Event is one recorded webhook delivery.
type Event struct {
	ID        string         `json:"id"`
	WebhookID string         `json:"webhookId"`
	Payload   map[string]any `json:"payload"`
	Timestamp float64        `json:"timestamp"`
}

// Store is a bounded in-memory webhook event log.
type Store struct {
	mutex  sync.RWMutex
	events []Event
}

func NewStore() *Store {
	return &Store{}
}

// Record appends an event for the given webhook and returns it.
func (s *Store) Record(webhookID string, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}

	event := Event{
		ID:        uuid.NewString(),
		WebhookID: webhookID,
		Payload:   payload,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.events = append(s.events, event)
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}

	return event
}

// Recent returns the newest n events, oldest first.
func (s *Store) Recent(n int) []Event {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	start := len(s.events) - n
	if start < 0 {
		start = 0
	}

	out := make([]Event, len(s.events)-start)
	copy(out, s.events[start:])
	return out
}

// Len reports the number of retained events.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.events)
}
