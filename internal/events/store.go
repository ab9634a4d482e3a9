package events

import (
	"sync"
	"time"
)

// EventType represents the type of bridge event
type EventType string

const (
	// Auth events
	EventLogin       EventType = "login"
	EventLoginFailed EventType = "login_failed"
	EventLogout      EventType = "logout"

	// Poll cycle events
	EventPollSuccess  EventType = "poll_success"
	EventPollFailed   EventType = "poll_failed"
	EventTokenRefresh EventType = "token_refresh"
	EventRefresh      EventType = "refresh_requested"

	// Attribute events
	EventAttributeUpdate EventType = "attribute_update"

	// MQTT events
	EventDiscoveryPublished EventType = "discovery_published"
)

// Event represents a bridge activity event
type Event struct {
	ID        int64     `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Details   string    `json:"details,omitempty"`
	Username  string    `json:"username,omitempty"`
	IP        string    `json:"ip,omitempty"`
}

// Store holds events in memory with a fixed capacity (ring buffer).
// Subscribers receive new events as they are added; slow subscribers
// drop events instead of blocking the producer.
type Store struct {
	mu      sync.RWMutex
	events  []Event
	maxSize int
	nextID  int64

	subs    map[int]chan Event
	nextSub int
}

// NewStore creates a new event store with specified max capacity
func NewStore(maxSize int) *Store {
	return &Store{
		events:  make([]Event, 0, maxSize),
		maxSize: maxSize,
		subs:    make(map[int]chan Event),
	}
}

// Add adds a new event to the store and notifies subscribers
func (s *Store) Add(eventType EventType, success bool, details string) {
	s.add(Event{
		Type:    eventType,
		Success: success,
		Details: details,
	})
}

// AddAuth adds an auth event carrying the username and client IP
func (s *Store) AddAuth(eventType EventType, username, ip string, success bool, details string) {
	s.add(Event{
		Type:     eventType,
		Success:  success,
		Details:  details,
		Username: username,
		IP:       ip,
	})
}

func (s *Store) add(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	event.ID = s.nextID
	event.Timestamp = time.Now()

	// Ring buffer: remove oldest if at max capacity
	if len(s.events) >= s.maxSize {
		s.events = s.events[1:]
	}
	s.events = append(s.events, event)

	// Non-blocking fan-out. Sends stay under the lock so Unsubscribe can
	// never close a channel mid-send.
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its ID and channel.
// The channel is buffered; events are dropped if the buffer is full.
func (s *Store) Subscribe() (int, <-chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	ch := make(chan Event, 16)
	s.subs[s.nextSub] = ch
	return s.nextSub, ch
}

// Unsubscribe removes a subscriber and closes its channel
func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// GetAll returns all events (newest first)
func (s *Store) GetAll() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return copy in reverse order (newest first)
	result := make([]Event, len(s.events))
	for i, e := range s.events {
		result[len(s.events)-1-i] = e
	}
	return result
}

// GetLast returns the last N events (newest first)
func (s *Store) GetLast(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.events) {
		n = len(s.events)
	}

	result := make([]Event, n)
	for i := 0; i < n; i++ {
		result[i] = s.events[len(s.events)-1-i]
	}
	return result
}

// GetSince returns events newer than the given ID (newest first)
func (s *Store) GetSince(lastID int64) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].ID > lastID {
			result = append(result, s.events[i])
		} else {
			break
		}
	}
	return result
}

// Count returns the total number of events
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// LastID returns the ID of the most recent event
func (s *Store) LastID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}
