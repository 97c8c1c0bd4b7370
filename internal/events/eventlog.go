// Package events provides the economy event log of a game session.
// Purchases, rejections, resets and save recoveries are recorded here so the
// UI can replay what happened; clicks and ticks are too frequent and are not.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeItemPurchased    EventType = "ITEM_PURCHASED"
	EventTypePurchaseRejected EventType = "PURCHASE_REJECTED"
	EventTypeGameReset        EventType = "GAME_RESET"
	EventTypeGameRestored     EventType = "GAME_RESTORED"
	EventTypeSaveCorrupted    EventType = "SAVE_CORRUPTED"
	EventTypeSaveFailed       EventType = "SAVE_FAILED"
)

// DefaultCapacity is how many events a log keeps before dropping the oldest.
const DefaultCapacity = 512

// PurchasePayload is attached to purchase events.
type PurchasePayload struct {
	ItemID  string  `json:"item_id"`
	Cost    float64 `json:"cost"`
	Owned   int     `json:"owned"`
	Balance float64 `json:"balance"`
	Reason  string  `json:"reason,omitempty"`
}

// GameEvent represents an immutable record of an economy action.
type GameEvent struct {
	Seq       uint64      `json:"seq"`
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`            // Who triggered it (PLAYER, SYSTEM)
	TargetID  string      `json:"target_id,omitempty"` // Item id, when relevant
	Payload   interface{} `json:"payload,omitempty"`
}

// EventLog is a bounded in-memory append-only log.
type EventLog struct {
	mu       sync.RWMutex
	events   []GameEvent
	capacity int
	nextSeq  uint64
}

// NewEventLog creates a log keeping at most capacity events (DefaultCapacity if <= 0).
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &EventLog{
		events:   make([]GameEvent, 0, capacity),
		capacity: capacity,
		nextSeq:  1,
	}
}

// Append stamps the event with a sequence number, id and time (if missing) and stores it.
func (el *EventLog) Append(event GameEvent) GameEvent {
	el.mu.Lock()
	defer el.mu.Unlock()

	event.Seq = el.nextSeq
	el.nextSeq++
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if len(el.events) == el.capacity {
		copy(el.events, el.events[1:])
		el.events = el.events[:len(el.events)-1]
	}
	el.events = append(el.events, event)
	return event
}

// Since returns the retained events with Seq greater than seq, oldest first.
func (el *EventLog) Since(seq uint64) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Seq > seq {
			result = append(result, e)
		}
	}
	return result
}

// Recent returns up to n of the newest events, oldest first.
func (el *EventLog) Recent(n int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	if n <= 0 || n > len(el.events) {
		n = len(el.events)
	}
	out := make([]GameEvent, n)
	copy(out, el.events[len(el.events)-n:])
	return out
}

// GetByType returns all retained events of a type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Len returns the number of retained events.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
