package store

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// ChangeKind names a write to the trade table.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent tells subscribers that a user's trade set changed and should be refetched.
type ChangeEvent struct {
	Kind    ChangeKind `json:"kind"`
	UserID  string     `json:"user_id"`
	TradeID string     `json:"trade_id"`
	At      time.Time  `json:"at"`
}

// Feed fans change events out to subscribers. A slow subscriber misses
// events rather than blocking writers.
type Feed struct {
	mu     sync.RWMutex
	subs   map[int]chan ChangeEvent
	nextID int
	logger *zap.Logger
}

// NewFeed creates an empty Feed.
func NewFeed(logger *zap.Logger) *Feed {
	return &Feed{
		subs:   make(map[int]chan ChangeEvent),
		logger: logger.Named("feed"),
	}
}

// Subscribe registers a listener. The returned cancel func closes the channel.
func (f *Feed) Subscribe(buffer int) (<-chan ChangeEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan ChangeEvent, buffer)
	f.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber without blocking.
func (f *Feed) Publish(ev ChangeEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for id, ch := range f.subs {
		select {
		case ch <- ev:
		default:
			f.logger.Debug("Dropping change event for slow subscriber", zap.Int("subscriber", id))
		}
	}
}

// Subscribers returns the number of active subscribers.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
