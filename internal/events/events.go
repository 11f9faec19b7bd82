// Package events carries loadout change notifications to interested subscribers.
package events

import (
	"slices"
	"sync"

	"github.com/lisongmechlab/lsml-sub002/internal/models"
)

// EventType describes the kind of change a loadout reports.
type EventType string

const (
	EventItemAdded      EventType = "ItemAdded"
	EventItemRemoved    EventType = "ItemRemoved"
	EventArmorChanged   EventType = "ArmorChanged"
	EventUpgradeChanged EventType = "UpgradeChanged"
)

// Event is a single committed change.
type Event struct {
	Type     EventType
	Location models.Location
	// ItemID is set for item events, Upgrade for upgrade events.
	ItemID  string
	Upgrade string
}

// Publisher is the narrow capability a loadout needs to announce changes.
type Publisher interface {
	Publish(Event)
}

// Discard drops every event. Hypothetical loadouts publish here.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Handler receives published events.
type Handler func(Event)

// Bus is an in-process publish/subscribe fan-out.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it again.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers ev synchronously to every subscriber in subscription order.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	handlers := make([]Handler, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Recorder collects events, for tests and batching.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, ev)
}

// Snapshot returns a copy of the recorded events.
func (r *Recorder) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.Events...)
}
