// Package syncbus notifies mounted views that a project's task collection
// changed. Events come from successful store mutations in this process and
// from slot writes made by other processes sharing the local database
package syncbus

import (
	"sync"
	"time"
)

// Kind says what kind of change an event reports
type Kind string

const (
	KindCreated       Kind = "created"
	KindStatusChanged Kind = "status_changed"
	KindUpdated       Kind = "updated"
	KindDeleted       Kind = "deleted"
	KindCommented     Kind = "commented"
	// KindExternal is a write made by another process. Only the project is known
	KindExternal Kind = "external"
)

// Event reports that the tasks of ProjectID changed. An empty ProjectID
// means every project should be re-read
type Event struct {
	Kind      Kind
	ProjectID string
	TaskID    string
	Source    string
	At        time.Time
}

// subscriptionBuffer bounds how far a subscriber may lag before events for
// it are dropped
const subscriptionBuffer = 64

// Bus fans events out to subscribers without ever blocking publishers
type Bus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// Default is the process-wide bus views subscribe to
var Default = New()

// New creates an empty bus
func New() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Publish delivers e to every subscriber whose project matches
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if !sub.Matches(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			// subscriber is behind; drop to avoid blocking the publisher
		}
	}
}

// Subscribe registers interest in projectID. An empty projectID receives
// every event. The caller must Close the subscription when done
func (b *Bus) Subscribe(projectID string) *Subscription {
	sub := &Subscription{
		bus:       b,
		projectID: projectID,
		ch:        make(chan Event, subscriptionBuffer),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Len returns the number of open subscriptions
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Subscription is one subscriber's view of a bus
type Subscription struct {
	bus       *Bus
	projectID string
	ch        chan Event
	once      sync.Once
}

// C returns the event channel. It is closed by Close
func (s *Subscription) C() <-chan Event { return s.ch }

// ProjectID returns the project the subscription is filtered to
func (s *Subscription) ProjectID() string { return s.projectID }

// Matches reports whether e concerns this subscriber
func (s *Subscription) Matches(e Event) bool {
	return s.projectID == "" || e.ProjectID == "" || e.ProjectID == s.projectID
}

// Close unregisters the subscription and closes its channel. It is safe to
// call more than once
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		close(s.ch)
	})
}
