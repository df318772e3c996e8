// Package activity keeps a per-project activity log and timeline next to the
// task slots. Both are newest first and capped, and live in the local slot
// medium in either store mode
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tgienger/taskflow/internal/store"
)

const (
	MaxEntries    = 100
	MaxMilestones = 50
)

// Kind names the mutation an entry records
type Kind string

const (
	KindCreated   Kind = "created"
	KindStatus    Kind = "status"
	KindUpdated   Kind = "updated"
	KindDeleted   Kind = "deleted"
	KindCommented Kind = "commented"
)

// Entry is one line of the activity log
type Entry struct {
	ID     string    `json:"id"`
	Kind   Kind      `json:"kind"`
	TaskID string    `json:"taskId,omitempty"`
	Text   string    `json:"text"`
	At     time.Time `json:"time"`
}

// Milestone is one event on the timeline
type Milestone struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	At          time.Time `json:"date"`
}

// EntriesKey is the slot holding a project's activity log
func EntriesKey(projectID string) string {
	return "activities-" + store.ProjectOrGlobal(projectID)
}

// TimelineKey is the slot holding a project's timeline
func TimelineKey(projectID string) string {
	return "timeline-" + store.ProjectOrGlobal(projectID)
}

// Slots is the slot medium the log is kept in, the same one the local task
// store runs over
type Slots interface {
	Slot(ctx context.Context, key string) ([]byte, error)
	PutSlot(ctx context.Context, key string, value []byte) error
}

// Log reads and appends activity slots
type Log struct {
	slots Slots
	now   func() time.Time

	mu sync.Mutex
}

func NewLog(slots Slots) *Log {
	return &Log{slots: slots, now: time.Now}
}

// SetClock overrides the time source for entry stamps
func (l *Log) SetClock(now func() time.Time) { l.now = now }

// Entries returns the project's activity, newest first
func (l *Log) Entries(ctx context.Context, projectID string) ([]Entry, error) {
	return read[Entry](ctx, l.slots, EntriesKey(projectID))
}

// Timeline returns the project's milestones, newest first
func (l *Log) Timeline(ctx context.Context, projectID string) ([]Milestone, error) {
	return read[Milestone](ctx, l.slots, TimelineKey(projectID))
}

// Record stamps e and puts it first in the project's activity log
func (l *Log) Record(ctx context.Context, projectID string, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.ID = store.NewID()
	e.At = l.now().UTC()
	return prepend(ctx, l.slots, EntriesKey(projectID), e, MaxEntries)
}

// Mark stamps m and puts it first on the project's timeline
func (l *Log) Mark(ctx context.Context, projectID string, m Milestone) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	m.ID = store.NewID()
	m.At = l.now().UTC()
	return prepend(ctx, l.slots, TimelineKey(projectID), m, MaxMilestones)
}

func read[T any](ctx context.Context, slots Slots, key string) ([]T, error) {
	raw, err := slots.Slot(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", key, err, store.ErrTransientIO)
	}
	out := []T{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", key, err, store.ErrTransientIO)
	}
	return out, nil
}

func prepend[T any](ctx context.Context, slots Slots, key string, v T, limit int) error {
	items, err := read[T](ctx, slots, key)
	if err != nil {
		return err
	}
	items = append([]T{v}, items...)
	if len(items) > limit {
		items = items[:limit]
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := slots.PutSlot(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %v: %w", key, err, store.ErrTransientIO)
	}
	return nil
}
