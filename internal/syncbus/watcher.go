package syncbus

import (
	"context"
	"log"
	"time"

	"github.com/tgienger/taskflow/internal/db"
	"github.com/tgienger/taskflow/internal/store"
)

// DefaultPollInterval is how often the watcher looks for foreign writes
const DefaultPollInterval = time.Second

// ChangeFeed reports slot writes made by other processes
type ChangeFeed interface {
	LatestSeq(ctx context.Context) (int64, error)
	ForeignChanges(ctx context.Context, after int64) ([]db.SlotChange, error)
}

// Watcher turns slot writes by sibling processes into KindExternal events
type Watcher struct {
	feed     ChangeFeed
	bus      *Bus
	interval time.Duration
	last     int64
	primed   bool
}

// NewWatcher polls feed every interval and publishes on bus
func NewWatcher(feed ChangeFeed, bus *Bus, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{feed: feed, bus: bus, interval: interval}
}

// Prime skips every write made before now
func (w *Watcher) Prime(ctx context.Context) error {
	seq, err := w.feed.LatestSeq(ctx)
	if err != nil {
		return err
	}
	w.last = seq
	w.primed = true
	return nil
}

// Poll publishes one event per project written by another process since the
// last poll and returns how many were published
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	if !w.primed {
		if err := w.Prime(ctx); err != nil {
			return 0, err
		}
	}
	changes, err := w.feed.ForeignChanges(ctx, w.last)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool)
	for _, c := range changes {
		if c.Seq > w.last {
			w.last = c.Seq
		}
		pid, ok := store.ProjectFromKey(c.Key)
		if !ok || seen[pid] {
			continue
		}
		seen[pid] = true
		w.bus.Publish(Event{Kind: KindExternal, ProjectID: pid, Source: c.Writer})
	}
	return len(seen), nil
}

// Run polls until ctx is done. Poll failures are logged and retried on the
// next tick
func (w *Watcher) Run(ctx context.Context) {
	if err := w.Prime(ctx); err != nil {
		log.Printf("syncbus: prime watcher: %v", err)
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
				log.Printf("syncbus: poll: %v", err)
			}
		}
	}
}
