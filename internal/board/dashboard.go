package board

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/tgienger/taskflow/internal/activity"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/store"
)

const (
	// DueSoonWindow is how far ahead an open task counts as due soon
	DueSoonWindow = 7 * 24 * time.Hour
	// RecentLimit caps the recent activity list
	RecentLimit = 5
)

// Stats aggregates a project's tasks
type Stats struct {
	Total      int
	ByStatus   map[status.Status]int
	ByPriority map[models.Priority]int
	Completed  int
	// CompletionRate is the completed share in percent, 0 when there are no tasks
	CompletionRate float64
	Overdue        int
	DueSoon        int
	Recent         []models.Task
}

// Journal reads a project's activity log and timeline
type Journal interface {
	Entries(ctx context.Context, projectID string) ([]activity.Entry, error)
	Timeline(ctx context.Context, projectID string) ([]activity.Milestone, error)
}

// History is the activity and timeline read with the last fetch
type History struct {
	Activity []activity.Entry
	Timeline []activity.Milestone
}

// Dashboard aggregates counts and recent activity
type Dashboard struct {
	*Adapter
	journal Journal

	// mu guards history, which fetches write off the UI loop
	mu      sync.Mutex
	history History
}

// NewDashboard returns the dashboard of projectID. A nil journal leaves the
// history empty
func NewDashboard(s store.Store, projectID string, journal Journal) *Dashboard {
	d := &Dashboard{Adapter: newAdapter(s, projectID), journal: journal}
	if journal != nil {
		fetchTasks := d.fetch
		d.fetch = func(ctx context.Context) ([]models.Task, error) {
			tasks, err := fetchTasks(ctx)
			if err == nil {
				d.readHistory(ctx)
			}
			return tasks, err
		}
	}
	return d
}

// readHistory keeps the previous history on a read failure
func (d *Dashboard) readHistory(ctx context.Context) {
	entries, err := d.journal.Entries(ctx, d.projectID)
	if err != nil {
		log.Printf("board: read activity: %v", err)
		return
	}
	timeline, err := d.journal.Timeline(ctx, d.projectID)
	if err != nil {
		log.Printf("board: read timeline: %v", err)
		return
	}
	d.mu.Lock()
	d.history = History{Activity: entries, Timeline: timeline}
	d.mu.Unlock()
}

// History returns the activity and timeline as of the last fetch
func (d *Dashboard) History() History {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history
}

// Stats aggregates the dashboard's tasks as of now
func (d *Dashboard) Stats(now time.Time) Stats {
	return Aggregate(d.tasks, now)
}

// Aggregate computes Stats over tasks
func Aggregate(tasks []models.Task, now time.Time) Stats {
	s := Stats{
		Total:      len(tasks),
		ByStatus:   make(map[status.Status]int, len(status.All)),
		ByPriority: make(map[models.Priority]int, len(models.Priorities)),
	}
	for _, st := range status.All {
		s.ByStatus[st] = 0
	}
	for _, p := range models.Priorities {
		s.ByPriority[p] = 0
	}

	for _, t := range tasks {
		st := status.Normalize(string(t.Status))
		s.ByStatus[st]++
		s.ByPriority[t.Priority]++
		if st == status.Completed {
			s.Completed++
			continue
		}
		if t.DueDate == nil {
			continue
		}
		switch {
		case t.DueDate.Before(now):
			s.Overdue++
		case t.DueDate.Before(now.Add(DueSoonWindow)):
			s.DueSoon++
		}
	}
	if s.Total > 0 {
		s.CompletionRate = float64(s.Completed) * 100 / float64(s.Total)
	}

	recent := models.CloneTasks(tasks)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].UpdatedAt.After(recent[j].UpdatedAt)
	})
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	s.Recent = recent
	return s
}
