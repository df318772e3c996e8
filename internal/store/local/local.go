// Package local implements the task store over a key/value slot medium. Each
// project's tasks live in one slot as a JSON array that is always read and
// written whole
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
)

// Slots is the storage medium. Slot returns nil for an empty slot
type Slots interface {
	Slot(ctx context.Context, key string) ([]byte, error)
	PutSlot(ctx context.Context, key string, value []byte) error
}

// Store is the local mirror store
type Store struct {
	slots Slots
	now   func() time.Time

	// mu serialises read-modify-write cycles within this process
	mu sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for stamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a local store over slots
func New(slots Slots, opts ...Option) *Store {
	s := &Store{slots: slots, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

func (s *Store) Mode() store.Mode { return store.ModeLocal }

func (s *Store) load(ctx context.Context, projectID string) ([]models.Task, error) {
	raw, err := s.slots.Slot(ctx, store.SlotKey(projectID))
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", store.SlotKey(projectID), err, store.ErrTransientIO)
	}
	if len(raw) == 0 {
		return []models.Task{}, nil
	}
	var tasks []models.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", store.SlotKey(projectID), err, store.ErrTransientIO)
	}
	for i := range tasks {
		if _, ok := models.ParsePriority(string(tasks[i].Priority)); !ok {
			tasks[i].Priority = models.DefaultPriority
		}
		if tasks[i].Comments == nil {
			tasks[i].Comments = []models.Comment{}
		}
	}
	return tasks, nil
}

func (s *Store) save(ctx context.Context, projectID string, tasks []models.Task) error {
	raw, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode %s: %v: %w", store.SlotKey(projectID), err, store.ErrTransientIO)
	}
	if err := s.slots.PutSlot(ctx, store.SlotKey(projectID), raw); err != nil {
		return fmt.Errorf("write %s: %v: %w", store.SlotKey(projectID), err, store.ErrTransientIO)
	}
	return nil
}

// mutate runs fn over the whole collection and writes the result back when fn
// succeeds
func (s *Store) mutate(ctx context.Context, projectID string, fn func([]models.Task) ([]models.Task, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	tasks, err = fn(tasks)
	if err != nil {
		return err
	}
	return s.save(ctx, projectID, tasks)
}

func indexOf(tasks []models.Task, taskID string) int {
	for i := range tasks {
		if tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

func notFound(taskID string) error {
	return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
}

// List returns one page of the project's tasks
func (s *Store) List(ctx context.Context, projectID string, f store.Filter) (*store.Page, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	tasks, err := s.load(ctx, projectID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return store.Apply(tasks, f)
}

// Get returns a single task
func (s *Store) Get(ctx context.Context, projectID, taskID string) (*models.Task, error) {
	s.mu.Lock()
	tasks, err := s.load(ctx, projectID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	i := indexOf(tasks, taskID)
	if i < 0 {
		return nil, notFound(taskID)
	}
	t := tasks[i].Clone()
	return &t, nil
}

// Create appends a new task to the project's collection
func (s *Store) Create(ctx context.Context, projectID string, in store.NewTask) (*models.Task, error) {
	t, err := store.BuildTask(projectID, in, s.now())
	if err != nil {
		return nil, err
	}
	err = s.mutate(ctx, projectID, func(tasks []models.Task) ([]models.Task, error) {
		return append(tasks, t), nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// update applies fn to one task inside a whole-collection write
func (s *Store) update(ctx context.Context, projectID, taskID string, fn func(*models.Task) error) (*models.Task, error) {
	var out models.Task
	err := s.mutate(ctx, projectID, func(tasks []models.Task) ([]models.Task, error) {
		i := indexOf(tasks, taskID)
		if i < 0 {
			return nil, notFound(taskID)
		}
		if err := fn(&tasks[i]); err != nil {
			return nil, err
		}
		out = tasks[i].Clone()
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchStatus moves a task to the canonical status newStatus names
func (s *Store) PatchStatus(ctx context.Context, projectID, taskID, newStatus string) (*models.Task, error) {
	if _, err := store.ParseStatus(newStatus); err != nil {
		return nil, err
	}
	return s.update(ctx, projectID, taskID, func(t *models.Task) error {
		return store.SetStatus(t, newStatus, s.now())
	})
}

// PatchFields merges f into the task
func (s *Store) PatchFields(ctx context.Context, projectID, taskID string, f store.Fields) (*models.Task, error) {
	return s.update(ctx, projectID, taskID, func(t *models.Task) error {
		return store.ApplyFields(t, f, s.now())
	})
}

// Delete removes the task. Deleting an absent id succeeds without a write
func (s *Store) Delete(ctx context.Context, projectID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	i := indexOf(tasks, taskID)
	if i < 0 {
		return nil
	}
	return s.save(ctx, projectID, append(tasks[:i], tasks[i+1:]...))
}

// AppendComment prepends a comment and stamps the task in the same write
func (s *Store) AppendComment(ctx context.Context, projectID, taskID, author, text string) (*models.Comment, error) {
	c, err := store.BuildComment(taskID, author, text, s.now())
	if err != nil {
		return nil, err
	}
	if _, err := s.update(ctx, projectID, taskID, func(t *models.Task) error {
		store.PrependComment(t, c)
		return nil
	}); err != nil {
		return nil, err
	}
	return &c, nil
}

// Replace overwrites the project's whole collection. Used by imports
func (s *Store) Replace(ctx context.Context, projectID string, tasks []models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, projectID, tasks)
}
