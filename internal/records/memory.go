package records

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
)

// MemoryRepository keeps everything in process memory. It backs tests and
// the service when no database is configured.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[string]User
	projects map[string]models.Project
	// tasks per project id, in insertion order
	tasks map[string][]models.Task
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[string]User),
		projects: make(map[string]models.Project),
		tasks:    make(map[string][]models.Task),
	}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) CreateUser(_ context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := r.users[key]; ok {
		return ErrEmailTaken
	}
	r.users[key] = u
	return nil
}

func (r *MemoryRepository) UserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) ListProjects(_ context.Context, owner string) ([]models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Project{}
	for _, p := range r.projects {
		if p.Owner == owner {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MemoryRepository) InsertProject(_ context.Context, p models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = p
	return nil
}

func (r *MemoryRepository) ResolveProject(_ context.Context, owner, ref string) (*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.projects[ref]; ok && p.Owner == owner {
		return &p, nil
	}
	var byName *models.Project
	for _, p := range r.projects {
		p := p
		if p.Owner != owner {
			continue
		}
		if p.Route == ref {
			return &p, nil
		}
		if byName == nil && strings.EqualFold(p.Name, ref) {
			byName = &p
		}
	}
	if byName != nil {
		return byName, nil
	}
	return nil, fmt.Errorf("project %s: %w", ref, store.ErrProjectNotFound)
}

func (r *MemoryRepository) DeleteProject(_ context.Context, owner, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok || p.Owner != owner {
		return fmt.Errorf("project %s: %w", projectID, store.ErrProjectNotFound)
	}
	delete(r.projects, projectID)
	delete(r.tasks, projectID)
	return nil
}

func (r *MemoryRepository) ListTasks(_ context.Context, projectID string, f store.Filter) (*store.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return store.Apply(r.tasks[projectID], f)
}

func (r *MemoryRepository) ListOwnedTasks(_ context.Context, owner string, f store.Filter) (*store.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, p := range r.projects {
		if p.Owner == owner {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	var all []models.Task
	for _, id := range ids {
		all = append(all, r.tasks[id]...)
	}
	return store.Apply(all, f)
}

func (r *MemoryRepository) find(projectID, taskID string) int {
	for i, t := range r.tasks[projectID] {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

func taskNotFound(taskID string) error {
	return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
}

func (r *MemoryRepository) GetTask(_ context.Context, projectID, taskID string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.find(projectID, taskID)
	if i < 0 {
		return nil, taskNotFound(taskID)
	}
	t := r.tasks[projectID][i].Clone()
	return &t, nil
}

func (r *MemoryRepository) InsertTask(_ context.Context, t models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ProjectID] = append(r.tasks[t.ProjectID], t.Clone())
	return nil
}

func (r *MemoryRepository) UpdateTask(_ context.Context, projectID, taskID string, fn func(*models.Task) error) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(projectID, taskID)
	if i < 0 {
		return nil, taskNotFound(taskID)
	}
	t := r.tasks[projectID][i].Clone()
	if err := fn(&t); err != nil {
		return nil, err
	}
	r.tasks[projectID][i] = t
	out := t.Clone()
	return &out, nil
}

func (r *MemoryRepository) DeleteTask(_ context.Context, projectID, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(projectID, taskID)
	if i < 0 {
		return taskNotFound(taskID)
	}
	tasks := r.tasks[projectID]
	r.tasks[projectID] = append(tasks[:i], tasks[i+1:]...)
	return nil
}

func (r *MemoryRepository) PrependComment(_ context.Context, projectID, taskID string, c models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(projectID, taskID)
	if i < 0 {
		return taskNotFound(taskID)
	}
	store.PrependComment(&r.tasks[projectID][i], c)
	return nil
}
