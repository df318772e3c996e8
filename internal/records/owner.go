package records

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
)

// OwnerStore is the store contract scoped to one user's projects. Project
// arguments may be an id, a route or a name.
type OwnerStore struct {
	repo  Repository
	owner string
	now   func() time.Time
}

func NewOwnerStore(repo Repository, owner string) *OwnerStore {
	return &OwnerStore{repo: repo, owner: owner, now: time.Now}
}

var (
	_ store.Store        = (*OwnerStore)(nil)
	_ store.ProjectStore = (*OwnerStore)(nil)
	_ store.OwnedLister  = (*OwnerStore)(nil)
)

func (s *OwnerStore) Mode() store.Mode { return store.ModeRemote }

func (s *OwnerStore) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Project resolves ref to an owned project.
func (s *OwnerStore) Project(ctx context.Context, ref string) (*models.Project, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("project %q: %w", ref, store.ErrProjectNotFound)
	}
	return s.repo.ResolveProject(ctx, s.owner, ref)
}

func (s *OwnerStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.repo.ListProjects(ctx, s.owner)
}

func (s *OwnerStore) CreateProject(ctx context.Context, name, description string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", store.ErrValidation)
	}
	now := s.stamp()
	id := models.NewProjectID()
	p := models.Project{
		ID:          id,
		Name:        name,
		Description: description,
		Route:       models.Route(name, id),
		Owner:       s.owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertProject(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *OwnerStore) DeleteProject(ctx context.Context, ref string) error {
	p, err := s.Project(ctx, ref)
	if err != nil {
		return err
	}
	return s.repo.DeleteProject(ctx, s.owner, p.ID)
}

func (s *OwnerStore) List(ctx context.Context, ref string, f store.Filter) (*store.Page, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	p, err := s.Project(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTasks(ctx, p.ID, f.Normalized())
}

// ListOwned pages the tasks across all of the owner's projects.
func (s *OwnerStore) ListOwned(ctx context.Context, f store.Filter) (*store.Page, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListOwnedTasks(ctx, s.owner, f.Normalized())
}

func (s *OwnerStore) Get(ctx context.Context, ref, taskID string) (*models.Task, error) {
	p, err := s.Project(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.repo.GetTask(ctx, p.ID, taskID)
}

func (s *OwnerStore) Create(ctx context.Context, ref string, in store.NewTask) (*models.Task, error) {
	p, err := s.Project(ctx, ref)
	if err != nil {
		return nil, err
	}
	t, err := store.BuildTask(p.ID, in, s.stamp())
	if err != nil {
		return nil, err
	}
	if err := s.repo.InsertTask(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *OwnerStore) PatchStatus(ctx context.Context, ref, taskID, newStatus string) (*models.Task, error) {
	if _, err := store.ParseStatus(newStatus); err != nil {
		return nil, err
	}
	p, err := s.Project(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateTask(ctx, p.ID, taskID, func(t *models.Task) error {
		return store.SetStatus(t, newStatus, s.stamp())
	})
}

func (s *OwnerStore) PatchFields(ctx context.Context, ref, taskID string, f store.Fields) (*models.Task, error) {
	p, err := s.Project(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateTask(ctx, p.ID, taskID, func(t *models.Task) error {
		return store.ApplyFields(t, f, s.stamp())
	})
}

func (s *OwnerStore) Delete(ctx context.Context, ref, taskID string) error {
	p, err := s.Project(ctx, ref)
	if err != nil {
		return err
	}
	return s.repo.DeleteTask(ctx, p.ID, taskID)
}

func (s *OwnerStore) AppendComment(ctx context.Context, ref, taskID, author, text string) (*models.Comment, error) {
	c, err := store.BuildComment(taskID, author, text, s.stamp())
	if err != nil {
		return nil, err
	}
	p, err := s.Project(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.repo.PrependComment(ctx, p.ID, taskID, c); err != nil {
		return nil, err
	}
	return &c, nil
}
