// Package store defines the task store contract shared by the local mirror
// and the remote record service client, together with the mutation rules
// both of them apply
package store

import (
	"context"
	"strings"
	"time"

	"github.com/tgienger/taskflow/internal/models"
)

// Mode is the backing medium a Store was constructed with
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// Store is the uniform task contract every view depends on. An instance is
// bound to exactly one Mode for its lifetime
type Store interface {
	Mode() Mode

	// List returns one page of the project's tasks and the total match count
	List(ctx context.Context, projectID string, f Filter) (*Page, error)
	// Get returns a single task
	Get(ctx context.Context, projectID, taskID string) (*models.Task, error)
	// Create adds a task to the project
	Create(ctx context.Context, projectID string, in NewTask) (*models.Task, error)
	// PatchStatus moves a task to a canonical status
	PatchStatus(ctx context.Context, projectID, taskID, newStatus string) (*models.Task, error)
	// PatchFields merges the set fields into the task
	PatchFields(ctx context.Context, projectID, taskID string, f Fields) (*models.Task, error)
	// Delete removes a task
	Delete(ctx context.Context, projectID, taskID string) error
	// AppendComment prepends a comment to the task
	AppendComment(ctx context.Context, projectID, taskID, author, text string) (*models.Comment, error)
}

// ProjectStore lists and manages the projects tasks belong to
type ProjectStore interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	CreateProject(ctx context.Context, name, description string) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// OwnedLister lists tasks across every project the caller owns
type OwnedLister interface {
	ListOwned(ctx context.Context, f Filter) (*Page, error)
}

// Page is one window of a task listing
type Page struct {
	Items []models.Task `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// NewTask holds the fields accepted at creation. Status and Priority are raw
// strings so callers can pass user input; empty values take the defaults
type NewTask struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Status      string           `json:"status,omitempty"`
	Priority    string           `json:"priority,omitempty"`
	DueDate     *time.Time       `json:"dueDate,omitempty"`
	AssignedTo  *models.Assignee `json:"assignedTo,omitempty"`
}

// Fields is a partial task update. Nil pointers leave the field alone.
// Identity fields (id, projectId, createdAt) cannot be expressed here
type Fields struct {
	Title         *string          `json:"title,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Documentation *string          `json:"documentation,omitempty"`
	DueDate       *time.Time       `json:"dueDate,omitempty"`
	ClearDueDate  bool             `json:"clearDueDate,omitempty"`
	Priority      *string          `json:"priority,omitempty"`
	AssignedTo    *models.Assignee `json:"assignedTo,omitempty"`
	ClearAssignee bool             `json:"clearAssignee,omitempty"`
	Attachments   *int             `json:"attachments,omitempty"`
}

// Empty reports whether f changes nothing
func (f Fields) Empty() bool {
	return f.Title == nil && f.Description == nil && f.Documentation == nil &&
		f.DueDate == nil && !f.ClearDueDate && f.Priority == nil &&
		f.AssignedTo == nil && !f.ClearAssignee && f.Attachments == nil
}

// ListAll pages through a project's whole collection in the default sort
func ListAll(ctx context.Context, s Store, projectID string) ([]models.Task, error) {
	var all []models.Task
	for page := 1; ; page++ {
		p, err := s.List(ctx, projectID, Filter{Page: page, Limit: MaxLimit})
		if err != nil {
			return nil, err
		}
		all = append(all, p.Items...)
		if len(p.Items) == 0 || len(all) >= p.Total {
			return all, nil
		}
	}
}

// ListAcross applies f to the union of the given projects' tasks
func ListAcross(ctx context.Context, s Store, projectIDs []string, f Filter) (*Page, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var all []models.Task
	for _, id := range projectIDs {
		tasks, err := ListAll(ctx, s, id)
		if err != nil {
			return nil, err
		}
		all = append(all, tasks...)
	}
	return Apply(all, f)
}

const slotPrefix = "tasks-"

// SlotKey is the local storage key holding a project's task collection
func SlotKey(projectID string) string {
	return slotPrefix + ProjectOrGlobal(projectID)
}

// ProjectFromKey reverses SlotKey. ok is false for keys that hold no tasks
func ProjectFromKey(key string) (projectID string, ok bool) {
	projectID, ok = strings.CutPrefix(key, slotPrefix)
	return projectID, ok && projectID != ""
}
