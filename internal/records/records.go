// Package records is the persistence layer of the task record service.
// Tasks, projects and users are kept in a Repository; OwnerStore exposes one
// user's slice of it through the store contract.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// User is an account of the record service.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Repository stores users, projects and tasks. Task methods address a task
// by project and id; a task id under another project is not found.
type Repository interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (*User, error)

	ListProjects(ctx context.Context, owner string) ([]models.Project, error)
	InsertProject(ctx context.Context, p models.Project) error
	// ResolveProject finds an owned project by id, route or name.
	ResolveProject(ctx context.Context, owner, ref string) (*models.Project, error)
	// DeleteProject removes the project and its tasks.
	DeleteProject(ctx context.Context, owner, projectID string) error

	ListTasks(ctx context.Context, projectID string, f store.Filter) (*store.Page, error)
	// ListOwnedTasks pages the tasks of every project the owner holds.
	ListOwnedTasks(ctx context.Context, owner string, f store.Filter) (*store.Page, error)
	GetTask(ctx context.Context, projectID, taskID string) (*models.Task, error)
	InsertTask(ctx context.Context, t models.Task) error
	// UpdateTask applies fn to the stored task and saves the result
	// atomically. Nothing is saved when fn fails.
	UpdateTask(ctx context.Context, projectID, taskID string, fn func(*models.Task) error) (*models.Task, error)
	DeleteTask(ctx context.Context, projectID, taskID string) error
	// PrependComment puts c first in the task's comments and stamps the task
	// in one write.
	PrependComment(ctx context.Context, projectID, taskID string, c models.Comment) error
}
