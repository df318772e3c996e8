package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tgienger/taskflow/internal/activity"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
)

// CreateProject creates a new project
func (db *DB) CreateProject(ctx context.Context, name, description string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", store.ErrValidation)
	}

	id := models.NewProjectID()
	_, err := db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, route) VALUES (?, ?, ?, ?)
	`, id, name, description, models.Route(name, id))
	if err != nil {
		return nil, err
	}

	return db.GetProject(ctx, id)
}

// GetProject retrieves a project by ID
func (db *DB) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p := &models.Project{}
	err := db.QueryRowContext(ctx, `
		SELECT id, name, description, route, created_at, updated_at
		FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.Route, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %s: %w", id, store.ErrProjectNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ResolveProject finds a project by id, route or case-insensitive name
func (db *DB) ResolveProject(ctx context.Context, ref string) (*models.Project, error) {
	p := &models.Project{}
	err := db.QueryRowContext(ctx, `
		SELECT id, name, description, route, created_at, updated_at
		FROM projects WHERE id = ? OR route = ? OR lower(name) = lower(?)
		ORDER BY id = ? DESC, route = ? DESC
		LIMIT 1
	`, ref, ref, ref, ref, ref).Scan(&p.ID, &p.Name, &p.Description, &p.Route, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %s: %w", ref, store.ErrProjectNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProjects returns all projects
func (db *DB) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, description, route, created_at, updated_at
		FROM projects ORDER BY updated_at DESC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Route, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject updates a project's name and description
func (db *DB) UpdateProject(ctx context.Context, id, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: project name is required", store.ErrValidation)
	}
	_, err := db.ExecContext(ctx, `
		UPDATE projects SET name = ?, description = ?, route = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, name, description, models.Route(name, id), id)
	return err
}

// TouchProject bumps a project's updated_at so recently used projects list first
func (db *DB) TouchProject(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, "UPDATE projects SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	return err
}

// DeleteProject deletes a project and its task collection
func (db *DB) DeleteProject(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM slots WHERE key IN (?, ?, ?)",
		store.SlotKey(id), activity.EntriesKey(id), activity.TimelineKey(id)); err != nil {
		return err
	}
	if _, err := logChange(ctx, tx, store.SlotKey(id), db.writer); err != nil {
		return err
	}
	return tx.Commit()
}
