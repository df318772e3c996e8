package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
)

// PgRepository is a PostgreSQL-backed repository.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a PgRepository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

var _ Repository = (*PgRepository)(nil)

// EnsureSchema creates the tables if they don't exist.
func (r *PgRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id          TEXT PRIMARY KEY,
			owner       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			route       TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id            TEXT PRIMARY KEY,
			project_id    TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			title         TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL,
			priority      TEXT NOT NULL,
			due_date      TIMESTAMPTZ,
			assigned_to   JSONB,
			documentation TEXT NOT NULL DEFAULT '',
			attachments   INTEGER NOT NULL DEFAULT 0,
			comments      JSONB NOT NULL DEFAULT '[]',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id, created_at DESC)`,
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// transient marks database failures the caller could not have caused.
func transient(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, store.ErrTransientIO)
}

func (r *PgRepository) CreateUser(ctx context.Context, u User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES ($1, lower($2), $3, $4, $5)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	if err != nil {
		return transient("create user", err)
	}
	return nil
}

func (r *PgRepository) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users WHERE email = lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, transient("get user", err)
	}
	return &u, nil
}

const projectColumns = `id, owner, name, description, route, created_at, updated_at`

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	if err := row.Scan(&p.ID, &p.Owner, &p.Name, &p.Description, &p.Route, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) ListProjects(ctx context.Context, owner string) ([]models.Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE owner = $1
		ORDER BY updated_at DESC, name ASC`, owner)
	if err != nil {
		return nil, transient("list projects", err)
	}
	defer rows.Close()

	out := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, transient("scan project", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, transient("list projects", err)
	}
	return out, nil
}

func (r *PgRepository) InsertProject(ctx context.Context, p models.Project) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Owner, p.Name, p.Description, p.Route, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return transient("create project", err)
	}
	return nil
}

func (r *PgRepository) ResolveProject(ctx context.Context, owner, ref string) (*models.Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE owner = $1 AND (id = $2 OR route = $2 OR lower(name) = lower($2))
		ORDER BY id = $2 DESC, route = $2 DESC
		LIMIT 1`, owner, ref))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", ref, store.ErrProjectNotFound)
	}
	if err != nil {
		return nil, transient("resolve project", err)
	}
	return p, nil
}

func (r *PgRepository) DeleteProject(ctx context.Context, owner, projectID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE owner = $1 AND id = $2`, owner, projectID)
	if err != nil {
		return transient("delete project", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", projectID, store.ErrProjectNotFound)
	}
	return nil
}

const taskColumns = `id, project_id, title, description, status, priority, due_date, assigned_to,
	documentation, attachments, comments, created_at, updated_at`

func scanTask(row pgx.Row, extra ...any) (*models.Task, error) {
	var (
		t        models.Task
		st, prio string
		assignee []byte
		comments []byte
	)
	dest := []any{&t.ID, &t.ProjectID, &t.Title, &t.Description, &st, &prio, &t.DueDate, &assignee,
		&t.Documentation, &t.Attachments, &comments, &t.CreatedAt, &t.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if err := t.Status.UnmarshalText([]byte(st)); err != nil {
		return nil, err
	}
	t.Priority = models.DefaultPriority
	if p, ok := models.ParsePriority(prio); ok {
		t.Priority = p
	}
	if len(assignee) > 0 && string(assignee) != "null" {
		var a models.Assignee
		if err := json.Unmarshal(assignee, &a); err == nil {
			t.AssignedTo = &a
		}
	}
	if err := json.Unmarshal(comments, &t.Comments); err != nil || t.Comments == nil {
		t.Comments = []models.Comment{}
	}
	return &t, nil
}

// sortExpr maps a normalized sort field onto SQL.
func sortExpr(field string) string {
	switch field {
	case "updatedAt":
		return "updated_at"
	case "dueDate":
		return "due_date"
	case "title":
		return "lower(title)"
	case "priority":
		return "CASE priority WHEN 'Low' THEN 1 WHEN 'Medium' THEN 2 WHEN 'High' THEN 3 ELSE 0 END"
	case "status":
		return "CASE status WHEN 'Backlog' THEN 0 WHEN 'Todo' THEN 1 WHEN 'In Progress' THEN 2 " +
			"WHEN 'In Review' THEN 3 WHEN 'Blocked' THEN 4 WHEN 'Completed' THEN 5 ELSE 1 END"
	default:
		return "created_at"
	}
}

func (r *PgRepository) ListTasks(ctx context.Context, projectID string, f store.Filter) (*store.Page, error) {
	return r.listTasks(ctx, "project_id = $1", projectID, f)
}

func (r *PgRepository) ListOwnedTasks(ctx context.Context, owner string, f store.Filter) (*store.Page, error) {
	return r.listTasks(ctx, "project_id IN (SELECT id FROM projects WHERE owner = $1)", owner, f)
}

// listTasks pages the tasks matching scope, a condition on $1, and f.
func (r *PgRepository) listTasks(ctx context.Context, scope string, scopeArg any, f store.Filter) (*store.Page, error) {
	f = f.Normalized()

	where := []string{scope}
	args := []any{scopeArg}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where = append(where, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		where = append(where, fmt.Sprintf("priority = $%d", len(args)))
	}

	field, dir, _ := strings.Cut(f.Sort, ":")
	dir = strings.ToUpper(dir)
	nulls := "NULLS LAST"
	if dir == "DESC" {
		nulls = "NULLS FIRST"
	}
	args = append(args, f.Limit, int64(f.Offset()))
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() FROM tasks
		WHERE %s
		ORDER BY %s %s %s, created_at %s, id %s
		LIMIT $%d OFFSET $%d`,
		taskColumns, strings.Join(where, " AND "), sortExpr(field), dir, nulls, dir, dir, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, transient("list tasks", err)
	}
	defer rows.Close()

	page := &store.Page{Items: []models.Task{}, Page: f.Page, Limit: f.Limit}
	for rows.Next() {
		var total int
		t, err := scanTask(rows, &total)
		if err != nil {
			return nil, transient("scan task", err)
		}
		page.Items = append(page.Items, *t)
		page.Total = total
	}
	if err := rows.Err(); err != nil {
		return nil, transient("list tasks", err)
	}
	if len(page.Items) == 0 && f.Page > 1 {
		// past the last page; the window function had no row to report on
		if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+strings.Join(where, " AND "),
			args[:len(args)-2]...).Scan(&page.Total); err != nil {
			return nil, transient("count tasks", err)
		}
	}
	return page, nil
}

func (r *PgRepository) GetTask(ctx context.Context, projectID, taskID string) (*models.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 AND id = $2`, projectID, taskID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, taskNotFound(taskID)
	}
	if err != nil {
		return nil, transient("get task", err)
	}
	return t, nil
}

func taskArgs(t *models.Task) ([]any, error) {
	var assignee []byte
	if t.AssignedTo != nil {
		var err error
		if assignee, err = json.Marshal(t.AssignedTo); err != nil {
			return nil, fmt.Errorf("marshal assignee: %w", err)
		}
	}
	comments := t.Comments
	if comments == nil {
		comments = []models.Comment{}
	}
	commentsJSON, err := json.Marshal(comments)
	if err != nil {
		return nil, fmt.Errorf("marshal comments: %w", err)
	}
	return []any{t.ID, t.ProjectID, t.Title, t.Description, string(t.Status), string(t.Priority), t.DueDate,
		assignee, t.Documentation, t.Attachments, string(commentsJSON), t.CreatedAt, t.UpdatedAt}, nil
}

func (r *PgRepository) InsertTask(ctx context.Context, t models.Task) error {
	args, err := taskArgs(&t)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11::jsonb, $12, $13)`, args...)
	if err != nil {
		return transient("create task", err)
	}
	return nil
}

func (r *PgRepository) UpdateTask(ctx context.Context, projectID, taskID string, fn func(*models.Task) error) (*models.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, transient("begin", err)
	}
	defer tx.Rollback(ctx)

	t, err := scanTask(tx.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 AND id = $2 FOR UPDATE`, projectID, taskID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, taskNotFound(taskID)
	}
	if err != nil {
		return nil, transient("get task", err)
	}
	if err := fn(t); err != nil {
		return nil, err
	}

	args, err := taskArgs(t)
	if err != nil {
		return nil, err
	}
	// created_at is never rewritten
	_, err = tx.Exec(ctx, `
		UPDATE tasks SET title = $3, description = $4, status = $5, priority = $6, due_date = $7,
			assigned_to = $8::jsonb, documentation = $9, attachments = $10, comments = $11::jsonb,
			updated_at = $12
		WHERE id = $1 AND project_id = $2`, append(args[:11:11], args[12])...)
	if err != nil {
		return nil, transient("update task", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, transient("commit", err)
	}
	return t, nil
}

func (r *PgRepository) DeleteTask(ctx context.Context, projectID, taskID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE project_id = $1 AND id = $2`, projectID, taskID)
	if err != nil {
		return transient("delete task", err)
	}
	if tag.RowsAffected() == 0 {
		return taskNotFound(taskID)
	}
	return nil
}

func (r *PgRepository) PrependComment(ctx context.Context, projectID, taskID string, c models.Comment) error {
	raw, err := json.Marshal([]models.Comment{c})
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET comments = $1::jsonb || comments, updated_at = $2
		WHERE project_id = $3 AND id = $4`, string(raw), c.CreatedAt, projectID, taskID)
	if err != nil {
		return transient("append comment", err)
	}
	if tag.RowsAffected() == 0 {
		return taskNotFound(taskID)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *PgRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.pool.Ping(ctx)
}
