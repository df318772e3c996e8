// Package remote is the store client for the task record service
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
)

const defaultTimeout = 15 * time.Second

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned by Signup when the email is registered
	ErrEmailTaken = errors.New("email already registered")
)

// User is the account returned with a session
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session is a signed-in user and their bearer token
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Client talks to the record service over HTTP. It is safe for concurrent
// use; the token may be changed at any time
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the service at baseURL, e.g.
// "https://tasks.example.com". token may be empty until Login
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		token:   token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ store.Store        = (*Client)(nil)
	_ store.ProjectStore = (*Client)(nil)
	_ store.OwnedLister  = (*Client)(nil)
)

func (c *Client) Mode() store.Mode { return store.ModeRemote }

// Token returns the current session token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the session token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Signup registers an account and keeps its token
func (c *Client) Signup(ctx context.Context, email, password, name string) (*Session, error) {
	return c.session(ctx, "/api/auth/signup", map[string]string{"email": email, "password": password, "name": name})
}

// Login signs in and keeps the session token
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.session(ctx, "/api/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) session(ctx context.Context, path string, body any) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, path, nil, body, &s, false); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	return &s, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProject(ctx context.Context, name, description string) (*models.Project, error) {
	var p models.Project
	body := map[string]string{"name": name, "description": description}
	if err := c.do(ctx, http.MethodPost, "/api/projects", nil, body, &p, true); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(projectID), nil, nil, nil, true)
}

func tasksPath(projectID string) string {
	return "/api/projects/" + url.PathEscape(store.ProjectOrGlobal(projectID)) + "/tasks"
}

func taskPath(projectID, taskID string) string {
	return tasksPath(projectID) + "/" + url.PathEscape(taskID)
}

func (c *Client) List(ctx context.Context, projectID string, f store.Filter) (*store.Page, error) {
	return c.listPage(ctx, tasksPath(projectID), f)
}

// ListOwned pages the tasks of every project the signed-in user owns
func (c *Client) ListOwned(ctx context.Context, f store.Filter) (*store.Page, error) {
	return c.listPage(ctx, "/api/tasks", f)
}

func (c *Client) listPage(ctx context.Context, path string, f store.Filter) (*store.Page, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f = f.Normalized()
	q := url.Values{}
	q.Set("page", strconv.Itoa(f.Page))
	q.Set("limit", strconv.Itoa(f.Limit))
	q.Set("sort", f.Sort)
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Priority != "" {
		q.Set("priority", f.Priority)
	}
	var p store.Page
	if err := c.do(ctx, http.MethodGet, path, q, nil, &p, true); err != nil {
		return nil, err
	}
	if p.Items == nil {
		p.Items = []models.Task{}
	}
	return &p, nil
}

func (c *Client) Get(ctx context.Context, projectID, taskID string) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, http.MethodGet, taskPath(projectID, taskID), nil, nil, &t, true); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) Create(ctx context.Context, projectID string, in store.NewTask) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, http.MethodPost, tasksPath(projectID), nil, in, &t, true); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) PatchStatus(ctx context.Context, projectID, taskID, newStatus string) (*models.Task, error) {
	if _, err := store.ParseStatus(newStatus); err != nil {
		return nil, err
	}
	var t models.Task
	body := map[string]string{"status": newStatus}
	if err := c.do(ctx, http.MethodPatch, taskPath(projectID, taskID)+"/status", nil, body, &t, true); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) PatchFields(ctx context.Context, projectID, taskID string, f store.Fields) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, http.MethodPatch, taskPath(projectID, taskID), nil, f, &t, true); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) Delete(ctx context.Context, projectID, taskID string) error {
	return c.do(ctx, http.MethodDelete, taskPath(projectID, taskID), nil, nil, nil, true)
}

func (c *Client) AppendComment(ctx context.Context, projectID, taskID, author, text string) (*models.Comment, error) {
	var cm models.Comment
	body := map[string]string{"author": author, "text": text}
	if err := c.do(ctx, http.MethodPost, taskPath(projectID, taskID)+"/comments", nil, body, &cm, true); err != nil {
		return nil, err
	}
	return &cm, nil
}

// do sends one request and decodes a 2xx body into out. Requests that need
// a session fail with store.ErrNotAuthenticated before any I/O when no token
// is set
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, authed bool) error {
	token := c.Token()
	if authed && token == "" {
		return store.ErrNotAuthenticated
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %v: %w", method, path, err, store.ErrTransientIO)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %v: %w", method, path, err, store.ErrTransientIO)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %v: %w", err, store.ErrTransientIO)
	}
	return nil
}

// responseError maps a non-2xx response to the store error taxonomy
func responseError(code int, data []byte) error {
	var body errorBody
	_ = json.Unmarshal(data, &body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch {
	case code == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", store.ErrValidation, msg)
	case code == http.StatusUnauthorized && body.Code == "invalid_credentials":
		return ErrInvalidCredentials
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, store.ErrNotAuthenticated)
	case code == http.StatusNotFound && body.Code == "project_not_found":
		return fmt.Errorf("%s: %w", msg, store.ErrProjectNotFound)
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, store.ErrNotFound)
	case code == http.StatusConflict:
		return ErrEmailTaken
	case code >= http.StatusInternalServerError, code == http.StatusTooManyRequests:
		return fmt.Errorf("server returned %d: %s: %w", code, msg, store.ErrTransientIO)
	default:
		return fmt.Errorf("unexpected status %d: %s", code, msg)
	}
}
