package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tgienger/taskflow/internal/auth"
	"github.com/tgienger/taskflow/internal/records"
	"github.com/tgienger/taskflow/internal/store"
)

// Credentials is the signup and login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Session is returned by signup and login.
type Session struct {
	Token string       `json:"token"`
	User  records.User `json:"user"`
}

// StatusPatch is the body of a status change.
type StatusPatch struct {
	Status string `json:"status"`
}

// CommentInput is the body of a new comment.
type CommentInput struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// ProjectInput is the body of a new project.
type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, fmt.Errorf("%w: %v", store.ErrValidation, err))
		return false
	}
	return true
}

func (s *Server) handleHealth(c *gin.Context) {
	if p, ok := s.repo.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			writeError(c, fmt.Errorf("database: %v: %w", err, store.ErrTransientIO))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSignup(c *gin.Context) {
	var in Credentials
	if !bind(c, &in) {
		return
	}
	email := strings.TrimSpace(in.Email)
	if !strings.Contains(email, "@") {
		writeError(c, fmt.Errorf("%w: a valid email is required", store.ErrValidation))
		return
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	u := records.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Email:        strings.ToLower(email),
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateUser(c.Request.Context(), u); err != nil {
		writeError(c, err)
		return
	}
	s.respondSession(c, http.StatusCreated, u)
}

func (s *Server) handleLogin(c *gin.Context) {
	var in Credentials
	if !bind(c, &in) {
		return
	}
	u, err := s.repo.UserByEmail(c.Request.Context(), strings.TrimSpace(in.Email))
	if errors.Is(err, records.ErrUserNotFound) {
		writeError(c, auth.ErrInvalidCredentials)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if err := auth.ComparePassword(u.PasswordHash, in.Password); err != nil {
		writeError(c, err)
		return
	}
	s.respondSession(c, http.StatusOK, *u)
}

func (s *Server) respondSession(c *gin.Context, code int, u records.User) {
	token, err := s.tokens.Issue(u.ID, u.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(code, Session{Token: token, User: u})
}

func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.ownerStore(c).ListProjects(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var in ProjectInput
	if !bind(c, &in) {
		return
	}
	p, err := s.ownerStore(c).CreateProject(c.Request.Context(), in.Name, in.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	if err := s.ownerStore(c).DeleteProject(c.Request.Context(), c.Param("projectId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", store.ErrValidation, name)
	}
	return n, nil
}

// listFilter reads the paging, filter and sort query parameters.
func listFilter(c *gin.Context) (store.Filter, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return store.Filter{}, err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return store.Filter{}, err
	}
	return store.Filter{
		Query:    c.Query("q"),
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Page:     page,
		Limit:    limit,
		Sort:     c.Query("sort"),
	}, nil
}

func (s *Server) handleListTasks(c *gin.Context) {
	f, err := listFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	p, err := s.ownerStore(c).List(c.Request.Context(), c.Param("projectId"), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleListOwnedTasks(c *gin.Context) {
	f, err := listFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	p, err := s.ownerStore(c).ListOwned(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var in store.NewTask
	if !bind(c, &in) {
		return
	}
	t, err := s.ownerStore(c).Create(c.Request.Context(), c.Param("projectId"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) handleGetTask(c *gin.Context) {
	t, err := s.ownerStore(c).Get(c.Request.Context(), c.Param("projectId"), c.Param("taskId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handlePatchFields(c *gin.Context) {
	var f store.Fields
	if !bind(c, &f) {
		return
	}
	t, err := s.ownerStore(c).PatchFields(c.Request.Context(), c.Param("projectId"), c.Param("taskId"), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handlePatchStatus(c *gin.Context) {
	var in StatusPatch
	if !bind(c, &in) {
		return
	}
	t, err := s.ownerStore(c).PatchStatus(c.Request.Context(), c.Param("projectId"), c.Param("taskId"), in.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.ownerStore(c).Delete(c.Request.Context(), c.Param("projectId"), c.Param("taskId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) handleAppendComment(c *gin.Context) {
	var in CommentInput
	if !bind(c, &in) {
		return
	}
	cm, err := s.ownerStore(c).AppendComment(c.Request.Context(), c.Param("projectId"), c.Param("taskId"), in.Author, in.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}
