// Package server is the task record service: an owner-scoped JSON API over a
// records.Repository, guarded by bearer session tokens.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/tgienger/taskflow/internal/auth"
	"github.com/tgienger/taskflow/internal/records"
)

// Options configures the service.
type Options struct {
	AllowedOrigins []string
	// AccessLog enables gin's request logger.
	AccessLog bool
}

// Server is the record service
type Server struct {
	repo   records.Repository
	tokens *auth.TokenManager
	router *gin.Engine
	opts   Options
}

// New creates the service and registers its routes
func New(repo records.Repository, tokens *auth.TokenManager, opts Options) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	if opts.AccessLog {
		router.Use(gin.Logger())
	}

	s := &Server{
		repo:   repo,
		tokens: tokens,
		router: router,
		opts:   opts,
	}

	router.GET("/api/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.POST("/auth/signup", s.handleSignup)
		api.POST("/auth/login", s.handleLogin)
	}

	authed := api.Group("", s.requireAuth)
	{
		authed.GET("/projects", s.handleListProjects)
		authed.POST("/projects", s.handleCreateProject)
		authed.DELETE("/projects/:projectId", s.handleDeleteProject)

		authed.GET("/tasks", s.handleListOwnedTasks)
		authed.GET("/projects/:projectId/tasks", s.handleListTasks)
		authed.POST("/projects/:projectId/tasks", s.handleCreateTask)
		authed.GET("/projects/:projectId/tasks/:taskId", s.handleGetTask)
		authed.PATCH("/projects/:projectId/tasks/:taskId", s.handlePatchFields)
		authed.DELETE("/projects/:projectId/tasks/:taskId", s.handleDeleteTask)
		authed.PATCH("/projects/:projectId/tasks/:taskId/status", s.handlePatchStatus)
		authed.POST("/projects/:projectId/tasks/:taskId/comments", s.handleAppendComment)
	}

	return s
}

// Handler returns the router wrapped in the CORS policy
func (s *Server) Handler() http.Handler {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("record service listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Printf("record service shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
