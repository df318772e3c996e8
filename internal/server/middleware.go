package server

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/tgienger/taskflow/internal/auth"
	"github.com/tgienger/taskflow/internal/records"
	"github.com/tgienger/taskflow/internal/store"
)

const ownerKey = "owner"

// requireAuth rejects requests without a valid bearer token and records the
// caller's user id.
func (s *Server) requireAuth(c *gin.Context) {
	raw, err := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
	if err != nil {
		writeError(c, fmt.Errorf("%v: %w", err, store.ErrNotAuthenticated))
		return
	}
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		writeError(c, fmt.Errorf("%v: %w", err, store.ErrNotAuthenticated))
		return
	}
	c.Set(ownerKey, claims.Subject)
	c.Next()
}

// ownerStore returns the store scoped to the authenticated caller.
func (s *Server) ownerStore(c *gin.Context) *records.OwnerStore {
	return records.NewOwnerStore(s.repo, c.GetString(ownerKey))
}
