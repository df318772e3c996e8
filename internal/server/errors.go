package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tgienger/taskflow/internal/auth"
	"github.com/tgienger/taskflow/internal/records"
	"github.com/tgienger/taskflow/internal/store"
)

// Error codes sent in the "code" field of error bodies.
const (
	CodeValidation         = "validation"
	CodeNotAuthenticated   = "not_authenticated"
	CodeInvalidCredentials = "invalid_credentials"
	CodeNotFound           = "not_found"
	CodeProjectNotFound    = "project_not_found"
	CodeEmailTaken         = "email_taken"
	CodeUnavailable        = "unavailable"
	CodeInternal           = "internal"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrValidation), errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, CodeInvalidCredentials
	case errors.Is(err, store.ErrNotAuthenticated):
		return http.StatusUnauthorized, CodeNotAuthenticated
	case errors.Is(err, store.ErrProjectNotFound):
		return http.StatusNotFound, CodeProjectNotFound
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, records.ErrEmailTaken):
		return http.StatusConflict, CodeEmailTaken
	case errors.Is(err, store.ErrTransientIO):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeError(c *gin.Context, err error) {
	code, name := classify(err)
	if code >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(code, ErrorBody{Error: err.Error(), Code: name})
}
