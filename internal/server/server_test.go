package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskflow/internal/auth"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/records"
	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/store"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := New(records.NewMemoryRepository(), auth.NewTokenManager("test-secret", time.Hour), Options{})
	return &testServer{t: t, handler: s.Handler()}
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) signup(email string) {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/api/auth/signup", Credentials{Email: email, Password: "password123"})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	ts.token = decode[Session](ts.t, w).Token
}

func (ts *testServer) project(name string) models.Project {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/api/projects", ProjectInput{Name: name})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Project](ts.t, w)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignupAndLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("ann@example.com")

	w := ts.do(http.MethodPost, "/api/auth/signup", Credentials{Email: "ANN@example.com", Password: "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeEmailTaken, decode[ErrorBody](t, w).Code)

	w = ts.do(http.MethodPost, "/api/auth/signup", Credentials{Email: "bob@example.com", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/auth/login", Credentials{Email: "ann@example.com", Password: "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	sess := decode[Session](t, w)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "ann", sess.User.Name)

	w = ts.do(http.MethodPost, "/api/auth/login", Credentials{Email: "ann@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeInvalidCredentials, decode[ErrorBody](t, w).Code)

	w = ts.do(http.MethodPost, "/api/auth/login", Credentials{Email: "nobody@example.com", Password: "password123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeNotAuthenticated, decode[ErrorBody](t, w).Code)

	ts.token = "forged"
	w = ts.do(http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTaskLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("ann@example.com")
	p := ts.project("Launch")
	base := "/api/projects/" + p.ID + "/tasks"

	w := ts.do(http.MethodPost, base, store.NewTask{Title: "Write notes", Priority: "High"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode[models.Task](t, w)
	assert.Equal(t, status.Todo, task.Status)

	w = ts.do(http.MethodPatch, base+"/"+task.ID+"/status", StatusPatch{Status: "in progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, status.InProgress, decode[models.Task](t, w).Status)

	w = ts.do(http.MethodPatch, base+"/"+task.ID+"/status", StatusPatch{Status: "eventually"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, decode[ErrorBody](t, w).Code)

	w = ts.do(http.MethodPost, base+"/"+task.ID+"/comments", CommentInput{Author: "Ann", Text: "Looks good"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(http.MethodGet, "/api/projects/launch/tasks?status=In%20Progress&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[store.Page](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "Looks good", page.Items[0].Comments[0].Text)

	w = ts.do(http.MethodGet, base+"?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodDelete, base+"/"+task.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodDelete, base+"/"+task.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decode[ErrorBody](t, w).Code)
}

func TestProjectNotFoundAndOwnership(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("ann@example.com")
	p := ts.project("Private")

	other := &testServer{t: t, handler: ts.handler}
	other.signup("bob@example.com")

	w := other.do(http.MethodGet, "/api/projects/"+p.ID+"/tasks", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeProjectNotFound, decode[ErrorBody](t, w).Code)

	w = ts.do(http.MethodGet, "/api/projects/"+p.ID+"/tasks/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decode[ErrorBody](t, w).Code)

	w = ts.do(http.MethodPost, "/api/projects/"+p.ID+"/tasks", map[string]string{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Project](t, w), 1)

	w = ts.do(http.MethodDelete, "/api/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodGet, "/api/projects", nil)
	assert.Empty(t, decode[[]models.Project](t, w))
}

func TestListOwnedTasksAcrossProjects(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("ann@example.com")
	launch := ts.project("Launch")
	docs := ts.project("Docs")

	for _, in := range []struct {
		project  string
		title    string
		priority string
	}{
		{launch.ID, "Ship build", "High"},
		{launch.ID, "Write notes", "Low"},
		{docs.ID, "Review guide", "High"},
	} {
		w := ts.do(http.MethodPost, "/api/projects/"+in.project+"/tasks", store.NewTask{Title: in.title, Priority: in.priority})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	other := &testServer{t: t, handler: ts.handler}
	other.signup("bob@example.com")
	mine := other.project("Mine")
	w := other.do(http.MethodPost, "/api/projects/"+mine.ID+"/tasks", store.NewTask{Title: "Bob's task"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(http.MethodGet, "/api/tasks?sort=title:asc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode[store.Page](t, w)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "Review guide", page.Items[0].Title)
	assert.Equal(t, docs.ID, page.Items[0].ProjectID)
	assert.Equal(t, "Ship build", page.Items[1].Title)
	assert.Equal(t, "Write notes", page.Items[2].Title)

	w = ts.do(http.MethodGet, "/api/tasks?priority=High&sort=title:desc&limit=1&page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[store.Page](t, w)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Limit)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Review guide", page.Items[0].Title)

	w = ts.do(http.MethodGet, "/api/tasks?q=NOTES", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[store.Page](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, launch.ID, page.Items[0].ProjectID)

	w = ts.do(http.MethodGet, "/api/tasks?status=someday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, decode[ErrorBody](t, w).Code)

	w = ts.do(http.MethodGet, "/api/tasks?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = other.do(http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[store.Page](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Bob's task", page.Items[0].Title)

	anon := &testServer{t: t, handler: ts.handler}
	w = anon.do(http.MethodGet, "/api/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClassify(t *testing.T) {
	code, name := classify(store.ErrTransientIO)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, CodeUnavailable, name)
	code, _ = classify(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, code)
}
