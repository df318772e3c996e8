package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskflow/internal/auth"
	"github.com/tgienger/taskflow/internal/records"
	"github.com/tgienger/taskflow/internal/server"
	"github.com/tgienger/taskflow/internal/store"
	"github.com/tgienger/taskflow/internal/store/storetest"
)

func newService(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := server.New(records.NewMemoryRepository(), auth.NewTokenManager("test-secret", time.Hour), server.Options{})
	ts := httptest.NewServer(svc.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func signedIn(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()
	c := New(ts.URL, "")
	_, err := c.Signup(context.Background(), "ann@example.com", "password123", "Ann")
	require.NoError(t, err)
	return c
}

func TestClientContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (store.Store, string) {
		c := signedIn(t, newService(t))
		p, err := c.CreateProject(context.Background(), "Launch", "")
		require.NoError(t, err)
		return c, p.ID
	})
}

func TestListOwned(t *testing.T) {
	ctx := context.Background()
	c := signedIn(t, newService(t))
	a, err := c.CreateProject(ctx, "A", "")
	require.NoError(t, err)
	b, err := c.CreateProject(ctx, "B", "")
	require.NoError(t, err)
	_, err = c.Create(ctx, a.ID, store.NewTask{Title: "alpha"})
	require.NoError(t, err)
	_, err = c.Create(ctx, b.ID, store.NewTask{Title: "beta", Priority: "High"})
	require.NoError(t, err)

	page, err := c.ListOwned(ctx, store.Filter{Sort: "title:asc"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "alpha", page.Items[0].Title)
	assert.Equal(t, b.ID, page.Items[1].ProjectID)

	page, err = c.ListOwned(ctx, store.Filter{Priority: "high"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "beta", page.Items[0].Title)

	_, err = c.ListOwned(ctx, store.Filter{Status: "someday"})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestNoTokenSendsNothing(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer ts.Close()

	c := New(ts.URL, "")
	_, err := c.List(context.Background(), "p", store.Filter{})
	assert.ErrorIs(t, err, store.ErrNotAuthenticated)
	assert.ErrorIs(t, c.Delete(context.Background(), "p", "t"), store.ErrNotAuthenticated)
	assert.Zero(t, hits.Load())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	ts := newService(t)
	signedIn(t, ts)

	c := New(ts.URL, "")
	s, err := c.Login(ctx, "ann@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "Ann", s.User.Name)
	assert.Equal(t, s.Token, c.Token())

	_, err = c.Login(ctx, "ann@example.com", "nope-nope-nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = c.Signup(ctx, "ann@example.com", "password123", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestExpiredSession(t *testing.T) {
	c := New(newService(t).URL, "not-a-token")
	_, err := c.ListProjects(context.Background())
	assert.ErrorIs(t, err, store.ErrNotAuthenticated)
}

func TestErrorMapping(t *testing.T) {
	ctx := context.Background()
	c := signedIn(t, newService(t))
	p, err := c.CreateProject(ctx, "Launch", "")
	require.NoError(t, err)

	_, err = c.Get(ctx, "missing", "t1")
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
	_, err = c.Get(ctx, p.ID, "t1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NotErrorIs(t, err, store.ErrProjectNotFound)

	_, err = c.Create(ctx, p.ID, store.NewTask{Title: ""})
	assert.ErrorIs(t, err, store.ErrValidation)

	require.NoError(t, c.DeleteProject(ctx, p.ID))
	projects, err := c.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestTransientFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	c := New(ts.URL, "token")
	_, err := c.Get(context.Background(), "p", "t")
	assert.ErrorIs(t, err, store.ErrTransientIO)
	assert.True(t, store.IsRetryable(err))

	ts.Close()
	_, err = c.Get(context.Background(), "p", "t")
	assert.ErrorIs(t, err, store.ErrTransientIO)
}
