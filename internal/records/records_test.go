package records

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskflow/internal/store"
	"github.com/tgienger/taskflow/internal/store/storetest"
)

func TestOwnerStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (store.Store, string) {
		s := NewOwnerStore(NewMemoryRepository(), "user-1")
		p, err := s.CreateProject(context.Background(), "Launch", "")
		require.NoError(t, err)
		return s, p.ID
	})
}

func TestProjectResolution(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	ann := NewOwnerStore(repo, "ann")
	bob := NewOwnerStore(repo, "bob")

	p, err := ann.CreateProject(ctx, "Q3 Launch", "")
	require.NoError(t, err)
	assert.Equal(t, "q3-launch", p.Route)
	assert.Equal(t, "ann", p.Owner)

	for _, ref := range []string{p.ID, "q3-launch", "q3 launch"} {
		got, err := ann.Project(ctx, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, p.ID, got.ID)
	}

	_, err = bob.Project(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
	_, err = bob.List(ctx, p.ID, store.Filter{})
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
	_, err = bob.Create(ctx, p.ID, store.NewTask{Title: "sneaky"})
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
	_, err = ann.Project(ctx, "")
	assert.ErrorIs(t, err, store.ErrProjectNotFound)

	projects, err := bob.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestProjectRoutesNeverEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewOwnerStore(NewMemoryRepository(), "ann")
	cyrillic, err := s.CreateProject(ctx, "Проект", "")
	require.NoError(t, err)
	assert.Equal(t, "proekt", cyrillic.Route)

	a, err := s.CreateProject(ctx, "!!!", "")
	require.NoError(t, err)
	b, err := s.CreateProject(ctx, "???", "")
	require.NoError(t, err)
	assert.NotEmpty(t, a.Route)
	assert.NotEqual(t, a.Route, b.Route)

	got, err := s.Project(ctx, b.Route)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestTasksAreScopedToTheirProject(t *testing.T) {
	ctx := context.Background()
	s := NewOwnerStore(NewMemoryRepository(), "ann")
	a, err := s.CreateProject(ctx, "A", "")
	require.NoError(t, err)
	b, err := s.CreateProject(ctx, "B", "")
	require.NoError(t, err)

	task, err := s.Create(ctx, a.ID, store.NewTask{Title: "in a"})
	require.NoError(t, err)

	_, err = s.Get(ctx, b.ID, task.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, b.ID, task.ID), store.ErrNotFound)
}

func TestListOwnedSpansOwnProjects(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	ann := NewOwnerStore(repo, "ann")
	bob := NewOwnerStore(repo, "bob")
	a, err := ann.CreateProject(ctx, "A", "")
	require.NoError(t, err)
	b, err := ann.CreateProject(ctx, "B", "")
	require.NoError(t, err)
	theirs, err := bob.CreateProject(ctx, "Theirs", "")
	require.NoError(t, err)

	for _, c := range []struct {
		project, title, status string
	}{
		{a.ID, "draft", "Todo"},
		{b.ID, "deploy", "Completed"},
		{b.ID, "design", "Todo"},
		{theirs.ID, "hidden", "Todo"},
	} {
		_, err := ann.Create(ctx, c.project, store.NewTask{Title: c.title, Status: c.status})
		if c.project == theirs.ID {
			require.ErrorIs(t, err, store.ErrProjectNotFound)
			_, err = bob.Create(ctx, c.project, store.NewTask{Title: c.title, Status: c.status})
		}
		require.NoError(t, err)
	}

	page, err := ann.ListOwned(ctx, store.Filter{Sort: "title:asc"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	titles := []string{}
	for _, task := range page.Items {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"deploy", "design", "draft"}, titles)

	page, err = ann.ListOwned(ctx, store.Filter{Status: "todo", Query: "D", Limit: 1, Page: 2, Sort: "title:asc"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "draft", page.Items[0].Title)
	assert.Equal(t, a.ID, page.Items[0].ProjectID)

	_, err = ann.ListOwned(ctx, store.Filter{Priority: "urgent"})
	assert.ErrorIs(t, err, store.ErrValidation)

	none, err := NewOwnerStore(repo, "carol").ListOwned(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
	assert.NotNil(t, none.Items)
}

func TestDeleteProjectDropsTasks(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	s := NewOwnerStore(repo, "ann")
	p, err := s.CreateProject(ctx, "Gone soon", "")
	require.NoError(t, err)
	_, err = s.Create(ctx, p.ID, store.NewTask{Title: "x"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteProject(ctx, "gone-soon"))
	_, err = s.List(ctx, p.ID, store.Filter{})
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
	assert.Empty(t, repo.tasks[p.ID])
	assert.ErrorIs(t, s.DeleteProject(ctx, p.ID), store.ErrProjectNotFound)
}

func TestCreateProjectValidates(t *testing.T) {
	_, err := NewOwnerStore(NewMemoryRepository(), "ann").CreateProject(context.Background(), " ", "")
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.CreateUser(ctx, User{ID: "u1", Email: "Ann@Example.com"}))
	assert.ErrorIs(t, repo.CreateUser(ctx, User{ID: "u2", Email: "ann@example.com"}), ErrEmailTaken)

	u, err := repo.UserByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = repo.UserByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
