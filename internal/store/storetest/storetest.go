// Package storetest runs the behaviour every store.Store must share against
// an implementation
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/store"
)

// Factory returns a fresh store and the id of an empty project it can write to
type Factory func(t *testing.T) (s store.Store, projectID string)

// Run exercises s through the full task contract
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateThenList", func(t *testing.T) { testCreateThenList(t, newStore) })
	t.Run("Scenario", func(t *testing.T) { testScenario(t, newStore) })
	t.Run("StatusFilter", func(t *testing.T) { testStatusFilter(t, newStore) })
	t.Run("Validation", func(t *testing.T) { testValidation(t, newStore) })
	t.Run("PatchFields", func(t *testing.T) { testPatchFields(t, newStore) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore) })
	t.Run("UnknownTask", func(t *testing.T) { testUnknownTask(t, newStore) })
	t.Run("ListAll", func(t *testing.T) { testListAll(t, newStore) })
}

func testCreateThenList(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, pid := newStore(t)
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	created, err := s.Create(ctx, pid, store.NewTask{Title: "Ship it", Priority: "Low", DueDate: &due})
	require.NoError(t, err)

	page, err := s.List(ctx, pid, store.Filter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	got := page.Items[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Ship it", got.Title)
	assert.Equal(t, models.PriorityLow, got.Priority)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
	assert.Equal(t, status.Initial, got.Status)
	assert.Equal(t, 1, page.Total)
}

func testScenario(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, pid := newStore(t)

	task, err := s.Create(ctx, pid, store.NewTask{Title: "Write spec", Priority: "High"})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, status.Todo, task.Status)
	assert.Equal(t, models.PriorityHigh, task.Priority)

	moved, err := s.PatchStatus(ctx, pid, task.ID, "in progress")
	require.NoError(t, err)
	assert.Equal(t, status.InProgress, moved.Status)

	page, err := s.List(ctx, pid, store.Filter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, status.InProgress, page.Items[0].Status)

	c, err := s.AppendComment(ctx, pid, task.ID, "Ann", "Looks good")
	require.NoError(t, err)
	assert.Equal(t, task.ID, c.TaskID)

	_, err = s.AppendComment(ctx, pid, task.ID, "Bob", "Second")
	require.NoError(t, err)

	got, err := s.Get(ctx, pid, task.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "Second", got.Comments[0].Text)
	assert.Equal(t, "Looks good", got.Comments[1].Text)
	assert.Equal(t, "Ann", got.Comments[1].Author)
	assert.Equal(t, status.InProgress, got.Status)
}

func testStatusFilter(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, pid := newStore(t)
	for i := 0; i < 10; i++ {
		st := "Todo"
		if i < 3 {
			st = "Completed"
		}
		_, err := s.Create(ctx, pid, store.NewTask{Title: fmt.Sprintf("task %d", i), Status: st})
		require.NoError(t, err)
	}

	page, err := s.List(ctx, pid, store.Filter{Status: "Completed", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 3, page.Total)

	page, err = s.List(ctx, pid, store.Filter{Page: 2, Limit: 4})
	require.NoError(t, err)
	assert.Len(t, page.Items, 4)
	assert.Equal(t, 10, page.Total)
}

func testValidation(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, pid := newStore(t)

	_, err := s.Create(ctx, pid, store.NewTask{Title: "   "})
	assert.ErrorIs(t, err, store.ErrValidation)

	task, err := s.Create(ctx, pid, store.NewTask{Title: "ok"})
	require.NoError(t, err)

	_, err = s.PatchStatus(ctx, pid, task.ID, "someday")
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = s.AppendComment(ctx, pid, task.ID, "Ann", " \n ")
	assert.ErrorIs(t, err, store.ErrValidation)

	got, err := s.Get(ctx, pid, task.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Initial, got.Status)
	assert.Empty(t, got.Comments)
}

func testPatchFields(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, pid := newStore(t)
	task, err := s.Create(ctx, pid, store.NewTask{Title: "edit me"})
	require.NoError(t, err)

	doc := "# Notes"
	prio := "high"
	n := 2
	got, err := s.PatchFields(ctx, pid, task.ID, store.Fields{
		Documentation: &doc,
		Priority:      &prio,
		Attachments:   &n,
		AssignedTo:    &models.Assignee{Name: "Ann Lee"},
	})
	require.NoError(t, err)
	assert.Equal(t, doc, got.Documentation)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, 2, got.Attachments)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, "AL", got.AssignedTo.Initials)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.ProjectID, got.ProjectID)
	assert.True(t, task.CreatedAt.Equal(got.CreatedAt))
	assert.False(t, got.UpdatedAt.Before(task.UpdatedAt))
}

func testDelete(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, pid := newStore(t)
	keep, err := s.Create(ctx, pid, store.NewTask{Title: "keep"})
	require.NoError(t, err)
	gone, err := s.Create(ctx, pid, store.NewTask{Title: "gone"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, pid, gone.ID))

	err = s.Delete(ctx, pid, gone.ID)
	if s.Mode() == store.ModeLocal {
		assert.NoError(t, err)
	} else {
		assert.ErrorIs(t, err, store.ErrNotFound)
	}

	all, err := store.ListAll(ctx, s, pid)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].ID)
}

func testUnknownTask(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, pid := newStore(t)

	_, err := s.Get(ctx, pid, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.PatchStatus(ctx, pid, "missing", "Done")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.AppendComment(ctx, pid, "missing", "Ann", "hi")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testListAll(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, pid := newStore(t)
	for i := 0; i < 105; i++ {
		_, err := s.Create(ctx, pid, store.NewTask{Title: fmt.Sprintf("bulk %d", i)})
		require.NoError(t, err)
	}
	all, err := store.ListAll(ctx, s, pid)
	require.NoError(t, err)
	assert.Len(t, all, 105)
}
