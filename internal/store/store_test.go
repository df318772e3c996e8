package store

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
)

var t0 = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }

func TestFilterNormalized(t *testing.T) {
	f := Filter{}.Normalized()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Equal(t, DefaultSort, f.Sort)

	f = Filter{Page: -3, Limit: 500, Sort: "TITLE:ASC", Status: "in_progress", Priority: "high"}.Normalized()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxLimit, f.Limit)
	assert.Equal(t, "title:asc", f.Sort)
	assert.Equal(t, "In Progress", f.Status)
	assert.Equal(t, "High", f.Priority)

	assert.Equal(t, 1, Filter{Limit: -2}.Normalized().Limit)
	assert.Equal(t, DefaultSort, Filter{Sort: "owner:asc"}.Normalized().Sort)
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, Filter{Status: "done"}.Validate())
	assert.ErrorIs(t, Filter{Status: "someday"}.Validate(), ErrValidation)
	assert.ErrorIs(t, Filter{Priority: "urgent"}.Validate(), ErrValidation)
}

func sample() []models.Task {
	var tasks []models.Task
	for i := 0; i < 10; i++ {
		st := status.Todo
		if i < 3 {
			st = status.Completed
		}
		tasks = append(tasks, models.Task{
			ID:        fmt.Sprintf("t%d", i),
			Title:     fmt.Sprintf("Task %d", i),
			Status:    st,
			Priority:  models.PriorityMedium,
			CreatedAt: t0.Add(time.Duration(i) * time.Hour),
		})
	}
	return tasks
}

func TestApplyStatusFilter(t *testing.T) {
	p, err := Apply(sample(), Filter{Status: "Completed", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, p.Items, 3)
	assert.Equal(t, 3, p.Total)
}

func TestApplyDefaultSortIsNewestFirst(t *testing.T) {
	p, err := Apply(sample(), Filter{})
	require.NoError(t, err)
	require.Len(t, p.Items, 10)
	assert.Equal(t, "t9", p.Items[0].ID)
	assert.Equal(t, "t0", p.Items[9].ID)
}

func TestApplyWindowAndQuery(t *testing.T) {
	p, err := Apply(sample(), Filter{Page: 2, Limit: 4, Sort: "createdAt:asc"})
	require.NoError(t, err)
	assert.Equal(t, 10, p.Total)
	require.Len(t, p.Items, 4)
	assert.Equal(t, "t4", p.Items[0].ID)

	p, err = Apply(sample(), Filter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assert.Equal(t, 10, p.Total)

	p, err = Apply(sample(), Filter{Query: "task 7"})
	require.NoError(t, err)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "t7", p.Items[0].ID)
}

func TestApplyHugePageIsEmpty(t *testing.T) {
	for _, page := range []int{math.MaxInt/MaxLimit + 2, math.MaxInt} {
		p, err := Apply(sample(), Filter{Page: page, Limit: MaxLimit})
		require.NoError(t, err)
		assert.Empty(t, p.Items)
		assert.Equal(t, 10, p.Total)
		assert.Equal(t, page, p.Page)
	}
}

func TestFilterOffset(t *testing.T) {
	assert.Zero(t, Filter{}.Normalized().Offset())
	assert.Equal(t, 20, Filter{Page: 3, Limit: 10}.Normalized().Offset())
	assert.Equal(t, math.MaxInt, Filter{Page: math.MaxInt, Limit: 5}.Normalized().Offset())
}

func TestApplyDoesNotAliasInput(t *testing.T) {
	tasks := sample()
	p, err := Apply(tasks, Filter{Limit: 1})
	require.NoError(t, err)
	p.Items[0].Title = "changed"
	assert.Equal(t, "Task 9", tasks[9].Title)
}

func TestBuildTaskDefaults(t *testing.T) {
	task, err := BuildTask("P1", NewTask{Title: "  Write notes ", Priority: "High"}, t0)
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Write notes", task.Title)
	assert.Equal(t, status.Initial, task.Status)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, "P1", task.ProjectID)
	assert.Equal(t, t0, task.CreatedAt)
	assert.NotNil(t, task.Comments)

	task, err = BuildTask("", NewTask{Title: "x"}, t0)
	require.NoError(t, err)
	assert.Equal(t, models.GlobalProjectID, task.ProjectID)
	assert.Equal(t, models.DefaultPriority, task.Priority)
}

func TestBuildTaskRejects(t *testing.T) {
	for _, in := range []NewTask{
		{Title: ""},
		{Title: "   \t"},
		{Title: "a", Status: "someday"},
		{Title: "a", Priority: "urgent"},
	} {
		_, err := BuildTask("P1", in, t0)
		assert.ErrorIs(t, err, ErrValidation, "%+v", in)
	}
}

func TestBuildTaskIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		task, err := BuildTask("P1", NewTask{Title: "x"}, t0)
		require.NoError(t, err)
		assert.False(t, seen[task.ID])
		seen[task.ID] = true
	}
}

func TestSetStatus(t *testing.T) {
	task := models.Task{Status: status.Todo}
	later := t0.Add(time.Minute)
	require.NoError(t, SetStatus(&task, "in progress", later))
	assert.Equal(t, status.InProgress, task.Status)
	assert.Equal(t, later, task.UpdatedAt)

	assert.ErrorIs(t, SetStatus(&task, "limbo", later), ErrValidation)
	assert.Equal(t, status.InProgress, task.Status)
}

func TestApplyFields(t *testing.T) {
	due := t0.AddDate(0, 0, 3)
	task := models.Task{ID: "t1", ProjectID: "P1", Title: "old", CreatedAt: t0}
	later := t0.Add(time.Hour)

	err := ApplyFields(&task, Fields{
		Title:       strp("new"),
		Priority:    strp("low"),
		DueDate:     &due,
		AssignedTo:  &models.Assignee{Name: "Ann Lee"},
		Description: strp("d"),
	}, later)
	require.NoError(t, err)
	assert.Equal(t, "new", task.Title)
	assert.Equal(t, models.PriorityLow, task.Priority)
	assert.Equal(t, due, *task.DueDate)
	assert.Equal(t, "AL", task.AssignedTo.Initials)
	assert.Equal(t, later, task.UpdatedAt)
	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, "P1", task.ProjectID)
	assert.Equal(t, t0, task.CreatedAt)

	require.NoError(t, ApplyFields(&task, Fields{ClearDueDate: true, ClearAssignee: true}, later))
	assert.Nil(t, task.DueDate)
	assert.Nil(t, task.AssignedTo)
}

func TestApplyFieldsInvalidLeavesTaskAlone(t *testing.T) {
	task := models.Task{Title: "keep", Priority: models.PriorityHigh}
	err := ApplyFields(&task, Fields{Title: strp("changed?"), Priority: strp("urgent")}, t0)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "keep", task.Title)

	assert.ErrorIs(t, ApplyFields(&task, Fields{Title: strp(" ")}, t0), ErrValidation)
}

func TestBuildAndPrependComment(t *testing.T) {
	_, err := BuildComment("t1", "Ann", "   ", t0)
	assert.ErrorIs(t, err, ErrValidation)

	task := models.Task{ID: "t1", Comments: []models.Comment{{ID: "old", Text: "first"}}}
	c, err := BuildComment("t1", "", "Looks good", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, AnonymousAuthor, c.Author)
	assert.Equal(t, "t1", c.TaskID)

	PrependComment(&task, c)
	require.Len(t, task.Comments, 2)
	assert.Equal(t, "Looks good", task.Comments[0].Text)
	assert.Equal(t, "first", task.Comments[1].Text)
	assert.Equal(t, c.CreatedAt, task.UpdatedAt)
}

func TestFieldsEmpty(t *testing.T) {
	assert.True(t, Fields{}.Empty())
	assert.False(t, Fields{ClearDueDate: true}.Empty())
}

func TestErrorClassification(t *testing.T) {
	wrapped := fmt.Errorf("list: %w", ErrTransientIO)
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(ErrValidation))
	assert.True(t, IsNotFound(fmt.Errorf("x: %w", ErrProjectNotFound)))
	assert.False(t, IsNotFound(ErrNotAuthenticated))
}

func TestSlotKey(t *testing.T) {
	assert.Equal(t, "tasks-P1", SlotKey("P1"))
	assert.Equal(t, "tasks-global", SlotKey(""))

	pid, ok := ProjectFromKey("tasks-P1")
	assert.True(t, ok)
	assert.Equal(t, "P1", pid)

	_, ok = ProjectFromKey("settings")
	assert.False(t, ok)
	_, ok = ProjectFromKey("tasks-")
	assert.False(t, ok)
}
