package views

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskflow/internal/activity"
	"github.com/tgienger/taskflow/internal/board"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/store"
	"github.com/tgienger/taskflow/internal/store/local"
	"github.com/tgienger/taskflow/internal/syncbus"
)

const pid = "PRJ-TEST01"

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	right = tea.KeyMsg{Type: tea.KeyRight}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	save  = tea.KeyMsg{Type: tea.KeyCtrlS}
)

func newStore(t *testing.T) (store.Store, *models.Task) {
	t.Helper()
	s := syncbus.NewNotifyingStore(local.New(local.NewMemorySlots()), syncbus.New(), "test")
	task, err := s.Create(context.Background(), pid, store.NewTask{Title: "Write notes"})
	require.NoError(t, err)
	return s, task
}

// settle runs a mutation command and feeds its result back to a.
func settle(t *testing.T, a *board.Adapter, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(settledMsg)
	require.True(t, ok)
	_, handled := handleSync(context.Background(), a, msg)
	require.True(t, handled)
}

func TestKanbanGrabCarryDrop(t *testing.T) {
	ctx := context.Background()
	s, task := newStore(t)
	k := board.NewKanban(s, pid)
	require.NoError(t, k.Sync(ctx))

	v := NewKanbanView(k)
	v.col = status.Index(status.Todo)

	_, handled := v.Update(ctx, space)
	require.True(t, handled)
	require.True(t, v.Dragging())
	v.Update(ctx, right)

	cmd, _ := v.Update(ctx, space)
	assert.False(t, v.Dragging())
	col, _ := k.ColumnOf(task.ID)
	assert.Equal(t, status.InProgress, col, "card moves before the store answers")
	assert.Equal(t, status.Index(status.InProgress), v.col)

	settle(t, k.Adapter, cmd)
	got, err := s.Get(ctx, pid, task.ID)
	require.NoError(t, err)
	assert.Equal(t, status.InProgress, got.Status)
}

func TestKanbanCancelAndSameColumnDrop(t *testing.T) {
	ctx := context.Background()
	s, task := newStore(t)
	k := board.NewKanban(s, pid)
	require.NoError(t, k.Sync(ctx))
	v := NewKanbanView(k)
	v.col = status.Index(status.Todo)

	v.Update(ctx, space)
	v.Update(ctx, right)
	cmd, _ := v.Update(ctx, esc)
	assert.Nil(t, cmd)
	assert.False(t, v.Dragging())

	v.Update(ctx, space)
	cmd, _ = v.Update(ctx, space)
	assert.Nil(t, cmd)

	got, err := s.Get(ctx, pid, task.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Todo, got.Status)
}

func TestDetailComment(t *testing.T) {
	ctx := context.Background()
	s, task := newStore(t)
	d := board.NewDetail(s, pid, task.ID)
	require.NoError(t, d.Sync(ctx))
	v := NewDetailView(d, "Ann")

	v.Update(ctx, runes("c"))
	require.True(t, v.commentInputFocused)

	assert.Nil(t, v.Update(ctx, save))
	assert.NotEmpty(t, v.commentErr)

	v.Update(ctx, runes("Looks good"))
	cmd := v.Update(ctx, save)
	require.NotNil(t, cmd)
	assert.Empty(t, v.commentErr)

	cur, _ := d.Current()
	require.Len(t, cur.Comments, 1)
	assert.True(t, board.IsPending(cur.Comments[0].ID))

	settle(t, d.Adapter, cmd)
	cur, _ = d.Current()
	require.Len(t, cur.Comments, 1)
	assert.False(t, board.IsPending(cur.Comments[0].ID))
	assert.Equal(t, "Ann", cur.Comments[0].Author)
}

func TestDetailDocumentationDebounce(t *testing.T) {
	ctx := context.Background()
	s, task := newStore(t)
	d := board.NewDetail(s, pid, task.ID)
	require.NoError(t, d.Sync(ctx))
	v := NewDetailView(d, "Ann")

	v.Update(ctx, runes("o"))
	require.True(t, v.editingDoc)
	v.Update(ctx, runes("a"))
	v.Update(ctx, runes("b"))
	require.Equal(t, 2, v.docSeq)

	assert.Nil(t, v.Update(ctx, docSaveMsg{detail: d, seq: 1}), "superseded timer")
	cmd := v.Update(ctx, docSaveMsg{detail: d, seq: 2})
	cur, _ := d.Current()
	assert.Equal(t, "ab", cur.Documentation)

	settle(t, d.Adapter, cmd)
	got, err := s.Get(ctx, pid, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "ab", got.Documentation)

	assert.Nil(t, v.Update(ctx, esc), "nothing left to save")
	assert.False(t, v.editingDoc)
}

func TestTaskFormValidation(t *testing.T) {
	f := NewTaskForm(nil)
	assert.Nil(t, f.Update(save))
	assert.Equal(t, "Title is required", f.err)

	f.title.SetValue("Ship it")
	f.priority.SetValue("urgent")
	assert.Nil(t, f.Update(save))
	assert.Contains(t, f.err, "Priority")

	f.priority.SetValue("high")
	f.status.SetValue("in review")
	cmd := f.Update(save)
	require.NotNil(t, cmd)
	out := cmd().(taskFormSubmitted)
	assert.Empty(t, out.TaskID)
	assert.Equal(t, "High", out.New.Priority)
	assert.Equal(t, "In Review", out.New.Status)
}

func TestTaskFormEditDiff(t *testing.T) {
	_, task := newStore(t)
	f := NewTaskForm(task)
	f.title.SetValue("Write the release notes")

	out, problem := f.values()
	require.Empty(t, problem)
	assert.Equal(t, task.ID, out.TaskID)
	require.NotNil(t, out.Fields.Title)
	assert.Equal(t, "Write the release notes", *out.Fields.Title)
	assert.Nil(t, out.Fields.Priority)
	assert.Empty(t, out.Status)
}

func TestStaleEventIgnoredAfterUnmount(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	bus := syncbus.New()
	k := board.NewKanban(s, pid)
	sub := k.Mount(bus)
	wait := waitForEvent(k.Adapter, sub)
	bus.Publish(syncbus.Event{Kind: syncbus.KindCreated, ProjectID: pid})
	msg := wait()

	k.Unmount()
	cmd, handled := handleSync(ctx, k.Adapter, msg)
	assert.True(t, handled)
	assert.Nil(t, cmd)
}

func TestDashboardShowsActivityAndTimeline(t *testing.T) {
	ctx := context.Background()
	slots := local.NewMemorySlots()
	journal := activity.NewLog(slots)
	s := activity.NewRecorder(local.New(slots), journal)

	d := board.NewDashboard(s, pid, journal)
	require.NoError(t, d.Sync(ctx))
	v := NewDashboardView(d)
	assert.Contains(t, v.View(), "No activity yet.")
	assert.Contains(t, v.View(), "No milestones yet.")

	task, err := s.Create(ctx, pid, store.NewTask{Title: "Ship build"})
	require.NoError(t, err)
	_, err = s.PatchStatus(ctx, pid, task.ID, string(status.Completed))
	require.NoError(t, err)
	require.NoError(t, d.Sync(ctx))

	out := v.View()
	assert.Contains(t, out, `Created task "Ship build"`)
	assert.Contains(t, out, `Moved "Ship build" to Completed`)
	assert.Contains(t, out, "Task completed: Ship build")
	assert.NotContains(t, out, "No activity yet.")
}
