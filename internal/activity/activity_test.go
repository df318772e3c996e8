package activity

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/store"
	"github.com/tgienger/taskflow/internal/store/local"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRecorder(t *testing.T) (*Recorder, *Log, *local.MemorySlots) {
	t.Helper()
	slots := local.NewMemorySlots()
	l := NewLog(slots)
	l.SetClock(func() time.Time { return now })
	return NewRecorder(local.New(slots), l), l, slots
}

func texts(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func TestRecorderLogsMutations(t *testing.T) {
	ctx := context.Background()
	r, l, _ := newRecorder(t)

	task, err := r.Create(ctx, "P1", store.NewTask{Title: "Ship", Description: "v1 build"})
	require.NoError(t, err)
	_, err = r.PatchStatus(ctx, "P1", task.ID, "in progress")
	require.NoError(t, err)
	title := "Ship it"
	_, err = r.PatchFields(ctx, "P1", task.ID, store.Fields{Title: &title})
	require.NoError(t, err)
	_, err = r.AppendComment(ctx, "P1", task.ID, "Ann", "looks good")
	require.NoError(t, err)
	_, err = r.PatchStatus(ctx, "P1", task.ID, string(status.Completed))
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, "P1", task.ID))

	entries, err := l.Entries(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		`Deleted "Ship it"`,
		`Moved "Ship it" to Completed`,
		`Ann commented: "looks good"`,
		`Updated "Ship it"`,
		`Moved "Ship" to In Progress`,
		`Created task "Ship"`,
	}, texts(entries))
	assert.Equal(t, KindDeleted, entries[0].Kind)
	assert.Equal(t, task.ID, entries[5].TaskID)
	assert.Equal(t, now, entries[5].At)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)

	timeline, err := l.Timeline(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, "Task completed: Ship it", timeline[0].Title)
	assert.Equal(t, "Task created: Ship", timeline[1].Title)
	assert.Equal(t, "v1 build", timeline[1].Description)

	other, err := l.Entries(ctx, "P2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRejectedMutationsAreNotLogged(t *testing.T) {
	ctx := context.Background()
	r, l, _ := newRecorder(t)

	_, err := r.Create(ctx, "P1", store.NewTask{Title: "  "})
	assert.ErrorIs(t, err, store.ErrValidation)
	_, err = r.PatchStatus(ctx, "P1", "ghost", "Todo")
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, r.Delete(ctx, "P1", "ghost"))

	entries, err := l.Entries(ctx, "P1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestLogFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	slots := local.NewMemorySlots()
	failing := local.NewMemorySlots()
	failing.Fail(true)
	r := NewRecorder(local.New(slots), NewLog(failing))

	task, err := r.Create(ctx, "P1", store.NewTask{Title: "kept"})
	require.NoError(t, err)
	got, err := local.New(slots).Get(ctx, "P1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Title)
}

func TestLogIsCapped(t *testing.T) {
	ctx := context.Background()
	l := NewLog(local.NewMemorySlots())
	for i := 0; i < MaxEntries+5; i++ {
		require.NoError(t, l.Record(ctx, "P1", Entry{Text: fmt.Sprint(i)}))
	}
	entries, err := l.Entries(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, entries, MaxEntries)
	assert.Equal(t, fmt.Sprint(MaxEntries+4), entries[0].Text)
	assert.Equal(t, "5", entries[MaxEntries-1].Text)
}

func TestSlotsStayOutOfTheTaskFeed(t *testing.T) {
	for _, key := range []string{EntriesKey("P1"), TimelineKey(""), EntriesKey("tasks-x")} {
		_, ok := store.ProjectFromKey(key)
		assert.False(t, ok, key)
	}
	assert.Equal(t, "timeline-global", TimelineKey(""))
}

func TestCorruptLogIsTransient(t *testing.T) {
	ctx := context.Background()
	slots := local.NewMemorySlots()
	require.NoError(t, slots.PutSlot(ctx, EntriesKey("P1"), []byte("{oops")))
	_, err := NewLog(slots).Entries(ctx, "P1")
	assert.ErrorIs(t, err, store.ErrTransientIO)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short"))
	long := snippet(strings.Repeat("é", 80))
	assert.Len(t, []rune(long), snippetLen)
	assert.True(t, strings.HasSuffix(long, "…"))
}
