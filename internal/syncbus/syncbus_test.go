package syncbus

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskflow/internal/db"
	"github.com/tgienger/taskflow/internal/store"
	"github.com/tgienger/taskflow/internal/store/local"
)

func recv(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case e := <-sub.C():
		return e
	case <-time.After(time.Second):
		t.Fatal("no event")
		return Event{}
	}
}

func assertQuiet(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case e, ok := <-sub.C():
		if ok {
			t.Fatalf("unexpected event %+v", e)
		}
	default:
	}
}

func TestPublishFiltersByProject(t *testing.T) {
	bus := New()
	p1 := bus.Subscribe("P1")
	p2 := bus.Subscribe("P2")
	all := bus.Subscribe("")
	defer p1.Close()
	defer p2.Close()
	defer all.Close()

	bus.Publish(Event{Kind: KindCreated, ProjectID: "P1", TaskID: "t1"})

	e := recv(t, p1)
	assert.Equal(t, "t1", e.TaskID)
	assert.False(t, e.At.IsZero())
	recv(t, all)
	assertQuiet(t, p2)

	bus.Publish(Event{Kind: KindExternal})
	recv(t, p1)
	recv(t, p2)
}

func TestCloseIsIdempotentAndUnsubscribes(t *testing.T) {
	bus := New()
	sub := bus.Subscribe("P1")
	assert.Equal(t, 1, bus.Len())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, bus.Len())

	_, ok := <-sub.C()
	assert.False(t, ok)

	bus.Publish(Event{ProjectID: "P1"})
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := New()
	sub := bus.Subscribe("P1")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriptionBuffer*3; i++ {
			bus.Publish(Event{ProjectID: "P1"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked")
	}
	assert.Len(t, sub.C(), subscriptionBuffer)
}

func TestNotifyingStorePublishesOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	bus := New()
	sub := bus.Subscribe("P1")
	defer sub.Close()
	s := NewNotifyingStore(local.New(local.NewMemorySlots()), bus, "kanban")

	_, err := s.Create(ctx, "P1", store.NewTask{Title: ""})
	assert.ErrorIs(t, err, store.ErrValidation)
	assertQuiet(t, sub)

	task, err := s.Create(ctx, "P1", store.NewTask{Title: "ok"})
	require.NoError(t, err)
	e := recv(t, sub)
	assert.Equal(t, KindCreated, e.Kind)
	assert.Equal(t, task.ID, e.TaskID)
	assert.Equal(t, "kanban", e.Source)

	_, err = s.PatchStatus(ctx, "P1", task.ID, "sideways")
	assert.ErrorIs(t, err, store.ErrValidation)
	assertQuiet(t, sub)

	_, err = s.PatchStatus(ctx, "P1", task.ID, "done")
	require.NoError(t, err)
	assert.Equal(t, KindStatusChanged, recv(t, sub).Kind)

	_, err = s.AppendComment(ctx, "P1", task.ID, "Ann", "hi")
	require.NoError(t, err)
	assert.Equal(t, KindCommented, recv(t, sub).Kind)

	title := "renamed"
	_, err = s.PatchFields(ctx, "P1", task.ID, store.Fields{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, KindUpdated, recv(t, sub).Kind)

	require.NoError(t, s.Delete(ctx, "P1", task.ID))
	assert.Equal(t, KindDeleted, recv(t, sub).Kind)

	assert.Equal(t, store.ModeLocal, s.Mode())
}

func TestNotifyingStoreGlobalProject(t *testing.T) {
	bus := New()
	sub := bus.Subscribe(store.ProjectOrGlobal(""))
	defer sub.Close()
	s := NewNotifyingStore(local.New(local.NewMemorySlots()), bus, "")

	_, err := s.Create(context.Background(), "", store.NewTask{Title: "loose"})
	require.NoError(t, err)
	assert.Equal(t, "global", recv(t, sub).ProjectID)
}

func TestWatcherSeesSiblingWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")
	mine, err := db.New(path)
	require.NoError(t, err)
	defer mine.Close()
	sibling, err := db.New(path)
	require.NoError(t, err)
	defer sibling.Close()

	require.NoError(t, sibling.PutSlot(ctx, "tasks-P1", []byte(`[]`)))

	bus := New()
	sub := bus.Subscribe("P1")
	defer sub.Close()
	w := NewWatcher(mine, bus, time.Millisecond)
	require.NoError(t, w.Prime(ctx))

	n, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	other := local.New(sibling)
	_, err = other.Create(ctx, "P1", store.NewTask{Title: "from the other tab"})
	require.NoError(t, err)
	_, err = local.New(mine).Create(ctx, "P1", store.NewTask{Title: "mine"})
	require.NoError(t, err)

	n, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	e := recv(t, sub)
	assert.Equal(t, KindExternal, e.Kind)
	assert.Equal(t, "P1", e.ProjectID)
	assert.Equal(t, sibling.Writer(), e.Source)

	n, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWatcherRunStopsWithContext(t *testing.T) {
	d, err := db.New(filepath.Join(t.TempDir(), "w.db"))
	require.NoError(t, err)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewWatcher(d, New(), 5*time.Millisecond).Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
