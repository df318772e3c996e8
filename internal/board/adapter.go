// Package board holds the view adapters behind the Kanban, table, dashboard
// and detail screens. An adapter owns a copy of one project's tasks, keeps it
// current from the sync bus and applies user mutations optimistically.
//
// Mutations happen in two phases. A Begin method validates the intent,
// applies it to the adapter's tasks at once and returns a Mutation. The
// mutation's Run performs the store call and touches no adapter state, so it
// can run off the UI loop. Settle then confirms the change with what the
// store returned, or restores the task to its state before Begin.
//
// Adapters are not safe for concurrent use. Fetch and Mutation.Run are
package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/store"
	"github.com/tgienger/taskflow/internal/syncbus"
)

// pendingPrefix marks ids assigned locally before the store confirms
const pendingPrefix = "pending-"

// IsPending reports whether id is a placeholder awaiting confirmation
func IsPending(id string) bool { return strings.HasPrefix(id, pendingPrefix) }

// Notice is a transient message about a failed action
type Notice struct {
	Seq       uint64
	Text      string
	Retryable bool
	Err       error
}

// Adapter is the lifecycle and mutation machinery shared by every view
type Adapter struct {
	store     store.Store
	projectID string
	fetch     func(ctx context.Context) ([]models.Task, error)
	wants     func(e syncbus.Event) bool
	now       func() time.Time

	sub      *syncbus.Subscription
	gen      uint64
	loaded   bool
	notFound bool
	loadErr  error
	tasks    []models.Task

	notice    *Notice
	noticeSeq uint64
}

func newAdapter(s store.Store, projectID string) *Adapter {
	a := &Adapter{
		store:     s,
		projectID: store.ProjectOrGlobal(projectID),
		now:       time.Now,
	}
	a.fetch = func(ctx context.Context) ([]models.Task, error) {
		return store.ListAll(ctx, a.store, a.projectID)
	}
	a.wants = func(syncbus.Event) bool { return true }
	return a
}

// ProjectID returns the project the adapter shows
func (a *Adapter) ProjectID() string { return a.projectID }

// Store returns the store mutations are sent to
func (a *Adapter) Store() store.Store { return a.store }

// SetClock overrides the time source for optimistic stamps
func (a *Adapter) SetClock(now func() time.Time) { a.now = now }

// Mount subscribes to bus for this adapter's project. The returned
// subscription delivers the events to pass to HandleEvent
func (a *Adapter) Mount(bus *syncbus.Bus) *syncbus.Subscription {
	if a.sub != nil {
		a.sub.Close()
	}
	a.sub = bus.Subscribe(a.projectID)
	return a.sub
}

// Unmount drops the subscription. Fetches and mutations begun before
// Unmount are ignored when they complete
func (a *Adapter) Unmount() {
	if a.sub != nil {
		a.sub.Close()
		a.sub = nil
	}
	a.gen++
}

// Generation identifies the adapter's current lifetime. Pass it to Apply
func (a *Adapter) Generation() uint64 { return a.gen }

// Fetch reads the adapter's tasks from the store
func (a *Adapter) Fetch(ctx context.Context) ([]models.Task, error) {
	return a.fetch(ctx)
}

// Apply installs a fetch result taken during lifetime gen. It reports false
// when the result belongs to an earlier lifetime and was discarded
func (a *Adapter) Apply(gen uint64, tasks []models.Task, err error) bool {
	if gen != a.gen {
		return false
	}
	a.loaded = true
	switch {
	case err == nil:
		a.tasks = normalized(tasks)
		a.notFound = false
		a.loadErr = nil
	case store.IsNotFound(err):
		a.tasks = nil
		a.notFound = true
		a.loadErr = nil
	default:
		// keep what is on screen
		a.loadErr = err
		a.setNotice(fmt.Sprintf("Could not load tasks: %v", err), err)
	}
	return true
}

// Sync fetches and applies in one step
func (a *Adapter) Sync(ctx context.Context) error {
	gen := a.gen
	tasks, err := a.Fetch(ctx)
	a.Apply(gen, tasks, err)
	return err
}

// Wants reports whether e should trigger a re-read
func (a *Adapter) Wants(e syncbus.Event) bool {
	if e.ProjectID != "" && e.ProjectID != a.projectID {
		return false
	}
	return a.wants(e)
}

// HandleEvent re-reads the tasks when e concerns this adapter. It reports
// whether a sync happened
func (a *Adapter) HandleEvent(ctx context.Context, e syncbus.Event) bool {
	if !a.Wants(e) {
		return false
	}
	a.Sync(ctx)
	return true
}

// Loaded reports whether a fetch has been applied
func (a *Adapter) Loaded() bool { return a.loaded }

// NotFound reports whether the last fetch found no such project or task
func (a *Adapter) NotFound() bool { return a.notFound }

// LoadErr returns the last fetch failure other than not found
func (a *Adapter) LoadErr() error { return a.loadErr }

// Tasks returns a copy of the adapter's tasks
func (a *Adapter) Tasks() []models.Task { return models.CloneTasks(a.tasks) }

// Task returns a copy of the task with id
func (a *Adapter) Task(id string) (models.Task, bool) {
	if i := a.index(id); i >= 0 {
		return a.tasks[i].Clone(), true
	}
	return models.Task{}, false
}

// Notice returns the current failure message, if any
func (a *Adapter) Notice() (Notice, bool) {
	if a.notice == nil {
		return Notice{}, false
	}
	return *a.notice, true
}

// ClearNotice removes the notice with seq. Newer notices are kept
func (a *Adapter) ClearNotice(seq uint64) {
	if a.notice != nil && a.notice.Seq == seq {
		a.notice = nil
	}
}

func (a *Adapter) setNotice(text string, err error) {
	a.noticeSeq++
	a.notice = &Notice{
		Seq:       a.noticeSeq,
		Text:      text,
		Retryable: store.IsRetryable(err),
		Err:       err,
	}
}

func (a *Adapter) index(id string) int {
	for i := range a.tasks {
		if a.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func normalized(tasks []models.Task) []models.Task {
	out := models.CloneTasks(tasks)
	for i := range out {
		out[i].Status = status.Normalize(string(out[i].Status))
	}
	return out
}

// Op names the kind of a mutation
type Op string

const (
	OpCreate  Op = "create"
	OpStatus  Op = "status"
	OpEdit    Op = "edit"
	OpDelete  Op = "delete"
	OpComment Op = "comment"
)

// Result is what the store returned for a mutation
type Result struct {
	Task    *models.Task
	Comment *models.Comment
	Err     error
}

// Mutation is an optimistic change awaiting the store
type Mutation struct {
	Op     Op
	TaskID string

	gen       uint64
	before    models.Task
	index     int
	commentID string
	label     string
	run       func(ctx context.Context) Result
}

// Run performs the store call. It may be called from any goroutine
func (m *Mutation) Run(ctx context.Context) Result {
	return m.run(ctx)
}

// Settle confirms or reverts m. It reports false when m was begun in an
// earlier lifetime and the result was ignored
func (a *Adapter) Settle(m *Mutation, r Result) bool {
	if m == nil || m.gen != a.gen {
		return false
	}
	if r.Err != nil && m.Op == OpDelete && store.IsNotFound(r.Err) {
		// already gone
		a.confirm(m, Result{})
		return true
	}
	if r.Err != nil {
		a.revert(m)
		a.setNotice(failureText(m, r.Err), r.Err)
		return true
	}
	a.confirm(m, r)
	return true
}

// Do runs m synchronously and settles it
func (a *Adapter) Do(ctx context.Context, m *Mutation) error {
	if m == nil {
		return nil
	}
	r := m.Run(ctx)
	a.Settle(m, r)
	return r.Err
}

func (a *Adapter) revert(m *Mutation) {
	switch m.Op {
	case OpCreate:
		if i := a.index(m.TaskID); i >= 0 {
			a.tasks = append(a.tasks[:i], a.tasks[i+1:]...)
		}
	case OpDelete:
		if a.index(m.TaskID) >= 0 {
			return
		}
		i := min(m.index, len(a.tasks))
		a.tasks = append(a.tasks[:i], append([]models.Task{m.before.Clone()}, a.tasks[i:]...)...)
	default:
		if i := a.index(m.TaskID); i >= 0 {
			a.tasks[i] = m.before.Clone()
		}
	}
}

func (a *Adapter) confirm(m *Mutation, r Result) {
	i := a.index(m.TaskID)
	switch m.Op {
	case OpDelete:
		return
	case OpComment:
		if i < 0 || r.Comment == nil {
			return
		}
		for j := range a.tasks[i].Comments {
			if a.tasks[i].Comments[j].ID == m.commentID {
				a.tasks[i].Comments[j] = *r.Comment
			}
		}
	default:
		if i < 0 || r.Task == nil {
			return
		}
		t := r.Task.Clone()
		t.Status = status.Normalize(string(t.Status))
		a.tasks[i] = t
	}
}

func failureText(m *Mutation, err error) string {
	var what string
	switch m.Op {
	case OpCreate:
		what = "create"
	case OpStatus:
		what = "move"
	case OpEdit:
		what = "update"
	case OpDelete:
		what = "delete"
	case OpComment:
		what = "comment on"
	}
	msg := fmt.Sprintf("Could not %s %q", what, m.label)
	switch {
	case errors.Is(err, store.ErrValidation):
		return fmt.Sprintf("%s: %v", msg, err)
	case store.IsNotFound(err):
		return msg + ": it no longer exists"
	case errors.Is(err, store.ErrNotAuthenticated):
		return msg + ": sign in again"
	case store.IsRetryable(err):
		return msg + ". Try again."
	}
	return fmt.Sprintf("%s: %v", msg, err)
}

func (a *Adapter) begin(op Op, i int, run func(ctx context.Context) Result) *Mutation {
	t := a.tasks[i]
	return &Mutation{
		Op:     op,
		TaskID: t.ID,
		gen:    a.gen,
		before: t.Clone(),
		index:  i,
		label:  t.Title,
		run:    run,
	}
}

func notInView(taskID string) error {
	return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
}

// BeginStatus moves a task to newStatus
func (a *Adapter) BeginStatus(taskID, newStatus string) (*Mutation, error) {
	st, err := store.ParseStatus(newStatus)
	if err != nil {
		return nil, err
	}
	i := a.index(taskID)
	if i < 0 {
		return nil, notInView(taskID)
	}
	s, pid := a.store, a.projectID
	m := a.begin(OpStatus, i, func(ctx context.Context) Result {
		t, err := s.PatchStatus(ctx, pid, taskID, string(st))
		return Result{Task: t, Err: err}
	})
	a.tasks[i].Status = st
	a.tasks[i].UpdatedAt = a.now()
	return m, nil
}

// BeginEdit merges f into a task
func (a *Adapter) BeginEdit(taskID string, f store.Fields) (*Mutation, error) {
	i := a.index(taskID)
	if i < 0 {
		return nil, notInView(taskID)
	}
	next := a.tasks[i].Clone()
	if err := store.ApplyFields(&next, f, a.now()); err != nil {
		return nil, err
	}
	s, pid := a.store, a.projectID
	m := a.begin(OpEdit, i, func(ctx context.Context) Result {
		t, err := s.PatchFields(ctx, pid, taskID, f)
		return Result{Task: t, Err: err}
	})
	a.tasks[i] = next
	return m, nil
}

// BeginDelete removes a task
func (a *Adapter) BeginDelete(taskID string) (*Mutation, error) {
	i := a.index(taskID)
	if i < 0 {
		return nil, notInView(taskID)
	}
	s, pid := a.store, a.projectID
	m := a.begin(OpDelete, i, func(ctx context.Context) Result {
		return Result{Err: s.Delete(ctx, pid, taskID)}
	})
	a.tasks = append(a.tasks[:i], a.tasks[i+1:]...)
	return m, nil
}

// BeginComment prepends a comment to a task. Blank text is rejected before
// anything changes
func (a *Adapter) BeginComment(taskID, author, text string) (*Mutation, error) {
	c, err := store.BuildComment(taskID, author, text, a.now())
	if err != nil {
		return nil, err
	}
	i := a.index(taskID)
	if i < 0 {
		return nil, notInView(taskID)
	}
	c.ID = pendingPrefix + c.ID
	s, pid := a.store, a.projectID
	m := a.begin(OpComment, i, func(ctx context.Context) Result {
		got, err := s.AppendComment(ctx, pid, taskID, author, text)
		return Result{Comment: got, Err: err}
	})
	m.commentID = c.ID
	store.PrependComment(&a.tasks[i], c)
	return m, nil
}

// BeginCreate adds a task under a placeholder id that is replaced by the
// store's id on confirmation
func (a *Adapter) BeginCreate(in store.NewTask) (*Mutation, error) {
	t, err := store.BuildTask(a.projectID, in, a.now())
	if err != nil {
		return nil, err
	}
	t.ID = pendingPrefix + t.ID
	s, pid := a.store, a.projectID
	a.tasks = append([]models.Task{t}, a.tasks...)
	return a.begin(OpCreate, 0, func(ctx context.Context) Result {
		got, err := s.Create(ctx, pid, in)
		return Result{Task: got, Err: err}
	}), nil
}
