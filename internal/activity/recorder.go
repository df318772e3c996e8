package activity

import (
	"context"
	"fmt"
	"log"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/store"
)

const snippetLen = 60

// Recorder logs every successful mutation of the wrapped store. A failed
// log write is reported and never fails the mutation
type Recorder struct {
	store.Store
	log *Log
}

func NewRecorder(s store.Store, l *Log) *Recorder {
	return &Recorder{Store: s, log: l}
}

func (r *Recorder) record(ctx context.Context, projectID string, e Entry) {
	if err := r.log.Record(ctx, projectID, e); err != nil {
		log.Printf("activity: %v", err)
	}
}

func (r *Recorder) mark(ctx context.Context, projectID string, m Milestone) {
	if err := r.log.Mark(ctx, projectID, m); err != nil {
		log.Printf("activity: %v", err)
	}
}

func (r *Recorder) Create(ctx context.Context, projectID string, in store.NewTask) (*models.Task, error) {
	t, err := r.Store.Create(ctx, projectID, in)
	if err != nil {
		return nil, err
	}
	r.record(ctx, projectID, Entry{Kind: KindCreated, TaskID: t.ID, Text: fmt.Sprintf("Created task %q", t.Title)})
	r.mark(ctx, projectID, Milestone{TaskID: t.ID, Title: "Task created: " + t.Title, Description: t.Description})
	return t, nil
}

func (r *Recorder) PatchStatus(ctx context.Context, projectID, taskID, newStatus string) (*models.Task, error) {
	t, err := r.Store.PatchStatus(ctx, projectID, taskID, newStatus)
	if err != nil {
		return nil, err
	}
	r.record(ctx, projectID, Entry{Kind: KindStatus, TaskID: t.ID, Text: fmt.Sprintf("Moved %q to %s", t.Title, t.Status)})
	if t.Status == status.Completed {
		r.mark(ctx, projectID, Milestone{TaskID: t.ID, Title: "Task completed: " + t.Title})
	}
	return t, nil
}

func (r *Recorder) PatchFields(ctx context.Context, projectID, taskID string, f store.Fields) (*models.Task, error) {
	t, err := r.Store.PatchFields(ctx, projectID, taskID, f)
	if err != nil {
		return nil, err
	}
	r.record(ctx, projectID, Entry{Kind: KindUpdated, TaskID: t.ID, Text: fmt.Sprintf("Updated %q", t.Title)})
	return t, nil
}

// Delete logs only tasks that existed before the call
func (r *Recorder) Delete(ctx context.Context, projectID, taskID string) error {
	t, getErr := r.Store.Get(ctx, projectID, taskID)
	if err := r.Store.Delete(ctx, projectID, taskID); err != nil {
		return err
	}
	if getErr == nil {
		r.record(ctx, projectID, Entry{Kind: KindDeleted, TaskID: taskID, Text: fmt.Sprintf("Deleted %q", t.Title)})
	}
	return nil
}

func (r *Recorder) AppendComment(ctx context.Context, projectID, taskID, author, text string) (*models.Comment, error) {
	c, err := r.Store.AppendComment(ctx, projectID, taskID, author, text)
	if err != nil {
		return nil, err
	}
	r.record(ctx, projectID, Entry{Kind: KindCommented, TaskID: taskID,
		Text: fmt.Sprintf("%s commented: %q", c.Author, snippet(c.Text))})
	return c, nil
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetLen {
		return s
	}
	return string(r[:snippetLen-1]) + "…"
}
