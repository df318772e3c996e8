package board

import (
	"context"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
	"github.com/tgienger/taskflow/internal/syncbus"
)

// Detail shows a single task with its comments
type Detail struct {
	*Adapter
	taskID string
}

func NewDetail(s store.Store, projectID, taskID string) *Detail {
	d := &Detail{Adapter: newAdapter(s, projectID), taskID: taskID}
	d.fetch = func(ctx context.Context) ([]models.Task, error) {
		t, err := d.store.Get(ctx, d.projectID, d.taskID)
		if err != nil {
			return nil, err
		}
		return []models.Task{*t}, nil
	}
	d.wants = func(e syncbus.Event) bool {
		return e.TaskID == "" || e.TaskID == d.taskID
	}
	return d
}

func (d *Detail) TaskID() string { return d.taskID }

// Current returns the shown task
func (d *Detail) Current() (models.Task, bool) {
	return d.Task(d.taskID)
}

// Comment prepends a comment to the shown task
func (d *Detail) Comment(author, text string) (*Mutation, error) {
	return d.BeginComment(d.taskID, author, text)
}

// Edit merges f into the shown task
func (d *Detail) Edit(f store.Fields) (*Mutation, error) {
	return d.BeginEdit(d.taskID, f)
}

// Move changes the shown task's status
func (d *Detail) Move(newStatus string) (*Mutation, error) {
	return d.BeginStatus(d.taskID, newStatus)
}
