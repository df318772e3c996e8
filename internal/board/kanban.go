package board

import (
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/store"
)

// Column is one Kanban column
type Column struct {
	Status status.Status
	Tasks  []models.Task
}

// DragPayload is what a dragged card carries
type DragPayload struct {
	TaskID string
}

// Kanban groups a project's tasks into one column per status
type Kanban struct {
	*Adapter
}

func NewKanban(s store.Store, projectID string) *Kanban {
	return &Kanban{Adapter: newAdapter(s, projectID)}
}

// Columns returns every status column in display order, empty ones included
func (k *Kanban) Columns() []Column {
	return Group(k.tasks)
}

// Group buckets tasks by normalized status in column order
func Group(tasks []models.Task) []Column {
	cols := make([]Column, len(status.All))
	for i, st := range status.All {
		cols[i] = Column{Status: st, Tasks: []models.Task{}}
	}
	for _, t := range tasks {
		i := status.Index(status.Normalize(string(t.Status)))
		cols[i].Tasks = append(cols[i].Tasks, t.Clone())
	}
	return cols
}

// ColumnOf returns the column the task is shown in
func (k *Kanban) ColumnOf(taskID string) (status.Status, bool) {
	t, ok := k.Task(taskID)
	if !ok {
		return "", false
	}
	return status.Normalize(string(t.Status)), true
}

// BeginDrop moves the dragged task into target. A payload without a task id
// is not an error and yields no mutation
func (k *Kanban) BeginDrop(p DragPayload, target status.Status) (*Mutation, error) {
	if p.TaskID == "" {
		return nil, nil
	}
	return k.BeginStatus(p.TaskID, string(target))
}
