package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/tgienger/taskflow/internal/status"
)

// GlobalProjectID owns tasks created without a project context.
const GlobalProjectID = "global"

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// DefaultPriority is used when a task is created without one
const DefaultPriority = PriorityMedium

// Priorities lists the priorities from lowest to highest
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority maps s case-insensitively onto a priority
func ParsePriority(s string) (Priority, bool) {
	for _, p := range Priorities {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, true
		}
	}
	return "", false
}

// Rank orders priorities, unknown values rank lowest
func (p Priority) Rank() int {
	for i, q := range Priorities {
		if p == q {
			return i + 1
		}
	}
	return 0
}

// Project represents a task management project
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Route       string    `json:"route"`
	Owner       string    `json:"owner,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Assignee is a denormalized snapshot of the person a task is assigned to
type Assignee struct {
	Name     string `json:"name"`
	Initials string `json:"initials,omitempty"`
}

// Comment represents a comment on a task
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	TaskID    string    `json:"taskId,omitempty"`
}

// Task represents a single task. Comments are ordered newest first.
type Task struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	Status        status.Status `json:"status"`
	Priority      Priority      `json:"priority"`
	DueDate       *time.Time    `json:"dueDate,omitempty"`
	AssignedTo    *Assignee     `json:"assignedTo,omitempty"`
	ProjectID     string        `json:"projectId"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	Comments      []Comment     `json:"comments"`
	Documentation string        `json:"documentation,omitempty"`
	Attachments   int           `json:"attachments"`
}

// Clone returns a deep copy of t
func (t Task) Clone() Task {
	c := t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.AssignedTo != nil {
		a := *t.AssignedTo
		c.AssignedTo = &a
	}
	if t.Comments != nil {
		c.Comments = append(make([]Comment, 0, len(t.Comments)), t.Comments...)
	}
	return c
}

// CloneTasks deep-copies a task collection
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}

// Initials derives up to two initials from a display name
func Initials(name string) string {
	var b strings.Builder
	for _, f := range strings.Fields(name) {
		b.WriteString(strings.ToUpper(string([]rune(f)[:1])))
		if b.Len() >= 2 {
			break
		}
	}
	return b.String()
}

// NewProjectID returns a fresh PRJ-XXXXXX identifier
func NewProjectID() string {
	return "PRJ-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

// Slug derives a URL-safe route from a project name, transliterating
// non-Latin scripts
func Slug(name string) string {
	return slug.Make(name)
}

// Route is the route of a project, falling back to its lowercased id when
// the name yields no slug
func Route(name, id string) string {
	if r := Slug(name); r != "" {
		return r
	}
	return strings.ToLower(id)
}
