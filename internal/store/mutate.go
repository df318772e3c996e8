package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
)

// AnonymousAuthor is recorded for comments submitted without a name
const AnonymousAuthor = "Anonymous"

// NewID returns a fresh, time-ordered identifier
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ProjectOrGlobal maps an empty project id onto the global project
func ProjectOrGlobal(projectID string) string {
	if strings.TrimSpace(projectID) == "" {
		return models.GlobalProjectID
	}
	return projectID
}

// ParseStatus accepts any known status or synonym and rejects everything
// else. Used for explicit status writes, where silently defaulting would
// move the task to a column nobody asked for
func ParseStatus(raw string) (status.Status, error) {
	st, ok := status.Parse(raw)
	if !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
	}
	return st, nil
}

func parsePriority(raw string) (models.Priority, error) {
	p, ok := models.ParsePriority(raw)
	if !ok {
		return "", fmt.Errorf("%w: unknown priority %q", ErrValidation, raw)
	}
	return p, nil
}

// BuildTask validates in and returns the task it describes, stamped with a
// fresh id and timestamps
func BuildTask(projectID string, in NewTask, now time.Time) (models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Task{}, fmt.Errorf("%w: title is required", ErrValidation)
	}

	st := status.Initial
	if strings.TrimSpace(in.Status) != "" {
		var err error
		if st, err = ParseStatus(in.Status); err != nil {
			return models.Task{}, err
		}
	}

	prio := models.DefaultPriority
	if strings.TrimSpace(in.Priority) != "" {
		var err error
		if prio, err = parsePriority(in.Priority); err != nil {
			return models.Task{}, err
		}
	}

	t := models.Task{
		ID:          NewID(),
		Title:       title,
		Description: in.Description,
		Status:      st,
		Priority:    prio,
		ProjectID:   ProjectOrGlobal(projectID),
		CreatedAt:   now,
		UpdatedAt:   now,
		Comments:    []models.Comment{},
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	}
	if in.AssignedTo != nil && strings.TrimSpace(in.AssignedTo.Name) != "" {
		t.AssignedTo = assignee(*in.AssignedTo)
	}
	return t, nil
}

func assignee(a models.Assignee) *models.Assignee {
	a.Name = strings.TrimSpace(a.Name)
	if a.Initials == "" {
		a.Initials = models.Initials(a.Name)
	}
	return &a
}

// SetStatus moves t to the status raw names
func SetStatus(t *models.Task, raw string, now time.Time) error {
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	t.Status = st
	t.UpdatedAt = now
	return nil
}

// ApplyFields merges f into t. Nothing is written when f is invalid
func ApplyFields(t *models.Task, f Fields, now time.Time) error {
	if f.Title != nil && strings.TrimSpace(*f.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	var prio models.Priority
	if f.Priority != nil {
		var err error
		if prio, err = parsePriority(*f.Priority); err != nil {
			return err
		}
	}
	if f.Attachments != nil && *f.Attachments < 0 {
		return fmt.Errorf("%w: attachments cannot be negative", ErrValidation)
	}

	if f.Title != nil {
		t.Title = strings.TrimSpace(*f.Title)
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Documentation != nil {
		t.Documentation = *f.Documentation
	}
	switch {
	case f.ClearDueDate:
		t.DueDate = nil
	case f.DueDate != nil:
		d := *f.DueDate
		t.DueDate = &d
	}
	if f.Priority != nil {
		t.Priority = prio
	}
	switch {
	case f.ClearAssignee:
		t.AssignedTo = nil
	case f.AssignedTo != nil:
		t.AssignedTo = assignee(*f.AssignedTo)
	}
	if f.Attachments != nil {
		t.Attachments = *f.Attachments
	}
	t.UpdatedAt = now
	return nil
}

// BuildComment validates text and returns a new comment for taskID
func BuildComment(taskID, author, text string, now time.Time) (models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, fmt.Errorf("%w: comment text is required", ErrValidation)
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = AnonymousAuthor
	}
	return models.Comment{
		ID:        NewID(),
		Text:      text,
		Author:    author,
		CreatedAt: now,
		TaskID:    taskID,
	}, nil
}

// PrependComment puts c at the front of t's comments and stamps t
func PrependComment(t *models.Task, c models.Comment) {
	t.Comments = append([]models.Comment{c}, t.Comments...)
	t.UpdatedAt = c.CreatedAt
}
