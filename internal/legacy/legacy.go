// Package legacy reads task exports written by earlier versions of the
// board, in YAML or JSON, and converts them into canonical tasks.
package legacy

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/store"
)

// Record is one exported task. Both "id" and the document id "_id" are
// accepted.
type Record struct {
	ID            string    `yaml:"id"`
	DocID         string    `yaml:"_id"`
	Title         string    `yaml:"title"`
	Description   string    `yaml:"description"`
	Status        string    `yaml:"status"`
	Priority      string    `yaml:"priority"`
	DueDate       string    `yaml:"dueDate"`
	AssignedTo    Assignee  `yaml:"assignedTo"`
	Documentation string    `yaml:"documentation"`
	Attachments   int       `yaml:"attachments"`
	CreatedAt     string    `yaml:"createdAt"`
	UpdatedAt     string    `yaml:"updatedAt"`
	Comments      []Comment `yaml:"comments"`
}

// Assignee is written either as a plain name or as {name, initials}.
type Assignee struct {
	Name     string `yaml:"name"`
	Initials string `yaml:"initials"`
}

func (a *Assignee) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Name = node.Value
		return nil
	}
	type plain Assignee
	return node.Decode((*plain)(a))
}

// Comment is one exported comment.
type Comment struct {
	ID        string `yaml:"id"`
	DocID     string `yaml:"_id"`
	Text      string `yaml:"text"`
	Author    string `yaml:"author"`
	CreatedAt string `yaml:"createdAt"`
}

// Result is a converted export.
type Result struct {
	Tasks []models.Task
	// Skipped holds one line per record that could not be imported.
	Skipped []string
}

// Parse decodes an export: either a list of records or a mapping with a
// "tasks" list. JSON input is read as YAML.
func Parse(data []byte) ([]Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse export: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]

	var records []Record
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to decode tasks: %w", err)
		}
	case yaml.MappingNode:
		var wrapped struct {
			Tasks []Record `yaml:"tasks"`
		}
		if err := root.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode tasks: %w", err)
		}
		records = wrapped.Tasks
	default:
		return nil, fmt.Errorf("export must be a list of tasks or a mapping with a tasks list")
	}
	return records, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Convert turns records into tasks of projectID. Unknown statuses land in
// the migration fallback column and unknown priorities take the default.
// Missing stamps are filled with now. Records without a title are skipped.
func Convert(records []Record, projectID string, now time.Time) Result {
	now = now.UTC()
	res := Result{Tasks: []models.Task{}}
	seen := make(map[string]bool)

	for i, r := range records {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			res.Skipped = append(res.Skipped, fmt.Sprintf("record %d: no title", i+1))
			continue
		}
		id := firstNonEmpty(r.ID, r.DocID)
		if id == "" || seen[id] {
			id = store.NewID()
		}
		seen[id] = true

		t := models.Task{
			ID:            id,
			Title:         title,
			Description:   r.Description,
			Status:        status.NormalizeLegacy(r.Status),
			Priority:      models.DefaultPriority,
			ProjectID:     store.ProjectOrGlobal(projectID),
			Documentation: r.Documentation,
			Attachments:   max(r.Attachments, 0),
			Comments:      []models.Comment{},
		}
		if p, ok := models.ParsePriority(r.Priority); ok {
			t.Priority = p
		}
		if d, ok := parseTime(r.DueDate); ok {
			t.DueDate = &d
		} else if r.DueDate != "" {
			res.Skipped = append(res.Skipped, fmt.Sprintf("record %d: ignored due date %q", i+1, r.DueDate))
		}
		if name := strings.TrimSpace(r.AssignedTo.Name); name != "" {
			initials := r.AssignedTo.Initials
			if initials == "" {
				initials = models.Initials(name)
			}
			t.AssignedTo = &models.Assignee{Name: name, Initials: initials}
		}

		t.CreatedAt = now
		if c, ok := parseTime(r.CreatedAt); ok {
			t.CreatedAt = c
		}
		t.UpdatedAt = t.CreatedAt
		if u, ok := parseTime(r.UpdatedAt); ok {
			t.UpdatedAt = u
		}

		for _, c := range r.Comments {
			text := strings.TrimSpace(c.Text)
			if text == "" {
				continue
			}
			author := strings.TrimSpace(c.Author)
			if author == "" {
				author = store.AnonymousAuthor
			}
			created, ok := parseTime(c.CreatedAt)
			if !ok {
				created = t.CreatedAt
			}
			cid := firstNonEmpty(c.ID, c.DocID)
			if cid == "" {
				cid = store.NewID()
			}
			t.Comments = append(t.Comments, models.Comment{
				ID:        cid,
				Text:      text,
				Author:    author,
				CreatedAt: created,
				TaskID:    t.ID,
			})
		}
		// newest first
		sort.SliceStable(t.Comments, func(a, b int) bool {
			return t.Comments[a].CreatedAt.After(t.Comments[b].CreatedAt)
		})

		res.Tasks = append(res.Tasks, t)
	}
	return res
}

// Merge overlays imported onto existing: tasks with the same id are
// replaced in place and the rest are appended.
func Merge(existing, imported []models.Task) []models.Task {
	out := models.CloneTasks(existing)
	if out == nil {
		out = []models.Task{}
	}
	at := make(map[string]int, len(out))
	for i, t := range out {
		at[t.ID] = i
	}
	for _, t := range imported {
		if i, ok := at[t.ID]; ok {
			out[i] = t
			continue
		}
		at[t.ID] = len(out)
		out = append(out, t)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
