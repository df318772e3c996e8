package store

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	DefaultSort  = "createdAt:desc"
)

// SortFields are the task fields a listing may be ordered by
var SortFields = []string{"createdAt", "updatedAt", "dueDate", "title", "priority", "status"}

// Filter narrows and windows a task listing. The zero value lists the first
// page of everything, newest first
type Filter struct {
	Query    string
	Status   string
	Priority string
	Page     int
	Limit    int
	Sort     string
}

// Normalized clamps the window and canonicalizes status, priority and sort.
// Unknown status or priority values are returned unchanged so Validate can
// report them
func (f Filter) Normalized() Filter {
	f.Query = strings.TrimSpace(f.Query)
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.Limit == 0:
		f.Limit = DefaultLimit
	case f.Limit < 1:
		f.Limit = 1
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	if st, ok := status.Parse(f.Status); ok {
		f.Status = string(st)
	}
	if p, ok := models.ParsePriority(f.Priority); ok {
		f.Priority = string(p)
	}
	field, dir := splitSort(f.Sort)
	f.Sort = field + ":" + dir
	return f
}

// Offset is the number of matches before the page. It saturates instead of
// overflowing for huge page numbers. f must be normalized
func (f Filter) Offset() int {
	if f.Page <= 1 || f.Limit < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

// Validate rejects status and priority values that match no canonical value
func (f Filter) Validate() error {
	if strings.TrimSpace(f.Status) != "" {
		if _, ok := status.Parse(f.Status); !ok {
			return fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
		}
	}
	if strings.TrimSpace(f.Priority) != "" {
		if _, ok := models.ParsePriority(f.Priority); !ok {
			return fmt.Errorf("%w: unknown priority %q", ErrValidation, f.Priority)
		}
	}
	return nil
}

func splitSort(s string) (field, dir string) {
	field, dir, _ = strings.Cut(strings.TrimSpace(s), ":")
	known := false
	for _, k := range SortFields {
		if strings.EqualFold(field, k) {
			field, known = k, true
			break
		}
	}
	if !known {
		return "createdAt", "desc"
	}
	if strings.EqualFold(dir, "asc") {
		return field, "asc"
	}
	return field, "desc"
}

// Less orders a before b by field, ascending. Tasks without a due date sort
// after those with one
func Less(a, b *models.Task, field string) bool {
	switch field {
	case "title":
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	case "priority":
		return a.Priority.Rank() < b.Priority.Rank()
	case "status":
		return status.Index(a.Status) < status.Index(b.Status)
	case "dueDate":
		switch {
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		}
		return a.DueDate.Before(*b.DueDate)
	case "updatedAt":
		return a.UpdatedAt.Before(b.UpdatedAt)
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

// Match reports whether t passes the query, status and priority of a
// normalized filter
func (f Filter) Match(t *models.Task) bool {
	if f.Query != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Query)) {
		return false
	}
	if f.Status != "" && string(status.Normalize(string(t.Status))) != f.Status {
		return false
	}
	if f.Priority != "" && string(t.Priority) != f.Priority {
		return false
	}
	return true
}

// Apply filters, sorts and windows tasks. The input slice is not modified
func Apply(tasks []models.Task, f Filter) (*Page, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f = f.Normalized()

	matched := make([]models.Task, 0, len(tasks))
	for i := range tasks {
		if f.Match(&tasks[i]) {
			matched = append(matched, tasks[i].Clone())
		}
	}

	field, dir := splitSort(f.Sort)
	sort.SliceStable(matched, func(i, j int) bool {
		if dir == "asc" {
			return Less(&matched[i], &matched[j], field)
		}
		return Less(&matched[j], &matched[i], field)
	})

	page := &Page{Total: len(matched), Page: f.Page, Limit: f.Limit, Items: []models.Task{}}
	if start := f.Offset(); start < len(matched) {
		end := min(start+f.Limit, len(matched))
		page.Items = matched[start:end]
	}
	return page, nil
}
