package legacy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/store"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestParseYAMLList(t *testing.T) {
	records, err := Parse([]byte(`
- _id: 65a1
  title: Write launch post
  status: To Do
  priority: high
  dueDate: 2026-03-15
  assignedTo: Ann Lee
  createdAt: 2026-02-01T09:00:00Z
  comments:
    - text: first
      author: bob
      createdAt: 2026-02-02T09:00:00Z
    - text: second
      createdAt: 2026-02-03T09:00:00Z
- title: Fix login
  status: done
  assignedTo:
    name: Bob Stone
    initials: BS
`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "65a1", records[0].DocID)
	assert.Equal(t, "Ann Lee", records[0].AssignedTo.Name)
	assert.Equal(t, "2026-03-15", records[0].DueDate)
	assert.Equal(t, "BS", records[1].AssignedTo.Initials)
}

func TestParseJSONWrapped(t *testing.T) {
	records, err := Parse([]byte(`{"tasks": [{"id": "t1", "title": "A", "status": "In-Progress", "attachments": 2}]}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "t1", records[0].ID)
	assert.Equal(t, 2, records[0].Attachments)
}

func TestParseRejectsScalars(t *testing.T) {
	_, err := Parse([]byte(`just text`))
	assert.Error(t, err)

	records, err := Parse([]byte(``))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestConvert(t *testing.T) {
	records := []Record{
		{
			DocID:      "65a1",
			Title:      " Write launch post ",
			Status:     "To Do",
			Priority:   "high",
			DueDate:    "2026-03-15",
			AssignedTo: Assignee{Name: "Ann Lee"},
			CreatedAt:  "2026-02-01T09:00:00Z",
			Comments: []Comment{
				{Text: "first", Author: "bob", CreatedAt: "2026-02-02T09:00:00Z"},
				{Text: "second", CreatedAt: "2026-02-03T09:00:00Z"},
				{Text: "  "},
			},
		},
		{Title: "Mystery", Status: "Someday", Priority: "urgent", DueDate: "soon"},
		{Title: ""},
	}

	res := Convert(records, "PRJ-1", now)
	require.Len(t, res.Tasks, 2)
	assert.Len(t, res.Skipped, 2)

	first := res.Tasks[0]
	assert.Equal(t, "65a1", first.ID)
	assert.Equal(t, "Write launch post", first.Title)
	assert.Equal(t, status.Todo, first.Status)
	assert.Equal(t, models.PriorityHigh, first.Priority)
	assert.Equal(t, "PRJ-1", first.ProjectID)
	require.NotNil(t, first.DueDate)
	assert.Equal(t, 15, first.DueDate.Day())
	require.NotNil(t, first.AssignedTo)
	assert.Equal(t, "AL", first.AssignedTo.Initials)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	require.Len(t, first.Comments, 2)
	assert.Equal(t, "second", first.Comments[0].Text)
	assert.Equal(t, store.AnonymousAuthor, first.Comments[0].Author)
	assert.Equal(t, "bob", first.Comments[1].Author)
	assert.Equal(t, "65a1", first.Comments[1].TaskID)

	mystery := res.Tasks[1]
	assert.Equal(t, status.MigrationFallback, mystery.Status)
	assert.Equal(t, models.DefaultPriority, mystery.Priority)
	assert.Nil(t, mystery.DueDate)
	assert.Equal(t, now, mystery.CreatedAt)
	assert.NotEmpty(t, mystery.ID)
	assert.NotNil(t, mystery.Comments)
}

func TestConvertDuplicateIDs(t *testing.T) {
	res := Convert([]Record{{ID: "x", Title: "a"}, {ID: "x", Title: "b"}}, "", now)
	require.Len(t, res.Tasks, 2)
	assert.Equal(t, "x", res.Tasks[0].ID)
	assert.NotEqual(t, "x", res.Tasks[1].ID)
	assert.Equal(t, models.GlobalProjectID, res.Tasks[1].ProjectID)
}

func TestMerge(t *testing.T) {
	existing := []models.Task{{ID: "a", Title: "old a"}, {ID: "b", Title: "b"}}
	imported := []models.Task{{ID: "a", Title: "new a"}, {ID: "c", Title: "c"}}

	out := Merge(existing, imported)
	require.Len(t, out, 3)
	assert.Equal(t, "new a", out[0].Title)
	assert.Equal(t, "b", out[1].Title)
	assert.Equal(t, "c", out[2].ID)
	assert.Equal(t, "old a", existing[0].Title)

	assert.Empty(t, Merge(nil, nil))
}
