package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority("high")
	assert.True(t, ok)
	assert.Equal(t, PriorityHigh, p)

	_, ok = ParsePriority("critical")
	assert.False(t, ok)
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityLow.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityHigh.Rank())
	assert.Equal(t, 0, Priority("urgent").Rank())
}

func TestCloneIsDeep(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	orig := Task{
		ID:         "t1",
		DueDate:    &due,
		AssignedTo: &Assignee{Name: "Ann"},
		Comments:   []Comment{{ID: "c1", Text: "hi"}},
	}
	c := orig.Clone()
	*c.DueDate = c.DueDate.AddDate(0, 0, 1)
	c.AssignedTo.Name = "Bob"
	c.Comments[0].Text = "changed"

	assert.Equal(t, due, *orig.DueDate)
	assert.Equal(t, "Ann", orig.AssignedTo.Name)
	assert.Equal(t, "hi", orig.Comments[0].Text)
}

func TestCloneKeepsEmptyComments(t *testing.T) {
	c := Task{ID: "t1", Comments: []Comment{}}.Clone()
	assert.NotNil(t, c.Comments)
	assert.Empty(t, c.Comments)
	assert.Nil(t, Task{ID: "t2"}.Clone().Comments)

	raw, err := json.Marshal(CloneTasks([]Task{{ID: "t1", Comments: []Comment{}}}))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"comments":[]`)
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "AL", Initials("ann lee"))
	assert.Equal(t, "A", Initials("Ann"))
	assert.Equal(t, "", Initials(""))
	assert.Equal(t, "AB", Initials("Ann Beth Cole"))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "my-first-project", Slug("  My First   Project! "))
	assert.Equal(t, "q3-launch", Slug("Q3 -- Launch"))
	assert.Equal(t, "", Slug("!!!"))
	assert.Equal(t, "proekt", Slug("Проект"))
}

func TestRouteFallsBackToID(t *testing.T) {
	assert.Equal(t, "q3-launch", Route("Q3 Launch", "PRJ-ABC123"))
	assert.Equal(t, "prj-abc123", Route("!!!", "PRJ-ABC123"))
}

func TestNewProjectID(t *testing.T) {
	assert.Regexp(t, `^PRJ-[0-9A-F]{6}$`, NewProjectID())
	assert.NotEqual(t, NewProjectID(), NewProjectID())
}
