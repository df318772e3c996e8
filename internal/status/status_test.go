package status

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSynonyms(t *testing.T) {
	cases := map[string]Status{
		"todo":             Todo,
		"To Do":            Todo,
		"TODO":             Todo,
		"inprogress":       InProgress,
		"in progress":      InProgress,
		"In_Progress":      InProgress,
		"in-progress":      InProgress,
		"  In   Progress ": InProgress,
		"inreview":         InReview,
		"In Review":        InReview,
		"backlog":          Backlog,
		"Blocked":          Blocked,
		"completed":        Completed,
		"done":             Completed,
	}
	for in, want := range cases {
		got, ok := Parse(in)
		assert.True(t, ok, "expected %q to parse", in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestNormalizeUnknownUsesDefault(t *testing.T) {
	for _, in := range []string{"", "  ", "someday", "cancelled", "in  limbo"} {
		got := Normalize(in)
		assert.Equal(t, Initial, got, "input %q", in)
		assert.NotEqual(t, Status(in), got)
		assert.NotEmpty(t, got)
	}
}

func TestNormalizeLegacyFallback(t *testing.T) {
	assert.Equal(t, Backlog, NormalizeLegacy("pending-review-maybe"))
	assert.Equal(t, InProgress, NormalizeLegacy("inprogress"))
}

func TestNormalizeOrRejectsInvalidFallback(t *testing.T) {
	assert.Equal(t, Initial, NormalizeOr("nope", Status("nope")))
	assert.Equal(t, Blocked, NormalizeOr("nope", Blocked))
}

func TestCanonicalValuesAreFixedPoints(t *testing.T) {
	for _, st := range All {
		assert.True(t, st.Valid())
		assert.Equal(t, st, Normalize(string(st)))
	}
}

func TestIndexFollowsColumnOrder(t *testing.T) {
	assert.Equal(t, 0, Index(Backlog))
	assert.Equal(t, 5, Index(Completed))
	assert.Equal(t, Index(Initial), Index(Status("bogus")))
}

func TestJSONReadBoundaryNormalizes(t *testing.T) {
	var v struct {
		Status Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"status":"inreview"}`), &v))
	assert.Equal(t, InReview, v.Status)

	require.NoError(t, json.Unmarshal([]byte(`{"status":"whatever"}`), &v))
	assert.Equal(t, Todo, v.Status)

	out, err := json.Marshal(struct {
		Status Status `json:"status"`
	}{Status("in progress")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"In Progress"}`, string(out))
}
