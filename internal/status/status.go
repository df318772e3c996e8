// Package status holds the canonical task statuses and the rules that map
// arbitrary or legacy status strings onto them.
//
// There are no forbidden transitions: a task may move from any status to any
// other. The package exists so that every task always lands in exactly one
// Kanban column.
package status

import (
	"strings"
)

// Status is a canonical task status.
type Status string

const (
	Backlog    Status = "Backlog"
	Todo       Status = "Todo"
	InProgress Status = "In Progress"
	InReview   Status = "In Review"
	Blocked    Status = "Blocked"
	Completed  Status = "Completed"
)

// Initial is assigned to freshly created tasks with no explicit status and
// to any unrecognized value read back from a store.
const Initial = Todo

// MigrationFallback is used for unrecognized values in imported legacy
// records.
const MigrationFallback = Backlog

// All lists the canonical statuses in display order, which is also the
// Kanban column order.
var All = []Status{Backlog, Todo, InProgress, InReview, Blocked, Completed}

// lookup maps folded strings to canonical statuses. Keys are produced by fold.
var lookup = map[string]Status{
	"backlog":     Backlog,
	"todo":        Todo,
	"to do":       Todo,
	"inprogress":  InProgress,
	"in progress": InProgress,
	"inreview":    InReview,
	"in review":   InReview,
	"review":      InReview,
	"blocked":     Blocked,
	"completed":   Completed,
	"complete":    Completed,
	"done":        Completed,
}

// fold lowercases s, turns '_' and '-' into spaces and collapses runs of
// whitespace.
func fold(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Parse maps s onto a canonical status. ok is false when s is not a known
// status or synonym.
func Parse(s string) (Status, bool) {
	st, ok := lookup[fold(s)]
	return st, ok
}

// Normalize maps s onto a canonical status, falling back to Initial.
func Normalize(s string) Status {
	return NormalizeOr(s, Initial)
}

// NormalizeLegacy maps s onto a canonical status, falling back to
// MigrationFallback.
func NormalizeLegacy(s string) Status {
	return NormalizeOr(s, MigrationFallback)
}

// NormalizeOr maps s onto a canonical status, falling back to fallback. An
// invalid fallback is replaced by Initial.
func NormalizeOr(s string, fallback Status) Status {
	if st, ok := Parse(s); ok {
		return st
	}
	if !fallback.Valid() {
		return Initial
	}
	return fallback
}

// Valid reports whether s is one of the canonical values, byte for byte.
func (s Status) Valid() bool {
	for _, st := range All {
		if s == st {
			return true
		}
	}
	return false
}

// Index returns the column index of s, or the index of Initial for a
// non-canonical value.
func Index(s Status) int {
	for i, st := range All {
		if st == s {
			return i
		}
	}
	return Index(Initial)
}

func (s Status) String() string { return string(s) }

// MarshalText writes the canonical form.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(Normalize(string(s))), nil
}

// UnmarshalText normalizes whatever was stored, so decoded tasks are never
// left with a raw status.
func (s *Status) UnmarshalText(text []byte) error {
	*s = Normalize(string(text))
	return nil
}
