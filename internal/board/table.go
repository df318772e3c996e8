package board

import (
	"sort"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
)

// TablePageSize is the number of rows per table page
const TablePageSize = 5

// TableSortKeys are the columns the table can be sorted by
var TableSortKeys = []string{"title", "status", "priority", "dueDate", "createdAt"}

// Table filters, sorts and pages a project's tasks
type Table struct {
	*Adapter

	query   string
	sortKey string
	desc    bool
	page    int
}

func NewTable(s store.Store, projectID string) *Table {
	return &Table{
		Adapter: newAdapter(s, projectID),
		sortKey: "createdAt",
		desc:    true,
		page:    1,
	}
}

// SetQuery filters rows by case-insensitive title substring and returns to
// the first page
func (t *Table) SetQuery(q string) {
	t.query = q
	t.page = 1
}

func (t *Table) Query() string { return t.query }

// SortBy orders rows by key. Selecting the current key flips the direction
func (t *Table) SortBy(key string) {
	valid := false
	for _, k := range TableSortKeys {
		if k == key {
			valid = true
		}
	}
	if !valid {
		return
	}
	if key == t.sortKey {
		t.desc = !t.desc
		return
	}
	t.sortKey = key
	t.desc = false
}

// Sort returns the current sort key and whether it is descending
func (t *Table) Sort() (key string, desc bool) { return t.sortKey, t.desc }

// Filtered returns every matching task in table order
func (t *Table) Filtered() []models.Task {
	f := store.Filter{Query: t.query}.Normalized()
	var rows []models.Task
	for i := range t.tasks {
		if f.Match(&t.tasks[i]) {
			rows = append(rows, t.tasks[i].Clone())
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if t.desc {
			return store.Less(&rows[j], &rows[i], t.sortKey)
		}
		return store.Less(&rows[i], &rows[j], t.sortKey)
	})
	return rows
}

// PageCount is at least 1
func (t *Table) PageCount() int {
	n := len(t.Filtered())
	return max(1, (n+TablePageSize-1)/TablePageSize)
}

// Page returns the current page number, clamped to the rows available
func (t *Table) Page() int {
	return min(max(t.page, 1), t.PageCount())
}

func (t *Table) SetPage(n int) { t.page = min(max(n, 1), t.PageCount()) }
func (t *Table) NextPage()     { t.SetPage(t.Page() + 1) }
func (t *Table) PrevPage()     { t.SetPage(t.Page() - 1) }

// Rows returns the tasks on the current page
func (t *Table) Rows() []models.Task {
	rows := t.Filtered()
	start := (t.Page() - 1) * TablePageSize
	if start >= len(rows) {
		return []models.Task{}
	}
	return rows[start:min(start+TablePageSize, len(rows))]
}
