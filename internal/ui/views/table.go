package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskflow/internal/board"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/ui/keys"
	"github.com/tgienger/taskflow/internal/ui/styles"
)

// TableView lists tasks in pages with a title search and sortable columns.
type TableView struct {
	table  *board.Table
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int
	cursor int

	searchInput textinput.Model
	searching   bool
}

func NewTableView(t *board.Table) *TableView {
	search := textinput.New()
	search.Placeholder = "Search titles..."
	search.CharLimit = 100

	return &TableView{
		table:       t,
		styles:      styles.NewStyles(),
		keys:        keys.DefaultKeyMap(),
		searchInput: search,
	}
}

func (v *TableView) adapter() *board.Adapter { return v.table.Adapter }

// Capturing reports whether the search input owns the keyboard.
func (v *TableView) Capturing() bool { return v.searching }

func (v *TableView) setSize(width, height int) {
	v.width = width
	v.height = height
}

func (v *TableView) selected() (models.Task, bool) {
	rows := v.table.Rows()
	if len(rows) == 0 {
		return models.Task{}, false
	}
	v.cursor = clamp(v.cursor, 0, len(rows)-1)
	return rows[v.cursor], true
}

func (v *TableView) Update(ctx context.Context, msg tea.KeyMsg) (cmd tea.Cmd, handled bool) {
	if v.searching {
		switch {
		case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Enter):
			v.searching = false
			v.searchInput.Blur()
			return nil, true
		}
		v.searchInput, cmd = v.searchInput.Update(msg)
		v.table.SetQuery(v.searchInput.Value())
		v.cursor = 0
		return cmd, true
	}

	switch {
	case key.Matches(msg, v.keys.Search):
		v.searching = true
		v.searchInput.Focus()
		return textinput.Blink, true
	case key.Matches(msg, v.keys.Up):
		v.cursor = max(v.cursor-1, 0)
	case key.Matches(msg, v.keys.Down):
		v.cursor++
		v.selected()
	case key.Matches(msg, v.keys.Left):
		v.table.PrevPage()
		v.cursor = 0
	case key.Matches(msg, v.keys.Right):
		v.table.NextPage()
		v.cursor = 0
	case key.Matches(msg, v.keys.Sort):
		cur, _ := v.table.Sort()
		next := board.TableSortKeys[0]
		for i, k := range board.TableSortKeys {
			if k == cur {
				next = board.TableSortKeys[(i+1)%len(board.TableSortKeys)]
			}
		}
		v.table.SortBy(next)
	case key.Matches(msg, v.keys.Reverse):
		cur, _ := v.table.Sort()
		v.table.SortBy(cur)
	case key.Matches(msg, v.keys.Advance), key.Matches(msg, v.keys.Retreat):
		t, ok := v.selected()
		if !ok || board.IsPending(t.ID) {
			return nil, true
		}
		step := 1
		if key.Matches(msg, v.keys.Retreat) {
			step = -1
		}
		m, err := v.table.BeginStatus(t.ID, string(shiftStatus(t.Status, step)))
		if err != nil {
			return nil, true
		}
		return runMutation(ctx, v.adapter(), m), true
	case key.Matches(msg, v.keys.Enter):
		if t, ok := v.selected(); ok && !board.IsPending(t.ID) {
			return openDetail(t.ID), true
		}
	case key.Matches(msg, v.keys.Edit):
		if t, ok := v.selected(); ok && !board.IsPending(t.ID) {
			return openForm(&t), true
		}
	case key.Matches(msg, v.keys.Delete):
		if t, ok := v.selected(); ok && !board.IsPending(t.ID) {
			return confirmDelete(t), true
		}
	default:
		return nil, false
	}
	return nil, true
}

// shiftStatus steps through the column order without wrapping.
func shiftStatus(s status.Status, step int) status.Status {
	i := clamp(status.Index(status.Normalize(string(s)))+step, 0, len(status.All)-1)
	return status.All[i]
}

func (v *TableView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	titleWidth := max(contentWidth-48, 12)

	searchStyle := s.Input
	if v.searching {
		searchStyle = s.InputFocused
	}
	search := searchStyle.Width(clamp(contentWidth-8, 10, 40)).Render(v.searchInput.View())

	sortKey, desc := v.table.Sort()
	arrow := "↑"
	if desc {
		arrow = "↓"
	}
	header := func(label, field string, width int) string {
		if field == sortKey {
			label += " " + arrow
		}
		return s.TableHeader.Width(width).Render(label)
	}

	lines := []string{
		search,
		"",
		lipgloss.JoinHorizontal(lipgloss.Top,
			header("Title", "title", titleWidth),
			header("Status", "status", 14),
			header("Priority", "priority", 10),
			header("Due", "dueDate", 12),
			header("Created", "createdAt", 12),
		),
	}

	rows := v.table.Rows()
	if len(rows) == 0 {
		msg := "No tasks. Press 'n' to create one."
		if v.table.Query() != "" {
			msg = fmt.Sprintf("No tasks match %q.", v.table.Query())
		}
		lines = append(lines, s.TitleMuted.Render(msg))
	}
	for i, t := range rows {
		style := s.TableRow
		switch {
		case board.IsPending(t.ID):
			style = style.Inherit(s.CardPending)
		case i == v.cursor:
			style = s.ListSelected.Padding(0, 1)
		}
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format("Jan 2")
		}
		statusCell := lipgloss.NewStyle().Foreground(styles.StatusColor(t.Status)).Render(string(t.Status))
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			style.Width(titleWidth).Render(truncate(t.Title, titleWidth-2)),
			style.Width(14).Render(statusCell),
			style.Width(10).Render(string(t.Priority)),
			style.Width(12).Render(due),
			style.Width(12).Render(t.CreatedAt.Local().Format("Jan 2")),
		))
	}

	lines = append(lines, "", s.TitleMuted.Render(fmt.Sprintf("Page %d of %d  ·  %d tasks",
		v.table.Page(), v.table.PageCount(), len(v.table.Filtered()))))
	return strings.Join(lines, "\n")
}
