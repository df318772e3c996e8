package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskflow/internal/board"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/ui/keys"
	"github.com/tgienger/taskflow/internal/ui/styles"
)

// KanbanView shows one column per status. A card is moved by grabbing it,
// carrying it to another column and dropping it there.
type KanbanView struct {
	kanban *board.Kanban
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	col int
	row int

	// drag state
	grabbed bool
	grabID  string
	target  int
}

func NewKanbanView(k *board.Kanban) *KanbanView {
	return &KanbanView{
		kanban: k,
		styles: styles.NewStyles(),
		keys:   keys.DefaultKeyMap(),
	}
}

func (v *KanbanView) adapter() *board.Adapter { return v.kanban.Adapter }

// Dragging reports whether a card is grabbed.
func (v *KanbanView) Dragging() bool { return v.grabbed }

func (v *KanbanView) setSize(width, height int) {
	v.width = width
	v.height = height
}

// selected returns the task under the cursor.
func (v *KanbanView) selected() (models.Task, bool) {
	cols := v.kanban.Columns()
	if v.col >= len(cols) {
		return models.Task{}, false
	}
	tasks := cols[v.col].Tasks
	if len(tasks) == 0 {
		return models.Task{}, false
	}
	v.row = clamp(v.row, 0, len(tasks)-1)
	return tasks[v.row], true
}

// Update handles a key press. handled is false for keys the board should
// interpret.
func (v *KanbanView) Update(ctx context.Context, msg tea.KeyMsg) (cmd tea.Cmd, handled bool) {
	last := len(status.All) - 1

	if v.grabbed {
		switch {
		case key.Matches(msg, v.keys.Back):
			v.grabbed = false
			v.grabID = ""
		case key.Matches(msg, v.keys.Left):
			v.target = clamp(v.target-1, 0, last)
		case key.Matches(msg, v.keys.Right):
			v.target = clamp(v.target+1, 0, last)
		case key.Matches(msg, v.keys.Grab), key.Matches(msg, v.keys.Enter):
			return v.drop(ctx), true
		}
		return nil, true
	}

	switch {
	case key.Matches(msg, v.keys.Left):
		v.col = clamp(v.col-1, 0, last)
		v.row = 0
	case key.Matches(msg, v.keys.Right):
		v.col = clamp(v.col+1, 0, last)
		v.row = 0
	case key.Matches(msg, v.keys.Up):
		v.row = max(v.row-1, 0)
	case key.Matches(msg, v.keys.Down):
		v.row++
		v.selected()
	case key.Matches(msg, v.keys.Grab):
		if t, ok := v.selected(); ok && !board.IsPending(t.ID) {
			v.grabbed = true
			v.grabID = t.ID
			v.target = v.col
		}
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

func (v *KanbanView) drop(ctx context.Context) tea.Cmd {
	payload := board.DragPayload{TaskID: v.grabID}
	target := status.All[v.target]
	v.grabbed = false
	v.grabID = ""

	if cur, ok := v.kanban.ColumnOf(payload.TaskID); ok && cur == target {
		return nil
	}
	m, err := v.kanban.BeginDrop(payload, target)
	if err != nil {
		return nil
	}
	v.col = v.target
	v.row = 0
	for i, t := range v.kanban.Columns()[v.col].Tasks {
		if t.ID == payload.TaskID {
			v.row = i
		}
	}
	return runMutation(ctx, v.adapter(), m)
}

func (v *KanbanView) View() string {
	s := v.styles
	cols := v.kanban.Columns()
	n := len(cols)
	colWidth := max((v.width-2*n)/n, 12)
	cardWidth := colWidth - 2
	maxCards := max((v.height-8)/2, 1)

	var rendered []string
	for i, col := range cols {
		header := lipgloss.NewStyle().
			Foreground(styles.StatusColor(col.Status)).
			Bold(true).
			Render(truncate(fmt.Sprintf("%s %d", col.Status, len(col.Tasks)), cardWidth))

		lines := []string{header, ""}
		if v.grabbed && i == v.target {
			if t, ok := v.kanban.Task(v.grabID); ok {
				lines = append(lines, s.CardGrabbed.Width(cardWidth).Render(truncate(t.Title, cardWidth)), "")
			}
		}
		start := 0
		if i == v.col && v.row >= maxCards {
			start = v.row - maxCards + 1
		}
		for j := start; j < len(col.Tasks) && j < start+maxCards; j++ {
			lines = append(lines, v.renderCard(col.Tasks[j], cardWidth, i == v.col && j == v.row))
		}
		if len(col.Tasks) == 0 {
			lines = append(lines, s.TitleMuted.Render("empty"))
		}

		style := s.Column
		if i == v.col || (v.grabbed && i == v.target) {
			style = s.ColumnFocused
		}
		rendered = append(rendered, style.Width(colWidth).Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (v *KanbanView) renderCard(t models.Task, width int, selected bool) string {
	s := v.styles
	style := s.Card
	switch {
	case board.IsPending(t.ID):
		style = s.CardPending
	case v.grabbed && t.ID == v.grabID:
		style = s.TitleMuted
	case selected && !v.grabbed:
		style = s.CardSelected
	}

	marker := lipgloss.NewStyle().Foreground(styles.PriorityColor(t.Priority)).Render("●")
	meta := string(t.Priority)
	if t.AssignedTo != nil && t.AssignedTo.Initials != "" {
		meta += " · " + t.AssignedTo.Initials
	}
	if n := len(t.Comments); n > 0 {
		meta += fmt.Sprintf(" · %d✎", n)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		style.Width(width).Render(truncate(t.Title, width)),
		marker+" "+s.TitleMuted.Render(truncate(meta, width-2)),
	)
}
