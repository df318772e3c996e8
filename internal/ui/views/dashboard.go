package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskflow/internal/board"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/ui/keys"
	"github.com/tgienger/taskflow/internal/ui/styles"
)

// historyRows caps the activity and timeline lists
const historyRows = 6

// DashboardView summarizes the project and lists recent activity.
type DashboardView struct {
	dashboard *board.Dashboard
	styles    *styles.Styles
	keys      keys.KeyMap
	now       func() time.Time

	width  int
	height int
	cursor int
}

func NewDashboardView(d *board.Dashboard) *DashboardView {
	return &DashboardView{
		dashboard: d,
		styles:    styles.NewStyles(),
		keys:      keys.DefaultKeyMap(),
		now:       time.Now,
	}
}

func (v *DashboardView) adapter() *board.Adapter { return v.dashboard.Adapter }

func (v *DashboardView) setSize(width, height int) {
	v.width = width
	v.height = height
}

func (v *DashboardView) Update(msg tea.KeyMsg) (cmd tea.Cmd, handled bool) {
	recent := v.dashboard.Stats(v.now()).Recent
	switch {
	case key.Matches(msg, v.keys.Up):
		v.cursor = max(v.cursor-1, 0)
	case key.Matches(msg, v.keys.Down):
		v.cursor = clamp(v.cursor+1, 0, max(len(recent)-1, 0))
	case key.Matches(msg, v.keys.Enter):
		if v.cursor < len(recent) && !board.IsPending(recent[v.cursor].ID) {
			return openDetail(recent[v.cursor].ID), true
		}
	default:
		return nil, false
	}
	return nil, true
}

func (v *DashboardView) View() string {
	s := v.styles
	st := v.dashboard.Stats(v.now())

	tile := func(label string, value string, color lipgloss.Color) string {
		return s.Column.Width(16).Render(lipgloss.JoinVertical(lipgloss.Left,
			s.TitleMuted.Render(label),
			lipgloss.NewStyle().Foreground(color).Bold(true).Render(value),
		))
	}
	t := styles.Current
	tiles := lipgloss.JoinHorizontal(lipgloss.Top,
		tile("Total", fmt.Sprint(st.Total), t.Primary),
		tile("Completed", fmt.Sprintf("%.0f%%", st.CompletionRate), t.Success),
		tile("Overdue", fmt.Sprint(st.Overdue), t.Error),
		tile("Due soon", fmt.Sprint(st.DueSoon), t.Warning),
	)

	var byStatus []string
	for _, stt := range status.All {
		byStatus = append(byStatus, fmt.Sprintf("%s %s",
			lipgloss.NewStyle().Foreground(styles.StatusColor(stt)).Width(12).Render(string(stt)),
			bar(st.ByStatus[stt], st.Total, 20)))
	}
	var byPriority []string
	for i := len(models.Priorities) - 1; i >= 0; i-- {
		p := models.Priorities[i]
		byPriority = append(byPriority, fmt.Sprintf("%s %d",
			lipgloss.NewStyle().Foreground(styles.PriorityColor(p)).Width(8).Render(string(p)),
			st.ByPriority[p]))
	}

	recent := []string{s.Title.Render("Recent activity")}
	if len(st.Recent) == 0 {
		recent = append(recent, s.TitleMuted.Render("Nothing yet. Press 'n' to create a task."))
	}
	for i, task := range st.Recent {
		style := s.ListItem
		if board.IsPending(task.ID) {
			style = style.Inherit(s.CardPending)
		} else if i == v.cursor {
			style = s.ListSelected
		}
		line := fmt.Sprintf("%s  %s  %s",
			truncate(task.Title, 32),
			s.TitleMuted.Render(string(task.Status)),
			s.TitleMuted.Render(task.UpdatedAt.Local().Format("Jan 2 15:04")))
		recent = append(recent, style.Render(line))
	}

	h := v.dashboard.History()
	feed := []string{s.Title.Render("Activity")}
	if len(h.Activity) == 0 {
		feed = append(feed, s.TitleMuted.Render("No activity yet."))
	}
	for _, e := range h.Activity[:min(len(h.Activity), historyRows)] {
		feed = append(feed, fmt.Sprintf("%s  %s",
			truncate(e.Text, 44),
			s.TitleMuted.Render(e.At.Local().Format("Jan 2 15:04"))))
	}
	timeline := []string{s.Title.Render("Timeline")}
	if len(h.Timeline) == 0 {
		timeline = append(timeline, s.TitleMuted.Render("No milestones yet."))
	}
	for _, m := range h.Timeline[:min(len(h.Timeline), historyRows)] {
		timeline = append(timeline, fmt.Sprintf("%s %s  %s",
			lipgloss.NewStyle().Foreground(t.Primary).Render("●"),
			truncate(m.Title, 36),
			s.TitleMuted.Render(m.At.Local().Format("Jan 2, 2006"))))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		tiles,
		"",
		lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().MarginRight(4).Render(strings.Join(byStatus, "\n")),
			strings.Join(byPriority, "\n"),
		),
		"",
		strings.Join(recent, "\n"),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().MarginRight(4).Render(strings.Join(feed, "\n")),
			strings.Join(timeline, "\n"),
		),
	)
}

// bar draws n out of total as a fixed-width bar
func bar(n, total, width int) string {
	filled := 0
	if total > 0 {
		filled = n * width / total
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf(" %d", n)
}
