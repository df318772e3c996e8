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
	"github.com/tgienger/taskflow/internal/store"
	"github.com/tgienger/taskflow/internal/syncbus"
	"github.com/tgienger/taskflow/internal/ui/keys"
	"github.com/tgienger/taskflow/internal/ui/styles"
)

// Tab is one of the board's task views
type Tab int

const (
	TabKanban Tab = iota
	TabTable
	TabDashboard
	tabCount
)

func (t Tab) String() string {
	switch t {
	case TabKanban:
		return "Kanban"
	case TabTable:
		return "Table"
	case TabDashboard:
		return "Dashboard"
	}
	return "?"
}

// BackToProjects signals to go back to project list
type BackToProjects struct{}

type openDetailMsg struct{ taskID string }
type closeDetailMsg struct{}
type openFormMsg struct{ task *models.Task }
type closeFormMsg struct{}
type confirmDeleteMsg struct{ task models.Task }

func openDetail(taskID string) tea.Cmd {
	return func() tea.Msg { return openDetailMsg{taskID: taskID} }
}

func openForm(task *models.Task) tea.Cmd {
	return func() tea.Msg { return openFormMsg{task: task} }
}

func confirmDelete(task models.Task) tea.Cmd {
	return func() tea.Msg { return confirmDeleteMsg{task: task} }
}

// BoardView hosts one project's Kanban, table and dashboard views, the task
// detail overlay and the task form. Only the visible views are mounted on
// the bus.
type BoardView struct {
	ctx     context.Context
	store   store.Store
	bus     *syncbus.Bus
	project models.Project
	author  string
	styles  *styles.Styles
	keys    keys.KeyMap

	width  int
	height int

	tab       Tab
	kanban    *KanbanView
	table     *TableView
	dashboard *DashboardView
	detail    *DetailView
	form      *TaskForm

	confirmingDelete bool
	deleteTargetID   string
	deleteTargetName string

	showHelpPopup bool
}

// NewBoardView creates the board for project. Mutations go through s and
// are expected to be announced on bus. The dashboard reads its history from
// journal, which may be nil.
func NewBoardView(ctx context.Context, s store.Store, bus *syncbus.Bus, journal board.Journal, project models.Project, author string) *BoardView {
	return &BoardView{
		ctx:       ctx,
		store:     s,
		bus:       bus,
		project:   project,
		author:    author,
		styles:    styles.NewStyles(),
		keys:      keys.DefaultKeyMap(),
		kanban:    NewKanbanView(board.NewKanban(s, project.ID)),
		table:     NewTableView(board.NewTable(s, project.ID)),
		dashboard: NewDashboardView(board.NewDashboard(s, project.ID, journal)),
	}
}

// Project returns the project shown
func (v *BoardView) Project() models.Project { return v.project }

// Tab returns the visible view
func (v *BoardView) Tab() Tab { return v.tab }

func (v *BoardView) Init() tea.Cmd {
	return mount(v.ctx, v.active(), v.bus)
}

// Close unmounts every view.
func (v *BoardView) Close() {
	v.kanban.adapter().Unmount()
	v.table.adapter().Unmount()
	v.dashboard.adapter().Unmount()
	if v.detail != nil {
		v.detail.adapter().Unmount()
	}
}

func (v *BoardView) active() *board.Adapter {
	switch v.tab {
	case TabTable:
		return v.table.adapter()
	case TabDashboard:
		return v.dashboard.adapter()
	}
	return v.kanban.adapter()
}

func (v *BoardView) switchTab(to Tab) tea.Cmd {
	if to == v.tab {
		return nil
	}
	v.active().Unmount()
	v.tab = to
	return mount(v.ctx, v.active(), v.bus)
}

func (v *BoardView) adapters() []*board.Adapter {
	out := []*board.Adapter{v.kanban.adapter(), v.table.adapter(), v.dashboard.adapter()}
	if v.detail != nil {
		out = append(out, v.detail.adapter())
	}
	return out
}

func (v *BoardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	for _, a := range v.adapters() {
		if cmd, ok := handleSync(v.ctx, a, msg); ok {
			return v, cmd
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		inner := msg.Height - 6
		v.kanban.setSize(msg.Width, inner)
		v.table.setSize(msg.Width, inner)
		v.dashboard.setSize(msg.Width, inner)
		if v.detail != nil {
			v.detail.setSize(msg.Width, msg.Height)
		}
		if v.form != nil {
			v.form.setSize(msg.Width, msg.Height)
		}
		return v, nil

	case openDetailMsg:
		if v.detail != nil {
			v.detail.adapter().Unmount()
		}
		v.detail = NewDetailView(board.NewDetail(v.store, v.project.ID, msg.taskID), v.author)
		v.detail.setSize(v.width, v.height)
		return v, mount(v.ctx, v.detail.adapter(), v.bus)

	case closeDetailMsg:
		if v.detail != nil {
			v.detail.adapter().Unmount()
			v.detail = nil
		}
		return v, nil

	case docSaveMsg:
		if v.detail != nil {
			return v, v.detail.Update(v.ctx, msg)
		}
		return v, nil

	case openFormMsg:
		v.form = NewTaskForm(msg.task)
		v.form.setSize(v.width, v.height)
		return v, textinput.Blink

	case closeFormMsg:
		v.form = nil
		return v, nil

	case taskFormSubmitted:
		v.form = nil
		return v, v.applyForm(msg)

	case confirmDeleteMsg:
		v.confirmingDelete = true
		v.deleteTargetID = msg.task.ID
		v.deleteTargetName = msg.task.Title
		return v, nil

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if v.confirmingDelete {
			return v, v.updateConfirmDelete(msg)
		}
		if v.form != nil {
			return v, v.form.Update(msg)
		}
		if v.detail != nil {
			return v, v.detail.Update(v.ctx, msg)
		}
		return v, v.updateNormal(msg)
	}
	return v, nil
}

func (v *BoardView) updateNormal(msg tea.KeyMsg) tea.Cmd {
	var (
		cmd     tea.Cmd
		handled bool
	)
	switch v.tab {
	case TabKanban:
		cmd, handled = v.kanban.Update(v.ctx, msg)
	case TabTable:
		cmd, handled = v.table.Update(v.ctx, msg)
	case TabDashboard:
		cmd, handled = v.dashboard.Update(msg)
	}
	if handled {
		return cmd
	}

	switch {
	case key.Matches(msg, v.keys.Quit):
		return tea.Quit
	case key.Matches(msg, v.keys.Back):
		return func() tea.Msg { return BackToProjects{} }
	case key.Matches(msg, v.keys.NextView):
		return v.switchTab((v.tab + 1) % tabCount)
	case key.Matches(msg, v.keys.PrevView):
		return v.switchTab((v.tab + tabCount - 1) % tabCount)
	case msg.String() == "1", msg.String() == "2", msg.String() == "3":
		return v.switchTab(Tab(msg.String()[0] - '1'))
	case key.Matches(msg, v.keys.New):
		return openForm(nil)
	case key.Matches(msg, v.keys.Reload):
		return fetchTasks(v.ctx, v.active())
	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
	}
	return nil
}

func (v *BoardView) updateConfirmDelete(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		if v.detail != nil && v.detail.detail.TaskID() == v.deleteTargetID {
			v.detail.adapter().Unmount()
			v.detail = nil
		}
		a := v.active()
		m, err := a.BeginDelete(v.deleteTargetID)
		if err != nil {
			return nil
		}
		return runMutation(v.ctx, a, m)
	case "n", "N", "esc":
		v.confirmingDelete = false
	}
	return nil
}

// applyForm starts the optimistic create or edit for a submitted form.
func (v *BoardView) applyForm(f taskFormSubmitted) tea.Cmd {
	a := v.active()
	if f.TaskID == "" {
		m, err := a.BeginCreate(f.New)
		if err != nil {
			return nil
		}
		return runMutation(v.ctx, a, m)
	}

	if v.detail != nil && v.detail.detail.TaskID() == f.TaskID {
		a = v.detail.adapter()
	}
	var cmds []tea.Cmd
	if !f.Fields.Empty() {
		if m, err := a.BeginEdit(f.TaskID, f.Fields); err == nil {
			cmds = append(cmds, runMutation(v.ctx, a, m))
		}
	}
	if f.Status != "" {
		if m, err := a.BeginStatus(f.TaskID, f.Status); err == nil {
			cmds = append(cmds, runMutation(v.ctx, a, m))
		}
	}
	return tea.Batch(cmds...)
}

func (v *BoardView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}
	if v.form != nil {
		return v.form.View()
	}

	var body string
	if v.detail != nil {
		body = v.detail.View()
	} else {
		body = v.renderTab()
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(body)
	if n := v.renderNotice(); n != "" {
		b.WriteString("\n\n")
		b.WriteString(n)
	}
	if v.detail == nil {
		b.WriteString("\n")
		b.WriteString(v.renderHelp())
	}
	return b.String()
}

func (v *BoardView) renderTab() string {
	a := v.active()
	s := v.styles
	switch {
	case !a.Loaded():
		return s.TitleMuted.Render("Loading...")
	case a.NotFound():
		return s.TitleMuted.Render("This project no longer exists. Press esc to go back.")
	}
	switch v.tab {
	case TabTable:
		return v.table.View()
	case TabDashboard:
		return v.dashboard.View()
	}
	return v.kanban.View()
}

func (v *BoardView) renderHeader() string {
	s := v.styles
	var tabs []string
	for t := Tab(0); t < tabCount; t++ {
		style := s.Tab
		if t == v.tab {
			style = s.TabActive
		}
		tabs = append(tabs, style.Render(fmt.Sprintf("%d %s", t+1, t)))
	}
	mode := s.TitleMuted.Render(string(v.store.Mode()))
	return lipgloss.JoinHorizontal(lipgloss.Center,
		s.Title.Render(v.project.Name), "  ",
		lipgloss.JoinHorizontal(lipgloss.Center, tabs...), "  ",
		mode,
	)
}

// renderNotice shows the newest failure notice of the visible views.
func (v *BoardView) renderNotice() string {
	adapters := []*board.Adapter{v.active()}
	if v.detail != nil {
		adapters = append(adapters, v.detail.adapter())
	}
	var newest *board.Notice
	for _, a := range adapters {
		if n, ok := a.Notice(); ok && (newest == nil || n.Seq > newest.Seq) {
			newest = &n
		}
	}
	if newest == nil {
		return ""
	}
	text := newest.Text
	if newest.Retryable {
		text += " (try again)"
	}
	return v.styles.Notice.Render(text)
}

func (v *BoardView) renderHelp() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 50 {
		return s.Help.Render(s.HelpKey.Render("?") + " help")
	}

	var extra string
	switch v.tab {
	case TabKanban:
		if v.kanban.Dragging() {
			return s.Help.Render(fmt.Sprintf("%s move • %s drop • %s cancel",
				s.HelpKey.Render("←→"), s.HelpKey.Render("space"), s.HelpKey.Render("esc")))
		}
		extra = fmt.Sprintf("%s grab • ", s.HelpKey.Render("space"))
	case TabTable:
		extra = fmt.Sprintf("%s search • %s sort • %s status • ",
			s.HelpKey.Render("/"), s.HelpKey.Render("s"), s.HelpKey.Render("[ ]"))
	}
	return s.Help.Render(extra + fmt.Sprintf("%s view • %s new • %s edit • %s del • %s switch • %s back • %s quit",
		s.HelpKey.Render("↵"),
		s.HelpKey.Render("n"),
		s.HelpKey.Render("e"),
		s.HelpKey.Render("d"),
		s.HelpKey.Render("tab"),
		s.HelpKey.Render("esc"),
		s.HelpKey.Render("q"),
	))
}

func (v *BoardView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("tab") + "    next view (1-3 jump)",
		s.HelpKey.Render("↵") + "      open task",
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("e") + "      edit task",
		s.HelpKey.Render("d") + "      delete task",
		s.HelpKey.Render("space") + "  grab/drop card (kanban)",
		s.HelpKey.Render("/") + "      search (table)",
		s.HelpKey.Render("s r") + "    sort, reverse (table)",
		s.HelpKey.Render("[ ]") + "    change status",
		s.HelpKey.Render("ctrl+r") + " reload",
		s.HelpKey.Render("esc") + "    back",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.FilterBar.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *BoardView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Task?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("%q will be removed.", truncate(v.deleteTargetName, 40))),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}
