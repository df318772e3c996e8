package views

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskflow/internal/board"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
	"github.com/tgienger/taskflow/internal/ui/keys"
	"github.com/tgienger/taskflow/internal/ui/styles"
)

type docSaveMsg struct {
	detail *board.Detail
	seq    int
}

// DetailView shows one task with its documentation and comments.
type DetailView struct {
	detail *board.Detail
	author string
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	commentInput        textarea.Model
	commentInputFocused bool
	commentErr          string

	docInput   textarea.Model
	editingDoc bool
	docSeq     int
	docSaved   string
}

func NewDetailView(d *board.Detail, author string) *DetailView {
	commentInput := textarea.New()
	commentInput.Placeholder = "Add a comment..."
	commentInput.CharLimit = 2000
	commentInput.SetWidth(50)
	commentInput.SetHeight(3)
	commentInput.ShowLineNumbers = false

	docInput := textarea.New()
	docInput.Placeholder = "Documentation (markdown)"
	docInput.CharLimit = 20000
	docInput.SetWidth(60)
	docInput.SetHeight(8)
	docInput.ShowLineNumbers = false

	return &DetailView{
		detail:       d,
		author:       author,
		styles:       styles.NewStyles(),
		keys:         keys.DefaultKeyMap(),
		commentInput: commentInput,
		docInput:     docInput,
	}
}

func (v *DetailView) adapter() *board.Adapter { return v.detail.Adapter }

func (v *DetailView) setSize(width, height int) {
	v.width = width
	v.height = height
	inputWidth := clamp(styles.ContentWidth(width)-10, 20, 70)
	v.commentInput.SetWidth(inputWidth)
	v.docInput.SetWidth(inputWidth)
}

// Update handles keys and the documentation save timer.
func (v *DetailView) Update(ctx context.Context, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case docSaveMsg:
		if msg.detail != v.detail || msg.seq != v.docSeq {
			return nil
		}
		return v.saveDoc(ctx)
	case tea.KeyMsg:
		if v.commentInputFocused {
			return v.updateComment(ctx, msg)
		}
		if v.editingDoc {
			return v.updateDoc(ctx, msg)
		}
		return v.updateNormal(ctx, msg)
	}
	return nil
}

func (v *DetailView) updateNormal(ctx context.Context, msg tea.KeyMsg) tea.Cmd {
	task, ok := v.detail.Current()
	switch {
	case key.Matches(msg, v.keys.Back):
		return func() tea.Msg { return closeDetailMsg{} }
	case key.Matches(msg, v.keys.Quit):
		return tea.Quit
	case !ok:
		return nil
	case key.Matches(msg, v.keys.Comment):
		v.commentInputFocused = true
		v.commentErr = ""
		v.commentInput.Focus()
		return textarea.Blink
	case key.Matches(msg, v.keys.Docs):
		v.editingDoc = true
		v.docSaved = task.Documentation
		v.docInput.SetValue(task.Documentation)
		v.docInput.Focus()
		return textarea.Blink
	case key.Matches(msg, v.keys.Advance), key.Matches(msg, v.keys.Retreat):
		step := 1
		if key.Matches(msg, v.keys.Retreat) {
			step = -1
		}
		next := shiftStatus(task.Status, step)
		if next == task.Status {
			return nil
		}
		m, err := v.detail.Move(string(next))
		if err != nil {
			return nil
		}
		return runMutation(ctx, v.adapter(), m)
	case key.Matches(msg, v.keys.Priority):
		p := string(nextPriority(task.Priority))
		m, err := v.detail.Edit(store.Fields{Priority: &p})
		if err != nil {
			return nil
		}
		return runMutation(ctx, v.adapter(), m)
	case key.Matches(msg, v.keys.Edit):
		return openForm(&task)
	case key.Matches(msg, v.keys.Delete):
		return confirmDelete(task)
	}
	return nil
}

func (v *DetailView) updateComment(ctx context.Context, msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.commentInputFocused = false
		v.commentInput.Blur()
		return nil
	case key.Matches(msg, v.keys.Save):
		m, err := v.detail.Comment(v.author, v.commentInput.Value())
		if err != nil {
			v.commentErr = "Comment text is required"
			return nil
		}
		v.commentErr = ""
		v.commentInput.Reset()
		v.commentInputFocused = false
		v.commentInput.Blur()
		return runMutation(ctx, v.adapter(), m)
	}
	var cmd tea.Cmd
	v.commentInput, cmd = v.commentInput.Update(msg)
	return cmd
}

func (v *DetailView) updateDoc(ctx context.Context, msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, v.keys.Back) || key.Matches(msg, v.keys.Save) {
		v.editingDoc = false
		v.docInput.Blur()
		v.docSeq++
		return v.saveDoc(ctx)
	}
	var cmd tea.Cmd
	v.docInput, cmd = v.docInput.Update(msg)
	if v.docInput.Value() == v.docSaved {
		return cmd
	}
	v.docSeq++
	seq, d := v.docSeq, v.detail
	return tea.Batch(cmd, tea.Tick(docSaveDelay, func(time.Time) tea.Msg {
		return docSaveMsg{detail: d, seq: seq}
	}))
}

// saveDoc writes the edited documentation when it differs from the last save.
func (v *DetailView) saveDoc(ctx context.Context) tea.Cmd {
	doc := v.docInput.Value()
	if doc == v.docSaved {
		return nil
	}
	m, err := v.detail.Edit(store.Fields{Documentation: &doc})
	if err != nil {
		return nil
	}
	v.docSaved = doc
	return runMutation(ctx, v.adapter(), m)
}

func nextPriority(p models.Priority) models.Priority {
	for i, q := range models.Priorities {
		if q == p {
			return models.Priorities[(i+1)%len(models.Priorities)]
		}
	}
	return models.DefaultPriority
}

func (v *DetailView) View() string {
	s := v.styles
	if !v.detail.Loaded() {
		return s.TitleMuted.Render("Loading...")
	}
	if v.detail.NotFound() {
		return lipgloss.JoinVertical(lipgloss.Left,
			s.Title.Render("Task not found"),
			s.TitleMuted.Render("It may have been deleted elsewhere. Press esc to go back."),
		)
	}
	task, ok := v.detail.Current()
	if !ok {
		return ""
	}

	textWidth := clamp(styles.ContentWidth(v.width)-10, 20, 70)
	labelStyle := s.TitleMuted
	wrap := lipgloss.NewStyle().Width(textWidth)

	descText := task.Description
	if descText == "" {
		descText = s.TitleMuted.Render("No description")
	}

	var doc string
	switch {
	case v.editingDoc:
		doc = s.InputFocused.Render(v.docInput.View())
	case task.Documentation == "":
		doc = s.TitleMuted.Render("No documentation")
	default:
		doc = wrap.Render(task.Documentation)
	}

	due := "None"
	if task.DueDate != nil {
		due = task.DueDate.Format("Jan 2, 2006")
	}
	assignee := "Unassigned"
	if task.AssignedTo != nil {
		assignee = task.AssignedTo.Name
	}

	var comments []string
	if len(task.Comments) == 0 {
		comments = append(comments, s.TitleMuted.Render("No comments yet"))
	}
	for _, c := range task.Comments {
		stamp := c.CreatedAt.Local().Format("Jan 2, 2006 3:04 PM")
		head := c.Author + "  " + s.TitleMuted.Render(stamp)
		if board.IsPending(c.ID) {
			head += s.TitleMuted.Render("  sending...")
		}
		comments = append(comments, lipgloss.JoinVertical(lipgloss.Left, head, wrap.Render(c.Text)), "")
	}

	commentStyle := s.Input
	if v.commentInputFocused {
		commentStyle = s.InputFocused
	}
	commentBox := commentStyle.Render(v.commentInput.View())
	if v.commentErr != "" {
		commentBox = lipgloss.JoinVertical(lipgloss.Left, commentBox, s.Error.Render(v.commentErr))
	}

	var help string
	switch {
	case v.commentInputFocused:
		help = fmt.Sprintf("%s submit • %s cancel", s.HelpKey.Render("ctrl+s"), s.HelpKey.Render("esc"))
	case v.editingDoc:
		help = fmt.Sprintf("saves as you type • %s done", s.HelpKey.Render("esc"))
	default:
		help = fmt.Sprintf("%s comment • %s docs • %s status • %s priority • %s edit • %s delete • %s back",
			s.HelpKey.Render("c"),
			s.HelpKey.Render("o"),
			s.HelpKey.Render("[ ]"),
			s.HelpKey.Render("p"),
			s.HelpKey.Render("e"),
			s.HelpKey.Render("d"),
			s.HelpKey.Render("esc"),
		)
	}

	statusLine := lipgloss.NewStyle().Foreground(styles.StatusColor(task.Status)).Bold(true).Render(string(task.Status))
	priorityLine := lipgloss.NewStyle().Foreground(styles.PriorityColor(task.Priority)).Render(string(task.Priority))

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.MarginBottom(1).Render(task.Title),
		fmt.Sprintf("%s  %s  %s  %s",
			statusLine, priorityLine,
			labelStyle.Render("due "+due),
			labelStyle.Render(assignee)),
		"",
		labelStyle.Render("Description"),
		wrap.Render(descText),
		"",
		labelStyle.Render("Documentation"),
		doc,
		"",
		labelStyle.Render(fmt.Sprintf("Comments (%d)", len(task.Comments))),
		lipgloss.JoinVertical(lipgloss.Left, comments...),
		commentBox,
		"",
		s.Help.Render(help),
	)
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}
