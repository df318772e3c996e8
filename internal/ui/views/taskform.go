package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/status"
	"github.com/tgienger/taskflow/internal/store"
	"github.com/tgienger/taskflow/internal/ui/keys"
	"github.com/tgienger/taskflow/internal/ui/styles"
)

const dueLayout = "2006-01-02"

const (
	fieldTitle = iota
	fieldDesc
	fieldPriority
	fieldStatus
	fieldDue
	fieldAssignee
	fieldSave
	fieldCount
)

// taskFormSubmitted carries a validated form. For an edit, TaskID is set and
// Fields holds the changes; Status is set only when it changed.
type taskFormSubmitted struct {
	TaskID string
	New    store.NewTask
	Fields store.Fields
	Status string
}

// TaskForm creates or edits a task.
type TaskForm struct {
	styles *styles.Styles
	keys   keys.KeyMap
	width  int
	height int

	editing *models.Task

	title    textinput.Model
	desc     textarea.Model
	priority textinput.Model
	status   textinput.Model
	due      textinput.Model
	assignee textinput.Model
	focusIdx int
	err      string
}

// NewTaskForm opens an empty form, or one filled from task when editing.
func NewTaskForm(task *models.Task) *TaskForm {
	title := textinput.New()
	title.Placeholder = "Task title"
	title.CharLimit = 200

	desc := textarea.New()
	desc.Placeholder = "Description"
	desc.CharLimit = 1000
	desc.SetWidth(50)
	desc.SetHeight(3)
	desc.ShowLineNumbers = false

	priority := textinput.New()
	priority.Placeholder = "Low, Medium or High"
	priority.CharLimit = 10

	st := textinput.New()
	st.Placeholder = "Todo"
	st.CharLimit = 20

	due := textinput.New()
	due.Placeholder = "YYYY-MM-DD"
	due.CharLimit = 10

	assignee := textinput.New()
	assignee.Placeholder = "Assignee name"
	assignee.CharLimit = 100

	f := &TaskForm{
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		title:    title,
		desc:     desc,
		priority: priority,
		status:   st,
		due:      due,
		assignee: assignee,
	}

	if task != nil {
		t := task.Clone()
		f.editing = &t
		f.title.SetValue(t.Title)
		f.desc.SetValue(t.Description)
		f.priority.SetValue(string(t.Priority))
		f.status.SetValue(string(t.Status))
		if t.DueDate != nil {
			f.due.SetValue(t.DueDate.Format(dueLayout))
		}
		if t.AssignedTo != nil {
			f.assignee.SetValue(t.AssignedTo.Name)
		}
	} else {
		f.priority.SetValue(string(models.DefaultPriority))
		f.status.SetValue(string(status.Initial))
	}
	f.updateFocus()
	return f
}

func (f *TaskForm) setSize(width, height int) {
	f.width = width
	f.height = height
	f.desc.SetWidth(clamp(styles.ContentWidth(width)-10, 20, 50))
}

func (f *TaskForm) Update(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, f.keys.Back):
		return func() tea.Msg { return closeFormMsg{} }

	case key.Matches(msg, f.keys.Save):
		return f.submit()

	case key.Matches(msg, f.keys.Tab):
		f.focusIdx = (f.focusIdx + 1) % fieldCount
		f.updateFocus()
		return nil

	case msg.String() == "shift+tab":
		f.focusIdx = (f.focusIdx + fieldCount - 1) % fieldCount
		f.updateFocus()
		return nil

	case key.Matches(msg, f.keys.Enter):
		if f.focusIdx == fieldSave {
			return f.submit()
		}
		// newlines belong to the description
		if f.focusIdx != fieldDesc {
			f.focusIdx++
			f.updateFocus()
			return nil
		}
	}

	var cmd tea.Cmd
	switch f.focusIdx {
	case fieldTitle:
		f.title, cmd = f.title.Update(msg)
	case fieldDesc:
		f.desc, cmd = f.desc.Update(msg)
	case fieldPriority:
		f.priority, cmd = f.priority.Update(msg)
	case fieldStatus:
		f.status, cmd = f.status.Update(msg)
	case fieldDue:
		f.due, cmd = f.due.Update(msg)
	case fieldAssignee:
		f.assignee, cmd = f.assignee.Update(msg)
	}
	return cmd
}

func (f *TaskForm) updateFocus() {
	f.title.Blur()
	f.desc.Blur()
	f.priority.Blur()
	f.status.Blur()
	f.due.Blur()
	f.assignee.Blur()

	switch f.focusIdx {
	case fieldTitle:
		f.title.Focus()
	case fieldDesc:
		f.desc.Focus()
	case fieldPriority:
		f.priority.Focus()
	case fieldStatus:
		f.status.Focus()
	case fieldDue:
		f.due.Focus()
	case fieldAssignee:
		f.assignee.Focus()
	}
}

// submit validates the inputs. Invalid input keeps the form open with a
// message.
func (f *TaskForm) submit() tea.Cmd {
	out, problem := f.values()
	if problem != "" {
		f.err = problem
		return nil
	}
	f.err = ""
	return func() tea.Msg { return out }
}

// values reads the form. problem describes the first invalid input.
func (f *TaskForm) values() (out taskFormSubmitted, problem string) {
	title := strings.TrimSpace(f.title.Value())
	if title == "" {
		return out, "Title is required"
	}
	desc := strings.TrimSpace(f.desc.Value())

	prio, ok := models.ParsePriority(f.priority.Value())
	if !ok {
		return out, "Priority must be Low, Medium or High"
	}
	st, ok := status.Parse(f.status.Value())
	if !ok {
		return out, fmt.Sprintf("Unknown status %q", f.status.Value())
	}

	var due *time.Time
	if raw := strings.TrimSpace(f.due.Value()); raw != "" {
		d, err := time.ParseInLocation(dueLayout, raw, time.Local)
		if err != nil {
			return out, "Due date must look like " + dueLayout
		}
		due = &d
	}

	var assignee *models.Assignee
	if name := strings.TrimSpace(f.assignee.Value()); name != "" {
		assignee = &models.Assignee{Name: name}
	}

	if f.editing == nil {
		out.New = store.NewTask{
			Title:       title,
			Description: desc,
			Status:      string(st),
			Priority:    string(prio),
			DueDate:     due,
			AssignedTo:  assignee,
		}
		return out, ""
	}

	t := f.editing
	out.TaskID = t.ID
	if title != t.Title {
		out.Fields.Title = &title
	}
	if desc != t.Description {
		out.Fields.Description = &desc
	}
	if prio != t.Priority {
		p := string(prio)
		out.Fields.Priority = &p
	}
	switch {
	case due != nil && (t.DueDate == nil || !due.Equal(*t.DueDate)):
		out.Fields.DueDate = due
	case due == nil && t.DueDate != nil:
		out.Fields.ClearDueDate = true
	}
	switch {
	case assignee != nil && (t.AssignedTo == nil || assignee.Name != t.AssignedTo.Name):
		out.Fields.AssignedTo = assignee
	case assignee == nil && t.AssignedTo != nil:
		out.Fields.ClearAssignee = true
	}
	if st != t.Status {
		out.Status = string(st)
	}
	return out, ""
}

func (f *TaskForm) View() string {
	s := f.styles
	contentWidth := styles.ContentWidth(f.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	style := func(idx int) lipgloss.Style {
		if f.focusIdx == idx {
			return s.InputFocused.Width(inputWidth)
		}
		return s.Input.Width(inputWidth)
	}
	btnStyle := s.Button
	if f.focusIdx == fieldSave {
		btnStyle = s.ButtonFocused
	}

	heading := "New Task"
	button := " Create "
	if f.editing != nil {
		heading = "Edit Task"
		button = " Save "
	}

	rows := []string{
		s.Title.Render(heading),
		"",
		"Title:",
		style(fieldTitle).Render(f.title.View()),
		"Description:",
		style(fieldDesc).Render(f.desc.View()),
		"Priority:",
		style(fieldPriority).Render(f.priority.View()),
		"Status:",
		style(fieldStatus).Render(f.status.View()),
		"Due:",
		style(fieldDue).Render(f.due.View()),
		"Assignee:",
		style(fieldAssignee).Render(f.assignee.View()),
		"",
		btnStyle.Render(button),
	}
	if f.err != "" {
		rows = append(rows, "", s.Error.Render(f.err))
	}
	rows = append(rows, "", s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"))

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)
	centered := lipgloss.Place(contentWidth, f.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, f.width, f.height)
}
