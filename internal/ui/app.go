// Package ui is the terminal front end: a project list and, per project, a
// board with Kanban, table and dashboard views.
package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/taskflow/internal/board"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
	"github.com/tgienger/taskflow/internal/syncbus"
	"github.com/tgienger/taskflow/internal/ui/views"
)

const lastProjectKey = "last_project_id"

// Currently active view
type View int

const (
	ViewProjects View = iota
	ViewBoard
)

// Settings remembers small UI preferences between runs.
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Deps is what the application runs against.
type Deps struct {
	Projects store.ProjectStore
	Tasks    store.Store
	Bus      *syncbus.Bus
	Journal  board.Journal
	Settings Settings
	// Author signs comments written in the UI.
	Author string
}

type App struct {
	ctx         context.Context
	deps        Deps
	currentView View
	projectList *views.ProjectListView
	board       *views.BoardView
	width       int
	height      int
}

// Creates a new application
func NewApp(ctx context.Context, deps Deps) *App {
	if deps.Bus == nil {
		deps.Bus = syncbus.Default
	}
	return &App{
		ctx:         ctx,
		deps:        deps,
		currentView: ViewProjects,
		projectList: views.NewProjectListView(ctx, deps.Projects),
	}
}

type lastProjectMsg struct {
	project *models.Project
}

func (a *App) settingKey() string {
	return lastProjectKey + ":" + string(a.deps.Tasks.Mode())
}

// restoreLastProject reopens the project shown when the app last closed.
func (a *App) restoreLastProject() tea.Msg {
	if a.deps.Settings == nil {
		return lastProjectMsg{}
	}
	id, err := a.deps.Settings.GetSetting(a.settingKey())
	if err != nil || id == "" {
		return lastProjectMsg{}
	}
	projects, err := a.deps.Projects.ListProjects(a.ctx)
	if err != nil {
		return lastProjectMsg{}
	}
	for _, p := range projects {
		if p.ID == id {
			return lastProjectMsg{project: &p}
		}
	}
	return lastProjectMsg{}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.projectList.Init(), a.restoreLastProject)
}

func (a *App) openProject(project models.Project) tea.Cmd {
	if a.board != nil {
		a.board.Close()
	}
	a.currentView = ViewBoard
	a.board = views.NewBoardView(a.ctx, a.deps.Tasks, a.deps.Bus, a.deps.Journal, project, a.deps.Author)
	a.remember(project.ID)

	return tea.Batch(
		a.board.Init(),
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: a.width, Height: a.height}
		},
	)
}

// toucher is implemented by project stores that order projects by last use.
type toucher interface {
	TouchProject(ctx context.Context, id string) error
}

func (a *App) remember(projectID string) {
	if a.deps.Settings != nil {
		_ = a.deps.Settings.SetSetting(a.settingKey(), projectID)
	}
	if t, ok := a.deps.Projects.(toucher); ok && projectID != "" {
		_ = t.TouchProject(a.ctx, projectID)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Always update project list size since it persists
		a.projectList.Update(msg)

	case lastProjectMsg:
		if msg.project != nil && a.currentView == ViewProjects {
			return a, a.openProject(*msg.project)
		}
		return a, nil

	case views.SelectedProject:
		return a, a.openProject(msg.Project)

	case views.BackToProjects:
		a.currentView = ViewProjects
		if a.board != nil {
			a.board.Close()
			a.board = nil
		}
		a.remember("")
		return a, tea.Batch(
			a.projectList.Init(),
			func() tea.Msg {
				return tea.WindowSizeMsg{Width: a.width, Height: a.height}
			},
		)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewProjects:
		_, cmd = a.projectList.Update(msg)
	case ViewBoard:
		_, cmd = a.board.Update(msg)
	}

	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewBoard:
		if a.board != nil {
			return a.board.View()
		}
	}
	return a.projectList.View()
}
