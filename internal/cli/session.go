package cli

import (
	"context"
	"fmt"

	"github.com/tgienger/taskflow/internal/activity"
	"github.com/tgienger/taskflow/internal/config"
	"github.com/tgienger/taskflow/internal/db"
	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
	"github.com/tgienger/taskflow/internal/store/local"
	"github.com/tgienger/taskflow/internal/store/remote"
	"github.com/tgienger/taskflow/internal/syncbus"
)

// tokenKey is the settings key holding the record service session token.
const tokenKey = "remote_token"

// session is the set of stores one command runs against. The SQLite file is
// always opened: it holds settings and the session token in both modes.
type session struct {
	db       *db.DB
	tasks    store.Store
	projects store.ProjectStore
	// exactly one of local and remote is set
	local  *local.Store
	remote *remote.Client

	// journal is kept in the SQLite file in both modes
	journal *activity.Log
}

func openSession(cfg *config.Config) (*session, error) {
	database, err := db.New(cfg.Local.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &session{db: database, journal: activity.NewLog(database)}

	switch cfg.Mode {
	case store.ModeRemote:
		token := cfg.Remote.Token
		if token == "" {
			if token, err = database.GetSetting(tokenKey); err != nil {
				database.Close()
				return nil, err
			}
		}
		s.remote = remote.New(cfg.Remote.URL, token)
		s.tasks = syncbus.NewNotifyingStore(activity.NewRecorder(s.remote, s.journal), syncbus.Default, database.Writer())
		s.projects = s.remote
	default:
		s.local = local.New(database)
		s.tasks = syncbus.NewNotifyingStore(activity.NewRecorder(s.local, s.journal), syncbus.Default, database.Writer())
		s.projects = database
	}
	return s, nil
}

// project turns a project reference (id, route or name) into the id the task
// store expects. The record service resolves references itself. Locally an
// empty reference or "global" names the global project.
func (s *session) project(ctx context.Context, ref string) (string, error) {
	if s.remote != nil {
		return ref, nil
	}
	if ref == "" || ref == models.GlobalProjectID {
		return models.GlobalProjectID, nil
	}
	p, err := s.db.ResolveProject(ctx, ref)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// listOwned pages f over every project in the session, the global
// project included in local mode.
func (s *session) listOwned(ctx context.Context, f store.Filter) (*store.Page, error) {
	if s.remote != nil {
		return s.remote.ListOwned(ctx, f)
	}
	projects, err := s.db.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	ids := []string{models.GlobalProjectID}
	for _, p := range projects {
		if p.ID != models.GlobalProjectID {
			ids = append(ids, p.ID)
		}
	}
	return store.ListAcross(ctx, s.local, ids, f)
}

func (s *session) Close() error {
	return s.db.Close()
}

// openCommandSession loads and validates the configuration and opens its
// stores.
func openCommandSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return openSession(cfg)
}
