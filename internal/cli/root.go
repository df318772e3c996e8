package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tgienger/taskflow/internal/config"
	"github.com/tgienger/taskflow/internal/store"
	"github.com/tgienger/taskflow/internal/syncbus"
	"github.com/tgienger/taskflow/internal/ui"
)

var (
	cfgFile  string
	modeFlag string
	rootCmd  *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "taskflow",
		Short: "taskflow - project boards in the terminal",
		Long: `taskflow keeps project tasks on a Kanban board, a sortable table and a dashboard.

Tasks live in a local SQLite mirror or in a remote record service ("taskflow serve").
Run without a subcommand to open the board.`,
		RunE:          runBoard,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/taskflow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "Task store: local or remote (overrides config)")
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(importCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// loadConfig reads the configuration and applies the --mode override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if modeFlag != "" {
		cfg.Mode = store.Mode(strings.ToLower(strings.TrimSpace(modeFlag)))
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runBoard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The board owns the terminal, so log output goes to a file or nowhere.
	if cfg.LogFile != "" {
		f, err := tea.LogToFile(cfg.LogFile, "taskflow")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.local != nil {
		go syncbus.NewWatcher(s.db, syncbus.Default, cfg.Local.PollInterval).Run(ctx)
	}

	app := ui.NewApp(ctx, ui.Deps{
		Projects: s.projects,
		Tasks:    s.tasks,
		Bus:      syncbus.Default,
		Journal:  s.journal,
		Settings: s.db,
		Author:   cfg.AuthorName(),
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run board: %w", err)
	}
	return nil
}
