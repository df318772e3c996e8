package cli

import (
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/tgienger/taskflow/internal/auth"
	"github.com/tgienger/taskflow/internal/config"
	"github.com/tgienger/taskflow/internal/records"
	"github.com/tgienger/taskflow/internal/server"
)

// devSecret signs tokens when no secret is configured in development.
const devSecret = "taskflow-development-secret"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the task record service",
	Long: `Serve the task record service over HTTP.

Records are kept in PostgreSQL when server.database_url (or DATABASE_URL) is set,
otherwise in memory.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	var repo records.Repository
	if cfg.Server.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.Server.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		pg := records.NewPgRepository(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare schema: %w", err)
		}
		repo = pg
	} else {
		log.Printf("no database configured, records are kept in memory")
		repo = records.NewMemoryRepository()
	}

	secret := cfg.Server.JWTSecret
	if secret == "" && cfg.Server.Env == config.EnvDevelopment {
		log.Printf("using the development token secret")
		secret = devSecret
	}

	srv := server.New(repo, auth.NewTokenManager(secret, cfg.Server.TokenTTL), server.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AccessLog:      cfg.Server.AccessLog,
	})
	return srv.Run(ctx, cfg.Server.Addr)
}
