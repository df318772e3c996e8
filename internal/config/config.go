// Package config loads taskflow settings from defaults, an optional YAML file
// and TASKFLOW_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tgienger/taskflow/internal/store"
)

const envPrefix = "TASKFLOW"

// EnvDevelopment relaxes server checks for local use.
const EnvDevelopment = "development"

// Config represents the full taskflow configuration
type Config struct {
	// Mode selects the task store: "local" or "remote".
	Mode store.Mode `yaml:"mode" mapstructure:"mode"`
	// Author is the name attached to comments written from this machine.
	Author string `yaml:"author" mapstructure:"author"`
	// LogFile receives log output while the TUI runs. Empty discards it.
	LogFile string `yaml:"log_file" mapstructure:"log_file"`

	Local  LocalConfig  `yaml:"local" mapstructure:"local"`
	Remote RemoteConfig `yaml:"remote" mapstructure:"remote"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
}

// LocalConfig configures the local mirror store
type LocalConfig struct {
	// DBPath is the SQLite file. Empty uses the data directory default.
	DBPath       string        `yaml:"db_path" mapstructure:"db_path"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// RemoteConfig configures the record service client
type RemoteConfig struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Token string `yaml:"token" mapstructure:"token"`
}

// ServerConfig configures the record service
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	Env            string        `yaml:"env" mapstructure:"env"`
	JWTSecret      string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	DatabaseURL    string        `yaml:"database_url" mapstructure:"database_url"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AccessLog      bool          `yaml:"access_log" mapstructure:"access_log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(store.ModeLocal))
	v.SetDefault("author", "")
	v.SetDefault("log_file", "")
	v.SetDefault("local.db_path", "")
	v.SetDefault("local.poll_interval", time.Second)
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.token", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.env", EnvDevelopment)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl", 7*24*time.Hour)
	v.SetDefault("server.database_url", "")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.access_log", true)
}

// Load reads the configuration. An explicit path must exist; with an empty
// path the default file is read when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the conventional names used by hosting platforms
	_ = v.BindEnv("server.database_url", envPrefix+"_SERVER_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("server.jwt_secret", envPrefix+"_SERVER_JWT_SECRET", "JWT_SECRET")

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notExist *os.PathError
			if explicit || !errors.As(err, &notExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Mode = store.Mode(strings.ToLower(strings.TrimSpace(string(cfg.Mode))))
	return cfg, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/taskflow/config.yaml, falling back
// to ~/.config.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "taskflow", "config.yaml")
}

// Validate checks the client settings.
func (c *Config) Validate() error {
	switch c.Mode {
	case store.ModeLocal:
		if c.Local.PollInterval <= 0 {
			return fmt.Errorf("local.poll_interval must be positive")
		}
	case store.ModeRemote:
		if strings.TrimSpace(c.Remote.URL) == "" {
			return fmt.Errorf("remote mode requires remote.url")
		}
	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", c.Mode, store.ModeLocal, store.ModeRemote)
	}
	return nil
}

// ValidateServer checks the record service settings.
func (c *Config) ValidateServer() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.TokenTTL <= 0 {
		return fmt.Errorf("server.token_ttl must be positive")
	}
	if c.Server.JWTSecret == "" && c.Server.Env != EnvDevelopment {
		return fmt.Errorf("server.jwt_secret is required outside %s", EnvDevelopment)
	}
	return nil
}

// AuthorName returns the configured comment author, then $USER.
func (c *Config) AuthorName() string {
	if a := strings.TrimSpace(c.Author); a != "" {
		return a
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return store.AnonymousAuthor
}
