package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// usersFileName is the default backing-file name under the home dir.
const usersFileName = "users.yaml"

type Config struct {
	Port      string        `env:"PORT,        default=8080"`
	Env       string        `env:"ENV,         default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,   default=10h"`
	LogLevel  string        `env:"LOG_LEVEL,   default=info"`

	// UsersFile overrides the backing file path. When empty the file
	// lives at <Home>/users.yaml.
	UsersFile string `env:"FILEAUTH_USERS_FILE"`
	Home      string `env:"FILEAUTH_HOME, default=~/.fileauth"`

	Redis    RedisConfig
	Throttle ThrottleConfig
}

type RedisConfig struct {
	// Addr enables the redis-backed login throttle when non-empty.
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

type ThrottleConfig struct {
	MaxFailures int           `env:"LOGIN_MAX_FAILURES,    default=5"`
	Window      time.Duration `env:"LOGIN_FAILURE_WINDOW,  default=5m"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveUsersFile applies the lookup order for the backing file:
// explicit path, then FILEAUTH_USERS_FILE, then <FILEAUTH_HOME>/users.yaml.
func (c *Config) ResolveUsersFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if c.UsersFile != "" {
		return c.UsersFile
	}
	home := c.Home
	if len(home) >= 2 && home[:2] == "~/" {
		if userHome, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(userHome, home[2:])
		}
	}
	return filepath.Join(home, usersFileName)
}
