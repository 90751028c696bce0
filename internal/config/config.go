package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string `env:"API_ADDR" envDefault:":8787"`
	CORSOrigin string `env:"GIT_JOURNAL_CORS_ORIGIN" envDefault:"*"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"text"`

	GraphQLURL string `env:"GITHUB_GRAPHQL_URL" envDefault:"https://api.github.com/graphql"`
	DigestURL  string `env:"DIGEST_URL" envDefault:"http://localhost:8080/api/nippou"`

	// Out-of-band token, only used to create the journal thread.
	GitHubToken  string `env:"GITHUB_TOKEN"`
	GitHubRepo   string `env:"GITHUB_REPO"`
	CategoryName string `env:"DISCUSSION_CATEGORY_NAME" envDefault:"General"`

	RedisURL      string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SessionSecret string        `env:"GIT_JOURNAL_SESSION_SECRET" envDefault:"git-journal-dev-secret"`
	SessionTTL    time.Duration `env:"GIT_JOURNAL_SESSION_TTL" envDefault:"168h"`

	RequestTimeout time.Duration `env:"GIT_JOURNAL_REQUEST_TIMEOUT" envDefault:"15s"`
	SaveTimeout    time.Duration `env:"GIT_JOURNAL_SAVE_TIMEOUT" envDefault:"30s"`
}

// Load reads dotenv files (missing ones are skipped) and then the process
// environment. Variables already set in the environment win.
func Load(dotenvFiles ...string) (Config, error) {
	for _, path := range dotenvFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("GIT_JOURNAL_SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	return cfg, nil
}

// Repository splits GITHUB_REPO ("owner/repo").
func (c Config) Repository() (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(c.GitHubRepo), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("GITHUB_REPO must be owner/repo, got %q", c.GitHubRepo)
	}
	return owner, repo, nil
}
