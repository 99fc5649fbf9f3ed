// Package config loads the layered configuration: defaults, then the
// changelog.yaml file, then CHANGELOG_* environment variables, then flags
// bound by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ishaan812/changelog/internal/constants"
)

const (
	// EnvPrefix prefixes every environment override, e.g. CHANGELOG_SERVER_ADDR.
	EnvPrefix = "CHANGELOG"

	configName = "changelog"
)

type ServerConfig struct {
	Addr            string `mapstructure:"addr"`
	FrontendURL     string `mapstructure:"frontend_url"`
	PublicReposFile string `mapstructure:"public_repos_file"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type GitHubConfig struct {
	APIURL       string `mapstructure:"api_url"`
	PerPage      int    `mapstructure:"per_page"`
	Token        string `mapstructure:"token"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
}

type SummarizerConfig struct {
	Strategy   string        `mapstructure:"strategy"`
	MaxCommits int           `mapstructure:"max_commits"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	GitHub     GitHubConfig     `mapstructure:"github"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Auth       AuthConfig       `mapstructure:"auth"`
}

// GetChangelogDir returns the base directory for local state.
func GetChangelogDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".changelog"
	}
	return filepath.Join(homeDir, ".changelog")
}

// SetDefaults registers every key with its default so that environment
// variables are picked up for all of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3004")
	v.SetDefault("server.frontend_url", "")
	v.SetDefault("server.public_repos_file", "")

	v.SetDefault("database.driver", "duckdb")
	v.SetDefault("database.path", filepath.Join(GetChangelogDir(), "changelog.db"))

	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.per_page", 100)
	v.SetDefault("github.token", "")
	v.SetDefault("github.client_id", "")
	v.SetDefault("github.client_secret", "")
	v.SetDefault("github.redirect_url", "")

	v.SetDefault("llm.provider", string(constants.DefaultProvider))
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")

	v.SetDefault("summarizer.strategy", "freetext")
	v.SetDefault("summarizer.max_commits", 100)
	v.SetDefault("summarizer.timeout", 120*time.Second)

	v.SetDefault("cache.ttl", 600*time.Second)
	v.SetDefault("auth.session_ttl", 24*time.Hour)
}

// NewViper prepares a viper instance reading configFile, or changelog.yaml
// from the working directory or GetChangelogDir when configFile is empty.
// A missing default config file is not an error.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(GetChangelogDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Database.Path = expandHome(cfg.Database.Path)
	cfg.Server.PublicReposFile = expandHome(cfg.Server.PublicReposFile)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "duckdb", "sqlite":
	default:
		return fmt.Errorf("database.driver must be duckdb or sqlite, got %q", c.Database.Driver)
	}
	if _, ok := constants.ParseProvider(c.LLM.Provider); !ok {
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	switch strings.ToLower(c.Summarizer.Strategy) {
	case "", "schema", "freetext":
	default:
		return fmt.Errorf("summarizer.strategy must be schema or freetext, got %q", c.Summarizer.Strategy)
	}
	if c.GitHub.PerPage < 0 {
		return fmt.Errorf("github.per_page must not be negative")
	}
	return nil
}

// Provider returns the normalized LLM provider.
func (c *Config) Provider() constants.Provider {
	p, _ := constants.ParseProvider(c.LLM.Provider)
	return p
}

// GetAPIKey returns the configured LLM API key, falling back to the
// provider's conventional environment variable (GROQ_API_KEY, ...).
func (c *Config) GetAPIKey() string {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	if info := constants.GetProviderInfo(c.Provider()); info != nil && info.EnvKey != "" {
		return os.Getenv(info.EnvKey)
	}
	return ""
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
