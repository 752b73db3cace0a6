package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/waabox/gitpulse/internal/retry"
)

// GitHubConfig holds access to the GitHub API.
type GitHubConfig struct {
	Token string `toml:"token"`
	Owner string `toml:"owner"`
	Repo  string `toml:"repo"`
	// URL is the API base URL, set for GitHub Enterprise.
	URL string `toml:"url"`
}

// GitLabConfig holds access to the GitLab API.
type GitLabConfig struct {
	Token string `toml:"token"`
	URL   string `toml:"url"`
	// Project is the "group/name" path; detected from the git remote when empty.
	Project string `toml:"project"`
}

// ReportConfig tunes report generation.
type ReportConfig struct {
	Branch       string `toml:"branch"`
	StaleDays    int    `toml:"stale_days"`
	LookbackDays int    `toml:"lookback_days"`
	BatchSize    int    `toml:"batch_size"`
	MaxPages     int    `toml:"max_pages"`
	PerPage      int    `toml:"per_page"`
}

// RetryConfig tunes retries of transient upstream failures.
type RetryConfig struct {
	MaxAttempts int    `toml:"max_attempts"`
	BaseDelay   string `toml:"base_delay"`
}

// LogscanConfig tunes the log error-snippet extractor.
type LogscanConfig struct {
	MaxLines      int      `toml:"max_lines"`
	ExtraPatterns []string `toml:"extra_patterns"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console or json
}

// Config holds all gitpulse configuration.
type Config struct {
	GitHub  GitHubConfig  `toml:"github"`
	GitLab  GitLabConfig  `toml:"gitlab"`
	Report  ReportConfig  `toml:"report"`
	Retry   RetryConfig   `toml:"retry"`
	Logscan LogscanConfig `toml:"logscan"`
	Log     LogConfig     `toml:"log"`
}

const (
	defaultBranch       = "main"
	defaultStaleDays    = 14
	defaultLookbackDays = 30
	defaultBatchSize    = 10
	defaultMaxPages     = 50
	defaultPerPage      = 100
	defaultMaxAttempts  = 3
	defaultBaseDelay    = time.Second
	defaultMaxLines     = 80
	defaultLogLevel     = "info"
	defaultLogFormat    = "console"
)

// BranchOrDefault returns the branch runs are listed for.
func (c Config) BranchOrDefault() string {
	if c.Report.Branch != "" {
		return c.Report.Branch
	}
	return defaultBranch
}

// StaleDaysOrDefault returns the number of idle days after which an issue is stale.
func (c Config) StaleDaysOrDefault() int {
	if c.Report.StaleDays > 0 {
		return c.Report.StaleDays
	}
	return defaultStaleDays
}

// LookbackDaysOrDefault returns how many days before the window start
// issues are fetched for point-in-time counts.
func (c Config) LookbackDaysOrDefault() int {
	if c.Report.LookbackDays > 0 {
		return c.Report.LookbackDays
	}
	return defaultLookbackDays
}

// BatchSizeOrDefault returns the fan-out batch size.
func (c Config) BatchSizeOrDefault() int {
	if c.Report.BatchSize > 0 {
		return c.Report.BatchSize
	}
	return defaultBatchSize
}

// MaxPagesOrDefault returns the pagination ceiling.
func (c Config) MaxPagesOrDefault() int {
	if c.Report.MaxPages > 0 {
		return c.Report.MaxPages
	}
	return defaultMaxPages
}

// PerPageOrDefault returns the page size requested from providers.
func (c Config) PerPageOrDefault() int {
	if c.Report.PerPage > 0 {
		return c.Report.PerPage
	}
	return defaultPerPage
}

// MaxLinesOrDefault returns the snippet line budget.
func (c Config) MaxLinesOrDefault() int {
	if c.Logscan.MaxLines > 0 {
		return c.Logscan.MaxLines
	}
	return defaultMaxLines
}

// LogLevelOrDefault returns the configured log level.
func (c Config) LogLevelOrDefault() string {
	if c.Log.Level != "" {
		return c.Log.Level
	}
	return defaultLogLevel
}

// LogFormatOrDefault returns the configured log format.
func (c Config) LogFormatOrDefault() string {
	if c.Log.Format != "" {
		return c.Log.Format
	}
	return defaultLogFormat
}

// RetryPolicy returns the retry policy, falling back to defaults for unset
// fields. max_attempts is capped at retry.MaxAttempts. A malformed or
// non-positive base_delay is an error, and so is one above retry.MaxDelay.
func (c Config) RetryPolicy() (retry.Policy, error) {
	p := retry.Policy{BaseDelay: defaultBaseDelay, MaxAttempts: defaultMaxAttempts}
	if c.Retry.MaxAttempts > 0 {
		p.MaxAttempts = min(c.Retry.MaxAttempts, retry.MaxAttempts)
	}
	if c.Retry.BaseDelay != "" {
		d, err := time.ParseDuration(c.Retry.BaseDelay)
		if err != nil {
			return retry.Policy{}, fmt.Errorf("invalid retry.base_delay %q: %w", c.Retry.BaseDelay, err)
		}
		if d <= 0 || d > retry.MaxDelay {
			return retry.Policy{}, fmt.Errorf("invalid retry.base_delay %q: must be positive and at most %s", c.Retry.BaseDelay, retry.MaxDelay)
		}
		p.BaseDelay = d
	}
	return p, nil
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - GITHUB_TOKEN       overrides github.token
//   - GITLAB_TOKEN       overrides gitlab.token
//   - GITLAB_URL         overrides gitlab.url
//   - GITPULSE_LOG_LEVEL overrides log.level
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the gitpulse config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gitpulse", "config.toml")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("GITLAB_TOKEN"); v != "" {
		cfg.GitLab.Token = v
	}
	if v := os.Getenv("GITLAB_URL"); v != "" {
		cfg.GitLab.URL = v
	}
	if v := os.Getenv("GITPULSE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}

// Defaults returns a config with every tunable set to its default, for
// writing a starter file.
func Defaults() Config {
	return Config{
		Report: ReportConfig{
			Branch:       defaultBranch,
			StaleDays:    defaultStaleDays,
			LookbackDays: defaultLookbackDays,
			BatchSize:    defaultBatchSize,
			MaxPages:     defaultMaxPages,
			PerPage:      defaultPerPage,
		},
		Retry:   RetryConfig{MaxAttempts: defaultMaxAttempts, BaseDelay: defaultBaseDelay.String()},
		Logscan: LogscanConfig{MaxLines: defaultMaxLines},
		Log:     LogConfig{Level: defaultLogLevel, Format: defaultLogFormat},
	}
}
