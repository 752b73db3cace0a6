package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/gitpulse/internal/config"
	"github.com/waabox/gitpulse/internal/retry"
)

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[github]
token = "ghp_testtoken"
owner = "acme"
repo = "widgets"

[gitlab]
token = "glpat_testtoken"
url = "https://gitlab.example.com"

[report]
branch = "develop"
stale_days = 21

[logscan]
extra_patterns = ["E2E_BROKEN"]
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	cfg, err := config.LoadFrom(configPath)
	require.NoError(t, err)
	assert.Equal(t, "ghp_testtoken", cfg.GitHub.Token)
	assert.Equal(t, "acme", cfg.GitHub.Owner)
	assert.Equal(t, "widgets", cfg.GitHub.Repo)
	assert.Equal(t, "glpat_testtoken", cfg.GitLab.Token)
	assert.Equal(t, "https://gitlab.example.com", cfg.GitLab.URL)
	assert.Equal(t, "develop", cfg.BranchOrDefault())
	assert.Equal(t, 21, cfg.StaleDaysOrDefault())
	assert.Equal(t, []string{"E2E_BROKEN"}, cfg.Logscan.ExtraPatterns)
}

func TestLoad_EnvVarsTakePrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[github]
token = "ghp_fromfile"

[log]
level = "info"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	t.Setenv("GITHUB_TOKEN", "ghp_fromenv")
	t.Setenv("GITLAB_TOKEN", "glpat_fromenv")
	t.Setenv("GITLAB_URL", "https://gitlab.myco.com")
	t.Setenv("GITPULSE_LOG_LEVEL", "debug")

	cfg, err := config.LoadFrom(configPath)
	require.NoError(t, err)
	assert.Equal(t, "ghp_fromenv", cfg.GitHub.Token)
	assert.Equal(t, "glpat_fromenv", cfg.GitLab.Token)
	assert.Equal(t, "https://gitlab.myco.com", cfg.GitLab.URL)
	assert.Equal(t, "debug", cfg.LogLevelOrDefault())
}

func TestLoad_MissingFileIsNotError(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_onlyenv")

	cfg, err := config.LoadFrom("/nonexistent/path/config.toml")
	require.NoError(t, err, "a missing file is not an error")
	assert.Equal(t, "ghp_onlyenv", cfg.GitHub.Token)
}

func TestLoad_MalformedFileIsError(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[report\nbranch ="), 0600))

	_, err := config.LoadFrom(configPath)
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	var cfg config.Config

	assert.Equal(t, "main", cfg.BranchOrDefault())
	assert.Equal(t, 14, cfg.StaleDaysOrDefault())
	assert.Equal(t, 30, cfg.LookbackDaysOrDefault())
	assert.Equal(t, 10, cfg.BatchSizeOrDefault())
	assert.Equal(t, 50, cfg.MaxPagesOrDefault())
	assert.Equal(t, 80, cfg.MaxLinesOrDefault())

	p, err := cfg.RetryPolicy()
	require.NoError(t, err)
	assert.Equal(t, retry.Policy{BaseDelay: time.Second, MaxAttempts: 3}, p)
}

func TestRetryPolicy_ParsesBaseDelay(t *testing.T) {
	cfg := config.Config{Retry: config.RetryConfig{MaxAttempts: 5, BaseDelay: "250ms"}}

	p, err := cfg.RetryPolicy()
	require.NoError(t, err)
	assert.Equal(t, retry.Policy{BaseDelay: 250 * time.Millisecond, MaxAttempts: 5}, p)

	cfg.Retry.BaseDelay = "soon"
	_, err = cfg.RetryPolicy()
	assert.Error(t, err, "a malformed delay is rejected")
}

func TestRetryPolicy_RejectsOutOfRangeDelay(t *testing.T) {
	for _, delay := range []string{"0s", "-1s", "6m"} {
		cfg := config.Config{Retry: config.RetryConfig{BaseDelay: delay}}

		_, err := cfg.RetryPolicy()
		assert.ErrorContains(t, err, "invalid retry.base_delay", delay)
	}
}

func TestRetryPolicy_CapsAttempts(t *testing.T) {
	cfg := config.Config{Retry: config.RetryConfig{MaxAttempts: 64}}

	p, err := cfg.RetryPolicy()
	require.NoError(t, err)
	assert.Equal(t, retry.MaxAttempts, p.MaxAttempts)
}

func TestSave_RoundTrips(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := config.Defaults()
	cfg.GitHub.Owner = "acme"

	require.NoError(t, config.Save(configPath, cfg))
	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := config.LoadFrom(configPath)
	require.NoError(t, err)
	assert.Equal(t, "acme", loaded.GitHub.Owner)
	assert.Equal(t, "1s", loaded.Retry.BaseDelay)
}
