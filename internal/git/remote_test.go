package git_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/gitpulse/internal/git"
)

func TestParseRemoteURL_GitHub(t *testing.T) {
	url := "https://github.com/waabox/gitpulse.git"

	repo, err := git.ParseRemoteURL(url)
	require.NoError(t, err)
	assert.Equal(t, "waabox", repo.Owner)
	assert.Equal(t, "gitpulse", repo.Name)
	assert.Equal(t, "github.com", repo.Host)
	assert.Equal(t, url, repo.RemoteURL)
}

func TestParseRemoteURL_GitHubSSH(t *testing.T) {
	repo, err := git.ParseRemoteURL("git@github.com:waabox/gitpulse.git")
	require.NoError(t, err)
	assert.Equal(t, "waabox", repo.Owner)
	assert.Equal(t, "gitpulse", repo.Name)
}

func TestParseRemoteURL_GitLabSubgroup(t *testing.T) {
	repo, err := git.ParseRemoteURL("https://gitlab.com/mygroup/platform/myproject.git")
	require.NoError(t, err)
	assert.Equal(t, "mygroup/platform", repo.Owner)
	assert.Equal(t, "myproject", repo.Name)
	assert.Equal(t, "mygroup/platform/myproject", repo.FullName())
}

func TestParseRemoteURL_SSHScheme(t *testing.T) {
	repo, err := git.ParseRemoteURL("ssh://git@gitlab.example.com/team/project.git")
	require.NoError(t, err)
	assert.Equal(t, "gitlab.example.com", repo.Host)
	assert.Equal(t, "team/project", repo.FullName())
}

func TestParseRemoteURL_Invalid(t *testing.T) {
	for _, url := range []string{"not-a-url", "https://github.com/onlyowner", "git@github.com"} {
		_, err := git.ParseRemoteURL(url)
		assert.Error(t, err, url)
	}
}

func TestParseSlug(t *testing.T) {
	repo, err := git.ParseSlug("acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "acme", repo.Owner)
	assert.Equal(t, "widgets", repo.Name)

	_, err = git.ParseSlug("widgets")
	assert.Error(t, err, "a slug needs an owner")
}

func TestDetectRepository_ReadsGitConfigFromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	gitDir := filepath.Join(dir, ".git")
	require.NoError(t, os.Mkdir(gitDir, 0755))
	configContent := `[core]
	repositoryformatversion = 0
[remote "origin"]
	url = https://github.com/waabox/gitpulse.git
	fetch = +refs/heads/*:refs/remotes/origin/*
`
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "config"), []byte(configContent), 0644))
	sub := filepath.Join(dir, "internal", "stats")
	require.NoError(t, os.MkdirAll(sub, 0755))

	repo, err := git.DetectRepository(sub)
	require.NoError(t, err)
	assert.Equal(t, "waabox", repo.Owner)
	assert.Equal(t, "gitpulse", repo.Name)
}

func TestDetectRepository_NoOrigin(t *testing.T) {
	dir := t.TempDir()
	gitDir := filepath.Join(dir, ".git")
	require.NoError(t, os.Mkdir(gitDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "config"), []byte("[core]\n"), 0644))

	_, err := git.DetectRepository(dir)
	assert.Error(t, err, "a repository without origin is rejected")
}
