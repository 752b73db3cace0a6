package git

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/waabox/gitpulse/internal/domain"
)

// DetectRepository looks for .git/config in dir and its parents and returns
// the Repository of the origin remote.
func DetectRepository(dir string) (domain.Repository, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return domain.Repository{}, fmt.Errorf("resolving %s: %w", dir, err)
	}
	for {
		configPath := filepath.Join(abs, ".git", "config")
		if _, err := os.Stat(configPath); err == nil {
			return readOrigin(configPath)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return domain.Repository{}, fmt.Errorf("no git repository found from %s", dir)
		}
		abs = parent
	}
}

func readOrigin(configPath string) (domain.Repository, error) {
	f, err := os.Open(configPath)
	if err != nil {
		return domain.Repository{}, fmt.Errorf("could not open .git/config: %w", err)
	}
	defer f.Close()

	var inOrigin bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == `[remote "origin"]` {
			inOrigin = true
			continue
		}
		if inOrigin && strings.HasPrefix(line, "[") {
			break
		}
		if inOrigin && strings.HasPrefix(line, "url") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				return ParseRemoteURL(strings.TrimSpace(parts[1]))
			}
		}
	}
	return domain.Repository{}, errors.New("no origin remote found in .git/config")
}

// ParseRemoteURL parses a git remote URL and returns a Repository.
// Supports HTTPS (https://github.com/owner/repo.git), SSH
// (git@github.com:owner/repo.git) and ssh:// URLs. For GitLab subgroups
// everything but the last path segment is the owner.
func ParseRemoteURL(rawURL string) (domain.Repository, error) {
	normalized := strings.TrimSuffix(strings.TrimSpace(rawURL), ".git")

	var host, path string
	switch {
	case strings.HasPrefix(normalized, "git@"):
		parts := strings.SplitN(strings.TrimPrefix(normalized, "git@"), ":", 2)
		if len(parts) != 2 {
			return domain.Repository{}, fmt.Errorf("invalid SSH remote URL: %s", rawURL)
		}
		host, path = parts[0], parts[1]
	case strings.HasPrefix(normalized, "ssh://"),
		strings.HasPrefix(normalized, "https://"),
		strings.HasPrefix(normalized, "http://"):
		withoutScheme := normalized[strings.Index(normalized, "://")+3:]
		parts := strings.SplitN(withoutScheme, "/", 2)
		if len(parts) != 2 {
			return domain.Repository{}, fmt.Errorf("invalid remote URL: %s", rawURL)
		}
		host, path = parts[0], parts[1]
		if at := strings.LastIndex(host, "@"); at >= 0 {
			host = host[at+1:]
		}
	default:
		return domain.Repository{}, fmt.Errorf("unsupported remote URL format: %s", rawURL)
	}

	repo, err := ParseSlug(path)
	if err != nil {
		return domain.Repository{}, fmt.Errorf("invalid remote URL path %s: %w", rawURL, err)
	}
	repo.Host = host
	repo.RemoteURL = rawURL
	return repo, nil
}

// ParseSlug parses "owner/name", where owner may contain further slashes.
func ParseSlug(slug string) (domain.Repository, error) {
	slug = strings.Trim(slug, "/")
	i := strings.LastIndex(slug, "/")
	if i <= 0 || i == len(slug)-1 {
		return domain.Repository{}, fmt.Errorf("expected owner/name, got %q", slug)
	}
	return domain.Repository{Owner: slug[:i], Name: slug[i+1:]}, nil
}
