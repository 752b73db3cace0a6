package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/waabox/gitpulse/internal/config"
	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/git"
	"github.com/waabox/gitpulse/internal/logger"
	"github.com/waabox/gitpulse/internal/logscan"
	"github.com/waabox/gitpulse/internal/provider"
	githubprovider "github.com/waabox/gitpulse/internal/provider/github"
	gitlabprovider "github.com/waabox/gitpulse/internal/provider/gitlab"
	"github.com/waabox/gitpulse/internal/retry"
)

const authHint = "set GITHUB_TOKEN and/or GITLAB_TOKEN, or add the tokens to the config file (gitpulse init writes a starter file)"

// env is everything a command needs, resolved from flags, config and the
// current checkout.
type env struct {
	cfg    config.Config
	log    zerolog.Logger
	repo   domain.Repository
	policy retry.Policy
}

func loadEnv(c *cli.Context) (*env, error) {
	cfg, err := config.LoadFrom(c.String("config"))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error loading config: %v", err), 1)
	}
	log := logger.New(cfg, os.Stderr)

	policy, err := cfg.RetryPolicy()
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}

	repo, err := resolveRepository(c.String("repo"), cfg)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("%v (pass --repo owner/name)", err), 1)
	}
	log.Debug().Str("repo", repo.FullName()).Str("host", repo.Host).Msg("resolved repository")

	return &env{cfg: cfg, log: log, repo: repo, policy: policy}, nil
}

// resolveRepository prefers the flag, then the config file, then the origin
// remote of the working directory.
func resolveRepository(flag string, cfg config.Config) (domain.Repository, error) {
	if flag != "" {
		return git.ParseSlug(flag)
	}
	if cfg.GitHub.Owner != "" && cfg.GitHub.Repo != "" {
		return domain.Repository{Owner: cfg.GitHub.Owner, Name: cfg.GitHub.Repo}, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return domain.Repository{}, fmt.Errorf("getting current directory: %w", err)
	}
	repo, err := git.DetectRepository(cwd)
	if err != nil {
		return domain.Repository{}, fmt.Errorf("detecting git remote: %w", err)
	}
	return repo, nil
}

// isGitLabHost reports whether host is gitlab.com or the configured
// self-hosted instance.
func isGitLabHost(host, configuredURL string) bool {
	if host == "" {
		return false
	}
	if strings.Contains(host, "gitlab") {
		return true
	}
	if configuredURL == "" {
		return false
	}
	u, err := url.Parse(configuredURL)
	return err == nil && strings.EqualFold(u.Hostname(), host)
}

func (e *env) extractor() (*logscan.Extractor, error) {
	extra, err := logscan.CompilePatterns(e.cfg.Logscan.ExtraPatterns)
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}
	return logscan.New(logscan.WithMaxLines(e.cfg.MaxLinesOrDefault()), logscan.WithPatterns(extra...)), nil
}

func (e *env) githubAdapter() (*githubprovider.Adapter, error) {
	opts := []githubprovider.Option{
		githubprovider.WithRetry(e.policy),
		githubprovider.WithPaging(e.cfg.PerPageOrDefault(), e.cfg.MaxPagesOrDefault()),
		githubprovider.WithLogger(e.log.With().Str("provider", githubprovider.Name).Logger()),
	}
	if e.cfg.GitHub.URL != "" {
		opts = append(opts, githubprovider.WithBaseURL(e.cfg.GitHub.URL))
	}
	a, err := githubprovider.NewAdapter(e.cfg.GitHub.Token, e.repo, opts...)
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}
	return a, nil
}

// registry registers GitHub unless the checkout lives on GitLab, then GitLab
// when the checkout lives there or a GitLab token is configured.
func (e *env) registry() (*provider.Registry, error) {
	reg := provider.NewRegistry()
	onGitLab := isGitLabHost(e.repo.Host, e.cfg.GitLab.URL)

	if !onGitLab {
		gh, err := e.githubAdapter()
		if err != nil {
			return nil, err
		}
		reg.Register(gh)
	}

	if onGitLab || e.cfg.GitLab.Token != "" {
		project := e.repo
		if e.cfg.GitLab.Project != "" {
			p, err := git.ParseSlug(e.cfg.GitLab.Project)
			if err != nil {
				return nil, cli.Exit(fmt.Sprintf("invalid gitlab.project: %v", err), 1)
			}
			project = p
		}
		reg.Register(gitlabprovider.NewAdapter(e.cfg.GitLab.Token, e.cfg.GitLab.URL, project,
			gitlabprovider.WithRetry(e.policy),
			gitlabprovider.WithPaging(e.cfg.PerPageOrDefault(), e.cfg.MaxPagesOrDefault()),
			gitlabprovider.WithLogger(e.log.With().Str("provider", gitlabprovider.Name).Logger()),
		))
	}
	return reg, nil
}

// exitError maps well-known failures to an exit with remediation text.
func exitError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNoAuthenticatedProvider), errors.Is(err, domain.ErrUnauthorized):
		return cli.Exit(fmt.Sprintf("%v: %s", err, authHint), 1)
	case errors.Is(err, domain.ErrInvalidWeekNumber):
		return cli.Exit(fmt.Sprintf("%v (use a week number between 1 and 53, \"last\" or \"prev\")", err), 1)
	case errors.Is(err, domain.ErrNotFound):
		return cli.Exit(err.Error(), 1)
	}
	return err
}
