// Command gitpulse reports CI health and issue triage status for a repository.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/waabox/gitpulse/internal/config"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	app := &cli.App{
		Name:    "gitpulse",
		Usage:   "CI health and issue triage dashboards for GitHub and GitLab",
		Version: version,
		Description: `Aggregates workflow runs of a reporting week into success rates, daily
trends and failure patterns, and assembles an issue and pull request triage
dashboard with suggested next steps.

Tokens are read from GITHUB_TOKEN and GITLAB_TOKEN, or from the config file.
The repository is taken from --repo, the config file, or the origin remote of
the current git checkout.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the TOML config file",
				Value:   config.DefaultConfigPath(),
			},
			&cli.StringFlag{
				Name:    "repo",
				Aliases: []string{"r"},
				Usage:   "Repository in owner/name format",
				EnvVars: []string{"GITPULSE_REPO"},
			},
		},
		Commands: []*cli.Command{
			ciStatusCommand(),
			githubInspectCommand(),
			initCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
