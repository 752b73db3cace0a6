package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/waabox/gitpulse/internal/config"
	"github.com/waabox/gitpulse/internal/dashboard"
	"github.com/waabox/gitpulse/internal/report"
	"github.com/waabox/gitpulse/internal/tui"
)

func weekFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "week",
		Aliases: []string{"w"},
		Usage:   "ISO week number, \"last\" or \"prev\"; the current week when empty",
	}
}

func formatFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   usage,
		Value:   string(report.FormatText),
	}
}

func parseFormat(c *cli.Context) (report.Format, error) {
	f, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return "", cli.Exit(err.Error(), 1)
	}
	return f, nil
}

// detailFormat rejects a format that cannot render an inspection before any
// provider is called.
func detailFormat(f report.Format, inspecting bool) error {
	if !inspecting {
		return nil
	}
	if err := report.CheckDetail(f); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func ciStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "ci-status",
		Usage: "Report CI success rates for a week",
		Description: `Fetches the workflow runs of every authenticated provider for the reporting
week and reports success rates per workflow, the state of the latest run of
each workflow, the daily trend and a recommendation.

With --inspect, the most recent failures of the first workflow whose name
contains the query are looked into: failed jobs, failed steps and the error
lines of their logs.

Example:
  gitpulse ci-status --week last --inspect e2e`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "branch",
				Aliases: []string{"b"},
				Usage:   "Branch whose runs are reported (default from config, else main)",
			},
			weekFlag(),
			&cli.StringFlag{
				Name:    "inspect",
				Aliases: []string{"i"},
				Usage:   "Inspect recent failures of the workflow matching this name",
			},
			formatFlag("Output format: text, json, yaml or prom"),
			&cli.BoolFlag{
				Name:  "interactive",
				Usage: "Browse the report in a terminal UI",
			},
		},
		Action: runCIStatus,
	}
}

func runCIStatus(c *cli.Context) error {
	format, err := parseFormat(c)
	if err != nil {
		return err
	}
	if err := detailFormat(format, c.String("inspect") != ""); err != nil {
		return err
	}
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	reg, err := e.registry()
	if err != nil {
		return err
	}
	extractor, err := e.extractor()
	if err != nil {
		return err
	}

	svc := dashboard.NewService(reg,
		dashboard.WithLogger(e.log),
		dashboard.WithBatchSize(e.cfg.BatchSizeOrDefault()),
		dashboard.WithExtractor(extractor),
	)
	req := dashboard.Request{Week: c.String("week"), Branch: c.String("branch")}
	if req.Branch == "" {
		req.Branch = e.cfg.BranchOrDefault()
	}

	if c.Bool("interactive") {
		if !isatty.IsTerminal(os.Stdout.Fd()) {
			return cli.Exit("--interactive needs a terminal on stdout", 1)
		}
		tui.Run(e.repo, svc, req)
		return nil
	}

	if q := c.String("inspect"); q != "" {
		ins, err := svc.Inspect(c.Context, req, q)
		if err != nil {
			return exitError(err)
		}
		return report.Inspection(os.Stdout, format, ins)
	}

	r, err := svc.Build(c.Context, req)
	if err != nil {
		if len(r.Auth) > 0 {
			_ = report.CI(os.Stderr, report.FormatText, r)
		}
		return exitError(err)
	}
	return report.CI(os.Stdout, format, r)
}

func githubInspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "github-inspect",
		Usage: "Issue and pull request triage dashboard",
		Description: `Lists issues waiting for review, accepted issues without an assignee, issues
with no maintainer response, stale issues and pull requests from forks, then
suggests next steps.

With --inspect N, shows issue or pull request N in detail: body, comments,
reviews, reproduction links and referenced items.

Example:
  gitpulse github-inspect --label bug --stale-days 30`,
		Flags: []cli.Flag{
			weekFlag(),
			&cli.IntFlag{
				Name:    "inspect",
				Aliases: []string{"i"},
				Usage:   "Inspect a single issue or pull request by number",
			},
			&cli.StringFlag{
				Name:    "label",
				Aliases: []string{"l"},
				Usage:   "Only consider issues carrying this label",
			},
			&cli.IntFlag{
				Name:  "stale-days",
				Usage: "Days without activity before an issue is stale (default from config, else 14)",
			},
			formatFlag("Output format: text, json, yaml or prom"),
		},
		Action: runGitHubInspect,
	}
}

func runGitHubInspect(c *cli.Context) error {
	format, err := parseFormat(c)
	if err != nil {
		return err
	}
	if err := detailFormat(format, c.Int("inspect") > 0); err != nil {
		return err
	}
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	if isGitLabHost(e.repo.Host, e.cfg.GitLab.URL) {
		return cli.Exit(fmt.Sprintf("%s is hosted on GitLab; github-inspect needs a GitHub repository (pass --repo owner/name)", e.repo.FullName()), 1)
	}
	gh, err := e.githubAdapter()
	if err != nil {
		return err
	}
	user, err := gh.Authenticate(c.Context)
	if err != nil {
		return exitError(err)
	}
	e.log.Debug().Str("user", user).Msg("authenticated with GitHub")

	svc := dashboard.NewIssueService(gh,
		dashboard.WithLogger(e.log),
		dashboard.WithBatchSize(e.cfg.BatchSizeOrDefault()),
		dashboard.WithStaleDays(e.cfg.StaleDaysOrDefault()),
		dashboard.WithLookbackDays(e.cfg.LookbackDaysOrDefault()),
	)

	if n := c.Int("inspect"); n > 0 {
		it, err := svc.InspectItem(c.Context, n)
		if err != nil {
			return exitError(err)
		}
		return report.Item(os.Stdout, format, it)
	}

	r, err := svc.Build(c.Context, dashboard.IssueRequest{
		Week:      c.String("week"),
		Label:     c.String("label"),
		StaleDays: c.Int("stale-days"),
	})
	if err != nil {
		return exitError(err)
	}
	return report.Issues(os.Stdout, format, r)
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a config file with every setting at its default",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config file",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.String("config")
			if _, err := os.Stat(path); err == nil && !c.Bool("force") {
				return cli.Exit(fmt.Sprintf("%s already exists (use --force to overwrite)", path), 1)
			}
			if err := config.Save(path, config.Defaults()); err != nil {
				return cli.Exit(fmt.Sprintf("writing config: %v", err), 1)
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
			return nil
		},
	}
}
