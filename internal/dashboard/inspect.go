package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/waabox/gitpulse/internal/batch"
	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/logscan"
	"github.com/waabox/gitpulse/internal/stats"
	"github.com/waabox/gitpulse/internal/window"
)

// MaxInspectedFailures is how many of the most recent failed runs an
// inspection looks into.
const MaxInspectedFailures = 3

// FailedJob is a failed job of an inspected run.
type FailedJob struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	FailedSteps []string          `json:"failed_steps,omitempty" yaml:"failed_steps,omitempty"`
	LogFound    bool              `json:"log_found" yaml:"log_found"`
	Snippets    []logscan.Snippet `json:"snippets,omitempty" yaml:"snippets,omitempty"`
}

// FailedRun is one inspected failed run.
type FailedRun struct {
	Run  domain.RunRecord `json:"run" yaml:"run"`
	Jobs []FailedJob      `json:"jobs" yaml:"jobs"`
	// Note explains why no jobs are listed.
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// WorkflowNames lists the workflows one provider ran in the window.
type WorkflowNames struct {
	Source string   `json:"source" yaml:"source"`
	Names  []string `json:"names" yaml:"names"`
}

// Inspection is the result of looking into one workflow.
type Inspection struct {
	Query    string            `json:"query" yaml:"query"`
	Week     int               `json:"week" yaml:"week"`
	Window   domain.TimeWindow `json:"window" yaml:"window"`
	Found    bool              `json:"found" yaml:"found"`
	Source   string            `json:"source,omitempty" yaml:"source,omitempty"`
	Stats    stats.GroupStats  `json:"stats" yaml:"stats"`
	Failures []FailedRun       `json:"failures,omitempty" yaml:"failures,omitempty"`
	// Pattern is set when there were at least two failures.
	Pattern *stats.FailurePattern `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	// Available is filled when no workflow matched the query.
	Available []WorkflowNames `json:"available,omitempty" yaml:"available,omitempty"`
	Warnings  []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Inspect looks for the workflow whose name contains query, ignoring case,
// trying each authenticated provider in registration order. The first
// provider with a match wins.
func (s *Service) Inspect(ctx context.Context, req Request, query string) (Inspection, error) {
	w, week, err := window.Resolve(req.Week, s.now())
	if err != nil {
		return Inspection{}, err
	}
	ins := Inspection{Query: query, Week: week, Window: w}

	providers := s.registry.Authenticated(s.registry.CheckAuth(ctx))
	if len(providers) == 0 {
		return ins, domain.ErrNoAuthenticatedProvider
	}

	var warnings *multierror.Error
	filter := domain.RunFilter{Branch: req.Branch, Window: w}
	for _, p := range providers {
		runs, err := p.ListRuns(ctx, filter)
		if err != nil {
			warnings = multierror.Append(warnings, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		matched := matchGroup(runs, query)
		if len(matched) == 0 {
			ins.Available = append(ins.Available, WorkflowNames{Source: p.Name(), Names: groupNames(runs)})
			continue
		}

		ins.Found = true
		ins.Available = nil
		ins.Source = p.Name()
		ins.Stats = stats.Aggregate(matched[0].Group, matched)

		failed := failedRuns(matched)
		if fp, ok := stats.SummarizeFailures(timestamps(failed), w); ok {
			ins.Pattern = &fp
		}
		if len(failed) > MaxInspectedFailures {
			failed = failed[:MaxInspectedFailures]
		}
		ins.Failures, err = s.inspectRuns(ctx, p, failed, &warnings)
		if err != nil {
			return ins, err
		}
		break
	}

	ins.Warnings = warningStrings(warnings)
	for _, msg := range ins.Warnings {
		s.log.Warn().Str("workflow", query).Msg(msg)
	}
	return ins, nil
}

// matchGroup returns the runs of the first group whose name contains
// query. Runs of other groups that also match are left out.
func matchGroup(runs []domain.RunRecord, query string) []domain.RunRecord {
	needle := strings.ToLower(query)
	name := ""
	for _, r := range runs {
		if strings.Contains(strings.ToLower(r.Group), needle) {
			name = r.Group
			break
		}
	}
	if name == "" {
		return nil
	}
	var out []domain.RunRecord
	for _, r := range runs {
		if r.Group == name {
			out = append(out, r)
		}
	}
	return out
}

func groupNames(runs []domain.RunRecord) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range runs {
		if r.Group == "" || seen[r.Group] {
			continue
		}
		seen[r.Group] = true
		names = append(names, r.Group)
	}
	sort.Strings(names)
	return names
}

// failedRuns returns the failed runs, newest first.
func failedRuns(runs []domain.RunRecord) []domain.RunRecord {
	var out []domain.RunRecord
	for _, r := range runs {
		if stats.Classify(r) == domain.OutcomeFailure {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp().After(out[j].Timestamp()) })
	return out
}

func timestamps(runs []domain.RunRecord) []time.Time {
	out := make([]time.Time, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Timestamp())
	}
	return out
}

type jobRef struct {
	run int
	job domain.JobRecord
}

type jobLog struct {
	found bool
	raw   string
	err   error
}

func (s *Service) inspectRuns(ctx context.Context, p domain.RunProvider, runs []domain.RunRecord, warnings **multierror.Error) ([]FailedRun, error) {
	out := make([]FailedRun, len(runs))
	var refs []jobRef
	for i, r := range runs {
		out[i].Run = r
		jobs, err := p.ListJobs(ctx, r.ID)
		if err != nil {
			out[i].Note = "failed to fetch jobs"
			*warnings = multierror.Append(*warnings, fmt.Errorf("jobs of run %s: %w", r.ID, err))
			continue
		}
		for _, j := range jobs {
			if stats.ClassifyJob(j) == domain.OutcomeFailure {
				refs = append(refs, jobRef{run: i, job: j})
			}
		}
	}

	logs, err := batch.Run(ctx, refs, s.batchSize, func(ctx context.Context, ref jobRef) (jobLog, error) {
		raw, ok, err := p.DownloadLog(ctx, ref.job.ID)
		return jobLog{found: ok, raw: raw, err: err}, nil
	})
	if err != nil {
		return out, err
	}

	for i, ref := range refs {
		fj := FailedJob{ID: ref.job.ID, Name: ref.job.Name}
		for _, st := range ref.job.Steps {
			if stats.ClassifyStep(st) == domain.OutcomeFailure {
				fj.FailedSteps = append(fj.FailedSteps, st.Name)
			}
		}
		l := logs[i]
		switch {
		case l.err != nil:
			*warnings = multierror.Append(*warnings, fmt.Errorf("log of job %s: %w", ref.job.Name, l.err))
		case !l.found:
			*warnings = multierror.Append(*warnings, fmt.Errorf("log of job %s is not available", ref.job.Name))
		default:
			fj.LogFound = true
			fj.Snippets = s.extractor.Extract(l.raw)
		}
		out[ref.run].Jobs = append(out[ref.run].Jobs, fj)
	}

	for i := range out {
		if len(out[i].Jobs) == 0 && out[i].Note == "" {
			out[i].Note = "no failed jobs found (run may have been cancelled)"
		}
	}
	return out, nil
}
