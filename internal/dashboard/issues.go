package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/waabox/gitpulse/internal/batch"
	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/lifecycle"
	"github.com/waabox/gitpulse/internal/triage"
	"github.com/waabox/gitpulse/internal/window"
)

// Labels the issue dashboard is organised around.
const (
	LabelNeedsReview   = "needs review"
	LabelIssueAccepted = "issue accepted"
)

const (
	labelledLimit    = 100
	unrespondedLimit = 100
	staleLimit       = 100
	externalPRLimit  = 50
)

// IssueService builds the issue triage dashboard.
type IssueService struct {
	issues       domain.IssueProvider
	log          zerolog.Logger
	batchSize    int
	staleDays    int
	lookbackDays int
	now          func() time.Time
}

// NewIssueService creates an issue dashboard service over issues.
func NewIssueService(issues domain.IssueProvider, opts ...Option) *IssueService {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	return &IssueService{
		issues:       issues,
		log:          o.log,
		batchSize:    o.batchSize,
		staleDays:    o.staleDays,
		lookbackDays: o.lookbackDays,
		now:          o.now,
	}
}

// IssueRequest selects what the issue dashboard covers.
type IssueRequest struct {
	Week string
	// Label narrows every section to issues carrying it.
	Label string
	// StaleDays overrides the configured stale threshold when positive.
	StaleDays int
}

// Flow is the issue and pull request movement over the window.
type Flow struct {
	Issues       lifecycle.Snapshot `json:"issues" yaml:"issues"`
	PullRequests lifecycle.Snapshot `json:"pull_requests" yaml:"pull_requests"`
}

// IssueReport is the issue triage dashboard.
type IssueReport struct {
	ID                    string                          `json:"report_id" yaml:"report_id"`
	GeneratedAt           time.Time                       `json:"generated_at" yaml:"generated_at"`
	Week                  int                             `json:"week" yaml:"week"`
	Window                domain.TimeWindow               `json:"window" yaml:"window"`
	Label                 string                          `json:"label,omitempty" yaml:"label,omitempty"`
	StaleDays             int                             `json:"stale_days" yaml:"stale_days"`
	NeedsReviewUnassigned []domain.IssueRecord            `json:"needs_review_unassigned" yaml:"needs_review_unassigned"`
	NeedsReviewAssigned   []domain.IssueRecord            `json:"needs_review_assigned" yaml:"needs_review_assigned"`
	AcceptedUnassigned    []domain.IssueRecord            `json:"accepted_unassigned" yaml:"accepted_unassigned"`
	Unresponded           []domain.IssueRecord            `json:"unresponded" yaml:"unresponded"`
	Stale                 []domain.IssueRecord            `json:"stale" yaml:"stale"`
	ExternalPRs           []domain.PullRequestWithReviews `json:"external_prs" yaml:"external_prs"`
	Flow                  Flow                            `json:"flow" yaml:"flow"`
	Hotspots              []triage.AreaCount              `json:"hotspots,omitempty" yaml:"hotspots,omitempty"`
	Suggestions           []triage.Line                   `json:"suggestions" yaml:"suggestions"`
	Warnings              []string                        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Build produces the issue dashboard. Each section is fetched on its own;
// a section whose fetch fails is left empty and reported as a warning.
func (s *IssueService) Build(ctx context.Context, req IssueRequest) (IssueReport, error) {
	now := s.now()
	w, week, err := window.Resolve(req.Week, now)
	if err != nil {
		return IssueReport{}, err
	}
	staleDays := s.staleDays
	if req.StaleDays > 0 {
		staleDays = req.StaleDays
	}

	r := IssueReport{
		ID:          uuid.NewString(),
		GeneratedAt: now,
		Week:        week,
		Window:      w,
		Label:       req.Label,
		StaleDays:   staleDays,
	}
	log := s.log.With().Str("report_id", r.ID).Logger()

	var warnings *multierror.Error
	section := func(name string, err error) {
		if err != nil {
			warnings = multierror.Append(warnings, fmt.Errorf("%s: %w", name, err))
		}
	}

	r.NeedsReviewUnassigned, r.NeedsReviewAssigned, err = s.needsReview(ctx, req.Label)
	section("needs review", err)
	r.AcceptedUnassigned, err = s.acceptedUnassigned(ctx, req.Label)
	section("issue accepted", err)
	r.Unresponded, err = s.unresponded(ctx, w, req.Label)
	section("unresponded", err)
	r.Stale, err = s.stale(ctx, now, staleDays, req.Label)
	section("stale", err)
	r.ExternalPRs, err = s.externalPRs(ctx, &warnings)
	section("external pull requests", err)
	r.Flow, err = s.flow(ctx, w, req.Label)
	section("flow", err)

	var all []domain.IssueRecord
	all = append(all, r.NeedsReviewUnassigned...)
	all = append(all, r.NeedsReviewAssigned...)
	all = append(all, r.AcceptedUnassigned...)
	all = append(all, r.Unresponded...)
	all = append(all, r.Stale...)
	r.Hotspots = triage.Hotspots(all, 3)

	r.Suggestions = triage.Order(triage.Suggest(triage.Data{
		Now:                   now,
		StaleDays:             staleDays,
		NeedsReviewUnassigned: r.NeedsReviewUnassigned,
		NeedsReviewAssigned:   r.NeedsReviewAssigned,
		AcceptedUnassigned:    r.AcceptedUnassigned,
		Unresponded:           r.Unresponded,
		Stale:                 r.Stale,
		ExternalPRs:           r.ExternalPRs,
	}))

	r.Warnings = warningStrings(warnings)
	for _, msg := range r.Warnings {
		log.Warn().Msg(msg)
	}
	return r, nil
}

func withLabel(base, extra string) []string {
	var labels []string
	if base != "" {
		labels = append(labels, base)
	}
	if extra != "" {
		labels = append(labels, extra)
	}
	return labels
}

func onlyIssues(items []domain.IssueRecord, keep func(domain.IssueRecord) bool) []domain.IssueRecord {
	var out []domain.IssueRecord
	for _, it := range items {
		if !it.IsPullRequest && (keep == nil || keep(it)) {
			out = append(out, it)
		}
	}
	return out
}

func (s *IssueService) needsReview(ctx context.Context, label string) (unassigned, assigned []domain.IssueRecord, err error) {
	items, err := s.issues.ListIssues(ctx, domain.IssueFilter{
		State:  "open",
		Labels: withLabel(LabelNeedsReview, label),
		Limit:  labelledLimit,
	})
	if err != nil {
		return nil, nil, err
	}
	for _, it := range onlyIssues(items, nil) {
		if it.IsAssigned() {
			assigned = append(assigned, it)
		} else {
			unassigned = append(unassigned, it)
		}
	}
	sort.SliceStable(unassigned, func(i, j int) bool { return unassigned[i].CreatedAt.After(unassigned[j].CreatedAt) })
	return unassigned, assigned, nil
}

func (s *IssueService) acceptedUnassigned(ctx context.Context, label string) ([]domain.IssueRecord, error) {
	items, err := s.issues.ListIssues(ctx, domain.IssueFilter{
		State:  "open",
		Labels: withLabel(LabelIssueAccepted, label),
		Limit:  labelledLimit,
	})
	if err != nil {
		return nil, err
	}
	return onlyIssues(items, func(it domain.IssueRecord) bool { return !it.IsAssigned() }), nil
}

// unresponded returns the issues opened in the window without a comment
// from the team. An issue whose comments cannot be fetched counts as
// unresponded.
func (s *IssueService) unresponded(ctx context.Context, w domain.TimeWindow, label string) ([]domain.IssueRecord, error) {
	items, err := s.issues.ListIssues(ctx, domain.IssueFilter{
		State:     "open",
		Labels:    withLabel("", label),
		Since:     w.Start,
		Sort:      "created",
		Direction: "desc",
	})
	if err != nil {
		return nil, err
	}
	opened := onlyIssues(items, func(it domain.IssueRecord) bool { return w.Contains(it.CreatedAt) })
	if len(opened) > unrespondedLimit {
		opened = opened[:unrespondedLimit]
	}

	responded, err := batch.Run(ctx, opened, s.batchSize, func(ctx context.Context, it domain.IssueRecord) (bool, error) {
		if it.Comments == 0 {
			return false, nil
		}
		comments, err := s.issues.ListComments(ctx, it.Number)
		if err != nil {
			s.log.Debug().Err(err).Int("issue", it.Number).Msg("comments unavailable, counting as unresponded")
			return false, nil
		}
		for _, c := range comments {
			if c.IsTeamResponse() {
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	var out []domain.IssueRecord
	for i, it := range opened {
		if !responded[i] {
			out = append(out, it)
		}
	}
	return out, nil
}

// stale returns the open issues not updated for staleDays, least recently
// updated first.
func (s *IssueService) stale(ctx context.Context, now time.Time, staleDays int, label string) ([]domain.IssueRecord, error) {
	items, err := s.issues.ListIssues(ctx, domain.IssueFilter{
		State:     "open",
		Labels:    withLabel("", label),
		Sort:      "updated",
		Direction: "asc",
		Limit:     staleLimit,
	})
	if err != nil {
		return nil, err
	}
	threshold := now.AddDate(0, 0, -staleDays)
	out := onlyIssues(items, func(it domain.IssueRecord) bool { return it.UpdatedAt.Before(threshold) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

// externalPRs returns open pull requests from forks with their reviews.
// A pull request whose reviews cannot be fetched is kept without reviews.
func (s *IssueService) externalPRs(ctx context.Context, warnings **multierror.Error) ([]domain.PullRequestWithReviews, error) {
	prs, err := s.issues.ListPullRequests(ctx)
	if err != nil {
		return nil, err
	}
	var external []domain.PullRequest
	for _, pr := range prs {
		if pr.IsExternal() {
			external = append(external, pr)
		}
	}
	if len(external) > externalPRLimit {
		external = external[:externalPRLimit]
	}

	type fetched struct {
		pr  domain.PullRequestWithReviews
		err error
	}
	results, err := batch.Run(ctx, external, s.batchSize, func(ctx context.Context, pr domain.PullRequest) (fetched, error) {
		reviews, err := s.issues.ListReviews(ctx, pr.Number)
		return fetched{pr: domain.PullRequestWithReviews{PR: pr, Reviews: reviews}, err: err}, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.PullRequestWithReviews, 0, len(results))
	for _, f := range results {
		if f.err != nil {
			*warnings = multierror.Append(*warnings, fmt.Errorf("reviews of #%d: %w", f.pr.PR.Number, f.err))
		}
		out = append(out, f.pr)
	}
	return out, nil
}

// flow reconstructs how many issues and pull requests were open at the
// window bounds. Items are fetched from lookbackDays before the window so
// that items opened shortly before it are counted as open at its start.
func (s *IssueService) flow(ctx context.Context, w domain.TimeWindow, label string) (Flow, error) {
	items, err := s.issues.ListIssues(ctx, domain.IssueFilter{
		State:     "all",
		Labels:    withLabel("", label),
		Since:     w.Start.AddDate(0, 0, -s.lookbackDays),
		Sort:      "created",
		Direction: "desc",
	})
	if err != nil {
		return Flow{}, err
	}
	issues, pulls := lifecycle.Split(items)
	return Flow{
		Issues:       lifecycle.Reconstruct(issues, w),
		PullRequests: lifecycle.Reconstruct(pulls, w),
	}, nil
}
