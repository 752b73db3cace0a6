// Package dashboard fetches runs and issues from the configured providers
// and assembles them into reports.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/waabox/gitpulse/internal/batch"
	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/logscan"
	"github.com/waabox/gitpulse/internal/provider"
	"github.com/waabox/gitpulse/internal/stats"
	"github.com/waabox/gitpulse/internal/window"
)

// Recommendations closing the CI summary, keyed by overall health.
const (
	RecommendHealthy   = "CI is healthy, no immediate action required."
	RecommendAttention = "CI needs attention, review the flagged workflows."
	RecommendCritical  = "CI needs immediate attention: significant failure rates detected. Prioritize investigating the flagged workflows."
)

// Service builds CI reports and workflow inspections over a provider
// registry.
type Service struct {
	registry  *provider.Registry
	log       zerolog.Logger
	batchSize int
	extractor *logscan.Extractor
	now       func() time.Time
}

// Option configures a Service or an IssueService.
type Option func(*options)

type options struct {
	log          zerolog.Logger
	batchSize    int
	extractor    *logscan.Extractor
	now          func() time.Time
	staleDays    int
	lookbackDays int
}

func defaults() options {
	return options{
		log:          zerolog.Nop(),
		batchSize:    batch.DefaultSize,
		extractor:    logscan.New(),
		now:          time.Now,
		staleDays:    14,
		lookbackDays: 30,
	}
}

// WithLogger sets the logger partial-data warnings are written to.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithBatchSize sets how many fetches run concurrently.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithExtractor replaces the log snippet extractor.
func WithExtractor(e *logscan.Extractor) Option {
	return func(o *options) { o.extractor = e }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithStaleDays sets the default stale threshold of the issue dashboard.
func WithStaleDays(days int) Option {
	return func(o *options) {
		if days > 0 {
			o.staleDays = days
		}
	}
}

// WithLookbackDays sets how far before the window start issues are fetched
// for the flow snapshot.
func WithLookbackDays(days int) Option {
	return func(o *options) {
		if days > 0 {
			o.lookbackDays = days
		}
	}
}

// NewService creates a CI report service.
func NewService(registry *provider.Registry, opts ...Option) *Service {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		registry:  registry,
		log:       o.log,
		batchSize: o.batchSize,
		extractor: o.extractor,
		now:       o.now,
	}
}

// Request selects what a report covers.
type Request struct {
	// Week is a week specifier: empty for the current week, "last" or
	// "prev", or an ISO week number.
	Week   string
	Branch string
}

// AuthLine is the authentication status of one provider as shown in a
// report.
type AuthLine struct {
	Provider      string `json:"provider" yaml:"provider"`
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	User          string `json:"user,omitempty" yaml:"user,omitempty"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Section is the part of a CI report produced by one provider.
type Section struct {
	Source  string             `json:"source" yaml:"source"`
	Overall stats.GroupStats   `json:"overall" yaml:"overall"`
	Health  string             `json:"health" yaml:"health"`
	Groups  []stats.GroupStats `json:"groups" yaml:"groups"`
	Latest  []domain.RunRecord `json:"latest" yaml:"latest"`
	Status  stats.StatusCounts `json:"status" yaml:"status"`
	Daily   []stats.DailyRate  `json:"daily" yaml:"daily"`
}

// Summary combines every section of a CI report.
type Summary struct {
	Overall        stats.GroupStats    `json:"overall" yaml:"overall"`
	Health         string              `json:"health" yaml:"health"`
	Attention      stats.Attention     `json:"attention" yaml:"attention"`
	Daily          []stats.DailyRate   `json:"daily" yaml:"daily"`
	Trend          *stats.TrendSummary `json:"trend,omitempty" yaml:"trend,omitempty"`
	Recommendation string              `json:"recommendation" yaml:"recommendation"`
}

// CIReport is the result of one CI status run.
type CIReport struct {
	ID          string            `json:"report_id" yaml:"report_id"`
	GeneratedAt time.Time         `json:"generated_at" yaml:"generated_at"`
	Week        int               `json:"week" yaml:"week"`
	Window      domain.TimeWindow `json:"window" yaml:"window"`
	Branch      string            `json:"branch" yaml:"branch"`
	Auth        []AuthLine        `json:"auth" yaml:"auth"`
	Sections    []Section         `json:"sections" yaml:"sections"`
	Summary     Summary           `json:"summary" yaml:"summary"`
	Warnings    []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	// Empty names the providers that had no runs in the window. They get no
	// section.
	Empty []string `json:"empty_sources,omitempty" yaml:"empty_sources,omitempty"`
}

// Build produces the CI report for req. It fails only when the week is
// invalid or no provider is authenticated; a provider whose runs cannot be
// fetched is reported as a warning and left out.
func (s *Service) Build(ctx context.Context, req Request) (CIReport, error) {
	now := s.now()
	w, week, err := window.Resolve(req.Week, now)
	if err != nil {
		return CIReport{}, err
	}

	report := CIReport{
		ID:          uuid.NewString(),
		GeneratedAt: now,
		Week:        week,
		Window:      w,
		Branch:      req.Branch,
	}
	log := s.log.With().Str("report_id", report.ID).Logger()

	status := s.registry.CheckAuth(ctx)
	report.Auth = authLines(status)
	providers := s.registry.Authenticated(status)
	if len(providers) == 0 {
		return report, domain.ErrNoAuthenticatedProvider
	}

	var warnings *multierror.Error
	for _, r := range status.Results {
		if !r.OK() {
			warnings = multierror.Append(warnings, fmt.Errorf("%s skipped: %w", r.Provider, r.Err))
		}
	}

	filter := domain.RunFilter{Branch: req.Branch, Window: w}
	var all []stats.GroupStats
	var daily [][]stats.DailyRate
	for _, p := range providers {
		runs, err := p.ListRuns(ctx, filter)
		if err != nil {
			warnings = multierror.Append(warnings, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if len(runs) == 0 {
			report.Empty = append(report.Empty, p.Name())
			log.Info().Str("provider", p.Name()).Msg("no workflow runs in window")
			continue
		}
		sec := buildSection(p.Name(), runs, w)
		report.Sections = append(report.Sections, sec)
		all = append(all, sec.Groups...)
		daily = append(daily, sec.Daily)
	}

	report.Summary = summarize(all, daily)
	report.Warnings = warningStrings(warnings)
	for _, msg := range report.Warnings {
		log.Warn().Msg(msg)
	}
	log.Debug().Int("sections", len(report.Sections)).Msg("ci report built")
	return report, nil
}

func buildSection(source string, runs []domain.RunRecord, w domain.TimeWindow) Section {
	groups := stats.ByGroup(runs)
	latest, counts := stats.LatestByGroup(runs)
	overall := stats.Aggregate(source, runs)
	return Section{
		Source:  source,
		Overall: overall,
		Health:  stats.HealthLabel(overall.SuccessRate),
		Groups:  groups,
		Latest:  latest,
		Status:  counts,
		Daily:   stats.DailyRates(runs, w),
	}
}

// summarize combines the sections. With no runs at all the health is
// HealthNoData and there is no recommendation.
func summarize(groups []stats.GroupStats, daily [][]stats.DailyRate) Summary {
	overall := stats.Combine("overall", groups)
	sum := Summary{
		Overall:   overall,
		Attention: stats.FindAttention(groups),
		Daily:     stats.MergeDaily(daily...),
	}
	if overall.Total == 0 {
		sum.Health = stats.HealthNoData
		return sum
	}
	sum.Health = stats.HealthLabel(overall.SuccessRate)
	if t, ok := stats.Trend(sum.Daily); ok {
		sum.Trend = &t
	}
	switch sum.Health {
	case stats.HealthHealthy:
		sum.Recommendation = RecommendHealthy
	case stats.HealthAttention:
		sum.Recommendation = RecommendAttention
	default:
		sum.Recommendation = RecommendCritical
	}
	return sum
}

func authLines(status provider.AuthStatus) []AuthLine {
	lines := make([]AuthLine, 0, len(status.Results))
	for _, r := range status.Results {
		line := AuthLine{Provider: r.Provider, Authenticated: r.OK(), User: r.User}
		if r.Err != nil {
			line.Error = r.Err.Error()
		}
		lines = append(lines, line)
	}
	return lines
}

func warningStrings(merr *multierror.Error) []string {
	if merr == nil {
		return nil
	}
	out := make([]string, 0, len(merr.Errors))
	for _, err := range merr.Errors {
		out = append(out, err.Error())
	}
	return out
}
