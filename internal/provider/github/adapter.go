// Package github implements the run and issue providers on the GitHub REST
// API.
package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v53/github"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/retry"
)

// Name identifies the provider in reports.
const Name = "GitHub Actions"

const (
	defaultPerPage  = 100
	defaultMaxPages = 50
)

// Adapter implements domain.RunProvider and domain.IssueProvider for one
// GitHub repository.
type Adapter struct {
	client   *github.Client
	token    string
	owner    string
	repo     string
	policy   retry.Policy
	perPage  int
	maxPages int
	log      zerolog.Logger
}

var (
	_ domain.RunProvider   = (*Adapter)(nil)
	_ domain.IssueProvider = (*Adapter)(nil)
)

type settings struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures an Adapter.
type Option func(*Adapter, *settings)

// WithBaseURL points the adapter at a GitHub Enterprise or test server.
func WithBaseURL(u string) Option {
	return func(_ *Adapter, s *settings) { s.baseURL = u }
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(c *http.Client) Option {
	return func(_ *Adapter, s *settings) { s.httpClient = c }
}

// WithRetry sets the retry policy for every API call.
func WithRetry(p retry.Policy) Option {
	return func(a *Adapter, _ *settings) { a.policy = p }
}

// WithPaging sets the page size and the pagination ceiling.
func WithPaging(perPage, maxPages int) Option {
	return func(a *Adapter, _ *settings) {
		if perPage > 0 {
			a.perPage = perPage
		}
		if maxPages > 0 {
			a.maxPages = maxPages
		}
	}
}

// WithLogger sets the logger used for partial-data warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter, _ *settings) { a.log = l }
}

// NewAdapter creates a GitHub adapter for repo. An empty token yields an
// adapter that reports itself unauthenticated.
func NewAdapter(token string, repo domain.Repository, opts ...Option) (*Adapter, error) {
	a := &Adapter{
		token:    token,
		owner:    repo.Owner,
		repo:     repo.Name,
		policy:   retry.DefaultPolicy(),
		perPage:  defaultPerPage,
		maxPages: defaultMaxPages,
		log:      zerolog.Nop(),
	}
	s := &settings{}
	for _, opt := range opts {
		opt(a, s)
	}

	hc := s.httpClient
	if hc == nil {
		hc = cleanhttp.DefaultPooledClient()
	}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(ctx, ts)
	}
	a.client = github.NewClient(hc)

	if s.baseURL != "" {
		base := s.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", s.baseURL, err)
		}
		a.client.BaseURL = u
	}
	return a, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string { return Name }

// Authenticate returns the login behind the token.
func (a *Adapter) Authenticate(ctx context.Context) (string, error) {
	if a.token == "" {
		return "", fmt.Errorf("%w: no GitHub token configured", domain.ErrUnauthorized)
	}
	user, err := fetch(ctx, a, func() (*github.User, *github.Response, error) {
		return a.client.Users.Get(ctx, "")
	}, nil)
	if err != nil {
		return "", fmt.Errorf("authenticating with GitHub: %w", err)
	}
	return user.GetLogin(), nil
}

// ListRuns returns the workflow runs of the filter's branch whose timestamp
// falls in the filter's window, newest first. Reaching the page ceiling is
// logged and the runs gathered so far are returned.
func (a *Adapter) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.RunRecord, error) {
	opts := &github.ListWorkflowRunsOptions{
		Branch:      filter.Branch,
		Created:     createdRange(filter.Window),
		ListOptions: github.ListOptions{PerPage: a.perPage},
	}

	var records []domain.RunRecord
	for page := 1; ; page++ {
		opts.Page = page
		var resp *github.Response
		runs, err := fetch(ctx, a, func() (*github.WorkflowRuns, *github.Response, error) {
			return a.client.Actions.ListRepositoryWorkflowRuns(ctx, a.owner, a.repo, opts)
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("listing workflow runs: %w", err)
		}
		for _, run := range runs.WorkflowRuns {
			rec := toRunRecord(run)
			if filter.Window.Start.IsZero() || filter.Window.Contains(rec.Timestamp()) {
				records = append(records, rec)
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		if page >= a.maxPages {
			a.log.Warn().
				Str("provider", Name).
				Int("pages", page).
				Int("runs", len(records)).
				Msg("pagination ceiling reached, continuing with partial runs")
			break
		}
	}
	return records, nil
}

// createdRange widens the window by a day on both sides; the created filter
// works on UTC dates and runs are matched precisely afterwards.
func createdRange(w domain.TimeWindow) string {
	if w.Start.IsZero() {
		return ""
	}
	from := w.Start.UTC().AddDate(0, 0, -1).Format("2006-01-02")
	to := w.End.UTC().AddDate(0, 0, 1).Format("2006-01-02")
	return from + ".." + to
}

// ListJobs returns the jobs of a run with their steps.
func (a *Adapter) ListJobs(ctx context.Context, runID string) ([]domain.JobRecord, error) {
	id, err := strconv.ParseInt(runID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	opts := &github.ListWorkflowJobsOptions{ListOptions: github.ListOptions{PerPage: a.perPage}}

	var jobs []domain.JobRecord
	for page := 1; page <= a.maxPages; page++ {
		opts.Page = page
		var resp *github.Response
		res, err := fetch(ctx, a, func() (*github.Jobs, *github.Response, error) {
			return a.client.Actions.ListWorkflowJobs(ctx, a.owner, a.repo, id, opts)
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("listing jobs of run %s: %w", runID, err)
		}
		for _, j := range res.Jobs {
			jobs = append(jobs, toJobRecord(j))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
	}
	return jobs, nil
}

// DownloadLog returns the plain-text log of a job. Expired or missing logs
// are reported with ok=false.
func (a *Adapter) DownloadLog(ctx context.Context, jobID string) (string, bool, error) {
	u := fmt.Sprintf("repos/%v/%v/actions/jobs/%v/logs", a.owner, a.repo, jobID)
	log, err := retry.Value(ctx, a.policy, func() (string, error) {
		req, err := a.client.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		resp, err := a.client.Do(ctx, req, &buf)
		if err != nil {
			return "", statusError(resp, err)
		}
		return buf.String(), nil
	})
	if err != nil {
		var se *retry.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusGone) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("downloading log of job %s: %w", jobID, err)
	}
	return log, true, nil
}

// fetch runs call under the retry policy. When resp is not nil it receives
// the response of the last attempt.
func fetch[T any](ctx context.Context, a *Adapter, call func() (T, *github.Response, error), resp **github.Response) (T, error) {
	var v T
	err := retry.Do(ctx, a.policy, func() error {
		var r *github.Response
		var err error
		v, r, err = call()
		if resp != nil {
			*resp = r
		}
		return statusError(r, err)
	})
	return v, err
}

// statusError turns a failed API response into a *retry.StatusError so
// transient statuses can be retried. 401 and 404 also match the domain
// sentinels.
func statusError(resp *github.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp == nil || resp.Response == nil {
		return err
	}
	code := resp.StatusCode
	switch code {
	case http.StatusUnauthorized:
		err = fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	case http.StatusNotFound:
		err = fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return &retry.StatusError{StatusCode: code, Err: err}
}

func toRunRecord(run *github.WorkflowRun) domain.RunRecord {
	// re-runs keep the week they were created in, matching the created
	// filter of the API
	rec := domain.RunRecord{
		ID:           strconv.FormatInt(run.GetID(), 10),
		Group:        run.GetName(),
		Title:        firstLine(run.GetHeadCommit().GetMessage()),
		Number:       run.GetRunNumber(),
		CreatedAt:    run.GetCreatedAt().Time,
		Status:       run.GetStatus(),
		Conclusion:   run.GetConclusion(),
		HTMLURL:      run.GetHTMLURL(),
		AttributedBy: domain.AttributeCreated,
	}
	if run.RunStartedAt != nil {
		started := run.RunStartedAt.Time
		rec.StartedAt = &started
	}
	return rec
}

func toJobRecord(j *github.WorkflowJob) domain.JobRecord {
	rec := domain.JobRecord{
		ID:         strconv.FormatInt(j.GetID(), 10),
		Name:       j.GetName(),
		Status:     j.GetStatus(),
		Conclusion: j.GetConclusion(),
	}
	for _, s := range j.Steps {
		rec.Steps = append(rec.Steps, domain.StepRecord{Name: s.GetName(), Conclusion: s.GetConclusion()})
	}
	return rec
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func timePtr(ts *github.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}
