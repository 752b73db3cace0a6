// Package gitlab implements the run provider on the GitLab CI REST API.
package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog"

	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/retry"
)

// Name identifies the provider in reports.
const Name = "GitLab CI"

const (
	defaultBaseURL  = "https://gitlab.com"
	defaultPerPage  = 100
	defaultMaxPages = 50

	// updateSlack widens the upper updated_before bound past the window so
	// pipelines retried after the week still come back.
	updateSlack = 7 * 24 * time.Hour
)

// Adapter implements domain.RunProvider for GitLab CI.
type Adapter struct {
	token    string
	baseURL  string
	project  string
	policy   retry.Policy
	perPage  int
	maxPages int
	client   *http.Client
	log      zerolog.Logger
}

// Ensure Adapter fully implements domain.RunProvider.
var _ domain.RunProvider = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithRetry sets the retry policy for every API call.
func WithRetry(p retry.Policy) Option {
	return func(a *Adapter) { a.policy = p }
}

// WithPaging sets the page size and the pagination ceiling.
func WithPaging(perPage, maxPages int) Option {
	return func(a *Adapter) {
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
	return func(a *Adapter) { a.log = l }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// NewAdapter creates a GitLab CI adapter for the project at repo.
// baseURL can be a self-hosted GitLab instance URL; pass empty string for gitlab.com.
func NewAdapter(token string, baseURL string, repo domain.Repository, opts ...Option) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	a := &Adapter{
		token:    token,
		baseURL:  baseURL,
		project:  url.PathEscape(repo.FullName()),
		policy:   retry.DefaultPolicy(),
		perPage:  defaultPerPage,
		maxPages: defaultMaxPages,
		client:   cleanhttp.DefaultPooledClient(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider name.
func (a *Adapter) Name() string { return Name }

// Authenticate returns the username behind the token.
func (a *Adapter) Authenticate(ctx context.Context) (string, error) {
	if a.token == "" {
		return "", fmt.Errorf("%w: no GitLab token configured", domain.ErrUnauthorized)
	}
	var user struct {
		Username string `json:"username"`
	}
	if _, err := a.get(ctx, a.baseURL+"/api/v4/user", &user); err != nil {
		return "", fmt.Errorf("authenticating with GitLab: %w", err)
	}
	return user.Username, nil
}

// ListRuns returns the pipelines of the filter's branch whose timestamp
// falls in the filter's window, newest first.
func (a *Adapter) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.RunRecord, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(a.perPage))
	q.Set("order_by", "id")
	q.Set("sort", "desc")
	if filter.Branch != "" {
		q.Set("ref", filter.Branch)
	}
	if !filter.Window.Start.IsZero() {
		q.Set("updated_after", filter.Window.Start.UTC().Format(time.RFC3339))
	}
	if !filter.Window.End.IsZero() {
		q.Set("updated_before", filter.Window.End.Add(updateSlack).UTC().Format(time.RFC3339))
	}

	var records []domain.RunRecord
	for page := 1; ; page++ {
		q.Set("page", strconv.Itoa(page))
		apiURL := fmt.Sprintf("%s/api/v4/projects/%s/pipelines?%s", a.baseURL, a.project, q.Encode())
		var pipelines []gitLabPipeline
		header, err := a.get(ctx, apiURL, &pipelines)
		if err != nil {
			return nil, fmt.Errorf("listing pipelines: %w", err)
		}
		for _, p := range pipelines {
			rec := p.toRunRecord()
			if filter.Window.Start.IsZero() || filter.Window.Contains(rec.Timestamp()) {
				records = append(records, rec)
			}
		}
		if header.Get("X-Next-Page") == "" {
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

// ListJobs returns the jobs of a pipeline. GitLab jobs have no steps.
func (a *Adapter) ListJobs(ctx context.Context, runID string) ([]domain.JobRecord, error) {
	apiURL := fmt.Sprintf("%s/api/v4/projects/%s/pipelines/%s/jobs?per_page=%d",
		a.baseURL, a.project, url.PathEscape(runID), a.perPage)
	var rawJobs []gitLabJob
	if _, err := a.get(ctx, apiURL, &rawJobs); err != nil {
		return nil, fmt.Errorf("listing jobs of pipeline %s: %w", runID, err)
	}
	jobs := make([]domain.JobRecord, len(rawJobs))
	for i, j := range rawJobs {
		jobs[i] = j.toJobRecord()
	}
	return jobs, nil
}

// DownloadLog returns the full raw log trace for the given job. A missing
// trace is reported with ok=false.
func (a *Adapter) DownloadLog(ctx context.Context, jobID string) (string, bool, error) {
	apiURL := fmt.Sprintf("%s/api/v4/projects/%s/jobs/%s/trace", a.baseURL, a.project, url.PathEscape(jobID))
	log, err := a.getText(ctx, apiURL)
	if err != nil {
		var se *retry.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("downloading trace of job %s: %w", jobID, err)
	}
	return log, true, nil
}

func (a *Adapter) get(ctx context.Context, apiURL string, target interface{}) (http.Header, error) {
	var header http.Header
	err := retry.Do(ctx, a.policy, func() error {
		body, h, err := a.do(ctx, apiURL)
		if err != nil {
			return err
		}
		header = h
		if err := json.Unmarshal(body, target); err != nil {
			return fmt.Errorf("decoding %s: %w", apiURL, err)
		}
		return nil
	})
	return header, err
}

// getText fetches a URL and returns the response body as a plain string.
func (a *Adapter) getText(ctx context.Context, apiURL string) (string, error) {
	return retry.Value(ctx, a.policy, func() (string, error) {
		body, _, err := a.do(ctx, apiURL)
		return string(body), err
	})
}

// do performs one authenticated GET. Error statuses come back as
// *retry.StatusError; 401 also matches domain.ErrUnauthorized.
func (a *Adapter) do(ctx context.Context, apiURL string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, nil, &retry.StatusError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("gitlab API error: %s: %w", resp.Status, domain.ErrUnauthorized),
		}
	}
	if resp.StatusCode >= 400 {
		return nil, nil, &retry.StatusError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("gitlab API error: %s", resp.Status),
		}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}
	return b, resp.Header, nil
}

type gitLabPipeline struct {
	ID        int64  `json:"id"`
	IID       int    `json:"iid"`
	Name      string `json:"name"`
	Ref       string `json:"ref"`
	Source    string `json:"source"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	StartedAt string `json:"started_at"`
	WebURL    string `json:"web_url"`
}

func (r gitLabPipeline) toRunRecord() domain.RunRecord {
	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	rec := domain.RunRecord{
		ID:         strconv.FormatInt(r.ID, 10),
		Group:      r.group(),
		Title:      r.Ref,
		Number:     r.IID,
		CreatedAt:  created,
		Status:     r.Status,
		Conclusion: conclusion(r.Status),
		HTMLURL:    r.WebURL,
	}
	if started, err := time.Parse(time.RFC3339, r.StartedAt); err == nil {
		rec.StartedAt = &started
	}
	return rec
}

// group names the pipeline: its explicit name, otherwise what triggered it.
func (r gitLabPipeline) group() string {
	switch {
	case r.Name != "":
		return r.Name
	case r.Source != "":
		return r.Source
	default:
		return "pipeline"
	}
}

type gitLabJob struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Stage  string `json:"stage"`
	Status string `json:"status"`
}

func (j gitLabJob) toJobRecord() domain.JobRecord {
	return domain.JobRecord{
		ID:         strconv.FormatInt(j.ID, 10),
		Name:       j.Stage + ": " + j.Name,
		Status:     j.Status,
		Conclusion: conclusion(j.Status),
	}
}

// conclusion maps terminal GitLab statuses onto the vocabulary shared with
// other providers. In-flight statuses have no conclusion.
func conclusion(status string) string {
	switch status {
	case "success":
		return "success"
	case "failed":
		return "failure"
	case "canceled":
		return "cancelled"
	case "skipped", "manual":
		return status
	default:
		return ""
	}
}
