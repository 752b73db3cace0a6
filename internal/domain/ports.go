package domain

import (
	"context"
	"time"
)

// RunFilter narrows a run listing.
type RunFilter struct {
	Branch string
	Window TimeWindow
}

// RunProvider is the port every CI provider adapter implements.
// The domain does not know about GitHub, GitLab, or any specific CI system.
type RunProvider interface {
	Name() string
	// Authenticate returns the login the provider is authenticated as.
	Authenticate(ctx context.Context) (string, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error)
	ListJobs(ctx context.Context, runID string) ([]JobRecord, error)
	// DownloadLog returns ok=false when the log is not available, which is
	// not an error.
	DownloadLog(ctx context.Context, jobID string) (log string, ok bool, err error)
}

// IssueFilter narrows an issue listing.
type IssueFilter struct {
	State     string // open, closed, all
	Labels    []string
	Since     time.Time // updated since
	Sort      string    // created, updated
	Direction string    // asc, desc
	Limit     int
}

// IssueProvider is the port for issue trackers.
type IssueProvider interface {
	ListIssues(ctx context.Context, filter IssueFilter) ([]IssueRecord, error)
	ListComments(ctx context.Context, number int) ([]Comment, error)
	ListPullRequests(ctx context.Context) ([]PullRequest, error)
	ListReviews(ctx context.Context, number int) ([]Review, error)
	GetIssue(ctx context.Context, number int) (IssueDetail, error)
}
