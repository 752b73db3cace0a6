package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/gitpulse/internal/domain"
	githubprovider "github.com/waabox/gitpulse/internal/provider/github"
	"github.com/waabox/gitpulse/internal/retry"
)

var repo = domain.Repository{Owner: "acme", Name: "widgets"}

var week = domain.TimeWindow{
	Start: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2025, 3, 7, 23, 59, 59, 0, time.UTC),
}

var fastRetry = githubprovider.WithRetry(retry.Policy{BaseDelay: time.Millisecond, MaxAttempts: 3})

func newAdapter(t *testing.T, srv *httptest.Server, opts ...githubprovider.Option) *githubprovider.Adapter {
	t.Helper()
	opts = append([]githubprovider.Option{githubprovider.WithBaseURL(srv.URL), fastRetry}, opts...)
	a, err := githubprovider.NewAdapter("test-token", repo, opts...)
	require.NoError(t, err)
	return a
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func workflowRun(id int, name, conclusion string, created time.Time) map[string]interface{} {
	return map[string]interface{}{
		"id":          id,
		"name":        name,
		"run_number":  id,
		"status":      "completed",
		"conclusion":  conclusion,
		"created_at":  created.Format(time.RFC3339),
		"html_url":    fmt.Sprintf("https://github.com/acme/widgets/actions/runs/%d", id),
		"head_commit": map[string]interface{}{"message": "fix: login timeout\n\nlonger body"},
	}
}

func TestListRuns_PaginatesAndFiltersToWindow(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets/actions/runs" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "main", r.URL.Query().Get("branch"))
		assert.Equal(t, "2025-03-02..2025-03-08", r.URL.Query().Get("created"))
		switch r.URL.Query().Get("page") {
		case "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/acme/widgets/actions/runs?page=2>; rel="next"`, srv.URL))
			writeJSON(w, map[string]interface{}{"workflow_runs": []interface{}{
				workflowRun(3, "CI", "success", time.Date(2025, 3, 8, 1, 0, 0, 0, time.UTC)),
				workflowRun(2, "CI", "failure", time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)),
			}})
		default:
			writeJSON(w, map[string]interface{}{"workflow_runs": []interface{}{
				workflowRun(1, "Deploy", "success", time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)),
			}})
		}
	}))
	defer srv.Close()

	runs, err := newAdapter(t, srv).ListRuns(context.Background(), domain.RunFilter{Branch: "main", Window: week})
	require.NoError(t, err)
	require.Len(t, runs, 2, "only the runs inside the window")
	r := runs[0]
	assert.Equal(t, "2", r.ID)
	assert.Equal(t, "CI", r.Group)
	assert.Equal(t, "failure", r.Conclusion)
	assert.Equal(t, "fix: login timeout", r.Title, "the first commit line is the title")
	assert.Equal(t, "Deploy", runs[1].Group, "the second run comes from page 2")
}

func TestListRuns_ReRunKeepsCreationWeek(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rerun := workflowRun(7, "CI", "success", time.Date(2025, 3, 6, 12, 0, 0, 0, time.UTC))
		rerun["run_started_at"] = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC).Format(time.RFC3339)
		older := workflowRun(6, "CI", "failure", time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC))
		older["run_started_at"] = time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC).Format(time.RFC3339)
		writeJSON(w, map[string]interface{}{"workflow_runs": []interface{}{rerun, older}})
	}))
	defer srv.Close()

	runs, err := newAdapter(t, srv).ListRuns(context.Background(), domain.RunFilter{Window: week})
	require.NoError(t, err)
	require.Len(t, runs, 1, "only the run created inside the window")
	assert.Equal(t, "7", runs[0].ID)
	assert.True(t, runs[0].Timestamp().Equal(time.Date(2025, 3, 6, 12, 0, 0, 0, time.UTC)))
	assert.NotNil(t, runs[0].StartedAt, "the start time stays on the record")
}

func TestListRuns_StopsAtPageCeiling(t *testing.T) {
	var requests int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/acme/widgets/actions/runs?page=%d>; rel="next"`, srv.URL, n+1))
		writeJSON(w, map[string]interface{}{"workflow_runs": []interface{}{
			workflowRun(int(n), "CI", "success", time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)),
		}})
	}))
	defer srv.Close()

	runs, err := newAdapter(t, srv, githubprovider.WithPaging(1, 2)).
		ListRuns(context.Background(), domain.RunFilter{Window: week})
	require.NoError(t, err, "reaching the ceiling is not a failure")
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	assert.Len(t, runs, 2, "partial result")
}

func TestListRuns_RetriesServerErrors(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]interface{}{"workflow_runs": []interface{}{}})
	}))
	defer srv.Close()

	_, err := newAdapter(t, srv).ListRuns(context.Background(), domain.RunFilter{Window: week})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests), "one retry")
}

func TestListRuns_UnauthorizedIsNotRetried(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]interface{}{"message": "Bad credentials"})
	}))
	defer srv.Close()

	_, err := newAdapter(t, srv).ListRuns(context.Background(), domain.RunFilter{Window: week})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestListJobs_MapsSteps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets/actions/runs/1001/jobs" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]interface{}{"total_count": 2, "jobs": []interface{}{
			map[string]interface{}{"id": 2001, "name": "build", "status": "completed", "conclusion": "success"},
			map[string]interface{}{"id": 2002, "name": "test", "status": "completed", "conclusion": "failure",
				"steps": []interface{}{
					map[string]interface{}{"name": "checkout", "status": "completed", "conclusion": "success", "number": 1},
					map[string]interface{}{"name": "go test", "status": "completed", "conclusion": "failure", "number": 2},
				}},
		}})
	}))
	defer srv.Close()

	jobs, err := newAdapter(t, srv).ListJobs(context.Background(), "1001")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "2002", jobs[1].ID)
	require.Len(t, jobs[1].Steps, 2)
	assert.Equal(t, "go test", jobs[1].Steps[1].Name)
	assert.Equal(t, "failure", jobs[1].Steps[1].Conclusion)
}

func TestListJobs_RejectsNonNumericID(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newAdapter(t, srv).ListJobs(context.Background(), "abc")
	assert.Error(t, err)
}

func TestDownloadLog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/widgets/actions/jobs/7/logs":
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, "2025-03-04T10:00:00.000Z ##[error]boom\n")
		case "/repos/acme/widgets/actions/jobs/8/logs":
			w.WriteHeader(http.StatusGone)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	a := newAdapter(t, srv)

	log, ok, err := a.DownloadLog(context.Background(), "7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2025-03-04T10:00:00.000Z ##[error]boom\n", log)

	for _, id := range []string{"8", "9"} {
		_, ok, err = a.DownloadLog(context.Background(), id)
		assert.NoError(t, err, "job %s", id)
		assert.False(t, ok, "job %s log is unavailable", id)
	}
}

func TestAuthenticate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]interface{}{"login": "octocat"})
	}))
	defer srv.Close()

	user, err := newAdapter(t, srv).Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octocat", user)

	anon, err := githubprovider.NewAdapter("", repo, githubprovider.WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = anon.Authenticate(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "no token")
}
