package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/gitpulse/internal/domain"
)

func TestListIssues_MapsRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets/issues" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		assert.Equal(t, "needs review", q.Get("labels"))
		assert.Equal(t, "open", q.Get("state"))
		writeJSON(w, []interface{}{
			map[string]interface{}{
				"number":     42,
				"title":      "Crash on start",
				"state":      "open",
				"user":       map[string]interface{}{"login": "alice"},
				"created_at": "2025-03-04T10:00:00Z",
				"updated_at": "2025-03-05T10:00:00Z",
				"labels":     []interface{}{map[string]interface{}{"name": "needs review"}, map[string]interface{}{"name": "Module: router"}},
				"assignees":  []interface{}{map[string]interface{}{"login": "bob"}},
				"comments":   3,
			},
			map[string]interface{}{
				"number":       43,
				"title":        "Fix typo",
				"state":        "closed",
				"created_at":   "2025-03-01T10:00:00Z",
				"updated_at":   "2025-03-02T10:00:00Z",
				"closed_at":    "2025-03-02T10:00:00Z",
				"pull_request": map[string]interface{}{"url": "https://api.github.com/repos/acme/widgets/pulls/43"},
			},
		})
	}))
	defer srv.Close()

	issues, err := newAdapter(t, srv).ListIssues(context.Background(), domainIssueFilter("open", "needs review"))
	require.NoError(t, err)
	require.Len(t, issues, 2)
	first := issues[0]
	assert.Equal(t, 42, first.Number)
	assert.Equal(t, "alice", first.Author)
	assert.Equal(t, 3, first.Comments)
	assert.Equal(t, []string{"needs review", "Module: router"}, first.Labels)
	assert.True(t, first.IsAssigned())
	assert.True(t, first.IsOpenNow())
	assert.False(t, first.IsPullRequest)
	second := issues[1]
	assert.True(t, second.IsPullRequest)
	assert.False(t, second.IsOpenNow(), "a closed pull request")
}

func TestListComments_KeepsAssociation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets/issues/42/comments" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, []interface{}{
			map[string]interface{}{"user": map[string]interface{}{"login": "alice"}, "author_association": "NONE", "body": "+1"},
			map[string]interface{}{"user": map[string]interface{}{"login": "bob"}, "author_association": "MEMBER", "body": "Looking"},
		})
	}))
	defer srv.Close()

	comments, err := newAdapter(t, srv).ListComments(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.False(t, comments[0].IsTeamResponse())
	assert.True(t, comments[1].IsTeamResponse())
}

func TestListPullRequests_DetectsForks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets/pulls" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, []interface{}{
			map[string]interface{}{
				"number":     7,
				"created_at": "2025-03-04T10:00:00Z",
				"head":       map[string]interface{}{"ref": "patch-1", "repo": map[string]interface{}{"full_name": "carol/widgets"}},
				"base":       map[string]interface{}{"ref": "main", "repo": map[string]interface{}{"full_name": "acme/widgets"}},
			},
			map[string]interface{}{
				"number":     8,
				"created_at": "2025-03-04T11:00:00Z",
				"head":       map[string]interface{}{"ref": "feature", "repo": map[string]interface{}{"full_name": "acme/widgets"}},
				"base":       map[string]interface{}{"ref": "main", "repo": map[string]interface{}{"full_name": "acme/widgets"}},
			},
		})
	}))
	defer srv.Close()

	prs, err := newAdapter(t, srv).ListPullRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, prs, 2)
	assert.True(t, prs[0].IsExternal(), "#7 comes from a fork")
	assert.False(t, prs[1].IsExternal())
}

func TestListReviews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets/pulls/7/reviews" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, []interface{}{
			map[string]interface{}{"state": "CHANGES_REQUESTED", "submitted_at": "2025-03-05T10:00:00Z", "user": map[string]interface{}{"login": "bob"}},
		})
	}))
	defer srv.Close()

	reviews, err := newAdapter(t, srv).ListReviews(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "CHANGES_REQUESTED", reviews[0].State)
	assert.NotNil(t, reviews[0].SubmittedAt)
}

func TestGetIssue_PullRequestDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/widgets/issues/7":
			writeJSON(w, map[string]interface{}{
				"number":       7,
				"title":        "Add retries",
				"body":         "Fixes #3",
				"state":        "open",
				"pull_request": map[string]interface{}{"url": "x"},
			})
		case "/repos/acme/widgets/pulls/7":
			writeJSON(w, map[string]interface{}{
				"number":        7,
				"additions":     10,
				"deletions":     2,
				"changed_files": 3,
				"mergeable":     true,
				"head":          map[string]interface{}{"ref": "patch-1"},
				"base":          map[string]interface{}{"ref": "main"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d, err := newAdapter(t, srv).GetIssue(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Fixes #3", d.Body)
	assert.Equal(t, 10, d.Additions)
	assert.Equal(t, 3, d.ChangedFiles)
	assert.Equal(t, "patch-1", d.HeadRef)
	require.NotNil(t, d.Mergeable)
	assert.True(t, *d.Mergeable)
}

func domainIssueFilter(state string, labels ...string) domain.IssueFilter {
	return domain.IssueFilter{State: state, Labels: labels}
}
