package github

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v53/github"

	"github.com/waabox/gitpulse/internal/domain"
)

// ListIssues returns issues and pull requests matching filter, paginating
// up to the ceiling or filter.Limit, whichever comes first.
func (a *Adapter) ListIssues(ctx context.Context, filter domain.IssueFilter) ([]domain.IssueRecord, error) {
	opts := &github.IssueListByRepoOptions{
		State:       filter.State,
		Labels:      filter.Labels,
		Since:       filter.Since,
		Sort:        filter.Sort,
		Direction:   filter.Direction,
		ListOptions: github.ListOptions{PerPage: a.perPage},
	}

	var records []domain.IssueRecord
	for page := 1; ; page++ {
		opts.Page = page
		var resp *github.Response
		issues, err := fetch(ctx, a, func() ([]*github.Issue, *github.Response, error) {
			return a.client.Issues.ListByRepo(ctx, a.owner, a.repo, opts)
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("listing issues: %w", err)
		}
		for _, is := range issues {
			records = append(records, toIssueRecord(is))
			if filter.Limit > 0 && len(records) >= filter.Limit {
				return records, nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		if page >= a.maxPages {
			a.log.Warn().Str("provider", Name).Int("pages", page).Msg("pagination ceiling reached, continuing with partial issues")
			break
		}
	}
	return records, nil
}

// ListComments returns the comments of an issue or pull request.
func (a *Adapter) ListComments(ctx context.Context, number int) ([]domain.Comment, error) {
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: a.perPage}}
	comments, err := fetch(ctx, a, func() ([]*github.IssueComment, *github.Response, error) {
		return a.client.Issues.ListComments(ctx, a.owner, a.repo, number, opts)
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("listing comments of #%d: %w", number, err)
	}
	out := make([]domain.Comment, 0, len(comments))
	for _, c := range comments {
		out = append(out, domain.Comment{
			Author:            c.GetUser().GetLogin(),
			AuthorAssociation: c.GetAuthorAssociation(),
			Body:              c.GetBody(),
			CreatedAt:         c.GetCreatedAt().Time,
		})
	}
	return out, nil
}

// ListPullRequests returns the open pull requests, newest first.
func (a *Adapter) ListPullRequests(ctx context.Context) ([]domain.PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: a.perPage},
	}

	var out []domain.PullRequest
	for page := 1; page <= a.maxPages; page++ {
		opts.Page = page
		var resp *github.Response
		prs, err := fetch(ctx, a, func() ([]*github.PullRequest, *github.Response, error) {
			return a.client.PullRequests.List(ctx, a.owner, a.repo, opts)
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("listing pull requests: %w", err)
		}
		for _, pr := range prs {
			out = append(out, toPullRequest(pr))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
	}
	return out, nil
}

// ListReviews returns the reviews of a pull request.
func (a *Adapter) ListReviews(ctx context.Context, number int) ([]domain.Review, error) {
	reviews, err := fetch(ctx, a, func() ([]*github.PullRequestReview, *github.Response, error) {
		return a.client.PullRequests.ListReviews(ctx, a.owner, a.repo, number, &github.ListOptions{PerPage: a.perPage})
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("listing reviews of #%d: %w", number, err)
	}
	out := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, domain.Review{
			Author:      r.GetUser().GetLogin(),
			State:       r.GetState(),
			SubmittedAt: timePtr(r.SubmittedAt),
		})
	}
	return out, nil
}

// GetIssue returns an issue, or a pull request with its diff statistics.
func (a *Adapter) GetIssue(ctx context.Context, number int) (domain.IssueDetail, error) {
	issue, err := fetch(ctx, a, func() (*github.Issue, *github.Response, error) {
		return a.client.Issues.Get(ctx, a.owner, a.repo, number)
	}, nil)
	if err != nil {
		return domain.IssueDetail{}, fmt.Errorf("fetching #%d: %w", number, err)
	}
	detail := domain.IssueDetail{IssueRecord: toIssueRecord(issue), Body: issue.GetBody()}
	if !issue.IsPullRequest() {
		return detail, nil
	}

	pr, err := fetch(ctx, a, func() (*github.PullRequest, *github.Response, error) {
		return a.client.PullRequests.Get(ctx, a.owner, a.repo, number)
	}, nil)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return detail, nil
		}
		return domain.IssueDetail{}, fmt.Errorf("fetching pull request #%d: %w", number, err)
	}
	detail.Additions = pr.GetAdditions()
	detail.Deletions = pr.GetDeletions()
	detail.ChangedFiles = pr.GetChangedFiles()
	detail.Mergeable = pr.Mergeable
	detail.HeadRef = pr.GetHead().GetRef()
	detail.BaseRef = pr.GetBase().GetRef()
	return detail, nil
}

func toIssueRecord(is *github.Issue) domain.IssueRecord {
	rec := domain.IssueRecord{
		Number:        is.GetNumber(),
		Title:         is.GetTitle(),
		Author:        is.GetUser().GetLogin(),
		State:         is.GetState(),
		CreatedAt:     is.GetCreatedAt().Time,
		UpdatedAt:     is.GetUpdatedAt().Time,
		ClosedAt:      timePtr(is.ClosedAt),
		IsPullRequest: is.IsPullRequest(),
		Comments:      is.GetComments(),
		HTMLURL:       is.GetHTMLURL(),
	}
	for _, l := range is.Labels {
		rec.Labels = append(rec.Labels, l.GetName())
	}
	for _, u := range is.Assignees {
		rec.Assignees = append(rec.Assignees, u.GetLogin())
	}
	if len(rec.Assignees) == 0 && is.Assignee != nil {
		rec.Assignees = []string{is.GetAssignee().GetLogin()}
	}
	return rec
}

func toPullRequest(pr *github.PullRequest) domain.PullRequest {
	rec := domain.IssueRecord{
		Number:        pr.GetNumber(),
		Title:         pr.GetTitle(),
		Author:        pr.GetUser().GetLogin(),
		State:         pr.GetState(),
		CreatedAt:     pr.GetCreatedAt().Time,
		UpdatedAt:     pr.GetUpdatedAt().Time,
		ClosedAt:      timePtr(pr.ClosedAt),
		IsPullRequest: true,
		Comments:      pr.GetComments(),
		HTMLURL:       pr.GetHTMLURL(),
	}
	for _, l := range pr.Labels {
		rec.Labels = append(rec.Labels, l.GetName())
	}
	for _, u := range pr.Assignees {
		rec.Assignees = append(rec.Assignees, u.GetLogin())
	}
	return domain.PullRequest{
		IssueRecord: rec,
		HeadRepo:    pr.GetHead().GetRepo().GetFullName(),
		BaseRepo:    pr.GetBase().GetRepo().GetFullName(),
		HeadRef:     pr.GetHead().GetRef(),
		BaseRef:     pr.GetBase().GetRef(),
	}
}
