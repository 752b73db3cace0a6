package domain

import "time"

// IssueRecord is an issue or pull request with the timestamps needed to
// reconstruct its state at any point in time.
type IssueRecord struct {
	Number        int        `json:"number" yaml:"number"`
	Title         string     `json:"title" yaml:"title"`
	Author        string     `json:"author" yaml:"author"`
	State         string     `json:"state" yaml:"state"`
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" yaml:"updated_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty" yaml:"closed_at,omitempty"`
	IsPullRequest bool       `json:"is_pull_request" yaml:"is_pull_request"`
	Labels        []string   `json:"labels,omitempty" yaml:"labels,omitempty"`
	Assignees     []string   `json:"assignees,omitempty" yaml:"assignees,omitempty"`
	Comments      int        `json:"comments" yaml:"comments"`
	HTMLURL       string     `json:"html_url" yaml:"html_url"`
}

// IsOpenNow reports whether the record has no closure timestamp.
func (i IssueRecord) IsOpenNow() bool {
	return i.ClosedAt == nil
}

// IsAssigned reports whether anyone is assigned.
func (i IssueRecord) IsAssigned() bool {
	return len(i.Assignees) > 0
}

// Comment is a single issue comment.
type Comment struct {
	Author            string
	AuthorAssociation string
	Body              string
	CreatedAt         time.Time
}

// IsTeamResponse reports whether the comment was written by a repository
// member, collaborator or owner.
func (c Comment) IsTeamResponse() bool {
	switch c.AuthorAssociation {
	case "MEMBER", "COLLABORATOR", "OWNER":
		return true
	}
	return false
}

// Review is a pull request review.
type Review struct {
	Author      string     `json:"author" yaml:"author"`
	State       string     `json:"state" yaml:"state"` // APPROVED, CHANGES_REQUESTED, COMMENTED, ...
	SubmittedAt *time.Time `json:"submitted_at,omitempty" yaml:"submitted_at,omitempty"`
}

const (
	ReviewApproved         = "APPROVED"
	ReviewChangesRequested = "CHANGES_REQUESTED"
)

// PullRequest is an open pull request together with where its head lives.
type PullRequest struct {
	IssueRecord `yaml:",inline"`
	HeadRepo    string `json:"head_repo" yaml:"head_repo"` // owner/name of the head repository; empty when deleted
	BaseRepo    string `json:"base_repo" yaml:"base_repo"`
	HeadRef     string `json:"head_ref" yaml:"head_ref"`
	BaseRef     string `json:"base_ref" yaml:"base_ref"`
}

// IsExternal reports whether the pull request comes from a fork.
func (p PullRequest) IsExternal() bool {
	return p.HeadRepo != p.BaseRepo
}

// PullRequestWithReviews pairs a pull request with its fetched reviews.
type PullRequestWithReviews struct {
	PR      PullRequest `json:"pr" yaml:"pr"`
	Reviews []Review    `json:"reviews" yaml:"reviews"`
}

// HasChangesRequested reports whether any review requested changes.
func (p PullRequestWithReviews) HasChangesRequested() bool {
	for _, r := range p.Reviews {
		if r.State == ReviewChangesRequested {
			return true
		}
	}
	return false
}

// IssueDetail is a single issue or pull request fetched for inspection.
type IssueDetail struct {
	IssueRecord  `yaml:",inline"`
	Body         string `json:"body" yaml:"body"`
	Additions    int    `json:"additions,omitempty" yaml:"additions,omitempty"`
	Deletions    int    `json:"deletions,omitempty" yaml:"deletions,omitempty"`
	ChangedFiles int    `json:"changed_files,omitempty" yaml:"changed_files,omitempty"`
	Mergeable    *bool  `json:"mergeable,omitempty" yaml:"mergeable,omitempty"`
	HeadRef      string `json:"head_ref,omitempty" yaml:"head_ref,omitempty"`
	BaseRef      string `json:"base_ref,omitempty" yaml:"base_ref,omitempty"`
}
