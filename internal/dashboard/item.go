package dashboard

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/waabox/gitpulse/internal/domain"
)

const commentPreview = 300

var (
	reproLink = regexp.MustCompile(`https?://(?:github\.com|gist\.github\.com|codesandbox\.io|stackblitz\.com)/[^\s)]+`)
	reference = regexp.MustCompile(`#(\d{4,6})`)
)

// CommentView is a comment as shown when inspecting an item.
type CommentView struct {
	Author string `json:"author" yaml:"author"`
	Team   bool   `json:"team" yaml:"team"`
	Date   string `json:"date" yaml:"date"`
	Body   string `json:"body" yaml:"body"`
}

// ItemInspection is a single issue or pull request with its discussion.
type ItemInspection struct {
	Detail     domain.IssueDetail `json:"detail" yaml:"detail"`
	Comments   []CommentView      `json:"comments" yaml:"comments"`
	ReproLinks []string           `json:"repro_links,omitempty" yaml:"repro_links,omitempty"`
	References []string           `json:"references,omitempty" yaml:"references,omitempty"`
	Reviews    []domain.Review    `json:"reviews,omitempty" yaml:"reviews,omitempty"`
	Warnings   []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// InspectItem fetches issue or pull request number with its comments and,
// for pull requests, its reviews. Only the item itself is required; missing
// comments or reviews become warnings.
func (s *IssueService) InspectItem(ctx context.Context, number int) (ItemInspection, error) {
	detail, err := s.issues.GetIssue(ctx, number)
	if err != nil {
		return ItemInspection{}, fmt.Errorf("inspecting #%d: %w", number, err)
	}
	ins := ItemInspection{
		Detail:     detail,
		ReproLinks: uniqueMatches(reproLink, detail.Body),
		References: uniqueMatches(reference, detail.Body),
	}

	if detail.Comments > 0 {
		comments, err := s.issues.ListComments(ctx, number)
		if err != nil {
			ins.Warnings = append(ins.Warnings, fmt.Sprintf("comments: %v", err))
		}
		for _, c := range comments {
			ins.Comments = append(ins.Comments, CommentView{
				Author: c.Author,
				Team:   c.IsTeamResponse(),
				Date:   c.CreatedAt.Format("2006-01-02"),
				Body:   Truncate(c.Body, commentPreview),
			})
		}
	}

	if detail.IsPullRequest {
		reviews, err := s.issues.ListReviews(ctx, number)
		if err != nil {
			ins.Warnings = append(ins.Warnings, fmt.Sprintf("reviews: %v", err))
		}
		ins.Reviews = reviews
	}

	for _, msg := range ins.Warnings {
		s.log.Warn().Int("item", number).Msg(msg)
	}
	return ins, nil
}

func uniqueMatches(re *regexp.Regexp, text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range re.FindAllString(text, -1) {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// Truncate shortens s to at most n runes, ending with an ellipsis when cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
