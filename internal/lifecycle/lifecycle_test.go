package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/lifecycle"
)

// lookback day n of a 30-day buffer; the window starts on day 25.
func lookbackDay(n int) time.Time {
	return time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC).AddDate(0, 0, n-1)
}

var window = domain.TimeWindow{
	Start: time.Date(2025, 2, 25, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC),
}

func closedAt(t time.Time) *time.Time { return &t }

func TestReconstruct_OldOpenIssueCountsAtStart(t *testing.T) {
	records := []domain.IssueRecord{{Number: 1, CreatedAt: lookbackDay(1)}}

	s := lifecycle.Reconstruct(records, window)

	assert.Equal(t, lifecycle.Snapshot{OpenAtStart: 1, OpenAtEnd: 1}, s)
}

func TestReconstruct_Flow(t *testing.T) {
	records := []domain.IssueRecord{
		// closed before the window: invisible
		{Number: 1, CreatedAt: lookbackDay(2), ClosedAt: closedAt(lookbackDay(10))},
		// open at start, closed inside
		{Number: 2, CreatedAt: lookbackDay(3), ClosedAt: closedAt(window.Start.Add(time.Hour))},
		// opened inside, still open
		{Number: 3, CreatedAt: window.Start.Add(2 * time.Hour)},
		// opened and closed inside
		{Number: 4, CreatedAt: window.Start.Add(3 * time.Hour), ClosedAt: closedAt(window.Start.Add(5 * time.Hour))},
		// opened inside, closed after
		{Number: 5, CreatedAt: window.Start.Add(4 * time.Hour), ClosedAt: closedAt(window.End.Add(time.Hour))},
		// created after the window
		{Number: 6, CreatedAt: window.End.Add(time.Hour)},
	}

	s := lifecycle.Reconstruct(records, window)

	assert.Equal(t, 1, s.OpenAtStart)
	assert.Equal(t, 2, s.OpenAtEnd)
	assert.Equal(t, 3, s.Opened)
	assert.Equal(t, 2, s.Closed)
	assert.Equal(t, 1, s.NetChange)
}

func TestReconstruct_Boundaries(t *testing.T) {
	records := []domain.IssueRecord{
		// closed exactly at the start: still open at start and closed during
		{Number: 1, CreatedAt: lookbackDay(1), ClosedAt: closedAt(window.Start)},
		// created exactly at the start: opened, not open at start
		{Number: 2, CreatedAt: window.Start},
		// closed exactly at the end: closed during, not open at end
		{Number: 3, CreatedAt: window.Start, ClosedAt: closedAt(window.End)},
	}

	s := lifecycle.Reconstruct(records, window)

	assert.Equal(t, 1, s.OpenAtStart)
	assert.Equal(t, 1, s.OpenAtEnd)
	assert.Equal(t, 2, s.Opened)
	assert.Equal(t, 2, s.Closed)
	assert.Equal(t, 0, s.NetChange)
}

func TestSplit(t *testing.T) {
	records := []domain.IssueRecord{{Number: 1}, {Number: 2, IsPullRequest: true}, {Number: 3}}

	issues, pulls := lifecycle.Split(records)

	assert.Len(t, issues, 2)
	assert.Len(t, pulls, 1)
	assert.Equal(t, 2, pulls[0].Number)
}
