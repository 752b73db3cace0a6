package stats

import (
	"sort"

	"github.com/waabox/gitpulse/internal/domain"
)

// GroupStats holds outcome counts over a set of runs sharing a group name.
type GroupStats struct {
	Name        string  `json:"name" yaml:"name"`
	Total       int     `json:"total" yaml:"total"`
	Success     int     `json:"success" yaml:"success"`
	Failed      int     `json:"failed" yaml:"failed"`
	Cancelled   int     `json:"cancelled" yaml:"cancelled"`
	Other       int     `json:"other" yaml:"other"`
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
}

// Concluded returns the number of runs with a final outcome.
func (g GroupStats) Concluded() int {
	return g.Success + g.Failed + g.Cancelled
}

// SuccessRate returns (success + cancelled) / total * 100, or 0 when total
// is 0.
func SuccessRate(success, cancelled, total int) float64 {
	return percent(success+cancelled, total)
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func (g *GroupStats) add(o domain.Outcome) {
	g.Total++
	switch o {
	case domain.OutcomeSuccess:
		g.Success++
	case domain.OutcomeFailure:
		g.Failed++
	case domain.OutcomeCancelled:
		g.Cancelled++
	default:
		g.Other++
	}
}

func (g *GroupStats) finish() {
	g.SuccessRate = SuccessRate(g.Success, g.Cancelled, g.Total)
}

// Aggregate counts outcomes over records and labels the result with name.
func Aggregate(name string, records []domain.RunRecord) GroupStats {
	g := GroupStats{Name: name}
	for _, r := range records {
		g.add(Classify(r))
	}
	g.finish()
	return g
}

// ByGroup aggregates records per group name. Groups are sorted by
// descending total; ties keep the order in which groups were first seen.
func ByGroup(records []domain.RunRecord) []GroupStats {
	index := make(map[string]int)
	var groups []GroupStats
	for _, r := range records {
		i, ok := index[r.Group]
		if !ok {
			i = len(groups)
			index[r.Group] = i
			groups = append(groups, GroupStats{Name: r.Group})
		}
		groups[i].add(Classify(r))
	}
	for i := range groups {
		groups[i].finish()
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Total > groups[b].Total
	})
	return groups
}

// Combine sums already aggregated groups into one, recomputing the rate with
// the same formula.
func Combine(name string, groups []GroupStats) GroupStats {
	c := GroupStats{Name: name}
	for _, g := range groups {
		c.Total += g.Total
		c.Success += g.Success
		c.Failed += g.Failed
		c.Cancelled += g.Cancelled
		c.Other += g.Other
	}
	c.finish()
	return c
}
