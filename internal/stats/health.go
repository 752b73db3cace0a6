package stats

import (
	"sort"
	"strings"

	"github.com/waabox/gitpulse/internal/domain"
)

// Thresholds that map a success rate to a health label.
const (
	ThresholdHealthy   = 90.0
	ThresholdAttention = 75.0
)

// Health labels.
const (
	HealthHealthy   = "healthy"
	HealthAttention = "needs attention"
	HealthCritical  = "needs immediate attention"
	// HealthNoData labels a summary with no runs to judge.
	HealthNoData = "no data"
)

// HealthLabel maps a success rate to a health label.
func HealthLabel(rate float64) string {
	switch {
	case rate >= ThresholdHealthy:
		return HealthHealthy
	case rate >= ThresholdAttention:
		return HealthAttention
	default:
		return HealthCritical
	}
}

// Attention lists the groups that deserve a closer look.
type Attention struct {
	// Trouble groups have a rate below 75% over at least two runs, at least
	// one of them concluded. Sorted by ascending rate.
	Trouble []GroupStats `json:"trouble" yaml:"trouble"`
	// AlwaysFailing groups have a 0% rate and at least two failures.
	AlwaysFailing []GroupStats `json:"always_failing" yaml:"always_failing"`
	// HighVolume groups have ten or more runs, a rate below 90% and at least
	// one failure. Sorted by descending failures.
	HighVolume []GroupStats `json:"high_volume" yaml:"high_volume"`
}

// FindAttention selects the groups that need attention.
func FindAttention(groups []GroupStats) Attention {
	var a Attention
	for _, g := range groups {
		if g.SuccessRate < ThresholdAttention && g.Total >= 2 && g.Concluded() > 0 {
			a.Trouble = append(a.Trouble, g)
		}
		if g.SuccessRate == 0 && g.Failed >= 2 {
			a.AlwaysFailing = append(a.AlwaysFailing, g)
		}
		if g.Total >= 10 && g.SuccessRate < ThresholdHealthy && g.Failed > 0 {
			a.HighVolume = append(a.HighVolume, g)
		}
	}
	sort.SliceStable(a.Trouble, func(i, j int) bool { return a.Trouble[i].SuccessRate < a.Trouble[j].SuccessRate })
	sort.SliceStable(a.HighVolume, func(i, j int) bool { return a.HighVolume[i].Failed > a.HighVolume[j].Failed })
	return a
}

// StatusCounts tallies the latest run of each group.
type StatusCounts struct {
	Failing    int `json:"failing" yaml:"failing"`
	InProgress int `json:"in_progress" yaml:"in_progress"`
	Passing    int `json:"passing" yaml:"passing"`
}

// LatestByGroup returns the first run seen per group, sorted by group name.
// Providers list runs newest first, so the first seen is the latest.
func LatestByGroup(records []domain.RunRecord) ([]domain.RunRecord, StatusCounts) {
	seen := make(map[string]bool)
	var latest []domain.RunRecord
	for _, r := range records {
		if seen[r.Group] {
			continue
		}
		seen[r.Group] = true
		latest = append(latest, r)
	}
	sort.SliceStable(latest, func(i, j int) bool { return latest[i].Group < latest[j].Group })

	var counts StatusCounts
	for _, r := range latest {
		switch Classify(r) {
		case domain.OutcomeFailure:
			counts.Failing++
		case domain.OutcomeSuccess:
			counts.Passing++
		case domain.OutcomeOther:
			if IsInFlight(r) {
				counts.InProgress++
			}
		}
	}
	return latest, counts
}

// IsInFlight reports whether the run is queued or still running.
func IsInFlight(r domain.RunRecord) bool {
	switch strings.ToLower(strings.TrimSpace(r.Status)) {
	case "queued", "in_progress", "pending", "running", "waiting":
		return true
	}
	return false
}
