package triage

import (
	"regexp"
	"sort"

	"github.com/waabox/gitpulse/internal/domain"
)

// NoArea is returned when no label names a functional area.
const NoArea = "-"

var areaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Module:\s*(.+)`),
	regexp.MustCompile(`(?i)^packages/(.+)`),
}

// ExtractArea returns the functional area named by the first matching
// label, such as "Module: router" or "packages/cli".
func ExtractArea(labels []string) string {
	for _, label := range labels {
		for _, re := range areaPatterns {
			if m := re.FindStringSubmatch(label); m != nil {
				return m[1]
			}
		}
	}
	return NoArea
}

// AreaCount is the number of flagged items in one area.
type AreaCount struct {
	Area  string `json:"area" yaml:"area"`
	Count int    `json:"count" yaml:"count"`
}

// Hotspots returns up to limit areas with the most items, most first. Ties
// keep first-seen order and items without an area are ignored.
func Hotspots(items []domain.IssueRecord, limit int) []AreaCount {
	index := make(map[string]int)
	var counts []AreaCount
	for _, item := range items {
		area := ExtractArea(item.Labels)
		if area == NoArea {
			continue
		}
		i, ok := index[area]
		if !ok {
			i = len(counts)
			index[area] = i
			counts = append(counts, AreaCount{Area: area})
		}
		counts[i].Count++
	}
	sort.SliceStable(counts, func(a, b int) bool { return counts[a].Count > counts[b].Count })
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
