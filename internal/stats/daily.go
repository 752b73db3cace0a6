package stats

import (
	"sort"
	"time"

	"github.com/waabox/gitpulse/internal/domain"
)

// trendThreshold is the number of percentage points a rate must move before
// it counts as a change rather than noise.
const trendThreshold = 2.0

var weekdayLabels = [5]string{"Mon", "Tue", "Wed", "Thu", "Fri"}

// DailyRate holds the concluded-run counts of one weekday.
type DailyRate struct {
	Label      string `json:"label" yaml:"label"`
	Date       string `json:"date" yaml:"date"`
	Total      int    `json:"total" yaml:"total"`
	Successful int    `json:"successful" yaml:"successful"`
}

// Rate returns the success rate of the day. ok is false when the day has no
// concluded runs, which callers render as "no data" rather than 0%.
func (d DailyRate) Rate() (rate float64, ok bool) {
	if d.Total == 0 {
		return 0, false
	}
	return percent(d.Successful, d.Total), true
}

// DailyRates returns one entry per weekday Monday to Friday of the window.
// Only concluded runs are counted.
func DailyRates(records []domain.RunRecord, w domain.TimeWindow) []DailyRate {
	loc := w.Start.Location()
	monday := time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day(), 0, 0, 0, 0, loc)

	rates := make([]DailyRate, 0, len(weekdayLabels))
	for i, label := range weekdayLabels {
		dayStart := monday.AddDate(0, 0, i)
		dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)
		day := domain.TimeWindow{Start: dayStart, End: dayEnd}

		rate := DailyRate{Label: label, Date: dayStart.Format("2006-01-02")}
		for _, r := range records {
			if !day.Contains(r.Timestamp()) {
				continue
			}
			o := Classify(r)
			if !o.Concluded() {
				continue
			}
			rate.Total++
			if countsAsSuccess(o) {
				rate.Successful++
			}
		}
		rates = append(rates, rate)
	}
	return rates
}

// MergeDaily sums daily rates of several sources by date, sorted by date.
func MergeDaily(sets ...[]DailyRate) []DailyRate {
	byDate := make(map[string]*DailyRate)
	for _, set := range sets {
		for _, d := range set {
			m, ok := byDate[d.Date]
			if !ok {
				m = &DailyRate{Label: d.Label, Date: d.Date}
				byDate[d.Date] = m
			}
			m.Total += d.Total
			m.Successful += d.Successful
		}
	}
	merged := make([]DailyRate, 0, len(byDate))
	for _, d := range byDate {
		merged = append(merged, *d)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })
	return merged
}

// TrendDirection labels the movement of a success rate.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// TrendLabel compares two rates. A change of exactly two points is stable.
func TrendLabel(first, last float64) TrendDirection {
	diff := last - first
	switch {
	case diff > trendThreshold:
		return TrendImproving
	case diff < -trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// TrendSummary describes the movement between the first and last day with
// data.
type TrendSummary struct {
	Direction TrendDirection `json:"direction" yaml:"direction"`
	Delta     float64        `json:"delta" yaml:"delta"`
	From      string         `json:"from" yaml:"from"`
	To        string         `json:"to" yaml:"to"`
}

// Trend compares the first and last days that have data. ok is false when
// fewer than two days have data.
func Trend(rates []DailyRate) (TrendSummary, bool) {
	var withData []DailyRate
	for _, d := range rates {
		if d.Total > 0 {
			withData = append(withData, d)
		}
	}
	if len(withData) < 2 {
		return TrendSummary{}, false
	}
	first, last := withData[0], withData[len(withData)-1]
	firstRate, _ := first.Rate()
	lastRate, _ := last.Rate()
	return TrendSummary{
		Direction: TrendLabel(firstRate, lastRate),
		Delta:     lastRate - firstRate,
		From:      first.Label,
		To:        last.Label,
	}, true
}
