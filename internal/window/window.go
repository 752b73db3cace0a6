// Package window resolves week specifiers into Monday-to-Friday reporting
// windows anchored on ISO 8601 week numbers.
package window

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/waabox/gitpulse/internal/domain"
)

const dateLayout = "2006-01-02"

// ISOWeek returns the ISO 8601 week number of t. A week belongs to the year
// containing its Thursday.
func ISOWeek(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// MondayOfWeek returns Monday 00:00:00 of the given ISO week of year, in loc.
// Week 1 is the week containing January 4th; other weeks are offset from it
// in whole days so the result is not affected by DST transitions.
func MondayOfWeek(week, year int, loc *time.Location) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	week1Monday := jan4.AddDate(0, 0, -(weekday - 1))
	return week1Monday.AddDate(0, 0, (week-1)*7)
}

// Resolve converts a week specifier into a reporting window and the resolved
// week number. spec may be empty (current week), "last" or "prev" (previous
// week) or a week number between 1 and 53 of the current ISO year.
//
// The window runs from Monday 00:00:00 to Friday 23:59:59.999999999 and is
// capped at now, so a partial week ends at the evaluation instant. Weeks that
// have not started yet are rejected.
func Resolve(spec string, now time.Time) (domain.TimeWindow, int, error) {
	isoYear, currentWeek := now.ISOWeek()

	var week int
	switch s := strings.TrimSpace(strings.ToLower(spec)); s {
	case "":
		week = currentWeek
	case "last", "prev":
		week = currentWeek - 1
	default:
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 53 {
			return domain.TimeWindow{}, 0, fmt.Errorf("%w: %q (use 1-53, \"last\" or \"prev\")", domain.ErrInvalidWeekNumber, spec)
		}
		week = n
	}

	monday := MondayOfWeek(week, isoYear, now.Location())
	if monday.After(now) {
		return domain.TimeWindow{}, 0, fmt.Errorf("%w: week %d has not started yet", domain.ErrInvalidWeekNumber, week)
	}
	if week < 1 {
		// previous week of week 1 is the last week of the previous ISO year
		week = ISOWeek(monday)
	}
	fridayDate := monday.AddDate(0, 0, 4)
	friday := time.Date(fridayDate.Year(), fridayDate.Month(), fridayDate.Day(), 23, 59, 59, 999999999, now.Location())

	end := friday
	if now.Before(friday) {
		end = now
	}

	return domain.TimeWindow{
		Start: monday,
		End:   end,
		Label: fmt.Sprintf("Week %d (%s → %s)", week, monday.Format(dateLayout), friday.Format(dateLayout)),
	}, week, nil
}
