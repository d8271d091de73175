// Package cycle buckets release timestamps into weekly or monthly cycles.
//
// Week numbers are counted from January 1st by plain day-of-year arithmetic,
// while the window boundaries are aligned to Mondays. This is not ISO-8601 and
// must stay that way: cycle ids of existing discussions depend on it.
package cycle

import (
	"fmt"
	"time"

	"github.com/gh-nvat/release-discussions/src/pkg/models"
)

type Granularity string

const (
	WEEK  Granularity = "week"
	MONTH Granularity = "month"
)

const day = 24 * time.Hour

// ParseGranularity returns the granularity named by s. Anything other than
// week or month falls back to week, ok reports whether s was recognized.
func ParseGranularity(s string) (g Granularity, ok bool) {
	switch Granularity(s) {
	case WEEK:
		return WEEK, true
	case MONTH:
		return MONTH, true
	default:
		return WEEK, false
	}
}

// Compute returns the cycle window that t belongs to. All arithmetic is done in UTC.
func Compute(t time.Time, g Granularity) models.CycleWindow {
	if g == MONTH {
		return monthly(t.UTC())
	}
	return weekly(t.UTC())
}

func weekly(t time.Time) models.CycleWindow {
	year := t.Year()
	week := WeekNumber(t)
	return models.CycleWindow{
		ID:          fmt.Sprintf("%dW%d", year, week),
		DisplayName: fmt.Sprintf("%d Week %d", year, week),
		From:        weekStart(year, week),
		To:          weekStart(year, week+1),
	}
}

// WeekNumber is ceil(dayOfYear / 7), with dayOfYear starting at 1 on January 1st
func WeekNumber(t time.Time) int {
	t = t.UTC()
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	dayOfYear := int(t.Sub(jan1)/day) + 1
	return (dayOfYear + 6) / 7
}

// weekStart shifts January 1st back to the preceding Monday and advances by whole weeks
func weekStart(year, week int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	sinceMonday := (int(jan1.Weekday()) + 6) % 7
	monday := jan1.AddDate(0, 0, -sinceMonday)
	return monday.AddDate(0, 0, (week-1)*7)
}

func monthly(t time.Time) models.CycleWindow {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return models.CycleWindow{
		ID:          from.Format("2006-01"),
		DisplayName: fmt.Sprintf("%d %s", from.Year(), from.Month()),
		From:        from,
		To:          from.AddDate(0, 1, 0),
	}
}
