package rules

import "time"

const (
	FreeSwipesPerDay     = 5
	FreeSuperLikesPerDay = 2
	PlusSuperLikesPerDay = 2
)

// DayKey is the calendar-day bucket for quota counters, evaluated in
// the user's local timezone.
func DayKey(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02")
}

// NextResetAt is the first instant of the following local day, in UTC.
func NextResetAt(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return next.UTC()
}
