// Package calendar does the day arithmetic shared by streaks, ledgers and
// reviews. Days are ISO dates (YYYY-MM-DD) in the user's timezone.
package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the ISO date format used for day keys.
const DateLayout = "2006-01-02"

// Clock resolves "now" and "today" in the user's timezone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New creates a clock for loc. A nil now uses time.Now.
func New(loc *time.Location, now func() time.Time) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{loc: loc, now: now}
}

// Fixed returns a clock frozen at t, in t's location.
func Fixed(t time.Time) *Clock {
	return New(t.Location(), func() time.Time { return t })
}

// Now returns the current instant in UTC.
func (c *Clock) Now() time.Time { return c.now().UTC() }

// Location returns the user's timezone.
func (c *Clock) Location() *time.Location { return c.loc }

// Today returns the current day key.
func (c *Clock) Today() string { return c.DateKey(c.now()) }

// DateKey returns the day key of t in the user's timezone.
func (c *Clock) DateKey(t time.Time) string { return t.In(c.loc).Format(DateLayout) }

// DayStart returns the start of the current day in the user's timezone, converted to UTC.
func (c *Clock) DayStart() time.Time { return DayStart(c.now(), c.loc) }

// DayStart returns the start of the day containing now in tz, converted to UTC.
func DayStart(now time.Time, tz *time.Location) time.Time {
	userNow := now.In(tz)
	dayStart := time.Date(userNow.Year(), userNow.Month(), userNow.Day(), 0, 0, 0, 0, tz)
	return dayStart.UTC()
}

// NextDayStart returns the start of the next day in tz, converted to UTC.
func NextDayStart(now time.Time, tz *time.Location) time.Time {
	dayStart := DayStart(now, tz)
	// AddDate handles DST correctly, Add(24h) does not
	nextDay := dayStart.In(tz).AddDate(0, 0, 1)
	return time.Date(nextDay.Year(), nextDay.Month(), nextDay.Day(), 0, 0, 0, 0, tz).UTC()
}

// ParseTimezone parses a timezone string, returning UTC as fallback.
func ParseTimezone(tz string) *time.Location {
	if tz == "" || tz == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseDate validates a day key.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return t, nil
}

// AddDays shifts a valid day key by n days.
func AddDays(date string, n int) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(DateLayout)
}

// Yesterday returns the day before date.
func Yesterday(date string) string { return AddDays(date, -1) }

// LastDays returns the n day keys ending at today, most recent first.
func LastDays(today string, n int) []string {
	out := make([]string, 0, n)
	for i := range n {
		out = append(out, AddDays(today, -i))
	}
	return out
}

// NextStreak applies a read on day to a streak last extended on lastDay:
// the same day leaves it unchanged, the following day extends it, anything
// else restarts it at 1.
func NextStreak(current int, lastDay, day string) int {
	switch {
	case lastDay == day && current > 0:
		return current
	case lastDay != "" && Yesterday(day) == lastDay:
		return current + 1
	default:
		return 1
	}
}

// Streak counts consecutive active days ending today. Today is still in
// progress, so the count starts from yesterday when today is not active.
// maxDays bounds the walk.
func Streak(active func(day string) bool, today string, maxDays int) int {
	day := today
	if !active(day) {
		day = Yesterday(day)
	}

	streak := 0
	for streak < maxDays && active(day) {
		streak++
		day = Yesterday(day)
	}
	return streak
}

// StreakFromSet is Streak over a set of active day keys.
func StreakFromSet(days map[string]struct{}, today string, maxDays int) int {
	return Streak(func(d string) bool {
		_, ok := days[d]
		return ok
	}, today, maxDays)
}
