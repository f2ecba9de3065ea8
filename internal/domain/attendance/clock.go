package attendance

import (
	"fmt"
	"time"
)

// Location is the single civil timezone attendance is recorded in (UTC+8, no DST).
var Location = time.FixedZone("PHT", 8*60*60)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// CivilDate truncates t to midnight of its calendar day in Location.
func CivilDate(t time.Time) time.Time {
	local := t.In(Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location)
}

// DateKey formats the civil date of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.In(Location).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string as a civil date in Location.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, Location)
}

// At combines a civil date with an "HH:MM" wall clock time in Location.
func At(date time.Time, clock string) (time.Time, error) {
	hm, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	d := date.In(Location)
	return time.Date(d.Year(), d.Month(), d.Day(), hm.Hour(), hm.Minute(), 0, 0, Location), nil
}

// MinuteOfDay returns hour*60+minute of t in Location.
func MinuteOfDay(t time.Time) int {
	local := t.In(Location)
	return local.Hour()*60 + local.Minute()
}
