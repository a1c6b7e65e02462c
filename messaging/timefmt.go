package messaging

import (
	"fmt"
	"time"
)

// RelativeTime renders t relative to now using the conversation list buckets.
// Anything a week or older falls back to a M/D/YYYY date in loc.
func RelativeTime(t, now time.Time, loc *time.Location) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	default:
		return t.In(orUTC(loc)).Format("1/2/2006")
	}
}

// ClockTime renders the time of day as h:mm AM/PM.
func ClockTime(t time.Time, loc *time.Location) string {
	return t.In(orUTC(loc)).Format("3:04 PM")
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
