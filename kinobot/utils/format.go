package utils

import (
	"fmt"
	"time"
)

const DateLayout = "02.01.2006 15:04"

// FormatEnd renders a subscription end for users. Nil means never subscribed.
func FormatEnd(end *time.Time) string {
	if end == nil {
		return "never"
	}
	return end.UTC().Format(DateLayout) + " UTC"
}

// FormatRemaining renders the time left until end, rounded down to hours.
func FormatRemaining(end *time.Time, now time.Time) string {
	if end == nil || !end.After(now) {
		return "expired"
	}
	left := end.Sub(now)
	days := int(left / (24 * time.Hour))
	hours := int(left%(24*time.Hour)) / int(time.Hour)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return "less than an hour"
	}
}
