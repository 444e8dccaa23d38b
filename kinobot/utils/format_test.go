package utils

import (
	"testing"
	"time"
)

func TestFormatRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	tests := []struct {
		name string
		end  *time.Time
		want string
	}{
		{"Never subscribed", nil, "expired"},
		{"Ended", at(-time.Minute), "expired"},
		{"Ends now", at(0), "expired"},
		{"Minutes left", at(20 * time.Minute), "less than an hour"},
		{"Hours left", at(5*time.Hour + 10*time.Minute), "5h"},
		{"Days left", at(30*24*time.Hour + 3*time.Hour), "30d 3h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRemaining(tt.end, now); got != tt.want {
				t.Errorf("FormatRemaining() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatEnd(t *testing.T) {
	if got := FormatEnd(nil); got != "never" {
		t.Errorf("FormatEnd(nil) = %q", got)
	}
	end := time.Date(2026, 3, 31, 9, 5, 0, 0, time.UTC)
	if got := FormatEnd(&end); got != "31.03.2026 09:05 UTC" {
		t.Errorf("FormatEnd() = %q", got)
	}
}
