package profile

import (
	"testing"
	"time"
)

func TestIsEligible(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		last *time.Time
		want bool
	}{
		{"never donated", nil, true},
		{"exactly three months ago", tp(now.AddDate(0, -3, 0)), true},
		{"well past the window", tp(now.AddDate(0, -6, 0)), true},
		{"one day inside the window", tp(now.AddDate(0, -3, 1)), false},
		{"yesterday", tp(now.AddDate(0, 0, -1)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEligible(tt.last, now); got != tt.want {
				t.Errorf("IsEligible(%v) = %v, want %v", tt.last, got, tt.want)
			}
		})
	}
}

// Calendar-month arithmetic, not a 90-day count: donating on Nov 30 must make
// the donor eligible again on Feb 28/Mar 2 boundaries without drift.
func TestIsEligible_MonthLengths(t *testing.T) {
	last := time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)
	if IsEligible(&last, time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)) {
		t.Error("eligible too early")
	}
	if !IsEligible(&last, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Error("should be eligible after three calendar months")
	}
}

func tp(t time.Time) *time.Time { return &t }
