// README: Donor eligibility window evaluation.
package profile

import "time"

// IsEligible reports whether a donor whose last donation happened at last may
// donate again at now. A donor who has never donated is always eligible.
// The window is three calendar months, not a fixed day count, so the boundary
// tracks months of different lengths. The boundary itself is inclusive: a
// donation exactly three calendar months ago permits donating today.
func IsEligible(last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	cutoff := now.AddDate(0, -3, 0)
	return !last.After(cutoff)
}
