// README: Nearby-query inputs and ranked match results.
package matching

import (
	"fmt"
	"time"

	"bloodlink/internal/modules/blood"
	"bloodlink/internal/types"
)

// DonorQuery asks for donors near a point, ranked by distance.
type DonorQuery struct {
	Origin types.Point
	// Group filters donors to exactly this blood group; nil means all groups.
	Group *blood.Group
	// CompatibleWith filters donors to groups that may donate to this
	// recipient group; nil disables the compatibility filter.
	CompatibleWith *blood.Group
	RadiusKm       float64
	AvailableOnly  bool
	// Exclude drops a profile (the requesting user) from results.
	Exclude types.ID
	// Limit caps the result count after ranking; zero means no cap.
	Limit int
}

// DonorMatch is one ranked donor with derived presentation fields.
type DonorMatch struct {
	ProfileID  types.ID    `json:"profile_id"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
	BloodGroup blood.Group `json:"blood_group"`
	// DistanceKm is rounded to one decimal for display.
	DistanceKm float64 `json:"distance_km"`
	Eligible   bool    `json:"eligible"`
	LastActive string  `json:"last_active"`
}

// RequestQuery asks for active blood requests near a donor.
type RequestQuery struct {
	Origin     types.Point
	DonorGroup blood.Group
	// Group filters requests to exactly this required blood group; nil means all.
	Group    *blood.Group
	RadiusKm float64
}

// RequestCandidate is the storage-boundary view of an active request that the
// matcher ranks. It deliberately avoids depending on the request package,
// which sits above this one in the module graph.
type RequestCandidate struct {
	ID            types.ID    `json:"id"`
	CreatorID     types.ID    `json:"creator_id"`
	PatientName   string      `json:"patient_name"`
	BloodGroup    blood.Group `json:"blood_group"`
	Units         int         `json:"units"`
	Urgency       string      `json:"urgency"`
	Location      types.Point `json:"location"`
	LocationName  string      `json:"location_name"`
	CreatedAt     time.Time   `json:"created_at"`
	ResponseCount int         `json:"response_count"`
}

// RequestMatch is one ranked request from a donor's point of view.
type RequestMatch struct {
	RequestCandidate
	DistanceKm    float64 `json:"distance_km"`
	CanUserDonate bool    `json:"can_user_donate"`
}

// lastActiveBucket renders the time since a profile's last update as a
// human-readable minutes/hours/days bucket.
func lastActiveBucket(updatedAt, now time.Time) string {
	d := now.Sub(updatedAt)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	}
}
