// README: Donor/requester profile aggregate.
package profile

import (
	"time"

	"bloodlink/internal/modules/blood"
	"bloodlink/internal/types"
)

type Profile struct {
	ID          types.ID    `json:"id"`
	IdentityRef string      `json:"-"`
	Name        string      `json:"name"`
	Phone       string      `json:"phone"`
	Email       string      `json:"email"`
	BloodGroup  blood.Group `json:"blood_group"`
	// Location is nil until the user has shared a position; distance
	// queries reject profiles without one.
	Location     *types.Point `json:"location,omitempty"`
	Available    bool         `json:"available"`
	LastDonation *time.Time   `json:"last_donation,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Stats summarises a donor's recorded donation history.
type Stats struct {
	Donations  int
	TotalUnits int
}
