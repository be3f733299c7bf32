// README: Blood request aggregate, status flow, and urgency levels.
package request

import (
	"time"

	"bloodlink/internal/modules/blood"
	"bloodlink/internal/sentinel"
	"bloodlink/internal/types"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

// AllowedTransitions represents the request state flow as code. FULFILLED and
// CANCELLED are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusActive: {StatusFulfilled, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Urgency orders requests by severity for display; it carries no algorithmic
// weight in matching.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyCritical, UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusFulfilled, StatusCancelled:
		return Status(s), nil
	}
	return "", sentinel.NewValidation("status", "unknown status "+s)
}

type Request struct {
	ID           types.ID    `json:"id"`
	CreatorID    types.ID    `json:"creator_id"`
	PatientName  string      `json:"patient_name"`
	BloodGroup   blood.Group `json:"blood_group"`
	Units        int         `json:"units"`
	Urgency      Urgency     `json:"urgency"`
	ContactPhone string      `json:"contact_phone"`
	// Location is where the patient is, not where the creator's profile is.
	Location     types.Point `json:"location"`
	LocationName string      `json:"location_name"`
	Status       Status      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	// FulfilledAt is set only while Status is FULFILLED.
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty"`
}
