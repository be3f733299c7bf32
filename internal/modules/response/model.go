// README: Donor response aggregate and status definitions.
package response

import (
	"time"

	"bloodlink/internal/modules/blood"
	"bloodlink/internal/types"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// MaxMessageLen bounds the optional donor message.
const MaxMessageLen = 500

// Response is a donor's offer against an ACTIVE request. At most one exists
// per (request, donor) pair; the storage layer enforces the uniqueness.
type Response struct {
	ID        types.ID  `json:"id"`
	RequestID types.ID  `json:"request_id"`
	DonorID   types.ID  `json:"donor_id"`
	Message   string    `json:"message"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// WithDonor is a response joined with donor presentation fields for the
// request creator's view.
type WithDonor struct {
	Response
	DonorName  string      `json:"donor_name"`
	DonorPhone string      `json:"donor_phone"`
	DonorGroup blood.Group `json:"donor_group"`
}

// AcceptResult names the accepted donor and the units donated.
type AcceptResult struct {
	ResponseID types.ID `json:"response_id"`
	DonorID    types.ID `json:"donor_id"`
	DonorName  string   `json:"donor_name"`
	Units      int      `json:"units"`
}
