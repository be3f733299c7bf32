// README: Append-only donation log entry.
package donation

import (
	"time"

	"bloodlink/internal/types"
)

// Donation is an immutable historical fact. Created as a side effect of
// response acceptance, or by direct entry; never mutated or deleted.
type Donation struct {
	ID      types.ID
	DonorID types.ID
	// RequestID is nil for direct donations made outside any request.
	RequestID *types.ID
	DonatedAt time.Time
	Units     int
}
