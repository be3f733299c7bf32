// README: Notification collaborator: template kinds and the Notifier contract.
package notify

import "context"

// Kind selects an email template.
type Kind string

const (
	// KindNewRequest goes to matched donors when a request is created.
	KindNewRequest Kind = "new_blood_request"
	// KindNewResponse goes to a request creator when a donor responds.
	KindNewResponse Kind = "new_response_to_your_request"
	// KindAccepted goes to the donor whose response was accepted.
	KindAccepted Kind = "donor_acceptance"
	// KindFulfilledElsewhere goes to donors auto-declined by an acceptance.
	KindFulfilledElsewhere Kind = "request_fulfilled_elsewhere"
	// KindDeclined goes to a donor whose response was declined.
	KindDeclined Kind = "response_declined"
)

// Message is one notification to deliver.
type Message struct {
	To   string
	Kind Kind
	Data map[string]string
}

// Notifier delivers notifications best-effort. Callers never let a delivery
// failure surface into core operation results; failures are logged and dropped.
type Notifier interface {
	Notify(ctx context.Context, m Message) error
	NotifyBatch(ctx context.Context, ms []Message) error
}
