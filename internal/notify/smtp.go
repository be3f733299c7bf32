// README: SMTP sender rendering the five core email templates.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers messages over plain SMTP. Template rendering is
// deliberately minimal; anything fancier belongs behind a provider API.
type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(addr, from string) *SMTPSender {
	return &SMTPSender{addr: addr, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if m.To == "" {
		return fmt.Errorf("message has no recipient")
	}
	subject, body := render(m)
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + m.To,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.addr, nil, s.from, []string{m.To}, []byte(msg))
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func render(m Message) (subject, body string) {
	d := m.Data
	switch m.Kind {
	case KindNewRequest:
		return fmt.Sprintf("Blood needed: %s near %s", d["blood_group"], d["location"]),
			fmt.Sprintf("A new request for %s units of %s blood was posted %s km from you. Patient: %s.",
				d["units"], d["blood_group"], d["distance_km"], d["patient_name"])
	case KindNewResponse:
		return "A donor responded to your blood request",
			fmt.Sprintf("%s offered to donate for %s. Message: %s", d["donor_name"], d["patient_name"], d["message"])
	case KindAccepted:
		return "Your donation offer was accepted",
			fmt.Sprintf("Your offer for %s was accepted. Units needed: %s. The requester will contact you at the arranged location.",
				d["patient_name"], d["units"])
	case KindFulfilledElsewhere:
		return "Blood request fulfilled",
			fmt.Sprintf("The request for %s has been fulfilled by another donor. Thank you for offering.", d["patient_name"])
	case KindDeclined:
		return "Your donation offer was declined",
			fmt.Sprintf("Your offer for %s was declined by the requester.", d["patient_name"])
	default:
		return "BloodLink notification", ""
	}
}
