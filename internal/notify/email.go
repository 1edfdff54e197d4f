package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends booking updates by email through SendGrid.
type Mailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewMailer(apiKey, senderEmail, senderName string) *Mailer {
	return &Mailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(senderName, senderEmail),
	}
}

func (m *Mailer) Name() string { return "email" }

func (m *Mailer) Deliver(ctx context.Context, to Recipient, e Event) error {
	if to.Email == "" {
		return ErrSkipped
	}
	plain := fmt.Sprintf("Hi %s,\n\n%s\n\nBooking #%d is now %s.", to.Name, e.Message, e.BookingID, e.Status)
	html := fmt.Sprintf("<p>Hi %s,</p><p>%s</p><p>Booking #%d is now <b>%s</b>.</p>",
		html.EscapeString(to.Name), html.EscapeString(e.Message), e.BookingID, e.Status)
	msg := mail.NewSingleEmail(m.from, e.Title, mail.NewEmail(to.Name, to.Email), plain, html)

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d", resp.StatusCode)
	}
	return nil
}
