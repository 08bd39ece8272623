package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/classnest/classnest-api/pkg/config"
)

// Sendgrid delivers mail through the SendGrid v3 API.
type Sendgrid struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendgrid constructs a SendGrid-backed mailer.
func NewSendgrid(cfg config.MailConfig) *Sendgrid {
	return &Sendgrid{
		client: sendgrid.NewSendClient(cfg.SendgridKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

// Send delivers one plain-text message.
func (m *Sendgrid) Send(ctx context.Context, toEmail, toName, subject, textBody string) error {
	msg := sgmail.NewSingleEmail(m.from, subject, sgmail.NewEmail(toName, toEmail), textBody, "")
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d", resp.StatusCode)
	}
	return nil
}
