package mailer

import "context"

// Mailer delivers a single outbound message. Delivery failures are always
// isolated per recipient by callers; no bulk API is exposed on purpose.
type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, textBody string) error
}
