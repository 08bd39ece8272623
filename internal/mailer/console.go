package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Console logs messages instead of delivering them. Used in development and
// whenever outbound mail is disabled.
type Console struct {
	logger *zap.Logger
}

// NewConsole builds a logging mailer.
func NewConsole(logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{logger: logger}
}

// Send logs the message and reports success.
func (m *Console) Send(_ context.Context, toEmail, toName, subject, textBody string) error {
	m.logger.Info("outbound email (console)",
		zap.String("to", toEmail),
		zap.String("to_name", toName),
		zap.String("subject", subject),
		zap.String("body", textBody),
	)
	return nil
}
