package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer renders emails and writes them to the log instead of sending.
// Used in development when no SMTP host is configured.
type LogMailer struct {
	renderer *Renderer
	logger   *zap.Logger
}

// NewLogMailer creates a log-only mailer
func NewLogMailer(renderer *Renderer, logger *zap.Logger) *LogMailer {
	return &LogMailer{renderer: renderer, logger: logger}
}

func (m *LogMailer) SendOTP(ctx context.Context, msg OTPMessage) error {
	email, err := m.renderer.OTP(msg)
	if err != nil {
		return err
	}
	m.log(email, zap.Int("code", msg.Code))
	return nil
}

func (m *LogMailer) SendWelcome(ctx context.Context, msg WelcomeMessage) error {
	email, err := m.renderer.Welcome(msg)
	if err != nil {
		return err
	}
	m.log(email)
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, url string) error {
	email, err := m.renderer.PasswordReset(to, url)
	if err != nil {
		return err
	}
	m.log(email, zap.String("url", url))
	return nil
}

func (m *LogMailer) log(email *Email, fields ...zap.Field) {
	fields = append(fields,
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
	)
	m.logger.Info("Email not sent, SMTP disabled", fields...)
}
