package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/prperemyshlev/otp-auth-service/internal/config"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// SMTPMailer sends rendered emails through an SMTP relay
type SMTPMailer struct {
	client   *mail.Client
	from     string
	renderer *Renderer
	logger   *zap.Logger
}

// NewSMTPMailer creates an SMTP mailer. No connection is opened until the first send.
func NewSMTPMailer(cfg config.SMTPConfig, renderer *Renderer, logger *zap.Logger) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(cfg.TLSPolicy)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPMailer{
		client:   client,
		from:     cfg.From,
		renderer: renderer,
		logger:   logger,
	}, nil
}

func (m *SMTPMailer) SendOTP(ctx context.Context, msg OTPMessage) error {
	email, err := m.renderer.OTP(msg)
	if err != nil {
		return err
	}
	return m.send(ctx, email)
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, msg WelcomeMessage) error {
	email, err := m.renderer.Welcome(msg)
	if err != nil {
		return err
	}
	return m.send(ctx, email)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, url string) error {
	email, err := m.renderer.PasswordReset(to, url)
	if err != nil {
		return err
	}
	return m.send(ctx, email)
}

func (m *SMTPMailer) send(ctx context.Context, email *Email) error {
	msg, err := buildMessage(m.from, email)
	if err != nil {
		return err
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", email.To, err)
	}

	m.logger.Debug("Email sent",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
	)
	return nil
}

// buildMessage creates a fresh message for every send
func buildMessage(from string, email *Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextHTML, email.HTML)
	return msg, nil
}

func tlsPolicy(policy string) mail.TLSPolicy {
	switch strings.ToLower(policy) {
	case "mandatory":
		return mail.TLSMandatory
	case "none", "notls":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}
