package mailer

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	templateOTP           = "otp"
	templateWelcome       = "welcome"
	templateResetPassword = "reset_password"
)

// Mailer delivers account emails
type Mailer interface {
	SendOTP(ctx context.Context, msg OTPMessage) error
	SendWelcome(ctx context.Context, msg WelcomeMessage) error
	SendPasswordReset(ctx context.Context, email, url string) error
}

// OTPMessage carries a verification code to a user
type OTPMessage struct {
	Email string
	Name  string
	Code  int
}

// WelcomeMessage greets a freshly verified user
type WelcomeMessage struct {
	Email string
	Name  string
}

// Email is a rendered message ready for a transport
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Renderer turns messages into emails using the embedded pongo2 templates
type Renderer struct {
	appName   string
	otpTTL    time.Duration
	resetTTL  time.Duration
	templates map[string]*pongo2.Template
}

// NewRenderer parses all templates up front
func NewRenderer(appName string, otpTTL, resetTTL time.Duration) (*Renderer, error) {
	r := &Renderer{
		appName:   appName,
		otpTTL:    otpTTL,
		resetTTL:  resetTTL,
		templates: make(map[string]*pongo2.Template),
	}

	for _, name := range []string{templateOTP, templateWelcome, templateResetPassword} {
		raw, err := templateFS.ReadFile("templates/" + name + ".html")
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		tpl, err := pongo2.FromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = tpl
	}

	return r, nil
}

// OTP renders the verification code email
func (r *Renderer) OTP(msg OTPMessage) (*Email, error) {
	body, err := r.render(templateOTP, pongo2.Context{
		"name":        msg.Name,
		"code":        fmt.Sprintf("%06d", msg.Code),
		"ttl_minutes": int(r.otpTTL.Minutes()),
	})
	if err != nil {
		return nil, err
	}

	return &Email{
		To:      msg.Email,
		Subject: fmt.Sprintf("%s - Verify Your Account", r.appName),
		HTML:    body,
	}, nil
}

// Welcome renders the post-verification greeting
func (r *Renderer) Welcome(msg WelcomeMessage) (*Email, error) {
	body, err := r.render(templateWelcome, pongo2.Context{"name": msg.Name})
	if err != nil {
		return nil, err
	}

	return &Email{
		To:      msg.Email,
		Subject: fmt.Sprintf("Welcome to %s", r.appName),
		HTML:    body,
	}, nil
}

// PasswordReset renders the recovery link email
func (r *Renderer) PasswordReset(email, url string) (*Email, error) {
	body, err := r.render(templateResetPassword, pongo2.Context{
		"url":         url,
		"ttl_minutes": int(r.resetTTL.Minutes()),
	})
	if err != nil {
		return nil, err
	}

	return &Email{
		To:      email,
		Subject: fmt.Sprintf("%s - Password Reset", r.appName),
		HTML:    body,
	}, nil
}

func (r *Renderer) render(name string, data pongo2.Context) (string, error) {
	data["app_name"] = r.appName

	out, err := r.templates[name].Execute(data)
	if err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return out, nil
}
