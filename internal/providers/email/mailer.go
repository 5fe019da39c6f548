package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/stridehq/stride/internal/config"
	"github.com/stridehq/stride/internal/observability/logger"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Mailer renders the domain templates and hands them to the provider.
type Mailer struct {
	provider  Provider
	templates *template.Template
	baseURL   string
}

// NewMailer picks the SMTP provider when a host is configured, otherwise
// the NoOp provider.
func NewMailer(cfg config.Config) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	var provider Provider = NewNoOpProvider()
	if cfg.Email.SMTPHost != "" {
		provider = NewSMTPProvider(cfg.Email)
	}
	return &Mailer{
		provider:  provider,
		templates: tmpl,
		baseURL:   cfg.TransferLink,
	}, nil
}

// NewMailerWithProvider is used by tests to capture outgoing mail.
func NewMailerWithProvider(provider Provider, baseURL string) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Mailer{provider: provider, templates: tmpl, baseURL: baseURL}, nil
}

// OwnershipTransferData feeds the ownership transfer template. Token is the
// raw URL-safe token; it appears only in the outgoing mail.
type OwnershipTransferData struct {
	To            string
	TeamName      string
	InitiatorName string
	Message       string
	Token         string
	ExpiresAt     time.Time
}

func (m *Mailer) SendOwnershipTransfer(ctx context.Context, data OwnershipTransferData) error {
	body, err := m.render("ownership_transfer.html", map[string]any{
		"TeamName":      data.TeamName,
		"InitiatorName": data.InitiatorName,
		"Message":       data.Message,
		"CompleteURL":   fmt.Sprintf("%s?token=%s", m.baseURL, data.Token),
		"ExpiresAt":     data.ExpiresAt.Format("Jan 2, 2006 15:04 MST"),
	})
	if err != nil {
		return err
	}
	return m.send(ctx, Message{
		To:      data.To,
		Subject: fmt.Sprintf("Ownership transfer for %s", data.TeamName),
		HTML:    body,
	})
}

// RegistrationConfirmationData feeds the registration approval template.
type RegistrationConfirmationData struct {
	To                string
	FirstName         string
	TeamName          string
	TeamURL           string
	TemporaryPassword string
}

func (m *Mailer) SendRegistrationConfirmation(ctx context.Context, data RegistrationConfirmationData) error {
	body, err := m.render("registration_confirmation.html", map[string]any{
		"FirstName":         data.FirstName,
		"TeamName":          data.TeamName,
		"TeamURL":           data.TeamURL,
		"TemporaryPassword": data.TemporaryPassword,
	})
	if err != nil {
		return err
	}
	return m.send(ctx, Message{
		To:      data.To,
		Subject: fmt.Sprintf("Your registration with %s was approved", data.TeamName),
		HTML:    body,
	})
}

func (m *Mailer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (m *Mailer) send(ctx context.Context, msg Message) error {
	if err := m.provider.Send(ctx, msg); err != nil {
		logger.FromContext(ctx).Error("email delivery failed",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return err
	}
	return nil
}
