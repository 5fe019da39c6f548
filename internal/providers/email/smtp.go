package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/stridehq/stride/internal/config"
)

// SMTPProvider sends through a plain SMTP relay with optional AUTH.
type SMTPProvider struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPProvider(cfg config.EmailConfig) *SMTPProvider {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPProvider{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		auth: auth,
		from: cfg.SMTPFrom,
	}
}

func (p *SMTPProvider) Send(_ context.Context, msg Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", p.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	return smtp.SendMail(p.addr, p.auth, p.from, []string{msg.To}, []byte(b.String()))
}
