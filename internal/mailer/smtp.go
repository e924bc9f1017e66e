package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Message is one transactional email. Plain text only; the site's
// confirmation mails carry no markup.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers transactional email. The booking flow treats delivery
// as best-effort: implementations may fail, callers log and move on.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type SMTPSender struct {
	cfg  SMTPConfig
	addr string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		cfg:  cfg,
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
}

// fromHeader renders the From value, dropping the display name when
// none is configured so the header never carries an empty name.
func (s *SMTPSender) fromHeader() string {
	if s.cfg.FromName == "" {
		return s.cfg.From
	}
	return fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From)
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	const op = "mailer.SMTPSender.Send"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.fromHeader())
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(s.addr, auth, s.cfg.From, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
