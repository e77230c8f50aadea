package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mail is a single plain-text outbound message.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer is the outbound email collaborator. Send returns an error when the
// transport cannot accept the message; callers decide whether that is fatal.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// DevMailer logs messages instead of delivering them, mirroring local
// development where no SMTP relay is running.
type DevMailer struct {
	logger *slog.Logger
}

func NewDevMailer(logger *slog.Logger) *DevMailer {
	return &DevMailer{logger: logger}
}

func (m *DevMailer) Send(ctx context.Context, mail Mail) error {
	m.logger.InfoContext(ctx, "outbound mail (dev transport)",
		"to", mail.To,
		"subject", mail.Subject,
		"body", mail.Body,
	)
	return nil
}

// SMTPMailer delivers over a plain SMTP relay.
type SMTPMailer struct {
	addr     string
	from     string
	username string
	password string
}

func NewSMTPMailer(addr, from, username, password string) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from, username: username, password: password}
}

func (m *SMTPMailer) Send(_ context.Context, mail Mail) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", mail.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mail.Subject)
	fmt.Fprintf(&msg, "Message-ID: <%s@toolvault>\r\n", uuid.NewString())
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(mail.Body)

	var auth smtp.Auth
	if m.username != "" {
		host := m.addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", m.username, m.password, host)
	}
	return smtp.SendMail(m.addr, auth, m.from, []string{mail.To}, []byte(msg.String()))
}
