// Package mailer sends out-of-band operator email. Callers treat sends as
// fire-and-forget: a failed send is logged, never propagated into request
// outcomes.
package mailer

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// Mailer sends HTML email over SMTP.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// New creates a Mailer. Auth is skipped when username is empty.
func New(host, port, username, password, from string) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// SendEmail sends a single HTML message.
func (m *Mailer) SendEmail(to, subject, htmlBody string) error {
	addr := net.JoinHostPort(m.host, m.port)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
