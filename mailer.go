package identity

import (
	"fmt"
	"net/smtp"
	"os"
)

// Mailer delivers transactional mail. The reset flow hands it the only copy
// of the raw reset secret that ever leaves the process.
type Mailer interface {
	SendPasswordReset(to, resetURL string) error
	SendCompanyInvite(to, inviteURL, companyName string) error
}

// SMTPMailer sends HTML mail through a plain SMTP relay.
type SMTPMailer struct {
	from     string
	password string
	host     string
	port     string
	logger   Logger
}

// NewSMTPMailer creates a mailer from the conventional SMTP_* environment
// variables.
func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{
		from:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASSWORD"),
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		logger:   defLogger{},
	}
}

func (s *SMTPMailer) WithLogger(l Logger) *SMTPMailer {
	if l != nil {
		s.logger = l
	}
	return s
}

func (s *SMTPMailer) SendPasswordReset(to, resetURL string) error {
	body := fmt.Sprintf(
		`<p>We received a request to reset your password.</p>
<p><a href="%s">Reset your password</a></p>
<p>The link expires in one hour. If you did not request this, ignore this email.</p>`,
		resetURL,
	)
	return s.send(to, "Reset your password", body)
}

func (s *SMTPMailer) SendCompanyInvite(to, inviteURL, companyName string) error {
	body := fmt.Sprintf(
		`<p>You have been invited to join %s.</p>
<p><a href="%s">Accept the invitation</a></p>`,
		companyName, inviteURL,
	)
	return s.send(to, fmt.Sprintf("Invitation to join %s", companyName), body)
}

func (s *SMTPMailer) send(to, subject, body string) error {
	if s.host == "" || s.port == "" || s.from == "" || s.password == "" {
		return fmt.Errorf("missing SMTP configuration")
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"utf-8\"\r\n"+
			"\r\n%s\r\n",
		s.from, to, subject, body,
	))

	auth := smtp.PlainAuth("", s.from, s.password, s.host)
	return smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, msg)
}

// LogMailer prints mail to the logger instead of sending it. Development
// fallback when no SMTP relay is configured.
type LogMailer struct {
	logger Logger
}

func NewLogMailer(l Logger) *LogMailer {
	if l == nil {
		l = defLogger{}
	}
	return &LogMailer{logger: l}
}

func (m *LogMailer) SendPasswordReset(to, resetURL string) error {
	m.logger.Info("password reset email", "to", to, "link", resetURL)
	return nil
}

func (m *LogMailer) SendCompanyInvite(to, inviteURL, companyName string) error {
	m.logger.Info("company invite email", "to", to, "company", companyName, "link", inviteURL)
	return nil
}
