package config

import (
	"crypto/tls"
	"errors"

	mail "github.com/go-mail/mail/v2"
)

// ErrMailNotConfigured is returned when SMTP_HOST or SMTP_FROM is missing.
var ErrMailNotConfigured = errors.New("smtp not configured (SMTP_HOST/SMTP_FROM)")

// Mailer sends HTML e-mail. Tests replace it with a recorder.
type Mailer interface {
	Send(to []string, subject, html string) error
}

// SMTPMailer delivers through go-mail using the Mail settings.
type SMTPMailer struct {
	settings MailSettings
}

func NewSMTPMailer(s MailSettings) *SMTPMailer {
	return &SMTPMailer{settings: s}
}

func (m *SMTPMailer) Send(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if m.settings.Host == "" || m.settings.From == "" {
		return ErrMailNotConfigured
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.settings.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	port := m.settings.Port
	if port == 0 {
		port = 587
	}
	d := mail.NewDialer(m.settings.Host, port, m.settings.User, m.settings.Password)

	// STARTTLS is mandatory on 587 for the usual hosted relays.
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         m.settings.Host,
		InsecureSkipVerify: m.settings.SkipTLSVerify,
	}

	return d.DialAndSend(msg)
}
