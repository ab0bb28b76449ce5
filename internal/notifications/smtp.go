package notifications

import (
	"context"
	"crypto/tls"
	"errors"

	mail "github.com/go-mail/mail/v2"

	"editorial/internal/config"
)

type smtpService struct {
	sender string
	dialer *mail.Dialer
}

func newSMTPService(n config.Notifications) *smtpService {
	d := mail.NewDialer(n.SMTPHost, n.SMTPPort, n.SMTPUser, n.SMTPPass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         n.SMTPHost,
		InsecureSkipVerify: n.SkipTLSVerify,
	}
	return &smtpService{sender: n.Sender, dialer: d}
}

func (s *smtpService) Send(ctx context.Context, msg Message) error {
	if s.dialer.Host == "" || s.sender == "" {
		return errors.New("smtp not configured (smtp_host/sender)")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.sender)
	m.SetHeader("To", msg.Recipients...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	return s.dialer.DialAndSend(m)
}
