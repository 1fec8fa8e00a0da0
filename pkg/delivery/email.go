package delivery

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailSender delivers over plain SMTP. Provider-specific delivery
// (templated HTML, tracking) lives outside the core; this adapter only
// honors the success/failure contract.
type EmailSender struct {
	Addr string // host:port
	From string
	Auth smtp.Auth
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Send(ctx context.Context, to Recipient, content Content) error {
	if to.Email == "" {
		return fmt.Errorf("email send: no address for user %d", to.UserID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to.Email,
		"Subject: " + content.Subject,
		"",
		content.Body,
	}, "\r\n")
	if err := smtp.SendMail(s.Addr, s.Auth, s.From, []string{to.Email}, []byte(msg)); err != nil {
		return fmt.Errorf("email send: %w", err)
	}
	return nil
}
