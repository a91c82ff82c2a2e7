package mail

import (
	"context"
	"fmt"
	"log"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/minhngoc/bantin/internal/config"
)

const sendAttempts = 3

// Sender delivers rendered digests to the configured recipients.
type Sender struct {
	cfg        config.SMTP
	recipients []string
	attempts   int
	backoff    time.Duration
	send       func(ctx context.Context, subject, body string) error
}

// NewSender creates a sender for the given SMTP account and recipients.
func NewSender(cfg config.SMTP, recipients []string) *Sender {
	s := &Sender{
		cfg:        cfg,
		recipients: recipients,
		attempts:   sendAttempts,
		backoff:    time.Second,
	}
	s.send = s.smtpSend
	return s
}

// Send delivers one email, retrying transient failures with a doubling
// backoff between attempts.
func (s *Sender) Send(ctx context.Context, subject, body string) error {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if attempt > 1 {
			wait := s.backoff << (attempt - 2)
			log.Printf("Send attempt %d/%d failed, retrying in %s: %v", attempt-1, s.attempts, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = s.send(ctx, subject, body); lastErr == nil {
			log.Printf("Email sent to %d recipients", len(s.recipients))
			return nil
		}
	}
	return fmt.Errorf("sending email after %d attempts: %w", s.attempts, lastErr)
}

func (s *Sender) smtpSend(ctx context.Context, subject, body string) error {
	client, err := gomail.NewClient(s.cfg.Host,
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("configuring SMTP client: %w", err)
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.Username); err != nil {
		return fmt.Errorf("setting sender address: %w", err)
	}
	if err := msg.To(s.recipients...); err != nil {
		return fmt.Errorf("setting recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body)

	return client.DialAndSendWithContext(ctx, msg)
}
