package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/medicare-api/pkg/logger"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// dialer is the part of gomail.Dialer the sender uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	dialer   dialer
	from     string
	fromName string
	log      *logger.Logger
}

func NewSMTPSender(cfg SMTPConfig, log *logger.Logger) *SMTPSender {
	if log == nil {
		log = logger.Nop()
	}
	return &SMTPSender{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:     cfg.From,
		fromName: cfg.FromName,
		log:      log,
	}
}

func (s *SMTPSender) buildMessage(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		if msg.HTML != "" {
			m.AddAlternative("text/html", msg.HTML)
		}
	} else {
		m.SetBody("text/html", msg.HTML)
	}
	return m
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.dialer == nil {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.dialer.DialAndSend(s.buildMessage(msg))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
		s.log.Debug("email sent via smtp", "to", msg.To, "subject", msg.Subject)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
