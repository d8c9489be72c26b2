package email

import (
	"context"

	"github.com/jwalitptl/medicare-api/pkg/logger"
)

// LogSender records mail instead of sending it.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	if log == nil {
		log = logger.Nop()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.Info("email delivery disabled, logging message", "to", msg.To, "subject", msg.Subject)
	return nil
}

var (
	_ Sender = (*LogSender)(nil)
	_ Sender = (*SMTPSender)(nil)
	_ Sender = (*SendGridSender)(nil)
	_ Sender = (*SESSender)(nil)
)
