// Package email delivers HTML mail through a configured provider.
package email

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/jwalitptl/medicare-api/internal/config"
	"github.com/jwalitptl/medicare-api/pkg/logger"
)

// ErrNotConfigured is returned by a sender whose provider client is missing.
var ErrNotConfigured = errors.New("email sender not configured")

// Sender is implemented by every provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// New builds the sender selected by cfg.Provider.
func New(ctx context.Context, cfg config.EmailConfig, log *logger.Logger) (Sender, error) {
	switch cfg.Provider {
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("smtp provider requires smtp_host")
		}
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
			FromName: cfg.FromName,
		}, log), nil
	case "sendgrid":
		s := NewSendGridSender(SendGridConfig{APIKey: cfg.SendGridKey, FromEmail: cfg.From, FromName: cfg.FromName}, log)
		if s == nil {
			return nil, fmt.Errorf("sendgrid provider requires an api key")
		}
		return s, nil
	case "ses":
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.SESRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.SESRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		return NewSESSender(sesv2.NewFromConfig(awsCfg), SESConfig{FromEmail: cfg.From, FromName: cfg.FromName}, log), nil
	case "log", "":
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
