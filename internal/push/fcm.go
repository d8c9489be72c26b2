// Package push sends mobile push notifications through Firebase Cloud Messaging.
package push

import (
	"context"
	"errors"
	"fmt"
	"os"

	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/option"

	"github.com/jwalitptl/medicare-api/internal/config"
	"github.com/jwalitptl/medicare-api/pkg/logger"
)

// ErrPushNotConfigured is returned when no FCM credentials were supplied.
var ErrPushNotConfigured = errors.New("push notifications not configured")

type Notification struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// messageSender is the one FCM call the sender needs.
type messageSender interface {
	send(ctx context.Context, parent string, req *fcm.SendMessageRequest) error
}

type fcmMessages struct {
	svc *fcm.Service
}

func (m fcmMessages) send(ctx context.Context, parent string, req *fcm.SendMessageRequest) error {
	_, err := m.svc.Projects.Messages.Send(parent, req).Context(ctx).Do()
	return err
}

type FCMSender struct {
	api       messageSender
	projectID string
	log       *logger.Logger
}

// NewFCMSender builds a sender from cfg. Without credentials or a project
// id it returns a sender whose Send reports ErrPushNotConfigured.
func NewFCMSender(ctx context.Context, cfg config.PushConfig, log *logger.Logger) (*FCMSender, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := &FCMSender{projectID: cfg.ProjectID, log: log}

	creds := []byte(cfg.CredentialsJSON)
	if len(creds) == 0 && cfg.CredentialsFile != "" {
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read fcm credentials: %w", err)
		}
		creds = b
	}
	if len(creds) == 0 || cfg.ProjectID == "" {
		log.Warn("fcm credentials not set, push notifications disabled")
		return s, nil
	}

	svc, err := fcm.NewService(ctx, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create fcm client: %w", err)
	}
	s.api = fcmMessages{svc: svc}
	return s, nil
}

func (s *FCMSender) Enabled() bool {
	return s.api != nil
}

func (s *FCMSender) Send(ctx context.Context, n Notification) error {
	if s.api == nil {
		return ErrPushNotConfigured
	}
	if n.Token == "" {
		return errors.New("push token is empty")
	}

	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: n.Token,
			Notification: &fcm.Notification{
				Title: n.Title,
				Body:  n.Body,
			},
			Data: n.Data,
			Android: &fcm.AndroidConfig{
				Priority: "HIGH",
			},
		},
	}

	if err := s.api.send(ctx, "projects/"+s.projectID, req); err != nil {
		return fmt.Errorf("fcm send failed: %w", err)
	}
	s.log.Debug("push sent", "title", n.Title)
	return nil
}

var _ Sender = (*FCMSender)(nil)
