package services

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
	"google.golang.org/api/option"
)

// FCMSender delivers push messages through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

func NewFCMSender(ctx context.Context, credentialsFile, projectID string) (*FCMSender, error) {
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, conf, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase messaging: %w", err)
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Send(ctx context.Context, msg PushMessage) error {
	_, err := s.client.Send(ctx, &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if err != nil {
		return apperrors.TransientIO("push delivery failed", err)
	}
	return nil
}

// LogSender only logs messages. Used in development when Firebase is not configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg PushMessage) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("push notification (not sent, Firebase disabled)",
		"token", maskToken(msg.Token),
		"title", msg.Title,
		"body", msg.Body,
	)
	return nil
}
