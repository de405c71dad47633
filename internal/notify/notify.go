package notify

import (
	"context"

	"go.uber.org/zap"
)

// EmailMessage is a templated email; Template selects the rendering on the
// sender side.
type EmailMessage struct {
	From     string
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

// EmailSender delivers templated email. External collaborator.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// PushNote is the visible part of a push notification.
type PushNote struct {
	Title string
	Body  string
}

// DeliveryReport describes the outcome of a push send for one recipient.
type DeliveryReport struct {
	UserID    string
	Delivered bool
	Error     string
}

// PushSender delivers push notifications. External collaborator.
type PushSender interface {
	SendToUser(ctx context.Context, userID string, note PushNote, data map[string]string) (DeliveryReport, error)
}

// LogEmailSender is a development sender that only logs.
type LogEmailSender struct {
	Logger *zap.Logger
}

func (s *LogEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.Logger.Debug("sendEmail",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("template", msg.Template))
	return nil
}

// LogPushSender is a development sender that only logs.
type LogPushSender struct {
	Logger *zap.Logger
}

func (s *LogPushSender) SendToUser(ctx context.Context, userID string, note PushNote, data map[string]string) (DeliveryReport, error) {
	s.Logger.Debug("sendPush",
		zap.String("user_id", userID),
		zap.String("title", note.Title))
	return DeliveryReport{UserID: userID, Delivered: true}, nil
}
