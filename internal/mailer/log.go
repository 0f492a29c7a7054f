package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer writes digests to the log instead of sending them. Used in
// development when no transport is configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendDigest(_ context.Context, msg Message) error {
	fields := []zap.Field{
		zap.String("to", msg.To),
		zap.String("user_id", msg.UserID),
		zap.Int("notifications", msg.Digest.Len()),
	}
	for _, g := range msg.Digest.Groups {
		fields = append(fields, zap.Int(string(g.ActionType), len(g.Notifications)))
	}
	m.logger.Info("bulletin digest", fields...)
	return nil
}

var _ Mailer = (*LogMailer)(nil)
