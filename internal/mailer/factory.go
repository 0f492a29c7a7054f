package mailer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/octopus/bulletin-digest/internal/config"
	"github.com/octopus/bulletin-digest/internal/ratelimiter"
)

// FromConfig builds the configured transport wrapped in the send-rate limiter.
func FromConfig(cfg *config.Config, logger *zap.Logger) (Mailer, error) {
	renderer := NewRenderer(cfg.PublicBaseURL)

	var m Mailer
	switch cfg.MailTransport {
	case config.TransportSMTP:
		m = NewSMTPMailer(cfg.SMTPAddr, cfg.MailFrom, cfg.SMTPUsername, cfg.SMTPPassword, renderer)
	case config.TransportWebhook:
		m = NewWebhookMailer(cfg.MailWebhookURL, cfg.MailTimeout, renderer)
	case config.TransportLog:
		m = NewLogMailer(logger)
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.MailTransport)
	}

	logger.Info("mail transport configured",
		zap.String("transport", cfg.MailTransport),
		zap.Int("rate_limit_per_sec", cfg.MailRateLimit),
	)
	return NewRateLimited(m, ratelimiter.New(cfg.MailRateLimit)), nil
}
