package bootstrap

import (
	appconfig "github.com/wolfman30/oneroot-leads/internal/config"
	"github.com/wolfman30/oneroot-leads/internal/notify"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

// BuildEmailSender picks the alert email provider. It returns nil when
// alerts are disabled or the chosen provider is not configured.
func BuildEmailSender(cfg *appconfig.Config, ses notify.SESAPI, logger *logging.Logger) notify.EmailSender {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty; lead alerts disabled")
			return nil
		}
		return sender
	case "ses":
		if cfg.SESFromEmail == "" {
			logger.Warn("ses selected but SES_FROM_EMAIL is empty; lead alerts disabled")
			return nil
		}
		sender := notify.NewSESSender(ses, notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	case "stub":
		return notify.NewStubEmailSender(logger)
	default:
		return nil
	}
}
