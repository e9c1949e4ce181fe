package mail

import (
	"strings"

	"github.com/clauselens/core/internal/config"
)

// BuildMailConfig constructs a mail.Config from the application's FullConfig
// so the notify paths and the digest cron build the mailer consistently.
// Resend is used when the provider says so, or when no SMTP host is set.
func BuildMailConfig(cfg *config.FullConfig) Config {
	if cfg == nil {
		return Config{}
	}
	mc := Config{
		Enable: cfg.MailOptions.Enable,
		From:   cfg.MailOptions.From,
	}
	if cfg.MailOptions.SMTP != nil {
		mc.Host = cfg.MailOptions.SMTP.Options.Host
		mc.Port = cfg.MailOptions.SMTP.Options.Port
		mc.User = cfg.MailOptions.SMTP.User
		mc.Pass = cfg.MailOptions.SMTP.Pass
	}
	if cfg.MailOptions.Resend != nil && cfg.MailOptions.Resend.APIKey != "" {
		if strings.EqualFold(strings.TrimSpace(cfg.MailOptions.Provider), "resend") || mc.Host == "" {
			mc.UseResend = true
			mc.ResendKey = cfg.MailOptions.Resend.APIKey
		}
	}
	return mc
}
