package email

import (
	"github.com/google/wire"

	"castive/config"
)

// ProvideSender is a Wire provider function that creates the mail Sender.
func ProvideSender(cfg *config.Config) *Sender {
	return NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, cfg.BaseURL)
}

var Set = wire.NewSet(ProvideSender)
