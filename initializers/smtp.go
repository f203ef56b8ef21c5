package initializers

import (
	"approvals-backend/config"
	"approvals-backend/lib/smtp"
)

func InitSmtp(conf *config.Configuration) smtp.Provider {
	return smtp.NewSender(smtp.Params{
		User:       conf.Smtp.User,
		Password:   conf.Smtp.Password,
		Host:       conf.Smtp.Host,
		Port:       conf.Smtp.Port,
		TLSEnabled: *conf.Smtp.TLSEnabled,
		From:       conf.Smtp.From,
		Timeout:    conf.NotifyTimeout(),
	})
}
