package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/sitegen-supportchat/internal/config"
	"github.com/wolfman30/sitegen-supportchat/internal/leads"
	"github.com/wolfman30/sitegen-supportchat/internal/notify"
	"github.com/wolfman30/sitegen-supportchat/pkg/logging"
)

// BuildEmailSender picks SendGrid when an API key is set, then SES when a
// sender address is set, and returns nil otherwise.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if strings.TrimSpace(cfg.SendGridAPIKey) != "" {
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	}
	if strings.TrimSpace(cfg.SESFromEmail) != "" {
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	}
	return nil
}

// BuildLeadChannel assembles every configured lead destination. The log
// channel is always present so a submission is never silently dropped.
func BuildLeadChannel(cfg *appconfig.Config, awsCfg aws.Config, store leads.Store, email notify.EmailSender, logger *logging.Logger) (leads.Channel, []string) {
	if logger == nil {
		logger = logging.Default()
	}
	channels := leads.Fanout{leads.NewLogChannel(logger)}
	names := []string{"log"}

	if store != nil {
		channels = append(channels, leads.NewStoreChannel(store))
		names = append(names, "store")
	}
	if email != nil && len(cfg.LeadEmailRecipients) > 0 {
		channels = append(channels, leads.NewEmailChannel(email, cfg.LeadEmailRecipients))
		names = append(names, "email")
	}
	if strings.TrimSpace(cfg.LeadQueueURL) != "" {
		channels = append(channels, leads.NewQueueChannel(sqs.NewFromConfig(awsCfg), cfg.LeadQueueURL))
		names = append(names, "queue")
	}
	return channels, names
}
