package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/hashicorp/go-multierror"

	"github.com/wolfman30/sitegen-supportchat/internal/notify"
	"github.com/wolfman30/sitegen-supportchat/pkg/logging"
)

// Channel delivers a lead notification to one destination.
type Channel interface {
	Deliver(ctx context.Context, n Notification) error
}

// ChannelFunc adapts a function to Channel.
type ChannelFunc func(ctx context.Context, n Notification) error

func (f ChannelFunc) Deliver(ctx context.Context, n Notification) error { return f(ctx, n) }

// EmailChannel emails the notification to every recipient.
type EmailChannel struct {
	sender     notify.EmailSender
	recipients []string
}

func NewEmailChannel(sender notify.EmailSender, recipients []string) *EmailChannel {
	return &EmailChannel{sender: sender, recipients: recipients}
}

func (c *EmailChannel) Deliver(ctx context.Context, n Notification) error {
	var result *multierror.Error
	for _, to := range c.recipients {
		err := c.sender.Send(ctx, notify.EmailMessage{
			To:      to,
			ReplyTo: replyAddress(n.Lead.Contact),
			Subject: n.Subject,
			Body:    n.Body,
			Tags:    []string{"support-lead", "lang-" + n.Lead.Language},
		})
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("leads: email %s: %w", to, err))
		}
	}
	return result.ErrorOrNil()
}

// replyAddress returns contact when it is a bare email address, so the
// operator can answer the visitor directly. Phone numbers yield "".
func replyAddress(contact string) string {
	addr, err := mail.ParseAddress(contact)
	if err != nil || addr.Address != contact {
		return ""
	}
	return addr.Address
}

type sqsSendAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// QueueChannel publishes the notification as JSON to an SQS queue for a CRM
// consumer.
type QueueChannel struct {
	api      sqsSendAPI
	queueURL string
}

func NewQueueChannel(api sqsSendAPI, queueURL string) *QueueChannel {
	return &QueueChannel{api: api, queueURL: queueURL}
}

func (c *QueueChannel) Deliver(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("leads: marshal queue message: %w", err)
	}
	_, err = c.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"language": {DataType: aws.String("String"), StringValue: aws.String(n.Lead.Language)},
			"lead_id":  {DataType: aws.String("String"), StringValue: aws.String(n.Lead.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("leads: sqs send: %w", err)
	}
	return nil
}

// StoreChannel persists the lead so it shows up in the admin listing.
type StoreChannel struct {
	store Store
}

func NewStoreChannel(store Store) *StoreChannel {
	return &StoreChannel{store: store}
}

func (c *StoreChannel) Deliver(ctx context.Context, n Notification) error {
	lead := n.Lead
	return c.store.Create(ctx, &lead)
}

// LogChannel writes the lead to the structured log.
type LogChannel struct {
	logger *logging.Logger
}

func NewLogChannel(logger *logging.Logger) *LogChannel {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Deliver(ctx context.Context, n Notification) error {
	c.logger.Info("lead received",
		"lead_id", n.Lead.ID,
		"session_id", n.Lead.SessionID,
		"language", n.Lead.Language,
		"subject", n.Subject,
	)
	return nil
}

// Fanout delivers to every channel and reports all failures together. A
// failing channel does not stop the others.
type Fanout []Channel

func (f Fanout) Deliver(ctx context.Context, n Notification) error {
	var result *multierror.Error
	for _, ch := range f {
		if err := ch.Deliver(ctx, n); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
