// Package notifications delivers alert notifications and alert metrics to
// their sinks: structured logs, an SQS queue for downstream channels, and
// CloudWatch.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"wardwatch/internal/alerts"
	"wardwatch/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AlertMessage is the queue payload consumed by downstream delivery workers
// (SMS, push, email).
type AlertMessage struct {
	MessageID string              `json:"message_id"`
	Severity  types.AlertSeverity `json:"severity"`
	Reason    alerts.Reason       `json:"reason"`
	Urgent    bool                `json:"urgent"`
	Alert     types.Alert         `json:"alert"`
	SentAt    time.Time           `json:"sent_at"`
}

// SQSNotifier publishes every notification to an SQS queue. Critical
// notifications carry an "urgent" message attribute so consumers can
// route them to the high-priority path without parsing the body.
type SQSNotifier struct {
	client   SQSSender
	queueURL string
	clock    types.Clock
	logger   types.Logger
}

var _ alerts.Notifier = (*SQSNotifier)(nil)

// NewSQSNotifier creates a notifier targeting queueURL.
func NewSQSNotifier(client SQSSender, queueURL string, clock types.Clock, logger types.Logger) *SQSNotifier {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &SQSNotifier{
		client:   client,
		queueURL: queueURL,
		clock:    clock,
		logger:   logger,
	}
}

// Notify serializes the notification and sends it to the queue.
func (p *SQSNotifier) Notify(ctx context.Context, n alerts.Notification) error {
	msg := AlertMessage{
		MessageID: uuid.New().String(),
		Severity:  n.Severity,
		Reason:    n.Reason,
		Urgent:    n.Critical(),
		Alert:     n.Alert,
		SentAt:    p.clock.Now(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("alert publisher: failed to marshal message: %w", err)
	}

	urgency := "routine"
	if msg.Urgent {
		urgency = "urgent"
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"urgency": {
				DataType:    aws.String("String"),
				StringValue: aws.String(urgency),
			},
			"disease": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(n.Alert.Disease)),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamNotifier,
			fmt.Sprintf("failed to send alert %s to %s", n.Alert.ID, p.queueURL), err)
	}

	p.logger.Info("alert notification published",
		"message_id", msg.MessageID,
		"alert_id", n.Alert.ID,
		"severity", n.Severity,
		"reason", n.Reason,
	)
	return nil
}
