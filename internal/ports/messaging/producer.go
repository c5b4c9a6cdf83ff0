package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Producer struct {
	sender               MessageSender
	reportingQueueURL    string
	notificationQueueURL string
}

func NewProducer(sender MessageSender, reportingQueueURL, notificationQueueURL string) *Producer {
	return &Producer{
		sender:               sender,
		reportingQueueURL:    reportingQueueURL,
		notificationQueueURL: notificationQueueURL,
	}
}

func NewSQSProducer(client SQSClient, reportingQueueURL, notificationQueueURL string) *Producer {
	return NewProducer(&SQSSender{client: client}, reportingQueueURL, notificationQueueURL)
}

// Publish sends every event to the reporting queue, and the ones a person
// should hear about to the notification queue as well. Both sends are
// attempted; their errors are joined.
func (p *Producer) Publish(ctx context.Context, event AttendanceEvent) error {
	err := p.PublishReporting(ctx, event)
	if event.Type.Notifies() {
		err = errors.Join(err, p.PublishNotification(ctx, event))
	}
	return err
}

func (p *Producer) PublishReporting(ctx context.Context, event AttendanceEvent) error {
	return p.publish(ctx, p.reportingQueueURL, event)
}

func (p *Producer) PublishNotification(ctx context.Context, event AttendanceEvent) error {
	return p.publish(ctx, p.notificationQueueURL, event)
}

func (p *Producer) publish(ctx context.Context, destination string, event AttendanceEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("app.employeeId", event.EmployeeID),
			attribute.String("app.eventType", string(event.Type)),
		)
	}

	if err := p.sender.SendMessage(ctx, destination, string(event.Type), b); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", event.Type, destination, err)
	}
	return nil
}
