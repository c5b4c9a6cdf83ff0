package messaging

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"presence.service/pkg/telemetry"
)

// EventTypeAttribute is the SQS message attribute carrying the event type.
const EventTypeAttribute = "EventType"

// SQSSender implements MessageSender for AWS SQS.
type SQSSender struct {
	client SQSClient
}

func (s *SQSSender) SendMessage(ctx context.Context, destination string, eventType string, body []byte) error {
	// Inject trace context into message attributes
	attributes := telemetry.InjectTraceContext(ctx)
	attributes[EventTypeAttribute] = types.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(eventType),
	}

	_, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(destination),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attributes,
	})
	return err
}
