package core

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"presence.service/pkg/telemetry"
)

//go:generate mockgen -source=email_service.go -destination=mocks/mocks.go -package=mocks

// EmailService sends the attendance notifications.
type EmailService interface {
	SendAbsenceNotice(ctx context.Context, to, name, day string) error
	SendCheckOutSummary(ctx context.Context, to, name, day string, hours float64) error
}

// SESClient is the part of the SES API the email service uses.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESEmailService struct {
	client SESClient
	sender string
}

func NewSESEmailService(client SESClient, sender string) *SESEmailService {
	return &SESEmailService{client: client, sender: sender}
}

func (s *SESEmailService) SendAbsenceNotice(ctx context.Context, to, name, day string) error {
	body := fmt.Sprintf("Hello %s,\n\nNo check-in was recorded before the cutoff on %s, so the day has been marked absent.\n"+
		"Contact HR if this is a mistake.", greetingName(name), day)
	return s.send(ctx, "absence_notice", to, "Marked absent on "+day, body)
}

func (s *SESEmailService) SendCheckOutSummary(ctx context.Context, to, name, day string, hours float64) error {
	body := fmt.Sprintf("Hello %s,\n\nYou have successfully checked out on %s. Total hours worked: %.2f hours.",
		greetingName(name), day, hours)
	return s.send(ctx, "checkout_summary", to, "Work Shift Summary", body)
}

func (s *SESEmailService) send(ctx context.Context, kind, to, subject, body string) error {
	tracer := otel.Tracer("ses-email-service")
	ctx, span := tracer.Start(ctx, "send_email", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(attribute.String("app.emailKind", kind))
	if empID := telemetry.GetEmployeeIDFromContext(ctx); empID != "" {
		span.SetAttributes(attribute.String("app.employeeId", empID))
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		span.RecordError(err)
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	return nil
}

func greetingName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}
