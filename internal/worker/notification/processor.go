package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"

	"presence.service/internal/core"
	"presence.service/internal/ports/directory"
	"presence.service/internal/ports/messaging"
	"presence.service/internal/worker"
)

// Deduper remembers which events already produced an email. Redelivered
// messages are acknowledged without sending twice.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Remember(ctx context.Context, eventID string) error
}

type Processor struct {
	emailService core.EmailService
	directory    directory.Directory
	dedupe       Deduper
}

// NewProcessor sets up a new processor for the notification queue. dedupe
// may be nil.
func NewProcessor(emailService core.EmailService, dir directory.Directory, dedupe Deduper) *Processor {
	return &Processor{
		emailService: emailService,
		directory:    dir,
		dedupe:       dedupe,
	}
}

// Process is the main entry point for handling a message from the notification queue.
// It tries to send an email and will tell the worker to retry if something goes wrong.
func (p *Processor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.AttendanceEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal attendance event")
		return false, 0, err // Do not retry on malformed message
	}

	if !event.Type.Notifies() {
		log.Ctx(ctx).Debug().Str("event_type", string(event.Type)).Msg("Event needs no notification. Skipping.")
		return false, 0, nil
	}

	if p.dedupe != nil {
		seen, err := p.dedupe.Seen(ctx, event.EventID)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Dedupe lookup failed, sending anyway")
		} else if seen {
			log.Ctx(ctx).Info().Str("event_id", event.EventID).Msg("Email already sent. Skipping.")
			return false, 0, nil
		}
	}

	delay := worker.Backoff(worker.ReceiveCount(msg))

	emp, err := p.directory.FindByIDOrEmail(ctx, event.EmployeeID)
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		log.Ctx(ctx).Warn().Str("employee_id", event.EmployeeID).Msg("Employee no longer in directory. Skipping email.")
		return false, 0, nil
	}
	if err != nil {
		return true, delay, fmt.Errorf("failed to resolve recipient: %w", err)
	}

	switch event.Type {
	case messaging.EventMarkedAbsent:
		err = p.emailService.SendAbsenceNotice(ctx, emp.Email, emp.FullName, event.Day)
	case messaging.EventCheckedOut:
		err = p.emailService.SendCheckOutSummary(ctx, emp.Email, emp.FullName, event.Day, event.HoursWorked)
	}
	if err != nil {
		return true, delay, err
	}

	if p.dedupe != nil {
		if err := p.dedupe.Remember(ctx, event.EventID); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Failed to remember sent email")
		}
	}
	log.Ctx(ctx).Info().Str("event_type", string(event.Type)).Str("employee_id", emp.ID).Msg("Notification sent")
	return false, 0, nil
}
