package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"presence.service/internal/ports/messaging"
	"presence.service/internal/worker"
)

// Processor handles jobs from the reporting queue, which involves calling the
// reporting API. It uses a circuit breaker to avoid hammering that system if
// it's having issues.
type Processor struct {
	client Client
	cb     *gobreaker.CircuitBreaker
}

// BreakerSettings is the circuit breaker configuration used by NewProcessor.
func BreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "Reporting-API",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if failure rate is 50% or more after at least 10 requests
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		// A rejected event says nothing about the health of the API.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}
}

// NewProcessor creates a new processor for the reporting queue.
func NewProcessor(client Client, settings gobreaker.Settings) *Processor {
	return &Processor{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(settings),
	}
}

// Process forwards one attendance event through the circuit breaker and
// handles retries with exponential backoff.
func (p *Processor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.AttendanceEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal reporting event")
		return false, 0, err // Do not retry on malformed message
	}

	log.Ctx(ctx).Debug().Str("employee_id", event.EmployeeID).Str("event_type", string(event.Type)).
		Float64("hours_worked", event.HoursWorked).Msg("Forwarding attendance event")

	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.client.RecordEvent(ctx, event)
	})
	if err == nil {
		return false, 0, nil
	}

	if errors.Is(err, ErrRejected) {
		return false, 0, err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		log.Ctx(ctx).Warn().Msg("Circuit Breaker is OPEN; skipping Reporting API call")
	}
	return true, worker.Backoff(worker.ReceiveCount(msg)), err
}
