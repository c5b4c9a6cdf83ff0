package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"presence.service/internal/ports/messaging"
)

// ErrRejected means the reporting API refused the event itself; sending it
// again will not help.
var ErrRejected = errors.New("reporting api rejected event")

// Client contract for the external reporting/payroll system.
type Client interface {
	RecordEvent(ctx context.Context, event messaging.AttendanceEvent) error
}

// HTTPClient API client using HTTP
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient new HTTPClient
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: baseURL,
	}
}

// RecordEvent posts the attendance event to the reporting API. The event id
// goes out as the idempotency key so redeliveries are harmless.
func (c *HTTPClient) RecordEvent(ctx context.Context, event messaging.AttendanceEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal reporting payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create reporting request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", event.EventID)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call reporting api: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("reporting api returned status %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	log.Ctx(ctx).Info().Str("employee_id", event.EmployeeID).Str("event_type", string(event.Type)).
		Msg("Recorded attendance event in reporting system")
	return nil
}
