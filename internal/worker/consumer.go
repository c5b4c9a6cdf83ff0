package worker

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"

	"presence.service/pkg/logger"
	"presence.service/pkg/metrics"
	"presence.service/pkg/telemetry"
)

type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// Processor is a generic interface for any type that can process a message from SQS.
// This lets us reuse the main worker logic for different kinds of jobs.
type Processor interface {
	Process(ctx context.Context, msg types.Message) (shouldRetry bool, retryDelay int32, err error)
}

// Worker is our generic SQS message consumer. It polls a queue and passes
// messages off to a Processor.
type Worker struct {
	client    SQSClient
	queueURL  string
	processor Processor // The logic to process a single message
	metrics   *metrics.Worker
	// Concurrency controls how many messages can be processed at the same time.
	Concurrency int
	// WaitTimeSeconds is the long-poll duration of each receive call.
	WaitTimeSeconds int32
}

// NewWorker creates a new SQS worker, ready to be started. m may be nil.
func NewWorker(client SQSClient, url string, proc Processor, concurrency int, m *metrics.Worker) *Worker {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Worker{
		client:          client,
		queueURL:        url,
		processor:       proc,
		metrics:         m,
		Concurrency:     concurrency,
		WaitTimeSeconds: 20,
	}
}

// Start kicks off the worker's main loop for polling the SQS queue.
// It returns once the provided context is canceled and in-flight messages
// are finished.
func (w *Worker) Start(ctx context.Context) {
	log.Info().Int("concurrency", w.Concurrency).Str("queue", w.queueURL).Msg("SQS Worker started. Polling for messages...")

	messagesCh := make(chan types.Message, w.Concurrency)

	var wg sync.WaitGroup
	for i := 0; i < w.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processMessages(ctx, messagesCh)
		}()
	}

	w.pollMessages(ctx, messagesCh)
	wg.Wait()
	log.Info().Msg("SQS Worker stopped")
}

// pollMessages is the poller loop that fetches messages from SQS and sends them to a channel.
func (w *Worker) pollMessages(ctx context.Context, messagesCh chan<- types.Message) {
	defer close(messagesCh) // Close channel to signal processors to stop

	maxMessages := int32(min(w.Concurrency, 10)) // SQS caps a receive at 10
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Poller shutting down...")
			return
		default:
		}

		output, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              &w.queueURL,
			MaxNumberOfMessages:   maxMessages,
			WaitTimeSeconds:       w.WaitTimeSeconds,
			MessageAttributeNames: []string{"All"}, // Request attributes to get trace context
			MessageSystemAttributeNames: []types.MessageSystemAttributeName{
				types.MessageSystemAttributeNameApproximateReceiveCount,
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Msg("Error receiving messages")
			continue
		}
		if len(output.Messages) > 0 {
			log.Debug().Int("count", len(output.Messages)).Msg("Received messages")
		}
		for _, msg := range output.Messages {
			select {
			case messagesCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// processMessages runs in a goroutine, listening for messages on a channel and processing them.
func (w *Worker) processMessages(ctx context.Context, messagesCh <-chan types.Message) {
	for msg := range messagesCh {
		w.handleSingleMessage(ctx, msg)
	}
}

// handleSingleMessage calls the processor and then decides whether to delete
// the message or change its visibility for a retry.
func (w *Worker) handleSingleMessage(ctx context.Context, msg types.Message) {
	ctx, span := telemetry.StartSpanFromSQSMessage(ctx, msg)
	defer span.End()

	ctx = logger.EnrichContextWithLogger(ctx)

	shouldRetry, retryDelay, err := w.processor.Process(ctx, msg)

	if err != nil && shouldRetry {
		log.Ctx(ctx).Warn().Err(err).Int32("retry_delay", retryDelay).Msg("Processing failed, will retry")
		w.count("retried")

		if _, visErr := w.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          &w.queueURL,
			ReceiptHandle:     msg.ReceiptHandle,
			VisibilityTimeout: retryDelay,
		}); visErr != nil {
			log.Ctx(ctx).Error().Err(visErr).Msg("Failed to change message visibility")
		}
		return
	}

	if err != nil {
		// An unrecoverable error occurred (e.g., bad message format). The
		// message stays on the queue until its redrive policy moves it.
		log.Ctx(ctx).Error().Err(err).Msg("Unrecoverable error processing message, will not retry")
		w.count("failed")
		return
	}

	// Only delete on total success
	if _, delErr := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &w.queueURL,
		ReceiptHandle: msg.ReceiptHandle,
	}); delErr != nil {
		log.Ctx(ctx).Error().Err(delErr).Msg("Failed to delete processed message")
	}
	w.count("processed")
}

func (w *Worker) count(outcome string) {
	if w.metrics != nil {
		w.metrics.Processed.WithLabelValues(outcome).Inc()
	}
}

// ReceiveCount returns how many times SQS has delivered msg, 1 when the
// attribute is missing.
func ReceiveCount(msg types.Message) int {
	raw, ok := msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Backoff determines how long to wait before retrying a failed job. It
// doubles from 10 seconds with each attempt and caps at one hour.
func Backoff(attempt int) int32 {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 9 { // 10 * 2^9 already exceeds the cap
		return 3600
	}
	return int32(min(10<<attempt, 3600))
}
