package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence.service/pkg/metrics"
)

// fakeSQS serves a fixed batch once, then blocks like an empty long poll.
type fakeSQS struct {
	mu         sync.Mutex
	batch      []types.Message
	served     bool
	deleted    []string
	visibility map[string]int32
	done       chan struct{}
	expect     int
}

func newFakeSQS(expect int, msgs ...types.Message) *fakeSQS {
	return &fakeSQS{batch: msgs, visibility: map[string]int32{}, done: make(chan struct{}), expect: expect}
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	if !f.served {
		f.served = true
		f.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: f.batch}, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	f.settle()
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(_ context.Context, in *sqs.ChangeMessageVisibilityInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visibility[aws.ToString(in.ReceiptHandle)] = in.VisibilityTimeout
	f.settle()
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func (f *fakeSQS) settle() {
	f.expect--
	if f.expect == 0 {
		close(f.done)
	}
}

type outcome struct {
	retry bool
	delay int32
	err   error
}

type scriptedProcessor struct {
	mu       sync.Mutex
	outcomes map[string]outcome
	seen     []string
}

func (p *scriptedProcessor) Process(_ context.Context, msg types.Message) (bool, int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := aws.ToString(msg.MessageId)
	p.seen = append(p.seen, id)
	o := p.outcomes[id]
	return o.retry, o.delay, o.err
}

func message(id string) types.Message {
	return types.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("rh-" + id),
		Body:          aws.String(`{"employeeId":"emp-1"}`),
	}
}

func TestWorkerSettlesEachMessage(t *testing.T) {
	client := newFakeSQS(2, message("ok"), message("retry"), message("bad"))
	proc := &scriptedProcessor{outcomes: map[string]outcome{
		"retry": {retry: true, delay: 40, err: errors.New("downstream unavailable")},
		"bad":   {err: errors.New("malformed")},
	}}
	m := metrics.NewWorker(prometheus.NewRegistry(), "test")
	w := NewWorker(client, "http://localstack:4566/000000000000/test", proc, 3, m)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(stopped)
	}()

	select {
	case <-client.done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not settle messages")
	}
	// The unrecoverable message is neither deleted nor retried; give it a
	// moment to be processed before stopping.
	require.Eventually(t, func() bool {
		proc.mu.Lock()
		defer proc.mu.Unlock()
		return len(proc.seen) == 3
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, []string{"rh-ok"}, client.deleted)
	assert.Equal(t, map[string]int32{"rh-retry": 40}, client.visibility)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Processed.WithLabelValues("processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Processed.WithLabelValues("retried")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Processed.WithLabelValues("failed")))
}

func TestReceiveCount(t *testing.T) {
	msg := types.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}
	assert.Equal(t, 3, ReceiveCount(msg))
	assert.Equal(t, 1, ReceiveCount(types.Message{}))
	assert.Equal(t, 1, ReceiveCount(types.Message{Attributes: map[string]string{"ApproximateReceiveCount": "x"}}))
}

func TestBackoff(t *testing.T) {
	tests := map[int]int32{0: 10, 1: 20, 2: 40, 5: 320, 8: 2560, 9: 3600, 40: 3600, -1: 10}
	for attempt, want := range tests {
		assert.Equal(t, want, Backoff(attempt), "attempt %d", attempt)
	}
}
