package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/quotation-service/internal/jobs"
	"github.com/spec-kit/quotation-service/internal/observability"
	"github.com/spec-kit/quotation-service/internal/queue"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

const openSchema = `{"type": "object"}`

type dispatcherFixture struct {
	dispatcher *Dispatcher
	queue      *queue.MemoryQueue
	calls      *int
}

func newDispatcherFixture(t *testing.T, maxAttempts int, handlerErr func(attempt int) error) *dispatcherFixture {
	t.Helper()
	calls := 0
	registry, err := jobs.NewRegistry(map[jobs.Kind]jobs.Registration{
		jobs.KindQuotationQuoted: {
			SchemaJSON: openSchema,
			Handler: func(ctx context.Context, env jobs.Envelope) error {
				calls++
				return handlerErr(calls)
			},
		},
	})
	require.NoError(t, err)

	q := queue.NewMemoryQueue(16)
	metrics := observability.NewPipelineMetrics(prometheus.NewRegistry())
	return &dispatcherFixture{
		dispatcher: NewDispatcher(q, registry, metrics, zap.NewNop(), maxAttempts, 1),
		queue:      q,
		calls:      &calls,
	}
}

// drain pumps queued envelopes through process until the live queue is empty,
// mimicking the worker loop without goroutines.
func (f *dispatcherFixture) drain(ctx context.Context, t *testing.T) {
	t.Helper()
	logger := zap.NewNop()
	for f.queue.Len() > 0 {
		env, err := f.queue.Dequeue(ctx)
		require.NoError(t, err)
		f.dispatcher.process(ctx, logger, env)
	}
}

func enqueueEnvelope(ctx context.Context, t *testing.T, q *queue.MemoryQueue, kind jobs.Kind, payload string) jobs.Envelope {
	t.Helper()
	env := jobs.Envelope{
		ID:      "job-1",
		Kind:    kind,
		Channel: jobs.ChannelEmail,
		Payload: json.RawMessage(payload),
	}
	require.NoError(t, q.Enqueue(ctx, env))
	return env
}

func TestDispatcher_SuccessAfterTransientFailures(t *testing.T) {
	ctx := context.Background()
	fixture := newDispatcherFixture(t, 3, func(attempt int) error {
		if attempt < 3 {
			return util.NewTransientSendFailure("email", errors.New("smtp timeout"))
		}
		return nil
	})

	enqueueEnvelope(ctx, t, fixture.queue, jobs.KindQuotationQuoted, `{"hello":"world"}`)
	fixture.drain(ctx, t)

	assert.Equal(t, 3, *fixture.calls)
	assert.Empty(t, fixture.queue.DeadLetters())
}

func TestDispatcher_RetriesAreBounded(t *testing.T) {
	ctx := context.Background()
	fixture := newDispatcherFixture(t, 3, func(int) error {
		return util.NewTransientSendFailure("push", errors.New("gateway down"))
	})

	enqueueEnvelope(ctx, t, fixture.queue, jobs.KindQuotationQuoted, `{"hello":"world"}`)
	fixture.drain(ctx, t)

	// attempts 1 and 2 requeue, attempt 3 dead-letters
	assert.Equal(t, 3, *fixture.calls)
	dead := fixture.queue.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, 2, dead[0].Attempts)
}

func TestDispatcher_DeadLetterKeepsPayloadVerbatim(t *testing.T) {
	ctx := context.Background()
	fixture := newDispatcherFixture(t, 1, func(int) error {
		return errors.New("boom")
	})

	// field order and spacing must survive the trip untouched
	const raw = `{"zeta": 1,  "alpha": {"nested": true}}`
	enqueueEnvelope(ctx, t, fixture.queue, jobs.KindQuotationQuoted, raw)
	fixture.drain(ctx, t)

	dead := fixture.queue.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, raw, string(dead[0].Payload))
}

func TestDispatcher_SchemaViolationSkipsHandler(t *testing.T) {
	ctx := context.Background()
	calls := 0
	registry, err := jobs.NewRegistry(map[jobs.Kind]jobs.Registration{
		jobs.KindQuotationQuoted: {
			SchemaJSON: `{"type": "object", "required": ["quotation_id"]}`,
			Handler: func(ctx context.Context, env jobs.Envelope) error {
				calls++
				return nil
			},
		},
	})
	require.NoError(t, err)

	q := queue.NewMemoryQueue(16)
	metrics := observability.NewPipelineMetrics(prometheus.NewRegistry())
	d := NewDispatcher(q, registry, metrics, zap.NewNop(), 3, 1)

	env := enqueueEnvelope(ctx, t, q, jobs.KindQuotationQuoted, `{"unexpected": true}`)
	dequeued, err := q.Dequeue(ctx)
	require.NoError(t, err)
	d.process(ctx, zap.NewNop(), dequeued)

	assert.Zero(t, calls)
	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, env.ID, dead[0].ID)
	assert.Zero(t, dead[0].Attempts)
}

func TestDispatcher_UnknownKindDeadLetters(t *testing.T) {
	ctx := context.Background()
	registry, err := jobs.NewRegistry(map[jobs.Kind]jobs.Registration{
		jobs.KindQuotationQuoted: {SchemaJSON: openSchema, Handler: func(context.Context, jobs.Envelope) error { return nil }},
	})
	require.NoError(t, err)

	q := queue.NewMemoryQueue(16)
	metrics := observability.NewPipelineMetrics(prometheus.NewRegistry())
	d := NewDispatcher(q, registry, metrics, zap.NewNop(), 3, 1)

	enqueueEnvelope(ctx, t, q, jobs.KindEventReminder, `{}`)
	dequeued, err := q.Dequeue(ctx)
	require.NoError(t, err)
	d.process(ctx, zap.NewNop(), dequeued)

	require.Len(t, q.DeadLetters(), 1)
	assert.Zero(t, q.Len())
}

func TestDispatcher_PermanentHandlerErrorSkipsRetry(t *testing.T) {
	ctx := context.Background()
	fixture := newDispatcherFixture(t, 5, func(int) error {
		return util.NewSchemaViolation("QUOTATION_QUOTED", nil)
	})

	enqueueEnvelope(ctx, t, fixture.queue, jobs.KindQuotationQuoted, `{"ok": true}`)
	fixture.drain(ctx, t)

	assert.Equal(t, 1, *fixture.calls)
	require.Len(t, fixture.queue.DeadLetters(), 1)
}

// brokenQueue fails every dequeue with a non-cancellation error.
type brokenQueue struct {
	queue.Queue
	dequeues atomic.Int64
}

func (q *brokenQueue) Dequeue(ctx context.Context) (jobs.Envelope, error) {
	q.dequeues.Add(1)
	return jobs.Envelope{}, errors.New("connection refused")
}

func TestDispatcher_DequeueErrorsBackOff(t *testing.T) {
	q := &brokenQueue{}
	registry, err := jobs.NewRegistry(map[jobs.Kind]jobs.Registration{
		jobs.KindQuotationQuoted: {SchemaJSON: openSchema, Handler: func(context.Context, jobs.Envelope) error { return nil }},
	})
	require.NoError(t, err)

	metrics := observability.NewPipelineMetrics(prometheus.NewRegistry())
	d := NewDispatcher(q, registry, metrics, zap.NewNop(), 3, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	// with a 1s backoff the loop gets through at most a couple of dequeues
	// in this window; a hot spin would rack up thousands
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	assert.LessOrEqual(t, q.dequeues.Load(), int64(2))
}

func TestDispatcher_RunStopsOnContextCancel(t *testing.T) {
	fixture := newDispatcherFixture(t, 3, func(int) error { return nil })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		fixture.dispatcher.Run(ctx)
		close(done)
	}()

	require.NoError(t, fixture.queue.Enqueue(ctx, jobs.Envelope{
		ID:      "job-run",
		Kind:    jobs.KindQuotationQuoted,
		Payload: json.RawMessage(`{}`),
	}))

	cancel()
	<-done
}
