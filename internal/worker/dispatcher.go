package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/quotation-service/internal/jobs"
	"github.com/spec-kit/quotation-service/internal/observability"
	"github.com/spec-kit/quotation-service/internal/queue"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

// Dispatcher pulls envelopes off the queue and drives them through
// validate → handle → retry/dead-letter. Delivery is at-least-once; handlers
// must tolerate duplicates.
type Dispatcher struct {
	queue       queue.Queue
	registry    *jobs.Registry
	metrics     *observability.PipelineMetrics
	logger      *zap.Logger
	maxAttempts int
	concurrency int
}

func NewDispatcher(
	q queue.Queue,
	registry *jobs.Registry,
	metrics *observability.PipelineMetrics,
	logger *zap.Logger,
	maxAttempts, concurrency int,
) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Dispatcher{
		queue:       q,
		registry:    registry,
		metrics:     metrics,
		logger:      logger,
		maxAttempts: maxAttempts,
		concurrency: concurrency,
	}
}

// Run blocks until ctx is canceled and every worker goroutine has drained.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			d.loop(ctx, worker)
		}(i)
	}
	wg.Wait()
}

// dequeueBackoff keeps a broken queue connection from turning the worker
// loop into a busy spin.
const dequeueBackoff = time.Second

func (d *Dispatcher) loop(ctx context.Context, worker int) {
	logger := d.logger.With(zap.Int("worker", worker))
	logger.Info("worker started")
	for {
		env, err := d.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Info("worker stopped")
				return
			}
			logger.Error("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				logger.Info("worker stopped")
				return
			case <-time.After(dequeueBackoff):
			}
			continue
		}
		d.process(ctx, logger, env)
	}
}

// process runs one envelope to a terminal outcome for this delivery.
func (d *Dispatcher) process(ctx context.Context, logger *zap.Logger, env jobs.Envelope) {
	kind := string(env.Kind)

	// the schema gate runs before the handler is even resolved; a payload
	// that cannot validate is dead on arrival
	if err := d.registry.Validate(env); err != nil {
		logger.Warn("job rejected before handling",
			zap.String("job_id", env.ID),
			zap.String("kind", kind),
			zap.Error(err))
		d.deadLetter(ctx, logger, env)
		return
	}

	handler, err := d.registry.Handler(env.Kind)
	if err != nil {
		d.deadLetter(ctx, logger, env)
		return
	}

	if err := handler(ctx, env); err != nil {
		d.handleFailure(ctx, logger, env, err)
		return
	}
	d.metrics.Processed.WithLabelValues(kind).Inc()
}

func (d *Dispatcher) handleFailure(ctx context.Context, logger *zap.Logger, env jobs.Envelope, handlerErr error) {
	attempted := env.Attempts + 1
	if util.IsPermanent(handlerErr) || attempted >= d.maxAttempts {
		logger.Warn("job dead-lettered",
			zap.String("job_id", env.ID),
			zap.String("kind", string(env.Kind)),
			zap.Int("attempts", attempted),
			zap.Error(handlerErr))
		d.deadLetter(ctx, logger, env)
		return
	}

	logger.Info("job retry scheduled",
		zap.String("job_id", env.ID),
		zap.String("kind", string(env.Kind)),
		zap.Int("attempt", attempted),
		zap.Error(handlerErr))
	if err := d.queue.Retry(ctx, env); err != nil {
		logger.Error("retry enqueue failed, dead-lettering",
			zap.String("job_id", env.ID),
			zap.Error(err))
		d.deadLetter(ctx, logger, env)
		return
	}
	d.metrics.Retried.WithLabelValues(string(env.Kind)).Inc()
}

func (d *Dispatcher) deadLetter(ctx context.Context, logger *zap.Logger, env jobs.Envelope) {
	if err := d.queue.DeadLetter(ctx, env); err != nil {
		// last resort: the envelope is lost unless an operator replays it
		// from logs, so log it whole
		logger.Error("dead-letter write failed",
			zap.String("job_id", env.ID),
			zap.String("kind", string(env.Kind)),
			zap.ByteString("payload", env.Payload),
			zap.Error(err))
		return
	}
	d.metrics.DeadLettered.WithLabelValues(string(env.Kind)).Inc()
}
