package queue

import (
	"context"
	"sync"

	"github.com/spec-kit/quotation-service/internal/jobs"
)

// Enqueuer is the producer-side view of the queue. Services depend on this
// narrow interface so they never see dequeue or dead-letter mechanics.
type Enqueuer interface {
	Enqueue(ctx context.Context, env jobs.Envelope) error
}

// Queue is the full pipeline contract. Retry re-enqueues with the attempt
// counter bumped; DeadLetter parks the envelope verbatim.
type Queue interface {
	Enqueuer
	// Dequeue blocks until an envelope is available or ctx is done.
	Dequeue(ctx context.Context) (jobs.Envelope, error)
	Retry(ctx context.Context, env jobs.Envelope) error
	DeadLetter(ctx context.Context, env jobs.Envelope) error
}

// MemoryQueue is an in-process Queue for tests and local development.
type MemoryQueue struct {
	mu   sync.Mutex
	ch   chan jobs.Envelope
	dead []jobs.Envelope
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &MemoryQueue{ch: make(chan jobs.Envelope, capacity)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, env jobs.Envelope) error {
	select {
	case q.ch <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (jobs.Envelope, error) {
	select {
	case env := <-q.ch:
		return env, nil
	case <-ctx.Done():
		return jobs.Envelope{}, ctx.Err()
	}
}

func (q *MemoryQueue) Retry(ctx context.Context, env jobs.Envelope) error {
	env.Attempts++
	return q.Enqueue(ctx, env)
}

func (q *MemoryQueue) DeadLetter(ctx context.Context, env jobs.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, env)
	return nil
}

// DeadLetters returns a snapshot of the dead-letter list.
func (q *MemoryQueue) DeadLetters() []jobs.Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]jobs.Envelope, len(q.dead))
	copy(out, q.dead)
	return out
}

// Len reports the number of envelopes waiting in the live queue.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}
