package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/quotation-service/internal/jobs"
)

// listClient is the slice of redis commands the queue needs. *redis.Client
// satisfies it; tests substitute canned command results.
type listClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// RedisQueue is a durable Queue on a Redis list. Producers LPUSH, workers
// BRPOP, and dead-lettered envelopes land on the companion "<name>:dead" list
// byte-for-byte as they were enqueued.
type RedisQueue struct {
	client      listClient
	name        string
	deadName    string
	pollTimeout time.Duration
}

func NewRedisQueue(client listClient, name string, pollTimeout time.Duration) *RedisQueue {
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &RedisQueue{
		client:      client,
		name:        name,
		deadName:    name + ":dead",
		pollTimeout: pollTimeout,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, env jobs.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", env.ID, err)
	}
	if err := q.client.LPush(ctx, q.name, raw).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", env.ID, err)
	}
	return nil
}

// Dequeue blocks until an envelope arrives or ctx is done. BRPOP is issued in
// pollTimeout slices so worker shutdown is never stuck behind a long block.
// A popped message that does not decode is parked on the dead list verbatim
// and the loop moves on; a queued payload must never silently vanish.
func (q *RedisQueue) Dequeue(ctx context.Context) (jobs.Envelope, error) {
	for {
		if err := ctx.Err(); err != nil {
			return jobs.Envelope{}, err
		}
		res, err := q.client.BRPop(ctx, q.pollTimeout, q.name).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return jobs.Envelope{}, fmt.Errorf("dequeue from %s: %w", q.name, err)
		}
		// res[0] is the list name, res[1] the value
		var env jobs.Envelope
		if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
			if pushErr := q.client.LPush(ctx, q.deadName, res[1]).Err(); pushErr != nil {
				return jobs.Envelope{}, fmt.Errorf("park undecodable message from %s: %w", q.name, pushErr)
			}
			continue
		}
		return env, nil
	}
}

func (q *RedisQueue) Retry(ctx context.Context, env jobs.Envelope) error {
	env.Attempts++
	return q.Enqueue(ctx, env)
}

func (q *RedisQueue) DeadLetter(ctx context.Context, env jobs.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", env.ID, err)
	}
	if err := q.client.LPush(ctx, q.deadName, raw).Err(); err != nil {
		return fmt.Errorf("dead-letter %s: %w", env.ID, err)
	}
	return nil
}

// Len reports the number of envelopes waiting on the live list.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

// DeadLetterLen reports the size of the dead-letter list, for operators.
func (q *RedisQueue) DeadLetterLen(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.deadName).Result()
}
