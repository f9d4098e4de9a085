// Package queue implements the durable job queue between the API and
// the dispatch worker. Ready jobs ride a Kafka topic; delayed and
// retrying jobs wait in a redis sorted set scored by due time, and a
// scheduler goroutine moves them onto the topic when due. Delivery is
// at-least-once.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mkatta/pushgate/metrics"
)

const (
	JobSendNotification = "send-notification"

	// Retry policy: up to 3 attempts per job, exponential backoff
	// starting at 2s and doubling each retry.
	MaxAttempts    = 3
	InitialBackoff = 2 * time.Second

	TopicDispatch    = "notification.dispatch"
	TopicDispatchDLQ = "notification.dispatch.dlq"

	delayedKey = "pushgate:queue:delayed"
)

// Job carries only the notification id, never the payload. The worker
// re-reads current state at pickup so a job enqueued hours ago still
// dispatches against the live subscription set.
type Job struct {
	Type           string    `json:"jobType"`
	NotificationID uuid.UUID `json:"notificationId"`
	Attempt        int       `json:"attempt"`
	EnqueuedAt     time.Time `json:"enqueuedAt"`
}

type Handler func(ctx context.Context, job Job) error

type EnqueueOptions struct {
	Delay time.Duration
}

type EnqueueOption func(*EnqueueOptions)

func WithDelay(d time.Duration) EnqueueOption {
	return func(o *EnqueueOptions) {
		if d > 0 {
			o.Delay = d
		}
	}
}

// Enqueuer is the producer half of the queue contract; the API server
// only ever sees this interface.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job, opts ...EnqueueOption) error
}

type fatalError struct {
	err error
}

func (e fatalError) Error() string { return e.err.Error() }
func (e fatalError) Unwrap() error { return e.err }

// Fatal marks a handler error as non-retryable: the job goes straight
// to the dead-letter topic instead of through the backoff cycle. Used
// for conditions that cannot self-heal within the retry window, such
// as a deactivated tenant.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fatalError{err: err}
}

func IsFatal(err error) bool {
	var fe fatalError
	return errors.As(err, &fe)
}

// BackoffFor returns the wait before re-running a job whose attempt
// number just failed: 2s after the first attempt, 4s after the second.
func BackoffFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return InitialBackoff << (attempt - 1)
}

// Publisher is the transport half the queue writes to. *Producer is the
// Kafka implementation.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Queue wires the Kafka transport and the redis delayed set together.
type Queue struct {
	producer Publisher
	rdb      *redis.Client
	log      *zap.Logger
}

func NewQueue(producer Publisher, rdb *redis.Client, log *zap.Logger) *Queue {
	return &Queue{producer: producer, rdb: rdb, log: log}
}

func (q *Queue) Enqueue(ctx context.Context, job Job, opts ...EnqueueOption) error {
	var options EnqueueOptions
	for _, opt := range opts {
		opt(&options)
	}

	if job.Type == "" {
		job.Type = JobSendNotification
	}
	if job.Attempt == 0 {
		job.Attempt = 1
	}
	job.EnqueuedAt = time.Now().UTC()

	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if options.Delay > 0 {
		due := time.Now().UTC().Add(options.Delay)
		return q.rdb.ZAdd(ctx, delayedKey, redis.Z{
			Score:  float64(due.UnixMilli()),
			Member: string(payload),
		}).Err()
	}

	return q.producer.Publish(ctx, TopicDispatch, job.NotificationID[:], payload)
}

// RunScheduler moves due jobs from the delayed set onto the dispatch
// topic. Publish happens before removal, so a crash between the two
// re-delivers rather than drops (at-least-once).
func (q *Queue) RunScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := q.moveDueJobs(ctx); err != nil && ctx.Err() == nil {
				q.log.Warn("delayed job sweep failed", zap.Error(err))
			}
		}
	}
}

func (q *Queue) moveDueJobs(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)
	members, err := q.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return err
	}

	for _, member := range members {
		var job Job
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			q.log.Error("dropping malformed delayed job", zap.Error(err))
			q.rdb.ZRem(ctx, delayedKey, member)
			continue
		}
		if err := q.producer.Publish(ctx, TopicDispatch, job.NotificationID[:], []byte(member)); err != nil {
			return err
		}
		if err := q.rdb.ZRem(ctx, delayedKey, member).Err(); err != nil {
			return err
		}
	}

	if depth, err := q.rdb.ZCard(ctx, delayedKey).Result(); err == nil {
		metrics.QueueDelayedDepth.Set(float64(depth))
	}
	return nil
}

// DelayedCount reports how many jobs are waiting in the delayed set.
func (q *Queue) DelayedCount(ctx context.Context) (int64, error) {
	return q.rdb.ZCard(ctx, delayedKey).Result()
}
