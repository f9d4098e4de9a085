package queue

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/mkatta/pushgate/metrics"
)

// Consume pulls jobs off the dispatch topic and runs handler on each,
// processing up to concurrency jobs simultaneously. A handler error is
// retried with exponential backoff via the delayed set unless it is
// fatal or the job has exhausted its attempts; either of those routes
// the job to the dead-letter topic instead. Blocks until ctx is done.
func (q *Queue) Consume(ctx context.Context, consumer *Consumer, handler Handler, concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		default:
		}

		m, err := consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				wg.Wait()
				return
			}
			q.log.Error("failed to read job", zap.Error(err))
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(value []byte) {
			defer func() {
				<-sem
				wg.Done()
			}()
			q.process(ctx, value, handler)
		}(m.Value)
	}
}

func (q *Queue) process(ctx context.Context, value []byte, handler Handler) {
	var job Job
	if err := json.Unmarshal(value, &job); err != nil {
		q.log.Error("dropping malformed job", zap.ByteString("raw", value), zap.Error(err))
		return
	}
	if job.Attempt == 0 {
		job.Attempt = 1
	}

	err := handler(ctx, job)
	if err == nil {
		return
	}

	if IsFatal(err) {
		q.log.Error("job failed permanently",
			zap.String("job_type", job.Type),
			zap.String("notification_id", job.NotificationID.String()),
			zap.Error(err),
		)
		q.deadLetter(ctx, job, "fatal")
		return
	}

	if job.Attempt >= MaxAttempts {
		q.log.Error("job exhausted retries",
			zap.String("job_type", job.Type),
			zap.String("notification_id", job.NotificationID.String()),
			zap.Int("attempts", job.Attempt),
			zap.Error(err),
		)
		q.deadLetter(ctx, job, "retries_exhausted")
		return
	}

	backoff := BackoffFor(job.Attempt)
	q.log.Warn("job failed, will retry",
		zap.String("job_type", job.Type),
		zap.String("notification_id", job.NotificationID.String()),
		zap.Int("attempt", job.Attempt),
		zap.Duration("retry_in", backoff),
		zap.Error(err),
	)
	metrics.QueueRetriesTotal.WithLabelValues(job.Type).Inc()

	retry := job
	retry.Attempt++
	if err := q.Enqueue(ctx, retry, WithDelay(backoff)); err != nil {
		q.log.Error("failed to re-enqueue job", zap.Error(err))
	}
}

func (q *Queue) deadLetter(ctx context.Context, job Job, reason string) {
	metrics.QueueDLQTotal.WithLabelValues(job.Type, reason).Inc()
	payload, err := json.Marshal(job)
	if err != nil {
		q.log.Error("failed to marshal job for DLQ", zap.Error(err))
		return
	}
	if err := q.producer.Publish(ctx, TopicDispatchDLQ, job.NotificationID[:], payload); err != nil {
		q.log.Error("failed to publish job to DLQ", zap.Error(err))
	}
}
