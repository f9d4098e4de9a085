package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mkatta/pushgate/metrics"
	"github.com/mkatta/pushgate/pkg/models"
	"github.com/mkatta/pushgate/pkg/queue"
	"github.com/mkatta/pushgate/pkg/repositories"
	"github.com/mkatta/pushgate/pkg/types"
	"github.com/mkatta/pushgate/pkg/webpush"
)

// Dispatcher turns one queued job into a fan-out: it resolves the
// audience against current state, pushes to every endpoint, records a
// log row per endpoint and finalizes the notification's counters.
type Dispatcher struct {
	notifications *repositories.NotificationRepository
	subscriptions *repositories.SubscriptionRepository
	sender        webpush.Sender
	tracer        trace.Tracer
	log           *zap.Logger
	fanout        int
}

func NewDispatcher(
	notifications *repositories.NotificationRepository,
	subscriptions *repositories.SubscriptionRepository,
	sender webpush.Sender,
	tracer trace.Tracer,
	log *zap.Logger,
	fanout int,
) *Dispatcher {
	if fanout < 1 {
		fanout = 64
	}
	return &Dispatcher{
		notifications: notifications,
		subscriptions: subscriptions,
		sender:        sender,
		tracer:        tracer,
		log:           log,
		fanout:        fanout,
	}
}

// Handle processes a send-notification job. Endpoint failures never
// fail the job; only infrastructure errors (DB unreachable) are
// retryable. A missing notification or a deactivated project cannot
// heal on retry and is reported fatal.
func (d *Dispatcher) Handle(ctx context.Context, job queue.Job) error {
	jobCtx, span := d.tracer.Start(ctx, "dispatch-notification",
		trace.WithAttributes(attribute.String("notification.id", job.NotificationID.String())))
	defer span.End()

	timer := prometheus.NewTimer(metrics.DispatchJobDuration)
	defer timer.ObserveDuration()

	notification, err := d.notifications.GetWithProject(job.NotificationID)
	if err == repositories.ErrNotFound {
		span.SetStatus(codes.Error, "notification missing")
		metrics.DispatchJobsTotal.WithLabelValues("missing").Inc()
		return queue.Fatal(fmt.Errorf("notification %s not found", job.NotificationID))
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	if notification.Status == models.StatusSent {
		// at-least-once delivery means duplicates happen
		d.log.Info("notification already sent, skipping",
			zap.String("notification_id", notification.ID.String()))
		metrics.DispatchJobsTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	if !notification.Project.IsActive {
		span.SetStatus(codes.Error, "project inactive")
		metrics.DispatchJobsTotal.WithLabelValues("inactive_project").Inc()
		return queue.Fatal(fmt.Errorf("project %s is inactive", notification.ProjectID))
	}

	_, resolveSpan := d.tracer.Start(jobCtx, "resolve-targets")
	targets, err := d.resolveTargets(notification)
	resolveSpan.SetAttributes(attribute.Int("targets.count", len(targets)))
	resolveSpan.End()
	if err != nil {
		span.RecordError(err)
		return err
	}

	now := time.Now().UTC()
	if len(targets) == 0 {
		if err := d.notifications.MarkSent(notification.ID, 0, 0, now); err != nil {
			return err
		}
		d.log.Info("no matching subscriptions",
			zap.String("notification_id", notification.ID.String()))
		metrics.DispatchJobsTotal.WithLabelValues("empty_audience").Inc()
		return nil
	}

	if err := d.notifications.UpdateStatus(notification.ID, models.StatusSending); err != nil {
		return err
	}

	sent, failed := d.fanOut(jobCtx, notification, targets)

	if err := d.notifications.MarkSent(notification.ID, sent, failed, time.Now().UTC()); err != nil {
		return err
	}

	d.log.Info("notification dispatched",
		zap.String("notification_id", notification.ID.String()),
		zap.String("project_id", notification.ProjectID.String()),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)
	metrics.DispatchJobsTotal.WithLabelValues("completed").Inc()
	return nil
}

func (d *Dispatcher) resolveTargets(notification *models.Notification) ([]models.Subscription, error) {
	switch notification.TargetType {
	case models.TargetAll:
		return d.subscriptions.ListActive(notification.ProjectID)
	case models.TargetSegment, models.TargetIndividual:
		var criteria types.TargetCriteria
		if notification.TargetCriteria != "" {
			if err := json.Unmarshal([]byte(notification.TargetCriteria), &criteria); err != nil {
				return nil, queue.Fatal(fmt.Errorf("malformed target criteria: %w", err))
			}
		}
		return d.subscriptions.ResolveTargets(notification.ProjectID, criteria)
	default:
		// unknown target types resolve to nobody rather than everybody
		return nil, nil
	}
}

// fanOut pushes to every target with bounded concurrency and writes
// one log row per endpoint. Outcomes are isolated: a dead endpoint
// gets deactivated and counted failed while the rest proceed.
func (d *Dispatcher) fanOut(ctx context.Context, notification *models.Notification, targets []models.Subscription) (int, int) {
	identity := webpush.VAPIDIdentity{
		Subscriber: notification.Project.VapidEmail,
		PublicKey:  notification.Project.VapidPublicKey,
		PrivateKey: notification.Project.VapidPrivateKey,
	}
	payload := webpush.Payload{
		Title: notification.Title,
		Body:  notification.Body,
		Icon:  notification.Icon,
		Badge: notification.Badge,
		Image: notification.Image,
		URL:   notification.URL,
		ID:    notification.ID.String(),
	}

	_, span := d.tracer.Start(ctx, "fan-out",
		trace.WithAttributes(attribute.Int("targets.count", len(targets))))
	defer span.End()

	var sent, failed atomic.Int64
	sem := make(chan struct{}, d.fanout)
	var wg sync.WaitGroup

	for _, target := range targets {
		sem <- struct{}{}
		wg.Add(1)
		go func(sub models.Subscription) {
			defer func() {
				<-sem
				wg.Done()
			}()
			if d.sendOne(ctx, notification, identity, payload, sub) {
				sent.Add(1)
			} else {
				failed.Add(1)
			}
		}(target)
	}
	wg.Wait()

	return int(sent.Load()), int(failed.Load())
}

func (d *Dispatcher) sendOne(ctx context.Context, notification *models.Notification, identity webpush.VAPIDIdentity, payload webpush.Payload, sub models.Subscription) bool {
	start := time.Now()
	err := d.sender.Send(ctx, identity, webpush.Endpoint{
		URL:    sub.Endpoint,
		P256dh: sub.P256dhKey,
		Auth:   sub.AuthKey,
	}, payload)
	duration := time.Since(start).Seconds()

	logRow := &models.NotificationLog{
		NotificationID: notification.ID,
		SubscriptionID: sub.ID,
		SentAt:         time.Now().UTC(),
	}

	if err == nil {
		metrics.PushSendsTotal.WithLabelValues("sent").Inc()
		metrics.PushSendDuration.WithLabelValues("sent").Observe(duration)
		logRow.Status = models.LogSent
		if dbErr := d.notifications.CreateLog(logRow); dbErr != nil {
			d.log.Error("failed to write notification log",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(dbErr))
		}
		return true
	}

	metrics.PushSendsTotal.WithLabelValues("failed").Inc()
	metrics.PushSendDuration.WithLabelValues("failed").Observe(duration)

	var sendErr *webpush.SendError
	if errors.As(err, &sendErr) && sendErr.Gone() {
		// the push service says this endpoint no longer exists
		if dbErr := d.subscriptions.Deactivate(sub.ID); dbErr != nil {
			d.log.Error("failed to deactivate gone subscription",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(dbErr))
		} else {
			d.log.Info("subscription deactivated, endpoint gone",
				zap.String("subscription_id", sub.ID.String()))
		}
	} else {
		d.log.Warn("push send failed",
			zap.String("subscription_id", sub.ID.String()),
			zap.Error(err))
	}

	logRow.Status = models.LogFailed
	logRow.ErrorMessage = err.Error()
	if dbErr := d.notifications.CreateLog(logRow); dbErr != nil {
		d.log.Error("failed to write notification log",
			zap.String("subscription_id", sub.ID.String()),
			zap.Error(dbErr))
	}
	return false
}
