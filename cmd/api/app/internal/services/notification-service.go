package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkatta/pushgate/pkg/models"
	"github.com/mkatta/pushgate/pkg/queue"
	"github.com/mkatta/pushgate/pkg/repositories"
	"github.com/mkatta/pushgate/pkg/types"
)

type NotificationService struct {
	repo     *repositories.NotificationRepository
	enqueuer queue.Enqueuer
}

func NewNotificationService(db *gorm.DB, enqueuer queue.Enqueuer) *NotificationService {
	return &NotificationService{
		repo:     repositories.NewNotificationRepository(db),
		enqueuer: enqueuer,
	}
}

// Send persists the notification and enqueues its dispatch job. A
// future schedule.sendAt delays the job by sendAt-now; anything in the
// past dispatches immediately. The job carries only the id, so the
// worker always fans out against current state.
func (s *NotificationService) Send(ctx context.Context, projectID uuid.UUID, req *types.NotificationRequest) (*models.Notification, error) {
	targetType := req.TargetType
	if targetType == "" {
		targetType = models.TargetAll
	}

	var criteria string
	if req.TargetCriteria != nil && !req.TargetCriteria.Empty() {
		raw, err := json.Marshal(req.TargetCriteria)
		if err != nil {
			return nil, err
		}
		criteria = string(raw)
	}

	var delay time.Duration
	status := models.StatusDraft
	var scheduledAt *time.Time
	if req.Schedule != nil {
		sendAt := req.Schedule.SendAt.UTC()
		scheduledAt = &sendAt
		if d := time.Until(sendAt); d > 0 {
			delay = d
			status = models.StatusScheduled
		}
	}

	notification := &models.Notification{
		ProjectID:      projectID,
		Title:          req.Title,
		Body:           req.Body,
		Icon:           req.Icon,
		Badge:          req.Badge,
		Image:          req.Image,
		URL:            req.URL,
		TargetType:     targetType,
		TargetCriteria: criteria,
		Status:         status,
		ScheduledAt:    scheduledAt,
	}
	if err := s.repo.Create(notification); err != nil {
		return nil, err
	}

	job := queue.Job{
		Type:           queue.JobSendNotification,
		NotificationID: notification.ID,
	}
	if err := s.enqueuer.Enqueue(ctx, job, queue.WithDelay(delay)); err != nil {
		return nil, err
	}
	return notification, nil
}

func (s *NotificationService) ListNotifications(projectID uuid.UUID, page, limit int) (types.Page[models.Notification], error) {
	notifications, total, err := s.repo.List(projectID, page, limit)
	if err != nil {
		return types.Page[models.Notification]{}, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	return types.NewPage(notifications, total, page, limit), nil
}

func (s *NotificationService) GetNotification(id, projectID uuid.UUID) (*models.Notification, error) {
	return s.repo.GetByID(id, projectID)
}

func (s *NotificationService) GetStats(id, projectID uuid.UUID) (*repositories.NotificationStats, error) {
	return s.repo.Stats(id, projectID)
}

func (s *NotificationService) GetAnalytics(projectID uuid.UUID) (*types.Analytics, error) {
	return s.repo.Analytics(projectID)
}

// HandleDeliveryEvent applies a service-worker callback. Events that
// match no log row are dropped on purpose: the worker may still be
// writing rows when the first delivered receipts arrive.
func (s *NotificationService) HandleDeliveryEvent(event *types.WebhookEvent) error {
	switch event.Status {
	case models.LogDelivered:
		_, err := s.repo.MarkDelivered(event.NotificationID, event.SubscriptionID)
		return err
	case models.LogClicked:
		_, err := s.repo.MarkClicked(event.NotificationID, event.SubscriptionID)
		return err
	}
	return nil
}
