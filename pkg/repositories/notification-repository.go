package repositories

import (
	"time"

	"github.com/google/uuid"
	"github.com/mkatta/pushgate/pkg/models"
	"github.com/mkatta/pushgate/pkg/types"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

func (r *NotificationRepository) GetByID(id, projectID uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.First(&notification, "id = ? AND project_id = ?", id, projectID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &notification, nil
}

// GetWithProject loads a notification together with its tenant. The
// dispatch worker re-reads state at job pickup time rather than
// trusting whatever was true when the job was enqueued.
func (r *NotificationRepository) GetWithProject(id uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.Preload("Project").First(&notification, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &notification, nil
}

func (r *NotificationRepository) List(projectID uuid.UUID, page, limit int) ([]models.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	var total int64
	tx := r.db.Model(&models.Notification{}).Where("project_id = ?", projectID)
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := tx.Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *NotificationRepository) UpdateStatus(id uuid.UUID, status string) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// MarkSent finalizes a dispatch: status, sent timestamp and both
// aggregate counters are written once, by the single updater that ran
// the fan-out.
func (r *NotificationRepository) MarkSent(id uuid.UUID, totalSent, totalFailed int, sentAt time.Time) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       models.StatusSent,
			"sent_at":      sentAt,
			"total_sent":   totalSent,
			"total_failed": totalFailed,
		}).Error
}

func (r *NotificationRepository) CreateLog(log *models.NotificationLog) error {
	return r.db.Create(log).Error
}

// MarkDelivered moves the pair's log row from sent to delivered and
// bumps the notification counter. Returns false when no sent row
// exists; the caller treats that as a silent no-op.
func (r *NotificationRepository) MarkDelivered(notificationID, subscriptionID uuid.UUID) (bool, error) {
	var log models.NotificationLog
	err := r.db.First(&log,
		"notification_id = ? AND subscription_id = ? AND status = ?",
		notificationID, subscriptionID, models.LogSent).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	err = r.db.Model(&log).
		Updates(map[string]any{"status": models.LogDelivered, "delivered_at": now}).Error
	if err != nil {
		return false, err
	}

	err = r.db.Model(&models.Notification{}).
		Where("id = ?", notificationID).
		UpdateColumn("total_delivered", gorm.Expr("total_delivered + 1")).Error
	return true, err
}

// MarkClicked transitions the pair's log row (whatever its prior
// state) to clicked. Same silent-ignore contract as MarkDelivered.
func (r *NotificationRepository) MarkClicked(notificationID, subscriptionID uuid.UUID) (bool, error) {
	var log models.NotificationLog
	err := r.db.First(&log,
		"notification_id = ? AND subscription_id = ?",
		notificationID, subscriptionID).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	err = r.db.Model(&log).
		Updates(map[string]any{"status": models.LogClicked, "clicked_at": now}).Error
	if err != nil {
		return false, err
	}

	err = r.db.Model(&models.Notification{}).
		Where("id = ?", notificationID).
		UpdateColumn("total_clicked", gorm.Expr("total_clicked + 1")).Error
	return true, err
}

func (r *NotificationRepository) ListLogs(notificationID uuid.UUID) ([]models.NotificationLog, error) {
	var logs []models.NotificationLog
	err := r.db.Where("notification_id = ?", notificationID).Find(&logs).Error
	return logs, err
}

type NotificationStats struct {
	models.Notification
	Delivered int64   `json:"totalDelivered"`
	Clicked   int64   `json:"totalClicked"`
	ClickRate float64 `json:"clickRate"`
}

func (r *NotificationRepository) Stats(id, projectID uuid.UUID) (*NotificationStats, error) {
	notification, err := r.GetByID(id, projectID)
	if err != nil {
		return nil, err
	}

	var delivered, clicked int64
	err = r.db.Model(&models.NotificationLog{}).
		Where("notification_id = ? AND status = ?", id, models.LogDelivered).
		Count(&delivered).Error
	if err != nil {
		return nil, err
	}
	err = r.db.Model(&models.NotificationLog{}).
		Where("notification_id = ? AND status = ?", id, models.LogClicked).
		Count(&clicked).Error
	if err != nil {
		return nil, err
	}

	stats := &NotificationStats{
		Notification: *notification,
		Delivered:    delivered,
		Clicked:      clicked,
	}
	if notification.TotalSent > 0 {
		stats.ClickRate = float64(clicked) / float64(notification.TotalSent) * 100
	}
	return stats, nil
}

func (r *NotificationRepository) Analytics(projectID uuid.UUID) (*types.Analytics, error) {
	var out types.Analytics

	err := r.db.Model(&models.Subscription{}).
		Where("project_id = ?", projectID).
		Count(&out.Subscriptions.Total).Error
	if err != nil {
		return nil, err
	}
	err = r.db.Model(&models.Subscription{}).
		Where("project_id = ? AND is_active = ?", projectID, true).
		Count(&out.Subscriptions.Active).Error
	if err != nil {
		return nil, err
	}

	err = r.db.Model(&models.Notification{}).
		Where("project_id = ?", projectID).
		Count(&out.Notifications.Total).Error
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	err = r.db.Model(&models.Notification{}).
		Where("project_id = ? AND created_at >= ?", projectID, cutoff).
		Count(&out.Notifications.Last30Days).Error
	if err != nil {
		return nil, err
	}

	var sums struct {
		Sent      int64
		Delivered int64
		Clicked   int64
		Failed    int64
	}
	err = r.db.Model(&models.Notification{}).
		Where("project_id = ?", projectID).
		Select("COALESCE(SUM(total_sent),0) as sent, COALESCE(SUM(total_delivered),0) as delivered, COALESCE(SUM(total_clicked),0) as clicked, COALESCE(SUM(total_failed),0) as failed").
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}
	out.Stats.TotalSent = sums.Sent
	out.Stats.TotalDelivered = sums.Delivered
	out.Stats.TotalClicked = sums.Clicked
	out.Stats.TotalFailed = sums.Failed
	return &out, nil
}
