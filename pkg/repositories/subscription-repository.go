package repositories

import (
	"time"

	"github.com/google/uuid"
	"github.com/mkatta/pushgate/pkg/models"
	"github.com/mkatta/pushgate/pkg/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Subscribe upserts by (project, endpoint). A browser re-subscribing
// an endpoint we already know reactivates the existing row and
// refreshes its keys and metadata; this keeps the call idempotent.
func (r *SubscriptionRepository) Subscribe(sub *models.Subscription) (*models.Subscription, error) {
	var existing models.Subscription
	err := r.db.First(&existing, "project_id = ? AND endpoint = ?", sub.ProjectID, sub.Endpoint).Error

	switch err {
	case nil:
		now := time.Now().UTC()
		updates := map[string]any{
			"is_active":       true,
			"unsubscribed_at": nil,
			"p256dh_key":      sub.P256dhKey,
			"auth_key":        sub.AuthKey,
			"last_seen_at":    now,
			"user_agent":      sub.UserAgent,
			"browser_name":    sub.BrowserName,
			"browser_version": sub.BrowserVersion,
			"os_name":         sub.OSName,
			"os_version":      sub.OSVersion,
			"device_type":     sub.DeviceType,
			"timezone":        sub.Timezone,
			"language":        sub.Language,
			"ip_address":      sub.IPAddress,
		}
		if err := r.db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
		return &existing, nil

	case gorm.ErrRecordNotFound:
		if err := r.db.Create(sub).Error; err != nil {
			return nil, err
		}
		return sub, nil

	default:
		return nil, err
	}
}

// Unsubscribe soft-deletes every matching row. No match is a no-op,
// not an error.
func (r *SubscriptionRepository) Unsubscribe(projectID uuid.UUID, endpoint string) error {
	now := time.Now().UTC()
	return r.db.Model(&models.Subscription{}).
		Where("project_id = ? AND endpoint = ?", projectID, endpoint).
		Updates(map[string]any{"is_active": false, "unsubscribed_at": now}).Error
}

// Deactivate retires a single subscription, used when the push service
// reports the endpoint permanently gone.
func (r *SubscriptionRepository) Deactivate(id uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.Model(&models.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "unsubscribed_at": now}).Error
}

func (r *SubscriptionRepository) GetByID(id, projectID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Preload("Tags").First(&sub, "id = ? AND project_id = ?", id, projectID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (r *SubscriptionRepository) UpdateLastSeen(id, projectID uuid.UUID, lastSeen time.Time) error {
	tx := r.db.Model(&models.Subscription{}).
		Where("id = ? AND project_id = ?", id, projectID).
		Update("last_seen_at", lastSeen)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertTags writes each tag key independently; existing keys get
// their value replaced.
func (r *SubscriptionRepository) UpsertTags(subscriptionID uuid.UUID, tags map[string]string) error {
	for key, value := range tags {
		tag := models.SubscriptionTag{
			SubscriptionID: subscriptionID,
			TagKey:         key,
			TagValue:       value,
		}
		err := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subscription_id"}, {Name: "tag_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"tag_value"}),
		}).Create(&tag).Error
		if err != nil {
			return err
		}
	}
	return nil
}

type SubscriptionQuery struct {
	Page     int
	Limit    int
	IsActive *bool
	Search   string
}

func (r *SubscriptionRepository) Query(projectID uuid.UUID, q SubscriptionQuery) ([]models.Subscription, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 50
	}

	tx := r.db.Model(&models.Subscription{}).Where("project_id = ?", projectID)
	if q.IsActive != nil {
		tx = tx.Where("is_active = ?", *q.IsActive)
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		tx = tx.Where(
			r.db.Where("LOWER(browser_name) LIKE LOWER(?)", pattern).
				Or("LOWER(os_name) LIKE LOWER(?)", pattern).
				Or("LOWER(device_type) LIKE LOWER(?)", pattern),
		)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []models.Subscription
	err := tx.Preload("Tags").
		Order("subscribed_at desc").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&subs).Error
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *SubscriptionRepository) ListActive(projectID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("project_id = ? AND is_active = ?", projectID, true).Find(&subs).Error
	return subs, err
}

// ResolveTargets computes the concrete audience for segment and
// individual targeting. Only active subscriptions of the given project
// are ever considered; browser/OS/id filters are intersected, and tag
// pairs are OR'd against each other before intersecting with the rest
// ("match any of these tags").
func (r *SubscriptionRepository) ResolveTargets(projectID uuid.UUID, criteria types.TargetCriteria) ([]models.Subscription, error) {
	tx := r.db.Where("project_id = ? AND is_active = ?", projectID, true)

	if criteria.Browser != "" {
		tx = tx.Where("LOWER(browser_name) LIKE LOWER(?)", "%"+criteria.Browser+"%")
	}
	if criteria.OS != "" {
		tx = tx.Where("LOWER(os_name) LIKE LOWER(?)", "%"+criteria.OS+"%")
	}
	if len(criteria.SubscriptionIDs) > 0 {
		tx = tx.Where("id IN ?", criteria.SubscriptionIDs)
	}

	var subs []models.Subscription
	if err := tx.Find(&subs).Error; err != nil {
		return nil, err
	}

	if len(criteria.Tags) == 0 || len(subs) == 0 {
		return subs, nil
	}

	candidateIDs := make([]uuid.UUID, 0, len(subs))
	for _, s := range subs {
		candidateIDs = append(candidateIDs, s.ID)
	}

	var tagCond *gorm.DB
	for key, value := range criteria.Tags {
		if tagCond == nil {
			tagCond = r.db.Where("tag_key = ? AND tag_value = ?", key, value)
		} else {
			tagCond = tagCond.Or("tag_key = ? AND tag_value = ?", key, value)
		}
	}

	var matches []models.SubscriptionTag
	err := r.db.Where("subscription_id IN ?", candidateIDs).
		Where(tagCond).
		Distinct("subscription_id").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	matched := make(map[uuid.UUID]bool, len(matches))
	for _, m := range matches {
		matched[m.SubscriptionID] = true
	}

	filtered := subs[:0]
	for _, s := range subs {
		if matched[s.ID] {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}
