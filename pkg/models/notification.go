package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification lifecycle statuses. Transitions are monotonic:
// draft/scheduled -> sending -> sent. A notification that reached
// sent is never requeued.
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusSending   = "sending"
	StatusSent      = "sent"
)

const (
	TargetAll        = "all"
	TargetSegment    = "segment"
	TargetIndividual = "individual"
)

type Notification struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"projectId"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	Body           string     `gorm:"size:1000;not null" json:"body"`
	Icon           string     `gorm:"size:1024" json:"icon,omitempty"`
	Badge          string     `gorm:"size:1024" json:"badge,omitempty"`
	Image          string     `gorm:"size:1024" json:"image,omitempty"`
	URL            string     `gorm:"size:1024" json:"url,omitempty"`
	TargetType     string     `gorm:"size:20;not null;default:'all'" json:"targetType"`
	TargetCriteria string     `gorm:"type:text" json:"targetCriteria,omitempty"`
	Status         string     `gorm:"size:20;not null;default:'draft';index" json:"status"`
	ScheduledAt    *time.Time `json:"scheduledAt,omitempty"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	TotalSent      int        `gorm:"not null;default:0" json:"totalSent"`
	TotalDelivered int        `gorm:"not null;default:0" json:"totalDelivered"`
	TotalClicked   int        `gorm:"not null;default:0" json:"totalClicked"`
	TotalFailed    int        `gorm:"not null;default:0" json:"totalFailed"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`

	Project Project           `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Logs    []NotificationLog `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// NotificationLog statuses. delivered and clicked are reported
// asynchronously by the client service worker and patch the row the
// dispatch worker wrote.
const (
	LogSent      = "sent"
	LogFailed    = "failed"
	LogDelivered = "delivered"
	LogClicked   = "clicked"
)

// NotificationLog records the outcome of one delivery attempt. At most
// one row exists per (notification, subscription) pair.
type NotificationLog struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	NotificationID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_notification_subscription" json:"notificationId"`
	SubscriptionID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_notification_subscription" json:"subscriptionId"`
	Status         string     `gorm:"size:20;not null;index" json:"status"`
	ErrorMessage   string     `gorm:"type:text" json:"errorMessage,omitempty"`
	SentAt         time.Time  `json:"sentAt"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
	ClickedAt      *time.Time `json:"clickedAt,omitempty"`

	Notification Notification `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE" json:"-"`
	Subscription Subscription `gorm:"foreignKey:SubscriptionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (l *NotificationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
