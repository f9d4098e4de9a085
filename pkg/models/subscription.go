package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription is one browser push endpoint registered against a
// project. (project_id, endpoint) is the natural key: re-subscribing
// the same endpoint reactivates the existing row instead of inserting
// a duplicate.
type Subscription struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID      uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_project_endpoint" json:"projectId"`
	Endpoint       string     `gorm:"size:1024;not null;uniqueIndex:idx_project_endpoint" json:"endpoint"`
	P256dhKey      string     `gorm:"not null" json:"-"`
	AuthKey        string     `gorm:"not null" json:"-"`
	IsActive       bool       `gorm:"not null;index" json:"isActive"`
	SubscribedAt   time.Time  `gorm:"autoCreateTime" json:"subscribedAt"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt,omitempty"`
	LastSeenAt     *time.Time `json:"lastSeenAt,omitempty"`

	UserAgent      string `gorm:"size:512" json:"userAgent,omitempty"`
	BrowserName    string `gorm:"size:100" json:"browserName,omitempty"`
	BrowserVersion string `gorm:"size:50" json:"browserVersion,omitempty"`
	OSName         string `gorm:"size:100" json:"osName,omitempty"`
	OSVersion      string `gorm:"size:50" json:"osVersion,omitempty"`
	DeviceType     string `gorm:"size:50" json:"deviceType,omitempty"`
	Timezone       string `gorm:"size:100" json:"timezone,omitempty"`
	Language       string `gorm:"size:20" json:"language,omitempty"`
	IPAddress      string `gorm:"size:64" json:"-"`

	Project Project           `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Tags    []SubscriptionTag `gorm:"constraint:OnDelete:CASCADE" json:"tags,omitempty"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type SubscriptionTag struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	SubscriptionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subscription_tag_key" json:"-"`
	TagKey         string    `gorm:"size:100;not null;uniqueIndex:idx_subscription_tag_key" json:"key"`
	TagValue       string    `gorm:"size:255;not null" json:"value"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"-"`

	Subscription Subscription `gorm:"foreignKey:SubscriptionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (t *SubscriptionTag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
