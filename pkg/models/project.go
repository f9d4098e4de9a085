package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is a tenant namespace. Every subscription and notification
// hangs off exactly one project, and the project's VAPID keypair signs
// all pushes sent on its behalf.
type Project struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Name            string    `gorm:"size:255;not null" json:"name"`
	Domain          string    `gorm:"size:255" json:"domain,omitempty"`
	APIKey          string    `gorm:"size:64;not null;uniqueIndex" json:"apiKey"`
	VapidPublicKey  string    `gorm:"not null" json:"vapidPublicKey"`
	VapidPrivateKey string    `gorm:"not null" json:"-"`
	VapidEmail      string    `gorm:"size:255;not null" json:"-"`
	IsActive        bool      `gorm:"not null" json:"isActive"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	User          User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Subscriptions []Subscription `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Notifications []Notification `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
