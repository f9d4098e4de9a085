package types

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionKeys struct {
	P256dh string `json:"p256dh" binding:"required"`
	Auth   string `json:"auth" binding:"required"`
}

type BrowserDetails struct {
	UserAgent string `json:"userAgent,omitempty"`
	Browser   struct {
		Name    string `json:"name,omitempty"`
		Version string `json:"version,omitempty"`
	} `json:"browser,omitempty"`
	OS struct {
		Name    string `json:"name,omitempty"`
		Version string `json:"version,omitempty"`
	} `json:"os,omitempty"`
	DeviceType string `json:"deviceType,omitempty"`
}

type SubscriberMetadata struct {
	Timezone string `json:"timezone,omitempty"`
	Language string `json:"language,omitempty"`
}

type SubscribeRequest struct {
	Endpoint       string              `json:"endpoint" binding:"required,url"`
	Keys           SubscriptionKeys    `json:"keys" binding:"required"`
	BrowserDetails *BrowserDetails     `json:"browserDetails,omitempty"`
	Metadata       *SubscriberMetadata `json:"metadata,omitempty"`
}

type UpdateSubscriptionRequest struct {
	Tags     map[string]string `json:"tags,omitempty"`
	LastSeen *time.Time        `json:"lastSeen,omitempty"`
}

// TargetCriteria narrows a notification's audience. Browser and OS are
// case-insensitive substring matches, SubscriptionIDs is an explicit
// allow-list, and Tags match a subscription carrying ANY of the given
// key/value pairs. All present filters are intersected.
type TargetCriteria struct {
	Browser         string            `json:"browser,omitempty"`
	OS              string            `json:"os,omitempty"`
	SubscriptionIDs []uuid.UUID       `json:"subscriptionIds,omitempty"`
	Tags            map[string]string `json:"tags,omitempty"`
}

func (c *TargetCriteria) Empty() bool {
	return c == nil ||
		(c.Browser == "" && c.OS == "" && len(c.SubscriptionIDs) == 0 && len(c.Tags) == 0)
}

type Schedule struct {
	SendAt time.Time `json:"sendAt" binding:"required"`
}

type NotificationRequest struct {
	Title          string          `json:"title" binding:"required,min=1,max=255"`
	Body           string          `json:"body" binding:"required,min=1,max=1000"`
	Icon           string          `json:"icon,omitempty" binding:"omitempty,url"`
	Badge          string          `json:"badge,omitempty" binding:"omitempty,url"`
	Image          string          `json:"image,omitempty" binding:"omitempty,url"`
	URL            string          `json:"url,omitempty" binding:"omitempty,url"`
	TargetType     string          `json:"targetType,omitempty" binding:"omitempty,oneof=all segment individual"`
	TargetCriteria *TargetCriteria `json:"targetCriteria,omitempty"`
	Schedule       *Schedule       `json:"schedule,omitempty"`
}

// WebhookEvent is what the client-side service worker posts back after
// a push was shown or clicked.
type WebhookEvent struct {
	NotificationID uuid.UUID `json:"notificationId" binding:"required"`
	SubscriptionID uuid.UUID `json:"subscriptionId" binding:"required"`
	Status         string    `json:"status" binding:"required,oneof=delivered clicked"`
}
