package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkatta/pushgate/pkg/models"
	"github.com/mkatta/pushgate/pkg/repositories"
	"github.com/mkatta/pushgate/pkg/types"
	"github.com/mkatta/pushgate/pkg/useragent"
)

type SubscriptionService struct {
	repo *repositories.SubscriptionRepository
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{repo: repositories.NewSubscriptionRepository(db)}
}

// Subscribe registers a push endpoint. Browser metadata comes from the
// request body when the SDK supplied it, otherwise it is parsed from
// the User-Agent header.
func (s *SubscriptionService) Subscribe(projectID uuid.UUID, req *types.SubscribeRequest, userAgent, clientIP string) (*models.Subscription, error) {
	details := req.BrowserDetails
	if details == nil {
		details = useragent.Parse(userAgent)
	}

	sub := &models.Subscription{
		ProjectID:      projectID,
		Endpoint:       req.Endpoint,
		P256dhKey:      req.Keys.P256dh,
		AuthKey:        req.Keys.Auth,
		IsActive:       true,
		UserAgent:      details.UserAgent,
		BrowserName:    details.Browser.Name,
		BrowserVersion: details.Browser.Version,
		OSName:         details.OS.Name,
		OSVersion:      details.OS.Version,
		DeviceType:     details.DeviceType,
		IPAddress:      clientIP,
	}
	if req.Metadata != nil {
		sub.Timezone = req.Metadata.Timezone
		sub.Language = req.Metadata.Language
	}

	return s.repo.Subscribe(sub)
}

func (s *SubscriptionService) Unsubscribe(projectID uuid.UUID, endpoint string) error {
	return s.repo.Unsubscribe(projectID, endpoint)
}

// UpdateSubscription patches tags and the last-seen timestamp. Unknown
// subscription ids are NotFound so the SDK can re-subscribe.
func (s *SubscriptionService) UpdateSubscription(projectID, id uuid.UUID, req *types.UpdateSubscriptionRequest) (*models.Subscription, error) {
	if _, err := s.repo.GetByID(id, projectID); err != nil {
		return nil, err
	}

	if len(req.Tags) > 0 {
		if err := s.repo.UpsertTags(id, req.Tags); err != nil {
			return nil, err
		}
	}
	if req.LastSeen != nil {
		if err := s.repo.UpdateLastSeen(id, projectID, *req.LastSeen); err != nil {
			return nil, err
		}
	}

	return s.repo.GetByID(id, projectID)
}

func (s *SubscriptionService) QuerySubscriptions(projectID uuid.UUID, q repositories.SubscriptionQuery) (types.Page[models.Subscription], error) {
	subs, total, err := s.repo.Query(projectID, q)
	if err != nil {
		return types.Page[models.Subscription]{}, err
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 50
	}
	return types.NewPage(subs, total, q.Page, q.Limit), nil
}

func (s *SubscriptionService) GetSubscription(id, projectID uuid.UUID) (*models.Subscription, error) {
	return s.repo.GetByID(id, projectID)
}
