package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkatta/pushgate/pkg/cache"
	"github.com/mkatta/pushgate/pkg/models"
	"github.com/mkatta/pushgate/pkg/repositories"
	"github.com/mkatta/pushgate/pkg/utils"
	"github.com/mkatta/pushgate/pkg/webpush"
)

type ProjectService struct {
	repo     *repositories.ProjectRepository
	projects *cache.ProjectCache
}

func NewProjectService(db *gorm.DB, projects *cache.ProjectCache) *ProjectService {
	return &ProjectService{
		repo:     repositories.NewProjectRepository(db),
		projects: projects,
	}
}

// CreateProject provisions a tenant: a fresh API key plus a VAPID
// keypair that will sign every push the project ever sends.
func (s *ProjectService) CreateProject(userID uuid.UUID, name, domain string) (*models.Project, error) {
	publicKey, privateKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		UserID:          userID,
		Name:            name,
		Domain:          domain,
		APIKey:          uuid.NewString(),
		VapidPublicKey:  publicKey,
		VapidPrivateKey: privateKey,
		VapidEmail:      utils.GetEnvDefault("VAPID_CONTACT", "mailto:admin@pushgate.dev"),
		IsActive:        true,
	}
	if err := s.repo.Create(project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) ListProjects(userID uuid.UUID) ([]repositories.ProjectListing, error) {
	return s.repo.ListByUser(userID)
}

func (s *ProjectService) GetProject(id, userID uuid.UUID) (*models.Project, error) {
	return s.repo.GetByID(id, userID)
}

// UpdateProject applies the mutable fields and drops the cached
// API-key entry so isActive flips take effect immediately.
func (s *ProjectService) UpdateProject(ctx context.Context, id, userID uuid.UUID, name, domain *string, isActive *bool) (*models.Project, error) {
	updates := map[string]any{}
	if name != nil {
		updates["name"] = *name
	}
	if domain != nil {
		updates["domain"] = *domain
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}
	if len(updates) == 0 {
		return s.repo.GetByID(id, userID)
	}

	project, err := s.repo.Update(id, userID, updates)
	if err != nil {
		return nil, err
	}
	s.projects.Invalidate(ctx, project.APIKey)
	return project, nil
}

// RegenerateAPIKey swaps the key and invalidates the old one in the
// cache, so the previous key stops authorizing before its TTL runs
// out.
func (s *ProjectService) RegenerateAPIKey(ctx context.Context, id, userID uuid.UUID) (*models.Project, error) {
	old, err := s.repo.GetByID(id, userID)
	if err != nil {
		return nil, err
	}

	project, err := s.repo.UpdateAPIKey(id, userID, uuid.NewString())
	if err != nil {
		return nil, err
	}
	s.projects.Invalidate(ctx, old.APIKey)
	return project, nil
}

func (s *ProjectService) DeleteProject(ctx context.Context, id, userID uuid.UUID) error {
	project, err := s.repo.GetByID(id, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id, userID); err != nil {
		return err
	}
	s.projects.Invalidate(ctx, project.APIKey)
	return nil
}
