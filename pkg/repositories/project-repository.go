package repositories

import (
	"github.com/google/uuid"
	"github.com/mkatta/pushgate/pkg/models"
	"gorm.io/gorm"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

// GetByID is owner-scoped: a project id belonging to another user is
// indistinguishable from an unknown one.
func (r *ProjectRepository) GetByID(id, userID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.First(&project, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

func (r *ProjectRepository) GetByAPIKey(apiKey string) (*models.Project, error) {
	var project models.Project
	err := r.db.First(&project, "api_key = ?", apiKey).Error
	if err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

type ProjectListing struct {
	models.Project
	ActiveSubscriptions int64 `json:"activeSubscriptions"`
	TotalNotifications  int64 `json:"totalNotifications"`
}

func (r *ProjectRepository) ListByUser(userID uuid.UUID) ([]ProjectListing, error) {
	var projects []models.Project
	err := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&projects).Error
	if err != nil {
		return nil, err
	}

	listings := make([]ProjectListing, 0, len(projects))
	for _, p := range projects {
		var subs, notifs int64
		r.db.Model(&models.Subscription{}).
			Where("project_id = ? AND is_active = ?", p.ID, true).
			Count(&subs)
		r.db.Model(&models.Notification{}).
			Where("project_id = ?", p.ID).
			Count(&notifs)
		listings = append(listings, ProjectListing{
			Project:             p,
			ActiveSubscriptions: subs,
			TotalNotifications:  notifs,
		})
	}
	return listings, nil
}

func (r *ProjectRepository) Update(id, userID uuid.UUID, updates map[string]any) (*models.Project, error) {
	tx := r.db.Model(&models.Project{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(id, userID)
}

func (r *ProjectRepository) UpdateAPIKey(id, userID uuid.UUID, apiKey string) (*models.Project, error) {
	return r.Update(id, userID, map[string]any{"api_key": apiKey})
}

func (r *ProjectRepository) Delete(id, userID uuid.UUID) error {
	tx := r.db.Delete(&models.Project{}, "id = ? AND user_id = ?", id, userID)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
