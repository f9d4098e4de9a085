package repositories

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mkatta/pushgate/pkg/models"
)

func TestGetByIDIsOwnerScoped(t *testing.T) {
	db := openTestDB(t)
	repo := NewProjectRepository(db)
	project := seedProject(t, db)

	_, err := repo.GetByID(project.ID, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	got, err := repo.GetByID(project.ID, project.UserID)
	require.NoError(t, err)
	require.Equal(t, project.ID, got.ID)
}

func TestUpdateAPIKeySwapsKey(t *testing.T) {
	db := openTestDB(t)
	repo := NewProjectRepository(db)
	project := seedProject(t, db)

	updated, err := repo.UpdateAPIKey(project.ID, project.UserID, "new-key")
	require.NoError(t, err)
	require.Equal(t, "new-key", updated.APIKey)

	_, err = repo.GetByAPIKey(project.APIKey)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := repo.GetByAPIKey("new-key")
	require.NoError(t, err)
	require.Equal(t, project.ID, got.ID)
}

func TestUpdateUnknownProjectReturnsNotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewProjectRepository(db)

	_, err := repo.Update(uuid.New(), uuid.New(), map[string]any{"name": "x"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListByUserCountsActiveSubscriptions(t *testing.T) {
	db := openTestDB(t)
	repo := NewProjectRepository(db)
	project := seedProject(t, db)

	seedSubscription(t, db, project.ID, "https://push.example.com/a", "Chrome", "Windows", true)
	seedSubscription(t, db, project.ID, "https://push.example.com/b", "Chrome", "Windows", false)
	seedNotification(t, db, project.ID, models.StatusSent)

	listings, err := repo.ListByUser(project.UserID)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.EqualValues(t, 1, listings[0].ActiveSubscriptions)
	require.EqualValues(t, 1, listings[0].TotalNotifications)
}
