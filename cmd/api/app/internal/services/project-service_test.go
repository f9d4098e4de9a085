package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mkatta/pushgate/pkg/cache"
	"github.com/mkatta/pushgate/pkg/models"
	"github.com/mkatta/pushgate/pkg/repositories"
)

func newProjectService(t *testing.T) (*ProjectService, *cache.ProjectCache, *repositories.ProjectRepository, uuid.UUID) {
	t.Helper()
	db := openTestDB(t)

	user := &models.User{Email: uuid.NewString() + "@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	mr := miniredis.RunT(t)
	projectCache := cache.NewProjectCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	return NewProjectService(db, projectCache), projectCache, repositories.NewProjectRepository(db), user.ID
}

func TestCreateProjectGeneratesKeyMaterial(t *testing.T) {
	svc, _, _, userID := newProjectService(t)

	project, err := svc.CreateProject(userID, "my site", "example.com")
	require.NoError(t, err)

	require.NotEmpty(t, project.VapidPublicKey)
	require.NotEmpty(t, project.VapidPrivateKey)
	require.NotEqual(t, project.VapidPublicKey, project.VapidPrivateKey)
	_, err = uuid.Parse(project.APIKey)
	require.NoError(t, err)
	require.True(t, project.IsActive)
}

func TestRegenerateAPIKeyInvalidatesOldKey(t *testing.T) {
	svc, projectCache, repo, userID := newProjectService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(userID, "my site", "")
	require.NoError(t, err)
	oldKey := project.APIKey

	projectCache.Set(ctx, oldKey, project)
	_, cached := projectCache.Get(ctx, oldKey)
	require.True(t, cached)

	updated, err := svc.RegenerateAPIKey(ctx, project.ID, userID)
	require.NoError(t, err)
	require.NotEqual(t, oldKey, updated.APIKey)

	_, cached = projectCache.Get(ctx, oldKey)
	require.False(t, cached)

	_, err = repo.GetByAPIKey(oldKey)
	require.ErrorIs(t, err, repositories.ErrNotFound)

	got, err := repo.GetByAPIKey(updated.APIKey)
	require.NoError(t, err)
	require.Equal(t, project.ID, got.ID)
}

func TestUpdateProjectInvalidatesCache(t *testing.T) {
	svc, projectCache, _, userID := newProjectService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(userID, "my site", "")
	require.NoError(t, err)
	projectCache.Set(ctx, project.APIKey, project)

	inactive := false
	updated, err := svc.UpdateProject(ctx, project.ID, userID, nil, nil, &inactive)
	require.NoError(t, err)
	require.False(t, updated.IsActive)

	_, cached := projectCache.Get(ctx, project.APIKey)
	require.False(t, cached)
}

func TestDeleteProjectIsOwnerScoped(t *testing.T) {
	svc, _, _, userID := newProjectService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(userID, "my site", "")
	require.NoError(t, err)

	err = svc.DeleteProject(ctx, project.ID, uuid.New())
	require.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, svc.DeleteProject(ctx, project.ID, userID))
	_, err = svc.GetProject(project.ID, userID)
	require.ErrorIs(t, err, repositories.ErrNotFound)
}
