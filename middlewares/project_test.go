package middlewares

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mkatta/pushgate/pkg/cache"
	"github.com/mkatta/pushgate/pkg/database"
	"github.com/mkatta/pushgate/pkg/models"
	"github.com/mkatta/pushgate/pkg/repositories"
)

func projectTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *cache.ProjectCache) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.MigrateDB(db))

	mr := miniredis.RunT(t)
	projectCache := cache.NewProjectCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	repo := repositories.NewProjectRepository(db)

	router := gin.New()
	router.GET("/p/:apiKey/config", ProjectFromAPIKey(repo, projectCache, zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": Project(c).ID.String()})
	})
	return router, db, projectCache
}

func seedProject(t *testing.T, db *gorm.DB, active bool) *models.Project {
	t.Helper()
	user := &models.User{Email: uuid.NewString() + "@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	project := &models.Project{
		UserID:          user.ID,
		Name:            "p",
		APIKey:          uuid.NewString(),
		VapidPublicKey:  "pub",
		VapidPrivateKey: "priv",
		VapidEmail:      "mailto:ops@example.com",
		IsActive:        active,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func TestProjectFromAPIKeyResolvesAndCaches(t *testing.T) {
	router, db, projectCache := projectTestRouter(t)
	project := seedProject(t, db, true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p/"+project.APIKey+"/config", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), project.ID.String())

	cached, ok := projectCache.Get(httptest.NewRequest(http.MethodGet, "/", nil).Context(), project.APIKey)
	require.True(t, ok)
	require.Equal(t, project.ID, cached.ID)
}

func TestProjectFromAPIKeyUnknownIs404(t *testing.T) {
	router, _, _ := projectTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p/"+uuid.NewString()+"/config", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjectFromAPIKeyInactiveIs404(t *testing.T) {
	router, db, _ := projectTestRouter(t)
	project := seedProject(t, db, false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p/"+project.APIKey+"/config", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjectFromAPIKeyStaleCacheEntryDeniedWhenInactive(t *testing.T) {
	router, db, projectCache := projectTestRouter(t)
	project := seedProject(t, db, true)

	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	stale := *project
	stale.IsActive = false
	projectCache.Set(ctx, project.APIKey, &stale)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p/"+project.APIKey+"/config", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
