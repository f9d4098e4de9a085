package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mkatta/pushgate/pkg/cache"
	"github.com/mkatta/pushgate/pkg/models"
	"github.com/mkatta/pushgate/pkg/repositories"
)

// ProjectFromAPIKey resolves the :apiKey path parameter to its project
// and stores it in the request context. Inactive and unknown keys both
// return 404 so callers cannot probe which keys exist.
func ProjectFromAPIKey(repo *repositories.ProjectRepository, projects *cache.ProjectCache, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.Param("apiKey")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}

		if project, ok := projects.Get(c.Request.Context(), apiKey); ok {
			if !project.IsActive {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "project not found"})
				return
			}
			c.Set("project", project)
			c.Next()
			return
		}

		project, err := repo.GetByAPIKey(apiKey)
		if err != nil {
			if err != repositories.ErrNotFound {
				log.Error("api key lookup failed", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		if !project.IsActive {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}

		projects.Set(c.Request.Context(), apiKey, project)
		c.Set("project", project)
		c.Next()
	}
}

// Project pulls the resolved project out of the gin context.
func Project(c *gin.Context) *models.Project {
	v, ok := c.Get("project")
	if !ok {
		return nil
	}
	project, _ := v.(*models.Project)
	return project
}
