package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkatta/pushgate/cmd/api/app/internal/services"
	"github.com/mkatta/pushgate/middlewares"
	"github.com/mkatta/pushgate/pkg/cache"
	"github.com/mkatta/pushgate/pkg/repositories"
	"github.com/mkatta/pushgate/pkg/types"
)

type ProjectHandler struct {
	service *services.ProjectService
}

func NewProjectHandler(db *gorm.DB, projects *cache.ProjectCache) *ProjectHandler {
	return &ProjectHandler{service: services.NewProjectService(db, projects)}
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req struct {
		Name   string `json:"name" binding:"required,min=1,max=255"`
		Domain string `json:"domain" binding:"omitempty,max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.service.CreateProject(middlewares.UserID(c), req.Name, req.Domain)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.service.ListProjects(middlewares.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	project, err := h.service.GetProject(id, middlewares.UserID(c))
	if err == repositories.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req struct {
		Name     *string `json:"name" binding:"omitempty,min=1,max=255"`
		Domain   *string `json:"domain" binding:"omitempty,max=255"`
		IsActive *bool   `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.service.UpdateProject(c.Request.Context(), id, middlewares.UserID(c), req.Name, req.Domain, req.IsActive)
	if err == repositories.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) RegenerateAPIKey(c *gin.Context) {
	id, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	project, err := h.service.RegenerateAPIKey(c.Request.Context(), id, middlewares.UserID(c))
	if err == repositories.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	err = h.service.DeleteProject(c.Request.Context(), id, middlewares.UserID(c))
	if err == repositories.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// PublicConfig serves what the embedded SDK needs to call
// pushManager.subscribe: the VAPID public key and nothing secret.
func (h *ProjectHandler) PublicConfig(c *gin.Context) {
	project := middlewares.Project(c)
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, types.ProjectConfig{
		VapidPublicKey: project.VapidPublicKey,
		ProjectName:    project.Name,
		Domain:         project.Domain,
	})
}
