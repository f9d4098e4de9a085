package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mkatta/pushgate/cmd/api/app/internal/services"
	"github.com/mkatta/pushgate/middlewares"
	"github.com/mkatta/pushgate/pkg/queue"
	"github.com/mkatta/pushgate/pkg/repositories"
	"github.com/mkatta/pushgate/pkg/types"
)

type NotificationHandler struct {
	service  *services.NotificationService
	projects *repositories.ProjectRepository
	log      *zap.Logger
}

func NewNotificationHandler(db *gorm.DB, enqueuer queue.Enqueuer, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service:  services.NewNotificationService(db, enqueuer),
		projects: repositories.NewProjectRepository(db),
		log:      log,
	}
}

func (h *NotificationHandler) ownedProject(c *gin.Context) (uuid.UUID, bool) {
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return uuid.Nil, false
	}
	if _, err := h.projects.GetByID(projectID, middlewares.UserID(c)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return uuid.Nil, false
	}
	return projectID, true
}

func (h *NotificationHandler) SendNotification(c *gin.Context) {
	projectID, ok := h.ownedProject(c)
	if !ok {
		return
	}

	var req types.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notification, err := h.service.Send(c.Request.Context(), projectID, &req)
	if err != nil {
		h.log.Error("notification enqueue failed",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, notification)
}

func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	projectID, ok := h.ownedProject(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	listing, err := h.service.ListNotifications(projectID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *NotificationHandler) GetNotification(c *gin.Context) {
	projectID, ok := h.ownedProject(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	notification, err := h.service.GetNotification(id, projectID)
	if err == repositories.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, notification)
}

func (h *NotificationHandler) GetStats(c *gin.Context) {
	projectID, ok := h.ownedProject(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	stats, err := h.service.GetStats(id, projectID)
	if err == repositories.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *NotificationHandler) GetAnalytics(c *gin.Context) {
	projectID, ok := h.ownedProject(c)
	if !ok {
		return
	}

	analytics, err := h.service.GetAnalytics(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, analytics)
}
