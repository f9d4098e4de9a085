package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkatta/pushgate/cmd/api/app/internal/services"
	"github.com/mkatta/pushgate/middlewares"
	"github.com/mkatta/pushgate/pkg/repositories"
	"github.com/mkatta/pushgate/pkg/types"
)

type SubscriptionHandler struct {
	service *services.SubscriptionService
}

func NewSubscriptionHandler(db *gorm.DB) *SubscriptionHandler {
	return &SubscriptionHandler{service: services.NewSubscriptionService(db)}
}

func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	project := middlewares.Project(c)
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	var req types.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.service.Subscribe(project.ID, &req, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscriptionId": sub.ID, "success": true})
}

// Unsubscribe takes the push endpoint URL-encoded as the last path
// segment, since endpoints are themselves URLs.
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	project := middlewares.Project(c)
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	// PathUnescape, not QueryUnescape: endpoints may legally contain
	// "+", which query unescaping would turn into a space.
	endpoint, err := url.PathUnescape(c.Param("endpoint"))
	if err != nil || endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endpoint"})
		return
	}

	if err := h.service.Unsubscribe(project.ID, endpoint); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *SubscriptionHandler) UpdateSubscription(c *gin.Context) {
	project := middlewares.Project(c)
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	id, err := uuid.Parse(c.Param("subscriptionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}

	var req types.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.service.UpdateSubscription(project.ID, id, &req)
	if err == repositories.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) ListSubscriptions(projects *repositories.ProjectRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := uuid.Parse(c.Param("projectId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
			return
		}
		if _, err := projects.GetByID(projectID, middlewares.UserID(c)); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}

		q := repositories.SubscriptionQuery{Search: c.Query("search")}
		q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
		q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
		if raw, ok := c.GetQuery("isActive"); ok {
			active := raw == "true"
			q.IsActive = &active
		}

		page, err := h.service.QuerySubscriptions(projectID, q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

func (h *SubscriptionHandler) GetSubscription(projects *repositories.ProjectRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := uuid.Parse(c.Param("projectId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
			return
		}
		if _, err := projects.GetByID(projectID, middlewares.UserID(c)); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}

		id, err := uuid.Parse(c.Param("subscriptionId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
			return
		}

		sub, err := h.service.GetSubscription(id, projectID)
		if err == repositories.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sub)
	}
}
