package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mkatta/pushgate/cmd/api/app/internal/services"
	"github.com/mkatta/pushgate/pkg/types"
)

type WebhookHandler struct {
	service *services.NotificationService
	log     *zap.Logger
}

func NewWebhookHandler(db *gorm.DB, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: services.NewNotificationService(db, nil),
		log:     log,
	}
}

// Delivery accepts delivered/clicked receipts from service workers.
// The endpoint is unauthenticated; events referencing unknown pairs
// are acknowledged and dropped so a stale or spoofed receipt can never
// probe state or fail a legitimate client.
func (h *WebhookHandler) Delivery(c *gin.Context) {
	var event types.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.HandleDeliveryEvent(&event); err != nil {
		h.log.Error("delivery event failed",
			zap.String("notification_id", event.NotificationID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
