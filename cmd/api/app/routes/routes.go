package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/mkatta/pushgate/cmd/api/app/internal/handler"
	"github.com/mkatta/pushgate/middlewares"
	"github.com/mkatta/pushgate/pkg/cache"
	"github.com/mkatta/pushgate/pkg/queue"
	"github.com/mkatta/pushgate/pkg/repositories"
)

func Auth(router *gin.RouterGroup, db *gorm.DB) {
	authHandler := handler.NewAuthHandler(db)

	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)
	router.GET("/profile", middlewares.AuthRequired(), authHandler.Profile)
}

// Public is the SDK-facing surface: routes resolve the tenant from the
// API key in the path and are rate limited per client IP.
func Public(router *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, log *zap.Logger) {
	projectRepo := repositories.NewProjectRepository(db)
	projectCache := cache.NewProjectCache(redisClient)
	projectHandler := handler.NewProjectHandler(db, projectCache)
	subscriptionHandler := handler.NewSubscriptionHandler(db)

	limiter := middlewares.NewRateLimiter(rate.Limit(10), 30)
	resolve := middlewares.ProjectFromAPIKey(projectRepo, projectCache, log)
	router.Use(limiter.Middleware(), resolve)

	router.GET("/config", projectHandler.PublicConfig)
	router.POST("/subscriptions", subscriptionHandler.Subscribe)
	router.DELETE("/subscriptions/:endpoint", subscriptionHandler.Unsubscribe)
	router.PATCH("/subscriptions/:subscriptionId", subscriptionHandler.UpdateSubscription)
}

func Webhooks(router *gin.RouterGroup, db *gorm.DB, log *zap.Logger) {
	webhookHandler := handler.NewWebhookHandler(db, log)
	limiter := middlewares.NewRateLimiter(rate.Limit(50), 100)

	router.POST("/delivery", limiter.Middleware(), webhookHandler.Delivery)
}

func Projects(router *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, enqueuer queue.Enqueuer, log *zap.Logger) {
	projectRepo := repositories.NewProjectRepository(db)
	projectCache := cache.NewProjectCache(redisClient)
	projectHandler := handler.NewProjectHandler(db, projectCache)
	subscriptionHandler := handler.NewSubscriptionHandler(db)
	notificationHandler := handler.NewNotificationHandler(db, enqueuer, log)

	router.Use(middlewares.AuthRequired())

	router.POST("/", projectHandler.CreateProject)
	router.GET("/", projectHandler.ListProjects)
	router.GET("/:projectId", projectHandler.GetProject)
	router.PUT("/:projectId", projectHandler.UpdateProject)
	router.DELETE("/:projectId", projectHandler.DeleteProject)
	router.POST("/:projectId/regenerate-key", projectHandler.RegenerateAPIKey)

	router.POST("/:projectId/notifications/send", notificationHandler.SendNotification)
	router.GET("/:projectId/notifications", notificationHandler.ListNotifications)
	router.GET("/:projectId/notifications/:notificationId", notificationHandler.GetNotification)
	router.GET("/:projectId/notifications/:notificationId/stats", notificationHandler.GetStats)
	router.GET("/:projectId/analytics", notificationHandler.GetAnalytics)

	router.GET("/:projectId/subscriptions", subscriptionHandler.ListSubscriptions(projectRepo))
	router.GET("/:projectId/subscriptions/:subscriptionId", subscriptionHandler.GetSubscription(projectRepo))
}
