package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mkatta/pushgate/cmd/api/app/routes"
	"github.com/mkatta/pushgate/logger"
	"github.com/mkatta/pushgate/metrics"
	"github.com/mkatta/pushgate/middlewares"
	"github.com/mkatta/pushgate/pkg/database"
	"github.com/mkatta/pushgate/pkg/queue"
	"github.com/mkatta/pushgate/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	logr, err := logger.InitLogger()
	if err != nil {
		panic("Failed to initialize zap logger: " + err.Error())
	}
	logr.Info("Logger initialized")

	db, err := database.InitDB(utils.GetEnv("DATABASE_URL"))
	if err != nil {
		logr.Fatal("DB not init", zap.Error(err))
	}
	if err := database.MigrateDB(db); err != nil {
		logr.Fatal("DB migration failed", zap.Error(err))
	}

	redisClient := database.InitRedis(utils.GetEnvDefault("REDIS_ADDR", "localhost:6379"))

	metrics.InitAPIMetrics()

	brokers := strings.Split(utils.GetEnvDefault("KAFKA_BROKER", "localhost:9092"), ",")
	producer := queue.NewProducer(brokers)
	jobQueue := queue.NewQueue(producer, redisClient, logr)
	logr.Info("Kafka producer initialized", zap.Strings("brokers", brokers))

	router := gin.Default()
	// unsubscribe carries a URL-encoded push endpoint as a path
	// segment, so matching must happen on the raw path
	router.UseRawPath = true
	router.UnescapePathValues = false
	router.Use(middlewares.GinMetricsMiddleware())

	// SDK calls arrive cross-origin from whatever domain embeds the
	// snippet, so the public surface must answer preflights from
	// anywhere.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	routes.Auth(v1.Group("/auth"), db)
	routes.Public(v1.Group("/public/:apiKey"), db, redisClient, logr)
	routes.Webhooks(v1.Group("/webhooks"), db, logr)
	routes.Projects(v1.Group("/projects"), db, redisClient, jobQueue, logr)

	go handleShutdown(producer, logr)

	port := utils.GetEnvDefault("PORT", "3000")
	if err := router.Run(":" + port); err != nil {
		logr.Fatal("Failed to start server", zap.Error(err))
	}
}

func handleShutdown(producer *queue.Producer, logr *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logr.Info("Shutdown signal received", zap.String("signal", sig.String()))

	if err := producer.Close(); err != nil {
		logr.Error("Error closing Kafka producer", zap.Error(err))
	} else {
		logr.Info("Kafka producer closed cleanly")
	}

	os.Exit(0)
}
