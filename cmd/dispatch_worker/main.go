package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/mkatta/pushgate/cmd/dispatch_worker/service"
	"github.com/mkatta/pushgate/logger"
	"github.com/mkatta/pushgate/metrics"
	"github.com/mkatta/pushgate/pkg/config"
	"github.com/mkatta/pushgate/pkg/database"
	"github.com/mkatta/pushgate/pkg/queue"
	"github.com/mkatta/pushgate/pkg/repositories"
	"github.com/mkatta/pushgate/pkg/utils"
	"github.com/mkatta/pushgate/pkg/webpush"
	"github.com/mkatta/pushgate/tracing"
)

func main() {
	_ = godotenv.Load()

	logr, err := logger.InitLogger()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	defer logr.Sync()

	db, err := database.InitDB(utils.GetEnv("DATABASE_URL"))
	if err != nil {
		logr.Fatal("failed to initialize database", zap.Error(err))
	}
	redisClient := database.InitRedis(utils.GetEnvDefault("REDIS_ADDR", "localhost:6379"))

	cfg, err := config.LoadWorker("./config.yaml")
	if err != nil {
		logr.Fatal("failed to load worker config", zap.Error(err))
	}

	logr.Info("Starting dispatch worker",
		zap.Int("job_concurrency", cfg.JobConcurrency),
		zap.Int("fanout_concurrency", cfg.FanoutConcurrency),
	)

	metrics.InitWorkerMetrics()

	shutdownTracer := tracing.InitTracer("dispatch_worker", logr)
	defer shutdownTracer()
	tracer := otel.Tracer("dispatch_worker")

	brokers := strings.Split(utils.GetEnvDefault("KAFKA_BROKER", "localhost:9092"), ",")
	producer := queue.NewProducer(brokers)
	consumer := queue.NewConsumer(queue.TopicDispatch, brokers, "dispatch_worker")
	jobQueue := queue.NewQueue(producer, redisClient, logr)

	dispatcher := service.NewDispatcher(
		repositories.NewNotificationRepository(db),
		repositories.NewSubscriptionRepository(db),
		webpush.NewHTTPSender(),
		tracer,
		logr,
		cfg.FanoutConcurrency,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, producer, consumer, logr)
	go jobQueue.RunScheduler(ctx, cfg.SchedulerInterval)
	go jobQueue.Consume(ctx, consumer, dispatcher.Handle, cfg.JobConcurrency)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
		logr.Fatal("metrics server failed", zap.Error(err))
	}
}

func handleShutdown(cancel context.CancelFunc, producer *queue.Producer, consumer *queue.Consumer, logr *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logr.Info("Shutdown signal received", zap.String("signal", sig.String()))

	cancel()
	if err := consumer.Close(); err != nil {
		logr.Error("Error closing Kafka consumer", zap.Error(err))
	}
	if err := producer.Close(); err != nil {
		logr.Error("Error closing Kafka producer", zap.Error(err))
	}
	os.Exit(0)
}
