package metrics

import "github.com/prometheus/client_golang/prometheus"

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HttpErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of failed HTTP requests (4xx/5xx)",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRateLimitRejectionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "http_rate_limit_rejections_total",
		Help: "Total number of HTTP requests rejected due to rate limiting",
	},
)

var PushSendsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "push_sends_total",
		Help: "Per-endpoint push send attempts by outcome",
	},
	[]string{"status"},
)

var PushSendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "push_send_duration_seconds",
		Help:    "Time taken to deliver one push to its endpoint",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"status"},
)

var DispatchJobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dispatch_jobs_total",
		Help: "Dispatch jobs processed by result",
	},
	[]string{"result"},
)

var DispatchJobDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "dispatch_job_duration_seconds",
		Help:    "Wall-clock time of one fan-out job",
		Buckets: prometheus.DefBuckets,
	},
)

var QueueRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_retries_total",
		Help: "Jobs re-enqueued with backoff after a handler error",
	},
	[]string{"job_type"},
)

var QueueDLQTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_dlq_total",
		Help: "Jobs routed to the dead-letter topic",
	},
	[]string{"job_type", "reason"},
)

var QueueDelayedDepth = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "queue_delayed_depth",
		Help: "Jobs currently waiting in the delayed set",
	},
)

var KafkaPublishFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_publish_failure_total",
		Help: "Total number of failed Kafka publishes",
	},
	[]string{"topic"},
)

var KafkaSubscriberFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_subscriber_failure_total",
		Help: "Total number of failed Kafka reads",
	},
	[]string{"topic"},
)

func InitAPIMetrics() {
	prometheus.MustRegister(
		HttpRequestsTotal,
		HttpRequestDuration,
		HttpErrorsTotal,
		HttpRateLimitRejectionsTotal,
		KafkaPublishFailureTotal,
	)
}

func InitWorkerMetrics() {
	prometheus.MustRegister(
		PushSendsTotal,
		PushSendDuration,
		DispatchJobsTotal,
		DispatchJobDuration,
		QueueRetriesTotal,
		QueueDLQTotal,
		QueueDelayedDepth,
		KafkaPublishFailureTotal,
		KafkaSubscriberFailureTotal,
	)
}
