package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	CrawlJobsTotal *prometheus.CounterVec
	CrawlDuration  *prometheus.HistogramVec
	ResultsFound   *prometheus.CounterVec

	LLMJobsTotal    *prometheus.CounterVec
	LLMCallDuration prometheus.Histogram

	IngestDecisionsTotal *prometheus.CounterVec

	ChannelFetchesTotal *prometheus.CounterVec
)

func Init() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	CrawlJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_jobs_total",
			Help: "Total number of crawl job runs.",
		},
		[]string{"source_kind", "status"}, // status: completed, failed
	)

	CrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawl_job_duration_seconds",
			Help:    "Duration of crawl job runs.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120, 300},
		},
		[]string{"source_kind"},
	)

	ResultsFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_results_total",
			Help: "Crawl results by outcome.",
		},
		[]string{"outcome"}, // persisted, duplicate, irrelevant, error
	)

	LLMJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_jobs_total",
			Help: "Enrichment jobs drained from the queue.",
		},
		[]string{"status"}, // completed, failed
	)

	LLMCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "Duration of LLM chat completion calls.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 60},
		},
	)

	IngestDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_decisions_total",
			Help: "Ingest review decisions.",
		},
		[]string{"action", "mode"}, // action: approved, rejected; mode: manual, auto
	)

	ChannelFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_fetches_total",
			Help: "Multi-channel collector fetches.",
		},
		[]string{"channel", "status"}, // status: success, failure
	)
}
