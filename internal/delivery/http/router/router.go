package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/delivery/http/handler"
	"github.com/user/toolscout-service/internal/delivery/http/middleware"
)

func New(h *handler.Handler, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.HandleHealthCheck)
	mux.HandleFunc("POST /api/crawl", h.HandleRunCrawl)
	mux.HandleFunc("POST /api/llm/drain", h.HandleDrainQueue)
	mux.HandleFunc("POST /api/ingests/{id}/decision", h.HandleDecideIngest)
	mux.HandleFunc("POST /api/research", h.HandleResearch)
	mux.HandleFunc("GET /api/jobs", h.HandleListJobs)
	mux.HandleFunc("GET /api/sources", h.HandleListSources)
	mux.HandleFunc("PUT /api/sources/{id}/enabled", h.HandleSetSourceEnabled)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Apply middlewares
	var chainedHandler http.Handler = mux
	chainedHandler = middleware.Metrics(chainedHandler)
	chainedHandler = middleware.Logging(chainedHandler, log)

	return chainedHandler
}
