package handler

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/delivery/http/request"
	"github.com/user/toolscout-service/internal/delivery/http/response"
	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/repository"
	"github.com/user/toolscout-service/internal/usecase"
	"github.com/user/toolscout-service/pkg/retry"
)

type Handler struct {
	svc     *usecase.Service
	sources repository.SourceRepository
	jobs    repository.CrawlJobRepository
	cache   repository.Cache

	defaultBatchSize int
	log              *zap.Logger
}

func NewHandler(svc *usecase.Service, sources repository.SourceRepository, jobs repository.CrawlJobRepository, cache repository.Cache, defaultBatchSize int, log *zap.Logger) *Handler {
	return &Handler{
		svc:              svc,
		sources:          sources,
		jobs:             jobs,
		cache:            cache,
		defaultBatchSize: defaultBatchSize,
		log:              log,
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) HandleRunCrawl(w http.ResponseWriter, r *http.Request) {
	var req request.RunCrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SourceID == "" {
		h.writeJSONError(w, "source_id is required", http.StatusBadRequest)
		return
	}

	stats, err := h.svc.RunCrawlJob(r.Context(), req.SourceID)
	if err != nil {
		h.log.Error("crawl run failed", zap.String("source_id", req.SourceID), zap.Error(err))
		status := "failed"
		if stats == nil {
			h.writeClassifiedError(w, err)
			return
		}
		// The job row already records the failure; report the stats we have.
		h.writeJSON(w, http.StatusOK, response.CrawlRunResponse{
			Status:     status,
			Found:      stats.Found,
			Processed:  stats.Processed,
			Errors:     stats.Errors,
			DurationMS: stats.Duration.Milliseconds(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, response.CrawlRunResponse{
		Status:     "completed",
		Found:      stats.Found,
		Processed:  stats.Processed,
		Errors:     stats.Errors,
		DurationMS: stats.Duration.Milliseconds(),
	})
}

func (h *Handler) HandleDrainQueue(w http.ResponseWriter, r *http.Request) {
	var req request.DrainQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.BatchSize <= 0 {
		req.BatchSize = h.defaultBatchSize
	}

	processed, err := h.svc.DrainLLMQueue(r.Context(), req.BatchSize)
	if err != nil {
		h.log.Error("queue drain failed", zap.Error(err))
		h.writeClassifiedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.DrainQueueResponse{Status: "ok", Processed: processed})
}

func (h *Handler) HandleDecideIngest(w http.ResponseWriter, r *http.Request) {
	ingestID := r.PathValue("id")
	if ingestID == "" {
		h.writeJSONError(w, "ingest id is required", http.StatusBadRequest)
		return
	}

	var req request.DecideIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	moderatorID := r.Header.Get("X-Moderator-ID")
	if moderatorID == "" {
		h.writeJSONError(w, "X-Moderator-ID header is required", http.StatusBadRequest)
		return
	}

	ingest, err := h.svc.DecideIngest(r.Context(), ingestID, usecase.DecisionAction(req.Action), req.Reason, moderatorID)
	if err != nil {
		h.log.Warn("ingest decision failed", zap.String("ingest_id", ingestID), zap.Error(err))
		h.writeClassifiedError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response.DecisionResponse{
		IngestID:  ingest.ID,
		Status:    string(ingest.Status),
		ToolID:    ingest.ToolID,
		Reason:    ingest.Reason,
		DecidedAt: ingest.DecidedAt,
	})
}

func (h *Handler) HandleResearch(w http.ResponseWriter, r *http.Request) {
	var req request.ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ToolName == "" {
		h.writeJSONError(w, "tool_name is required", http.StatusBadRequest)
		return
	}

	report, err := h.svc.ResearchTool(r.Context(), req.ToolName)
	if err != nil {
		h.log.Error("research failed", zap.String("tool", req.ToolName), zap.Error(err))
		h.writeClassifiedError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.ReportResponse{ToolName: req.ToolName, Report: report})
}

func (h *Handler) HandleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.sources.ListEnabled(r.Context())
	if err != nil {
		h.log.Error("list sources failed", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	out := make([]response.SourceResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, response.SourceResponse{
			ID:         s.ID,
			Kind:       string(s.Kind),
			Identifier: s.Identifier,
			Enabled:    s.Enabled,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleSetSourceEnabled(w http.ResponseWriter, r *http.Request) {
	sourceID := r.PathValue("id")
	if sourceID == "" {
		h.writeJSONError(w, "source id is required", http.StatusBadRequest)
		return
	}

	var req request.SetSourceEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	source, err := h.sources.FindByID(r.Context(), sourceID)
	if err != nil {
		h.writeJSONError(w, "source not found", http.StatusNotFound)
		return
	}

	if err := h.sources.SetEnabled(r.Context(), sourceID, req.Enabled); err != nil {
		h.log.Error("set source enabled failed", zap.String("source_id", sourceID), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Re-enabling should see fresh provider data, not the cached responses
	// from before the source was paused.
	if req.Enabled && h.cache != nil {
		if err := h.cache.InvalidateTag(r.Context(), "provider:"+string(source.Kind)); err != nil {
			h.log.Warn("provider cache invalidation failed",
				zap.String("kind", string(source.Kind)), zap.Error(err))
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"id": sourceID, "enabled": req.Enabled})
}

// HandleListJobs lists crawl jobs by status, defaulting to failed ones so
// operators can see what needs attention.
func (h *Handler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	status := entity.JobStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = entity.JobFailed
	}
	switch status {
	case entity.JobQueued, entity.JobRunning, entity.JobCompleted, entity.JobFailed:
	default:
		h.writeJSONError(w, "unknown job status", http.StatusBadRequest)
		return
	}

	jobs, err := h.jobs.ListByStatus(r.Context(), status, 100)
	if err != nil {
		h.log.Error("list jobs failed", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	out := make([]response.CrawlJobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, response.CrawlJobResponse{
			ID:        job.ID,
			SourceID:  job.SourceID,
			Status:    string(job.Status),
			StartedAt: job.StartedAt,
			Error:     job.Error,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// writeClassifiedError maps the error taxonomy onto HTTP statuses.
func (h *Handler) writeClassifiedError(w http.ResponseWriter, err error) {
	var cerr *retry.ClassifiedError
	if errors.As(err, &cerr) {
		switch cerr.Type {
		case retry.ErrValidation:
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		case retry.ErrRateLimit:
			h.writeJSONError(w, err.Error(), http.StatusTooManyRequests)
			return
		case retry.ErrTimeout:
			h.writeJSONError(w, err.Error(), http.StatusGatewayTimeout)
			return
		}
	}
	h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("write json response failed", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
