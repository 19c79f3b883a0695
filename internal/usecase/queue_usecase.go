package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/repository"
	"github.com/user/toolscout-service/pkg/metrics"
	"github.com/user/toolscout-service/pkg/retry"
)

// QueueProcessor drains queued enrichment jobs in bounded batches.
type QueueProcessor interface {
	// Drain processes queued jobs until the queue is empty or ctx is done.
	// It returns the number of jobs brought to a terminal state.
	Drain(ctx context.Context, batchSize int) (int, error)
}

type queueUseCase struct {
	llmJobs repository.LLMJobRepository
	results repository.CrawlResultRepository
	client  repository.EnrichmentClient
	decider IngestDecider

	modelID        string
	promptVersion  string
	batchDelay     time.Duration
	rateLimitDelay time.Duration
	log            *zap.Logger
}

// NewQueueUseCase creates the queue processor. The decider is invoked for
// every completed job so no judgment is ever silently lost.
func NewQueueUseCase(
	llmJobs repository.LLMJobRepository,
	results repository.CrawlResultRepository,
	client repository.EnrichmentClient,
	decider IngestDecider,
	modelID, promptVersion string,
	batchDelay, rateLimitDelay time.Duration,
	log *zap.Logger,
) QueueProcessor {
	return &queueUseCase{
		llmJobs:        llmJobs,
		results:        results,
		client:         client,
		decider:        decider,
		modelID:        modelID,
		promptVersion:  promptVersion,
		batchDelay:     batchDelay,
		rateLimitDelay: rateLimitDelay,
		log:            log,
	}
}

// Drain pulls batches sequentially, sleeping between batches. A rate-limit
// signal from the model provider requeues the job, applies the longer
// backoff once, and ends the drain; the next sweep retries. Without that
// early return a persistently rate-limiting provider would keep the drain
// looping over the same requeued jobs forever.
func (uc *queueUseCase) Drain(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		return 0, retry.NewError(retry.ErrValidation, errors.Newf("batch size must be positive, got %d", batchSize))
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		batch, err := uc.llmJobs.ListQueued(ctx, batchSize)
		if err != nil {
			return total, errors.Wrap(err, "list queued llm jobs")
		}
		if len(batch) == 0 {
			return total, nil
		}

		rateLimited := false
		for _, job := range batch {
			done, limited, perr := uc.processJob(ctx, job)
			if done {
				total++
			}
			if perr != nil {
				return total, perr
			}
			if limited {
				rateLimited = true
				break
			}
		}

		if rateLimited {
			uc.log.Warn("llm rate limit hit, backing off and ending drain",
				zap.Duration("delay", uc.rateLimitDelay))
			if err := sleep(ctx, uc.rateLimitDelay); err != nil {
				return total, err
			}
			return total, nil
		}
		if err := sleep(ctx, uc.batchDelay); err != nil {
			return total, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// processJob brings one job to a terminal state, except on a rate-limit
// signal where the job is requeued for the next drain. Returns whether the
// job reached a terminal state, whether the provider rate-limited us, and a
// non-nil error when the drain must stop because the ingest record could not
// be created. The ingest record is written before the completed status so a
// job is never marked completed without one; CreateIfAbsent keeps the retry
// idempotent.
func (uc *queueUseCase) processJob(ctx context.Context, job *entity.LLMJob) (terminal, rateLimited bool, err error) {
	job.Status = entity.JobRunning
	job.UpdatedAt = time.Now()
	if err := uc.llmJobs.Update(ctx, job); err != nil {
		uc.log.Error("mark llm job running failed", zap.String("job_id", job.ID), zap.Error(err))
		return false, false, nil
	}

	judgment, err := uc.enrich(ctx, job)
	if err != nil {
		var cerr *retry.ClassifiedError
		if errors.As(err, &cerr) && cerr.Type == retry.ErrRateLimit {
			uc.requeue(ctx, job)
			return false, true, nil
		}

		job.Status = entity.JobFailed
		job.Error = err.Error()
		job.UpdatedAt = time.Now()
		if uerr := uc.llmJobs.Update(ctx, job); uerr != nil {
			uc.log.Error("mark llm job failed failed", zap.String("job_id", job.ID), zap.Error(uerr))
			return false, false, nil
		}
		observeLLMJob("failed")
		uc.log.Warn("llm job failed", zap.String("job_id", job.ID), zap.Error(err))
		return true, false, nil
	}

	job.Status = entity.JobCompleted
	job.Output = judgment
	job.ModelID = uc.modelID
	job.PromptVersion = uc.promptVersion
	job.UpdatedAt = time.Now()

	// Every completed job yields exactly one ingest record.
	if err := uc.decider.EnsureIngest(ctx, job); err != nil {
		uc.requeue(ctx, job)
		return false, false, errors.Wrapf(err, "ensure ingest for job %s", job.ID)
	}

	if err := uc.llmJobs.Update(ctx, job); err != nil {
		uc.log.Error("mark llm job completed failed", zap.String("job_id", job.ID), zap.Error(err))
		return false, false, nil
	}
	observeLLMJob("completed")
	return true, false, nil
}

func (uc *queueUseCase) requeue(ctx context.Context, job *entity.LLMJob) {
	job.Status = entity.JobQueued
	job.UpdatedAt = time.Now()
	if err := uc.llmJobs.Update(ctx, job); err != nil {
		uc.log.Error("requeue llm job failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (uc *queueUseCase) enrich(ctx context.Context, job *entity.LLMJob) (*entity.Judgment, error) {
	result, err := uc.results.FindByID(ctx, job.ResultID)
	if err != nil {
		return nil, errors.Wrapf(err, "load result %s", job.ResultID)
	}

	meta := ""
	if len(result.Metadata) > 0 {
		compact, err := compactJSON(result.Metadata)
		if err == nil {
			meta = compact
		}
	}
	return uc.client.Process(ctx, repository.EnrichmentInput{
		Title:       result.Title,
		Description: result.Description,
		Readme:      result.Readme,
		Metadata:    meta,
	})
}

func compactJSON(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func observeLLMJob(status string) {
	if metrics.LLMJobsTotal != nil {
		metrics.LLMJobsTotal.WithLabelValues(status).Inc()
	}
}
