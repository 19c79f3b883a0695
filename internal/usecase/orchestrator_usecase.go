package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/repository"
	"github.com/user/toolscout-service/pkg/metrics"
	"github.com/user/toolscout-service/pkg/retry"
	"github.com/user/toolscout-service/pkg/utils"
)

const defaultMaxResults = 30

// Orchestrator owns the crawl job state machine: one run per enabled source,
// terminating in exactly one of completed or failed.
type Orchestrator interface {
	RunCrawlJob(ctx context.Context, sourceID string) (*entity.CrawlStats, error)
}

type orchestratorUseCase struct {
	sources  repository.SourceRepository
	jobs     repository.CrawlJobRepository
	results  repository.CrawlResultRepository
	llmJobs  repository.LLMJobRepository
	fetchers map[entity.SourceKind]repository.Fetcher
	log      *zap.Logger
}

// NewOrchestratorUseCase wires the orchestrator over its stores and the
// available provider fetchers.
func NewOrchestratorUseCase(
	sources repository.SourceRepository,
	jobs repository.CrawlJobRepository,
	results repository.CrawlResultRepository,
	llmJobs repository.LLMJobRepository,
	fetchers []repository.Fetcher,
	log *zap.Logger,
) Orchestrator {
	byKind := make(map[entity.SourceKind]repository.Fetcher, len(fetchers))
	for _, f := range fetchers {
		byKind[f.Kind()] = f
	}
	return &orchestratorUseCase{
		sources:  sources,
		jobs:     jobs,
		results:  results,
		llmJobs:  llmJobs,
		fetchers: byKind,
		log:      log,
	}
}

// RunCrawlJob executes one crawl for the source. Any failure after the job
// row exists ends in a terminal failed job with the error message persisted;
// errors never escape the per-source unit of work unrecorded.
func (uc *orchestratorUseCase) RunCrawlJob(ctx context.Context, sourceID string) (*entity.CrawlStats, error) {
	source, err := uc.sources.FindByID(ctx, sourceID)
	if err != nil {
		return nil, errors.Wrapf(err, "load source %s", sourceID)
	}
	if !source.Enabled {
		return nil, retry.NewError(retry.ErrValidation, errors.Newf("source %s is disabled", sourceID))
	}
	fetcher, ok := uc.fetchers[source.Kind]
	if !ok {
		return nil, retry.NewError(retry.ErrValidation, errors.Newf("no fetcher for source kind %q", source.Kind))
	}

	job := &entity.CrawlJob{
		ID:        uuid.NewString(),
		SourceID:  source.ID,
		Status:    entity.JobRunning,
		StartedAt: time.Now(),
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, errors.Wrap(err, "create crawl job")
	}

	uc.log.Info("crawl job started",
		zap.String("job_id", job.ID),
		zap.String("source_id", source.ID),
		zap.String("kind", string(source.Kind)),
	)

	stats, crawlErr := uc.crawl(ctx, source, fetcher, job.ID)
	stats.Duration = time.Since(job.StartedAt)
	job.Stats = stats

	status := "completed"
	if crawlErr != nil {
		status = "failed"
		job.Status = entity.JobFailed
		job.Error = crawlErr.Error()
	} else {
		job.Status = entity.JobCompleted
	}
	if err := uc.jobs.Finish(ctx, job); err != nil {
		uc.log.Error("finish crawl job failed", zap.String("job_id", job.ID), zap.Error(err))
		if crawlErr == nil {
			crawlErr = err
		}
	}

	if metrics.CrawlJobsTotal != nil {
		metrics.CrawlJobsTotal.WithLabelValues(string(source.Kind), status).Inc()
		metrics.CrawlDuration.WithLabelValues(string(source.Kind)).Observe(stats.Duration.Seconds())
	}

	uc.log.Info("crawl job finished",
		zap.String("job_id", job.ID),
		zap.String("status", status),
		zap.Int("found", stats.Found),
		zap.Int("processed", stats.Processed),
		zap.Int("errors", stats.Errors),
		zap.Duration("duration", stats.Duration),
	)
	return &stats, crawlErr
}

func (uc *orchestratorUseCase) crawl(ctx context.Context, source *entity.Source, fetcher repository.Fetcher, jobID string) (entity.CrawlStats, error) {
	var stats entity.CrawlStats

	opts := repository.SearchOptions{
		MaxResults: source.Config.MaxResults,
		SortBy:     source.Config.SortBy,
		MinStars:   source.Config.MinStars,
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}

	items, err := fetcher.Search(ctx, source.Identifier, opts)
	if err != nil {
		return stats, errors.Wrapf(err, "search %q on %s", source.Identifier, source.Kind)
	}
	stats.Found = len(items)

	for _, item := range items {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if err := uc.processItem(ctx, fetcher, jobID, item); err != nil {
			stats.Errors++
			uc.log.Warn("crawl item failed",
				zap.String("job_id", jobID),
				zap.String("item", item.URL),
				zap.Error(err),
			)
			continue
		}
		stats.Processed++
	}
	return stats, nil
}

// processItem enriches, filters, persists and enqueues a single discovered
// item. A duplicate or irrelevant item is not an error; it is simply not
// processed.
func (uc *orchestratorUseCase) processItem(ctx context.Context, fetcher repository.Fetcher, jobID string, item entity.ProviderItem) error {
	enrichment, err := fetcher.Enrich(ctx, item)
	if err != nil {
		observeResult("error")
		return errors.Wrapf(err, "enrich %s", item.Name)
	}

	if !fetcher.IsRelevant(item, enrichment) {
		observeResult("irrelevant")
		return nil
	}

	meta, err := json.Marshal(entity.ResultMetadata{
		Provider:        string(fetcher.Kind()),
		Stars:           enrichment.Stars,
		WeeklyDownloads: enrichment.Downloads,
		License:         item.License,
		Repository:      item.Repository,
		Homepage:        item.Homepage,
		InstallCommand:  fetcher.InstallCommand(item),
		Version:         item.Version,
		Language:        item.Language,
	})
	if err != nil {
		observeResult("error")
		return errors.Wrap(err, "marshal result metadata")
	}

	result := &entity.CrawlResult{
		ID:          uuid.NewString(),
		JobID:       jobID,
		URL:         item.URL,
		Title:       item.Name,
		Description: item.Description,
		Readme:      enrichment.Readme,
		Metadata:    meta,
		DedupeHash:  utils.HashURL(utils.CanonicalURL(item.URL)),
		CreatedAt:   time.Now(),
	}
	inserted, err := uc.results.Insert(ctx, result)
	if err != nil {
		observeResult("error")
		return errors.Wrapf(err, "insert result for %s", item.URL)
	}
	if !inserted {
		observeResult("duplicate")
		return nil
	}
	observeResult("persisted")

	now := time.Now()
	llmJob := &entity.LLMJob{
		ID:        uuid.NewString(),
		ResultID:  result.ID,
		Status:    entity.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.llmJobs.Create(ctx, llmJob); err != nil {
		return errors.Wrapf(err, "enqueue llm job for result %s", result.ID)
	}
	return nil
}

func observeResult(outcome string) {
	if metrics.ResultsFound != nil {
		metrics.ResultsFound.WithLabelValues(outcome).Inc()
	}
}
