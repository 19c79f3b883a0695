package repository

import (
	"context"

	"github.com/user/toolscout-service/internal/entity"
)

// SourceRepository manages the source registry. The pipeline never deletes
// sources.
type SourceRepository interface {
	Create(ctx context.Context, source *entity.Source) error
	FindByID(ctx context.Context, id string) (*entity.Source, error)
	ListEnabled(ctx context.Context) ([]*entity.Source, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
}

// CrawlJobRepository persists crawl job state transitions.
type CrawlJobRepository interface {
	Create(ctx context.Context, job *entity.CrawlJob) error
	// Finish records the terminal transition (completed or failed) together
	// with stats and the error message, if any.
	Finish(ctx context.Context, job *entity.CrawlJob) error
	FindByID(ctx context.Context, id string) (*entity.CrawlJob, error)
	ListByStatus(ctx context.Context, status entity.JobStatus, limit int) ([]*entity.CrawlJob, error)
}

// CrawlResultRepository persists raw discovered items.
type CrawlResultRepository interface {
	// Insert stores the result. It returns false without error when a result
	// with the same dedupe hash already exists (idempotent ingestion).
	Insert(ctx context.Context, result *entity.CrawlResult) (bool, error)
	FindByID(ctx context.Context, id string) (*entity.CrawlResult, error)
}

// LLMJobRepository persists enrichment jobs. Only rate-limited jobs go back
// to queued; failed jobs stay failed, with retry living inside the enrichment
// client's network layer.
type LLMJobRepository interface {
	Create(ctx context.Context, job *entity.LLMJob) error
	ListQueued(ctx context.Context, limit int) ([]*entity.LLMJob, error)
	Update(ctx context.Context, job *entity.LLMJob) error
	FindByID(ctx context.Context, id string) (*entity.LLMJob, error)
}

// IngestRepository manages review records.
type IngestRepository interface {
	// CreateIfAbsent inserts a pending_review ingest for the LLM job unless
	// one already exists. Returns the existing or created record.
	CreateIfAbsent(ctx context.Context, ingest *entity.Ingest) (*entity.Ingest, error)
	FindByID(ctx context.Context, id string) (*entity.Ingest, error)
	FindByLLMJobID(ctx context.Context, llmJobID string) (*entity.Ingest, error)
	ListByStatus(ctx context.Context, status entity.IngestStatus, limit int) ([]*entity.Ingest, error)
	// UpdateDecision records the one-way transition out of pending_review and
	// the tool back-link.
	UpdateDecision(ctx context.Context, ingest *entity.Ingest) error
}

// ToolRepository materializes approved tools and their associations.
type ToolRepository interface {
	Insert(ctx context.Context, tool *entity.Tool) error
	// UpsertTagBySlug creates the tag if missing and returns it either way.
	UpsertTagBySlug(ctx context.Context, slug, name string) (*entity.Tag, error)
	AssociateTag(ctx context.Context, toolID, tagID string) error
	// FindCategoryBySlug returns (nil, nil) when no category matches: the
	// caller skips the association silently.
	FindCategoryBySlug(ctx context.Context, slug string) (*entity.Category, error)
	AssociateCategory(ctx context.Context, toolID, categoryID string) error
}
