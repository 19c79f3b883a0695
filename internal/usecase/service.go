package usecase

import (
	"context"

	"github.com/user/toolscout-service/internal/entity"
)

// Service is the caller-facing facade over the pipeline. Embedding callers
// (delivery, schedulers) depend on this rather than on the individual
// usecases.
type Service struct {
	orchestrator Orchestrator
	queue        QueueProcessor
	decider      IngestDecider
	researcher   Researcher
}

func NewService(orchestrator Orchestrator, queue QueueProcessor, decider IngestDecider, researcher Researcher) *Service {
	return &Service{
		orchestrator: orchestrator,
		queue:        queue,
		decider:      decider,
		researcher:   researcher,
	}
}

func (s *Service) RunCrawlJob(ctx context.Context, sourceID string) (*entity.CrawlStats, error) {
	return s.orchestrator.RunCrawlJob(ctx, sourceID)
}

func (s *Service) DrainLLMQueue(ctx context.Context, batchSize int) (int, error) {
	return s.queue.Drain(ctx, batchSize)
}

func (s *Service) DecideIngest(ctx context.Context, ingestID string, action DecisionAction, reason, moderatorID string) (*entity.Ingest, error) {
	return s.decider.Decide(ctx, ingestID, action, reason, moderatorID)
}

func (s *Service) ResearchTool(ctx context.Context, toolName string) (string, error) {
	return s.researcher.ResearchTool(ctx, toolName)
}
