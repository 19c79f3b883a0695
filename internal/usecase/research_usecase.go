package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/repository"
)

// Researcher runs the report-oriented path: collect from every channel,
// consolidate, and render a long-form report. Independent of the crawl
// state machine; nothing here is persisted.
type Researcher interface {
	ResearchTool(ctx context.Context, toolName string) (string, error)
}

type researchUseCase struct {
	collector Collector
	processor Processor
	formatter repository.ReportFormatter
	log       *zap.Logger
}

// NewResearchUseCase composes the collector, processor and report formatter.
func NewResearchUseCase(collector Collector, processor Processor, formatter repository.ReportFormatter, log *zap.Logger) Researcher {
	return &researchUseCase{
		collector: collector,
		processor: processor,
		formatter: formatter,
		log:       log,
	}
}

func (uc *researchUseCase) ResearchTool(ctx context.Context, toolName string) (string, error) {
	items, err := uc.collector.Collect(ctx, toolName)
	if err != nil {
		return "", errors.Wrapf(err, "collect information about %q", toolName)
	}

	clusters := uc.processor.Process(items)
	uc.log.Info("research collection processed",
		zap.String("tool", toolName),
		zap.Int("collected", len(items)),
		zap.Int("clusters", len(clusters)),
	)

	report, err := uc.formatter.FormatReport(ctx, toolName, clusters)
	if err != nil {
		return "", errors.Wrapf(err, "format report for %q", toolName)
	}
	return report, nil
}
