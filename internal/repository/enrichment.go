package repository

import (
	"context"

	"github.com/user/toolscout-service/internal/entity"
)

// EnrichmentInput is the raw material handed to the language model.
type EnrichmentInput struct {
	Title       string
	Description string
	Readme      string
	Metadata    string // provider metadata rendered as compact JSON
}

// EnrichmentClient turns a crawl result into a structured judgment. A parse
// failure of the model output is not an error: implementations return the
// default judgment instead, so queue processing always terminates.
type EnrichmentClient interface {
	Process(ctx context.Context, input EnrichmentInput) (*entity.Judgment, error)
}

// ReportFormatter renders processed research clusters into a long-form
// report. Used by the report-oriented path, not by the crawl state machine.
type ReportFormatter interface {
	FormatReport(ctx context.Context, toolName string, clusters []entity.ProcessedInformation) (string, error)
}
