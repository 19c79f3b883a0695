package entity

import "time"

// IngestStatus gates whether a judgment becomes a published Tool.
// Transitions are one-way: pending_review -> approved|rejected, irreversible.
type IngestStatus string

const (
	IngestPendingReview IngestStatus = "pending_review"
	IngestApproved      IngestStatus = "approved"
	IngestRejected      IngestStatus = "rejected"
)

// Ingest is the review record for one completed enrichment job. Exactly one
// exists per completed LLMJob; creation is idempotent.
type Ingest struct {
	ID          string
	ToolID      string // empty until approved
	LLMJobID    string
	Status      IngestStatus
	Reason      string
	ModeratorID string // "heuristic" for auto decisions
	CreatedAt   time.Time
	DecidedAt   *time.Time
}
