package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/toolscout-service/internal/entity"
)

// IngestRepoImpl provides the IngestRepository implementation using PostgreSQL.
type IngestRepoImpl struct {
	db *pgxpool.Pool
}

// NewIngestRepo creates a new instance of IngestRepoImpl.
func NewIngestRepo(db *pgxpool.Pool) *IngestRepoImpl {
	return &IngestRepoImpl{db: db}
}

// CreateIfAbsent inserts a pending_review record unless one already exists
// for the LLM job. The llm_job_id unique constraint makes re-running
// creation a no-op; the existing row is returned in that case.
func (r *IngestRepoImpl) CreateIfAbsent(ctx context.Context, ingest *entity.Ingest) (*entity.Ingest, error) {
	query := `
		INSERT INTO ingests (id, llm_job_id, status, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (llm_job_id) DO NOTHING;
	`
	tag, err := r.db.Exec(ctx, query, ingest.ID, ingest.LLMJobID, ingest.Status)
	if err != nil {
		return nil, errors.Wrap(err, "insert ingest")
	}
	if tag.RowsAffected() == 1 {
		return ingest, nil
	}
	return r.FindByLLMJobID(ctx, ingest.LLMJobID)
}

func (r *IngestRepoImpl) FindByID(ctx context.Context, id string) (*entity.Ingest, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectIngest+` WHERE id = $1;`, id))
}

func (r *IngestRepoImpl) FindByLLMJobID(ctx context.Context, llmJobID string) (*entity.Ingest, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectIngest+` WHERE llm_job_id = $1;`, llmJobID))
}

func (r *IngestRepoImpl) ListByStatus(ctx context.Context, status entity.IngestStatus, limit int) ([]*entity.Ingest, error) {
	rows, err := r.db.Query(ctx, selectIngest+` WHERE status = $1 ORDER BY created_at LIMIT $2;`, status, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list ingests")
	}
	defer rows.Close()

	var ingests []*entity.Ingest
	for rows.Next() {
		in, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		ingests = append(ingests, in)
	}
	return ingests, rows.Err()
}

// UpdateDecision records the transition out of pending_review. The status
// guard enforces the one-way, irreversible transition at the store level.
func (r *IngestRepoImpl) UpdateDecision(ctx context.Context, ingest *entity.Ingest) error {
	query := `
		UPDATE ingests
		SET status = $2, reason = $3, moderator_id = $4, tool_id = NULLIF($5, '')::uuid, decided_at = NOW()
		WHERE id = $1 AND status = 'pending_review';
	`
	tag, err := r.db.Exec(ctx, query, ingest.ID, ingest.Status, ingest.Reason, ingest.ModeratorID, ingest.ToolID)
	if err != nil {
		return errors.Wrap(err, "update ingest decision")
	}
	if tag.RowsAffected() == 0 {
		return errors.Newf("ingest %s is not pending review", ingest.ID)
	}
	return nil
}

const selectIngest = `
	SELECT id, COALESCE(tool_id::text, ''), llm_job_id, status, reason, moderator_id, created_at, decided_at
	FROM ingests`

func (r *IngestRepoImpl) scanOne(row pgx.Row) (*entity.Ingest, error) {
	var in entity.Ingest
	if err := row.Scan(
		&in.ID, &in.ToolID, &in.LLMJobID, &in.Status,
		&in.Reason, &in.ModeratorID, &in.CreatedAt, &in.DecidedAt,
	); err != nil {
		return nil, err
	}
	return &in, nil
}
