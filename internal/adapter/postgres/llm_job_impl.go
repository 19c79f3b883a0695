package postgres

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/toolscout-service/internal/entity"
)

// LLMJobRepoImpl provides the LLMJobRepository implementation using PostgreSQL.
type LLMJobRepoImpl struct {
	db *pgxpool.Pool
}

// NewLLMJobRepo creates a new instance of LLMJobRepoImpl.
func NewLLMJobRepo(db *pgxpool.Pool) *LLMJobRepoImpl {
	return &LLMJobRepoImpl{db: db}
}

func (r *LLMJobRepoImpl) Create(ctx context.Context, job *entity.LLMJob) error {
	query := `
		INSERT INTO llm_jobs (id, result_id, status, model_id, prompt_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW());
	`
	_, err := r.db.Exec(ctx, query, job.ID, job.ResultID, job.Status, job.ModelID, job.PromptVersion)
	return errors.Wrap(err, "insert llm job")
}

// ListQueued selects the oldest queued jobs first so draining is FIFO.
func (r *LLMJobRepoImpl) ListQueued(ctx context.Context, limit int) ([]*entity.LLMJob, error) {
	query := `
		SELECT id, result_id, status, model_id, prompt_version, output, error, created_at, updated_at
		FROM llm_jobs WHERE status = 'queued' ORDER BY created_at LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list queued llm jobs")
	}
	defer rows.Close()

	var jobs []*entity.LLMJob
	for rows.Next() {
		j, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *LLMJobRepoImpl) Update(ctx context.Context, job *entity.LLMJob) error {
	var outputJSON []byte
	if job.Output != nil {
		var err error
		outputJSON, err = json.Marshal(job.Output)
		if err != nil {
			return errors.Wrap(err, "marshal judgment")
		}
	}

	query := `
		UPDATE llm_jobs
		SET status = $2, output = $3, error = $4, updated_at = NOW()
		WHERE id = $1;
	`
	_, err := r.db.Exec(ctx, query, job.ID, job.Status, outputJSON, job.Error)
	return errors.Wrap(err, "update llm job")
}

func (r *LLMJobRepoImpl) FindByID(ctx context.Context, id string) (*entity.LLMJob, error) {
	query := `
		SELECT id, result_id, status, model_id, prompt_version, output, error, created_at, updated_at
		FROM llm_jobs WHERE id = $1;
	`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *LLMJobRepoImpl) scanOne(row pgx.Row) (*entity.LLMJob, error) {
	var j entity.LLMJob
	var outputJSON []byte
	if err := row.Scan(
		&j.ID, &j.ResultID, &j.Status, &j.ModelID, &j.PromptVersion,
		&outputJSON, &j.Error, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(outputJSON) > 0 {
		var out entity.Judgment
		if err := json.Unmarshal(outputJSON, &out); err != nil {
			return nil, errors.Wrap(err, "unmarshal judgment")
		}
		j.Output = &out
	}
	return &j, nil
}
