package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/toolscout-service/internal/entity"
)

// CrawlJobRepoImpl provides the CrawlJobRepository implementation using PostgreSQL.
type CrawlJobRepoImpl struct {
	db *pgxpool.Pool
}

// NewCrawlJobRepo creates a new instance of CrawlJobRepoImpl.
func NewCrawlJobRepo(db *pgxpool.Pool) *CrawlJobRepoImpl {
	return &CrawlJobRepoImpl{db: db}
}

func (r *CrawlJobRepoImpl) Create(ctx context.Context, job *entity.CrawlJob) error {
	query := `
		INSERT INTO crawl_jobs (id, source_id, status, started_at)
		VALUES ($1, $2, $3, $4);
	`
	_, err := r.db.Exec(ctx, query, job.ID, job.SourceID, job.Status, job.StartedAt)
	return errors.Wrap(err, "insert crawl job")
}

// Finish records the terminal transition. The status guard keeps an already
// terminal row immutable even under a concurrent caller.
func (r *CrawlJobRepoImpl) Finish(ctx context.Context, job *entity.CrawlJob) error {
	query := `
		UPDATE crawl_jobs
		SET status = $2,
		    finished_at = $3,
		    found = $4, processed = $5, errors = $6, duration_ms = $7,
		    error = $8
		WHERE id = $1 AND status = 'running';
	`
	finished := time.Now()
	if job.FinishedAt != nil {
		finished = *job.FinishedAt
	}
	tag, err := r.db.Exec(ctx, query,
		job.ID,
		job.Status,
		finished,
		job.Stats.Found,
		job.Stats.Processed,
		job.Stats.Errors,
		job.Stats.Duration.Milliseconds(),
		job.Error,
	)
	if err != nil {
		return errors.Wrap(err, "finish crawl job")
	}
	if tag.RowsAffected() == 0 {
		return errors.Newf("crawl job %s is not running", job.ID)
	}
	return nil
}

func (r *CrawlJobRepoImpl) FindByID(ctx context.Context, id string) (*entity.CrawlJob, error) {
	query := `
		SELECT id, source_id, status, started_at, finished_at, found, processed, errors, duration_ms, error
		FROM crawl_jobs WHERE id = $1;
	`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *CrawlJobRepoImpl) ListByStatus(ctx context.Context, status entity.JobStatus, limit int) ([]*entity.CrawlJob, error) {
	query := `
		SELECT id, source_id, status, started_at, finished_at, found, processed, errors, duration_ms, error
		FROM crawl_jobs WHERE status = $1 ORDER BY started_at DESC LIMIT $2;
	`
	rows, err := r.db.Query(ctx, query, status, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list crawl jobs")
	}
	defer rows.Close()

	var jobs []*entity.CrawlJob
	for rows.Next() {
		j, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *CrawlJobRepoImpl) scanOne(row pgx.Row) (*entity.CrawlJob, error) {
	var j entity.CrawlJob
	var durationMS int64
	if err := row.Scan(
		&j.ID, &j.SourceID, &j.Status, &j.StartedAt, &j.FinishedAt,
		&j.Stats.Found, &j.Stats.Processed, &j.Stats.Errors, &durationMS, &j.Error,
	); err != nil {
		return nil, err
	}
	j.Stats.Duration = time.Duration(durationMS) * time.Millisecond
	return &j, nil
}
