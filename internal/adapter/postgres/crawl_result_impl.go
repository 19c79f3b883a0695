package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/toolscout-service/internal/entity"
)

// CrawlResultRepoImpl provides the CrawlResultRepository implementation using PostgreSQL.
type CrawlResultRepoImpl struct {
	db *pgxpool.Pool
}

// NewCrawlResultRepo creates a new instance of CrawlResultRepoImpl.
func NewCrawlResultRepo(db *pgxpool.Pool) *CrawlResultRepoImpl {
	return &CrawlResultRepoImpl{db: db}
}

// Insert stores the result, relying on the dedupe_hash unique constraint for
// idempotent ingestion. ON CONFLICT DO NOTHING makes the duplicate path a
// silent skip; RowsAffected tells the two cases apart.
func (r *CrawlResultRepoImpl) Insert(ctx context.Context, result *entity.CrawlResult) (bool, error) {
	query := `
		INSERT INTO crawl_results (id, job_id, url, title, description, readme, metadata, dedupe_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (dedupe_hash) DO NOTHING;
	`
	tag, err := r.db.Exec(ctx, query,
		result.ID,
		result.JobID,
		result.URL,
		result.Title,
		result.Description,
		result.Readme,
		[]byte(result.Metadata),
		result.DedupeHash,
	)
	if err != nil {
		return false, errors.Wrap(err, "insert crawl result")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CrawlResultRepoImpl) FindByID(ctx context.Context, id string) (*entity.CrawlResult, error) {
	query := `
		SELECT id, job_id, url, title, description, readme, metadata, dedupe_hash, created_at
		FROM crawl_results WHERE id = $1;
	`
	var res entity.CrawlResult
	var metadata []byte
	err := r.db.QueryRow(ctx, query, id).Scan(
		&res.ID, &res.JobID, &res.URL, &res.Title, &res.Description,
		&res.Readme, &metadata, &res.DedupeHash, &res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.Metadata = metadata
	return &res, nil
}
