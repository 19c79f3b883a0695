package postgres

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/toolscout-service/internal/entity"
)

// SourceRepoImpl provides the SourceRepository implementation using PostgreSQL.
type SourceRepoImpl struct {
	db *pgxpool.Pool
}

// NewSourceRepo creates a new instance of SourceRepoImpl.
func NewSourceRepo(db *pgxpool.Pool) *SourceRepoImpl {
	return &SourceRepoImpl{db: db}
}

func (r *SourceRepoImpl) Create(ctx context.Context, source *entity.Source) error {
	configJSON, err := json.Marshal(source.Config)
	if err != nil {
		return errors.Wrap(err, "marshal source config")
	}

	query := `
		INSERT INTO sources (id, kind, identifier, enabled, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW());
	`
	_, err = r.db.Exec(ctx, query, source.ID, source.Kind, source.Identifier, source.Enabled, configJSON)
	return errors.Wrap(err, "insert source")
}

func (r *SourceRepoImpl) FindByID(ctx context.Context, id string) (*entity.Source, error) {
	query := `
		SELECT id, kind, identifier, enabled, config, created_at, updated_at
		FROM sources WHERE id = $1;
	`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *SourceRepoImpl) ListEnabled(ctx context.Context) ([]*entity.Source, error) {
	query := `
		SELECT id, kind, identifier, enabled, config, created_at, updated_at
		FROM sources WHERE enabled ORDER BY created_at;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "list enabled sources")
	}
	defer rows.Close()

	var sources []*entity.Source
	for rows.Next() {
		s, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (r *SourceRepoImpl) SetEnabled(ctx context.Context, id string, enabled bool) error {
	query := `UPDATE sources SET enabled = $2, updated_at = NOW() WHERE id = $1;`
	_, err := r.db.Exec(ctx, query, id, enabled)
	return errors.Wrap(err, "set source enabled")
}

func (r *SourceRepoImpl) scanOne(row pgx.Row) (*entity.Source, error) {
	var s entity.Source
	var configJSON []byte
	if err := row.Scan(&s.ID, &s.Kind, &s.Identifier, &s.Enabled, &configJSON, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err // pgx.ErrNoRows passes through for callers to check
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &s.Config); err != nil {
			return nil, errors.Wrap(err, "unmarshal source config")
		}
	}
	return &s, nil
}
