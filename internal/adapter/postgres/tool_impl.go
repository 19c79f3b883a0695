package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/toolscout-service/internal/entity"
)

// ToolRepoImpl provides the ToolRepository implementation using PostgreSQL.
type ToolRepoImpl struct {
	db *pgxpool.Pool
}

// NewToolRepo creates a new instance of ToolRepoImpl.
func NewToolRepo(db *pgxpool.Pool) *ToolRepoImpl {
	return &ToolRepoImpl{db: db}
}

func (r *ToolRepoImpl) Insert(ctx context.Context, tool *entity.Tool) error {
	query := `
		INSERT INTO tools (id, slug, name, summary, detail, url, repository, license, install_command,
		                   source_score, popularity_score, quality_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW());
	`
	_, err := r.db.Exec(ctx, query,
		tool.ID, tool.Slug, tool.Name, tool.Summary, tool.Detail,
		tool.URL, tool.Repository, tool.License, tool.InstallCommand,
		tool.SourceScore, tool.PopularityScore, tool.QualityScore,
	)
	return errors.Wrap(err, "insert tool")
}

// UpsertTagBySlug creates the tag when missing. The dummy update on conflict
// lets RETURNING yield the existing row.
func (r *ToolRepoImpl) UpsertTagBySlug(ctx context.Context, slug, name string) (*entity.Tag, error) {
	query := `
		INSERT INTO tags (id, slug, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET name = tags.name
		RETURNING id, slug, name;
	`
	var tag entity.Tag
	err := r.db.QueryRow(ctx, query, newID(), slug, name).Scan(&tag.ID, &tag.Slug, &tag.Name)
	if err != nil {
		return nil, errors.Wrap(err, "upsert tag")
	}
	return &tag, nil
}

func (r *ToolRepoImpl) AssociateTag(ctx context.Context, toolID, tagID string) error {
	query := `
		INSERT INTO tool_tags (tool_id, tag_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING;
	`
	_, err := r.db.Exec(ctx, query, toolID, tagID)
	return errors.Wrap(err, "associate tag")
}

func (r *ToolRepoImpl) FindCategoryBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	query := `SELECT id, slug, name FROM categories WHERE slug = $1;`
	var cat entity.Category
	err := r.db.QueryRow(ctx, query, slug).Scan(&cat.ID, &cat.Slug, &cat.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find category")
	}
	return &cat, nil
}

func (r *ToolRepoImpl) AssociateCategory(ctx context.Context, toolID, categoryID string) error {
	query := `
		INSERT INTO tool_categories (tool_id, category_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING;
	`
	_, err := r.db.Exec(ctx, query, toolID, categoryID)
	return errors.Wrap(err, "associate category")
}
