package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/floorvault/apiserver/types"
	"github.com/jmoiron/sqlx"
)

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const summaryQuery = `
	SELECT c.id, c.name, c.slug, c.description, c.user_id, c.created_at, c.updated_at,
	       COALESCE(u.name, '') AS "creator.name",
	       COALESCE(u.email, '') AS "creator.email",
	       COUNT(DISTINCT i.id) AS images_qty,
	       COALESCE(SUM(i.size), 0) AS total_size
	FROM categories c
	LEFT JOIN users u ON u.id = c.user_id
	LEFT JOIN images i ON i.category_id = c.id`

const summaryGroupBy = `
	GROUP BY c.id, c.name, c.slug, c.description, c.user_id, c.created_at, c.updated_at, u.name, u.email`

func (r *CategoryRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM categories`); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *CategoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (types.Category, error) {
	const query = `
		SELECT id, name, slug, description, user_id, created_at, updated_at
		FROM categories
		WHERE id = $1`
	var category types.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, err
	}
	return category, nil
}

func (r *CategoryRepository) GetSummary(ctx context.Context, id string) (types.CategorySummary, error) {
	query := summaryQuery + ` WHERE c.id = $1` + summaryGroupBy
	var summary types.CategorySummary
	if err := r.db.GetContext(ctx, &summary, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.CategorySummary{}, ErrNotFound
		}
		return types.CategorySummary{}, err
	}
	return summary, nil
}

// FindByName looks a category up by name, ignoring case.
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (types.Category, error) {
	const query = `
		SELECT id, name, slug, description, user_id, created_at, updated_at
		FROM categories
		WHERE LOWER(name) = LOWER($1)
		LIMIT 1`
	var category types.Category
	if err := r.db.GetContext(ctx, &category, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, err
	}
	return category, nil
}

// ListSummaries returns categories with aggregates. A nil ownerID lists every category.
func (r *CategoryRepository) ListSummaries(ctx context.Context, ownerID *int) ([]types.CategorySummary, error) {
	query := summaryQuery
	args := []any{}
	if ownerID != nil {
		query += ` WHERE c.user_id = $1`
		args = append(args, *ownerID)
	}
	query += summaryGroupBy + ` ORDER BY c.id`

	summaries := []types.CategorySummary{}
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Create inserts the category together with its image sequence row.
func (r *CategoryRepository) Create(ctx context.Context, category types.Category) (types.Category, error) {
	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return types.Category{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertCategory = `
		INSERT INTO categories (id, name, slug, description, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(
		ctx,
		insertCategory,
		category.ID,
		category.Name,
		category.Slug,
		category.Description,
		category.OwnerUserID,
		category.CreatedAt,
		category.UpdatedAt,
	); err != nil {
		return types.Category{}, translate(err)
	}

	const insertSequence = `INSERT INTO category_image_sequences (category_id, next_seq) VALUES ($1, 0)`
	if _, err := tx.ExecContext(ctx, insertSequence, category.ID); err != nil {
		return types.Category{}, translate(err)
	}

	if err := tx.Commit(); err != nil {
		return types.Category{}, err
	}
	return category, nil
}

// Update changes name and description. The slug is never rewritten.
func (r *CategoryRepository) Update(ctx context.Context, category types.Category) (types.Category, error) {
	category.UpdatedAt = time.Now()

	const query = `
		UPDATE categories
		SET name = $1,
			description = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, category.Name, category.Description, category.UpdatedAt, category.ID)
	if err != nil {
		return types.Category{}, translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Category{}, err
	}
	if affected == 0 {
		return types.Category{}, ErrNotFound
	}
	return r.Get(ctx, category.ID)
}

// Delete removes the category; image rows and the sequence row cascade.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM categories WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CatalogRow is one category/image pair of the public catalog listing.
// Image columns are nil for categories without images.
type CatalogRow struct {
	CategoryName string  `db:"category_name"`
	ImageName    *string `db:"image_name"`
	ProductURL   *string `db:"product_url"`
	ImageURL     *string `db:"image_url"`
	ThumbnailURL *string `db:"thumbnail_url"`
}

// ListCatalog returns every category except excludeID joined with its images, ordered by category name.
func (r *CategoryRepository) ListCatalog(ctx context.Context, excludeID string) ([]CatalogRow, error) {
	const query = `
		SELECT c.name AS category_name,
		       i.name AS image_name,
		       i.product_url,
		       i.image_url,
		       i.thumbnail_url
		FROM categories c
		LEFT JOIN images i ON i.category_id = c.id
		WHERE c.id <> $1
		ORDER BY c.name ASC, i.uploaded_at ASC`
	rows := []CatalogRow{}
	if err := r.db.SelectContext(ctx, &rows, query, excludeID); err != nil {
		return nil, err
	}
	return rows, nil
}
