package store

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

// SearchRepository runs substring lookups across categories and images.
type SearchRepository struct {
	db *sqlx.DB
}

func NewSearchRepository(db *sqlx.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// CategoryHit is a category matched by a search.
type CategoryHit struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// ImageHit is an image matched by a search.
type ImageHit struct {
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	ThumbnailURL string `json:"thumbnailUrl" db:"thumbnail_url"`
	CategoryName string `json:"categoryName" db:"category_name"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns up to limit categories and limit images whose name contains
// q, ignoring case. Both lookups run concurrently.
func (r *SearchRepository) Search(ctx context.Context, q string, limit int) ([]CategoryHit, []ImageHit, error) {
	pattern := "%" + likeEscaper.Replace(q) + "%"

	categories := []CategoryHit{}
	images := []ImageHit{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		const query = `
			SELECT id, name
			FROM categories
			WHERE name ILIKE $1
			ORDER BY name
			LIMIT $2`
		return r.db.SelectContext(gctx, &categories, query, pattern, limit)
	})
	g.Go(func() error {
		const query = `
			SELECT i.id, i.name, i.thumbnail_url, COALESCE(c.name, '') AS category_name
			FROM images i
			LEFT JOIN categories c ON c.id = i.category_id
			WHERE i.name ILIKE $1
			ORDER BY i.name
			LIMIT $2`
		return r.db.SelectContext(gctx, &images, query, pattern, limit)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return categories, images, nil
}
