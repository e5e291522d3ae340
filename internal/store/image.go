package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/floorvault/apiserver/types"
	"github.com/jmoiron/sqlx"
)

// ImageRepository handles persistence for images.
type ImageRepository struct {
	db *sqlx.DB
}

func NewImageRepository(db *sqlx.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// ImageFilter narrows image listings. Zero values mean "any".
type ImageFilter struct {
	OwnerID    *int
	CategoryID *string
}

const imageColumns = `id, name, size, product_url, image_url, thumbnail_url, category_id, user_id, uploaded_at`

const detailQuery = `
	SELECT i.id, i.name, i.size, i.product_url, i.image_url, i.thumbnail_url,
	       i.category_id, i.user_id, i.uploaded_at,
	       COALESCE(u.name, '') AS "uploader.name",
	       COALESCE(u.email, '') AS "uploader.email",
	       COALESCE(c.id, '') AS "category.id",
	       COALESCE(c.name, '') AS "category.name"
	FROM images i
	LEFT JOIN users u ON u.id = i.user_id
	LEFT JOIN categories c ON c.id = i.category_id`

func (r *ImageRepository) Get(ctx context.Context, id string) (types.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`
	var image types.Image
	if err := r.db.GetContext(ctx, &image, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Image{}, ErrNotFound
		}
		return types.Image{}, err
	}
	return image, nil
}

func (r *ImageRepository) GetDetail(ctx context.Context, id string) (types.ImageDetail, error) {
	query := detailQuery + ` WHERE i.id = $1`
	var detail types.ImageDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ImageDetail{}, ErrNotFound
		}
		return types.ImageDetail{}, err
	}
	return detail, nil
}

func (r *ImageRepository) ListDetails(ctx context.Context, filter ImageFilter) ([]types.ImageDetail, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conditions = append(conditions, "i.user_id = $"+strconv.Itoa(len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, "i.category_id = $"+strconv.Itoa(len(args)))
	}

	query := detailQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY i.uploaded_at DESC, i.id DESC"

	details := []types.ImageDetail{}
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, err
	}
	return details, nil
}

// FindByProductURL returns the image carrying exactly the given product URL.
func (r *ImageRepository) FindByProductURL(ctx context.Context, productURL string) (types.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE product_url = $1 LIMIT 1`
	var image types.Image
	if err := r.db.GetContext(ctx, &image, query, productURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Image{}, ErrNotFound
		}
		return types.Image{}, err
	}
	return image, nil
}

// Create allocates the next sequence number of the image's category and
// inserts the row in the same transaction, so concurrent uploads to one
// category never derive the same id. image.ID is overwritten.
func (r *ImageRepository) Create(ctx context.Context, image types.Image) (types.Image, error) {
	if image.UploadedAt.IsZero() {
		image.UploadedAt = time.Now()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return types.Image{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const nextSeq = `
		UPDATE category_image_sequences
		SET next_seq = next_seq + 1
		WHERE category_id = $1
		RETURNING next_seq - 1`
	var seq int
	if err := tx.QueryRowxContext(ctx, nextSeq, image.CategoryID).Scan(&seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Image{}, ErrNotFound
		}
		return types.Image{}, err
	}
	image.ID = types.ImageID(image.CategoryID, seq)

	const insert = `
		INSERT INTO images (id, name, size, product_url, image_url, thumbnail_url, category_id, user_id, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.ExecContext(
		ctx,
		insert,
		image.ID,
		image.Name,
		image.SizeBytes,
		image.ProductURL,
		image.ImageURL,
		image.ThumbnailURL,
		image.CategoryID,
		image.OwnerUserID,
		image.UploadedAt,
	); err != nil {
		return types.Image{}, translate(err)
	}

	if err := tx.Commit(); err != nil {
		return types.Image{}, err
	}
	return image, nil
}

// Update changes the editable fields: name, product URL and category.
func (r *ImageRepository) Update(ctx context.Context, image types.Image) (types.Image, error) {
	const query = `
		UPDATE images
		SET name = $1,
			product_url = $2,
			category_id = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, image.Name, image.ProductURL, image.CategoryID, image.ID)
	if err != nil {
		return types.Image{}, translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Image{}, err
	}
	if affected == 0 {
		return types.Image{}, ErrNotFound
	}
	return r.Get(ctx, image.ID)
}

func (r *ImageRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM images WHERE id = $1`
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

// ListImageURLs returns the original image URLs of a category in upload order.
func (r *ImageRepository) ListImageURLs(ctx context.Context, categoryID string) ([]string, error) {
	const query = `SELECT image_url FROM images WHERE category_id = $1 ORDER BY uploaded_at ASC, id ASC`
	urls := []string{}
	if err := r.db.SelectContext(ctx, &urls, query, categoryID); err != nil {
		return nil, err
	}
	return urls, nil
}
