package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/floorvault/apiserver/internal/access"
	"github.com/floorvault/apiserver/internal/storage"
	"github.com/floorvault/apiserver/internal/store"
	"github.com/floorvault/apiserver/types"
)

const (
	msgImageNameRequired  = "image name is required"
	msgImageNameTooLong   = "image name is too long"
	msgProductURLTaken    = "product url already in use"
	msgImageOtherCategory = "image does not belong to this category"
)

// ImageRepository defines persistence operations for images.
type ImageRepository interface {
	Get(ctx context.Context, id string) (types.Image, error)
	GetDetail(ctx context.Context, id string) (types.ImageDetail, error)
	ListDetails(ctx context.Context, filter store.ImageFilter) ([]types.ImageDetail, error)
	FindByProductURL(ctx context.Context, productURL string) (types.Image, error)
	Create(ctx context.Context, image types.Image) (types.Image, error)
	Update(ctx context.Context, image types.Image) (types.Image, error)
	Delete(ctx context.Context, id string) error
}

// BlobStore is the part of object storage the catalog writes to.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// ImageInput carries the editable fields of an image. A nil CategoryID
// keeps the current category.
type ImageInput struct {
	Name       string  `json:"name"`
	ProductURL *string `json:"productUrl"`
	CategoryID *string `json:"categoryId"`
}

// ImageView is an image detail plus the caller's capabilities on it.
type ImageView struct {
	types.ImageDetail
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
}

// ImageService encapsulates image use-cases other than ingestion.
type ImageService struct {
	images     ImageRepository
	categories CategoryRepository
	blobs      BlobStore
	events     *Events
}

func NewImageService(images ImageRepository, categories CategoryRepository, blobs BlobStore, events *Events) *ImageService {
	return &ImageService{
		images:     images,
		categories: categories,
		blobs:      blobs,
		events:     events,
	}
}

// List returns every image when all is set, otherwise only the caller's uploads.
func (s *ImageService) List(ctx context.Context, subject access.Subject, all bool) ([]types.ImageDetail, error) {
	filter := store.ImageFilter{}
	if !all {
		filter.OwnerID = &subject.UserID
	}
	details, err := s.images.ListDetails(ctx, filter)
	if err != nil {
		return nil, internal("list images", err)
	}
	return details, nil
}

// ListByCategory returns the images of one category.
func (s *ImageService) ListByCategory(ctx context.Context, subject access.Subject, categoryID string) ([]types.ImageDetail, error) {
	exists, err := s.categories.Exists(ctx, categoryID)
	if err != nil {
		return nil, internal("load category", err)
	}
	if !exists {
		return nil, notFound(MsgCategoryNotFound)
	}

	details, err := s.images.ListDetails(ctx, store.ImageFilter{CategoryID: &categoryID})
	if err != nil {
		return nil, internal("list images", err)
	}
	return details, nil
}

func (s *ImageService) Get(ctx context.Context, subject access.Subject, id string) (ImageView, error) {
	detail, err := s.images.GetDetail(ctx, id)
	if err != nil {
		return ImageView{}, imageLookupError(err)
	}

	caps := access.Evaluate(subject, access.Resource{Kind: access.KindImage, OwnerID: detail.OwnerUserID})
	if !caps.CanView {
		return ImageView{}, unauthorized(MsgUnauthorized)
	}
	return ImageView{ImageDetail: detail, CanEdit: caps.CanEdit, CanDelete: caps.CanDelete}, nil
}

// Update edits name, product URL and category. Moving an image to another
// category does not move its files or change its id.
func (s *ImageService) Update(ctx context.Context, subject access.Subject, id string, input ImageInput) (types.Image, error) {
	current, err := s.images.Get(ctx, id)
	if err != nil {
		return types.Image{}, imageLookupError(err)
	}
	if !access.Evaluate(subject, access.Resource{Kind: access.KindImage, OwnerID: current.OwnerUserID}).CanEdit {
		return types.Image{}, forbidden(MsgForbidden)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return types.Image{}, badRequest(msgImageNameRequired)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return types.Image{}, badRequest(msgImageNameTooLong)
	}

	productURL := normalizeOptional(input.ProductURL)
	if productURL != nil && (current.ProductURL == nil || *current.ProductURL != *productURL) {
		other, err := s.images.FindByProductURL(ctx, *productURL)
		switch {
		case err == nil && other.ID != current.ID:
			return types.Image{}, conflict(msgProductURLTaken)
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return types.Image{}, internal("check product url", err)
		}
	}

	categoryID := current.CategoryID
	if input.CategoryID != nil {
		requested := strings.TrimSpace(*input.CategoryID)
		if requested != "" && requested != current.CategoryID {
			exists, err := s.categories.Exists(ctx, requested)
			if err != nil {
				return types.Image{}, internal("load category", err)
			}
			if !exists {
				return types.Image{}, badRequest(MsgCategoryMissing)
			}
			categoryID = requested
		}
	}

	current.Name = name
	current.ProductURL = productURL
	current.CategoryID = categoryID
	updated, err := s.images.Update(ctx, current)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return types.Image{}, notFound(MsgImageNotFound)
		case errors.Is(err, store.ErrConflict):
			return types.Image{}, conflict(msgProductURLTaken)
		case errors.Is(err, store.ErrRestricted):
			return types.Image{}, badRequest(MsgCategoryMissing)
		}
		return types.Image{}, internal("update image", err)
	}
	return updated, nil
}

// Delete removes the image row and, best-effort, its original and thumbnail.
func (s *ImageService) Delete(ctx context.Context, subject access.Subject, id string) error {
	current, err := s.images.Get(ctx, id)
	if err != nil {
		return imageLookupError(err)
	}
	return s.delete(ctx, subject, current)
}

// DeleteFromCategory is Delete for an image addressed through its category.
func (s *ImageService) DeleteFromCategory(ctx context.Context, subject access.Subject, categoryID, id string) error {
	current, err := s.images.Get(ctx, id)
	if err != nil {
		return imageLookupError(err)
	}
	if current.CategoryID != categoryID {
		return badRequest(msgImageOtherCategory)
	}
	return s.delete(ctx, subject, current)
}

func (s *ImageService) delete(ctx context.Context, subject access.Subject, image types.Image) error {
	if !access.Evaluate(subject, access.Resource{Kind: access.KindImage, OwnerID: image.OwnerUserID}).CanDelete {
		return forbidden(MsgForbidden)
	}

	for _, url := range []string{image.ImageURL, image.ThumbnailURL} {
		s.removeBlob(ctx, url)
	}

	if err := s.images.Delete(ctx, image.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(MsgImageNotFound)
		}
		return internal("delete image", err)
	}

	s.events.Emit(ctx, EventImageDeleted, image.CategoryID, image.ID, subject.UserID)
	return nil
}

func (s *ImageService) removeBlob(ctx context.Context, url string) {
	key, ok := storage.KeyFromURL(url)
	if !ok {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			slog.Debug("image blob already gone", "key", key)
			return
		}
		slog.Warn("remove image blob failed", "key", key, "error", err)
	}
}

func imageLookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(MsgImageNotFound)
	}
	return internal("load image", err)
}
