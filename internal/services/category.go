package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/floorvault/apiserver/internal/access"
	"github.com/floorvault/apiserver/internal/slug"
	"github.com/floorvault/apiserver/internal/store"
	"github.com/floorvault/apiserver/types"
)

const (
	maxCategoryIDAttempts = 100
	maxNameLength         = 150
)

const (
	msgCategoryNameRequired = "category name is required"
	msgCategoryNameTooLong  = "category name is too long"
	msgCategoryNameTaken    = "category name already exists"
	msgCategoryIDExhausted  = "could not allocate a category id"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	Count(ctx context.Context) (int, error)
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (types.Category, error)
	GetSummary(ctx context.Context, id string) (types.CategorySummary, error)
	FindByName(ctx context.Context, name string) (types.Category, error)
	ListSummaries(ctx context.Context, ownerID *int) ([]types.CategorySummary, error)
	Create(ctx context.Context, category types.Category) (types.Category, error)
	Update(ctx context.Context, category types.Category) (types.Category, error)
	Delete(ctx context.Context, id string) error
}

// CategoryInput carries the editable fields of a category.
type CategoryInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// CategoryDetail is a category summary plus the caller's capabilities on it.
type CategoryDetail struct {
	types.CategorySummary
	IsOwner   bool `json:"isOwner"`
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
}

// CategoryService encapsulates category use-cases.
type CategoryService struct {
	repo   CategoryRepository
	events *Events
}

func NewCategoryService(repo CategoryRepository, events *Events) *CategoryService {
	return &CategoryService{repo: repo, events: events}
}

// List returns every category when all is set, otherwise only the caller's.
func (s *CategoryService) List(ctx context.Context, subject access.Subject, all bool) ([]types.CategorySummary, error) {
	var ownerID *int
	if !all {
		ownerID = &subject.UserID
	}
	summaries, err := s.repo.ListSummaries(ctx, ownerID)
	if err != nil {
		return nil, internal("list categories", err)
	}
	return summaries, nil
}

func (s *CategoryService) Get(ctx context.Context, subject access.Subject, id string) (CategoryDetail, error) {
	summary, err := s.repo.GetSummary(ctx, id)
	if err != nil {
		return CategoryDetail{}, categoryLookupError(err)
	}

	caps := access.Evaluate(subject, access.Resource{Kind: access.KindCategory, OwnerID: summary.OwnerUserID})
	if !caps.CanView {
		return CategoryDetail{}, unauthorized(MsgUnauthorized)
	}
	return CategoryDetail{
		CategorySummary: summary,
		IsOwner:         summary.OwnerUserID == subject.UserID,
		CanEdit:         caps.CanEdit,
		CanDelete:       caps.CanDelete,
	}, nil
}

// Create assigns the next free six digit id and an immutable slug, then
// stores the category owned by the caller.
func (s *CategoryService) Create(ctx context.Context, subject access.Subject, input CategoryInput) (types.Category, error) {
	name, err := validateCategoryName(input.Name)
	if err != nil {
		return types.Category{}, err
	}

	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return types.Category{}, conflict(msgCategoryNameTaken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Category{}, internal("check category name", err)
	}

	id, err := s.nextID(ctx)
	if err != nil {
		return types.Category{}, err
	}

	folder := slug.Make(name)
	if folder == "" {
		folder = id
	}

	created, err := s.repo.Create(ctx, types.Category{
		ID:          id,
		Name:        name,
		Slug:        folder,
		Description: normalizeOptional(input.Description),
		OwnerUserID: subject.UserID,
	})
	if err != nil {
		return types.Category{}, categoryWriteError(err)
	}
	return created, nil
}

// Update renames or re-describes a category. The name uniqueness check only
// runs when the name changes other than by case.
func (s *CategoryService) Update(ctx context.Context, subject access.Subject, id string, input CategoryInput) (types.Category, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Category{}, categoryLookupError(err)
	}
	if !access.Evaluate(subject, access.Resource{Kind: access.KindCategory, OwnerID: current.OwnerUserID}).CanEdit {
		return types.Category{}, forbidden(MsgForbidden)
	}

	name, err := validateCategoryName(input.Name)
	if err != nil {
		return types.Category{}, err
	}

	if !strings.EqualFold(name, current.Name) {
		if _, err := s.repo.FindByName(ctx, name); err == nil {
			return types.Category{}, conflict(msgCategoryNameTaken)
		} else if !errors.Is(err, store.ErrNotFound) {
			return types.Category{}, internal("check category name", err)
		}
	}

	current.Name = name
	current.Description = normalizeOptional(input.Description)
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Category{}, notFound(MsgCategoryNotFound)
		}
		return types.Category{}, categoryWriteError(err)
	}
	return updated, nil
}

// Delete removes a category. Its image rows go with it; stored files stay.
func (s *CategoryService) Delete(ctx context.Context, subject access.Subject, id string) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return categoryLookupError(err)
	}
	if !access.Evaluate(subject, access.Resource{Kind: access.KindCategory, OwnerID: current.OwnerUserID}).CanDelete {
		return forbidden(MsgForbidden)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(MsgCategoryNotFound)
		}
		return internal("delete category", err)
	}

	s.events.Emit(ctx, EventCategoryDeleted, id, "", subject.UserID)
	return nil
}

// nextID starts at the zero padded category count and probes upwards.
func (s *CategoryService) nextID(ctx context.Context) (string, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return "", internal("count categories", err)
	}

	for attempt := 0; attempt < maxCategoryIDAttempts; attempt++ {
		id := fmt.Sprintf("%06d", count+attempt)
		exists, err := s.repo.Exists(ctx, id)
		if err != nil {
			return "", internal("probe category id", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", internal(msgCategoryIDExhausted, nil)
}

func validateCategoryName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", badRequest(msgCategoryNameRequired)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", badRequest(msgCategoryNameTooLong)
	}
	return name, nil
}

func categoryLookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(MsgCategoryNotFound)
	}
	return internal("load category", err)
}

// categoryWriteError maps store failures of a category write. Only the name
// index is a user error; a primary key clash means a concurrent create won
// the same id.
func categoryWriteError(err error) error {
	if errors.Is(err, store.ErrConflict) && store.Constraint(err) == "categories_name_lower_key" {
		return conflict(msgCategoryNameTaken)
	}
	return internal("save category", err)
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
