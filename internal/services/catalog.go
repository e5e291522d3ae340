package services

import (
	"context"
	"strings"

	"github.com/floorvault/apiserver/internal/store"
	"github.com/floorvault/apiserver/types"
)

// CatalogReader reads the public views of the catalog.
type CatalogReader interface {
	ListCatalog(ctx context.Context, excludeID string) ([]store.CatalogRow, error)
}

// PresetReader lists the image URLs of a category.
type PresetReader interface {
	ListImageURLs(ctx context.Context, categoryID string) ([]string, error)
}

type CatalogProduct struct {
	Name         string  `json:"name"`
	ProductURL   *string `json:"productUrl"`
	ImageURL     string  `json:"imageUrl"`
	ThumbnailURL string  `json:"thumbnailUrl"`
}

type CatalogGroup struct {
	Category string           `json:"category"`
	Products []CatalogProduct `json:"products"`
}

// CatalogService serves the unauthenticated storefront views.
type CatalogService struct {
	categories CatalogReader
	images     PresetReader
}

func NewCatalogService(categories CatalogReader, images PresetReader) *CatalogService {
	return &CatalogService{categories: categories, images: images}
}

// Catalog groups every image by category name, leaving out the preset
// category. Categories without images appear with no products.
func (s *CatalogService) Catalog(ctx context.Context) ([]CatalogGroup, error) {
	rows, err := s.categories.ListCatalog(ctx, types.PresetCategoryID)
	if err != nil {
		return nil, internal("list catalog", err)
	}

	groups := []CatalogGroup{}
	for _, row := range rows {
		if len(groups) == 0 || groups[len(groups)-1].Category != row.CategoryName {
			groups = append(groups, CatalogGroup{Category: row.CategoryName, Products: []CatalogProduct{}})
		}
		if row.ImageURL == nil {
			continue
		}

		product := CatalogProduct{ProductURL: row.ProductURL, ImageURL: *row.ImageURL}
		if row.ImageName != nil {
			product.Name = *row.ImageName
		}
		if row.ThumbnailURL != nil {
			product.ThumbnailURL = *row.ThumbnailURL
		}
		last := &groups[len(groups)-1]
		last.Products = append(last.Products, product)
	}
	return groups, nil
}

// Presets returns absolute URLs of the preset category's images, resolved
// against baseURL.
func (s *CatalogService) Presets(ctx context.Context, baseURL string) ([]string, error) {
	urls, err := s.images.ListImageURLs(ctx, types.PresetCategoryID)
	if err != nil {
		return nil, internal("list presets", err)
	}

	baseURL = strings.TrimSuffix(baseURL, "/")
	presets := make([]string, 0, len(urls))
	for _, url := range urls {
		if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
			presets = append(presets, url)
			continue
		}
		presets = append(presets, baseURL+"/"+strings.TrimPrefix(url, "/"))
	}
	return presets, nil
}
