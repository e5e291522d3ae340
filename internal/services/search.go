package services

import (
	"context"
	"strings"

	"github.com/floorvault/apiserver/internal/store"
)

const (
	searchLimit       = 5
	msgSearchRequired = "search query is required"
)

// Searcher looks up categories and images by name.
type Searcher interface {
	Search(ctx context.Context, q string, limit int) ([]store.CategoryHit, []store.ImageHit, error)
}

type SearchResult struct {
	Categories []store.CategoryHit `json:"categories"`
	Images     []store.ImageHit    `json:"images"`
}

// SearchService runs the dashboard's quick search.
type SearchService struct {
	searcher Searcher
}

func NewSearchService(searcher Searcher) *SearchService {
	return &SearchService{searcher: searcher}
}

// Search returns at most five categories and five images whose names
// contain q, ignoring case.
func (s *SearchService) Search(ctx context.Context, q string) (SearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return SearchResult{}, badRequest(msgSearchRequired)
	}

	categories, images, err := s.searcher.Search(ctx, q, searchLimit)
	if err != nil {
		return SearchResult{}, internal("search", err)
	}
	return SearchResult{Categories: categories, Images: images}, nil
}
