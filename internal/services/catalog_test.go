package services

import (
	"context"
	"errors"
	"testing"

	"github.com/floorvault/apiserver/internal/store"
	"github.com/floorvault/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogReaderFake struct {
	rows    []store.CatalogRow
	urls    []string
	exclude string
}

func (f *catalogReaderFake) ListCatalog(ctx context.Context, excludeID string) ([]store.CatalogRow, error) {
	f.exclude = excludeID
	return f.rows, nil
}

func (f *catalogReaderFake) ListImageURLs(ctx context.Context, categoryID string) ([]string, error) {
	if categoryID != types.PresetCategoryID {
		return nil, errors.New("unexpected category")
	}
	return f.urls, nil
}

func TestCatalogGroupsByCategory(t *testing.T) {
	fake := &catalogReaderFake{rows: []store.CatalogRow{
		{CategoryName: "Ash"},
		{CategoryName: "Oak", ImageName: strPtr("a.jpg"), ImageURL: strPtr("/uploads/categories/oak/1-a.jpg"), ThumbnailURL: strPtr("/uploads/thumbnails/oak/1-a-300x300.jpg"), ProductURL: strPtr("https://shop/a")},
		{CategoryName: "Oak", ImageName: strPtr("b.jpg"), ImageURL: strPtr("/uploads/categories/oak/1-b.jpg"), ThumbnailURL: strPtr("/uploads/thumbnails/oak/1-b-300x300.jpg")},
	}}
	svc := NewCatalogService(fake, fake)

	groups, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.PresetCategoryID, fake.exclude)
	require.Len(t, groups, 2)
	assert.Equal(t, "Ash", groups[0].Category)
	assert.Empty(t, groups[0].Products)
	require.Len(t, groups[1].Products, 2)
	assert.Equal(t, "a.jpg", groups[1].Products[0].Name)
	assert.Equal(t, "https://shop/a", *groups[1].Products[0].ProductURL)
	assert.Nil(t, groups[1].Products[1].ProductURL)
}

func TestPresetsAreAbsolute(t *testing.T) {
	fake := &catalogReaderFake{urls: []string{"/uploads/categories/presets/1-x.jpg", "https://cdn.example.com/y.jpg"}}
	svc := NewCatalogService(fake, fake)

	urls, err := svc.Presets(context.Background(), "https://floor.vn/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://floor.vn/uploads/categories/presets/1-x.jpg",
		"https://cdn.example.com/y.jpg",
	}, urls)
}

type searcherFake struct {
	q     string
	limit int
}

func (f *searcherFake) Search(ctx context.Context, q string, limit int) ([]store.CategoryHit, []store.ImageHit, error) {
	f.q, f.limit = q, limit
	return []store.CategoryHit{{ID: "000005", Name: "Oak"}}, []store.ImageHit{}, nil
}

func TestSearch(t *testing.T) {
	fake := &searcherFake{}
	svc := NewSearchService(fake)

	_, err := svc.Search(context.Background(), "   ")
	assert.Equal(t, KindBadRequest, KindOf(err))

	result, err := svc.Search(context.Background(), " oak ")
	require.NoError(t, err)
	assert.Equal(t, "oak", fake.q)
	assert.Equal(t, 5, fake.limit)
	assert.Len(t, result.Categories, 1)
	assert.Empty(t, result.Images)
}

func TestEventsAreBestEffort(t *testing.T) {
	pub := &publisherFake{err: errors.New("broker down")}
	events := NewEvents(pub, "catalog-events")

	events.Emit(context.Background(), EventImageIngested, "000005", "000005_000000", 2)
	assert.Equal(t, 1, pub.count())
	assert.Equal(t, "catalog-events", pub.channels[0])

	var nilEvents *Events
	nilEvents.Emit(context.Background(), EventImageDeleted, "000005", "x", 2)
}

func TestErrorKinds(t *testing.T) {
	err := internal("load user", errors.New("boom"))
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindNotFound, KindOf(notFound(MsgUserNotFound)))
	assert.Equal(t, "not found", KindNotFound.String())
}
