package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/floorvault/apiserver/internal/services"
	"github.com/floorvault/apiserver/internal/storage"
	"github.com/floorvault/apiserver/internal/store"
	"github.com/floorvault/apiserver/internal/thumbnail"
	"github.com/floorvault/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

type userRepo struct {
	mu    sync.Mutex
	users map[int]types.User
}

func (r *userRepo) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]types.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *userRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = len(r.users) + 1
	r.users[user.ID] = user
	return user, nil
}

func (r *userRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	r.users[id] = u
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type categoryRepo struct {
	mu         sync.Mutex
	categories map[string]types.Category
	images     *imageRepo
}

func (r *categoryRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.categories), nil
}

func (r *categoryRepo) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.categories[id]
	return ok, nil
}

func (r *categoryRepo) Get(ctx context.Context, id string) (types.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (r *categoryRepo) GetSummary(ctx context.Context, id string) (types.CategorySummary, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return types.CategorySummary{}, err
	}
	return types.CategorySummary{Category: c, ImagesQty: r.images.count(id)}, nil
}

func (r *categoryRepo) FindByName(ctx context.Context, name string) (types.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return types.Category{}, store.ErrNotFound
}

func (r *categoryRepo) ListSummaries(ctx context.Context, ownerID *int) ([]types.CategorySummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []types.CategorySummary{}
	for _, c := range r.categories {
		if ownerID != nil && c.OwnerUserID != *ownerID {
			continue
		}
		out = append(out, types.CategorySummary{Category: c, ImagesQty: r.images.count(c.ID)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *categoryRepo) Create(ctx context.Context, category types.Category) (types.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	category.CreatedAt = time.Now()
	category.UpdatedAt = category.CreatedAt
	r.categories[category.ID] = category
	return category, nil
}

func (r *categoryRepo) Update(ctx context.Context, category types.Category) (types.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[category.ID]; !ok {
		return types.Category{}, store.ErrNotFound
	}
	r.categories[category.ID] = category
	return category, nil
}

func (r *categoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.categories, id)
	return nil
}

type imageRepo struct {
	mu     sync.Mutex
	images map[string]types.Image
	seq    map[string]int
}

func (r *imageRepo) count(categoryID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, img := range r.images {
		if img.CategoryID == categoryID {
			n++
		}
	}
	return n
}

func (r *imageRepo) Get(ctx context.Context, id string) (types.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return types.Image{}, store.ErrNotFound
	}
	return img, nil
}

func (r *imageRepo) GetDetail(ctx context.Context, id string) (types.ImageDetail, error) {
	img, err := r.Get(ctx, id)
	if err != nil {
		return types.ImageDetail{}, err
	}
	return types.ImageDetail{Image: img}, nil
}

func (r *imageRepo) ListDetails(ctx context.Context, filter store.ImageFilter) ([]types.ImageDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []types.ImageDetail{}
	for _, img := range r.images {
		if filter.OwnerID != nil && img.OwnerUserID != *filter.OwnerID {
			continue
		}
		if filter.CategoryID != nil && img.CategoryID != *filter.CategoryID {
			continue
		}
		out = append(out, types.ImageDetail{Image: img})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *imageRepo) FindByProductURL(ctx context.Context, productURL string) (types.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range r.images {
		if img.ProductURL != nil && *img.ProductURL == productURL {
			return img, nil
		}
	}
	return types.Image{}, store.ErrNotFound
}

func (r *imageRepo) Create(ctx context.Context, image types.Image) (types.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq := r.seq[image.CategoryID]
	r.seq[image.CategoryID] = seq + 1
	image.ID = types.ImageID(image.CategoryID, seq)
	r.images[image.ID] = image
	return image, nil
}

func (r *imageRepo) Update(ctx context.Context, image types.Image) (types.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.images[image.ID]; !ok {
		return types.Image{}, store.ErrNotFound
	}
	r.images[image.ID] = image
	return image, nil
}

func (r *imageRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.images[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.images, id)
	return nil
}

// testEnv is a router backed by in-memory repositories and an afero
// filesystem.
type testEnv struct {
	router     http.Handler
	users      *userRepo
	categories *categoryRepo
	images     *imageRepo
	fs         afero.Fs
	blobs      *storage.Storage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	images := &imageRepo{images: map[string]types.Image{}, seq: map[string]int{}}
	env := &testEnv{
		users:      &userRepo{users: map[int]types.User{}},
		categories: &categoryRepo{categories: map[string]types.Category{}, images: images},
		images:     images,
		fs:         afero.NewMemMapFs(),
	}
	env.blobs = storage.NewStorage(storage.NewLocalStorage(env.fs, "/uploads"))

	auth := services.NewAuthService(env.users)
	categories := services.NewCategoryService(env.categories, nil)
	imageSvc := services.NewImageService(env.images, env.categories, env.blobs, nil)
	ingest := services.NewIngestService(env.categories, env.images, env.blobs, thumbnail.NewGenerator(types.ThumbnailSize), nil, 1<<20)
	authMiddleware := RequireAuth(auth, testSecret)

	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Route("/auth", func(r chi.Router) {
		AuthRouter(r, auth, testSecret, time.Hour)
	})
	r.Route("/categories", func(r chi.Router) {
		CategoryRouter(r, categories, imageSvc, ingest, UploadLimits{MaxFileBytes: 1 << 20, MaxRequestBytes: 8 << 20}, authMiddleware)
	})
	r.Route("/images", func(r chi.Router) {
		ImageRouter(r, imageSvc, authMiddleware)
	})
	r.Get(storage.URLPrefix+"*", NewUploadsHandler(env.blobs).Serve)
	env.router = r
	return env
}

// addUser stores an active account and returns a bearer token for it.
func (e *testEnv) addUser(t *testing.T, email, password, role string) (types.User, string) {
	t.Helper()

	hash, err := services.HashPassword(password)
	require.NoError(t, err)
	user, err := e.users.Create(context.Background(), types.User{
		Email:        email,
		PasswordHash: hash,
		Name:         email,
		RoleName:     role,
		IsActive:     true,
	})
	require.NoError(t, err)

	token, err := issueToken(user.ID, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return user, token
}
