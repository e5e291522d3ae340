package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/floorvault/apiserver/internal/access"
	"github.com/floorvault/apiserver/internal/storage"
	"github.com/floorvault/apiserver/internal/store"
	"github.com/floorvault/apiserver/internal/thumbnail"
	"github.com/floorvault/apiserver/types"
)

var (
	admin = access.Subject{UserID: 1, Role: types.RoleAdmin}
	alice = access.Subject{UserID: 2, Role: "Editor"}
	bob   = access.Subject{UserID: 3, Role: "Editor"}
)

// catalogFake backs both category and image repositories so cascades and
// per-category sequences behave like the database.
type catalogFake struct {
	mu         sync.Mutex
	categories map[string]types.Category
	images     map[string]types.Image
	seq        map[string]int
	findCalls  int
	createErr  error
}

func newCatalogFake() *catalogFake {
	return &catalogFake{
		categories: map[string]types.Category{},
		images:     map[string]types.Image{},
		seq:        map[string]int{},
	}
}

func (f *catalogFake) addCategory(c types.Category) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.Slug == "" {
		c.Slug = strings.ToLower(c.Name)
	}
	f.categories[c.ID] = c
	f.seq[c.ID] = 0
}

func (f *catalogFake) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.categories), nil
}

func (f *catalogFake) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.categories[id]
	return ok, nil
}

func (f *catalogFake) Get(ctx context.Context, id string) (types.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (f *catalogFake) summary(c types.Category) types.CategorySummary {
	s := types.CategorySummary{Category: c}
	for _, img := range f.images {
		if img.CategoryID == c.ID {
			s.ImagesQty++
			s.TotalSize += img.SizeBytes
		}
	}
	return s
}

func (f *catalogFake) GetSummary(ctx context.Context, id string) (types.CategorySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return types.CategorySummary{}, store.ErrNotFound
	}
	return f.summary(c), nil
}

func (f *catalogFake) FindByName(ctx context.Context, name string) (types.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	for _, c := range f.categories {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return types.Category{}, store.ErrNotFound
}

func (f *catalogFake) ListSummaries(ctx context.Context, ownerID *int) ([]types.CategorySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []types.CategorySummary{}
	for _, c := range f.categories {
		if ownerID != nil && c.OwnerUserID != *ownerID {
			continue
		}
		out = append(out, f.summary(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *catalogFake) Create(ctx context.Context, c types.Category) (types.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return types.Category{}, f.createErr
	}
	if _, ok := f.categories[c.ID]; ok {
		return types.Category{}, store.ErrConflict
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.categories[c.ID] = c
	f.seq[c.ID] = 0
	return c, nil
}

func (f *catalogFake) Update(ctx context.Context, c types.Category) (types.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.categories[c.ID]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	current.Name = c.Name
	current.Description = c.Description
	f.categories[c.ID] = current
	return current, nil
}

func (f *catalogFake) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.categories, id)
	delete(f.seq, id)
	for imageID, img := range f.images {
		if img.CategoryID == id {
			delete(f.images, imageID)
		}
	}
	return nil
}

// imageRepo exposes the image side of catalogFake.
type imageRepo struct{ *catalogFake }

func (r imageRepo) Get(ctx context.Context, id string) (types.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return types.Image{}, store.ErrNotFound
	}
	return img, nil
}

func (r imageRepo) GetDetail(ctx context.Context, id string) (types.ImageDetail, error) {
	img, err := r.Get(ctx, id)
	if err != nil {
		return types.ImageDetail{}, err
	}
	return types.ImageDetail{Image: img, Category: types.CategoryRef{ID: img.CategoryID}}, nil
}

func (r imageRepo) ListDetails(ctx context.Context, filter store.ImageFilter) ([]types.ImageDetail, error) {
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

func (r imageRepo) FindByProductURL(ctx context.Context, productURL string) (types.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range r.images {
		if img.ProductURL != nil && *img.ProductURL == productURL {
			return img, nil
		}
	}
	return types.Image{}, store.ErrNotFound
}

func (r imageRepo) Create(ctx context.Context, img types.Image) (types.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return types.Image{}, r.createErr
	}
	seq, ok := r.seq[img.CategoryID]
	if !ok {
		return types.Image{}, store.ErrNotFound
	}
	r.seq[img.CategoryID] = seq + 1
	img.ID = types.ImageID(img.CategoryID, seq)
	r.images[img.ID] = img
	return img, nil
}

func (r imageRepo) Update(ctx context.Context, img types.Image) (types.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.images[img.ID]; !ok {
		return types.Image{}, store.ErrNotFound
	}
	r.images[img.ID] = img
	return img, nil
}

func (r imageRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.images[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.images, id)
	return nil
}

func (r imageRepo) countIn(categoryID string) int {
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

type blobFake struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	putErr    func(key string) error
	deleteErr error
}

func newBlobFake() *blobFake {
	return &blobFake{objects: map[string][]byte{}}
}

func (b *blobFake) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if b.putErr != nil {
		if err := b.putErr(key); err != nil {
			return err
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *blobFake) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, key)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	if _, ok := b.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(b.objects, key)
	return nil
}

func (b *blobFake) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.objects))
	for key := range b.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// thumbFake "decodes" any payload not starting with "bad".
type thumbFake struct{}

func (thumbFake) Make(data []byte, filename string) (thumbnail.Result, error) {
	if bytes.HasPrefix(data, []byte("bad")) {
		return thumbnail.Result{}, errors.New("cannot decode")
	}
	ext := strings.ToLower(path.Ext(filename))
	if ext != ".png" && ext != ".gif" && ext != ".jpg" && ext != ".jpeg" {
		ext = ".jpg"
	}
	return thumbnail.Result{Data: []byte("thumb:" + filename), Ext: ext, ContentType: "image/jpeg"}, nil
}

type userFake struct {
	mu        sync.Mutex
	users     map[int]types.User
	roles     *roleFake
	owners    map[int]bool
	nextID    int
	passwords map[int]string
}

func newUserFake(roles *roleFake) *userFake {
	return &userFake{
		users:     map[int]types.User{},
		roles:     roles,
		owners:    map[int]bool{},
		nextID:    100,
		passwords: map[int]string{},
	}
}

func (f *userFake) add(u types.User) types.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.RoleName = f.roles.name(u.RoleID)
	f.users[u.ID] = u
	return u
}

func (f *userFake) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]types.User, 0, len(f.users))
	for _, u := range f.users {
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

func (f *userFake) GetByID(ctx context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *userFake) GetByEmail(ctx context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *userFake) Create(ctx context.Context, u types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	u.RoleName = f.roles.name(u.RoleID)
	f.users[u.ID] = u
	return u, nil
}

func (f *userFake) Update(ctx context.Context, u types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	u.RoleName = f.roles.name(u.RoleID)
	f.users[u.ID] = u
	return u, nil
}

func (f *userFake) UpdatePassword(ctx context.Context, id int, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

func (f *userFake) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	if f.owners[id] {
		return fmt.Errorf("delete user: %w", store.ErrRestricted)
	}
	delete(f.users, id)
	return nil
}

type roleFake struct {
	mu    sync.Mutex
	roles map[int]types.Role
	inUse map[int]bool
	next  int
}

func newRoleFake() *roleFake {
	return &roleFake{
		roles: map[int]types.Role{
			1: {ID: 1, Name: types.RoleAdmin},
			2: {ID: 2, Name: "Editor"},
		},
		inUse: map[int]bool{},
		next:  2,
	}
}

func (f *roleFake) name(id int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roles[id].Name
}

func (f *roleFake) List(ctx context.Context) ([]types.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []types.Role{}
	for _, r := range f.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *roleFake) Get(ctx context.Context, id int) (types.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[id]
	if !ok {
		return types.Role{}, store.ErrNotFound
	}
	return r, nil
}

func (f *roleFake) FindByName(ctx context.Context, name string) (types.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.roles {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return types.Role{}, store.ErrNotFound
}

func (f *roleFake) Create(ctx context.Context, r types.Role) (types.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	r.ID = f.next
	f.roles[r.ID] = r
	return r, nil
}

func (f *roleFake) Update(ctx context.Context, r types.Role) (types.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[r.ID]; !ok {
		return types.Role{}, store.ErrNotFound
	}
	f.roles[r.ID] = r
	return r, nil
}

func (f *roleFake) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[id]; !ok {
		return store.ErrNotFound
	}
	if f.inUse[id] {
		return store.ErrRestricted
	}
	delete(f.roles, id)
	return nil
}

type publisherFake struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	err      error
}

func (p *publisherFake) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, data)
	return "msg", p.err
}

func (p *publisherFake) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}
