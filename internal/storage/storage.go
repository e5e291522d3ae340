package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/floorvault/apiserver/config"
	"github.com/spf13/afero"
)

// URLPrefix is the public path under which stored objects are served.
const URLPrefix = "/uploads/"

// CacheControl is attached to stored objects and to responses serving them.
// Object names carry an upload timestamp, so a key never changes content.
const CacheControl = "public, max-age=31536000, immutable"

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage wraps an ObjectStorage backend and validates keys before they
// reach it.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// New builds the backend selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Driver {
	case "", "local":
		backend = NewLocalStorage(afero.NewOsFs(), cfg.LocalRoot)
	case "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
	case "s3":
		backend, err = NewS3Client(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s storage: %w", cfg.Driver, err)
	}
	return NewStorage(backend), nil
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads an object.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Get opens a reader for an object. Missing objects yield ErrObjectNotFound.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	return s.backend.Get(ctx, key)
}

// Delete removes an object. Missing objects yield ErrObjectNotFound.
func (s *Storage) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// CleanKey normalizes a slash separated object key and rejects keys that
// are empty or climb out of the root.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return "", ErrInvalidKey
		}
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == "/" {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// OriginalKey is the key of an uploaded original inside a category.
func OriginalKey(slug, filename string) string {
	return path.Join("categories", slug, filename)
}

// ThumbnailKey is the key of a generated thumbnail inside a category.
func ThumbnailKey(slug, filename string) string {
	return path.Join("thumbnails", slug, filename)
}

// PublicURL returns the server-relative URL under which key is served.
func PublicURL(key string) string {
	return URLPrefix + strings.TrimPrefix(key, "/")
}

// KeyFromURL reverses PublicURL. It reports false for URLs outside URLPrefix.
func KeyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, URLPrefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, URLPrefix)
	if key == "" {
		return "", false
	}
	return key, true
}
