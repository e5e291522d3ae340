package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path"

	"github.com/spf13/afero"
)

// LocalStorage keeps objects as files below a root directory.
type LocalStorage struct {
	fs   afero.Fs
	root string
}

// NewLocalStorage roots a LocalStorage at root on the given filesystem.
func NewLocalStorage(base afero.Fs, root string) *LocalStorage {
	if root == "" {
		root = "."
	}
	return &LocalStorage{
		fs:   afero.NewBasePathFs(base, root),
		root: root,
	}
}

// EnsureBucket creates the root directory.
func (l *LocalStorage) EnsureBucket(ctx context.Context) error {
	return l.fs.MkdirAll("/", 0o755)
}

// Put writes r to the file named by key, creating parent directories.
func (l *LocalStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	name := "/" + key
	if err := l.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return err
	}

	file, err := l.fs.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = l.fs.Remove(name)
		return err
	}
	return file.Close()
}

// Get opens the file named by key.
func (l *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := l.fs.Open("/" + key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, ErrObjectNotFound
	}
	return file, nil
}

// Delete removes the file named by key.
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := l.fs.Remove("/" + key); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return err
	}
	return nil
}

// Bucket returns the root directory.
func (l *LocalStorage) Bucket() string {
	return l.root
}
