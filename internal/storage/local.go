package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// LocalStore writes blobs to an afero filesystem rooted at the storage directory.
type LocalStore struct {
	fs      afero.Fs
	baseURL string
}

// NewLocalStore roots the store at dir on the OS filesystem.
func NewLocalStore(dir, baseURL string) *LocalStore {
	if dir == "" {
		dir = "storage"
	}
	return NewLocalStoreFs(afero.NewBasePathFs(afero.NewOsFs(), dir), baseURL)
}

// NewLocalStoreFs uses fs directly, e.g. afero.NewMemMapFs in tests.
func NewLocalStoreFs(fs afero.Fs, baseURL string) *LocalStore {
	return &LocalStore{fs: fs, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) Store(_ context.Context, namespace string, file Upload) (string, error) {
	key := generateKey(namespace, file.Filename)

	if err := s.fs.MkdirAll(namespace, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", namespace, err)
	}
	if err := afero.WriteFile(s.fs, key, file.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return key, nil
}

func (s *LocalStore) URL(p string) string {
	return s.baseURL + "/" + strings.TrimLeft(p, "/")
}

func (s *LocalStore) Delete(_ context.Context, p string) error {
	if p == "" {
		return nil
	}
	err := s.fs.Remove(path.Clean(p))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

// Exists reports whether p is present.
func (s *LocalStore) Exists(p string) bool {
	ok, err := afero.Exists(s.fs, p)
	return err == nil && ok
}

// FileSystem exposes the store for static file serving.
func (s *LocalStore) FileSystem() http.FileSystem {
	return afero.NewHttpFs(s.fs)
}
