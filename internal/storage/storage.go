// Package storage keeps uploaded files outside the database. Records store
// the path returned by Store and render it through URL.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Namespaces used by the catalog.
const (
	NamespaceCategoryImages = "category_images"
	NamespaceProductImages  = "product_images"
)

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// BlobStore is the blob backend used by the media lifecycle.
// Delete must treat a missing path as success.
type BlobStore interface {
	Store(ctx context.Context, namespace string, file Upload) (string, error)
	URL(p string) string
	Delete(ctx context.Context, p string) error
}

// Config selects and configures a BlobStore.
type Config struct {
	Driver    string // "local" | "s3"
	LocalRoot string
	PublicURL string // base URL for local files, or CDN domain for s3
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// New builds the BlobStore named by cfg.Driver.
func New(ctx context.Context, cfg Config) (BlobStore, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.LocalRoot, cfg.PublicURL), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// generateKey returns "<namespace>/<uuid><ext>". The extension is lowercased
// and only kept when it is short and alphanumeric.
func generateKey(namespace, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 6 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return path.Join(namespace, uuid.NewString()+ext)
}
