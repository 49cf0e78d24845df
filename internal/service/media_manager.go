package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"catalog/internal/model"
	"catalog/internal/observability"
	"catalog/internal/repository"
	"catalog/internal/storage"
	"catalog/pkg/apperror"
)

// DefaultMaxUploadBytes is the per-file limit for catalog images (2048 KB).
const DefaultMaxUploadBytes = 2 << 20

var allowedImageExt = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".gif": true}

var allowedImageType = map[string]bool{"image/jpeg": true, "image/png": true, "image/gif": true}

// GalleryFailure describes one gallery file that could not be attached.
type GalleryFailure struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// MediaManager keeps blob files and the records that reference them in step.
// A record never points at a missing blob: new files are stored before the
// record changes, and old files are removed only after it has.
type MediaManager struct {
	store    storage.BlobStore
	images   repository.ProductImageRepository
	metrics  *observability.Metrics
	log      *slog.Logger
	maxBytes int64
}

func NewMediaManager(store storage.BlobStore, images repository.ProductImageRepository, metrics *observability.Metrics, log *slog.Logger, maxBytes int64) *MediaManager {
	if log == nil {
		log = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &MediaManager{store: store, images: images, metrics: metrics, log: log, maxBytes: maxBytes}
}

// URL renders a stored path for clients.
func (m *MediaManager) URL(p string) string {
	return m.store.URL(p)
}

// URLPtr is URL for optional paths.
func (m *MediaManager) URLPtr(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	u := m.store.URL(*p)
	return &u
}

// ValidateImage checks type and size of an uploaded image and records any
// problem under field.
func (m *MediaManager) ValidateImage(ve *apperror.ValidationError, field string, file storage.Upload) {
	if len(file.Data) == 0 {
		ve.Add(field, fmt.Sprintf("The %s failed to upload.", label(field)))
		return
	}
	ext := strings.ToLower(path.Ext(file.Filename))
	detected := http.DetectContentType(file.Data)
	if !allowedImageExt[ext] || !allowedImageType[detected] {
		ve.Add(field, fmt.Sprintf("The %s must be a file of type: jpeg, png, jpg, gif.", label(field)))
		return
	}
	if int64(len(file.Data)) > m.maxBytes {
		ve.Add(field, fmt.Sprintf("The %s must not be greater than %d kilobytes.", label(field), m.maxBytes/1024))
	}
}

// Store writes file into namespace.
func (m *MediaManager) Store(ctx context.Context, namespace string, file storage.Upload) (string, error) {
	p, err := m.store.Store(ctx, namespace, file)
	m.metrics.BlobWrite(namespace, err)
	if err != nil {
		m.log.Error("Blob write failed", "namespace", namespace, "filename", file.Filename, "error", err)
		return "", fmt.Errorf("failed to store %s: %w", file.Filename, apperror.ErrStorage)
	}
	return p, nil
}

// Discard removes a blob. Failures are logged and counted, never returned.
func (m *MediaManager) Discard(ctx context.Context, namespace, p string) {
	if p == "" {
		return
	}
	if err := m.store.Delete(ctx, p); err != nil {
		m.metrics.BlobOrphaned(namespace)
		m.log.Warn("Blob left orphaned", "namespace", namespace, "path", p, "error", err)
	}
}

// Replace stores file, then calls commit with its path. If commit fails the
// new blob is removed and the error returned. On success the previous blob,
// if any, is removed.
func (m *MediaManager) Replace(ctx context.Context, namespace string, oldPath *string, file storage.Upload, commit func(newPath string) error) (string, error) {
	newPath, err := m.Store(ctx, namespace, file)
	if err != nil {
		return "", err
	}

	if err := commit(newPath); err != nil {
		m.Discard(ctx, namespace, newPath)
		return "", err
	}

	if oldPath != nil && *oldPath != "" && *oldPath != newPath {
		m.Discard(ctx, namespace, *oldPath)
	}
	return newPath, nil
}

// Detach runs remove and then deletes the blobs it referenced.
func (m *MediaManager) Detach(ctx context.Context, namespace string, paths []string, remove func() error) error {
	if err := remove(); err != nil {
		return err
	}
	for _, p := range paths {
		m.Discard(ctx, namespace, p)
	}
	return nil
}

// AttachGallery stores each file and creates a gallery record for it. Files
// are handled independently: a failure is reported and the rest continue.
func (m *MediaManager) AttachGallery(ctx context.Context, productID uint, files []storage.Upload, altText string) ([]model.ProductImage, []GalleryFailure) {
	created := make([]model.ProductImage, 0, len(files))
	var failed []GalleryFailure

	for i, f := range files {
		p, err := m.Store(ctx, storage.NamespaceProductImages, f)
		if err != nil {
			failed = append(failed, GalleryFailure{Index: i, Filename: f.Filename, Error: "The file could not be stored."})
			continue
		}

		img := model.ProductImage{ProductID: productID, ImagePath: p, AltText: altText}
		if err := m.images.Create(ctx, &img); err != nil {
			m.log.Error("Gallery record failed", "product_id", productID, "path", p, "error", err)
			m.Discard(ctx, storage.NamespaceProductImages, p)
			failed = append(failed, GalleryFailure{Index: i, Filename: f.Filename, Error: "The image record could not be saved."})
			continue
		}
		created = append(created, img)
	}

	if len(failed) > 0 {
		m.log.Warn("Gallery upload partially failed", "product_id", productID, "created", len(created), "failed", len(failed))
	}
	return created, failed
}
