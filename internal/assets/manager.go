// Package assets validates, uploads and deletes the images attached to memories.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/anonto42/memorylane/backend/internal/blob"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Limits applied to every upload batch
const (
	MaxImages    = 10
	MaxImageSize = 5 * 1024 * 1024
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// File is an image selected for upload
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Manager maps image files to public URLs in one storage bucket
type Manager struct {
	store  blob.Store
	bucket string
	log    *zap.Logger
}

// NewManager creates a new Manager
func NewManager(store blob.Store, bucket string, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, bucket: bucket, log: log}
}

// Validate checks count, type and size of files and reports every violation at once
func (m *Manager) Validate(files []File) error {
	var errs error
	if len(files) > MaxImages {
		errs = multierr.Append(errs, fmt.Errorf("at most %d images are allowed, got %d", MaxImages, len(files)))
	}
	for i, f := range files {
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("image %d", i+1)
		}
		if ct := contentType(f); !allowedTypes[ct] {
			errs = multierr.Append(errs, fmt.Errorf("%s: unsupported type %q", name, ct))
		}
		if len(f.Data) > MaxImageSize {
			errs = multierr.Append(errs, fmt.Errorf("%s: larger than 5MB", name))
		}
	}
	if errs == nil {
		return nil
	}
	var details []string
	for _, err := range multierr.Errors(errs) {
		details = append(details, err.Error())
	}
	return apperrors.NewValidation("invalid images", details...)
}

// UploadAll stores files under ownerID and returns their public URLs in input order.
// Either every file is stored or the call fails and the stored ones are removed.
func (m *Manager) UploadAll(ctx context.Context, files []File, ownerID string) ([]string, error) {
	if len(files) == 0 {
		return []string{}, nil
	}
	if err := m.Validate(files); err != nil {
		return nil, err
	}

	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			url, err := m.store.Put(gctx, objectName(ownerID, f), contentType(f), bytes.NewReader(f.Data))
			if err != nil {
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var stored []string
		for _, u := range urls {
			if u != "" {
				stored = append(stored, u)
			}
		}
		m.DeleteURLs(context.WithoutCancel(ctx), stored)
		return nil, apperrors.NewNetwork("image upload failed", err)
	}
	return urls, nil
}

// DeleteAll removes the objects at paths. Failures are logged, never returned.
func (m *Manager) DeleteAll(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		return
	}
	if err := m.store.Remove(ctx, paths); err != nil {
		m.log.Warn("failed to delete images", zap.Strings("paths", paths), zap.Error(err))
	}
}

// DeleteURLs removes the objects behind public URLs, skipping URLs of other buckets
func (m *Manager) DeleteURLs(ctx context.Context, urls []string) {
	m.DeleteAll(ctx, m.Paths(urls))
}

// Paths maps public URLs to object paths, dropping URLs that are not ours
func (m *Manager) Paths(urls []string) []string {
	paths := make([]string, 0, len(urls))
	for _, u := range urls {
		if p, ok := m.PathFromURL(u); ok {
			paths = append(paths, p)
		}
	}
	return paths
}

// PathFromURL extracts the object path from a public URL of this bucket
func (m *Manager) PathFromURL(url string) (string, bool) {
	return blob.PathFromURL(url, m.bucket)
}

func objectName(ownerID string, f File) string {
	ext := strings.ToLower(path.Ext(f.Name))
	if ext == "" {
		if mt := mimetype.Lookup(contentType(f)); mt != nil {
			ext = mt.Extension()
		}
	}
	return ownerID + "/" + uuid.NewString() + ext
}

// contentType returns the declared type, or the sniffed one when none was declared
func contentType(f File) string {
	ct := strings.TrimSpace(strings.ToLower(f.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" {
		ct = mimetype.Detect(f.Data).String()
		if i := strings.IndexByte(ct, ';'); i >= 0 {
			ct = ct[:i]
		}
	}
	return ct
}
