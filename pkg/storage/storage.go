// Package storage persists attachment files (camera trap images and the
// like) so observations can reference them by name instead of carrying the
// bytes inline.
package storage

import (
	"context"
	"io"
	"mime"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/errors"
)

// CloudStorage stores and retrieves attachment files by name.
type CloudStorage interface {
	// Upload stores the contents under name. Existing objects are not
	// overwritten; uploading a name that already exists is a no-op.
	Upload(ctx context.Context, name string, contents io.Reader) error
	// Download returns a reader for the named object. The caller closes it.
	Download(ctx context.Context, name string) (io.ReadCloser, error)
	// Exists reports whether the named object is present.
	Exists(ctx context.Context, name string) (bool, error)
	// Remove deletes the named object.
	Remove(ctx context.Context, name string) error
	// Close releases backend resources.
	Close() error
}

// New returns the storage backend selected by the settings.
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (CloudStorage, error) {
	switch cfg.Type {
	case "google":
		return NewGoogleStorage(ctx, cfg, logger)
	case "local", "":
		return NewLocalStorage("", logger)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown storage type %q", cfg.Type)
	}
}

// contentTypeFor guesses the MIME type from the file extension, falling
// back to application/octet-stream.
func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
