package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sintegrate/connector-sdk/pkg/errors"
)

// LocalStorage stores attachments as files under a directory. Used in
// development and tests where no bucket is available.
type LocalStorage struct {
	root   string
	logger *zap.Logger
}

// NewLocalStorage stores files under root, creating a temp directory when
// root is empty.
func NewLocalStorage(root string, logger *zap.Logger) (*LocalStorage, error) {
	if root == "" {
		dir, err := os.MkdirTemp("", "sintegrate-storage-")
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create storage directory")
		}
		root = dir
	} else if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create storage directory")
	}

	return &LocalStorage{
		root:   root,
		logger: logger.With(zap.String("component", "local_storage"), zap.String("root", root)),
	}, nil
}

// Root returns the directory files are stored under.
func (l *LocalStorage) Root() string { return l.root }

func (l *LocalStorage) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", errors.Newf(errors.ErrorTypeValidation, "invalid object name %q", name)
	}
	return filepath.Join(l.root, clean), nil
}

// Upload writes the file unless it already exists.
func (l *LocalStorage) Upload(ctx context.Context, name string, contents io.Reader) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "context cancelled before upload")
	}

	path, err := l.path(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		l.logger.Debug("file already exists, skipping upload", zap.String("object", name))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to create object directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to create file")
	}
	if _, err := io.Copy(f, contents); err != nil {
		_ = f.Close()
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write file")
	}
	return f.Close()
}

// Download opens the file for reading.
func (l *LocalStorage) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	path, err := l.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrorTypeNotFound, "object %q not found", name)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to open file")
	}
	return f, nil
}

// Exists reports whether the file is present.
func (l *LocalStorage) Exists(ctx context.Context, name string) (bool, error) {
	path, err := l.path(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrorTypeStorage, "failed to stat file")
	}
	return true, nil
}

// Remove deletes the file. Missing files are not an error.
func (l *LocalStorage) Remove(ctx context.Context, name string) error {
	path, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to remove file")
	}
	return nil
}

// Close is a no-op for local storage.
func (l *LocalStorage) Close() error { return nil }
