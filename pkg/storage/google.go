package storage

import (
	"context"
	"io"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/errors"
)

// GoogleStorage stores attachments in a GCS bucket.
type GoogleStorage struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	logger *zap.Logger
}

// NewGoogleStorage opens a GCS client for the configured bucket. Credentials
// come from the configured key file when set, otherwise application default
// credentials.
func NewGoogleStorage(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*GoogleStorage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "storage bucket is required for google storage")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create gcs client")
	}

	return &GoogleStorage{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		logger: logger.With(zap.String("component", "google_storage"), zap.String("bucket", cfg.Bucket)),
	}, nil
}

// Upload writes the object unless it already exists.
func (g *GoogleStorage) Upload(ctx context.Context, name string, contents io.Reader) error {
	exists, err := g.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		g.logger.Debug("object already exists, skipping upload", zap.String("object", name))
		return nil
	}

	w := g.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentTypeFor(name)
	if _, err := io.Copy(w, contents); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write object")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to finalize object")
	}

	g.logger.Debug("object uploaded", zap.String("object", name))
	return nil
}

// Download opens a reader for the object.
func (g *GoogleStorage) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := g.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if err == gcs.ErrObjectNotExist {
			return nil, errors.Newf(errors.ErrorTypeNotFound, "object %q not found", name)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to open object")
	}
	return r, nil
}

// Exists checks object attributes without fetching contents.
func (g *GoogleStorage) Exists(ctx context.Context, name string) (bool, error) {
	_, err := g.bucket.Object(name).Attrs(ctx)
	switch err {
	case nil:
		return true, nil
	case gcs.ErrObjectNotExist:
		return false, nil
	default:
		return false, errors.Wrap(err, errors.ErrorTypeStorage, "failed to stat object")
	}
}

// Remove deletes the object. Missing objects are not an error.
func (g *GoogleStorage) Remove(ctx context.Context, name string) error {
	err := g.bucket.Object(name).Delete(ctx)
	if err != nil && err != gcs.ErrObjectNotExist {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to delete object")
	}
	return nil
}

// Close shuts down the client.
func (g *GoogleStorage) Close() error {
	return g.client.Close()
}
