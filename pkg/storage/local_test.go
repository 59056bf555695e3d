package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/schemas"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	store, err := NewLocalStorage(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return store
}

func TestLocalStorageRoundTrip(t *testing.T) {
	store := newLocal(t)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "int-1/cam-1/img.jpg", strings.NewReader("image-bytes")))

	exists, err := store.Exists(ctx, "int-1/cam-1/img.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	r, err := store.Download(ctx, "int-1/cam-1/img.jpg")
	require.NoError(t, err)
	contents, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "image-bytes", string(contents))

	require.NoError(t, store.Remove(ctx, "int-1/cam-1/img.jpg"))
	exists, err = store.Exists(ctx, "int-1/cam-1/img.jpg")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorageUploadSkipsExisting(t *testing.T) {
	store := newLocal(t)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "img.jpg", strings.NewReader("original")))
	require.NoError(t, store.Upload(ctx, "img.jpg", strings.NewReader("replacement")))

	r, err := store.Download(ctx, "img.jpg")
	require.NoError(t, err)
	contents, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "original", string(contents), "existing objects must not be overwritten")
}

func TestLocalStorageDownloadMissing(t *testing.T) {
	store := newLocal(t)
	_, err := store.Download(context.Background(), "nope.jpg")
	assert.Error(t, err)
}

func TestLocalStorageRemoveMissingIsNoop(t *testing.T) {
	store := newLocal(t)
	assert.NoError(t, store.Remove(context.Background(), "nope.jpg"))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store := newLocal(t)
	err := store.Upload(context.Background(), "../escape.jpg", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	store, err := New(context.Background(), &config.StorageConfig{Type: "local"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	_, ok := store.(*LocalStorage)
	assert.True(t, ok)
}

func TestStoreCameraTrapImage(t *testing.T) {
	store := newLocal(t)

	ct := schemas.NewCameraTrap()
	ct.DeviceID = "cam-1"
	ct.IntegrationID = "int-1"
	ct.RecordedAt = time.Now()

	require.NoError(t, StoreCameraTrapImage(context.Background(), store, ct, "trail.jpg", strings.NewReader("jpeg")))
	assert.Equal(t, "int-1/cam-1/trail.jpg", ct.ImageURI)

	exists, err := store.Exists(context.Background(), ct.ImageURI)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStoreCameraTrapImageRequiresIdentity(t *testing.T) {
	store := newLocal(t)
	ct := schemas.NewCameraTrap()
	err := StoreCameraTrapImage(context.Background(), store, ct, "trail.jpg", strings.NewReader("jpeg"))
	assert.Error(t, err)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/jpeg", contentTypeFor("img.jpg"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("blob"))
}
