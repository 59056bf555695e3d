package clients

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sintegrate/connector-sdk/pkg/errors"
)

func newTestHTTPClient(t *testing.T, cfg *HTTPConfig) *HTTPClient {
	t.Helper()
	client, err := NewHTTPClient(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(client.CloseIdleConnections)
	return client
}

func TestHTTPClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestHTTPClient(t, nil)
	resp, err := client.Get(context.Background(), server.URL, map[string]string{"Authorization": "Bearer tok"})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	total, failed := client.Stats()
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(0), failed)
}

func TestHTTPClientPostAndPut(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(body))
	}))
	defer server.Close()

	client := newTestHTTPClient(t, nil)
	ctx := context.Background()

	resp, err := client.Post(ctx, server.URL, strings.NewReader("payload"), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	resp, err = client.Put(ctx, server.URL, strings.NewReader("payload"), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, []string{http.MethodPost, http.MethodPut}, methods)
}

func TestHTTPClientTimeoutIsTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	cfg := DefaultHTTPConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	client := newTestHTTPClient(t, cfg)

	_, err := client.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err), "timeouts should be retryable")

	_, failed := client.Stats()
	assert.Equal(t, int64(1), failed)
}

func TestHTTPClientConnectionRefusedIsTyped(t *testing.T) {
	client := newTestHTTPClient(t, nil)

	// Port 1 is essentially never listening.
	_, err := client.Get(context.Background(), "http://127.0.0.1:1", nil)
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}
