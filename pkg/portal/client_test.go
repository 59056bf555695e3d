package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sintegrate/connector-sdk/pkg/clients"
	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/errors"
	"github.com/sintegrate/connector-sdk/pkg/schemas"
)

func integrationWithState(id string, state map[string]interface{}) *schemas.IntegrationInformation {
	return &schemas.IntegrationInformation{ID: id, Enabled: true, State: state}
}

// newTestPortal starts a fake portal serving the token endpoint plus the
// given admin API handler, and returns a client pointed at it.
func newTestPortal(t *testing.T, tokenRequests *atomic.Int64, admin http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/realms/test/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:uma-ticket", r.Form.Get("grant_type"))
		assert.Equal(t, "openid", r.Form.Get("scope"))
		assert.Equal(t, "test-client", r.Form.Get("client_id"))

		if tokenRequests != nil {
			tokenRequests.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "token-abc",
			"token_type":   "Bearer",
			"expires_in":   300,
		})
	})
	if admin != nil {
		mux.HandleFunc("/api/v1.0/", admin)
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := &config.PortalConfig{
		KeycloakIssuer: server.URL + "/realms/test",
		ClientID:       "test-client",
		ClientSecret:   "secret",
		Audience:       "sintegrate-api",
		AdminEndpoint:  server.URL,
	}

	httpClient, err := clients.NewHTTPClient(nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	return NewClient(cfg, httpClient, zaptest.NewLogger(t)), server
}

func TestAuthHeaders(t *testing.T) {
	client, _ := newTestPortal(t, nil, nil)

	headers, err := client.AuthHeaders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-abc", headers["Authorization"])
}

func TestTokenIsCachedUntilInvalidated(t *testing.T) {
	var tokenRequests atomic.Int64
	client, _ := newTestPortal(t, &tokenRequests, nil)

	ctx := context.Background()
	_, err := client.AuthHeaders(ctx)
	require.NoError(t, err)
	_, err = client.AuthHeaders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tokenRequests.Load(), "second call should reuse the cached token")

	client.InvalidateToken()
	_, err = client.AuthHeaders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tokenRequests.Load(), "invalidation should force a refresh")
}

func TestGetIntegrationsForTypeArray(t *testing.T) {
	client, _ := newTestPortal(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tracker", r.URL.Query().Get("type_slug"))
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "int-1", "name": "One", "enabled": true},
			{"id": "int-2", "name": "Two", "enabled": false}
		]`))
	})

	integrations, err := client.GetIntegrationsForType(context.Background(), "tracker")
	require.NoError(t, err)
	require.Len(t, integrations, 2)
	assert.Equal(t, "int-1", integrations[0].ID)
	assert.True(t, integrations[0].Enabled)
	assert.False(t, integrations[1].Enabled)
}

func TestGetIntegrationsForTypeSingleObject(t *testing.T) {
	client, _ := newTestPortal(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "int-1", "enabled": true}`))
	})

	integrations, err := client.GetIntegrationsForType(context.Background(), "tracker")
	require.NoError(t, err)
	require.Len(t, integrations, 1)
	assert.Equal(t, "int-1", integrations[0].ID)
}

func TestGetIntegrationsUnauthorized(t *testing.T) {
	client, _ := newTestPortal(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.GetIntegrationsForType(context.Background(), "tracker")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
}

func TestFetchDeviceStates(t *testing.T) {
	client, _ := newTestPortal(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "int-1", r.URL.Query().Get("inbound_config_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"device_external_id": "collar-1", "state": {"ts": "2024-01-01T00:00:00Z"}},
			{"device_external_id": "collar-2", "state": {"ts": "2024-02-01T00:00:00Z"}}
		]`))
	})

	states, err := client.FetchDeviceStates(context.Background(), "int-1")
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "2024-01-01T00:00:00Z", states["collar-1"].State["ts"])
}

func TestUpdateState(t *testing.T) {
	var gotBody map[string]interface{}
	client, _ := newTestPortal(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1.0/integrations/inbound/int-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	integration := integrationWithState("int-1", map[string]interface{}{"cursor": "2024-05-01"})
	require.NoError(t, client.UpdateState(context.Background(), integration))

	state, ok := gotBody["state"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2024-05-01", state["cursor"])
}

func TestCheckStatusMapping(t *testing.T) {
	client, _ := newTestPortal(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetIntegrationsForType(context.Background(), "tracker")
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err), "5xx should be retryable")
}
