// Package portal implements the authenticated client for the Sintegrate
// portal admin API: listing the integrations a connector is authorized to
// extract from, reading per-device cursors, and writing cursor updates back
// after successful delivery.
package portal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sintegrate/connector-sdk/pkg/clients"
	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/errors"
	"github.com/sintegrate/connector-sdk/pkg/schemas"
)

// Client talks to the portal admin API on behalf of a connector.
type Client struct {
	cfg        *config.PortalConfig
	httpClient *clients.HTTPClient
	tokens     *tokenManager
	logger     *zap.Logger
}

// NewClient creates a portal client. The HTTP client is shared with other
// SDK components so connection pools are reused.
func NewClient(cfg *config.PortalConfig, httpClient *clients.HTTPClient, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		tokens:     newTokenManager(cfg, httpClient, logger),
		logger:     logger.With(zap.String("component", "portal_client")),
	}
}

// AuthHeaders returns the authorization headers for portal and sensors API
// requests, refreshing the token when needed.
func (c *Client) AuthHeaders(ctx context.Context) (map[string]string, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization": fmt.Sprintf("%s %s", token.TokenType, token.AccessToken),
	}, nil
}

// InvalidateToken drops the cached token so the next request re-authenticates.
func (c *Client) InvalidateToken() {
	c.tokens.Invalidate()
}

// GetIntegrationsForType lists the inbound integrations of the given type
// slug that this connector's client is authorized for.
func (c *Client) GetIntegrationsForType(ctx context.Context, typeSlug string) ([]schemas.IntegrationInformation, error) {
	headers, err := c.AuthHeaders(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s?type_slug=%s", c.cfg.IntegrationsURL(), url.QueryEscape(typeSlug))
	resp, err := c.httpClient.Get(ctx, endpoint, headers)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypePortal, "failed to list integrations")
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, "list integrations"); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypePortal, "failed to read integrations response")
	}

	// The endpoint answers with a single object when exactly one
	// integration matches.
	var integrations []schemas.IntegrationInformation
	if err := json.Unmarshal(body, &integrations); err != nil {
		var single schemas.IntegrationInformation
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode integrations response")
		}
		integrations = []schemas.IntegrationInformation{single}
	}

	c.logger.Debug("fetched integrations",
		zap.String("type_slug", typeSlug),
		zap.Int("count", len(integrations)))

	return integrations, nil
}

// FetchDeviceStates returns the per-device cursors stored for an integration,
// keyed by external device ID.
func (c *Client) FetchDeviceStates(ctx context.Context, integrationID string) (map[string]schemas.DeviceState, error) {
	headers, err := c.AuthHeaders(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, c.cfg.DeviceStatesURL(integrationID), headers)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypePortal, "failed to fetch device states")
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, "fetch device states"); err != nil {
		return nil, err
	}

	var states []schemas.DeviceState
	if err := json.NewDecoder(resp.Body).Decode(&states); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode device states")
	}

	byDevice := make(map[string]schemas.DeviceState, len(states))
	for _, s := range states {
		byDevice[s.DeviceExternalID] = s
	}
	return byDevice, nil
}

// UpdateState writes the integration cursor back to the portal after a
// batch has been delivered.
func (c *Client) UpdateState(ctx context.Context, integration *schemas.IntegrationInformation) error {
	headers, err := c.AuthHeaders(ctx)
	if err != nil {
		return err
	}
	headers["Content-Type"] = "application/json"

	payload, err := json.Marshal(map[string]interface{}{"state": integration.State})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to marshal state")
	}

	endpoint := fmt.Sprintf("%s/%s", c.cfg.IntegrationsURL(), integration.ID)
	resp, err := c.httpClient.Put(ctx, endpoint, bytes.NewReader(payload), headers)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypePortal, "failed to update integration state")
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("cursor updated",
		zap.String("integration_id", integration.ID),
		zap.Int("status", resp.StatusCode))

	return checkStatus(resp, "update integration state")
}

// checkStatus converts non-2xx responses into typed errors.
func checkStatus(resp *http.Response, operation string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.Newf(errors.ErrorTypeAuthentication, "%s: unauthorized", operation)
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.Newf(errors.ErrorTypeRateLimit, "%s: rate limited", operation)
	case resp.StatusCode >= 500:
		return errors.Newf(errors.ErrorTypeConnection, "%s: server error %d", operation, resp.StatusCode)
	default:
		return errors.Newf(errors.ErrorTypePortal, "%s: unexpected status %d", operation, resp.StatusCode)
	}
}
