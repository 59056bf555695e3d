package portal

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sintegrate/connector-sdk/pkg/clients"
	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/errors"
	"github.com/sintegrate/connector-sdk/pkg/schemas"
)

// umaTicketGrant is the Keycloak UMA grant used by the portal realm.
const umaTicketGrant = "urn:ietf:params:oauth:grant-type:uma-ticket"

// refreshThreshold is how close to expiry a cached token is still reused.
const refreshThreshold = 30 * time.Second

// tokenManager caches the OAuth access token and coordinates refreshes so
// concurrent integrations don't stampede the token endpoint.
type tokenManager struct {
	cfg        *config.PortalConfig
	httpClient *clients.HTTPClient
	logger     *zap.Logger

	token     *schemas.OAuthToken
	expiresAt time.Time
	mu        sync.Mutex
}

func newTokenManager(cfg *config.PortalConfig, httpClient *clients.HTTPClient, logger *zap.Logger) *tokenManager {
	return &tokenManager{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.With(zap.String("component", "token_manager")),
	}
}

// AccessToken returns a valid token, fetching a fresh one when the cached
// token is missing or about to expire.
func (tm *tokenManager) AccessToken(ctx context.Context) (*schemas.OAuthToken, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.token != nil && time.Until(tm.expiresAt) > refreshThreshold {
		return tm.token, nil
	}

	token, err := tm.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	tm.token = token
	expiresIn := time.Duration(token.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		// Issuer did not report a lifetime; assume a short one.
		expiresIn = time.Minute
	}
	tm.expiresAt = time.Now().Add(expiresIn)

	tm.logger.Debug("token acquired", zap.Time("expires_at", tm.expiresAt))
	return tm.token, nil
}

// Invalidate drops the cached token, forcing a refresh on the next call.
// Used after the sensors API answers 401.
func (tm *tokenManager) Invalidate() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.token = nil
}

func (tm *tokenManager) fetchToken(ctx context.Context) (*schemas.OAuthToken, error) {
	params := url.Values{
		"client_id":     {tm.cfg.ClientID},
		"client_secret": {tm.cfg.ClientSecret},
		"audience":      {tm.cfg.Audience},
		"grant_type":    {umaTicketGrant},
		"scope":         {"openid"},
	}

	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}

	resp, err := tm.httpClient.Post(ctx, tm.cfg.TokenURL(), strings.NewReader(params.Encode()), headers)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "token request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Newf(errors.ErrorTypeAuthentication,
			"token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var token schemas.OAuthToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode token response")
	}

	if token.AccessToken == "" {
		return nil, errors.New(errors.ErrorTypeAuthentication, "token response missing access_token")
	}

	return &token, nil
}
