package schemas

import (
	"time"

	json "github.com/goccy/go-json"
)

// OAuthToken is the token payload returned by the portal's OAuth issuer.
type OAuthToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// IntegrationInformation describes an inbound integration a connector is
// authorized to extract from: provider credentials, the provider endpoint,
// and the cursor state from previous runs.
type IntegrationInformation struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	TypeSlug string `json:"type_slug,omitempty"`
	Login    string `json:"login,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Enabled  bool   `json:"enabled"`

	// State is the integration-level cursor persisted in the portal
	State map[string]interface{} `json:"state,omitempty"`

	// DeviceStates holds per-device cursors keyed by external device ID.
	// Populated by the runner before extraction begins.
	DeviceStates map[string]DeviceState `json:"device_states,omitempty"`

	// DefaultLookbackDays overrides the SDK default for this integration
	DefaultLookbackDays int `json:"default_lookback_days,omitempty"`
}

// UnmarshalJSON defaults Enabled to true when the portal response omits
// the field. Portal payloads only carry `enabled` when an integration has
// been explicitly switched off, so absence means enabled.
func (i *IntegrationInformation) UnmarshalJSON(data []byte) error {
	type alias IntegrationInformation
	aux := struct {
		*alias
		Enabled *bool `json:"enabled"`
	}{alias: (*alias)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	i.Enabled = aux.Enabled == nil || *aux.Enabled
	return nil
}

// DeviceState is the per-device cursor stored by the portal.
type DeviceState struct {
	DeviceExternalID string                 `json:"device_external_id"`
	State            map[string]interface{} `json:"state,omitempty"`
	UpdatedAt        time.Time              `json:"updated_at,omitempty"`
}

// LookbackStart returns the earliest timestamp an extractor should reach
// back to when the integration has no cursor yet.
func (i *IntegrationInformation) LookbackStart(now time.Time, defaultDays int) time.Time {
	days := i.DefaultLookbackDays
	if days <= 0 {
		days = defaultDays
	}
	return now.UTC().AddDate(0, 0, -days)
}

// CursorFor returns the stored cursor value for a device, if any.
func (i *IntegrationInformation) CursorFor(deviceID string) (map[string]interface{}, bool) {
	state, ok := i.DeviceStates[deviceID]
	if !ok {
		return nil, false
	}
	return state.State, true
}
