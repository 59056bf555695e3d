// Package config provides the unified configuration system for the
// connector SDK. Settings are sourced from the environment (optionally
// seeded from an envfile) and organized into logical sections:
//
//   - Portal: endpoints and OAuth credentials for the Sintegrate portal
//   - PubSub: message bus settings for the publisher
//   - Storage: cloud storage settings for camera-trap attachments
//   - Runner: batch sizes, concurrency, lookback window
//   - Reliability: retry logic, circuit breakers, rate limiting
//   - Observability: metrics, tracing, logging
//
// Example usage:
//
//	settings, err := config.LoadSettings()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := settings.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default values matching the behavior of existing connectors.
const (
	DefaultLookbackDays   = 30
	DefaultBatchSize      = 100
	DefaultMaxConcurrency = 5
	DefaultRequestTimeout = 180 * time.Second
)

// Settings is the unified configuration structure for a connector process.
type Settings struct {
	// Portal holds endpoints and credentials for the portal API
	Portal PortalConfig `yaml:"portal" json:"portal"`

	// PubSub holds message bus settings
	PubSub PubSubConfig `yaml:"pubsub" json:"pubsub"`

	// Storage holds cloud storage settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Runner controls the extract-load loop
	Runner RunnerConfig `yaml:"runner" json:"runner"`

	// Reliability settings for error handling and resilience
	Reliability ReliabilityConfig `yaml:"reliability" json:"reliability"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// PortalConfig holds the portal API endpoints and OAuth client credentials.
type PortalConfig struct {
	// KeycloakIssuer is the OAuth issuer URL
	KeycloakIssuer string `yaml:"keycloak_issuer" json:"keycloak_issuer"`
	// ClientID for the client-credentials grant
	ClientID string `yaml:"client_id" json:"client_id"`
	// ClientSecret for the client-credentials grant
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	// Audience requested in the token exchange
	Audience string `yaml:"audience" json:"audience"`
	// APIEndpoint is the sensors API observations are posted to
	APIEndpoint string `yaml:"api_endpoint" json:"api_endpoint"`
	// AdminEndpoint is the portal admin API root
	AdminEndpoint string `yaml:"admin_endpoint" json:"admin_endpoint"`
	// APISSLVerify toggles TLS verification against the sensors API
	APISSLVerify bool `yaml:"api_ssl_verify" json:"api_ssl_verify"`
	// AdminSSLVerify toggles TLS verification against the admin API
	AdminSSLVerify bool `yaml:"admin_ssl_verify" json:"admin_ssl_verify"`
}

// TokenURL returns the OAuth token endpoint derived from the issuer.
func (p *PortalConfig) TokenURL() string {
	return fmt.Sprintf("%s/protocol/openid-connect/token", strings.TrimRight(p.KeycloakIssuer, "/"))
}

// IntegrationsURL returns the inbound integrations endpoint of the admin API.
func (p *PortalConfig) IntegrationsURL() string {
	return fmt.Sprintf("%s/api/v1.0/integrations/inbound", strings.TrimRight(p.AdminEndpoint, "/"))
}

// DeviceStatesURL returns the device states endpoint for an integration.
func (p *PortalConfig) DeviceStatesURL(integrationID string) string {
	return fmt.Sprintf("%s/api/v1.0/devices/states?inbound_config_id=%s", strings.TrimRight(p.AdminEndpoint, "/"), integrationID)
}

// PubSubConfig holds message bus settings for the publisher.
type PubSubConfig struct {
	// Enabled selects the publisher flow instead of the direct API sink
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Brokers is the Kafka bootstrap broker list
	Brokers []string `yaml:"brokers" json:"brokers"`
	// HostedEnabled switches on SASL/TLS for hosted (Confluent) clusters
	HostedEnabled bool `yaml:"hosted_enabled" json:"hosted_enabled"`
	// Username for SASL/PLAIN when hosted
	Username string `yaml:"username" json:"username"`
	// Password for SASL/PLAIN when hosted
	Password string `yaml:"password" json:"password"`
	// KeyOrderingEnabled keys messages by integration and device ID
	KeyOrderingEnabled bool `yaml:"key_ordering_enabled" json:"key_ordering_enabled"`
	// ClientID reported to the brokers
	ClientID string `yaml:"client_id" json:"client_id"`
}

// StorageConfig holds cloud storage settings for attachments.
type StorageConfig struct {
	// Type selects the backend: "google" or "local"
	Type string `yaml:"type" json:"type"`
	// Bucket is the GCS bucket for camera-trap attachments
	Bucket string `yaml:"bucket" json:"bucket"`
	// CredentialsFile points at a service account JSON key, if any
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
}

// RunnerConfig controls the extract-load loop.
type RunnerConfig struct {
	// LookbackDays bounds how far back extractors reach on first run
	LookbackDays int `yaml:"lookback_days" json:"lookback_days"`
	// BatchSize controls how many observations are delivered together
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// MaxConcurrency bounds concurrent per-integration extractions
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`
	// RequestTimeout is the total HTTP client timeout
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// ReliabilityConfig contains reliability and error handling settings.
type ReliabilityConfig struct {
	// RetryAttempts sets maximum retry attempts for failed operations
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
	// RetryDelay is the initial delay between retries
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// RetryMultiplier increases delay exponentially
	RetryMultiplier float64 `yaml:"retry_multiplier" json:"retry_multiplier"`
	// MaxRetryDelay caps the maximum retry delay
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" json:"max_retry_delay"`
	// CircuitBreaker enables circuit breaker protection
	CircuitBreaker bool `yaml:"circuit_breaker" json:"circuit_breaker"`
	// RateLimitPerSec limits provider requests per second (0 = unlimited)
	RateLimitPerSec int `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// EnableMetrics activates Prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates distributed tracing
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
	// ServiceName identifies this connector in traces
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// NewSettings returns Settings populated with production defaults.
func NewSettings() *Settings {
	return &Settings{
		Portal: PortalConfig{
			APISSLVerify:   true,
			AdminSSLVerify: true,
		},
		PubSub: PubSubConfig{
			Enabled:  false,
			Brokers:  []string{"localhost:9092"},
			ClientID: "sintegrate-connector",
		},
		Storage: StorageConfig{
			Type: "google",
		},
		Runner: RunnerConfig{
			LookbackDays:   DefaultLookbackDays,
			BatchSize:      DefaultBatchSize,
			MaxConcurrency: DefaultMaxConcurrency,
			RequestTimeout: DefaultRequestTimeout,
		},
		Reliability: ReliabilityConfig{
			RetryAttempts:   3,
			RetryDelay:      time.Second,
			RetryMultiplier: 2.0,
			MaxRetryDelay:   60 * time.Second,
			CircuitBreaker:  true,
			RateLimitPerSec: 0,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			EnableMetrics:     true,
			EnableTracing:     false,
			TracingSampleRate: 0.1,
			ServiceName:       "sintegrate-connector",
		},
	}
}

// LoadSettings reads connector settings from the environment. When
// CONNECTOR_SDK_ENVFILE is set, that file is loaded first; otherwise a
// local .env is honored when present.
func LoadSettings() (*Settings, error) {
	if envfile := viperString("CONNECTOR_SDK_ENVFILE", ""); envfile != "" {
		if err := godotenv.Load(envfile); err != nil {
			return nil, fmt.Errorf("failed to load envfile %s: %w", envfile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()

	settings := NewSettings()

	settings.Portal.KeycloakIssuer = getString(v, "KEYCLOAK_ISSUER", settings.Portal.KeycloakIssuer)
	settings.Portal.ClientID = getString(v, "KEYCLOAK_CLIENT_ID", settings.Portal.ClientID)
	settings.Portal.ClientSecret = getString(v, "KEYCLOAK_CLIENT_SECRET", settings.Portal.ClientSecret)
	settings.Portal.Audience = getString(v, "KEYCLOAK_AUDIENCE", settings.Portal.Audience)
	settings.Portal.APIEndpoint = getString(v, "SINTEGRATE_API_ENDPOINT", settings.Portal.APIEndpoint)
	settings.Portal.AdminEndpoint = getString(v, "SINTEGRATE_ADMIN_ENDPOINT", settings.Portal.AdminEndpoint)
	settings.Portal.APISSLVerify = getBool(v, "SINTEGRATE_API_SSL_VERIFY", settings.Portal.APISSLVerify)
	settings.Portal.AdminSSLVerify = getBool(v, "SINTEGRATE_ADMIN_SSL_VERIFY", settings.Portal.AdminSSLVerify)

	settings.PubSub.Enabled = getBool(v, "PUBSUB_ENABLED", settings.PubSub.Enabled)
	if brokers := getString(v, "KAFKA_BROKERS", ""); brokers != "" {
		settings.PubSub.Brokers = splitAndTrim(brokers)
	}
	settings.PubSub.HostedEnabled = getBool(v, "CONFLUENT_CLOUD_ENABLED", settings.PubSub.HostedEnabled)
	settings.PubSub.Username = getString(v, "CONFLUENT_CLOUD_USERNAME", settings.PubSub.Username)
	settings.PubSub.Password = getString(v, "CONFLUENT_CLOUD_PASSWORD", settings.PubSub.Password)
	settings.PubSub.KeyOrderingEnabled = getBool(v, "KEY_ORDERING_ENABLED", settings.PubSub.KeyOrderingEnabled)
	settings.PubSub.ClientID = getString(v, "KAFKA_CLIENT_ID", settings.PubSub.ClientID)

	settings.Storage.Type = getString(v, "CLOUD_STORAGE_TYPE", settings.Storage.Type)
	settings.Storage.Bucket = getString(v, "BUCKET_NAME", settings.Storage.Bucket)
	settings.Storage.CredentialsFile = getString(v, "GOOGLE_APPLICATION_CREDENTIALS", settings.Storage.CredentialsFile)

	settings.Runner.LookbackDays = getInt(v, "DEFAULT_LOOKBACK_DAYS", settings.Runner.LookbackDays)
	settings.Runner.BatchSize = getInt(v, "LOAD_BATCH_SIZE", settings.Runner.BatchSize)
	settings.Runner.MaxConcurrency = getInt(v, "MAX_CONCURRENCY", settings.Runner.MaxConcurrency)

	settings.Observability.LogLevel = strings.ToLower(getString(v, "LOG_LEVEL", settings.Observability.LogLevel))
	settings.Observability.EnableTracing = getBool(v, "TRACING_ENABLED", settings.Observability.EnableTracing)
	settings.Observability.ServiceName = getString(v, "SERVICE_NAME", settings.Observability.ServiceName)

	return settings, nil
}

// Validate validates the settings for correctness. It checks required
// fields and ensures values are within acceptable ranges.
func (s *Settings) Validate() error {
	if s.Runner.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if s.Runner.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive")
	}
	if s.Runner.LookbackDays < 0 {
		return fmt.Errorf("lookback_days cannot be negative")
	}
	if s.Reliability.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts cannot be negative")
	}
	if s.Reliability.RateLimitPerSec < 0 {
		return fmt.Errorf("rate_limit_per_sec cannot be negative")
	}
	if s.PubSub.Enabled && len(s.PubSub.Brokers) == 0 {
		return fmt.Errorf("pubsub enabled but no brokers configured")
	}
	if s.Observability.TracingSampleRate < 0 || s.Observability.TracingSampleRate > 1 {
		return fmt.Errorf("tracing_sample_rate must be between 0 and 1")
	}
	return nil
}

// IsRateLimited returns true if provider rate limiting is enabled
func (r *ReliabilityConfig) IsRateLimited() bool {
	return r.RateLimitPerSec > 0
}

func viperString(key, fallback string) string {
	v := viper.New()
	v.AutomaticEnv()
	return getString(v, key, fallback)
}

func getString(v *viper.Viper, key, fallback string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return fallback
}

func getBool(v *viper.Viper, key string, fallback bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return fallback
}

func getInt(v *viper.Viper, key string, fallback int) int {
	if v.IsSet(key) {
		return v.GetInt(key)
	}
	return fallback
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
