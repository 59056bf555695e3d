package base

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/errors"
)

func newTestConnector(t *testing.T, mutate func(*config.Settings)) *BaseConnector {
	t.Helper()
	settings := NewTestSettings()
	if mutate != nil {
		mutate(settings)
	}
	bc, err := NewBaseConnector("test-connector", "test_type", settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bc.Close() })
	return bc
}

// NewTestSettings returns settings with fast retries for tests.
func NewTestSettings() *config.Settings {
	settings := config.NewSettings()
	settings.Reliability.RetryDelay = 0
	settings.Reliability.MaxRetryDelay = 1
	return settings
}

func TestBaseConnectorIdentity(t *testing.T) {
	bc := newTestConnector(t, nil)
	assert.Equal(t, "test-connector", bc.Name())
	assert.Equal(t, "test_type", bc.TypeSlug())
	assert.NotNil(t, bc.Logger())
	assert.NotNil(t, bc.Metrics())
	assert.NotNil(t, bc.HTTPClient())
}

func TestExecuteWithResilienceRetriesTransient(t *testing.T) {
	bc := newTestConnector(t, func(s *config.Settings) {
		s.Reliability.CircuitBreaker = false
	})

	calls := 0
	err := bc.ExecuteWithResilience(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New(errors.ErrorTypeConnection, "transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithResilienceDoesNotRetryValidation(t *testing.T) {
	bc := newTestConnector(t, nil)

	calls := 0
	err := bc.ExecuteWithResilience(context.Background(), func() error {
		calls++
		return errors.New(errors.ErrorTypeValidation, "bad record")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBaseConnectorCloseIsIdempotent(t *testing.T) {
	bc := newTestConnector(t, nil)
	require.NoError(t, bc.Close())
	require.NoError(t, bc.Close())
}

func TestBaseConnectorDefaultHealth(t *testing.T) {
	bc := newTestConnector(t, nil)
	assert.Equal(t, "healthy", bc.Health().Status)
}
