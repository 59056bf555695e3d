package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector("metrics-test")

	c.Invoked()
	c.Invoked()
	assert.Equal(t, float64(2),
		testutil.ToFloat64(ConnectorInvocations.WithLabelValues("metrics-test")))

	c.Errored("portal")
	assert.Equal(t, float64(1),
		testutil.ToFloat64(ConnectorErrors.WithLabelValues("metrics-test", "portal")))

	c.FromProvider("int-1", 25)
	assert.Equal(t, float64(25),
		testutil.ToFloat64(ObservationsFromProvider.WithLabelValues("metrics-test", "int-1")))

	c.Delivered("int-1", "api", 10)
	assert.Equal(t, float64(10),
		testutil.ToFloat64(ObservationsDelivered.WithLabelValues("metrics-test", "int-1", "api")))

	c.IntegrationDone(true)
	c.IntegrationDone(false)
	assert.Equal(t, float64(1),
		testutil.ToFloat64(IntegrationsProcessed.WithLabelValues("metrics-test", "success")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(IntegrationsProcessed.WithLabelValues("metrics-test", "failure")))
}

func TestTimer(t *testing.T) {
	timer := NewTimer()
	time.Sleep(5 * time.Millisecond)
	elapsed := timer.Stop()
	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
}
