package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sintegrate/connector-sdk/pkg/errors"
)

func TestStartSpanBeforeInitUsesNoop(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "integrations.test.execute")
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.End()
}

func TestInitAndSpanLifecycle(t *testing.T) {
	cfg := DefaultTracingConfig("test-connector")
	cfg.SamplingRate = 1.0
	require.NoError(t, Init(cfg))

	ctx, span := StartSpan(context.Background(), "integrations.test.execute",
		attribute.String("integration_id", "int-1"))
	require.NotNil(t, span)

	RecordError(span, errors.New(errors.ErrorTypeExtract, "boom"))
	RecordError(span, nil)
	span.End()

	assert.NoError(t, Shutdown(ctx))
}
