package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sintegrate/connector-sdk/pkg/errors"
	"github.com/sintegrate/connector-sdk/pkg/schemas"
)

func position(device string) schemas.Observation {
	p := schemas.NewPosition()
	p.DeviceID = device
	p.IntegrationID = "int-1"
	p.RecordedAt = time.Now()
	p.Location = schemas.Location{Lat: 1, Lon: 2}
	return p
}

func TestStreamDeliversBatchesInOrder(t *testing.T) {
	stream, writer := NewStream(2)

	go func() {
		_ = writer.Send(context.Background(), []schemas.Observation{position("a")})
		_ = writer.Send(context.Background(), []schemas.Observation{position("b")})
		writer.CloseWith(nil)
	}()

	var devices []string
	for batch := range stream.Observations {
		for _, obs := range batch {
			devices = append(devices, obs.Source())
		}
	}
	assert.Equal(t, []string{"a", "b"}, devices)
	assert.NoError(t, <-stream.Errors)
}

func TestStreamReportsTerminalError(t *testing.T) {
	stream, writer := NewStream(0)

	boom := errors.New(errors.ErrorTypeExtract, "provider exploded")
	go writer.CloseWith(boom)

	for range stream.Observations {
	}
	assert.Equal(t, boom, <-stream.Errors)
}

func TestStreamSendDropsEmptyBatch(t *testing.T) {
	stream, writer := NewStream(0)

	require.NoError(t, writer.Send(context.Background(), nil))
	writer.CloseWith(nil)

	count := 0
	for range stream.Observations {
		count++
	}
	assert.Equal(t, 0, count)
}

func TestStreamSendHonorsCancellation(t *testing.T) {
	_, writer := NewStream(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// No consumer; the send must give up when the context is cancelled.
	err := writer.Send(ctx, []schemas.Observation{position("a")})
	assert.ErrorIs(t, err, context.Canceled)
}
