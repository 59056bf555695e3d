package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sintegrate/connector-sdk/pkg/schemas"
)

func TestTopicForStream(t *testing.T) {
	assert.Equal(t, "sintegrate.positions.unprocessed", TopicForStream(schemas.StreamTypePosition))
	assert.Equal(t, "sintegrate.geoevent.unprocessed", TopicForStream(schemas.StreamTypeGeoEvent))
	assert.Equal(t, "sintegrate.message.unprocessed", TopicForStream(schemas.StreamTypeMessage))
	assert.Equal(t, "sintegrate.cameratrap.unprocessed", TopicForStream(schemas.StreamTypeCameraTrap))

	// Streams without a dedicated topic share the combined one.
	assert.Equal(t, "sintegrate.observations.unprocessed", TopicForStream(schemas.StreamTypeEvent))
	assert.Equal(t, "sintegrate.observations.unprocessed", TopicForStream(schemas.StreamTypeAttachment))
}

func TestTopicsCoversEveryStream(t *testing.T) {
	topics := Topics()
	assert.Len(t, topics, 10)

	seen := make(map[string]bool, len(topics))
	for _, topic := range topics {
		assert.False(t, seen[topic], "duplicate topic %s", topic)
		seen[topic] = true
	}
}
