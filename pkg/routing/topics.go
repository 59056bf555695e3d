// Package routing defines the message bus topic layout shared by
// connectors and the downstream routing services.
package routing

import "github.com/sintegrate/connector-sdk/pkg/schemas"

// AppName is the topic namespace prefix for all Sintegrate streams.
const AppName = "sintegrate"

// Topic names for each observation stream and processing stage.
const (
	TopicObservationsUnprocessed = AppName + ".observations.unprocessed"
	TopicObservationsTransformed = AppName + ".observations.transformed"
	TopicPositionsUnprocessed    = AppName + ".positions.unprocessed"
	TopicPositionsTransformed    = AppName + ".positions.transformed"
	TopicGeoEventUnprocessed     = AppName + ".geoevent.unprocessed"
	TopicGeoEventTransformed     = AppName + ".geoevent.transformed"
	TopicMessageUnprocessed      = AppName + ".message.unprocessed"
	TopicMessageTransformed      = AppName + ".message.transformed"
	TopicCameraTrapUnprocessed   = AppName + ".cameratrap.unprocessed"
	TopicCameraTrapTransformed   = AppName + ".cameratrap.transformed"
)

// Topics returns every topic in the layout, unprocessed then transformed
// per stream.
func Topics() []string {
	return []string{
		TopicObservationsUnprocessed,
		TopicObservationsTransformed,
		TopicPositionsUnprocessed,
		TopicPositionsTransformed,
		TopicGeoEventUnprocessed,
		TopicGeoEventTransformed,
		TopicMessageUnprocessed,
		TopicMessageTransformed,
		TopicCameraTrapUnprocessed,
		TopicCameraTrapTransformed,
	}
}

// TopicForStream maps an observation stream type to its unprocessed topic.
// Streams without a dedicated topic land on the combined observations topic.
func TopicForStream(st schemas.StreamType) string {
	switch st {
	case schemas.StreamTypePosition:
		return TopicPositionsUnprocessed
	case schemas.StreamTypeGeoEvent:
		return TopicGeoEventUnprocessed
	case schemas.StreamTypeMessage:
		return TopicMessageUnprocessed
	case schemas.StreamTypeCameraTrap:
		return TopicCameraTrapUnprocessed
	default:
		return TopicObservationsUnprocessed
	}
}
