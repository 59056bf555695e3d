// Package schemas defines the common observation schema shared by all
// Sintegrate connectors. Extractors transform provider records into these
// types; the runner delivers them to the sensors API or the message bus.
//
// Field names on the wire follow the portal's JSON contract, so the json
// tags here are load-bearing.
package schemas

import (
	"time"

	"github.com/sintegrate/connector-sdk/pkg/errors"
)

// StreamType identifies the kind of observation in a stream.
type StreamType string

const (
	// StreamTypePosition is a GPS track point
	StreamTypePosition StreamType = "ps"
	// StreamTypeGeoEvent is a geo-located event report
	StreamTypeGeoEvent StreamType = "ge"
	// StreamTypeCameraTrap is a camera-trap image observation
	StreamTypeCameraTrap StreamType = "ct"
	// StreamTypeMessage is a text message from a field device
	StreamTypeMessage StreamType = "tm"
	// StreamTypeEvent is a v2-style event
	StreamTypeEvent StreamType = "ev"
	// StreamTypeAttachment is a file attached to another observation
	StreamTypeAttachment StreamType = "att"
)

// Observation is implemented by every record type a connector can emit.
type Observation interface {
	// ObservationType returns the stream type prefix
	ObservationType() StreamType
	// Source returns the device/source identifier
	Source() string
	// Integration returns the inbound integration ID
	Integration() string
	// Validate checks the observation against the schema contract
	Validate() error
}

// Location is a geographic point.
type Location struct {
	// Lat is latitude in decimal degrees
	Lat float64 `json:"lat"`
	// Lon is longitude in decimal degrees
	Lon float64 `json:"lon"`
	// Alt is altitude in meters
	Alt float64 `json:"alt,omitempty"`
	// Hdop is horizontal dilution of precision, when the device reports it
	Hdop *int `json:"hdop,omitempty"`
	// Vdop is vertical dilution of precision, when the device reports it
	Vdop *int `json:"vdop,omitempty"`
}

// Validate checks the location against the portal's accepted bounds.
// Longitude admits up to 360 for providers reporting 0-360 eastings.
func (l Location) Validate() error {
	if l.Lat < -90.0 || l.Lat > 90.0 {
		return errors.Newf(errors.ErrorTypeValidation, "latitude %f out of range [-90, 90]", l.Lat)
	}
	if l.Lon < -180.0 || l.Lon > 360.0 {
		return errors.Newf(errors.ErrorTypeValidation, "longitude %f out of range [-180, 360]", l.Lon)
	}
	if l.Alt < 0 {
		return errors.Newf(errors.ErrorTypeValidation, "altitude %f cannot be negative", l.Alt)
	}
	return nil
}

// Position is a GPS track point reported by a field device.
type Position struct {
	DeviceID      string                 `json:"device_id"`
	IntegrationID string                 `json:"integration_id"`
	RecordedAt    time.Time              `json:"recorded_at"`
	Location      Location               `json:"location"`
	Name          string                 `json:"name,omitempty"`
	Type          string                 `json:"type,omitempty"`
	Additional    map[string]interface{} `json:"additional,omitempty"`
	Kind          StreamType             `json:"observation_type"`
}

// NewPosition returns a Position with the observation type tag set.
func NewPosition() *Position {
	return &Position{Kind: StreamTypePosition}
}

// ObservationType implements Observation
func (p *Position) ObservationType() StreamType { return StreamTypePosition }

// Source implements Observation
func (p *Position) Source() string { return p.DeviceID }

// Integration implements Observation
func (p *Position) Integration() string { return p.IntegrationID }

// Validate implements Observation
func (p *Position) Validate() error {
	if p.DeviceID == "" {
		return errors.New(errors.ErrorTypeValidation, "position requires a device_id")
	}
	if p.RecordedAt.IsZero() {
		return errors.New(errors.ErrorTypeValidation, "position requires recorded_at")
	}
	return p.Location.Validate()
}

// GeoEvent is a geo-located event report (sighting, alert, patrol note).
type GeoEvent struct {
	DeviceID      string                 `json:"device_id"`
	IntegrationID string                 `json:"integration_id"`
	RecordedAt    time.Time              `json:"recorded_at"`
	Location      Location               `json:"location"`
	Title         string                 `json:"title,omitempty"`
	EventType     string                 `json:"event_type"`
	EventDetails  map[string]interface{} `json:"event_details,omitempty"`
	Geometry      map[string]interface{} `json:"geometry,omitempty"`
	Additional    map[string]interface{} `json:"additional,omitempty"`
	Kind          StreamType             `json:"observation_type"`
}

// NewGeoEvent returns a GeoEvent with the observation type tag set.
func NewGeoEvent() *GeoEvent {
	return &GeoEvent{Kind: StreamTypeGeoEvent}
}

// ObservationType implements Observation
func (g *GeoEvent) ObservationType() StreamType { return StreamTypeGeoEvent }

// Source implements Observation
func (g *GeoEvent) Source() string { return g.DeviceID }

// Integration implements Observation
func (g *GeoEvent) Integration() string { return g.IntegrationID }

// Validate implements Observation
func (g *GeoEvent) Validate() error {
	if g.DeviceID == "" {
		return errors.New(errors.ErrorTypeValidation, "geoevent requires a device_id")
	}
	if g.EventType == "" {
		return errors.New(errors.ErrorTypeValidation, "geoevent requires an event_type")
	}
	if g.RecordedAt.IsZero() {
		return errors.New(errors.ErrorTypeValidation, "geoevent requires recorded_at")
	}
	return g.Location.Validate()
}

// CameraTrap is a camera-trap image observation. ImageURI points at the
// uploaded attachment in cloud storage.
type CameraTrap struct {
	DeviceID      string                 `json:"device_id"`
	IntegrationID string                 `json:"integration_id"`
	RecordedAt    time.Time              `json:"recorded_at"`
	Location      Location               `json:"location"`
	CameraName    string                 `json:"camera_name,omitempty"`
	CameraVersion string                 `json:"camera_version,omitempty"`
	ImageURI      string                 `json:"image_uri"`
	Additional    map[string]interface{} `json:"additional,omitempty"`
	Kind          StreamType             `json:"observation_type"`
}

// NewCameraTrap returns a CameraTrap with the observation type tag set.
func NewCameraTrap() *CameraTrap {
	return &CameraTrap{Kind: StreamTypeCameraTrap}
}

// ObservationType implements Observation
func (c *CameraTrap) ObservationType() StreamType { return StreamTypeCameraTrap }

// Source implements Observation
func (c *CameraTrap) Source() string { return c.DeviceID }

// Integration implements Observation
func (c *CameraTrap) Integration() string { return c.IntegrationID }

// Validate implements Observation
func (c *CameraTrap) Validate() error {
	if c.DeviceID == "" {
		return errors.New(errors.ErrorTypeValidation, "cameratrap requires a device_id")
	}
	if c.ImageURI == "" {
		return errors.New(errors.ErrorTypeValidation, "cameratrap requires an image_uri")
	}
	if c.RecordedAt.IsZero() {
		return errors.New(errors.ErrorTypeValidation, "cameratrap requires recorded_at")
	}
	return c.Location.Validate()
}

// TextMessage is a text message sent from a field device.
type TextMessage struct {
	DeviceID      string                 `json:"device_id"`
	IntegrationID string                 `json:"integration_id"`
	RecordedAt    time.Time              `json:"recorded_at"`
	Text          string                 `json:"text"`
	Sender        string                 `json:"sender,omitempty"`
	Recipients    []string               `json:"recipients,omitempty"`
	Location      *Location              `json:"location,omitempty"`
	Additional    map[string]interface{} `json:"additional,omitempty"`
	Kind          StreamType             `json:"observation_type"`
}

// NewTextMessage returns a TextMessage with the observation type tag set.
func NewTextMessage() *TextMessage {
	return &TextMessage{Kind: StreamTypeMessage}
}

// ObservationType implements Observation
func (m *TextMessage) ObservationType() StreamType { return StreamTypeMessage }

// Source implements Observation
func (m *TextMessage) Source() string { return m.DeviceID }

// Integration implements Observation
func (m *TextMessage) Integration() string { return m.IntegrationID }

// Validate implements Observation
func (m *TextMessage) Validate() error {
	if m.DeviceID == "" {
		return errors.New(errors.ErrorTypeValidation, "message requires a device_id")
	}
	if m.Text == "" {
		return errors.New(errors.ErrorTypeValidation, "message requires text")
	}
	if m.Location != nil {
		return m.Location.Validate()
	}
	return nil
}

// Attachment is a file attached to another observation, referenced by the
// platform ID of the observation it belongs to.
type Attachment struct {
	SourceID      string     `json:"source_id"`
	IntegrationID string     `json:"integration_id"`
	RelatedTo     string     `json:"related_to,omitempty"`
	FilePath      string     `json:"file_path"`
	Kind          StreamType `json:"observation_type"`
}

// NewAttachment returns an Attachment with the observation type tag set.
func NewAttachment() *Attachment {
	return &Attachment{Kind: StreamTypeAttachment}
}

// ObservationType implements Observation
func (a *Attachment) ObservationType() StreamType { return StreamTypeAttachment }

// Source implements Observation
func (a *Attachment) Source() string { return a.SourceID }

// Integration implements Observation
func (a *Attachment) Integration() string { return a.IntegrationID }

// Validate implements Observation
func (a *Attachment) Validate() error {
	if a.FilePath == "" {
		return errors.New(errors.ErrorTypeValidation, "attachment requires a file_path")
	}
	return nil
}

// NormalizeRecordedAt interprets a timestamp without timezone information
// as UTC, matching the portal's handling of naive timestamps.
func NormalizeRecordedAt(t time.Time) time.Time {
	if t.Location() == time.Local {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return t.UTC()
}
