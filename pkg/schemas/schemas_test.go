package schemas

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationValidate(t *testing.T) {
	tests := []struct {
		name    string
		loc     Location
		wantErr bool
	}{
		{"valid", Location{Lat: 47.6, Lon: -122.3}, false},
		{"valid at lat bounds", Location{Lat: -90, Lon: 0}, false},
		{"valid extended lon", Location{Lat: 0, Lon: 350}, false},
		{"lat too high", Location{Lat: 90.1, Lon: 0}, true},
		{"lat too low", Location{Lat: -90.1, Lon: 0}, true},
		{"lon too low", Location{Lat: 0, Lon: -180.1}, true},
		{"lon too high", Location{Lat: 0, Lon: 360.1}, true},
		{"negative altitude", Location{Lat: 0, Lon: 0, Alt: -5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.loc.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPositionValidate(t *testing.T) {
	p := NewPosition()
	p.DeviceID = "device-1"
	p.IntegrationID = "int-1"
	p.RecordedAt = time.Now()
	p.Location = Location{Lat: 10, Lon: 20}
	require.NoError(t, p.Validate())

	p.DeviceID = ""
	assert.Error(t, p.Validate())
}

func TestObservationTypeTags(t *testing.T) {
	assert.Equal(t, StreamTypePosition, NewPosition().ObservationType())
	assert.Equal(t, StreamTypeGeoEvent, NewGeoEvent().ObservationType())
	assert.Equal(t, StreamTypeCameraTrap, NewCameraTrap().ObservationType())
	assert.Equal(t, StreamTypeMessage, NewTextMessage().ObservationType())
	assert.Equal(t, StreamTypeAttachment, NewAttachment().ObservationType())
}

func TestPositionWireFormat(t *testing.T) {
	p := NewPosition()
	p.DeviceID = "collar-42"
	p.IntegrationID = "int-9"
	p.RecordedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.Location = Location{Lat: 1.5, Lon: 2.5}

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, "collar-42", wire["device_id"])
	assert.Equal(t, "int-9", wire["integration_id"])
	assert.Equal(t, string(StreamTypePosition), wire["observation_type"])
	assert.Contains(t, wire, "recorded_at")
}

func TestCameraTrapValidateRequiresImage(t *testing.T) {
	ct := NewCameraTrap()
	ct.DeviceID = "cam-1"
	ct.RecordedAt = time.Now()
	ct.Location = Location{Lat: 0, Lon: 0}
	assert.Error(t, ct.Validate())

	ct.ImageURI = "int/cam-1/img.jpg"
	assert.NoError(t, ct.Validate())
}

func TestNormalizeRecordedAt(t *testing.T) {
	naive := time.Date(2024, 3, 10, 8, 30, 0, 0, time.Local)
	got := NormalizeRecordedAt(naive)
	assert.Equal(t, time.UTC, got.Location())

	utc := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	assert.True(t, NormalizeRecordedAt(utc).Equal(utc))
}

func TestLookbackStart(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	info := &IntegrationInformation{}
	assert.Equal(t, now.AddDate(0, 0, -30), info.LookbackStart(now, 30))

	info.DefaultLookbackDays = 7
	assert.Equal(t, now.AddDate(0, 0, -7), info.LookbackStart(now, 30))
}

func TestCursorFor(t *testing.T) {
	info := &IntegrationInformation{
		DeviceStates: map[string]DeviceState{
			"device-1": {DeviceExternalID: "device-1", State: map[string]interface{}{"ts": "2024-01-01"}},
		},
	}

	cursor, ok := info.CursorFor("device-1")
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", cursor["ts"])

	_, ok = info.CursorFor("unknown")
	assert.False(t, ok)
}

func TestIntegrationWireFormat(t *testing.T) {
	// A portal response in the inbound wire format carries no `enabled`
	// field; such integrations must decode as enabled.
	wire := []byte(`{
		"id": "int-1",
		"name": "Collars",
		"type_slug": "tracker",
		"login": "u",
		"password": "p",
		"token": "",
		"endpoint": "https://provider.example.com/api",
		"state": {"cursor": "2024-01-01T00:00:00Z"}
	}`)

	var info IntegrationInformation
	require.NoError(t, json.Unmarshal(wire, &info))

	assert.Equal(t, "int-1", info.ID)
	assert.Equal(t, "tracker", info.TypeSlug)
	assert.True(t, info.Enabled, "integrations without an enabled field are enabled")
	assert.Equal(t, "2024-01-01T00:00:00Z", info.State["cursor"])

	// An explicit false still disables.
	var disabled IntegrationInformation
	require.NoError(t, json.Unmarshal([]byte(`{"id":"int-2","enabled":false}`), &disabled))
	assert.False(t, disabled.Enabled)

	// Round trip keeps the flag.
	out, err := json.Marshal(&info)
	require.NoError(t, err)
	var again IntegrationInformation
	require.NoError(t, json.Unmarshal(out, &again))
	assert.True(t, again.Enabled)
}
