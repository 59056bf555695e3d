package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/connector/core"
	"github.com/sintegrate/connector-sdk/pkg/schemas"
)

type fakeExtractor struct {
	name string
}

func (f *fakeExtractor) Name() string     { return f.name }
func (f *fakeExtractor) TypeSlug() string { return f.name }
func (f *fakeExtractor) Extract(ctx context.Context, integration *schemas.IntegrationInformation) (*core.ObservationStream, error) {
	stream, writer := core.NewStream(0)
	writer.CloseWith(nil)
	return stream, nil
}

func fakeFactory(name string) ExtractorFactory {
	return func(settings *config.Settings) (core.Extractor, error) {
		return &fakeExtractor{name: name}, nil
	}
}

func TestRegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("tracker", fakeFactory("tracker")))

	extractor, err := r.Create("tracker", config.NewSettings())
	require.NoError(t, err)
	assert.Equal(t, "tracker", extractor.Name())
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("tracker", fakeFactory("tracker")))
	assert.Error(t, r.Register("tracker", fakeFactory("tracker")))
}

func TestCreateUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("missing", config.NewSettings())
	assert.Error(t, err)
}

func TestListIsSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("zebra", fakeFactory("zebra")))
	require.NoError(t, r.Register("antelope", fakeFactory("antelope")))
	require.NoError(t, r.Register("lion", fakeFactory("lion")))

	assert.Equal(t, []string{"antelope", "lion", "zebra"}, r.List())
}
