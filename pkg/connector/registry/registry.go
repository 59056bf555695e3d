// Package registry maps integration type slugs to extractor factories so
// the CLI can instantiate connectors by name.
package registry

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/connector/core"
	"github.com/sintegrate/connector-sdk/pkg/errors"
	"github.com/sintegrate/connector-sdk/pkg/logger"
)

// ExtractorFactory creates an extractor instance from the SDK settings.
type ExtractorFactory func(settings *config.Settings) (core.Extractor, error)

// Registry manages extractor registration and instantiation.
type Registry struct {
	extractors map[string]ExtractorFactory
	mu         sync.RWMutex
	logger     *zap.Logger
}

var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]ExtractorFactory),
		logger:     logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// Register adds an extractor factory under its type slug.
func (r *Registry) Register(typeSlug string, factory ExtractorFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.extractors[typeSlug]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "extractor %q already registered", typeSlug)
	}

	r.extractors[typeSlug] = factory
	r.logger.Info("extractor registered", zap.String("type_slug", typeSlug))
	return nil
}

// Create instantiates the extractor registered for the type slug.
func (r *Registry) Create(typeSlug string, settings *config.Settings) (core.Extractor, error) {
	r.mu.RLock()
	factory, exists := r.extractors[typeSlug]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "no extractor registered for type %q", typeSlug)
	}

	extractor, err := factory(settings)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeConfig, "failed to create extractor %q", typeSlug)
	}
	return extractor, nil
}

// List returns the registered type slugs in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slugs := make([]string, 0, len(r.extractors))
	for slug := range r.extractors {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Register adds a factory to the global registry. Connector packages call
// this from init().
func Register(typeSlug string, factory ExtractorFactory) error {
	return globalRegistry.Register(typeSlug, factory)
}

// Create instantiates an extractor from the global registry.
func Create(typeSlug string, settings *config.Settings) (core.Extractor, error) {
	return globalRegistry.Create(typeSlug, settings)
}

// List returns the type slugs in the global registry.
func List() []string {
	return globalRegistry.List()
}
