package pipeline

import (
	"fmt"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// FilterBuilderFunc creates a Filter from generic config.
// Config is a map of filter-specific settings parsed from user config.
type FilterBuilderFunc func(cfg map[string]any) (Filter, error)

// ProcessorBuilderFunc creates a Processor from generic config.
type ProcessorBuilderFunc func(cfg map[string]any) (Processor, error)

// Registry maps filter and processor names to their builders.
// It allows dynamic construction of a pipeline from configuration.
type Registry struct {
	filters    map[string]FilterBuilderFunc
	processors map[string]ProcessorBuilderFunc
}

// NewRegistry creates a new pipeline registry.
func NewRegistry() *Registry {
	return &Registry{
		filters:    make(map[string]FilterBuilderFunc),
		processors: make(map[string]ProcessorBuilderFunc),
	}
}

// RegisterFilter adds a filter builder to the registry.
// Name should be unique and match the filter's Name() return value.
func (r *Registry) RegisterFilter(name string, builder FilterBuilderFunc) {
	r.filters[name] = builder
}

// RegisterProcessor adds a processor builder to the registry.
func (r *Registry) RegisterProcessor(name string, builder ProcessorBuilderFunc) {
	r.processors[name] = builder
}

// BuildFilter creates a filter by name with the given config.
// An unregistered name is a configuration error.
func (r *Registry) BuildFilter(name string, cfg map[string]any) (Filter, error) {
	builder, ok := r.filters[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown filter %q", domain.ErrConfiguration, name)
	}
	return builder(cfg)
}

// BuildProcessor creates a processor by name with the given config.
// An unregistered name is a configuration error.
func (r *Registry) BuildProcessor(name string, cfg map[string]any) (Processor, error) {
	builder, ok := r.processors[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor %q", domain.ErrConfiguration, name)
	}
	return builder(cfg)
}

// HasFilter returns true if a filter with the given name is registered.
func (r *Registry) HasFilter(name string) bool {
	_, ok := r.filters[name]
	return ok
}

// HasProcessor returns true if a processor with the given name is registered.
func (r *Registry) HasProcessor(name string) bool {
	_, ok := r.processors[name]
	return ok
}

// FilterNames returns all registered filter names.
func (r *Registry) FilterNames() []string {
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	return names
}

// ProcessorNames returns all registered processor names.
func (r *Registry) ProcessorNames() []string {
	names := make([]string, 0, len(r.processors))
	for name := range r.processors {
		names = append(names, name)
	}
	return names
}
