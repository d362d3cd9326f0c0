package pipeline

import (
	"context"
	"fmt"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/shadows"
)

// Runner applies the configured filters and processors to one record at a
// time. Filters run first; the object processor runs next and roots the
// shadow tree; the remaining processors run in configuration order.
type Runner struct {
	object     ObjectProcessor
	filters    []Filter
	processors []Processor
}

// NewRunner creates a runner. The object processor is mandatory; filters and
// processors may be empty.
func NewRunner(object ObjectProcessor, filters []Filter, processors []Processor) (*Runner, error) {
	if object == nil {
		return nil, fmt.Errorf("%w: pipeline needs an object processor", domain.ErrConfiguration)
	}
	return &Runner{
		object:     object,
		filters:    filters,
		processors: processors,
	}, nil
}

// Build turns a record into a shadow tree ready to commit.
//
// Every applicable filter is evaluated even after the first rejection, so the
// log names each reason the record was excluded. A rejected record yields a
// skipped shadow. With skipProcessing set, only the object processor runs.
func (r *Runner) Build(ctx context.Context, record *domain.ExternalRecord, mode Mode, skipProcessing bool) (*shadows.ObjectShadow, error) {
	rejected := false
	for _, filter := range r.filters {
		if filter.IgnoreInMode(mode) {
			logger.Debug("Filter %s ignored in %s mode", filter.Name(), mode)
			continue
		}
		passes, reason := filter.Passes(ctx, record)
		if !passes {
			logger.Info("Filter %s rejected record %s: %s", filter.Name(), record.ID, reason)
			rejected = true
		}
	}

	if rejected {
		shadow, err := r.object.Skip(ctx, record)
		if err != nil {
			return nil, fmt.Errorf("object processor %s (skip): %w", r.object.Name(), err)
		}
		return shadow, nil
	}

	shadow, err := r.object.Process(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("object processor %s: %w", r.object.Name(), err)
	}

	if skipProcessing {
		logger.Debug("Skipping %d processors for record %s", len(r.processors), record.ID)
		return shadow, nil
	}

	for _, processor := range r.processors {
		if err := processor.Process(ctx, record, shadow); err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}
	return shadow, nil
}

// Len returns the number of processors after the object processor.
func (r *Runner) Len() int {
	return len(r.processors)
}
