package pipeline

import (
	"context"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/shadows"
)

// Mode identifies how the current run selects records. Filters can opt out of
// specific modes, typically to let a single-record run bypass bulk-harvest
// exclusions.
type Mode string

const (
	// ModeAll is a full-catalogue harvest.
	ModeAll Mode = "all"

	// ModeSingle harvests one record by reference.
	ModeSingle Mode = "single"

	// ModeRange harvests a window of the source listing.
	ModeRange Mode = "range"
)

// Filter decides whether a record should be harvested.
type Filter interface {
	// Name identifies the filter in configuration and logs.
	Name() string

	// Passes reports whether the record passes, with a human-readable
	// reason when it does not.
	Passes(ctx context.Context, record *domain.ExternalRecord) (bool, string)

	// IgnoreInMode reports whether the filter is skipped in the given mode.
	IgnoreInMode(mode Mode) bool
}

// ObjectProcessor builds the root object shadow for a record. Every pipeline
// has exactly one.
type ObjectProcessor interface {
	// Name identifies the processor in configuration and logs.
	Name() string

	// Process builds the shadow for a record that passed all filters.
	Process(ctx context.Context, record *domain.ExternalRecord) (*shadows.ObjectShadow, error)

	// Skip builds a skipped shadow for a rejected record. The shadow still
	// carries the resolution queries so the commit can unpublish whatever
	// object the record maps to.
	Skip(ctx context.Context, record *domain.ExternalRecord) (*shadows.ObjectShadow, error)
}

// Processor contributes metadata or file shadows to an object shadow.
type Processor interface {
	// Name identifies the processor in configuration and logs.
	Name() string

	// Process inspects the record and attaches shadows to the tree.
	Process(ctx context.Context, record *domain.ExternalRecord, shadow *shadows.ObjectShadow) error
}
