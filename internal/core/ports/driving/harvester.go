package driving

import (
	"context"
)

// HarvestOptions tunes one harvester run.
type HarvestOptions struct {
	// SkipProcessing runs only the object processor: records are resolved,
	// created and (un)published but no metadata or files are written.
	SkipProcessing bool

	// PublishAccessPointID forces a publish of every touched object on the
	// named accesspoint, regardless of the configured publish settings.
	PublishAccessPointID string

	// UnpublishAccessPointID forces an unpublish of every touched object
	// from the named accesspoint.
	UnpublishAccessPointID string
}

// Failure records one record that could not be harvested.
type Failure struct {
	// Reference identifies the record in the source.
	Reference string

	// Err is the terminal error after retries.
	Err error
}

// HarvestResult summarises one harvester run.
type HarvestResult struct {
	// Attempted counts records the run tried to harvest.
	Attempted int

	// TouchedIDs lists the registry objects the run resolved or created,
	// in processing order. Skipped records that matched nothing contribute
	// no entry.
	TouchedIDs []string

	// Failures lists the records that failed after retries. A failure
	// never aborts the rest of the run.
	Failures []Failure
}

// Succeeded returns how many attempted records completed.
func (r *HarvestResult) Succeeded() int {
	return r.Attempted - len(r.Failures)
}

// Harvester runs harvests against the registry.
type Harvester interface {
	// HarvestAll harvests every record the source lists.
	HarvestAll(ctx context.Context, opts HarvestOptions) (*HarvestResult, error)

	// HarvestSingle harvests one record by its source reference.
	HarvestSingle(ctx context.Context, reference string, opts HarvestOptions) (*HarvestResult, error)

	// HarvestRange harvests count records starting at start in the source
	// listing. A zero count means everything from start.
	HarvestRange(ctx context.Context, start, count int, opts HarvestOptions) (*HarvestResult, error)
}

// SweepPolicy selects what to do with stale objects found by a sweep.
type SweepPolicy string

const (
	// SweepDump writes stale object IDs to a file.
	SweepDump SweepPolicy = "dump"

	// SweepUnpublish unpublishes stale objects from an accesspoint.
	SweepUnpublish SweepPolicy = "unpublish"

	// SweepDelete is reserved and not implemented.
	SweepDelete SweepPolicy = "delete"
)

// SweepOptions configures a sweep after a full harvest.
type SweepOptions struct {
	// Policy selects the action applied to stale objects.
	Policy SweepPolicy

	// DumpPath is the output file for SweepDump.
	DumpPath string

	// AccessPointID scopes the published-object listing, and is the
	// accesspoint SweepUnpublish unpublishes from.
	AccessPointID string
}

// SweepResult summarises one sweep.
type SweepResult struct {
	// Listed counts the published objects the sweep examined.
	Listed int

	// Stale lists the object IDs the harvest did not touch.
	Stale []string

	// Unpublished counts stale objects unpublished under SweepUnpublish.
	Unpublished int
}

// Sweeper finds registry objects a full harvest no longer accounts for.
type Sweeper interface {
	// Sweep lists published objects, diffs them against touchedIDs and
	// applies the policy to the stale remainder.
	Sweep(ctx context.Context, touchedIDs []string, opts SweepOptions) (*SweepResult, error)
}
