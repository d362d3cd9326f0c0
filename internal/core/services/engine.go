package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driving"
	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/pipeline"
	"github.com/custodia-labs/harvest-cli/internal/shadows"
)

// maxCommitAttempts bounds how often one record is attempted end to end,
// processing included.
const maxCommitAttempts = 3

// keepaliveInterval is how often the registry session is refreshed during a
// long batch, comfortably inside the server's idle timeout.
const keepaliveInterval = 15 * time.Minute

// Ensure HarvestEngine implements the interface.
var _ driving.Harvester = (*HarvestEngine)(nil)

// HarvestEngine coordinates one harvester run: fetch records from the
// source, build shadow trees through the pipeline, commit them to the
// registry. Record failures are collected and reported at the end; only
// batch-level failures (listing the source, configuration) abort a run.
type HarvestEngine struct {
	client driven.RegistryClient
	source driven.RecordSource
	runner *pipeline.Runner

	// now is replaceable for keepalive tests.
	now           func() time.Time
	lastKeepalive time.Time
}

// NewHarvestEngine creates a new harvest engine.
func NewHarvestEngine(client driven.RegistryClient, source driven.RecordSource, runner *pipeline.Runner) *HarvestEngine {
	return &HarvestEngine{
		client: client,
		source: source,
		runner: runner,
		now:    time.Now,
	}
}

// HarvestAll harvests every record the source lists.
func (e *HarvestEngine) HarvestAll(ctx context.Context, opts driving.HarvestOptions) (*driving.HarvestResult, error) {
	return e.harvestRange(ctx, 0, 0, pipeline.ModeAll, opts)
}

// HarvestRange harvests count records starting at start. A zero count means
// everything from start.
func (e *HarvestEngine) HarvestRange(ctx context.Context, start, count int, opts driving.HarvestOptions) (*driving.HarvestResult, error) {
	return e.harvestRange(ctx, start, count, pipeline.ModeRange, opts)
}

// HarvestSingle harvests one record by its source reference.
func (e *HarvestEngine) HarvestSingle(ctx context.Context, reference string, opts driving.HarvestOptions) (*driving.HarvestResult, error) {
	logger.Info("Harvesting single record %s", reference)
	e.lastKeepalive = e.now()

	record, err := e.source.FetchSingle(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("fetch record %s: %w", reference, err)
	}

	result := &driving.HarvestResult{}
	e.processRecord(ctx, record, pipeline.ModeSingle, opts, result)
	e.report(result)
	return result, nil
}

func (e *HarvestEngine) harvestRange(ctx context.Context, start, count int, mode pipeline.Mode, opts driving.HarvestOptions) (*driving.HarvestResult, error) {
	if count == 0 {
		logger.Info("Harvesting all records from %d", start)
	} else {
		logger.Info("Harvesting %d records from %d", count, start)
	}
	e.lastKeepalive = e.now()

	refs, err := e.source.FetchRange(ctx, start, count)
	if err != nil {
		return nil, fmt.Errorf("fetch range %d+%d: %w", start, count, err)
	}
	logger.Info("Source listed %d records", len(refs))

	result := &driving.HarvestResult{}
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.keepalive(ctx)

		record := ref.Record
		if ref.IsReference() {
			record, err = e.source.FetchSingle(ctx, ref.Reference)
			if err != nil {
				logger.Warn("Failed to fetch record %s: %v", ref.Reference, err)
				result.Attempted++
				result.Failures = append(result.Failures, driving.Failure{
					Reference: ref.Describe(),
					Err:       fmt.Errorf("fetch record: %w", err),
				})
				continue
			}
		}

		e.processRecord(ctx, record, mode, opts, result)
	}

	e.report(result)
	return result, nil
}

// processRecord builds and commits one record's shadow tree. All failures
// end up in the result; none propagate.
func (e *HarvestEngine) processRecord(ctx context.Context, record *domain.ExternalRecord, mode pipeline.Mode, opts driving.HarvestOptions, result *driving.HarvestResult) {
	result.Attempted++
	logger.Debug("Processing record %s", record.ID)

	commit, err := e.attemptRecord(ctx, record, mode, opts)
	if err != nil {
		logger.Warn("Failed record %s: %v", record.ID, err)
		result.Failures = append(result.Failures, driving.Failure{Reference: record.ID, Err: err})
		return
	}

	if commit.ObjectID != "" {
		result.TouchedIDs = append(result.TouchedIDs, commit.ObjectID)

		if err := e.applyOverrides(ctx, commit.ObjectID, opts); err != nil {
			logger.Warn("Failed to apply publish override on %s: %v", commit.ObjectID, err)
			result.Failures = append(result.Failures, driving.Failure{Reference: record.ID, Err: err})
			return
		}
	}

	logger.Info("Record %s committed: object %s (%s)", record.ID, commit.ObjectID, commit.State)
}

// attemptRecord runs one record through the pipeline and commits the result,
// retrying up to maxCommitAttempts. Each attempt rebuilds the shadow from
// scratch: a failed commit may have partially written the registry, so the
// next attempt must resolve live state rather than replay cached revisions.
// An expired session costs an attempt and triggers reauthentication before
// the next one.
func (e *HarvestEngine) attemptRecord(ctx context.Context, record *domain.ExternalRecord, mode pipeline.Mode, opts driving.HarvestOptions) (*shadows.CommitResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		shadow, err := e.runner.Build(ctx, record, mode, opts.SkipProcessing)
		if err == nil {
			var commit *shadows.CommitResult
			if commit, err = shadow.Commit(ctx, e.client); err == nil {
				return commit, nil
			}
		}
		lastErr = err

		if errors.Is(err, domain.ErrSessionExpired) {
			logger.Warn("Session expired on attempt %d; reauthenticating", attempt)
			if raErr := e.client.Reauthenticate(ctx); raErr != nil {
				return nil, fmt.Errorf("reauthenticate: %w", raErr)
			}
		} else if attempt < maxCommitAttempts {
			logger.Warn("Attempt %d for record %s failed: %v", attempt, record.ID, err)
		}
	}
	return nil, fmt.Errorf("record failed after %d attempts: %w", maxCommitAttempts, lastErr)
}

// applyOverrides applies the one-off publish and unpublish flags.
func (e *HarvestEngine) applyOverrides(ctx context.Context, objectID string, opts driving.HarvestOptions) error {
	if opts.PublishAccessPointID != "" {
		start := e.now().Add(-shadows.PublishBackdate)
		logger.Info("Publishing %s to accesspoint %s (override)", objectID, opts.PublishAccessPointID)
		if err := e.client.SetPublishSettings(ctx, objectID, opts.PublishAccessPointID, &start); err != nil {
			return fmt.Errorf("publish override on %s: %w", opts.PublishAccessPointID, err)
		}
	}
	if opts.UnpublishAccessPointID != "" {
		logger.Info("Unpublishing %s from accesspoint %s (override)", objectID, opts.UnpublishAccessPointID)
		if err := e.client.SetPublishSettings(ctx, objectID, opts.UnpublishAccessPointID, nil); err != nil {
			return fmt.Errorf("unpublish override on %s: %w", opts.UnpublishAccessPointID, err)
		}
	}
	return nil
}

// keepalive refreshes the registry session when the interval has passed.
// Failures are logged and swallowed; the next registry call will surface a
// real session problem as ErrSessionExpired and go through the retry path.
func (e *HarvestEngine) keepalive(ctx context.Context) {
	if e.now().Sub(e.lastKeepalive) < keepaliveInterval {
		return
	}
	logger.Debug("Refreshing registry session")
	if err := e.client.UpdateSession(ctx); err != nil {
		logger.Warn("Session refresh failed: %v", err)
	}
	e.lastKeepalive = e.now()
}

// report prints the end-of-run summary with every failure.
func (e *HarvestEngine) report(result *driving.HarvestResult) {
	logger.Info("Harvest complete: %d records, %d succeeded, %d failed",
		result.Attempted, result.Succeeded(), len(result.Failures))
	for _, failure := range result.Failures {
		logger.Warn("Failed record %s: %v", failure.Reference, failure.Err)
	}
}
