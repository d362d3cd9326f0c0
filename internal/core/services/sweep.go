package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driving"
	"github.com/custodia-labs/harvest-cli/internal/logger"
)

// DefaultSweepPageSize is how many objects one listing page requests.
const DefaultSweepPageSize = 500

// Ensure SweepService implements the interface.
var _ driving.Sweeper = (*SweepService)(nil)

// SweepService finds published registry objects a full harvest did not
// touch. Those are records the source no longer lists, still visible to the
// public.
type SweepService struct {
	client   driven.RegistryClient
	pageSize int
}

// NewSweepService creates a new sweep service.
func NewSweepService(client driven.RegistryClient) *SweepService {
	return &SweepService{
		client:   client,
		pageSize: DefaultSweepPageSize,
	}
}

// Sweep lists the published objects on the accesspoint, diffs them against
// touchedIDs and applies the policy to the stale remainder. The listing uses
// a stable creation-date sort so pagination stays consistent while objects
// are being published around it.
func (s *SweepService) Sweep(ctx context.Context, touchedIDs []string, opts driving.SweepOptions) (*driving.SweepResult, error) {
	if opts.AccessPointID == "" {
		return nil, fmt.Errorf("%w: sweep needs an accesspoint", domain.ErrConfiguration)
	}
	switch opts.Policy {
	case driving.SweepDump:
		if opts.DumpPath == "" {
			return nil, fmt.Errorf("%w: dump policy needs an output path", domain.ErrConfiguration)
		}
	case driving.SweepUnpublish:
	case driving.SweepDelete:
		return nil, fmt.Errorf("%w: sweep policy %q is reserved", domain.ErrNotImplemented, opts.Policy)
	default:
		return nil, fmt.Errorf("%w: unknown sweep policy %q", domain.ErrConfiguration, opts.Policy)
	}

	touched := make(map[string]bool, len(touchedIDs))
	for _, id := range touchedIDs {
		touched[id] = true
	}

	result := &driving.SweepResult{}
	for page := 0; ; page++ {
		total, objects, err := s.client.GetObjects(ctx, driven.ObjectQuery{
			AccessPointID: opts.AccessPointID,
			Sort:          driven.SortDateCreatedAsc,
			PageIndex:     page,
			PageSize:      s.pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("list published objects, page %d: %w", page, err)
		}

		for _, object := range objects {
			result.Listed++
			if !touched[object.ID] {
				result.Stale = append(result.Stale, object.ID)
			}
		}

		if len(objects) == 0 || result.Listed >= total {
			break
		}
	}

	logger.Info("Sweep listed %d published objects, %d stale", result.Listed, len(result.Stale))

	switch opts.Policy {
	case driving.SweepDump:
		if err := s.dump(result.Stale, opts.DumpPath); err != nil {
			return nil, err
		}
	case driving.SweepUnpublish:
		result.Unpublished = s.unpublish(ctx, result.Stale, opts.AccessPointID)
	}
	return result, nil
}

// dump writes the stale IDs to the output file, one per line.
func (s *SweepService) dump(stale []string, path string) error {
	var sb strings.Builder
	for _, id := range stale {
		sb.WriteString(id)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write sweep dump: %w", err)
	}
	logger.Info("Wrote %d stale object IDs to %s", len(stale), path)
	return nil
}

// unpublish takes each stale object off the accesspoint. Failures are
// logged and counted out; the sweep keeps going.
func (s *SweepService) unpublish(ctx context.Context, stale []string, accessPointID string) int {
	unpublished := 0
	for _, id := range stale {
		logger.Info("Unpublishing stale object %s from accesspoint %s", id, accessPointID)
		if err := s.client.SetPublishSettings(ctx, id, accessPointID, nil); err != nil {
			logger.Warn("Failed to unpublish stale object %s: %v", id, err)
			continue
		}
		unpublished++
	}
	return unpublished
}
