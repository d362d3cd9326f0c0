package shadows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
)

// DefaultDuplicateThreshold bounds how many query matches are still
// resolvable. Above it the query is too ambiguous to trust.
const DefaultDuplicateThreshold = 3

// PublishBackdate is subtracted from publish start dates. Registry servers
// run on skewed clocks; a window starting "now" can read as unpublished.
const PublishBackdate = 24 * time.Hour

// ObjectShadow is the staging representation of one registry object and its
// dependents, built by processors and committed by the engine.
type ObjectShadow struct {
	// Queries are tried in order; the first one yielding between 1 and the
	// duplicate threshold matches wins.
	Queries []string

	// ObjectTypeID and FolderID are used when the object must be created.
	ObjectTypeID int
	FolderID     int

	// DuplicateThreshold overrides DefaultDuplicateThreshold when positive.
	DuplicateThreshold int

	// MetadataShadows, FileShadows and RelatedObjectShadows are committed in
	// insertion order.
	MetadataShadows      []*MetadataShadow
	FileShadows          []*FileShadow
	RelatedObjectShadows []*ObjectShadow

	// Extras carries values exchanged between the processors that built this
	// shadow. Not consulted during commit.
	Extras *domain.Extras

	// PublishAccessPointIDs lists accesspoints to publish to on a normal
	// commit. UnpublishAccessPointIDs lists accesspoints to unpublish from
	// when the shadow is skipped, and from duplicate objects always.
	PublishAccessPointIDs   []string
	UnpublishAccessPointIDs []string

	// UnpublishEverywhere unpublishes a skipped object from every accesspoint
	// it is currently published on, instead of the configured set.
	UnpublishEverywhere bool

	// DeleteOrphans enables removal of registry files no shadow references.
	// Deletion is irreversible, so it stays behind this switch.
	DeleteOrphans bool

	// Skipped marks the record as rejected by filters: commit reconciles
	// toward an unpublished state instead of creating or updating.
	Skipped bool

	resolved     *domain.RegistryObject
	resolvedDone bool
	duplicates   []domain.RegistryObject

	committed bool
	result    *CommitResult
}

func (s *ObjectShadow) threshold() int {
	if s.DuplicateThreshold > 0 {
		return s.DuplicateThreshold
	}
	return DefaultDuplicateThreshold
}

// Resolve binds the shadow to the live registry object matching its queries,
// or to nil when nothing matches. Resolution is memoized for the shadow's
// lifetime; at most one registry object is ever bound.
func (s *ObjectShadow) Resolve(ctx context.Context, client driven.RegistryClient) (*domain.RegistryObject, error) {
	if s.resolvedDone {
		return s.resolved, nil
	}
	if len(s.Queries) == 0 {
		return nil, fmt.Errorf("%w: object shadow has no query", domain.ErrInvalidInput)
	}

	threshold := s.threshold()
	for _, query := range s.Queries {
		total, results, err := client.GetObjects(ctx, driven.ObjectQuery{
			Query:               query,
			Sort:                driven.SortDateCreatedAsc,
			PageIndex:           0,
			PageSize:            threshold + 1,
			IncludeMetadata:     true,
			IncludeFiles:        true,
			IncludeAccessPoints: true,
		})
		if err != nil {
			return nil, fmt.Errorf("get objects for %q: %w", query, err)
		}
		if total == 0 {
			continue
		}
		if total > threshold {
			return nil, fmt.Errorf("%w: %q matched %d objects (threshold %d)",
				domain.ErrAmbiguousQuery, query, total, threshold)
		}
		// Results are sorted oldest first: the earliest-created match is the
		// canonical object, the rest are duplicates to unpublish.
		canonical := results[0]
		s.resolved = &canonical
		s.duplicates = results[1:]
		s.resolvedDone = true
		if len(s.duplicates) > 0 {
			logger.Warn("Query %q matched %d objects; using %s, flagging %d duplicates",
				query, total, canonical.ID, len(s.duplicates))
		}
		return s.resolved, nil
	}

	s.resolvedDone = true
	return nil, nil
}

// Duplicates returns the non-canonical matches found by Resolve.
func (s *ObjectShadow) Duplicates() []domain.RegistryObject {
	return s.duplicates
}

// Commit reconciles the shadow tree against the registry. Re-invoking Commit
// on an already-committed shadow returns the cached result.
func (s *ObjectShadow) Commit(ctx context.Context, client driven.RegistryClient) (*CommitResult, error) {
	return s.commit(ctx, client, make(map[string]bool))
}

func (s *ObjectShadow) commit(ctx context.Context, client driven.RegistryClient, visited map[string]bool) (*CommitResult, error) {
	if s.committed {
		return s.result, nil
	}

	object, err := s.Resolve(ctx, client)
	if err != nil {
		return nil, err
	}

	result := &CommitResult{}
	if s.Skipped {
		result.State = StateSkipped
		if object != nil {
			result.ObjectID = object.ID
			if err := s.unpublishSkipped(ctx, client, object); err != nil {
				return nil, err
			}
		}
	} else {
		result.State = StateReused
		if object == nil {
			object, err = client.CreateObject(ctx, s.ObjectTypeID, s.FolderID)
			if err != nil {
				return nil, fmt.Errorf("create object: %w", err)
			}
			logger.Info("Created a new registry object with ID = %s", object.ID)
			s.resolved = object
			result.State = StateCreated
		} else {
			logger.Info("Reusing registry object created %s with ID = %s",
				object.DateCreated.Format(time.RFC1123), object.ID)
		}
		result.ObjectID = object.ID

		if visited[object.ID] {
			logger.Warn("Object %s already committed in this tree; refusing to recommit", object.ID)
			s.committed = true
			s.result = result
			return result, nil
		}
		visited[object.ID] = true

		for _, ms := range s.MetadataShadows {
			if err := ms.Commit(ctx, client, s); err != nil {
				return nil, err
			}
		}

		if err := s.commitFiles(ctx, client, result); err != nil {
			return nil, err
		}

		for _, rs := range s.RelatedObjectShadows {
			if _, err := rs.commit(ctx, client, visited); err != nil {
				return nil, fmt.Errorf("related object: %w", err)
			}
		}

		if err := s.publish(ctx, client, object); err != nil {
			return nil, err
		}
	}

	// Duplicates are never canonical; unpublish them regardless of the
	// skipped branch. Best effort: a failure here must not fail the record.
	result.DuplicatesUnpublished = s.unpublishDuplicates(ctx, client)

	s.committed = true
	s.result = result
	return result, nil
}

func (s *ObjectShadow) commitFiles(ctx context.Context, client driven.RegistryClient, result *CommitResult) error {
	if len(s.FileShadows) == 0 {
		return nil
	}

	var line strings.Builder
	line.WriteString("Committing files: ")
	for _, fs := range s.FileShadows {
		file, err := fs.Commit(ctx, client, s)
		if err != nil {
			return err
		}
		switch fs.Status {
		case FileStatusReused:
			result.FilesReused++
			line.WriteByte('.')
		case FileStatusCreated:
			result.FilesCreated++
			line.WriteByte('+')
		default:
			line.WriteByte('?')
		}
		_ = file
	}
	logger.Info("%s", line.String())

	if s.DeleteOrphans {
		result.OrphansDeleted = s.deleteOrphans(ctx, client)
	}
	return nil
}

// deleteOrphans removes registry files on the resolved object that no
// committed file shadow references. Deletion failures are logged and
// swallowed; cleanup is best effort.
func (s *ObjectShadow) deleteOrphans(ctx context.Context, client driven.RegistryClient) int {
	referenced := make(map[int64]bool, len(s.FileShadows))
	for _, fs := range s.FileShadows {
		if fs.file != nil {
			referenced[fs.file.ID] = true
		}
	}

	deleted := 0
	for _, f := range s.resolved.Files {
		if referenced[f.ID] {
			continue
		}
		logger.Info("Deleting orphaned file %d (%s) from object %s", f.ID, f.OriginalFilename, s.resolved.ID)
		if err := client.DeleteFile(ctx, f.ID); err != nil {
			logger.Warn("Failed to delete orphaned file %d: %v", f.ID, err)
			continue
		}
		deleted++
	}
	return deleted
}

func (s *ObjectShadow) publish(ctx context.Context, client driven.RegistryClient, object *domain.RegistryObject) error {
	now := time.Now()
	start := now.Add(-PublishBackdate)
	for _, ap := range s.PublishAccessPointIDs {
		if object.IsPublished(ap, now) {
			logger.Debug("Object %s already published on %s", object.ID, ap)
			continue
		}
		logger.Info("Publishing %s to accesspoint %s with start date %s", object.ID, ap, start.Format(time.RFC3339))
		if err := client.SetPublishSettings(ctx, object.ID, ap, &start); err != nil {
			return fmt.Errorf("publish on %s: %w", ap, err)
		}
	}
	return nil
}

func (s *ObjectShadow) unpublishSkipped(ctx context.Context, client driven.RegistryClient, object *domain.RegistryObject) error {
	now := time.Now()
	accessPoints := s.UnpublishAccessPointIDs
	if s.UnpublishEverywhere {
		accessPoints = object.PublishedAccessPoints(now)
	}
	for _, ap := range accessPoints {
		if !object.IsPublished(ap, now) {
			logger.Debug("Object %s already unpublished on %s", object.ID, ap)
			continue
		}
		logger.Info("Unpublishing %s from accesspoint %s", object.ID, ap)
		if err := client.SetPublishSettings(ctx, object.ID, ap, nil); err != nil {
			return fmt.Errorf("unpublish from %s: %w", ap, err)
		}
	}
	return nil
}

func (s *ObjectShadow) unpublishDuplicates(ctx context.Context, client driven.RegistryClient) int {
	now := time.Now()
	unpublished := 0
	for i := range s.duplicates {
		dup := &s.duplicates[i]
		for _, ap := range s.UnpublishAccessPointIDs {
			if !dup.IsPublished(ap, now) {
				continue
			}
			logger.Info("Unpublishing duplicate object %s from accesspoint %s", dup.ID, ap)
			if err := client.SetPublishSettings(ctx, dup.ID, ap, nil); err != nil {
				logger.Warn("Failed to unpublish duplicate %s from %s: %v", dup.ID, ap, err)
				continue
			}
			unpublished++
		}
	}
	return unpublished
}
