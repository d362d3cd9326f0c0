package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// ObjectQuery describes one call to the registry's object listing endpoint.
type ObjectQuery struct {
	// Query is the lookup expression, in the registry's query language.
	Query string

	// Sort orders results. Use SortDateCreatedAsc for deterministic
	// pagination and duplicate resolution.
	Sort string

	// AccessPointID optionally filters to objects visible on an accesspoint.
	AccessPointID string

	// PageIndex and PageSize select the page.
	PageIndex int
	PageSize  int

	// IncludeMetadata, IncludeFiles and IncludeAccessPoints expand the
	// results with the dependent entities the reconciler needs.
	IncludeMetadata     bool
	IncludeFiles        bool
	IncludeAccessPoints bool
}

// SortDateCreatedAsc orders results oldest first. The reconciler depends on
// this ordering: the earliest-created match is the canonical object, and
// sweep pagination must be stable across pages.
const SortDateCreatedAsc = "DateCreated+asc"

// FileSpec describes a file to create on a registry object.
type FileSpec struct {
	ParentFileID     *int64
	FormatID         int
	DestinationID    int
	Filename         string
	OriginalFilename string
	FolderPath       string
}

// RegistryClient is the session-authenticated RPC client for the registry.
//
// Every registry call carries a two-level success indicator: transport-level
// success and service-level success, each with an attached error message.
// Implementations must check both levels and surface failures as errors, so
// callers never see a half-trusted result. Session expiry must be mapped to
// domain.ErrSessionExpired so the engine can reauthenticate and retry.
type RegistryClient interface {
	// GetObjects runs a lookup query and returns the total match count along
	// with one page of results.
	GetObjects(ctx context.Context, q ObjectQuery) (int, []domain.RegistryObject, error)

	// CreateObject creates an empty object of the given type in a folder.
	CreateObject(ctx context.Context, objectTypeID, folderID int) (*domain.RegistryObject, error)

	// SetPublishSettings publishes (start != nil) or unpublishes (start ==
	// nil) an object on an accesspoint.
	SetPublishSettings(ctx context.Context, objectID, accessPointID string, start *time.Time) error

	// SetMetadata creates or overwrites one schema's metadata on an object.
	// revisionID must be the object's current revision for that schema, or
	// nil when no metadata exists yet; the registry rejects stale revisions.
	SetMetadata(ctx context.Context, objectID, schemaID, languageCode string, revisionID *int, xml string) error

	// CreateFile attaches a file to an object.
	CreateFile(ctx context.Context, objectID string, spec FileSpec) (*domain.FileRecord, error)

	// DeleteFile removes a file from the registry. Irreversible.
	DeleteFile(ctx context.Context, fileID int64) error

	// GetMetadataSchema fetches a schema's XML source by ID.
	GetMetadataSchema(ctx context.Context, schemaID string) (string, error)

	// UpdateSession refreshes the current session. Safe to call redundantly.
	UpdateSession(ctx context.Context) error

	// Reauthenticate discards the current session and establishes a fresh,
	// authenticated one.
	Reauthenticate(ctx context.Context) error

	// HasSession reports whether a session is currently established.
	HasSession() bool

	// SessionID returns the current session identifier, or "".
	SessionID() string
}
