// Package memory provides an in-memory registry client for tests and dry
// runs. Query resolution is driven by canned results; every mutating call is
// recorded so tests can assert on exactly what the reconciler did.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.RegistryClient = (*Client)(nil)

// PublishCall records one SetPublishSettings invocation.
type PublishCall struct {
	ObjectID      string
	AccessPointID string
	Start         *time.Time
}

// MetadataCall records one SetMetadata invocation.
type MetadataCall struct {
	ObjectID     string
	SchemaID     string
	LanguageCode string
	RevisionID   *int
	XML          string
}

// Client is the in-memory registry.
type Client struct {
	mu sync.Mutex

	objects      map[string]*domain.RegistryObject
	queryResults map[string][]string
	schemas      map[string]string
	nextFileID   int64

	sessionID      string
	reauths        int
	sessionUpdates int

	// pending errors are returned, one per call, before the call executes.
	pending []error

	publishCalls  []PublishCall
	metadataCalls []MetadataCall
	deletedFiles  []int64
	createdCount  int
}

// NewClient creates an empty in-memory registry with an open session.
func NewClient() *Client {
	return &Client{
		objects:      make(map[string]*domain.RegistryObject),
		queryResults: make(map[string][]string),
		schemas:      make(map[string]string),
		sessionID:    uuid.NewString(),
	}
}

// AddObject stores an object.
func (c *Client) AddObject(object *domain.RegistryObject) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[object.ID] = object
	for _, f := range object.Files {
		if f.ID >= c.nextFileID {
			c.nextFileID = f.ID + 1
		}
	}
}

// SetQueryResults maps a query to the IDs it matches, in creation order.
func (c *Client) SetQueryResults(query string, objectIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queryResults[query] = objectIDs
}

// SetSchema stores a schema source for GetMetadataSchema.
func (c *Client) SetSchema(schemaID, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[schemaID] = source
}

// FailNext queues errors returned by the next data calls, in order, before
// any call executes. Session maintenance calls are not affected, so tests
// can fault a commit while reauthentication still works.
func (c *Client) FailNext(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, errs...)
}

// Object returns a stored object by ID.
func (c *Client) Object(id string) *domain.RegistryObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects[id]
}

// PublishCalls returns the recorded SetPublishSettings invocations.
func (c *Client) PublishCalls() []PublishCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]PublishCall(nil), c.publishCalls...)
}

// MetadataCalls returns the recorded SetMetadata invocations.
func (c *Client) MetadataCalls() []MetadataCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MetadataCall(nil), c.metadataCalls...)
}

// DeletedFiles returns the file IDs passed to DeleteFile.
func (c *Client) DeletedFiles() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.deletedFiles...)
}

// CreatedObjects returns how many objects CreateObject made.
func (c *Client) CreatedObjects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createdCount
}

// Reauths returns how many times Reauthenticate was called.
func (c *Client) Reauths() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reauths
}

// SessionUpdates returns how many times UpdateSession was called.
func (c *Client) SessionUpdates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionUpdates
}

// copyObject returns a detached copy. Results must not alias registry state;
// the real client decodes fresh values off the wire, and callers rely on a
// result staying fixed while the registry moves on (metadata revisions in
// particular).
func copyObject(o *domain.RegistryObject) domain.RegistryObject {
	copied := *o
	copied.Metadata = append([]domain.MetadataRecord(nil), o.Metadata...)
	copied.Files = append([]domain.FileRecord(nil), o.Files...)
	copied.AccessPoints = append([]domain.AccessPointEntry(nil), o.AccessPoints...)
	return copied
}

// fail pops a queued error, if any.
func (c *Client) fail() error {
	if len(c.pending) == 0 {
		return nil
	}
	err := c.pending[0]
	c.pending = c.pending[1:]
	return err
}

// GetObjects resolves canned query results, or lists published objects when
// the query filters by accesspoint.
func (c *Client) GetObjects(_ context.Context, q driven.ObjectQuery) (int, []domain.RegistryObject, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail(); err != nil {
		return 0, nil, err
	}

	var ids []string
	if q.Query != "" {
		ids = c.queryResults[q.Query]
	} else if q.AccessPointID != "" {
		now := time.Now()
		for id, object := range c.objects {
			if object.IsPublished(q.AccessPointID, now) {
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool {
			return c.objects[ids[i]].DateCreated.Before(c.objects[ids[j]].DateCreated)
		})
	}

	total := len(ids)
	start := q.PageIndex * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if q.PageSize == 0 || end > total {
		end = total
	}

	results := make([]domain.RegistryObject, 0, end-start)
	for _, id := range ids[start:end] {
		object, ok := c.objects[id]
		if !ok {
			return 0, nil, fmt.Errorf("%w: object %s", domain.ErrNotFound, id)
		}
		results = append(results, copyObject(object))
	}
	return total, results, nil
}

// CreateObject creates an empty object.
func (c *Client) CreateObject(_ context.Context, objectTypeID, folderID int) (*domain.RegistryObject, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail(); err != nil {
		return nil, err
	}

	object := &domain.RegistryObject{
		ID:          uuid.NewString(),
		TypeID:      objectTypeID,
		FolderID:    folderID,
		DateCreated: time.Now(),
	}
	c.objects[object.ID] = object
	c.createdCount++
	copied := copyObject(object)
	return &copied, nil
}

// SetPublishSettings records the call and updates the object's accesspoint
// entry.
func (c *Client) SetPublishSettings(_ context.Context, objectID, accessPointID string, start *time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail(); err != nil {
		return err
	}

	object, ok := c.objects[objectID]
	if !ok {
		return fmt.Errorf("%w: object %s", domain.ErrNotFound, objectID)
	}
	c.publishCalls = append(c.publishCalls, PublishCall{
		ObjectID:      objectID,
		AccessPointID: accessPointID,
		Start:         start,
	})

	kept := object.AccessPoints[:0]
	for _, entry := range object.AccessPoints {
		if entry.AccessPointID != accessPointID {
			kept = append(kept, entry)
		}
	}
	object.AccessPoints = kept
	if start != nil {
		s := *start
		object.AccessPoints = append(object.AccessPoints, domain.AccessPointEntry{
			AccessPointID: accessPointID,
			StartDate:     &s,
		})
	}
	return nil
}

// SetMetadata records the call and enforces the revision contract: a stale
// or missing revision on existing metadata is rejected.
func (c *Client) SetMetadata(_ context.Context, objectID, schemaID, languageCode string, revisionID *int, xml string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail(); err != nil {
		return err
	}

	object, ok := c.objects[objectID]
	if !ok {
		return fmt.Errorf("%w: object %s", domain.ErrNotFound, objectID)
	}
	c.metadataCalls = append(c.metadataCalls, MetadataCall{
		ObjectID:     objectID,
		SchemaID:     schemaID,
		LanguageCode: languageCode,
		RevisionID:   revisionID,
		XML:          xml,
	})

	for i := range object.Metadata {
		if object.Metadata[i].SchemaID != schemaID {
			continue
		}
		if revisionID == nil || *revisionID != object.Metadata[i].RevisionID {
			return fmt.Errorf("%w: revision mismatch for schema %s", domain.ErrServiceFailure, schemaID)
		}
		object.Metadata[i].XML = xml
		object.Metadata[i].LanguageCode = languageCode
		object.Metadata[i].RevisionID++
		return nil
	}

	if revisionID != nil {
		return fmt.Errorf("%w: no metadata for schema %s at revision %d", domain.ErrServiceFailure, schemaID, *revisionID)
	}
	object.Metadata = append(object.Metadata, domain.MetadataRecord{
		SchemaID:     schemaID,
		LanguageCode: languageCode,
		RevisionID:   1,
		XML:          xml,
	})
	return nil
}

// CreateFile attaches a file and synthesises its URL from the folder path.
func (c *Client) CreateFile(_ context.Context, objectID string, spec driven.FileSpec) (*domain.FileRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail(); err != nil {
		return nil, err
	}

	object, ok := c.objects[objectID]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", domain.ErrNotFound, objectID)
	}

	c.nextFileID++
	file := domain.FileRecord{
		ID:               c.nextFileID,
		ParentID:         spec.ParentFileID,
		FormatID:         spec.FormatID,
		DestinationID:    spec.DestinationID,
		Filename:         spec.Filename,
		OriginalFilename: spec.OriginalFilename,
		FolderPath:       spec.FolderPath,
		URL:              "http://files.example.test" + spec.FolderPath + spec.Filename,
	}
	object.Files = append(object.Files, file)
	copied := file
	return &copied, nil
}

// DeleteFile removes a file from whichever object holds it.
func (c *Client) DeleteFile(_ context.Context, fileID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail(); err != nil {
		return err
	}

	c.deletedFiles = append(c.deletedFiles, fileID)
	for _, object := range c.objects {
		for i, f := range object.Files {
			if f.ID == fileID {
				object.Files = append(object.Files[:i], object.Files[i+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("%w: file %d", domain.ErrNotFound, fileID)
}

// GetMetadataSchema returns a canned schema source.
func (c *Client) GetMetadataSchema(_ context.Context, schemaID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail(); err != nil {
		return "", err
	}

	source, ok := c.schemas[schemaID]
	if !ok {
		return "", fmt.Errorf("%w: schema %s", domain.ErrNotFound, schemaID)
	}
	return source, nil
}

// UpdateSession counts the refresh.
func (c *Client) UpdateSession(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionUpdates++
	return nil
}

// Reauthenticate counts the reauth and issues a fresh session ID.
func (c *Client) Reauthenticate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reauths++
	c.sessionID = uuid.NewString()
	return nil
}

// HasSession reports whether a session is established.
func (c *Client) HasSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID != ""
}

// SessionID returns the current session identifier.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}
