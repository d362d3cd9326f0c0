package domain

import "time"

// RegistryObject is one object in the remote registry, as returned by the
// object listing call with metadata, files and accesspoints included.
type RegistryObject struct {
	// ID is the registry's identifier (a GUID).
	ID string

	// TypeID is the registry object type.
	TypeID int

	// FolderID is the folder the object lives in.
	FolderID int

	// DateCreated orders duplicate matches: the earliest-created object is
	// canonical.
	DateCreated time.Time

	// Metadata holds one entry per (schema, language) pair.
	Metadata []MetadataRecord

	// Files holds the files attached to the object.
	Files []FileRecord

	// AccessPoints holds the publish windows per accesspoint.
	AccessPoints []AccessPointEntry
}

// MetadataForSchema returns the metadata entry for schemaID, or nil.
func (o *RegistryObject) MetadataForSchema(schemaID string) *MetadataRecord {
	for i := range o.Metadata {
		if o.Metadata[i].SchemaID == schemaID {
			return &o.Metadata[i]
		}
	}
	return nil
}

// IsPublished reports whether the object is published on the given
// accesspoint at time now: the entry's start date is set and in the past,
// and its end date is unset or in the future.
func (o *RegistryObject) IsPublished(accessPointID string, now time.Time) bool {
	for _, ap := range o.AccessPoints {
		if ap.AccessPointID == accessPointID {
			return ap.PublishedAt(now)
		}
	}
	return false
}

// PublishedAccessPoints returns the accesspoint IDs the object is published
// on at time now.
func (o *RegistryObject) PublishedAccessPoints(now time.Time) []string {
	var ids []string
	for _, ap := range o.AccessPoints {
		if ap.PublishedAt(now) {
			ids = append(ids, ap.AccessPointID)
		}
	}
	return ids
}

// MetadataRecord is one schema's metadata payload on a registry object.
type MetadataRecord struct {
	SchemaID     string
	LanguageCode string
	RevisionID   int
	XML          string
}

// FileRecord is one file attached to a registry object.
type FileRecord struct {
	ID               int64
	ParentID         *int64
	FormatID         int
	DestinationID    int
	Filename         string
	OriginalFilename string
	FolderPath       string
	URL              string
}

// AccessPointEntry is one accesspoint's publish window on an object.
type AccessPointEntry struct {
	AccessPointID string
	StartDate     *time.Time
	EndDate       *time.Time
}

// PublishedAt reports whether the window is open at time now.
func (e AccessPointEntry) PublishedAt(now time.Time) bool {
	if e.StartDate == nil || e.StartDate.After(now) {
		return false
	}
	return e.EndDate == nil || e.EndDate.After(now)
}
