package shadows

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
)

// FileShadow is one file derivative to attach to an object: the original or
// a re-encoded variant, optionally parented to another shadow in the same
// commit.
type FileShadow struct {
	FormatID         int
	DestinationID    int
	Filename         string
	OriginalFilename string
	FolderPath       string

	// URL, when set, must match the registry file's URL exactly for the
	// shadow to reuse it.
	URL string

	// ParentShadow is a same-commit dependency: it is committed first and its
	// resolved ID becomes this file's parent. Not a registry back-reference.
	ParentShadow *FileShadow

	// ParentFileID is the resolved or explicitly known parent file.
	ParentFileID *int64

	// Status is FileStatusCreated or FileStatusReused after Commit.
	Status string

	file       *domain.FileRecord
	committing bool
}

// File returns the registry file this shadow committed to, or nil.
func (f *FileShadow) File() *domain.FileRecord {
	return f.file
}

// Matches reports whether an existing registry file is the same file this
// shadow describes: original filename, format and folder path must all
// agree, and the URL must match exactly when the shadow sets one.
func (f *FileShadow) Matches(file domain.FileRecord) bool {
	if f.OriginalFilename != file.OriginalFilename {
		return false
	}
	if f.FormatID != file.FormatID {
		return false
	}
	if !strings.Contains(file.URL, f.FolderPath) {
		// Depends on how the destination exposes paths in URLs.
		return false
	}
	if f.URL != "" && f.URL != file.URL {
		return false
	}
	return true
}

// Commit reuses a matching registry file or creates a new one. The result is
// memoized: re-invoking Commit returns the cached file. An unresolved parent
// shadow is committed first; a cyclic parent chain is a caller error.
func (f *FileShadow) Commit(ctx context.Context, client driven.RegistryClient, parent *ObjectShadow) (*domain.FileRecord, error) {
	if f.file != nil {
		logger.Debug("File shadow for %s already committed", f.OriginalFilename)
		return f.file, nil
	}
	if f.committing {
		return nil, fmt.Errorf("%w: via %s", domain.ErrCyclicFileParents, f.OriginalFilename)
	}
	f.committing = true
	defer func() { f.committing = false }()

	object, err := parent.Resolve(ctx, client)
	if err != nil {
		return nil, err
	}
	if object == nil {
		return nil, fmt.Errorf("%w: file shadow committed without a resolved parent object", domain.ErrInvalidInput)
	}

	var matches []domain.FileRecord
	for _, existing := range object.Files {
		if f.Matches(existing) {
			matches = append(matches, existing)
		}
	}
	if len(matches) > 1 {
		logger.Warn("Object %s has %d files matching %s; reusing the first", object.ID, len(matches), f.OriginalFilename)
	}
	if len(matches) > 0 {
		match := matches[0]
		logger.Debug("Reusing file %d", match.ID)
		f.file = &match
		f.Status = FileStatusReused
		return f.file, nil
	}

	if f.ParentShadow != nil && f.ParentFileID == nil {
		parentFile, err := f.ParentShadow.Commit(ctx, client, parent)
		if err != nil {
			return nil, fmt.Errorf("commit parent file: %w", err)
		}
		f.ParentFileID = &parentFile.ID
	}
	if f.ParentFileID != nil {
		logger.Debug("File %s is a child of file %d", f.Filename, *f.ParentFileID)
	}

	created, err := client.CreateFile(ctx, object.ID, driven.FileSpec{
		ParentFileID:     f.ParentFileID,
		FormatID:         f.FormatID,
		DestinationID:    f.DestinationID,
		Filename:         f.Filename,
		OriginalFilename: f.OriginalFilename,
		FolderPath:       f.FolderPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create file %s: %w", f.Filename, err)
	}
	f.file = created
	f.Status = FileStatusCreated
	return f.file, nil
}
