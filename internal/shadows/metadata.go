package shadows

import (
	"context"
	"fmt"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
)

// DefaultLanguageCode is used when a metadata shadow does not set one.
const DefaultLanguageCode = "da"

// MetadataShadow is one schema's metadata payload for an object.
type MetadataShadow struct {
	// SchemaID identifies the metadata schema.
	SchemaID string

	// LanguageCode defaults to DefaultLanguageCode when empty.
	LanguageCode string

	// XML is the generated payload.
	XML string
}

// Commit sets the metadata on the parent's resolved object. When metadata
// already exists for the schema, the update carries the current revision so
// the registry can reject lost-update races; otherwise the revision is nil.
func (m *MetadataShadow) Commit(ctx context.Context, client driven.RegistryClient, parent *ObjectShadow) error {
	object, err := parent.Resolve(ctx, client)
	if err != nil {
		return err
	}
	if object == nil {
		return fmt.Errorf("%w: metadata shadow committed without a resolved parent object", domain.ErrInvalidInput)
	}

	language := m.LanguageCode
	if language == "" {
		language = DefaultLanguageCode
	}

	var revision *int
	if existing := object.MetadataForSchema(m.SchemaID); existing != nil {
		rev := existing.RevisionID
		revision = &rev
		logger.Debug("Overwriting metadata revision %d for schema %s on %s", rev, m.SchemaID, object.ID)
	} else {
		logger.Debug("Creating metadata for schema %s on %s", m.SchemaID, object.ID)
	}

	if err := client.SetMetadata(ctx, object.ID, m.SchemaID, language, revision, m.XML); err != nil {
		return fmt.Errorf("set metadata for schema %s: %w", m.SchemaID, err)
	}
	return nil
}
