package driven

import (
	"context"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// MetadataGenerator produces one schema's metadata payload for a record.
// Implementations range from template expansion to full XSLT-style
// transformation; the harvester only requires the output to be an XML
// document for the processor's schema.
type MetadataGenerator interface {
	// Generate returns the XML payload for the record. Extras carries values
	// earlier processors derived (extracted file lists, computed fields).
	Generate(ctx context.Context, record *domain.ExternalRecord, extras *domain.Extras) (string, error)
}

// GeneratorFunc adapts a function to the MetadataGenerator interface.
type GeneratorFunc func(ctx context.Context, record *domain.ExternalRecord, extras *domain.Extras) (string, error)

// Generate implements MetadataGenerator.
func (f GeneratorFunc) Generate(ctx context.Context, record *domain.ExternalRecord, extras *domain.Extras) (string, error) {
	return f(ctx, record, extras)
}

// SchemaValidator validates a metadata payload against a schema source.
type SchemaValidator interface {
	// Validate returns nil when payload conforms to the schema, and an error
	// wrapping domain.ErrSchemaValidation otherwise.
	Validate(schemaSource, payload string) error
}

// FileChecker verifies that a remote file exists before a shadow is created
// for it. Implementations typically issue a HEAD request and cache the
// verdict per URL.
type FileChecker interface {
	// Exists reports whether url points at a retrievable file.
	Exists(ctx context.Context, url string) (bool, error)
}
