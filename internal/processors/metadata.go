package processors

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/pipeline"
	"github.com/custodia-labs/harvest-cli/internal/shadows"
)

// schemaFetchTimeout bounds schema downloads from http(s) locations.
const schemaFetchTimeout = 30 * time.Second

// MetadataConfig holds the settings for one metadata processor instance.
type MetadataConfig struct {
	// SchemaID identifies the metadata schema in the registry.
	SchemaID string

	// LanguageCode defaults to the shadow package default when empty.
	LanguageCode string

	// SchemaLocation overrides where the schema is fetched from: a file path
	// or an http(s) URL. Empty means fetch from the registry by SchemaID.
	SchemaLocation string

	// Validate enables schema validation of every generated payload.
	Validate bool
}

// Metadata generates one schema's XML payload per record and attaches it as
// a metadata shadow. A payload failing validation fails the record: silently
// committing nonconforming metadata corrupts the registry.
type Metadata struct {
	cfg       MetadataConfig
	generator driven.MetadataGenerator
	validator driven.SchemaValidator
	client    driven.RegistryClient
	httpc     *http.Client

	// Schema source is fetched once per instance. Pipelines run records
	// sequentially, so plain memo fields suffice.
	schema     string
	schemaDone bool
}

var _ pipeline.Processor = (*Metadata)(nil)

// NewMetadata creates a metadata processor. The validator may be nil when
// cfg.Validate is false; the client may be nil when a SchemaLocation is set.
func NewMetadata(cfg MetadataConfig, generator driven.MetadataGenerator, validator driven.SchemaValidator, client driven.RegistryClient) (*Metadata, error) {
	if cfg.SchemaID == "" {
		return nil, fmt.Errorf("%w: metadata processor needs a schema ID", domain.ErrConfiguration)
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: metadata processor needs a generator", domain.ErrConfiguration)
	}
	if cfg.Validate && validator == nil {
		return nil, fmt.Errorf("%w: metadata validation enabled without a validator", domain.ErrConfiguration)
	}
	if cfg.Validate && cfg.SchemaLocation == "" && client == nil {
		return nil, fmt.Errorf("%w: metadata validation needs a schema location or a registry client", domain.ErrConfiguration)
	}
	return &Metadata{
		cfg:       cfg,
		generator: generator,
		validator: validator,
		client:    client,
		httpc:     &http.Client{Timeout: schemaFetchTimeout},
	}, nil
}

// Name returns the processor name.
func (m *Metadata) Name() string {
	return "metadata"
}

// Process generates the payload, validates it when configured, and attaches
// the metadata shadow to the tree.
func (m *Metadata) Process(ctx context.Context, record *domain.ExternalRecord, shadow *shadows.ObjectShadow) error {
	payload, err := m.generator.Generate(ctx, record, shadow.Extras)
	if err != nil {
		return fmt.Errorf("generate metadata for schema %s: %w", m.cfg.SchemaID, err)
	}

	if m.cfg.Validate {
		schema, err := m.schemaSource(ctx)
		if err != nil {
			return err
		}
		if err := m.validator.Validate(schema, payload); err != nil {
			return fmt.Errorf("record %s, schema %s: %w", record.ID, m.cfg.SchemaID, err)
		}
	}

	shadow.MetadataShadows = append(shadow.MetadataShadows, &shadows.MetadataShadow{
		SchemaID:     m.cfg.SchemaID,
		LanguageCode: m.cfg.LanguageCode,
		XML:          payload,
	})
	return nil
}

func (m *Metadata) schemaSource(ctx context.Context) (string, error) {
	if m.schemaDone {
		return m.schema, nil
	}

	var (
		source string
		err    error
	)
	switch {
	case m.cfg.SchemaLocation == "":
		logger.Debug("Fetching schema %s from the registry", m.cfg.SchemaID)
		source, err = m.client.GetMetadataSchema(ctx, m.cfg.SchemaID)
	case strings.HasPrefix(m.cfg.SchemaLocation, "http://"),
		strings.HasPrefix(m.cfg.SchemaLocation, "https://"):
		logger.Debug("Fetching schema %s from %s", m.cfg.SchemaID, m.cfg.SchemaLocation)
		source, err = m.fetchSchemaURL(ctx, m.cfg.SchemaLocation)
	default:
		logger.Debug("Reading schema %s from %s", m.cfg.SchemaID, m.cfg.SchemaLocation)
		var raw []byte
		raw, err = os.ReadFile(m.cfg.SchemaLocation)
		source = string(raw)
	}
	if err != nil {
		return "", fmt.Errorf("load schema %s: %w", m.cfg.SchemaID, err)
	}

	m.schema = source
	m.schemaDone = true
	return m.schema, nil
}

func (m *Metadata) fetchSchemaURL(ctx context.Context, location string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return "", err
	}
	resp, err := m.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
