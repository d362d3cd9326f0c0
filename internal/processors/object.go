package processors

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/pipeline"
	"github.com/custodia-labs/harvest-cli/internal/shadows"
)

// ObjectConfig holds the settings the object processor stamps onto every
// shadow it builds.
type ObjectConfig struct {
	// Queries are registry query templates, tried in priority order. Each is
	// a text/template over the record (.ID and .Fields).
	Queries []string

	// ObjectTypeID and FolderID are used when the object must be created.
	ObjectTypeID int
	FolderID     int

	// DuplicateThreshold caps how many query matches still resolve. Zero
	// means the reconciler default.
	DuplicateThreshold int

	PublishAccessPointIDs   []string
	UnpublishAccessPointIDs []string
	UnpublishEverywhere     bool

	// DeleteOrphans enables removal of registry files no shadow references.
	DeleteOrphans bool
}

// Object is the mandatory root processor of every pipeline.
type Object struct {
	cfg       ObjectConfig
	templates []*template.Template
}

var _ pipeline.ObjectProcessor = (*Object)(nil)

// NewObject creates the object processor. Query templates are parsed here so
// a malformed template fails at startup, not mid-batch.
func NewObject(cfg ObjectConfig) (*Object, error) {
	if len(cfg.Queries) == 0 {
		return nil, fmt.Errorf("%w: object processor needs at least one query", domain.ErrConfiguration)
	}
	if cfg.ObjectTypeID <= 0 || cfg.FolderID <= 0 {
		return nil, fmt.Errorf("%w: object processor needs an object type and folder", domain.ErrConfiguration)
	}

	templates := make([]*template.Template, 0, len(cfg.Queries))
	for i, q := range cfg.Queries {
		tmpl, err := template.New(fmt.Sprintf("query-%d", i)).Option("missingkey=zero").Parse(q)
		if err != nil {
			return nil, fmt.Errorf("%w: parse query template %d: %v", domain.ErrConfiguration, i, err)
		}
		templates = append(templates, tmpl)
	}

	return &Object{cfg: cfg, templates: templates}, nil
}

// Name returns the processor name.
func (o *Object) Name() string {
	return "object"
}

// Process builds the root shadow for a record that passed all filters.
func (o *Object) Process(_ context.Context, record *domain.ExternalRecord) (*shadows.ObjectShadow, error) {
	return o.initializeShadow(record)
}

// Skip builds a skipped shadow. It carries the same queries and unpublish
// settings, so committing it reconciles the record toward an unpublished
// state.
func (o *Object) Skip(_ context.Context, record *domain.ExternalRecord) (*shadows.ObjectShadow, error) {
	shadow, err := o.initializeShadow(record)
	if err != nil {
		return nil, err
	}
	shadow.Skipped = true
	return shadow, nil
}

func (o *Object) initializeShadow(record *domain.ExternalRecord) (*shadows.ObjectShadow, error) {
	queries := make([]string, 0, len(o.templates))
	data := struct {
		ID     string
		Fields map[string]any
	}{ID: record.ID, Fields: record.Fields}

	for i, tmpl := range o.templates {
		var sb strings.Builder
		if err := tmpl.Execute(&sb, data); err != nil {
			return nil, fmt.Errorf("render query %d for record %s: %w", i, record.ID, err)
		}
		// missingkey=zero leaves "<no value>" for absent map keys because the
		// zero of an interface value is nil. Absent fields must read as empty.
		queries = append(queries, strings.ReplaceAll(sb.String(), "<no value>", ""))
	}

	return &shadows.ObjectShadow{
		Queries:                 queries,
		ObjectTypeID:            o.cfg.ObjectTypeID,
		FolderID:                o.cfg.FolderID,
		DuplicateThreshold:      o.cfg.DuplicateThreshold,
		PublishAccessPointIDs:   o.cfg.PublishAccessPointIDs,
		UnpublishAccessPointIDs: o.cfg.UnpublishAccessPointIDs,
		UnpublishEverywhere:     o.cfg.UnpublishEverywhere,
		DeleteOrphans:           o.cfg.DeleteOrphans,
		Extras:                  domain.NewExtras(),
	}, nil
}
