// Package metadata provides the template-based metadata generator and the
// schema validator used by the metadata processor.
package metadata

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

// TemplateGenerator renders metadata payloads from a text/template file.
// The template sees the record's ID and fields plus the file URLs earlier
// processors extracted.
type TemplateGenerator struct {
	tmpl *template.Template
}

var _ driven.MetadataGenerator = (*TemplateGenerator)(nil)

// templateData is what a metadata template renders against.
type templateData struct {
	ID             string
	Fields         map[string]any
	ExtractedFiles []string
}

// NewTemplateGenerator parses the template at path. Parse failures surface at
// startup as configuration errors.
func NewTemplateGenerator(path string) (*TemplateGenerator, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: metadata generator needs a template path", domain.ErrConfiguration)
	}

	tmpl, err := template.New(filepath.Base(path)).
		Funcs(template.FuncMap{"esc": escapeXML}).
		Option("missingkey=zero").
		ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("%w: parse metadata template %s: %v", domain.ErrConfiguration, path, err)
	}
	return &TemplateGenerator{tmpl: tmpl}, nil
}

// Generate renders the template for one record.
func (g *TemplateGenerator) Generate(_ context.Context, record *domain.ExternalRecord, extras *domain.Extras) (string, error) {
	data := templateData{
		ID:     record.ID,
		Fields: record.Fields,
	}
	if extras != nil {
		data.ExtractedFiles = extras.ExtractedFiles()
	}

	var sb strings.Builder
	if err := g.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render metadata template: %w", err)
	}
	// missingkey=zero leaves "<no value>" for absent map keys because the
	// zero of an interface value is nil. Absent fields must read as empty.
	return strings.ReplaceAll(sb.String(), "<no value>", ""), nil
}

// escapeXML is exposed to templates as "esc" for interpolating field values
// into element content and attributes.
func escapeXML(value any) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(fmt.Sprint(value)))
	return buf.String()
}
