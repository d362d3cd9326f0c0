package metadata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

const testSchema = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="http://example.test/doc">
  <xs:element name="document"/>
</xs:schema>`

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meta.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestTemplateGenerator(t *testing.T) {
	path := writeTemplate(t, `<document><title>{{esc .Fields.title}}</title><id>{{.ID}}</id></document>`)

	generator, err := NewTemplateGenerator(path)
	require.NoError(t, err)

	payload, err := generator.Generate(context.Background(), &domain.ExternalRecord{
		ID:     "rec-1",
		Fields: map[string]any{"title": `Salt & "Pepper"`},
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, payload, "<id>rec-1</id>")
	assert.Contains(t, payload, "Salt &amp; &#34;Pepper&#34;")
}

func TestTemplateGenerator_ExtractedFiles(t *testing.T) {
	path := writeTemplate(t, `<document>{{range .ExtractedFiles}}<file>{{esc .}}</file>{{end}}</document>`)

	generator, err := NewTemplateGenerator(path)
	require.NoError(t, err)

	extras := domain.NewExtras()
	extras.AddExtractedFile("http://files.example.test/a.jpg")

	payload, err := generator.Generate(context.Background(), &domain.ExternalRecord{ID: "rec-1"}, extras)
	require.NoError(t, err)
	assert.Contains(t, payload, "<file>http://files.example.test/a.jpg</file>")
}

func TestTemplateGenerator_MissingFieldRendersEmpty(t *testing.T) {
	path := writeTemplate(t, `<document>{{.Fields.absent}}</document>`)

	generator, err := NewTemplateGenerator(path)
	require.NoError(t, err)

	payload, err := generator.Generate(context.Background(), &domain.ExternalRecord{ID: "rec-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "<document></document>", payload)
}

func TestNewTemplateGenerator_Errors(t *testing.T) {
	_, err := NewTemplateGenerator("")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewTemplateGenerator(writeTemplate(t, `{{.Broken`))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestValidator(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{
			name:    "conforming payload",
			payload: `<document xmlns="http://example.test/doc"><title>ok</title></document>`,
		},
		{
			name:    "malformed payload",
			payload: `<document><title>unclosed</document>`,
			wantErr: "not well-formed",
		},
		{
			name:    "undeclared root",
			payload: `<record xmlns="http://example.test/doc"/>`,
			wantErr: "not declared",
		},
		{
			name:    "wrong namespace",
			payload: `<document xmlns="http://example.test/other"/>`,
			wantErr: "namespace",
		},
		{
			name:    "empty payload",
			payload: "",
			wantErr: "no root element",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(testSchema, tt.payload)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrSchemaValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidator_BadSchemaSource(t *testing.T) {
	err := NewValidator().Validate("<xs:schema", "<document/>")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSchemaValidation)
}
