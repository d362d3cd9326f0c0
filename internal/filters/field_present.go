package filters

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/pipeline"
)

// FieldPresent rejects records missing a required field. A record without a
// title or identifier cannot produce usable metadata, so it is excluded
// rather than harvested half-empty.
type FieldPresent struct {
	field         string
	ignoreInModes map[pipeline.Mode]bool
}

var _ pipeline.Filter = (*FieldPresent)(nil)

// NewFieldPresent creates a filter that rejects records whose named field is
// absent or blank.
func NewFieldPresent(field string, ignoreInModes map[pipeline.Mode]bool) (*FieldPresent, error) {
	if field == "" {
		return nil, fmt.Errorf("%w: field-present filter needs a field name", domain.ErrConfiguration)
	}
	return &FieldPresent{
		field:         field,
		ignoreInModes: ignoreInModes,
	}, nil
}

// Name returns the filter name.
func (f *FieldPresent) Name() string {
	return "field-present"
}

// Passes rejects the record when the field is missing or whitespace-only.
func (f *FieldPresent) Passes(_ context.Context, record *domain.ExternalRecord) (bool, string) {
	value := record.Field(f.field)
	if value == nil {
		return false, fmt.Sprintf("field %q is missing", f.field)
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return false, fmt.Sprintf("field %q is blank", f.field)
	}
	return true, ""
}

// IgnoreInMode reports whether the filter is skipped in the given mode.
func (f *FieldPresent) IgnoreInMode(mode pipeline.Mode) bool {
	return f.ignoreInModes[mode]
}
