package filters

import (
	"context"
	"fmt"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/pipeline"
)

// FieldFlag rejects records carrying a boolean marker field. Sources flag
// withdrawn or embargoed records this way instead of removing them from the
// listing.
type FieldFlag struct {
	field         string
	rejectWhen    bool
	reason        string
	ignoreInModes map[pipeline.Mode]bool
}

var _ pipeline.Filter = (*FieldFlag)(nil)

// NewFieldFlag creates a filter that rejects records whose boolean field
// equals rejectWhen. An absent field reads as false.
func NewFieldFlag(field string, rejectWhen bool, reason string, ignoreInModes map[pipeline.Mode]bool) (*FieldFlag, error) {
	if field == "" {
		return nil, fmt.Errorf("%w: field-flag filter needs a field name", domain.ErrConfiguration)
	}
	if reason == "" {
		reason = fmt.Sprintf("field %q is %t", field, rejectWhen)
	}
	return &FieldFlag{
		field:         field,
		rejectWhen:    rejectWhen,
		reason:        reason,
		ignoreInModes: ignoreInModes,
	}, nil
}

// Name returns the filter name.
func (f *FieldFlag) Name() string {
	return "field-flag"
}

// Passes rejects the record when the flag field matches the configured value.
func (f *FieldFlag) Passes(_ context.Context, record *domain.ExternalRecord) (bool, string) {
	if record.BoolField(f.field) == f.rejectWhen {
		return false, f.reason
	}
	return true, ""
}

// IgnoreInMode reports whether the filter is skipped in the given mode.
func (f *FieldFlag) IgnoreInMode(mode pipeline.Mode) bool {
	return f.ignoreInModes[mode]
}
