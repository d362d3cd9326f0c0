package filters

import (
	"github.com/custodia-labs/harvest-cli/internal/pipeline"
)

// RegisterDefaults registers all built-in filters with the registry.
// Call this during application initialisation to enable standard filters.
func RegisterDefaults(r *pipeline.Registry) {
	r.RegisterFilter("field-flag", buildFieldFlag)
	r.RegisterFilter("field-present", buildFieldPresent)
}

// buildFieldFlag creates a field-flag filter from generic config.
// Supported config keys:
//   - field (string): Name of the boolean record field (required)
//   - reject_when (bool): Value that rejects the record (default: true)
//   - reason (string): Log message for rejections (default: generated)
//   - ignore_in_modes ([]string): Run modes the filter is skipped in
func buildFieldFlag(cfg map[string]any) (pipeline.Filter, error) {
	rejectWhen := true
	if v, ok := cfg["reject_when"].(bool); ok {
		rejectWhen = v
	}
	return NewFieldFlag(
		getStringFromConfig(cfg, "field"),
		rejectWhen,
		getStringFromConfig(cfg, "reason"),
		ignoreModes(cfg),
	)
}

// buildFieldPresent creates a field-present filter from generic config.
// Supported config keys:
//   - field (string): Name of the required record field (required)
//   - ignore_in_modes ([]string): Run modes the filter is skipped in
func buildFieldPresent(cfg map[string]any) (pipeline.Filter, error) {
	return NewFieldPresent(
		getStringFromConfig(cfg, "field"),
		ignoreModes(cfg),
	)
}
