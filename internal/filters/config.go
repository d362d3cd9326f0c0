package filters

import (
	"github.com/custodia-labs/harvest-cli/internal/pipeline"
)

// ignoreModes parses the shared ignore_in_modes config key into a lookup set.
func ignoreModes(cfg map[string]any) map[pipeline.Mode]bool {
	modes := make(map[pipeline.Mode]bool)
	raw, ok := cfg["ignore_in_modes"]
	if !ok {
		return modes
	}
	switch v := raw.(type) {
	case []string:
		for _, m := range v {
			modes[pipeline.Mode(m)] = true
		}
	case []any:
		for _, m := range v {
			if s, ok := m.(string); ok {
				modes[pipeline.Mode(s)] = true
			}
		}
	}
	return modes
}

// getStringFromConfig safely extracts a string from generic config map.
func getStringFromConfig(cfg map[string]any, key string) string {
	val, ok := cfg[key]
	if !ok {
		return ""
	}
	s, _ := val.(string)
	return s
}
