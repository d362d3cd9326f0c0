package processors

import (
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/pipeline"
)

// Deps carries the shared dependencies processor builders close over. The
// registry client, validator and checker are singletons; generators are built
// per metadata processor from its template.
type Deps struct {
	Client       driven.RegistryClient
	Validator    driven.SchemaValidator
	Checker      driven.FileChecker
	NewGenerator func(templatePath string) (driven.MetadataGenerator, error)
}

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *pipeline.Registry, deps Deps) {
	r.RegisterProcessor("metadata", func(cfg map[string]any) (pipeline.Processor, error) {
		return buildMetadata(cfg, deps)
	})
	r.RegisterProcessor("file", func(cfg map[string]any) (pipeline.Processor, error) {
		return buildFile(cfg, deps)
	})
}

// buildMetadata creates a metadata processor from generic config.
// Supported config keys:
//   - schema_id (string): Registry schema the payload targets (required)
//   - template (string): Path to the payload template (required)
//   - language (string): Metadata language code (default: shadow default)
//   - schema_location (string): File path or URL of the schema source
//     (default: fetch from the registry by schema_id)
//   - validate (bool): Validate every payload against the schema (default: true)
func buildMetadata(cfg map[string]any, deps Deps) (pipeline.Processor, error) {
	validate := true
	if v, ok := cfg["validate"].(bool); ok {
		validate = v
	}

	generator, err := deps.NewGenerator(getStringFromConfig(cfg, "template"))
	if err != nil {
		return nil, err
	}

	return NewMetadata(MetadataConfig{
		SchemaID:       getStringFromConfig(cfg, "schema_id"),
		LanguageCode:   getStringFromConfig(cfg, "language"),
		SchemaLocation: getStringFromConfig(cfg, "schema_location"),
		Validate:       validate,
	}, generator, deps.Validator, deps.Client)
}

// buildFile creates a file processor from generic config.
// Supported config keys:
//   - fields ([]string): Record fields holding file URLs (required)
//   - format_id (int): Registry format of the primary file (required)
//   - check_existence (bool): HEAD-check each URL first (default: false)
//   - destinations ([]table): id, name, base_url per destination (required)
//   - variants ([]table): format_id, destination_id, base_url per derived copy
func buildFile(cfg map[string]any, deps Deps) (pipeline.Processor, error) {
	fileCfg := FileConfig{
		Fields:         getStringsFromConfig(cfg, "fields"),
		FormatID:       getIntFromConfig(cfg, "format_id"),
		CheckExistence: getBoolFromConfig(cfg, "check_existence"),
	}

	for _, d := range getTablesFromConfig(cfg, "destinations") {
		fileCfg.Destinations = append(fileCfg.Destinations, Destination{
			ID:      getIntFromConfig(d, "id"),
			Name:    getStringFromConfig(d, "name"),
			BaseURL: getStringFromConfig(d, "base_url"),
		})
	}
	for _, v := range getTablesFromConfig(cfg, "variants") {
		fileCfg.Variants = append(fileCfg.Variants, Variant{
			FormatID:      getIntFromConfig(v, "format_id"),
			DestinationID: getIntFromConfig(v, "destination_id"),
			BaseURL:       getStringFromConfig(v, "base_url"),
		})
	}

	return NewFile(fileCfg, deps.Checker)
}

// getStringFromConfig safely extracts a string from generic config map.
func getStringFromConfig(cfg map[string]any, key string) string {
	s, _ := cfg[key].(string)
	return s
}

// getBoolFromConfig safely extracts a bool from generic config map.
func getBoolFromConfig(cfg map[string]any, key string) bool {
	b, _ := cfg[key].(bool)
	return b
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// getStringsFromConfig safely extracts a string slice from generic config map.
func getStringsFromConfig(cfg map[string]any, key string) []string {
	switch v := cfg[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// getTablesFromConfig safely extracts a slice of tables from generic config.
func getTablesFromConfig(cfg map[string]any, key string) []map[string]any {
	switch v := cfg[key].(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
