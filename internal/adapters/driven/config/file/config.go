// Package file loads the harvester configuration from a TOML file.
package file

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// Config is the full harvester configuration.
type Config struct {
	Registry   RegistryConfig    `toml:"registry"`
	Source     SourceConfig      `toml:"source"`
	Object     ObjectConfig      `toml:"object"`
	Filters    []ComponentConfig `toml:"filters"`
	Processors []ComponentConfig `toml:"processors"`
	Sweep      SweepConfig       `toml:"sweep"`
}

// RegistryConfig configures the registry RPC client.
type RegistryConfig struct {
	// Endpoint is the base URL of the registry service.
	Endpoint string `toml:"endpoint"`

	// Email and Password authenticate the session. Values of the form
	// ${NAME} are read from the environment, so credentials stay out of
	// the config file.
	Email    string `toml:"email"`
	Password string `toml:"password"`

	// ClientGUID identifies this harvester to the registry. Generated when
	// empty.
	ClientGUID string `toml:"client_guid"`

	// SessionTimeoutMinutes is the server's session idle timeout. The
	// client refreshes its session before crossing it.
	SessionTimeoutMinutes int `toml:"session_timeout_minutes"`

	// RequestsPerSecond rate-limits registry calls. Zero means the client
	// default.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// SourceConfig configures the external record source.
type SourceConfig struct {
	// Path is the record listing file for the file-backed source.
	Path string `toml:"path"`
}

// ObjectConfig configures the object processor.
type ObjectConfig struct {
	Queries                 []string `toml:"queries"`
	ObjectTypeID            int      `toml:"object_type_id"`
	FolderID                int      `toml:"folder_id"`
	DuplicateThreshold      int      `toml:"duplicate_threshold"`
	PublishAccessPoints     []string `toml:"publish_accesspoints"`
	UnpublishAccessPoints   []string `toml:"unpublish_accesspoints"`
	UnpublishEverywhere     bool     `toml:"unpublish_everywhere"`
	DeleteOrphans           *bool    `toml:"delete_orphans"`
}

// ComponentConfig names one filter or processor and carries its settings.
type ComponentConfig struct {
	Name   string         `toml:"name"`
	Config map[string]any `toml:"config"`
}

// SweepConfig configures sync mode.
type SweepConfig struct {
	// AccessPoint scopes the published-object listing the sweep diffs
	// against.
	AccessPoint string `toml:"accesspoint"`
}

// DeleteOrphansEnabled returns the delete_orphans setting, defaulting to
// true when unset.
func (c ObjectConfig) DeleteOrphansEnabled() bool {
	if c.DeleteOrphans == nil {
		return true
	}
	return *c.DeleteOrphans
}

// Load reads, expands and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config: %v", domain.ErrConfiguration, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config: %v", domain.ErrConfiguration, err)
	}

	cfg.Registry.Email = expandSecret(cfg.Registry.Email)
	cfg.Registry.Password = expandSecret(cfg.Registry.Password)
	cfg.Registry.ClientGUID = expandSecret(cfg.Registry.ClientGUID)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings no run can start without. Component-level
// settings are validated by the component builders.
func (c *Config) Validate() error {
	var missing []string
	if c.Registry.Endpoint == "" {
		missing = append(missing, "registry.endpoint")
	}
	if c.Registry.Email == "" {
		missing = append(missing, "registry.email")
	}
	if c.Registry.Password == "" {
		missing = append(missing, "registry.password")
	}
	if c.Source.Path == "" {
		missing = append(missing, "source.path")
	}
	if len(c.Object.Queries) == 0 {
		missing = append(missing, "object.queries")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required settings: %s", domain.ErrConfiguration, strings.Join(missing, ", "))
	}

	for i, f := range c.Filters {
		if f.Name == "" {
			return fmt.Errorf("%w: filter %d has no name", domain.ErrConfiguration, i)
		}
	}
	for i, p := range c.Processors {
		if p.Name == "" {
			return fmt.Errorf("%w: processor %d has no name", domain.ErrConfiguration, i)
		}
	}
	return nil
}

// expandSecret resolves ${NAME} values from the environment. Any other value
// is returned as written.
func expandSecret(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(value[2 : len(value)-1])
	}
	return value
}
