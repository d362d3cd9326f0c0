package processors

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/pipeline"
	"github.com/custodia-labs/harvest-cli/internal/shadows"
)

// Destination is one configured file store the registry can serve files from.
type Destination struct {
	ID      int
	Name    string
	BaseURL string
}

// Variant describes a derived copy of the primary file, mirrored under
// another destination (thumbnails, low-resolution encodes). The derived
// shadow is parented to the primary so the registry keeps the relation.
type Variant struct {
	FormatID      int
	DestinationID int
	BaseURL       string
}

// FileConfig holds the settings for one file processor instance.
type FileConfig struct {
	// Fields are record fields holding file URLs, string or list valued.
	Fields []string

	// FormatID is the registry format of the primary file.
	FormatID int

	// CheckExistence verifies each URL before a shadow is emitted.
	CheckExistence bool

	Destinations []Destination
	Variants     []Variant
}

// File maps file URLs from record fields onto configured destinations and
// emits file shadows. A URL matching no destination is not an error; the
// record simply gets no file from it.
type File struct {
	cfg     FileConfig
	checker driven.FileChecker

	// existence verdicts are cached per instance, many records share
	// derivative base files.
	seen map[string]bool
}

var _ pipeline.Processor = (*File)(nil)

// NewFile creates a file processor. The checker may be nil when
// cfg.CheckExistence is false.
func NewFile(cfg FileConfig, checker driven.FileChecker) (*File, error) {
	if len(cfg.Fields) == 0 {
		return nil, fmt.Errorf("%w: file processor needs at least one record field", domain.ErrConfiguration)
	}
	if len(cfg.Destinations) == 0 {
		return nil, fmt.Errorf("%w: file processor needs at least one destination", domain.ErrConfiguration)
	}
	if cfg.FormatID <= 0 {
		return nil, fmt.Errorf("%w: file processor needs a format ID", domain.ErrConfiguration)
	}
	if cfg.CheckExistence && checker == nil {
		return nil, fmt.Errorf("%w: file existence checking enabled without a checker", domain.ErrConfiguration)
	}
	return &File{cfg: cfg, checker: checker, seen: make(map[string]bool)}, nil
}

// Name returns the processor name.
func (p *File) Name() string {
	return "file"
}

// Process emits a file shadow per matching URL, plus any configured derived
// variants that exist.
func (p *File) Process(ctx context.Context, record *domain.ExternalRecord, shadow *shadows.ObjectShadow) error {
	for _, field := range p.cfg.Fields {
		for _, raw := range fieldURLs(record, field) {
			if err := p.processURL(ctx, raw, shadow); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *File) processURL(ctx context.Context, raw string, shadow *shadows.ObjectShadow) error {
	destination, relative, ok := p.matchDestination(raw)
	if !ok {
		logger.Debug("File URL %s matches no destination; skipping", raw)
		return nil
	}

	if p.cfg.CheckExistence {
		exists, err := p.exists(ctx, raw)
		if err != nil {
			return fmt.Errorf("check file %s: %w", raw, err)
		}
		if !exists {
			return fmt.Errorf("%w: file %s", domain.ErrNotFound, raw)
		}
	}

	folder, filename, err := splitURLPath(raw)
	if err != nil {
		return fmt.Errorf("parse file URL %s: %w", raw, err)
	}

	primary := &shadows.FileShadow{
		FormatID:         p.cfg.FormatID,
		DestinationID:    destination.ID,
		Filename:         filename,
		OriginalFilename: filename,
		FolderPath:       folder,
		URL:              raw,
	}
	shadow.FileShadows = append(shadow.FileShadows, primary)
	shadow.Extras.AddExtractedFile(raw)
	logger.Debug("File %s mapped to destination %s", filename, destination.Name)

	for _, variant := range p.cfg.Variants {
		if err := p.processVariant(ctx, variant, relative, primary, shadow); err != nil {
			return err
		}
	}
	return nil
}

// processVariant emits a derived shadow when the mirrored file exists. A
// missing variant is normal, not every file has every encode.
func (p *File) processVariant(ctx context.Context, variant Variant, relative string, primary *shadows.FileShadow, shadow *shadows.ObjectShadow) error {
	derived := strings.TrimSuffix(variant.BaseURL, "/") + "/" + strings.TrimPrefix(relative, "/")
	if p.cfg.CheckExistence {
		exists, err := p.exists(ctx, derived)
		if err != nil {
			return fmt.Errorf("check variant %s: %w", derived, err)
		}
		if !exists {
			logger.Debug("Variant %s does not exist; skipping", derived)
			return nil
		}
	}

	folder, filename, err := splitURLPath(derived)
	if err != nil {
		return fmt.Errorf("parse variant URL %s: %w", derived, err)
	}
	shadow.FileShadows = append(shadow.FileShadows, &shadows.FileShadow{
		FormatID:         variant.FormatID,
		DestinationID:    variant.DestinationID,
		Filename:         filename,
		OriginalFilename: primary.OriginalFilename,
		FolderPath:       folder,
		URL:              derived,
		ParentShadow:     primary,
	})
	return nil
}

func (p *File) matchDestination(raw string) (Destination, string, bool) {
	for _, d := range p.cfg.Destinations {
		base := strings.TrimSuffix(d.BaseURL, "/")
		if strings.HasPrefix(raw, base+"/") {
			return d, strings.TrimPrefix(raw, base), true
		}
	}
	return Destination{}, "", false
}

func (p *File) exists(ctx context.Context, raw string) (bool, error) {
	if verdict, ok := p.seen[raw]; ok {
		return verdict, nil
	}
	exists, err := p.checker.Exists(ctx, raw)
	if err != nil {
		return false, err
	}
	p.seen[raw] = exists
	return exists, nil
}

// splitURLPath splits a file URL into its directory path and filename. The
// directory keeps a trailing slash so substring matching against full URLs
// cannot match a sibling folder prefix.
func splitURLPath(raw string) (folder, filename string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	dir, file := path.Split(u.Path)
	if file == "" {
		return "", "", fmt.Errorf("%w: URL has no filename", domain.ErrInvalidInput)
	}
	return dir, file, nil
}

// fieldURLs reads a record field as zero or more URLs.
func fieldURLs(record *domain.ExternalRecord, field string) []string {
	switch v := record.Field(field).(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		urls := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				urls = append(urls, s)
			}
		}
		return urls
	default:
		return nil
	}
}
