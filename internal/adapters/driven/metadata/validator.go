package metadata

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

// Validator checks generated payloads against an XML schema source. It
// verifies well-formedness and that the payload's root element is one the
// schema declares, in the schema's target namespace. Full structural XSD
// validation needs libxml bindings; this catches the template mistakes that
// actually occur (broken markup, wrong root, wrong namespace) without cgo.
type Validator struct{}

var _ driven.SchemaValidator = (*Validator)(nil)

// NewValidator creates a schema validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns nil when payload conforms, and an error wrapping
// domain.ErrSchemaValidation otherwise.
func (v *Validator) Validate(schemaSource, payload string) error {
	targetNS, roots, err := parseSchema(schemaSource)
	if err != nil {
		return fmt.Errorf("%w: schema source: %v", domain.ErrSchemaValidation, err)
	}

	root, err := wellFormedRoot(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchemaValidation, err)
	}

	if len(roots) > 0 && !roots[root.Local] {
		return fmt.Errorf("%w: root element %q is not declared by the schema", domain.ErrSchemaValidation, root.Local)
	}
	if targetNS != "" && root.Space != targetNS {
		return fmt.Errorf("%w: root namespace %q, schema targets %q", domain.ErrSchemaValidation, root.Space, targetNS)
	}
	return nil
}

// parseSchema extracts the target namespace and top-level element names from
// an XSD source.
func parseSchema(source string) (targetNS string, roots map[string]bool, err error) {
	roots = make(map[string]bool)
	decoder := xml.NewDecoder(strings.NewReader(source))

	depth := 0
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch {
			case depth == 1 && t.Name.Local == "schema":
				for _, attr := range t.Attr {
					if attr.Name.Local == "targetNamespace" {
						targetNS = attr.Value
					}
				}
			case depth == 2 && t.Name.Local == "element":
				for _, attr := range t.Attr {
					if attr.Name.Local == "name" {
						roots[attr.Value] = true
					}
				}
			}
		case xml.EndElement:
			depth--
		}
	}
	return targetNS, roots, nil
}

// wellFormedRoot fully parses the payload and returns its root element name.
func wellFormedRoot(payload string) (xml.Name, error) {
	decoder := xml.NewDecoder(strings.NewReader(payload))

	var root xml.Name
	seenRoot := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return xml.Name{}, fmt.Errorf("payload is not well-formed: %v", err)
		}
		if start, ok := token.(xml.StartElement); ok && !seenRoot {
			root = start.Name
			seenRoot = true
		}
	}
	if !seenRoot {
		return xml.Name{}, fmt.Errorf("payload has no root element")
	}
	return root, nil
}
