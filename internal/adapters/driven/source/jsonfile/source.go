// Package jsonfile provides a file-backed record source. It doubles as the
// reference implementation of the external-source contract: FetchRange lists
// records in stable order, FetchSingle resolves one by reference.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.RecordSource = (*Source)(nil)

// Source reads records from a JSON file holding an array of objects, each
// with an "id" and a "fields" table.
type Source struct {
	path string
}

type recordDTO struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// NewSource creates a source reading from path. The file is re-read per
// fetch, so a long run sees updates without restarting.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// FetchRange returns count records starting at start, in file order. A zero
// count means everything from start.
func (s *Source) FetchRange(_ context.Context, start, count int) ([]domain.RecordRef, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}

	if start < 0 || start > len(records) {
		return nil, fmt.Errorf("%w: range start %d outside listing of %d", domain.ErrInvalidInput, start, len(records))
	}
	end := len(records)
	if count > 0 && start+count < end {
		end = start + count
	}

	refs := make([]domain.RecordRef, 0, end-start)
	for _, record := range records[start:end] {
		refs = append(refs, domain.RecordRef{Record: record})
	}
	return refs, nil
}

// FetchSingle resolves one record by its ID.
func (s *Source) FetchSingle(_ context.Context, reference string) (*domain.ExternalRecord, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.ID == reference {
			return record, nil
		}
	}
	return nil, fmt.Errorf("%w: record %s", domain.ErrNotFound, reference)
}

func (s *Source) load() ([]*domain.ExternalRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}

	var dtos []recordDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("parse source file: %w", err)
	}

	records := make([]*domain.ExternalRecord, 0, len(dtos))
	for i, dto := range dtos {
		if dto.ID == "" {
			return nil, fmt.Errorf("%w: record %d has no id", domain.ErrInvalidInput, i)
		}
		raw, _ := json.Marshal(dto)
		records = append(records, &domain.ExternalRecord{
			ID:     dto.ID,
			Fields: dto.Fields,
			Raw:    raw,
		})
	}
	return records, nil
}
