package driven

import (
	"context"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// RecordSource fetches records from the external content source.
//
// FetchRange may return references instead of full records; callers resolve
// those with FetchSingle. A count of 0 means "everything from start".
type RecordSource interface {
	// FetchRange returns count records (or references) starting at start.
	FetchRange(ctx context.Context, start, count int) ([]domain.RecordRef, error)

	// FetchSingle resolves one reference to a full record.
	FetchSingle(ctx context.Context, reference string) (*domain.ExternalRecord, error)
}
