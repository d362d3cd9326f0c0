package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

const sourceFixture = `[
	{"id": "rec-1", "fields": {"title": "First"}},
	{"id": "rec-2", "fields": {"title": "Second"}},
	{"id": "rec-3", "fields": {"title": "Third"}}
]`

func newTestSource(t *testing.T, content string) *Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return NewSource(path)
}

func TestFetchRange_All(t *testing.T) {
	source := newTestSource(t, sourceFixture)

	refs, err := source.FetchRange(context.Background(), 0, 0)
	require.NoError(t, err)

	require.Len(t, refs, 3)
	assert.Equal(t, "rec-1", refs[0].Record.ID)
	assert.Equal(t, "rec-3", refs[2].Record.ID)
	assert.Equal(t, "First", refs[0].Record.Fields["title"])
}

func TestFetchRange_Window(t *testing.T) {
	source := newTestSource(t, sourceFixture)

	refs, err := source.FetchRange(context.Background(), 1, 1)
	require.NoError(t, err)

	require.Len(t, refs, 1)
	assert.Equal(t, "rec-2", refs[0].Record.ID)
}

func TestFetchRange_CountPastEndIsClamped(t *testing.T) {
	source := newTestSource(t, sourceFixture)

	refs, err := source.FetchRange(context.Background(), 2, 10)
	require.NoError(t, err)

	require.Len(t, refs, 1)
	assert.Equal(t, "rec-3", refs[0].Record.ID)
}

func TestFetchRange_StartOutOfBounds(t *testing.T) {
	source := newTestSource(t, sourceFixture)

	_, err := source.FetchRange(context.Background(), 4, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFetchSingle(t *testing.T) {
	source := newTestSource(t, sourceFixture)

	record, err := source.FetchSingle(context.Background(), "rec-2")
	require.NoError(t, err)
	assert.Equal(t, "Second", record.Fields["title"])

	_, err = source.FetchSingle(context.Background(), "rec-9")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoad_RejectsRecordWithoutID(t *testing.T) {
	source := newTestSource(t, `[{"fields": {"title": "anonymous"}}]`)

	_, err := source.FetchRange(context.Background(), 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad_MalformedJSON(t *testing.T) {
	source := newTestSource(t, `{"not": "an array"`)

	_, err := source.FetchRange(context.Background(), 0, 0)
	require.Error(t, err)
}
