package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/shadows"
)

// mockFilter implements Filter.
type mockFilter struct {
	name    string
	passes  bool
	reason  string
	ignored map[Mode]bool
	calls   int
}

func (m *mockFilter) Name() string { return m.name }

func (m *mockFilter) Passes(_ context.Context, _ *domain.ExternalRecord) (bool, string) {
	m.calls++
	return m.passes, m.reason
}

func (m *mockFilter) IgnoreInMode(mode Mode) bool { return m.ignored[mode] }

// mockObjectProcessor implements ObjectProcessor.
type mockObjectProcessor struct {
	processCalls int
	skipCalls    int
}

func (m *mockObjectProcessor) Name() string { return "mock-object" }

func (m *mockObjectProcessor) Process(_ context.Context, _ *domain.ExternalRecord) (*shadows.ObjectShadow, error) {
	m.processCalls++
	return &shadows.ObjectShadow{Queries: []string{"q"}, Extras: domain.NewExtras()}, nil
}

func (m *mockObjectProcessor) Skip(_ context.Context, _ *domain.ExternalRecord) (*shadows.ObjectShadow, error) {
	m.skipCalls++
	return &shadows.ObjectShadow{Queries: []string{"q"}, Skipped: true, Extras: domain.NewExtras()}, nil
}

// mockProcessor implements Processor.
type mockProcessor struct {
	name  string
	calls int
	err   error
}

func (m *mockProcessor) Name() string { return m.name }

func (m *mockProcessor) Process(_ context.Context, _ *domain.ExternalRecord, _ *shadows.ObjectShadow) error {
	m.calls++
	return m.err
}

func testRecord() *domain.ExternalRecord {
	return &domain.ExternalRecord{ID: "rec-1", Fields: map[string]any{}}
}

func TestRunner_AllFiltersPass(t *testing.T) {
	object := &mockObjectProcessor{}
	filter := &mockFilter{name: "f1", passes: true}
	processor := &mockProcessor{name: "p1"}

	runner, err := NewRunner(object, []Filter{filter}, []Processor{processor})
	require.NoError(t, err)

	shadow, err := runner.Build(context.Background(), testRecord(), ModeAll, false)
	require.NoError(t, err)

	assert.False(t, shadow.Skipped)
	assert.Equal(t, 1, object.processCalls)
	assert.Equal(t, 1, processor.calls)
}

func TestRunner_RejectionBuildsSkippedShadow(t *testing.T) {
	object := &mockObjectProcessor{}
	// Both filters reject; both must still be evaluated so every reason
	// reaches the log.
	f1 := &mockFilter{name: "f1", passes: false, reason: "flagged"}
	f2 := &mockFilter{name: "f2", passes: false, reason: "no title"}
	processor := &mockProcessor{name: "p1"}

	runner, err := NewRunner(object, []Filter{f1, f2}, []Processor{processor})
	require.NoError(t, err)

	shadow, err := runner.Build(context.Background(), testRecord(), ModeAll, false)
	require.NoError(t, err)

	assert.True(t, shadow.Skipped)
	assert.Equal(t, 1, f1.calls)
	assert.Equal(t, 1, f2.calls)
	assert.Equal(t, 1, object.skipCalls)
	assert.Equal(t, 0, object.processCalls)
	assert.Equal(t, 0, processor.calls)
}

func TestRunner_FilterIgnoredInMode(t *testing.T) {
	object := &mockObjectProcessor{}
	filter := &mockFilter{name: "f1", passes: false, ignored: map[Mode]bool{ModeSingle: true}}

	runner, err := NewRunner(object, []Filter{filter}, nil)
	require.NoError(t, err)

	shadow, err := runner.Build(context.Background(), testRecord(), ModeSingle, false)
	require.NoError(t, err)

	assert.False(t, shadow.Skipped)
	assert.Equal(t, 0, filter.calls)
}

func TestRunner_SkipProcessing(t *testing.T) {
	object := &mockObjectProcessor{}
	processor := &mockProcessor{name: "p1"}

	runner, err := NewRunner(object, nil, []Processor{processor})
	require.NoError(t, err)

	_, err = runner.Build(context.Background(), testRecord(), ModeAll, true)
	require.NoError(t, err)

	assert.Equal(t, 1, object.processCalls)
	assert.Equal(t, 0, processor.calls)
}

func TestRunner_ProcessorErrorFailsRecord(t *testing.T) {
	object := &mockObjectProcessor{}
	processor := &mockProcessor{name: "p1", err: errors.New("boom")}

	runner, err := NewRunner(object, nil, []Processor{processor})
	require.NoError(t, err)

	_, err = runner.Build(context.Background(), testRecord(), ModeAll, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processor p1")
}

func TestRunner_NeedsObjectProcessor(t *testing.T) {
	_, err := NewRunner(nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRegistry_UnknownNamesAreConfigurationErrors(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.BuildFilter("nope", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = registry.BuildProcessor("nope", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRegistry_BuildsRegisteredComponents(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterFilter("f", func(_ map[string]any) (Filter, error) {
		return &mockFilter{name: "f", passes: true}, nil
	})
	registry.RegisterProcessor("p", func(_ map[string]any) (Processor, error) {
		return &mockProcessor{name: "p"}, nil
	})

	assert.True(t, registry.HasFilter("f"))
	assert.True(t, registry.HasProcessor("p"))

	filter, err := registry.BuildFilter("f", nil)
	require.NoError(t, err)
	assert.Equal(t, "f", filter.Name())

	processor, err := registry.BuildProcessor("p", nil)
	require.NoError(t, err)
	assert.Equal(t, "p", processor.Name())
}
