package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvest-cli/internal/adapters/driven/registry/memory"
	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driving"
)

func newSweepFixture(t *testing.T) *memory.Client {
	t.Helper()
	client := memory.NewClient()
	base := time.Now().Add(-72 * time.Hour)
	for i, id := range []string{"obj-a", "obj-b", "obj-c"} {
		created := base.Add(time.Duration(i) * time.Hour)
		start := created
		client.AddObject(&domain.RegistryObject{
			ID:          id,
			DateCreated: created,
			AccessPoints: []domain.AccessPointEntry{
				{AccessPointID: "ap-1", StartDate: &start},
			},
		})
	}
	// Not published anywhere; the sweep must not see it.
	client.AddObject(&domain.RegistryObject{ID: "obj-d", DateCreated: base})
	return client
}

func TestSweep_DumpWritesStaleIDs(t *testing.T) {
	client := newSweepFixture(t)
	sweeper := NewSweepService(client)
	path := filepath.Join(t.TempDir(), "stale.txt")

	result, err := sweeper.Sweep(context.Background(), []string{"obj-a"}, driving.SweepOptions{
		Policy:        driving.SweepDump,
		DumpPath:      path,
		AccessPointID: "ap-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Listed)
	assert.Equal(t, []string{"obj-b", "obj-c"}, result.Stale)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "obj-b\nobj-c\n", string(data))
}

func TestSweep_UnpublishTakesStaleObjectsDown(t *testing.T) {
	client := newSweepFixture(t)
	sweeper := NewSweepService(client)

	result, err := sweeper.Sweep(context.Background(), []string{"obj-b"}, driving.SweepOptions{
		Policy:        driving.SweepUnpublish,
		AccessPointID: "ap-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Unpublished)
	for _, call := range client.PublishCalls() {
		assert.Nil(t, call.Start)
		assert.Equal(t, "ap-1", call.AccessPointID)
	}
	assert.False(t, client.Object("obj-a").IsPublished("ap-1", time.Now()))
	assert.True(t, client.Object("obj-b").IsPublished("ap-1", time.Now()))
}

func TestSweep_PaginatesStably(t *testing.T) {
	client := newSweepFixture(t)
	sweeper := NewSweepService(client)
	sweeper.pageSize = 1

	result, err := sweeper.Sweep(context.Background(), nil, driving.SweepOptions{
		Policy:        driving.SweepUnpublish,
		AccessPointID: "ap-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Listed)
	assert.Len(t, result.Stale, 3)
}

func TestSweep_DeletePolicyIsReserved(t *testing.T) {
	sweeper := NewSweepService(memory.NewClient())

	_, err := sweeper.Sweep(context.Background(), nil, driving.SweepOptions{
		Policy:        driving.SweepDelete,
		AccessPointID: "ap-1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}

func TestSweep_ValidatesOptions(t *testing.T) {
	sweeper := NewSweepService(memory.NewClient())

	_, err := sweeper.Sweep(context.Background(), nil, driving.SweepOptions{
		Policy: driving.SweepDump,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = sweeper.Sweep(context.Background(), nil, driving.SweepOptions{
		Policy:        driving.SweepPolicy("purge"),
		AccessPointID: "ap-1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
