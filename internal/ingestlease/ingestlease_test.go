package ingestlease

import (
	"sync"
	"testing"
	"time"

	apperrors "github.com/docsearch-core/docsearch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireSucceedsWhenFree(t *testing.T) {
	table := New()
	release, err := table.TryAcquire("tenant-a", "uri-1")
	require.NoError(t, err)
	require.NotNil(t, release)
	release()
	assert.Equal(t, 0, table.Len())
}

func TestTryAcquireConflictsOnSameResource(t *testing.T) {
	table := New()
	release, err := table.TryAcquire("tenant-a", "uri-1")
	require.NoError(t, err)
	defer release()

	_, err = table.TryAcquire("tenant-a", "uri-1")
	require.Error(t, err)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeConflict, appErr.Code)
}

func TestTryAcquireIndependentForDifferentResources(t *testing.T) {
	table := New()
	release1, err := table.TryAcquire("tenant-a", "uri-1")
	require.NoError(t, err)
	defer release1()

	release2, err := table.TryAcquire("tenant-a", "uri-2")
	require.NoError(t, err)
	defer release2()
}

func TestTryAcquireIndependentAcrossTenants(t *testing.T) {
	table := New()
	release1, err := table.TryAcquire("tenant-a", "uri-1")
	require.NoError(t, err)
	defer release1()

	release2, err := table.TryAcquire("tenant-b", "uri-1")
	require.NoError(t, err)
	defer release2()
}

func TestReleaseIsIdempotent(t *testing.T) {
	table := New()
	release, err := table.TryAcquire("tenant-a", "uri-1")
	require.NoError(t, err)
	release()
	assert.NotPanics(t, func() { release() })
}

func TestAcquireBlocksUntilReleased(t *testing.T) {
	table := New()
	release := table.Acquire("tenant-a", "uri-1")

	acquired := make(chan struct{})
	go func() {
		r := table.Acquire("tenant-a", "uri-1")
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire should have blocked while the first lease is held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire never unblocked after release")
	}
}

func TestTableClearsEntriesAfterAllReleased(t *testing.T) {
	table := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			release := table.Acquire("tenant-a", "shared-uri")
			defer release()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, table.Len())
}
