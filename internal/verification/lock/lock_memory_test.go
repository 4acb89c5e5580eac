package lock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "veriterra/pkg/domain"
	"veriterra/pkg/platform/sentinel"
)

func TestMemoryLocker_SecondAcquireConflicts(t *testing.T) {
	ctx := context.Background()
	locker := NewMemory()
	projectID := id.MustProjectID("7f9c24e8-3b13-4a2f-a912-4ca19de0f2b1")

	release, err := locker.Acquire(ctx, projectID)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, projectID)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	require.NoError(t, release(ctx))

	release, err = locker.Acquire(ctx, projectID)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestMemoryLocker_ProjectsAreIndependent(t *testing.T) {
	ctx := context.Background()
	locker := NewMemory()

	releaseA, err := locker.Acquire(ctx, id.MustProjectID("7f9c24e8-3b13-4a2f-a912-4ca19de0f2b1"))
	require.NoError(t, err)
	defer releaseA(ctx)

	releaseB, err := locker.Acquire(ctx, id.MustProjectID("11e38d29-96a1-4f4b-bd5a-62c1f0e9b833"))
	require.NoError(t, err)
	defer releaseB(ctx)
}

func TestMemoryLocker_ReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	locker := NewMemory()
	projectID := id.MustProjectID("7f9c24e8-3b13-4a2f-a912-4ca19de0f2b1")

	release, err := locker.Acquire(ctx, projectID)
	require.NoError(t, err)

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx))

	// A double release must not free a lock the next holder has taken.
	_, err = locker.Acquire(ctx, projectID)
	require.NoError(t, err)
	require.NoError(t, release(ctx))

	_, err = locker.Acquire(ctx, projectID)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}
