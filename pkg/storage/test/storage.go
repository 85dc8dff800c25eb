package test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openfga/membersync/pkg/id"
	"github.com/openfga/membersync/pkg/storage"
)

// RunAllTests runs the behavioural contract of [storage.SyncDatastore]
// against ds. Every test uses fresh run and job ids so ds may be shared.
func RunAllTests(t *testing.T, ds storage.SyncDatastore) {
	t.Run("TestDatastoreIsReady", func(t *testing.T) {
		status, err := ds.IsReady(context.Background())
		require.NoError(t, err)
		require.True(t, status.IsReady)
	})

	// Fan-in state.
	t.Run("TestAddCompletedPart", func(t *testing.T) { AddCompletedPartTest(t, ds) })
	t.Run("TestSetTotalParts", func(t *testing.T) { SetTotalPartsTest(t, ds) })
	t.Run("TestDeletePartState", func(t *testing.T) { DeletePartStateTest(t, ds) })
	t.Run("TestConcurrentAddCompletedPart", func(t *testing.T) { ConcurrentAddCompletedPartTest(t, ds) })
	t.Run("TestFinalizeRun", func(t *testing.T) { FinalizeRunTest(t, ds) })

	// Chunks.
	t.Run("TestWriteAndReadChunks", func(t *testing.T) { ChunksTest(t, ds) })

	// Jobs.
	t.Run("TestJobViolations", func(t *testing.T) { JobViolationsTest(t, ds) })
	t.Run("TestJobStatus", func(t *testing.T) { JobStatusTest(t, ds) })
}

func AddCompletedPartTest(t *testing.T, ds storage.SyncDatastore) {
	ctx := context.Background()
	runID := id.MustNewString()

	_, err := ds.ReadPartState(ctx, runID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	added, err := ds.AddCompletedPart(ctx, runID, "0-a")
	require.NoError(t, err)
	require.True(t, added)

	added, err = ds.AddCompletedPart(ctx, runID, "0-a")
	require.NoError(t, err)
	require.False(t, added)

	added, err = ds.AddCompletedPart(ctx, runID, "1-b")
	require.NoError(t, err)
	require.True(t, added)

	state, err := ds.ReadPartState(ctx, runID)
	require.NoError(t, err)
	require.Equal(t, runID, state.RunID)
	require.Equal(t, 2, state.CompletedParts)
	require.Nil(t, state.TotalParts)
	require.False(t, state.UpdatedAt.IsZero())
}

func SetTotalPartsTest(t *testing.T, ds storage.SyncDatastore) {
	ctx := context.Background()

	t.Run("before_any_part", func(t *testing.T) {
		runID := id.MustNewString()
		require.NoError(t, ds.SetTotalParts(ctx, runID, 3))

		state, err := ds.ReadPartState(ctx, runID)
		require.NoError(t, err)
		require.NotNil(t, state.TotalParts)
		require.Equal(t, 3, *state.TotalParts)
		require.Equal(t, 0, state.CompletedParts)
	})

	t.Run("same_value_is_idempotent", func(t *testing.T) {
		runID := id.MustNewString()
		_, err := ds.AddCompletedPart(ctx, runID, "0-a")
		require.NoError(t, err)

		require.NoError(t, ds.SetTotalParts(ctx, runID, 2))
		require.NoError(t, ds.SetTotalParts(ctx, runID, 2))

		state, err := ds.ReadPartState(ctx, runID)
		require.NoError(t, err)
		require.Equal(t, 2, *state.TotalParts)
		require.Equal(t, 1, state.CompletedParts)
	})

	t.Run("conflicting_value", func(t *testing.T) {
		runID := id.MustNewString()
		require.NoError(t, ds.SetTotalParts(ctx, runID, 2))

		err := ds.SetTotalParts(ctx, runID, 5)
		require.ErrorIs(t, err, storage.ErrConflictingTotalParts)

		state, err := ds.ReadPartState(ctx, runID)
		require.NoError(t, err)
		require.Equal(t, 2, *state.TotalParts)
	})

	t.Run("invalid_value", func(t *testing.T) {
		runID := id.MustNewString()
		require.ErrorIs(t, ds.SetTotalParts(ctx, runID, 0), storage.ErrInvalidTotalParts)

		_, err := ds.ReadPartState(ctx, runID)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func DeletePartStateTest(t *testing.T, ds storage.SyncDatastore) {
	ctx := context.Background()
	runID := id.MustNewString()

	_, err := ds.AddCompletedPart(ctx, runID, "0-a")
	require.NoError(t, err)
	require.NoError(t, ds.SetTotalParts(ctx, runID, 1))

	require.NoError(t, ds.DeletePartState(ctx, runID))
	_, err = ds.ReadPartState(ctx, runID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	// deleting twice is fine
	require.NoError(t, ds.DeletePartState(ctx, runID))

	// a redelivered part after deletion starts a new record
	added, err := ds.AddCompletedPart(ctx, runID, "0-a")
	require.NoError(t, err)
	require.True(t, added)
}

func FinalizeRunTest(t *testing.T, ds storage.SyncDatastore) {
	ctx := context.Background()
	runID := id.MustNewString()

	finalized, err := ds.IsRunFinalized(ctx, runID)
	require.NoError(t, err)
	require.False(t, finalized)

	_, err = ds.AddCompletedPart(ctx, runID, "0-a")
	require.NoError(t, err)
	require.NoError(t, ds.SetTotalParts(ctx, runID, 2))

	require.NoError(t, ds.FinalizeRun(ctx, runID))

	_, err = ds.ReadPartState(ctx, runID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	finalized, err = ds.IsRunFinalized(ctx, runID)
	require.NoError(t, err)
	require.True(t, finalized)

	// finalizing twice is fine
	require.NoError(t, ds.FinalizeRun(ctx, runID))

	t.Run("purge_keeps_recent_markers", func(t *testing.T) {
		_, err := ds.PurgeFinalizedRuns(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)

		finalized, err := ds.IsRunFinalized(ctx, runID)
		require.NoError(t, err)
		require.True(t, finalized)
	})

	t.Run("purge_removes_old_markers", func(t *testing.T) {
		purged, err := ds.PurgeFinalizedRuns(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		require.GreaterOrEqual(t, purged, 1)

		finalized, err := ds.IsRunFinalized(ctx, runID)
		require.NoError(t, err)
		require.False(t, finalized)
	})
}

func ConcurrentAddCompletedPartTest(t *testing.T, ds storage.SyncDatastore) {
	ctx := context.Background()
	runID := id.MustNewString()

	const parts = 5
	const deliveries = 4

	var wg sync.WaitGroup
	var inserted atomic.Int32
	for p := 0; p < parts; p++ {
		for d := 0; d < deliveries; d++ {
			wg.Add(1)
			go func(partID string) {
				defer wg.Done()
				added, err := ds.AddCompletedPart(ctx, runID, partID)
				if err != nil {
					t.Errorf("add part %s: %v", partID, err)
					return
				}
				if added {
					inserted.Add(1)
				}
			}(fmt.Sprintf("%d-x", p))
		}
	}
	wg.Wait()

	require.Equal(t, int32(parts), inserted.Load())

	state, err := ds.ReadPartState(ctx, runID)
	require.NoError(t, err)
	require.Equal(t, parts, state.CompletedParts)
}

func ChunksTest(t *testing.T, ds storage.SyncDatastore) {
	ctx := context.Background()
	runID := id.MustNewString()

	payloads, err := ds.ReadChunks(ctx, runID)
	require.NoError(t, err)
	require.Empty(t, payloads)

	require.NoError(t, ds.WriteChunk(ctx, runID, "1-b", []byte("second")))
	require.NoError(t, ds.WriteChunk(ctx, runID, "0-a", []byte("first")))
	require.NoError(t, ds.WriteChunk(ctx, runID, "0-a", []byte("ignored")))

	payloads, err = ds.ReadChunks(ctx, runID)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("first"), []byte("second")}, payloads)

	other := id.MustNewString()
	require.NoError(t, ds.WriteChunk(ctx, other, "0-a", []byte("other")))

	require.NoError(t, ds.DeleteChunks(ctx, runID))
	payloads, err = ds.ReadChunks(ctx, runID)
	require.NoError(t, err)
	require.Empty(t, payloads)

	payloads, err = ds.ReadChunks(ctx, other)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
}

func JobViolationsTest(t *testing.T, ds storage.SyncDatastore) {
	ctx := context.Background()
	jobID := "job-" + id.MustNewString()

	_, err := ds.ReadJob(ctx, jobID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	for want := 1; want <= 3; want++ {
		got, err := ds.IncrementViolations(ctx, jobID)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	job, err := ds.ReadJob(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, jobID, job.JobID)
	require.Equal(t, 3, job.ConsecutiveViolations)
	require.Equal(t, storage.JobStatusEnabled, job.Status)

	require.NoError(t, ds.ResetViolations(ctx, jobID))
	job, err = ds.ReadJob(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, 0, job.ConsecutiveViolations)

	t.Run("reset_creates_job", func(t *testing.T) {
		jobID := "job-" + id.MustNewString()
		require.NoError(t, ds.ResetViolations(ctx, jobID))

		job, err := ds.ReadJob(ctx, jobID)
		require.NoError(t, err)
		require.Equal(t, 0, job.ConsecutiveViolations)
		require.Equal(t, storage.JobStatusEnabled, job.Status)
	})
}

func JobStatusTest(t *testing.T, ds storage.SyncDatastore) {
	ctx := context.Background()
	jobID := "job-" + id.MustNewString()

	_, err := ds.IncrementViolations(ctx, jobID)
	require.NoError(t, err)

	require.NoError(t, ds.SetJobStatus(ctx, jobID, storage.JobStatusDisabled))
	job, err := ds.ReadJob(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, storage.JobStatusDisabled, job.Status)
	require.Equal(t, 1, job.ConsecutiveViolations)

	require.NoError(t, ds.SetJobStatus(ctx, jobID, storage.JobStatusEnabled))
	job, err = ds.ReadJob(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, storage.JobStatusEnabled, job.Status)
}
