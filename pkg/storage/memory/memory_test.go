package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openfga/membersync/pkg/storage/test"
)

func TestMemdbStorage(t *testing.T) {
	ds := New()
	test.RunAllTests(t, ds)
}

func TestWithClock(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ds := New(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := ds.AddCompletedPart(ctx, "run", "0-a")
	require.NoError(t, err)

	state, err := ds.ReadPartState(ctx, "run")
	require.NoError(t, err)
	require.Equal(t, now, state.UpdatedAt)

	_, err = ds.IncrementViolations(ctx, "job")
	require.NoError(t, err)

	job, err := ds.ReadJob(ctx, "job")
	require.NoError(t, err)
	require.Equal(t, now, job.UpdatedAt)
}

func TestReadChunksReturnsCopies(t *testing.T) {
	ds := New()
	ctx := context.Background()

	payload := []byte("abc")
	require.NoError(t, ds.WriteChunk(ctx, "run", "0-a", payload))
	payload[0] = 'x'

	chunks, err := ds.ReadChunks(ctx, "run")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), chunks[0])

	chunks[0][0] = 'y'
	again, err := ds.ReadChunks(ctx, "run")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again[0])
}
