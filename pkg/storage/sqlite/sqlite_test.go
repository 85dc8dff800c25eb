package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/openfga/membersync/assets"
	"github.com/openfga/membersync/pkg/storage"
	"github.com/openfga/membersync/pkg/storage/sqlcommon"
	"github.com/openfga/membersync/pkg/storage/test"
)

func newMigratedDatastore(t *testing.T) (*Datastore, string) {
	t.Helper()

	uri := filepath.Join(t.TempDir(), "membersync.db")
	ds, err := New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	t.Cleanup(ds.Close)

	migrations, err := fs.Sub(assets.EmbedMigrations, assets.SqliteMigrationDir)
	require.NoError(t, err)
	provider, err := goose.NewProvider(goose.DialectSQLite3, ds.db, migrations)
	require.NoError(t, err)
	_, err = provider.Up(context.Background())
	require.NoError(t, err)

	return ds, uri
}

func TestSQLiteDatastore(t *testing.T) {
	ds, _ := newMigratedDatastore(t)
	test.RunAllTests(t, ds)
}

func TestSQLiteDatastoreAfterCloseIsNotReady(t *testing.T) {
	uri := filepath.Join(t.TempDir(), "membersync.db")
	ds, err := New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	ds.Close()

	status, err := ds.IsReady(context.Background())
	require.Error(t, err)
	require.False(t, status.IsReady)
}

func TestSQLiteDatastoreSurvivesReopen(t *testing.T) {
	ds, uri := newMigratedDatastore(t)
	ctx := context.Background()

	_, err := ds.AddCompletedPart(ctx, "run", "0-a")
	require.NoError(t, err)
	require.NoError(t, ds.SetTotalParts(ctx, "run", 2))
	require.NoError(t, ds.WriteChunk(ctx, "run", "0-a", []byte("payload")))
	ds.Close()

	reopened, err := New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	defer reopened.Close()

	state, err := reopened.ReadPartState(ctx, "run")
	require.NoError(t, err)
	require.Equal(t, 1, state.CompletedParts)
	require.Equal(t, 2, *state.TotalParts)

	chunks, err := reopened.ReadChunks(ctx, "run")
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("payload")}, chunks)
}

func TestPrepareDSN(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		uri, err := PrepareDSN("/tmp/test.db")
		require.NoError(t, err)
		require.Contains(t, uri, "_pragma=journal_mode%28WAL%29")
		require.Contains(t, uri, "_pragma=busy_timeout%28100%29")
		require.Contains(t, uri, "_txlock=immediate")
	})

	t.Run("keeps_explicit_pragmas", func(t *testing.T) {
		uri, err := PrepareDSN("/tmp/test.db?_pragma=journal_mode(DELETE)&_txlock=deferred")
		require.NoError(t, err)
		require.NotContains(t, uri, "WAL")
		require.Contains(t, uri, "_txlock=deferred")
	})

	t.Run("invalid_query", func(t *testing.T) {
		_, err := PrepareDSN("/tmp/test.db?%zz")
		require.Error(t, err)
	})
}

func TestHandleSQLError(t *testing.T) {
	t.Run("no_rows_is_not_found", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(sql.ErrNoRows), storage.ErrNotFound)
	})

	t.Run("cancelled", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(context.Canceled), storage.ErrCancelled)
	})

	t.Run("other_errors_are_wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		err := HandleSQLError(boom)
		require.ErrorIs(t, err, boom)
		require.EqualError(t, err, "sql error: boom")
	})
}

func TestBusyRetry(t *testing.T) {
	t.Run("passes_through_other_errors", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := busyRetry(func() error {
			calls++
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Equal(t, 1, calls)
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, busyRetry(func() error { return nil }))
	})
}
