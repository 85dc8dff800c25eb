package syncgroup

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/openfga/membersync/cmd"
	"github.com/openfga/membersync/cmd/common"
	"github.com/openfga/membersync/cmd/diff"
	"github.com/openfga/membersync/cmd/util"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/membership"
	"github.com/openfga/membersync/pkg/storage/migrate"
	"github.com/openfga/membersync/pkg/storage/sqlcommon"
	"github.com/openfga/membersync/pkg/storage/sqlite"
	"github.com/openfga/membersync/pkg/testutils"
)

const (
	groupsFile = "../../pkg/directory/testdata/groups.yaml"
	rootGroup  = "9daff68d-c8bd-5da6-9690-0e716c1b61e9"
)

var rootUsers = []string{
	"2362caa5-e82f-5b71-aca4-e73ff6a21d96",
	"30b7b8ba-d739-55aa-bc5c-16190a2173af",
	"5f8581ad-8bec-5f3c-871b-011dfb096f14",
	"bcd617d1-2697-55d3-b848-d39457b95f69",
}

func runSyncCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	util.PrepareTempConfigDir(t)

	root := cmd.NewRootCommand()
	root.AddCommand(NewSyncCommand())

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{
		"sync",
		"--file", groupsFile,
		"--root", rootGroup,
		"--log-level", "none",
		"--metrics-enabled=false",
	}, args...))

	err := root.Execute()
	return out.String(), err
}

func readIDs(t *testing.T, path string) []string {
	t.Helper()

	set, err := common.ReadMembersFile(path)
	require.NoError(t, err)

	ids := make([]string, 0, set.Len())
	for _, m := range set.Members() {
		ids = append(ids, m.ID.String())
	}
	return ids
}

func newMigratedSQLite(t *testing.T) string {
	t.Helper()

	uri := filepath.Join(t.TempDir(), "membersync.db")
	err := migrate.NewSQLiteProvider(logger.NewNoopLogger()).RunMigrations(context.Background(), migrate.MigrationConfig{
		Engine:  "sqlite",
		URI:     uri,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return uri
}

// purgeFinalizedRuns removes every finalized run marker from the sqlite
// datastore at uri and returns how many there were.
func purgeFinalizedRuns(t *testing.T, uri string) int {
	t.Helper()

	ds, err := sqlite.New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	defer ds.Close()

	purged, err := ds.PurgeFinalizedRuns(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	return purged
}

func TestSyncCommand(t *testing.T) {
	t.Run("creates_missing_destination", func(t *testing.T) {
		current := filepath.Join(t.TempDir(), "members.txt")

		out, err := runSyncCommand(t, "--current", current)
		require.NoError(t, err)
		require.Contains(t, out, "additions: 4 (100.00%)\n")
		require.Contains(t, out, "applied: true\n")
		require.Equal(t, rootUsers, readIDs(t, current))

		t.Run("second_run_is_unchanged", func(t *testing.T) {
			out, err := runSyncCommand(t, "--current", current, "--chunking-max-members-per-chunk", "1")
			require.NoError(t, err)
			require.Contains(t, out, "additions: 0 (0.00%)\n")
			require.Contains(t, out, "removals: 0 (0.00%)\n")
			require.Contains(t, out, "applied: false\n")
		})
	})

	t.Run("refuses_large_removal", func(t *testing.T) {
		stale := testutils.UUIDs("sync-stale", 4)
		current := filepath.Join(t.TempDir(), "members.txt")
		f, err := os.Create(current)
		require.NoError(t, err)
		require.NoError(t, common.WriteMembers(f, membership.SetOf(stale...)))
		require.NoError(t, f.Close())

		out, err := runSyncCommand(t, "--current", current, "--threshold-remove", "10")
		require.ErrorIs(t, err, diff.ErrThresholdViolated)
		require.Contains(t, out, "threshold: violated\n")
		require.Contains(t, out, "consecutive violations: 1\n")
		require.Contains(t, out, "notification: threshold_violation members\n")
		require.Contains(t, out, "applied: false\n")
		require.Len(t, readIDs(t, current), 4)
		require.NotContains(t, readIDs(t, current), rootUsers[0])

		t.Run("ignore_threshold_once", func(t *testing.T) {
			out, err := runSyncCommand(t, "--current", current, "--threshold-remove", "10", "--ignore-threshold-once")
			require.NoError(t, err)
			require.Contains(t, out, "threshold: exceeded but ignored\n")
			require.Contains(t, out, "applied: true\n")
			require.Equal(t, rootUsers, readIDs(t, current))
		})
	})

	t.Run("dry_run", func(t *testing.T) {
		current := filepath.Join(t.TempDir(), "members.txt")

		out, err := runSyncCommand(t, "--current", current, "--threshold-dry-run")
		require.NoError(t, err)
		require.Contains(t, out, "additions: 4 (100.00%)\n")
		require.Contains(t, out, "applied: false\n")
		require.NoFileExists(t, current)
	})

	t.Run("violations_persist_in_sqlite", func(t *testing.T) {
		uri := newMigratedSQLite(t)
		current := filepath.Join(t.TempDir(), "members.txt")
		f, err := os.Create(current)
		require.NoError(t, err)
		require.NoError(t, common.WriteMembers(f, membership.SetOf(testutils.UUIDs("sync-sqlite", 2)...)))
		require.NoError(t, f.Close())

		args := []string{
			"--current", current,
			"--job", "engineering",
			"--datastore-engine", "sqlite",
			"--datastore-uri", uri,
			"--threshold-remove", "10",
			"--threshold-max-consecutive-violations", "2",
		}

		out, err := runSyncCommand(t, args...)
		require.ErrorIs(t, err, diff.ErrThresholdViolated)
		require.Contains(t, out, "consecutive violations: 1\n")
		require.Contains(t, out, "job disabled: false\n")

		out, err = runSyncCommand(t, args...)
		require.ErrorIs(t, err, diff.ErrThresholdViolated)
		require.Contains(t, out, "consecutive violations: 2\n")
		require.Contains(t, out, "job disabled: true\n")
		require.Contains(t, out, "notification: job_disabled engineering\n")

		// a disabled job is not applied even when the threshold is lifted
		out, err = runSyncCommand(t, append(args, "--threshold-remove", "100")...)
		require.NoError(t, err)
		require.Contains(t, out, "job disabled: true\n")
		require.Contains(t, out, "applied: false\n")
		require.Len(t, readIDs(t, current), 2)
	})

	t.Run("finalized_runs_are_purged", func(t *testing.T) {
		uri := newMigratedSQLite(t)
		current := filepath.Join(t.TempDir(), "members.txt")
		args := []string{
			"--current", current,
			"--datastore-engine", "sqlite",
			"--datastore-uri", uri,
		}

		for i := 0; i < 3; i++ {
			_, err := runSyncCommand(t, args...)
			require.NoError(t, err)
		}
		require.Equal(t, 3, purgeFinalizedRuns(t, uri))

		for i := 0; i < 2; i++ {
			_, err := runSyncCommand(t, append(args, "--chunking-finalized-run-retention", "1ns")...)
			require.NoError(t, err)
		}
		require.Equal(t, 1, purgeFinalizedRuns(t, uri))
	})

	t.Run("unmigrated_datastore", func(t *testing.T) {
		current := filepath.Join(t.TempDir(), "members.txt")
		_, err := runSyncCommand(t,
			"--current", current,
			"--datastore-engine", "sqlite",
			"--datastore-uri", filepath.Join(t.TempDir(), "empty.db"),
		)
		require.ErrorIs(t, err, ErrDatastoreNotReady)
	})

	t.Run("unknown_root", func(t *testing.T) {
		current := filepath.Join(t.TempDir(), "members.txt")
		_, err := runSyncCommand(t, "--current", current, "--root", "00000000-0000-0000-0000-000000000001")
		require.Error(t, err)
		require.NoFileExists(t, current)
	})
}

func TestFileDestination(t *testing.T) {
	ctx := context.Background()
	ids := testutils.UUIDs("file-destination", 3)
	dest := &fileDestination{path: filepath.Join(t.TempDir(), "members.txt")}

	current, err := dest.CurrentMembers(ctx, membership.Destination{})
	require.NoError(t, err)
	require.Zero(t, current.Len())

	require.NoError(t, dest.Apply(ctx, membership.Destination{}, membership.SetOf(ids...), nil))
	current, err = dest.CurrentMembers(ctx, membership.Destination{})
	require.NoError(t, err)
	require.True(t, current.Equal(membership.SetOf(ids...)))

	require.NoError(t, dest.Apply(ctx, membership.Destination{}, nil, membership.SetOf(ids[0])))
	current, err = dest.CurrentMembers(ctx, membership.Destination{})
	require.NoError(t, err)
	require.True(t, current.Equal(membership.SetOf(ids[1:]...)))

	entries, err := os.ReadDir(filepath.Dir(dest.path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are cleaned up")
}
