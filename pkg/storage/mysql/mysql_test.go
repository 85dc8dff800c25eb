package mysql

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openfga/membersync/pkg/storage/sqlcommon"
	"github.com/openfga/membersync/pkg/storage/test"
)

// TestMySQLDatastore runs against a migrated database named by
// MEMBERSYNC_TEST_MYSQL_URI.
func TestMySQLDatastore(t *testing.T) {
	uri := os.Getenv("MEMBERSYNC_TEST_MYSQL_URI")
	if uri == "" {
		t.Skip("MEMBERSYNC_TEST_MYSQL_URI not set")
	}

	ds, err := New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	defer ds.Close()

	status, err := ds.IsReady(context.Background())
	require.NoError(t, err)
	if !status.IsReady {
		t.Skip(status.Message)
	}

	test.RunAllTests(t, ds)
}

func TestPrepareDSN(t *testing.T) {
	t.Run("enables_parse_time", func(t *testing.T) {
		dsn, err := PrepareDSN("root:secret@tcp(localhost:3306)/membersync", "", "")
		require.NoError(t, err)
		require.Contains(t, dsn, "parseTime=true")
		require.Contains(t, dsn, "root:secret@tcp(localhost:3306)/membersync")
	})

	t.Run("overrides_credentials", func(t *testing.T) {
		dsn, err := PrepareDSN("root:secret@tcp(localhost:3306)/membersync", "sync", "hunter2")
		require.NoError(t, err)
		require.Contains(t, dsn, "sync:hunter2@tcp(localhost:3306)/membersync")
	})

	t.Run("invalid_dsn", func(t *testing.T) {
		_, err := PrepareDSN("not a dsn", "", "")
		require.ErrorContains(t, err, "failed to parse mysql connection dsn")
	})
}
