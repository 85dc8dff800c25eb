// Package testutils contains code that is useful in tests.
package testutils

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/membership"
	"github.com/openfga/membersync/pkg/storage/migrate"
	"github.com/openfga/membersync/pkg/storage/sqlcommon"
	"github.com/openfga/membersync/pkg/storage/sqlite"
)

const (
	AllChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// MemberIDsTransformer compares member slices as sorted id lists so that
// cmp.Diff output is stable regardless of set iteration order.
var MemberIDsTransformer = cmp.Transformer("SortMemberIDs", func(in []membership.MemberIdentity) []string {
	out := make([]string, 0, len(in))
	for _, m := range in {
		out = append(out, m.ID.String())
	}
	slices.Sort(out)
	return out
})

// MustNewSQLiteDatastore returns a migrated sqlite datastore in a temporary
// directory that is closed when the test ends.
func MustNewSQLiteDatastore(t testing.TB) *sqlite.Datastore {
	t.Helper()

	uri := filepath.Join(t.TempDir(), "membersync.db")
	err := migrate.NewSQLiteProvider(logger.NewNoopLogger()).RunMigrations(context.Background(), migrate.MigrationConfig{
		Engine:  "sqlite",
		URI:     uri,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	ds, err := sqlite.New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	t.Cleanup(ds.Close)

	return ds
}

// UUIDs returns n deterministic ids derived from seed.
func UUIDs(seed string, n int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", seed, i))))
	}
	return ids
}

// Shuffle returns a shuffled copy of arr.
func Shuffle[T any](arr []T) []T {
	copied := slices.Clone(arr)
	rand.Shuffle(len(copied), func(i, j int) {
		copied[i], copied[j] = copied[j], copied[i]
	})
	return copied
}

func CreateRandomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = AllChars[rand.Intn(len(AllChars))]
	}
	return string(b)
}

// TCPRandomPort tries to find a random TCP Port. If it can't find one, it panics. Else, it returns the port and a function that releases the port.
// It is the responsibility of the caller to call the release function right before trying to listen on the given port.
func TCPRandomPort() (int, func()) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		panic(err)
	}
	return l.Addr().(*net.TCPAddr).Port, func() {
		l.Close()
	}
}
