package diff

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/openfga/membersync/cmd"
	"github.com/openfga/membersync/cmd/util"
)

const (
	member1 = "2362caa5-e82f-5b71-aca4-e73ff6a21d96"
	member2 = "5f8581ad-8bec-5f3c-871b-011dfb096f14"
	member3 = "30b7b8ba-d739-55aa-bc5c-16190a2173af"
	member4 = "bcd617d1-2697-55d3-b848-d39457b95f69"
)

func writeMembersFile(t *testing.T, name string, ids ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	content := "# generated by test\n\n" + strings.Join(ids, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runDiffCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(viper.Reset)
	util.PrepareTempConfigDir(t)

	root := cmd.NewRootCommand()
	root.AddCommand(NewDiffCommand())

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"diff", "--log-level", "none"}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestDiffCommand(t *testing.T) {
	desired := writeMembersFile(t, "desired.txt", member1, member2, member3)
	current := writeMembersFile(t, "current.txt", member1, member4)

	t.Run("within_thresholds", func(t *testing.T) {
		out, err := runDiffCommand(t, "--desired", desired, "--current", current)
		require.NoError(t, err)

		require.Contains(t, out, "additions: 2 (100.00%)\n")
		require.Contains(t, out, "  + "+member2+"\n")
		require.Contains(t, out, "  + "+member3+"\n")
		require.Contains(t, out, "removals: 1 (50.00%)\n")
		require.Contains(t, out, "  - "+member4+"\n")
		require.Contains(t, out, "threshold: ok\n")
	})

	t.Run("exceeds_removal_threshold", func(t *testing.T) {
		out, err := runDiffCommand(t, "--desired", desired, "--current", current, "--threshold-remove", "10")
		require.ErrorIs(t, err, ErrThresholdViolated)
		require.Contains(t, out, "threshold: violated\n")
	})

	t.Run("ignore_threshold_once", func(t *testing.T) {
		out, err := runDiffCommand(t, "--desired", desired, "--current", current, "--threshold-remove", "10", "--ignore-threshold-once")
		require.NoError(t, err)
		require.Contains(t, out, "threshold: exceeded but ignored\n")
	})

	t.Run("exclusionary", func(t *testing.T) {
		out, err := runDiffCommand(t, "--desired", writeMembersFile(t, "remove.txt", member4, member3), "--current", current, "--exclusionary")
		require.NoError(t, err)
		require.Contains(t, out, "additions: 0 (0.00%)\n")
		require.Contains(t, out, "removals: 1 (50.00%)\n")
		require.Contains(t, out, "  - "+member4+"\n")
	})

	t.Run("threshold_from_env", func(t *testing.T) {
		t.Setenv("MEMBERSYNC_THRESHOLD_ADD", "50")
		_, err := runDiffCommand(t, "--desired", desired, "--current", current)
		require.ErrorIs(t, err, ErrThresholdViolated)
	})

	t.Run("invalid_member_id", func(t *testing.T) {
		bad := writeMembersFile(t, "bad.txt", member1, "not-a-uuid")
		_, err := runDiffCommand(t, "--desired", bad, "--current", current)
		require.ErrorContains(t, err, "line 4: invalid member id 'not-a-uuid'")
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := runDiffCommand(t, "--desired", filepath.Join(t.TempDir(), "missing.txt"), "--current", current)
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("required_flags", func(t *testing.T) {
		_, err := runDiffCommand(t, "--desired", desired)
		require.ErrorContains(t, err, `required flag(s) "current" not set`)
	})
}
