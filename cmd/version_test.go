package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openfga/membersync/internal/build"
)

func TestVersionCommand(t *testing.T) {
	root := NewRootCommand()
	root.AddCommand(NewVersionCommand())

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())

	require.Equal(t, "membersync version "+build.Version+" date "+build.Date+" commit id "+build.Commit+"\n", out.String())
}
