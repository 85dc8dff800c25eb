package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfga/membersync/internal/build"
)

// NewVersionCommand returns the command to get the membersync version.
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Return the membersync version",
		Long:  "Return the membersync version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}

	return cmd
}

func version(cmd *cobra.Command, _ []string) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "membersync version %s date %s commit id %s\n", build.Version, build.Date, build.Commit)
	return err
}
