package migrate

import (
	"github.com/spf13/cobra"

	"github.com/openfga/membersync/cmd/common"
	"github.com/openfga/membersync/cmd/util"
)

// bindRunFlags binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindRunFlags(command *cobra.Command, args []string) {
	flags := command.Flags()

	common.BindConfigFlags(command, args)

	util.MustBindPFlag(versionFlag, flags.Lookup(versionFlag))
	util.MustBindEnv(versionFlag, "MEMBERSYNC_VERSION")

	util.MustBindPFlag(timeoutFlag, flags.Lookup(timeoutFlag))
	util.MustBindEnv(timeoutFlag, "MEMBERSYNC_TIMEOUT")

	util.MustBindPFlag(verboseMigrationFlag, flags.Lookup(verboseMigrationFlag))
	util.MustBindEnv(verboseMigrationFlag, "MEMBERSYNC_VERBOSE")
}
