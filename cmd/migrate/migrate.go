// Package migrate contains the command to perform database migrations.
package migrate

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openfga/membersync/cmd/common"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/storage/migrate"
)

const (
	datastoreEngineKey   = "datastore.engine"
	datastoreURIKey      = "datastore.uri"
	datastoreUsernameKey = "datastore.username"
	datastorePasswordKey = "datastore.password"
	logFormatKey         = "log.format"
	logLevelKey          = "log.level"
	logTimestampKey      = "log.timestampFormat"

	versionFlag          = "version"
	timeoutFlag          = "timeout"
	verboseMigrationFlag = "verbose"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database schema migrations needed for membersync",
		Long:  `The migrate command is used to migrate the database schema that keeps fan-in state, stored parts and sync job state.`,
		RunE:  runMigration,
		Args:  cobra.NoArgs,
	}

	flags := cmd.Flags()

	common.AddDatastoreFlags(flags)
	common.AddLogFlags(flags)
	flags.Uint(versionFlag, 0, "the version to migrate to (if omitted the latest schema will be used)")
	flags.Duration(timeoutFlag, 1*time.Minute, "a timeout for the time it takes the migrate process to connect to the database")
	flags.Bool(verboseMigrationFlag, false, "enable verbose migration logs (default false)")

	// NOTE: if you add a new flag here, update the function below, too

	cmd.PreRun = bindRunFlags

	return cmd
}

func runMigration(cmd *cobra.Command, _ []string) error {
	engine := viper.GetString(datastoreEngineKey)
	l, err := logger.NewLogger(viper.GetString(logFormatKey), viper.GetString(logLevelKey), viper.GetString(logTimestampKey))
	if err != nil {
		return err
	}

	switch engine {
	case "memory":
		l.Info("no migrations to run for `memory` datastore")
		return nil
	case "":
		return fmt.Errorf("missing datastore engine type")
	}

	cfg := migrate.MigrationConfig{
		Engine:        engine,
		URI:           viper.GetString(datastoreURIKey),
		TargetVersion: viper.GetUint(versionFlag),
		Timeout:       viper.GetDuration(timeoutFlag),
		Verbose:       viper.GetBool(verboseMigrationFlag),
		Username:      viper.GetString(datastoreUsernameKey),
		Password:      viper.GetString(datastorePasswordKey),
	}

	if err := migrate.RunMigrationsWithRegistry(cmd.Context(), migrate.NewRegistry(l), cfg); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
