// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand enables all children commands to read flags from CLI flags, environment variables prefixed with MEMBERSYNC, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("MEMBERSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/membersync", "$HOME/.membersync", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	return &cobra.Command{
		Use:   "membersync",
		Short: "Keep destination group memberships in sync with their sources of truth",
		Long: `Keep destination group memberships in sync with their sources of truth.

membersync splits large memberships into parts that fit through size limited channels,
reassembles them, computes the additions and removals a destination needs and refuses
changes that exceed the configured safety thresholds.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := viper.ReadInConfig(); err != nil {
				if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
					return fmt.Errorf("failed to load config: %w", err)
				}
			}
			return nil
		},
	}
}
