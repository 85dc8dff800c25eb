package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestMustBindPFlag(t *testing.T) {
	t.Cleanup(viper.Reset)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "debug"}))

	MustBindPFlag("log.level", flags.Lookup("log-level"))
	require.Equal(t, "debug", viper.GetString("log.level"))

	t.Run("panics_on_nil_flag", func(t *testing.T) {
		require.Panics(t, func() {
			MustBindPFlag("log.format", nil)
		})
	})
}

func TestMustBindEnv(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("MEMBERSYNC_LOG_FORMAT", "json")

	MustBindEnv("log.format", "MEMBERSYNC_LOG_FORMAT")
	require.Equal(t, "json", viper.GetString("log.format"))

	t.Run("panics_without_key", func(t *testing.T) {
		require.Panics(t, func() {
			MustBindEnv()
		})
	})
}

func TestPrepareTempConfigFile(t *testing.T) {
	PrepareTempConfigFile(t, "log:\n  level: debug\n")

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, ".membersync", "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, "log:\n  level: debug\n", string(data))
}
