package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyConfig(t *testing.T) {
	t.Run("defaults_are_valid", func(t *testing.T) {
		require.NoError(t, DefaultConfig().Verify())
		require.NotPanics(t, func() { MustDefaultConfig() })
	})

	t.Run("invalid_log_format", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Log.Format = "xml"

		err := cfg.Verify()
		require.EqualError(t, err, `config 'log.format' must be one of ["text" "json"]`)
	})

	t.Run("invalid_log_level", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Log.Level = "verbose"

		err := cfg.Verify()
		require.ErrorContains(t, err, "config 'log.level' must be one of")
	})

	t.Run("invalid_log_timestamp_format", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Log.TimestampFormat = "RFC3339"

		err := cfg.Verify()
		require.ErrorContains(t, err, "config 'log.timestampFormat' must be one of")
	})

	t.Run("unknown_datastore_engine", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Datastore.Engine = "cassandra"

		err := cfg.Verify()
		require.EqualError(t, err, `config 'datastore.engine' must be one of ["memory" "sqlite" "postgres" "mysql"]`)
	})

	t.Run("sql_engine_requires_uri", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Datastore.Engine = "postgres"

		err := cfg.Verify()
		require.EqualError(t, err, "config 'datastore.uri' must be set for the 'postgres' engine")

		cfg.Datastore.URI = "postgres://localhost:5432/membersync"
		require.NoError(t, cfg.Verify())
	})

	t.Run("max_open_conns_below_max_idle_conns", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Datastore.MaxOpenConns = 5
		cfg.Datastore.MaxIdleConns = 10

		err := cfg.Verify()
		require.EqualError(t, err, "config 'datastore.maxOpenConns' cannot be lower than 'datastore.maxIdleConns'")
	})

	t.Run("zero_members_per_chunk", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Chunking.MaxMembersPerChunk = 0

		err := cfg.Verify()
		require.EqualError(t, err, "config 'chunking.maxMembersPerChunk' must be at least 1")
	})

	t.Run("non_positive_finalized_run_retention", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Chunking.FinalizedRunRetention = 0

		err := cfg.Verify()
		require.EqualError(t, err, "config 'chunking.finalizedRunRetention' must be positive")
	})

	t.Run("negative_threshold", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Threshold.Remove = -1

		err := cfg.Verify()
		require.EqualError(t, err, "configs 'threshold.add' and 'threshold.remove' cannot be negative")
	})

	t.Run("zero_max_consecutive_violations", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Threshold.MaxConsecutiveViolations = 0

		err := cfg.Verify()
		require.EqualError(t, err, "config 'threshold.maxConsecutiveViolations' must be at least 1")
	})

	t.Run("zero_concurrent_reads", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Crawler.MaxConcurrentReads = 0

		err := cfg.Verify()
		require.EqualError(t, err, "config 'crawler.maxConcurrentReads' must be at least 1")
	})

	t.Run("enabled_cache_needs_limit_and_ttl", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Crawler.Cache.Enabled = true
		require.NoError(t, cfg.Verify())

		cfg.Crawler.Cache.Limit = 0
		require.EqualError(t, cfg.Verify(), "config 'crawler.cache.limit' must be at least 1 when the cache is enabled")

		cfg.Crawler.Cache.Limit = 10
		cfg.Crawler.Cache.TTL = 0
		require.EqualError(t, cfg.Verify(), "config 'crawler.cache.ttl' must be greater than zero when the cache is enabled")
	})

	t.Run("sample_ratio_out_of_range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Trace.SampleRatio = 1.5

		err := cfg.Verify()
		require.EqualError(t, err, "config 'trace.sampleRatio' must be between 0 and 1")
	})
}
