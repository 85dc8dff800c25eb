// Package config contains the configuration of membersync commands.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/openfga/membersync/pkg/crawler"
	"github.com/openfga/membersync/pkg/delta"
	"github.com/openfga/membersync/pkg/directory"
	"github.com/openfga/membersync/pkg/membership"
)

const (
	DefaultDatastoreEngine       = "memory"
	DefaultThresholdPercentage   = 100
	DefaultFinalizedRunRetention = 7 * 24 * time.Hour
)

var (
	logFormats          = []string{"text", "json"}
	logLevels           = []string{"none", "debug", "info", "warn", "error", "panic", "fatal"}
	logTimestampFormats = []string{"Unix", "ISO8601"}
	datastoreEngines    = []string{"memory", "sqlite", "postgres", "mysql"}
)

// LogConfig defines log settings. For production we recommend the 'json' format.
type LogConfig struct {
	// Format is the log format to use in the log output (e.g. 'text' or 'json')
	Format string

	// Level is the log level to use in the log output (e.g. 'none', 'debug', or 'info')
	Level string

	// Format of the timestamp in the log output (e.g. 'Unix'(default) or 'ISO8601')
	TimestampFormat string
}

// DatastoreMetricsConfig defines settings for database pool metrics.
type DatastoreMetricsConfig struct {
	// Enabled enables export of the Datastore metrics.
	Enabled bool
}

// DatastoreConfig defines where fan-in state, chunk payloads and job state are kept.
type DatastoreConfig struct {
	// Engine is the datastore engine to use (e.g. 'memory', 'sqlite', 'postgres', 'mysql')
	Engine   string
	URI      string
	Username string
	Password string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	Metrics DatastoreMetricsConfig
}

// ChunkingConfig defines how runs are split into parts.
type ChunkingConfig struct {
	// MaxMembersPerChunk bounds the number of members in one part, which keeps
	// an encoded part below the message size limit of the transport.
	MaxMembersPerChunk int

	// FinalizedRunRetention is how long a reconciled run is remembered so that
	// late deliveries of its parts are dropped.
	FinalizedRunRetention time.Duration
}

// ThresholdConfig defines the safety gate applied to every delta.
type ThresholdConfig struct {
	// Add and Remove are the largest allowed changes, in percent of the
	// current membership.
	Add    float64
	Remove float64

	// MaxConsecutiveViolations disables a job once it has violated a threshold
	// this many times in a row.
	MaxConsecutiveViolations int

	DryRun bool
}

// CrawlerCacheConfig defines the cache in front of the group directory.
type CrawlerCacheConfig struct {
	Enabled bool
	Limit   int
	TTL     time.Duration
}

// CrawlerConfig defines settings of the transitive group crawler.
type CrawlerConfig struct {
	// MaxConcurrentReads bounds the number of directory reads in flight during one crawl.
	MaxConcurrentReads int

	Cache CrawlerCacheConfig
}

// MetricConfig defines configurations for serving metrics.
type MetricConfig struct {
	Enabled bool
	Addr    string
}

type TraceConfig struct {
	Enabled     bool
	OTLP        OTLPTraceConfig `mapstructure:"otlp"`
	SampleRatio float64
	ServiceName string
}

type OTLPTraceConfig struct {
	Endpoint string
	TLS      OTLPTraceTLSConfig
}

type OTLPTraceTLSConfig struct {
	Enabled bool
}

type Config struct {
	Log       LogConfig
	Datastore DatastoreConfig
	Chunking  ChunkingConfig
	Threshold ThresholdConfig
	Crawler   CrawlerConfig
	Metrics   MetricConfig
	Trace     TraceConfig
}

// Verify returns an error describing the first invalid setting of cfg.
func (cfg *Config) Verify() error {
	if !slices.Contains(logFormats, cfg.Log.Format) {
		return fmt.Errorf("config 'log.format' must be one of %q", logFormats)
	}

	if !slices.Contains(logLevels, cfg.Log.Level) {
		return fmt.Errorf("config 'log.level' must be one of %q", logLevels)
	}

	if !slices.Contains(logTimestampFormats, cfg.Log.TimestampFormat) {
		return fmt.Errorf("config 'log.timestampFormat' must be one of %q", logTimestampFormats)
	}

	if !slices.Contains(datastoreEngines, cfg.Datastore.Engine) {
		return fmt.Errorf("config 'datastore.engine' must be one of %q", datastoreEngines)
	}

	if cfg.Datastore.Engine != "memory" && cfg.Datastore.URI == "" {
		return fmt.Errorf("config 'datastore.uri' must be set for the '%s' engine", cfg.Datastore.Engine)
	}

	if cfg.Datastore.MaxOpenConns < cfg.Datastore.MaxIdleConns {
		return errors.New("config 'datastore.maxOpenConns' cannot be lower than 'datastore.maxIdleConns'")
	}

	if cfg.Chunking.MaxMembersPerChunk < 1 {
		return errors.New("config 'chunking.maxMembersPerChunk' must be at least 1")
	}

	if cfg.Chunking.FinalizedRunRetention <= 0 {
		return errors.New("config 'chunking.finalizedRunRetention' must be positive")
	}

	if cfg.Threshold.Add < 0 || cfg.Threshold.Remove < 0 {
		return errors.New("configs 'threshold.add' and 'threshold.remove' cannot be negative")
	}

	if cfg.Threshold.MaxConsecutiveViolations < 1 {
		return errors.New("config 'threshold.maxConsecutiveViolations' must be at least 1")
	}

	if cfg.Crawler.MaxConcurrentReads < 1 {
		return errors.New("config 'crawler.maxConcurrentReads' must be at least 1")
	}

	if cfg.Crawler.Cache.Enabled {
		if cfg.Crawler.Cache.Limit < 1 {
			return errors.New("config 'crawler.cache.limit' must be at least 1 when the cache is enabled")
		}
		if cfg.Crawler.Cache.TTL <= 0 {
			return errors.New("config 'crawler.cache.ttl' must be greater than zero when the cache is enabled")
		}
	}

	if cfg.Trace.SampleRatio < 0 || cfg.Trace.SampleRatio > 1 {
		return errors.New("config 'trace.sampleRatio' must be between 0 and 1")
	}

	return nil
}

// DefaultConfig is the membersync configuration before any flag, environment
// variable or config file is applied.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Format:          "text",
			Level:           "info",
			TimestampFormat: "Unix",
		},
		Datastore: DatastoreConfig{
			Engine:          DefaultDatastoreEngine,
			MaxOpenConns:    30,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 0,
			ConnMaxLifetime: 0,
		},
		Chunking: ChunkingConfig{
			MaxMembersPerChunk:    membership.DefaultMaxMembersPerChunk,
			FinalizedRunRetention: DefaultFinalizedRunRetention,
		},
		Threshold: ThresholdConfig{
			Add:                      DefaultThresholdPercentage,
			Remove:                   DefaultThresholdPercentage,
			MaxConsecutiveViolations: delta.DefaultMaxConsecutiveViolations,
		},
		Crawler: CrawlerConfig{
			MaxConcurrentReads: crawler.DefaultMaxConcurrentReads,
			Cache: CrawlerCacheConfig{
				Enabled: false,
				Limit:   directory.DefaultCacheMaxSize,
				TTL:     directory.DefaultCacheTTL,
			},
		},
		Metrics: MetricConfig{
			Enabled: true,
			Addr:    "0.0.0.0:2112",
		},
		Trace: TraceConfig{
			Enabled: false,
			OTLP: OTLPTraceConfig{
				Endpoint: "0.0.0.0:4317",
				TLS: OTLPTraceTLSConfig{
					Enabled: false,
				},
			},
			SampleRatio: 0.2,
			ServiceName: "membersync",
		},
	}
}

// MustDefaultConfig returns DefaultConfig and panics if it does not verify.
func MustDefaultConfig() *Config {
	cfg := DefaultConfig()
	if err := cfg.Verify(); err != nil {
		panic(err)
	}
	return cfg
}
