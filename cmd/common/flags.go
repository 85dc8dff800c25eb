// Package common holds the configuration plumbing shared by membersync commands.
package common

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/openfga/membersync/cmd/util"
	"github.com/openfga/membersync/internal/config"
)

type flagBinding struct {
	flag string
	key  string
	envs []string
}

// bindings maps every config flag to its viper key and environment variables.
var bindings = []flagBinding{
	{"log-format", "log.format", []string{"MEMBERSYNC_LOG_FORMAT"}},
	{"log-level", "log.level", []string{"MEMBERSYNC_LOG_LEVEL"}},
	{"log-timestamp-format", "log.timestampFormat", []string{"MEMBERSYNC_LOG_TIMESTAMP_FORMAT", "MEMBERSYNC_LOG_TIMESTAMPFORMAT"}},

	{"datastore-engine", "datastore.engine", []string{"MEMBERSYNC_DATASTORE_ENGINE"}},
	{"datastore-uri", "datastore.uri", []string{"MEMBERSYNC_DATASTORE_URI"}},
	{"datastore-username", "datastore.username", []string{"MEMBERSYNC_DATASTORE_USERNAME"}},
	{"datastore-password", "datastore.password", []string{"MEMBERSYNC_DATASTORE_PASSWORD"}},
	{"datastore-max-open-conns", "datastore.maxOpenConns", []string{"MEMBERSYNC_DATASTORE_MAX_OPEN_CONNS", "MEMBERSYNC_DATASTORE_MAXOPENCONNS"}},
	{"datastore-max-idle-conns", "datastore.maxIdleConns", []string{"MEMBERSYNC_DATASTORE_MAX_IDLE_CONNS", "MEMBERSYNC_DATASTORE_MAXIDLECONNS"}},
	{"datastore-conn-max-idle-time", "datastore.connMaxIdleTime", []string{"MEMBERSYNC_DATASTORE_CONN_MAX_IDLE_TIME", "MEMBERSYNC_DATASTORE_CONNMAXIDLETIME"}},
	{"datastore-conn-max-lifetime", "datastore.connMaxLifetime", []string{"MEMBERSYNC_DATASTORE_CONN_MAX_LIFETIME", "MEMBERSYNC_DATASTORE_CONNMAXLIFETIME"}},
	{"datastore-metrics-enabled", "datastore.metrics.enabled", []string{"MEMBERSYNC_DATASTORE_METRICS_ENABLED"}},

	{"chunking-max-members-per-chunk", "chunking.maxMembersPerChunk", []string{"MEMBERSYNC_CHUNKING_MAX_MEMBERS_PER_CHUNK", "MEMBERSYNC_CHUNKING_MAXMEMBERSPERCHUNK"}},
	{"chunking-finalized-run-retention", "chunking.finalizedRunRetention", []string{"MEMBERSYNC_CHUNKING_FINALIZED_RUN_RETENTION", "MEMBERSYNC_CHUNKING_FINALIZEDRUNRETENTION"}},

	{"threshold-add", "threshold.add", []string{"MEMBERSYNC_THRESHOLD_ADD"}},
	{"threshold-remove", "threshold.remove", []string{"MEMBERSYNC_THRESHOLD_REMOVE"}},
	{"threshold-max-consecutive-violations", "threshold.maxConsecutiveViolations", []string{"MEMBERSYNC_THRESHOLD_MAX_CONSECUTIVE_VIOLATIONS", "MEMBERSYNC_THRESHOLD_MAXCONSECUTIVEVIOLATIONS"}},
	{"threshold-dry-run", "threshold.dryRun", []string{"MEMBERSYNC_THRESHOLD_DRY_RUN", "MEMBERSYNC_THRESHOLD_DRYRUN"}},

	{"crawler-max-concurrent-reads", "crawler.maxConcurrentReads", []string{"MEMBERSYNC_CRAWLER_MAX_CONCURRENT_READS", "MEMBERSYNC_CRAWLER_MAXCONCURRENTREADS"}},
	{"crawler-cache-enabled", "crawler.cache.enabled", []string{"MEMBERSYNC_CRAWLER_CACHE_ENABLED"}},
	{"crawler-cache-limit", "crawler.cache.limit", []string{"MEMBERSYNC_CRAWLER_CACHE_LIMIT"}},
	{"crawler-cache-ttl", "crawler.cache.ttl", []string{"MEMBERSYNC_CRAWLER_CACHE_TTL"}},

	{"metrics-enabled", "metrics.enabled", []string{"MEMBERSYNC_METRICS_ENABLED"}},
	{"metrics-addr", "metrics.addr", []string{"MEMBERSYNC_METRICS_ADDR"}},

	{"trace-enabled", "trace.enabled", []string{"MEMBERSYNC_TRACE_ENABLED"}},
	{"trace-otlp-endpoint", "trace.otlp.endpoint", []string{"MEMBERSYNC_TRACE_OTLP_ENDPOINT"}},
	{"trace-otlp-tls-enabled", "trace.otlp.tls.enabled", []string{"MEMBERSYNC_TRACE_OTLP_TLS_ENABLED"}},
	{"trace-sample-ratio", "trace.sampleRatio", []string{"MEMBERSYNC_TRACE_SAMPLE_RATIO"}},
	{"trace-service-name", "trace.serviceName", []string{"MEMBERSYNC_TRACE_SERVICE_NAME"}},
}

func AddLogFlags(flags *pflag.FlagSet) {
	defaultConfig := config.DefaultConfig()

	flags.String("log-format", defaultConfig.Log.Format, "the log format to output logs in")
	flags.String("log-level", defaultConfig.Log.Level, "the log level to use")
	flags.String("log-timestamp-format", defaultConfig.Log.TimestampFormat, "the timestamp format to use for log messages")
}

func AddDatastoreFlags(flags *pflag.FlagSet) {
	defaultConfig := config.DefaultConfig()

	flags.String("datastore-engine", defaultConfig.Datastore.Engine, "the datastore engine that will be used for persistence")
	flags.String("datastore-uri", defaultConfig.Datastore.URI, "the connection uri to use to connect to the datastore (for any engine other than 'memory')")
	flags.String("datastore-username", "", "the connection username to use to connect to the datastore (overwrites any username provided in the connection uri)")
	flags.String("datastore-password", "", "the connection password to use to connect to the datastore (overwrites any password provided in the connection uri)")
	flags.Int("datastore-max-open-conns", defaultConfig.Datastore.MaxOpenConns, "the maximum number of open connections to the datastore")
	flags.Int("datastore-max-idle-conns", defaultConfig.Datastore.MaxIdleConns, "the maximum number of connections to the datastore in the idle connection pool")
	flags.Duration("datastore-conn-max-idle-time", defaultConfig.Datastore.ConnMaxIdleTime, "the maximum amount of time a connection to the datastore may be idle")
	flags.Duration("datastore-conn-max-lifetime", defaultConfig.Datastore.ConnMaxLifetime, "the maximum amount of time a connection to the datastore may be reused")
	flags.Bool("datastore-metrics-enabled", defaultConfig.Datastore.Metrics.Enabled, "enable/disable sql metrics")
}

func AddSyncFlags(flags *pflag.FlagSet) {
	defaultConfig := config.DefaultConfig()

	flags.Int("chunking-max-members-per-chunk", defaultConfig.Chunking.MaxMembersPerChunk, "the maximum number of members in one published part")
	flags.Duration("chunking-finalized-run-retention", defaultConfig.Chunking.FinalizedRunRetention, "how long reconciled runs are remembered so late parts of them are dropped")
	flags.Float64("threshold-add", defaultConfig.Threshold.Add, "the largest allowed addition, in percent of the current membership")
	flags.Float64("threshold-remove", defaultConfig.Threshold.Remove, "the largest allowed removal, in percent of the current membership")
	flags.Int("threshold-max-consecutive-violations", defaultConfig.Threshold.MaxConsecutiveViolations, "the number of consecutive threshold violations after which a job is disabled")
	flags.Bool("threshold-dry-run", defaultConfig.Threshold.DryRun, "compute and report deltas without applying them")
}

func AddCrawlerFlags(flags *pflag.FlagSet) {
	defaultConfig := config.DefaultConfig()

	flags.Int("crawler-max-concurrent-reads", defaultConfig.Crawler.MaxConcurrentReads, "the maximum number of concurrent group directory reads during one crawl")
	flags.Bool("crawler-cache-enabled", defaultConfig.Crawler.Cache.Enabled, "enable/disable caching of group directory reads")
	flags.Int("crawler-cache-limit", defaultConfig.Crawler.Cache.Limit, "the maximum number of groups kept in the directory cache")
	flags.Duration("crawler-cache-ttl", defaultConfig.Crawler.Cache.TTL, "how long a cached group stays valid")
}

func AddObservabilityFlags(flags *pflag.FlagSet) {
	defaultConfig := config.DefaultConfig()

	flags.Bool("metrics-enabled", defaultConfig.Metrics.Enabled, "enable/disable prometheus metrics on the '/metrics' endpoint")
	flags.String("metrics-addr", defaultConfig.Metrics.Addr, "the host:port address to serve the prometheus metrics server on")
	flags.Bool("trace-enabled", defaultConfig.Trace.Enabled, "enable tracing")
	flags.String("trace-otlp-endpoint", defaultConfig.Trace.OTLP.Endpoint, "the endpoint of the trace collector")
	flags.Bool("trace-otlp-tls-enabled", defaultConfig.Trace.OTLP.TLS.Enabled, "use TLS connection for trace collector")
	flags.Float64("trace-sample-ratio", defaultConfig.Trace.SampleRatio, "the fraction of traces to sample. 1 means all, 0 means none.")
	flags.String("trace-service-name", defaultConfig.Trace.ServiceName, "the service name included in sampled traces")
}

// BindConfigFlags binds the config flags registered on command to their viper
// keys and environment variables. Commands call it from PreRun so that only
// the running command owns the bindings.
func BindConfigFlags(command *cobra.Command, _ []string) {
	flags := command.Flags()
	for _, b := range bindings {
		flag := flags.Lookup(b.flag)
		if flag == nil {
			continue
		}
		util.MustBindPFlag(b.key, flag)
		util.MustBindEnv(append([]string{b.key}, b.envs...)...)
	}
}
