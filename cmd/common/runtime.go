package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/openfga/membersync/internal/config"
	"github.com/openfga/membersync/pkg/crawler"
	"github.com/openfga/membersync/pkg/directory"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/storage"
	"github.com/openfga/membersync/pkg/storage/memory"
	"github.com/openfga/membersync/pkg/storage/mysql"
	"github.com/openfga/membersync/pkg/storage/postgres"
	"github.com/openfga/membersync/pkg/storage/sqlcommon"
	"github.com/openfga/membersync/pkg/storage/sqlite"
	"github.com/openfga/membersync/pkg/telemetry"
)

// ReadConfig returns the membersync configuration based on the values provided in 'config.yaml',
// flags and environment variables. The 'config.yaml' file is loaded from '/etc/membersync',
// '$HOME/.membersync', or the current working directory. If no configuration file is present,
// the default values are returned.
func ReadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	viper.SetTypeByDefaultValue(true)
	err := viper.ReadInConfig()
	if err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewLogger builds the logger described by the log section of cfg.
func NewLogger(cfg *config.Config) (logger.Logger, error) {
	return logger.NewLogger(cfg.Log.Format, cfg.Log.Level, cfg.Log.TimestampFormat)
}

// NewDatastore opens the datastore selected by cfg.
func NewDatastore(cfg *config.Config, l logger.Logger) (storage.SyncDatastore, error) {
	datastoreOptions := []sqlcommon.DatastoreOption{
		sqlcommon.WithUsername(cfg.Datastore.Username),
		sqlcommon.WithPassword(cfg.Datastore.Password),
		sqlcommon.WithLogger(l),
		sqlcommon.WithMaxOpenConns(cfg.Datastore.MaxOpenConns),
		sqlcommon.WithMaxIdleConns(cfg.Datastore.MaxIdleConns),
		sqlcommon.WithConnMaxIdleTime(cfg.Datastore.ConnMaxIdleTime),
		sqlcommon.WithConnMaxLifetime(cfg.Datastore.ConnMaxLifetime),
	}

	if cfg.Datastore.Metrics.Enabled {
		datastoreOptions = append(datastoreOptions, sqlcommon.WithMetrics())
	}

	dsCfg := sqlcommon.NewConfig(datastoreOptions...)

	switch cfg.Datastore.Engine {
	case "memory":
		return memory.New(), nil
	case "mysql":
		ds, err := mysql.New(cfg.Datastore.URI, dsCfg)
		if err != nil {
			return nil, fmt.Errorf("initialize mysql datastore: %w", err)
		}
		return ds, nil
	case "postgres":
		ds, err := postgres.New(cfg.Datastore.URI, dsCfg)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres datastore: %w", err)
		}
		return ds, nil
	case "sqlite":
		ds, err := sqlite.New(cfg.Datastore.URI, dsCfg)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite datastore: %w", err)
		}
		return ds, nil
	default:
		return nil, fmt.Errorf("storage engine '%s' is unsupported", cfg.Datastore.Engine)
	}
}

// StartTracing installs the tracer provider described by cfg and returns the
// function that flushes and shuts it down.
func StartTracing(cfg *config.Config, l logger.Logger) func() error {
	if !cfg.Trace.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func() error {
			return nil
		}
	}

	l.Info("tracing enabled",
		zap.Float64("sample_ratio", cfg.Trace.SampleRatio),
		zap.String("endpoint", cfg.Trace.OTLP.Endpoint),
		zap.Bool("tls", cfg.Trace.OTLP.TLS.Enabled),
	)

	tp := telemetry.MustNewTracerProvider(
		telemetry.WithOTLPEndpoint(cfg.Trace.OTLP.Endpoint),
		telemetry.WithTLS(cfg.Trace.OTLP.TLS.Enabled),
		telemetry.WithServiceName(cfg.Trace.ServiceName),
		telemetry.WithSamplingRatio(cfg.Trace.SampleRatio),
	)
	return func() error {
		// the batch span processor can take up to 5 seconds to flush
		ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
		defer cancel()
		return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
	}
}

// StartMetricsServer serves prometheus metrics on cfg.Metrics.Addr when
// enabled and returns the function that stops the server.
func StartMetricsServer(cfg *config.Config, l logger.Logger) func(ctx context.Context) error {
	if !cfg.Metrics.Enabled {
		return func(context.Context) error {
			return nil
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		l.Info("starting prometheus metrics server", zap.String("addr", cfg.Metrics.Addr))
		if err := metricsServer.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				l.Error("failed to start prometheus metrics server", zap.Error(err))
			}
		}
		l.Info("metrics server shut down")
	}()

	return metricsServer.Shutdown
}

// NewCrawler builds a crawler over dir, cached when cfg enables the directory
// cache. The returned function releases the cache.
func NewCrawler(cfg *config.Config, dir crawler.GroupDirectory, l logger.Logger, opts ...crawler.CrawlerOption) (*crawler.Crawler, func(), error) {
	closer := func() {}
	if cfg.Crawler.Cache.Enabled {
		cached, err := directory.NewCachedDirectory(dir,
			directory.WithCacheMaxSize(int64(cfg.Crawler.Cache.Limit)),
			directory.WithCacheTTL(cfg.Crawler.Cache.TTL),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize directory cache: %w", err)
		}
		dir = cached
		closer = cached.Close
	}

	opts = append([]crawler.CrawlerOption{
		crawler.WithLogger(l),
		crawler.WithMaxConcurrentReads(cfg.Crawler.MaxConcurrentReads),
	}, opts...)
	c := crawler.NewCrawler(dir, opts...)
	return c, closer, nil
}
