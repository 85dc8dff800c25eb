// Package migrate applies the embedded SQL schema migrations to a datastore.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/openfga/membersync/assets"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/storage"
	"github.com/openfga/membersync/pkg/storage/mysql"
	"github.com/openfga/membersync/pkg/storage/postgres"
	"github.com/openfga/membersync/pkg/storage/sqlite"
)

const defaultTimeout = 10 * time.Second

// MigrationConfig contains the configuration needed for running migrations.
type MigrationConfig = storage.MigrationConfig

// GooseProvider implements [storage.MigrationProvider] on top of the goose
// migrations embedded in [assets.EmbedMigrations].
type GooseProvider struct {
	engine     string
	driver     string
	dialect    goose.Dialect
	dir        string
	prepareURI func(MigrationConfig) (string, error)
	logger     logger.Logger
}

var _ storage.MigrationProvider = (*GooseProvider)(nil)

// NewSQLiteProvider returns the provider for the "sqlite" engine.
func NewSQLiteProvider(l logger.Logger) *GooseProvider {
	return &GooseProvider{
		engine:  "sqlite",
		driver:  "sqlite",
		dialect: goose.DialectSQLite3,
		dir:     assets.SqliteMigrationDir,
		prepareURI: func(cfg MigrationConfig) (string, error) {
			return sqlite.PrepareDSN(cfg.URI)
		},
		logger: l,
	}
}

// NewPostgresProvider returns the provider for the "postgres" engine.
func NewPostgresProvider(l logger.Logger) *GooseProvider {
	return &GooseProvider{
		engine:  "postgres",
		driver:  "pgx",
		dialect: goose.DialectPostgres,
		dir:     assets.PostgresMigrationDir,
		prepareURI: func(cfg MigrationConfig) (string, error) {
			return postgres.PrepareURI(cfg.URI, cfg.Username, cfg.Password)
		},
		logger: l,
	}
}

// NewMySQLProvider returns the provider for the "mysql" engine.
func NewMySQLProvider(l logger.Logger) *GooseProvider {
	return &GooseProvider{
		engine:  "mysql",
		driver:  "mysql",
		dialect: goose.DialectMySQL,
		dir:     assets.MySQLMigrationDir,
		prepareURI: func(cfg MigrationConfig) (string, error) {
			return mysql.PrepareDSN(cfg.URI, cfg.Username, cfg.Password)
		},
		logger: l,
	}
}

// GetSupportedEngine see [storage.MigrationProvider].GetSupportedEngine.
func (p *GooseProvider) GetSupportedEngine() string {
	return p.engine
}

func (p *GooseProvider) open(ctx context.Context, cfg MigrationConfig) (*sql.DB, *goose.Provider, error) {
	uri, err := p.prepareURI(cfg)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(p.driver, uri)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s connection: %w", p.engine, err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.Timeout
	if policy.MaxElapsedTime == 0 {
		policy.MaxElapsedTime = defaultTimeout
	}
	attempt := 1
	err = backoff.Retry(func() error {
		err := db.PingContext(ctx)
		if err != nil {
			p.logger.Info("waiting for database", zap.String("engine", p.engine), zap.Int("attempt", attempt))
			attempt++
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize %s connection: %w", p.engine, err)
	}

	migrations, err := fs.Sub(assets.EmbedMigrations, p.dir)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	provider, err := goose.NewProvider(p.dialect, db, migrations,
		goose.WithVerbose(cfg.Verbose),
	)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to load %s migrations: %w", p.engine, err)
	}

	return db, provider, nil
}

// GetCurrentVersion see [storage.MigrationProvider].GetCurrentVersion.
func (p *GooseProvider) GetCurrentVersion(ctx context.Context, cfg MigrationConfig) (int64, error) {
	db, provider, err := p.open(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	return provider.GetDBVersion(ctx)
}

// RunMigrations see [storage.MigrationProvider].RunMigrations.
func (p *GooseProvider) RunMigrations(ctx context.Context, cfg MigrationConfig) error {
	db, provider, err := p.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	currentVersion, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get %s db version: %w", p.engine, err)
	}

	fields := []zap.Field{zap.String("engine", p.engine), zap.Int64("current_version", currentVersion)}

	if cfg.TargetVersion == 0 {
		p.logger.Info("running all migrations", fields...)
		if _, err := provider.Up(ctx); err != nil {
			return fmt.Errorf("failed to run %s migrations: %w", p.engine, err)
		}
		p.logger.Info("migration done", fields...)
		return nil
	}

	target := int64(cfg.TargetVersion)
	p.logger.Info("migrating", append(fields, zap.Int64("target_version", target))...)

	switch {
	case target < currentVersion:
		if _, err := provider.DownTo(ctx, target); err != nil {
			return fmt.Errorf("failed to run %s migrations down to %v: %w", p.engine, target, err)
		}
	case target > currentVersion:
		if _, err := provider.UpTo(ctx, target); err != nil {
			return fmt.Errorf("failed to run %s migrations up to %v: %w", p.engine, target, err)
		}
	default:
		p.logger.Info("nothing to do", fields...)
		return nil
	}

	p.logger.Info("migration done", fields...)
	return nil
}

var (
	defaultRegistry *storage.MigratorRegistry
	registryOnce    sync.Once
)

// GetDefaultRegistry returns the registry with the built-in providers.
func GetDefaultRegistry() *storage.MigratorRegistry {
	registryOnce.Do(func() {
		defaultRegistry = NewRegistry(logger.NewNoopLogger())
	})
	return defaultRegistry
}

// NewRegistry returns a registry with the built-in providers logging to l.
func NewRegistry(l logger.Logger) *storage.MigratorRegistry {
	registry := storage.NewMigratorRegistry()
	registry.RegisterProvider("postgres", NewPostgresProvider(l))
	registry.RegisterProvider("mysql", NewMySQLProvider(l))
	registry.RegisterProvider("sqlite", NewSQLiteProvider(l))
	return registry
}

// RunMigrationsWithRegistry runs migrations using a specific migration registry.
func RunMigrationsWithRegistry(ctx context.Context, registry *storage.MigratorRegistry, cfg MigrationConfig) error {
	if cfg.Engine == "memory" {
		return nil
	}

	provider, exists := registry.GetProvider(cfg.Engine)
	if !exists {
		return fmt.Errorf("no migration provider registered for engine: %s (supported: %s)",
			cfg.Engine, strings.Join(registry.GetSupportedEngines(), ", "))
	}

	return provider.RunMigrations(ctx, cfg)
}

// RunMigrations runs the migrations for the given config using the default registry.
func RunMigrations(ctx context.Context, cfg MigrationConfig) error {
	return RunMigrationsWithRegistry(ctx, GetDefaultRegistry(), cfg)
}
