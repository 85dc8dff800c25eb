package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/openfga/membersync/internal/build"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/storage"
	"github.com/openfga/membersync/pkg/storage/sqlcommon"
)

var tracer = otel.Tracer("membersync/pkg/storage/mysql")

// MySQL provides a MySQL based implementation of [storage.SyncDatastore].
type MySQL struct {
	db               *sql.DB
	dbInfo           *sqlcommon.DBInfo
	logger           logger.Logger
	dbStatsCollector prometheus.Collector
	versionReady     bool
}

// Ensures that MySQL implements the SyncDatastore interface.
var _ storage.SyncDatastore = (*MySQL)(nil)

// PrepareDSN overrides the credentials of dsn when username or password are
// set. parseTime is always enabled so timestamp columns scan into time.Time.
func PrepareDSN(uri, username, password string) (string, error) {
	dsnCfg, err := mysql.ParseDSN(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse mysql connection dsn: %w", err)
	}

	if username != "" {
		dsnCfg.User = username
	}
	if password != "" {
		dsnCfg.Passwd = password
	}
	dsnCfg.ParseTime = true

	return dsnCfg.FormatDSN(), nil
}

// New creates a new [MySQL] storage.
func New(uri string, cfg *sqlcommon.Config) (*MySQL, error) {
	uri, err := PrepareDSN(uri, cfg.Username, cfg.Password)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mysql connection: %w", err)
	}

	if cfg.MaxOpenConns != 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns != 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.ConnMaxIdleTime != 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if cfg.ConnMaxLifetime != 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 1 * time.Minute
	attempt := 1
	err = backoff.Retry(func() error {
		err = db.PingContext(context.Background())
		if err != nil {
			cfg.Logger.Info("waiting for mysql", zap.Int("attempt", attempt))
			attempt++
			return err
		}
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mysql connection: %w", err)
	}

	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, build.ProjectName)
		if err := prometheus.Register(collector); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	stbl := sq.StatementBuilder.RunWith(db)

	return &MySQL{
		db: db,
		dbInfo: sqlcommon.NewDBInfo(db, stbl, sqlcommon.HandleSQLError, "mysql",
			sqlcommon.WithInsertIgnore(sqlcommon.InsertIgnore),
		),
		logger:           cfg.Logger,
		dbStatsCollector: collector,
	}, nil
}

// Close closes the datastore and cleans up any residual resources.
func (m *MySQL) Close() {
	if m.dbStatsCollector != nil {
		prometheus.Unregister(m.dbStatsCollector)
	}
	m.db.Close()
}

// AddCompletedPart see [storage.PartStateStore].AddCompletedPart.
func (m *MySQL) AddCompletedPart(ctx context.Context, runID, partID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "mysql.AddCompletedPart")
	defer span.End()

	return sqlcommon.AddCompletedPart(ctx, m.dbInfo, runID, partID)
}

// SetTotalParts see [storage.PartStateStore].SetTotalParts.
func (m *MySQL) SetTotalParts(ctx context.Context, runID string, total int) error {
	ctx, span := tracer.Start(ctx, "mysql.SetTotalParts")
	defer span.End()

	return sqlcommon.SetTotalParts(ctx, m.dbInfo, runID, total)
}

// ReadPartState see [storage.PartStateStore].ReadPartState.
func (m *MySQL) ReadPartState(ctx context.Context, runID string) (*storage.PartState, error) {
	ctx, span := tracer.Start(ctx, "mysql.ReadPartState")
	defer span.End()

	return sqlcommon.ReadPartState(ctx, m.dbInfo, runID)
}

// DeletePartState see [storage.PartStateStore].DeletePartState.
func (m *MySQL) DeletePartState(ctx context.Context, runID string) error {
	ctx, span := tracer.Start(ctx, "mysql.DeletePartState")
	defer span.End()

	return sqlcommon.DeletePartState(ctx, m.dbInfo, runID)
}

// FinalizeRun see [storage.PartStateStore].FinalizeRun.
func (m *MySQL) FinalizeRun(ctx context.Context, runID string) error {
	ctx, span := tracer.Start(ctx, "mysql.FinalizeRun")
	defer span.End()

	return sqlcommon.FinalizeRun(ctx, m.dbInfo, runID)
}

// IsRunFinalized see [storage.PartStateStore].IsRunFinalized.
func (m *MySQL) IsRunFinalized(ctx context.Context, runID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "mysql.IsRunFinalized")
	defer span.End()

	return sqlcommon.IsRunFinalized(ctx, m.dbInfo, runID)
}

// PurgeFinalizedRuns see [storage.PartStateStore].PurgeFinalizedRuns.
func (m *MySQL) PurgeFinalizedRuns(ctx context.Context, before time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "mysql.PurgeFinalizedRuns")
	defer span.End()

	return sqlcommon.PurgeFinalizedRuns(ctx, m.dbInfo, before)
}

// WriteChunk see [storage.ChunkStore].WriteChunk.
func (m *MySQL) WriteChunk(ctx context.Context, runID, partID string, payload []byte) error {
	ctx, span := tracer.Start(ctx, "mysql.WriteChunk")
	defer span.End()

	return sqlcommon.WriteChunk(ctx, m.dbInfo, runID, partID, payload)
}

// ReadChunks see [storage.ChunkStore].ReadChunks.
func (m *MySQL) ReadChunks(ctx context.Context, runID string) ([][]byte, error) {
	ctx, span := tracer.Start(ctx, "mysql.ReadChunks")
	defer span.End()

	return sqlcommon.ReadChunks(ctx, m.dbInfo, runID)
}

// DeleteChunks see [storage.ChunkStore].DeleteChunks.
func (m *MySQL) DeleteChunks(ctx context.Context, runID string) error {
	ctx, span := tracer.Start(ctx, "mysql.DeleteChunks")
	defer span.End()

	return sqlcommon.DeleteChunks(ctx, m.dbInfo, runID)
}

// ReadJob see [storage.JobStore].ReadJob.
func (m *MySQL) ReadJob(ctx context.Context, jobID string) (*storage.JobRecord, error) {
	ctx, span := tracer.Start(ctx, "mysql.ReadJob")
	defer span.End()

	return sqlcommon.ReadJob(ctx, m.dbInfo, jobID)
}

// IncrementViolations see [storage.JobStore].IncrementViolations.
func (m *MySQL) IncrementViolations(ctx context.Context, jobID string) (int, error) {
	ctx, span := tracer.Start(ctx, "mysql.IncrementViolations")
	defer span.End()

	return sqlcommon.IncrementViolations(ctx, m.dbInfo, jobID)
}

// ResetViolations see [storage.JobStore].ResetViolations.
func (m *MySQL) ResetViolations(ctx context.Context, jobID string) error {
	ctx, span := tracer.Start(ctx, "mysql.ResetViolations")
	defer span.End()

	return sqlcommon.ResetViolations(ctx, m.dbInfo, jobID)
}

// SetJobStatus see [storage.JobStore].SetJobStatus.
func (m *MySQL) SetJobStatus(ctx context.Context, jobID string, status storage.JobStatus) error {
	ctx, span := tracer.Start(ctx, "mysql.SetJobStatus")
	defer span.End()

	return sqlcommon.SetJobStatus(ctx, m.dbInfo, jobID, status)
}

// IsReady see [sqlcommon.IsReady].
func (m *MySQL) IsReady(ctx context.Context) (storage.ReadinessStatus, error) {
	versionReady, err := sqlcommon.IsReady(ctx, m.versionReady, m.db)
	if err != nil {
		return versionReady, err
	}
	m.versionReady = versionReady.IsReady
	return versionReady, nil
}
