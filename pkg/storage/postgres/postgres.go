package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/openfga/membersync/internal/build"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/storage"
	"github.com/openfga/membersync/pkg/storage/sqlcommon"
)

var tracer = otel.Tracer("membersync/pkg/storage/postgres")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "postgres."+name)
}

// Datastore provides a PostgreSQL based implementation of [storage.SyncDatastore].
type Datastore struct {
	db               *sql.DB
	dbInfo           *sqlcommon.DBInfo
	logger           logger.Logger
	dbStatsCollector prometheus.Collector
	versionReady     bool
}

// Ensures that Datastore implements the SyncDatastore interface.
var _ storage.SyncDatastore = (*Datastore)(nil)

// PrepareURI overrides the credentials embedded in uri with username and
// password when they are set.
func PrepareURI(uri, username, password string) (string, error) {
	if username == "" && password == "" {
		return uri, nil
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse postgres connection uri: %w", err)
	}

	if username == "" && parsed.User != nil {
		username = parsed.User.Username()
	}

	switch {
	case password != "":
		parsed.User = url.UserPassword(username, password)
	case parsed.User != nil:
		if existing, ok := parsed.User.Password(); ok {
			parsed.User = url.UserPassword(username, existing)
		} else {
			parsed.User = url.User(username)
		}
	default:
		parsed.User = url.User(username)
	}

	return parsed.String(), nil
}

// New creates a new [Datastore] storage.
func New(uri string, cfg *sqlcommon.Config) (*Datastore, error) {
	uri, err := PrepareURI(uri, cfg.Username, cfg.Password)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres connection: %w", err)
	}

	if cfg.MaxIdleConns != 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns) // default is 2, not retaining connections(0) would be detrimental for performance
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return NewWithDB(db, cfg)
}

// NewWithDB creates a new [Datastore] storage with the provided database connection.
func NewWithDB(db *sql.DB, cfg *sqlcommon.Config) (*Datastore, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 1 * time.Minute
	attempt := 1
	err := backoff.Retry(func() error {
		err := db.PingContext(context.Background())
		if err != nil {
			cfg.Logger.Info("waiting for database", zap.Int("attempt", attempt))
			attempt++
			return err
		}
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, build.ProjectName)
		if err := prometheus.Register(collector); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	stbl := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(db)

	return &Datastore{
		db:               db,
		dbInfo:           sqlcommon.NewDBInfo(db, stbl, sqlcommon.HandleSQLError, "postgres"),
		logger:           cfg.Logger,
		dbStatsCollector: collector,
	}, nil
}

// Close see [storage.SyncDatastore].Close.
func (s *Datastore) Close() {
	if s.dbStatsCollector != nil {
		prometheus.Unregister(s.dbStatsCollector)
	}
	s.db.Close()
}

// AddCompletedPart see [storage.PartStateStore].AddCompletedPart.
func (s *Datastore) AddCompletedPart(ctx context.Context, runID, partID string) (bool, error) {
	ctx, span := startTrace(ctx, "AddCompletedPart")
	defer span.End()

	return sqlcommon.AddCompletedPart(ctx, s.dbInfo, runID, partID)
}

// SetTotalParts see [storage.PartStateStore].SetTotalParts.
func (s *Datastore) SetTotalParts(ctx context.Context, runID string, total int) error {
	ctx, span := startTrace(ctx, "SetTotalParts")
	defer span.End()

	return sqlcommon.SetTotalParts(ctx, s.dbInfo, runID, total)
}

// ReadPartState see [storage.PartStateStore].ReadPartState.
func (s *Datastore) ReadPartState(ctx context.Context, runID string) (*storage.PartState, error) {
	ctx, span := startTrace(ctx, "ReadPartState")
	defer span.End()

	return sqlcommon.ReadPartState(ctx, s.dbInfo, runID)
}

// DeletePartState see [storage.PartStateStore].DeletePartState.
func (s *Datastore) DeletePartState(ctx context.Context, runID string) error {
	ctx, span := startTrace(ctx, "DeletePartState")
	defer span.End()

	return sqlcommon.DeletePartState(ctx, s.dbInfo, runID)
}

// FinalizeRun see [storage.PartStateStore].FinalizeRun.
func (s *Datastore) FinalizeRun(ctx context.Context, runID string) error {
	ctx, span := startTrace(ctx, "FinalizeRun")
	defer span.End()

	return sqlcommon.FinalizeRun(ctx, s.dbInfo, runID)
}

// IsRunFinalized see [storage.PartStateStore].IsRunFinalized.
func (s *Datastore) IsRunFinalized(ctx context.Context, runID string) (bool, error) {
	ctx, span := startTrace(ctx, "IsRunFinalized")
	defer span.End()

	return sqlcommon.IsRunFinalized(ctx, s.dbInfo, runID)
}

// PurgeFinalizedRuns see [storage.PartStateStore].PurgeFinalizedRuns.
func (s *Datastore) PurgeFinalizedRuns(ctx context.Context, before time.Time) (int, error) {
	ctx, span := startTrace(ctx, "PurgeFinalizedRuns")
	defer span.End()

	return sqlcommon.PurgeFinalizedRuns(ctx, s.dbInfo, before)
}

// WriteChunk see [storage.ChunkStore].WriteChunk.
func (s *Datastore) WriteChunk(ctx context.Context, runID, partID string, payload []byte) error {
	ctx, span := startTrace(ctx, "WriteChunk")
	defer span.End()

	return sqlcommon.WriteChunk(ctx, s.dbInfo, runID, partID, payload)
}

// ReadChunks see [storage.ChunkStore].ReadChunks.
func (s *Datastore) ReadChunks(ctx context.Context, runID string) ([][]byte, error) {
	ctx, span := startTrace(ctx, "ReadChunks")
	defer span.End()

	return sqlcommon.ReadChunks(ctx, s.dbInfo, runID)
}

// DeleteChunks see [storage.ChunkStore].DeleteChunks.
func (s *Datastore) DeleteChunks(ctx context.Context, runID string) error {
	ctx, span := startTrace(ctx, "DeleteChunks")
	defer span.End()

	return sqlcommon.DeleteChunks(ctx, s.dbInfo, runID)
}

// ReadJob see [storage.JobStore].ReadJob.
func (s *Datastore) ReadJob(ctx context.Context, jobID string) (*storage.JobRecord, error) {
	ctx, span := startTrace(ctx, "ReadJob")
	defer span.End()

	return sqlcommon.ReadJob(ctx, s.dbInfo, jobID)
}

// IncrementViolations see [storage.JobStore].IncrementViolations.
func (s *Datastore) IncrementViolations(ctx context.Context, jobID string) (int, error) {
	ctx, span := startTrace(ctx, "IncrementViolations")
	defer span.End()

	return sqlcommon.IncrementViolations(ctx, s.dbInfo, jobID)
}

// ResetViolations see [storage.JobStore].ResetViolations.
func (s *Datastore) ResetViolations(ctx context.Context, jobID string) error {
	ctx, span := startTrace(ctx, "ResetViolations")
	defer span.End()

	return sqlcommon.ResetViolations(ctx, s.dbInfo, jobID)
}

// SetJobStatus see [storage.JobStore].SetJobStatus.
func (s *Datastore) SetJobStatus(ctx context.Context, jobID string, status storage.JobStatus) error {
	ctx, span := startTrace(ctx, "SetJobStatus")
	defer span.End()

	return sqlcommon.SetJobStatus(ctx, s.dbInfo, jobID, status)
}

// IsReady see [sqlcommon.IsReady].
func (s *Datastore) IsReady(ctx context.Context) (storage.ReadinessStatus, error) {
	versionReady, err := sqlcommon.IsReady(ctx, s.versionReady, s.db)
	if err != nil {
		return versionReady, err
	}
	s.versionReady = versionReady.IsReady
	return versionReady, nil
}
