package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/openfga/membersync/internal/build"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/storage"
	"github.com/openfga/membersync/pkg/storage/sqlcommon"
)

var tracer = otel.Tracer("membersync/pkg/storage/sqlite")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sqlite."+name)
}

// Datastore provides a SQLite based implementation of [storage.SyncDatastore].
type Datastore struct {
	db               *sql.DB
	dbInfo           *sqlcommon.DBInfo
	logger           logger.Logger
	dbStatsCollector prometheus.Collector
	versionReady     bool
}

// Ensures that SQLite implements the SyncDatastore interface.
var _ storage.SyncDatastore = (*Datastore)(nil)

// PrepareDSN prepares a raw DSN from config for use with SQLite, specifying
// defaults for journal mode and busy timeout.
func PrepareDSN(uri string) (string, error) {
	query := url.Values{}
	var err error

	if i := strings.Index(uri, "?"); i != -1 {
		query, err = url.ParseQuery(uri[i+1:])
		if err != nil {
			return uri, fmt.Errorf("error parsing dsn: %w", err)
		}

		uri = uri[:i]
	}

	foundJournalMode := false
	foundBusyTimeout := false
	for _, val := range query["_pragma"] {
		if strings.HasPrefix(val, "journal_mode") {
			foundJournalMode = true
		} else if strings.HasPrefix(val, "busy_timeout") {
			foundBusyTimeout = true
		}
	}

	if !foundJournalMode {
		query.Add("_pragma", "journal_mode(WAL)")
	}
	if !foundBusyTimeout {
		query.Add("_pragma", "busy_timeout(100)")
	}

	// Set transaction mode to immediate if not specified
	if !query.Has("_txlock") {
		query.Set("_txlock", "immediate")
	}

	uri += "?" + query.Encode()

	return uri, nil
}

// New creates a new [Datastore] storage.
func New(uri string, cfg *sqlcommon.Config) (*Datastore, error) {
	uri, err := PrepareDSN(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite connection: %w", err)
	}

	if cfg.MaxOpenConns != 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, build.ProjectName)
		if err := prometheus.Register(collector); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	stbl := sq.StatementBuilder.RunWith(db)
	dbInfo := sqlcommon.NewDBInfo(db, stbl, HandleSQLError, "sqlite",
		sqlcommon.WithInsertIgnore(sqlcommon.OnConflictDoNothing),
		sqlcommon.WithRetry(busyRetry),
	)

	return &Datastore{
		db:               db,
		dbInfo:           dbInfo,
		logger:           cfg.Logger,
		dbStatsCollector: collector,
		versionReady:     false,
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

// HandleSQLError processes an SQL error and converts it into a more
// specific error type based on the nature of the SQL error.
func HandleSQLError(err error, _ ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	if errors.Is(err, context.Canceled) {
		return storage.ErrCancelled
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code()&0xFF == sqlite3.SQLITE_CONSTRAINT {
			return storage.ErrCollision
		}
	}

	return fmt.Errorf("sql error: %w", err)
}

// SQLite will return an SQLITE_BUSY error when the database is locked rather than waiting for the lock.
// This function retries the operation up to maxRetries times before returning the error.
func busyRetry(fn func() error) error {
	const maxRetries = 10
	for retries := 0; ; retries++ {
		err := fn()
		if err == nil {
			return nil
		}

		if isBusyError(err) {
			if retries < maxRetries {
				continue
			}

			return fmt.Errorf("sqlite busy error after %d retries: %w", maxRetries, err)
		}

		return err
	}
}

var busyErrors = map[int]struct{}{
	sqlite3.SQLITE_BUSY_RECOVERY:      {},
	sqlite3.SQLITE_BUSY_SNAPSHOT:      {},
	sqlite3.SQLITE_BUSY_TIMEOUT:       {},
	sqlite3.SQLITE_BUSY:               {},
	sqlite3.SQLITE_LOCKED_SHAREDCACHE: {},
	sqlite3.SQLITE_LOCKED:             {},
}

func isBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	_, ok := busyErrors[sqliteErr.Code()]
	return ok
}
