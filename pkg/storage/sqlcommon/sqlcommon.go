package sqlcommon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"
	"go.opentelemetry.io/otel"

	"github.com/openfga/membersync/internal/build"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/storage"
)

var tracer = otel.Tracer("membersync/pkg/storage/sqlcommon")

// Config defines the configuration parameters
// for setting up and managing a sql connection.
type Config struct {
	Username string
	Password string
	Logger   logger.Logger

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	ExportMetrics bool
}

// DatastoreOption defines a function type
// used for configuring a Config object.
type DatastoreOption func(*Config)

// WithUsername returns a DatastoreOption that sets the username in the Config.
func WithUsername(username string) DatastoreOption {
	return func(config *Config) {
		config.Username = username
	}
}

// WithPassword returns a DatastoreOption that sets the password in the Config.
func WithPassword(password string) DatastoreOption {
	return func(config *Config) {
		config.Password = password
	}
}

// WithLogger returns a DatastoreOption that sets the Logger in the Config.
func WithLogger(l logger.Logger) DatastoreOption {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

// WithMaxOpenConns returns a DatastoreOption that sets the
// maximum number of open connections in the Config.
func WithMaxOpenConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxOpenConns = c
	}
}

// WithMaxIdleConns returns a DatastoreOption that sets the
// maximum number of idle connections in the Config.
func WithMaxIdleConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxIdleConns = c
	}
}

// WithConnMaxIdleTime returns a DatastoreOption that sets
// the maximum idle time for a connection in the Config.
func WithConnMaxIdleTime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxIdleTime = d
	}
}

// WithConnMaxLifetime returns a DatastoreOption that sets
// the maximum lifetime for a connection in the Config.
func WithConnMaxLifetime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxLifetime = d
	}
}

// WithMetrics returns a DatastoreOption that
// enables the export of metrics in the Config.
func WithMetrics() DatastoreOption {
	return func(cfg *Config) {
		cfg.ExportMetrics = true
	}
}

// NewConfig creates a new Config instance with default values
// and applies any provided DatastoreOption modifications.
func NewConfig(opts ...DatastoreOption) *Config {
	cfg := &Config{}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}

	return cfg
}

type errorHandlerFn func(error, ...interface{}) error

// DBInfo encapsulates DB information for use in common method.
type DBInfo struct {
	db             *sql.DB
	stbl           sq.StatementBuilderType
	HandleSQLError errorHandlerFn

	insertIgnore func(sq.InsertBuilder) sq.InsertBuilder
	retry        func(func() error) error
	now          func() time.Time
}

// DBInfoOption customizes dialect specific behaviour of a [DBInfo].
type DBInfoOption func(*DBInfo)

// WithInsertIgnore sets how an INSERT is turned into an insert-if-absent.
func WithInsertIgnore(fn func(sq.InsertBuilder) sq.InsertBuilder) DBInfoOption {
	return func(d *DBInfo) {
		d.insertIgnore = fn
	}
}

// WithRetry wraps every statement, including BEGIN and COMMIT.
func WithRetry(fn func(func() error) error) DBInfoOption {
	return func(d *DBInfo) {
		d.retry = fn
	}
}

// WithClock overrides the time source used for timestamp columns.
func WithClock(now func() time.Time) DBInfoOption {
	return func(d *DBInfo) {
		d.now = now
	}
}

// OnConflictDoNothing is the insert-if-absent form of postgres and sqlite.
func OnConflictDoNothing(ib sq.InsertBuilder) sq.InsertBuilder {
	return ib.Suffix("ON CONFLICT DO NOTHING")
}

// InsertIgnore is the insert-if-absent form of mysql.
func InsertIgnore(ib sq.InsertBuilder) sq.InsertBuilder {
	return ib.Options("IGNORE")
}

// NewDBInfo constructs a [DBInfo] object.
func NewDBInfo(db *sql.DB, stbl sq.StatementBuilderType, errorHandler errorHandlerFn, dialect string, opts ...DBInfoOption) *DBInfo {
	if err := goose.SetDialect(dialect); err != nil {
		panic("failed to set database dialect: " + err.Error())
	}

	info := &DBInfo{
		db:             db,
		stbl:           stbl,
		HandleSQLError: errorHandler,
		insertIgnore:   OnConflictDoNothing,
		retry:          func(fn func() error) error { return fn() },
		now:            func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(info)
	}

	return info
}

// HandleSQLError maps postgres and mysql driver errors onto storage errors.
func HandleSQLError(err error, _ ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	if errors.Is(err, context.Canceled) {
		return storage.ErrCancelled
	}

	if strings.Contains(err.Error(), "duplicate key value") {
		return storage.ErrCollision
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return storage.ErrCollision
	}

	return fmt.Errorf("sql error: %w", err)
}

func (d *DBInfo) inTx(ctx context.Context, fn func(txn *sql.Tx) error) error {
	var txn *sql.Tx
	err := d.retry(func() error {
		var err error
		txn, err = d.db.BeginTx(ctx, nil)
		return err
	})
	if err != nil {
		return d.HandleSQLError(err)
	}
	defer func() {
		_ = txn.Rollback()
	}()

	if err := fn(txn); err != nil {
		return err
	}

	if err := d.retry(txn.Commit); err != nil {
		return d.HandleSQLError(err)
	}
	return nil
}

func (d *DBInfo) exec(ctx context.Context, b sq.Sqlizer, runner sq.BaseRunner) (sql.Result, error) {
	var res sql.Result
	err := d.retry(func() error {
		var err error
		switch builder := b.(type) {
		case sq.InsertBuilder:
			res, err = builder.RunWith(runner).ExecContext(ctx)
		case sq.UpdateBuilder:
			res, err = builder.RunWith(runner).ExecContext(ctx)
		case sq.DeleteBuilder:
			res, err = builder.RunWith(runner).ExecContext(ctx)
		default:
			err = fmt.Errorf("unsupported statement %T", b)
		}
		return err
	})
	if err != nil {
		return nil, d.HandleSQLError(err)
	}
	return res, nil
}

func (d *DBInfo) ensureRun(ctx context.Context, txn *sql.Tx, runID string, now time.Time) error {
	_, err := d.exec(ctx, d.insertIgnore(d.stbl.
		Insert("fanin_run").
		Columns("run_id", "created_at", "updated_at").
		Values(runID, now, now)), txn)
	return err
}

// AddCompletedPart see [storage.PartStateStore].AddCompletedPart.
func AddCompletedPart(ctx context.Context, dbInfo *DBInfo, runID, partID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "sqlcommon.AddCompletedPart")
	defer span.End()

	var added bool
	err := dbInfo.inTx(ctx, func(txn *sql.Tx) error {
		now := dbInfo.now()
		if err := dbInfo.ensureRun(ctx, txn, runID, now); err != nil {
			return err
		}

		res, err := dbInfo.exec(ctx, dbInfo.insertIgnore(dbInfo.stbl.
			Insert("fanin_part").
			Columns("run_id", "part_id", "inserted_at").
			Values(runID, partID, now)), txn)
		if err != nil {
			return err
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return dbInfo.HandleSQLError(err)
		}
		added = rows == 1

		_, err = dbInfo.exec(ctx, dbInfo.stbl.
			Update("fanin_run").
			Set("updated_at", now).
			Where(sq.Eq{"run_id": runID}), txn)
		return err
	})
	if err != nil {
		return false, err
	}

	return added, nil
}

// SetTotalParts see [storage.PartStateStore].SetTotalParts.
func SetTotalParts(ctx context.Context, dbInfo *DBInfo, runID string, total int) error {
	ctx, span := tracer.Start(ctx, "sqlcommon.SetTotalParts")
	defer span.End()

	if err := storage.ValidateTotalParts(total); err != nil {
		return err
	}

	return dbInfo.inTx(ctx, func(txn *sql.Tx) error {
		now := dbInfo.now()
		if err := dbInfo.ensureRun(ctx, txn, runID, now); err != nil {
			return err
		}

		_, err := dbInfo.exec(ctx, dbInfo.stbl.
			Update("fanin_run").
			Set("total_parts", total).
			Set("updated_at", now).
			Where(sq.Eq{"run_id": runID, "total_parts": nil}), txn)
		if err != nil {
			return err
		}

		var stored sql.NullInt64
		err = dbInfo.retry(func() error {
			return dbInfo.stbl.
				Select("total_parts").
				From("fanin_run").
				Where(sq.Eq{"run_id": runID}).
				RunWith(txn).
				QueryRowContext(ctx).
				Scan(&stored)
		})
		if err != nil {
			return dbInfo.HandleSQLError(err)
		}

		if stored.Valid && int(stored.Int64) != total {
			return storage.ConflictingTotalPartsError(runID, int(stored.Int64), total)
		}
		return nil
	})
}

// ReadPartState see [storage.PartStateStore].ReadPartState.
func ReadPartState(ctx context.Context, dbInfo *DBInfo, runID string) (*storage.PartState, error) {
	ctx, span := tracer.Start(ctx, "sqlcommon.ReadPartState")
	defer span.End()

	var (
		total     sql.NullInt64
		updatedAt time.Time
		completed int
	)

	err := dbInfo.stbl.
		Select("total_parts", "updated_at").
		From("fanin_run").
		Where(sq.Eq{"run_id": runID}).
		QueryRowContext(ctx).
		Scan(&total, &updatedAt)
	if err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}

	err = dbInfo.stbl.
		Select("COUNT(*)").
		From("fanin_part").
		Where(sq.Eq{"run_id": runID}).
		QueryRowContext(ctx).
		Scan(&completed)
	if err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}

	state := &storage.PartState{
		RunID:          runID,
		CompletedParts: completed,
		UpdatedAt:      updatedAt,
	}
	if total.Valid {
		t := int(total.Int64)
		state.TotalParts = &t
	}
	return state, nil
}

// DeletePartState see [storage.PartStateStore].DeletePartState.
func DeletePartState(ctx context.Context, dbInfo *DBInfo, runID string) error {
	ctx, span := tracer.Start(ctx, "sqlcommon.DeletePartState")
	defer span.End()

	return dbInfo.inTx(ctx, func(txn *sql.Tx) error {
		if _, err := dbInfo.exec(ctx, dbInfo.stbl.Delete("fanin_part").Where(sq.Eq{"run_id": runID}), txn); err != nil {
			return err
		}
		_, err := dbInfo.exec(ctx, dbInfo.stbl.Delete("fanin_run").Where(sq.Eq{"run_id": runID}), txn)
		return err
	})
}

// FinalizeRun see [storage.PartStateStore].FinalizeRun.
func FinalizeRun(ctx context.Context, dbInfo *DBInfo, runID string) error {
	ctx, span := tracer.Start(ctx, "sqlcommon.FinalizeRun")
	defer span.End()

	return dbInfo.inTx(ctx, func(txn *sql.Tx) error {
		_, err := dbInfo.exec(ctx, dbInfo.insertIgnore(dbInfo.stbl.
			Insert("fanin_finalized_run").
			Columns("run_id", "finalized_at").
			Values(runID, dbInfo.now())), txn)
		if err != nil {
			return err
		}
		if _, err := dbInfo.exec(ctx, dbInfo.stbl.Delete("fanin_part").Where(sq.Eq{"run_id": runID}), txn); err != nil {
			return err
		}
		_, err = dbInfo.exec(ctx, dbInfo.stbl.Delete("fanin_run").Where(sq.Eq{"run_id": runID}), txn)
		return err
	})
}

// IsRunFinalized see [storage.PartStateStore].IsRunFinalized.
func IsRunFinalized(ctx context.Context, dbInfo *DBInfo, runID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "sqlcommon.IsRunFinalized")
	defer span.End()

	var found int
	err := dbInfo.stbl.
		Select("1").
		From("fanin_finalized_run").
		Where(sq.Eq{"run_id": runID}).
		QueryRowContext(ctx).
		Scan(&found)
	if err != nil {
		err = dbInfo.HandleSQLError(err)
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PurgeFinalizedRuns see [storage.PartStateStore].PurgeFinalizedRuns.
func PurgeFinalizedRuns(ctx context.Context, dbInfo *DBInfo, before time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "sqlcommon.PurgeFinalizedRuns")
	defer span.End()

	res, err := dbInfo.exec(ctx, dbInfo.stbl.
		Delete("fanin_finalized_run").
		Where(sq.Lt{"finalized_at": before.UTC()}), dbInfo.db)
	if err != nil {
		return 0, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, dbInfo.HandleSQLError(err)
	}
	return int(rows), nil
}

// WriteChunk see [storage.ChunkStore].WriteChunk.
func WriteChunk(ctx context.Context, dbInfo *DBInfo, runID, partID string, payload []byte) error {
	ctx, span := tracer.Start(ctx, "sqlcommon.WriteChunk")
	defer span.End()

	_, err := dbInfo.exec(ctx, dbInfo.insertIgnore(dbInfo.stbl.
		Insert("fanin_chunk").
		Columns("run_id", "part_id", "payload", "inserted_at").
		Values(runID, partID, payload, dbInfo.now())), dbInfo.db)
	return err
}

// ReadChunks see [storage.ChunkStore].ReadChunks.
func ReadChunks(ctx context.Context, dbInfo *DBInfo, runID string) ([][]byte, error) {
	ctx, span := tracer.Start(ctx, "sqlcommon.ReadChunks")
	defer span.End()

	rows, err := dbInfo.stbl.
		Select("payload").
		From("fanin_chunk").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("part_id").
		QueryContext(ctx)
	if err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, dbInfo.HandleSQLError(err)
		}
		payloads = append(payloads, payload)
	}

	if err := rows.Err(); err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}

	return payloads, nil
}

// DeleteChunks see [storage.ChunkStore].DeleteChunks.
func DeleteChunks(ctx context.Context, dbInfo *DBInfo, runID string) error {
	ctx, span := tracer.Start(ctx, "sqlcommon.DeleteChunks")
	defer span.End()

	_, err := dbInfo.exec(ctx, dbInfo.stbl.Delete("fanin_chunk").Where(sq.Eq{"run_id": runID}), dbInfo.db)
	return err
}

// ReadJob see [storage.JobStore].ReadJob.
func ReadJob(ctx context.Context, dbInfo *DBInfo, jobID string) (*storage.JobRecord, error) {
	ctx, span := tracer.Start(ctx, "sqlcommon.ReadJob")
	defer span.End()

	return readJob(ctx, dbInfo, jobID, dbInfo.db)
}

func readJob(ctx context.Context, dbInfo *DBInfo, jobID string, runner sq.BaseRunner) (*storage.JobRecord, error) {
	job := storage.JobRecord{JobID: jobID}
	var status string

	err := dbInfo.retry(func() error {
		return dbInfo.stbl.
			Select("consecutive_violations", "status", "updated_at").
			From("sync_job").
			Where(sq.Eq{"job_id": jobID}).
			RunWith(runner).
			QueryRowContext(ctx).
			Scan(&job.ConsecutiveViolations, &status, &job.UpdatedAt)
	})
	if err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}

	job.Status = storage.JobStatus(status)
	return &job, nil
}

func updateJob(ctx context.Context, dbInfo *DBInfo, jobID string, set map[string]interface{}) (*storage.JobRecord, error) {
	var job *storage.JobRecord
	err := dbInfo.inTx(ctx, func(txn *sql.Tx) error {
		now := dbInfo.now()
		_, err := dbInfo.exec(ctx, dbInfo.insertIgnore(dbInfo.stbl.
			Insert("sync_job").
			Columns("job_id", "consecutive_violations", "status", "updated_at").
			Values(jobID, 0, string(storage.JobStatusEnabled), now)), txn)
		if err != nil {
			return err
		}

		_, err = dbInfo.exec(ctx, dbInfo.stbl.
			Update("sync_job").
			SetMap(set).
			Set("updated_at", now).
			Where(sq.Eq{"job_id": jobID}), txn)
		if err != nil {
			return err
		}

		job, err = readJob(ctx, dbInfo, jobID, txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// IncrementViolations see [storage.JobStore].IncrementViolations.
func IncrementViolations(ctx context.Context, dbInfo *DBInfo, jobID string) (int, error) {
	ctx, span := tracer.Start(ctx, "sqlcommon.IncrementViolations")
	defer span.End()

	job, err := updateJob(ctx, dbInfo, jobID, map[string]interface{}{
		"consecutive_violations": sq.Expr("consecutive_violations + 1"),
	})
	if err != nil {
		return 0, err
	}
	return job.ConsecutiveViolations, nil
}

// ResetViolations see [storage.JobStore].ResetViolations.
func ResetViolations(ctx context.Context, dbInfo *DBInfo, jobID string) error {
	ctx, span := tracer.Start(ctx, "sqlcommon.ResetViolations")
	defer span.End()

	_, err := updateJob(ctx, dbInfo, jobID, map[string]interface{}{"consecutive_violations": 0})
	return err
}

// SetJobStatus see [storage.JobStore].SetJobStatus.
func SetJobStatus(ctx context.Context, dbInfo *DBInfo, jobID string, status storage.JobStatus) error {
	ctx, span := tracer.Start(ctx, "sqlcommon.SetJobStatus")
	defer span.End()

	_, err := updateJob(ctx, dbInfo, jobID, map[string]interface{}{"status": string(status)})
	return err
}

// IsReady returns true if connection to datastore is successful AND
// (the datastore has the latest migration applied OR skipVersionCheck).
func IsReady(ctx context.Context, skipVersionCheck bool, db *sql.DB) (storage.ReadinessStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	// do ping first to ensure we have better error message
	// if error is due to connection issue.
	if pingErr := db.PingContext(ctx); pingErr != nil {
		return storage.ReadinessStatus{}, pingErr
	}

	if skipVersionCheck {
		return storage.ReadinessStatus{
			IsReady: true,
		}, nil
	}

	revision, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return storage.ReadinessStatus{}, err
	}

	if revision < build.MinimumSupportedDatastoreSchemaRevision {
		return storage.ReadinessStatus{
			Message: "datastore requires migrations: at revision '" +
				strconv.FormatInt(revision, 10) +
				"', but requires '" +
				strconv.FormatInt(build.MinimumSupportedDatastoreSchemaRevision, 10) +
				"'. Run 'membersync migrate'.",
			IsReady: false,
		}, nil
	}
	return storage.ReadinessStatus{
		IsReady: true,
	}, nil
}
