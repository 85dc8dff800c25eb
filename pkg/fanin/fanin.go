// Package fanin tracks when every part of a chunked run has been received.
package fanin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/openfga/membersync/internal/build"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/storage"
)

var tracer = otel.Tracer("membersync/pkg/fanin")

var (
	// ErrRunFinalized is returned for parts of a run that was already finalized.
	ErrRunFinalized = errors.New("run already finalized")

	// ErrExcessParts is returned when a run recorded more distinct parts than its total.
	ErrExcessParts = errors.New("run has more distinct parts than its total")
)

var (
	duplicatePartCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "fanin_duplicate_part_count",
		Help:      "The total number of part deliveries that were already recorded for their run.",
	})

	completedRunCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "fanin_completed_run_count",
		Help:      "The total number of runs for which every part has been received.",
	})

	latePartCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "fanin_late_part_count",
		Help:      "The total number of part deliveries dropped because their run was already finalized.",
	})
)

// State is the lifecycle position of one run.
type State int

const (
	// StateEmpty means nothing has been recorded for the run.
	StateEmpty State = iota
	// StateCollecting means some parts or the total are known but not all parts arrived.
	StateCollecting
	// StateComplete means the total is known and that many distinct parts were recorded.
	StateComplete
	// StateFinalized means the run was reconciled and its parts are dropped from now on.
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateCollecting:
		return "collecting"
	case StateComplete:
		return "complete"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type runLock struct {
	sync.Mutex
	refs int
}

// Tracker serializes all operations on one run id behind a per-key lock and
// persists the state through a [storage.PartStateStore]. Operations on
// different run ids proceed concurrently. Locks are local to the process, so
// a store shared by several processes relies on its own transactional
// insert-if-absent semantics, which every operation here tolerates.
type Tracker struct {
	store  storage.PartStateStore
	logger logger.Logger

	mu    sync.Mutex
	locks map[string]*runLock // GUARDED_BY(mu)
}

// TrackerOption configures a [Tracker].
type TrackerOption func(*Tracker)

// WithLogger sets the logger used for debug output.
func WithLogger(l logger.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = l
	}
}

// NewTracker returns a tracker backed by store.
func NewTracker(store storage.PartStateStore, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:  store,
		logger: logger.NewNoopLogger(),
		locks:  make(map[string]*runLock),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Tracker) lock(runID string) func() {
	t.mu.Lock()
	l, ok := t.locks[runID]
	if !ok {
		l = &runLock{}
		t.locks[runID] = l
	}
	l.refs++
	t.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()

		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, runID)
		}
		t.mu.Unlock()
	}
}

// SetTotalParts records how many parts runID consists of. Repeating the same
// value is a no-op; a different value returns [storage.ErrConflictingTotalParts]
// and leaves the stored total untouched.
func (t *Tracker) SetTotalParts(ctx context.Context, runID string, total int) error {
	ctx, span := tracer.Start(ctx, "fanin.SetTotalParts")
	defer span.End()

	if err := storage.ValidateTotalParts(total); err != nil {
		return err
	}

	unlock := t.lock(runID)
	defer unlock()

	if err := t.checkNotFinalized(ctx, runID, ""); err != nil {
		return err
	}
	return t.store.SetTotalParts(ctx, runID, total)
}

// AddCompletedPart records partID for runID. Duplicate deliveries are absorbed.
func (t *Tracker) AddCompletedPart(ctx context.Context, runID, partID string) error {
	ctx, span := tracer.Start(ctx, "fanin.AddCompletedPart")
	defer span.End()

	unlock := t.lock(runID)
	defer unlock()

	if err := t.checkNotFinalized(ctx, runID, partID); err != nil {
		return err
	}
	_, err := t.addLocked(ctx, runID, partID)
	return err
}

func (t *Tracker) checkNotFinalized(ctx context.Context, runID, partID string) error {
	finalized, err := t.store.IsRunFinalized(ctx, runID)
	if err != nil {
		return err
	}
	if !finalized {
		return nil
	}

	latePartCounter.Inc()
	t.logger.DebugWithContext(ctx, "part of finalized run dropped",
		zap.String("run_id", runID),
		zap.String("part_id", partID),
	)
	return fmt.Errorf("%w: %s", ErrRunFinalized, runID)
}

func (t *Tracker) addLocked(ctx context.Context, runID, partID string) (bool, error) {
	added, err := t.store.AddCompletedPart(ctx, runID, partID)
	if err != nil {
		return false, err
	}

	if !added {
		duplicatePartCounter.Inc()
		t.logger.DebugWithContext(ctx, "duplicate part ignored",
			zap.String("run_id", runID),
			zap.String("part_id", partID),
		)
	}
	return added, nil
}

// IsComplete reports whether the total of runID is known and exactly that many
// distinct parts were recorded. An unknown or finalized run is not complete.
func (t *Tracker) IsComplete(ctx context.Context, runID string) (bool, error) {
	state, err := t.State(ctx, runID)
	if err != nil {
		return false, err
	}
	return state == StateComplete, nil
}

// State returns the lifecycle position of runID.
func (t *Tracker) State(ctx context.Context, runID string) (State, error) {
	ctx, span := tracer.Start(ctx, "fanin.State")
	defer span.End()

	unlock := t.lock(runID)
	defer unlock()

	return t.stateLocked(ctx, runID)
}

func (t *Tracker) stateLocked(ctx context.Context, runID string) (State, error) {
	finalized, err := t.store.IsRunFinalized(ctx, runID)
	if err != nil {
		return StateEmpty, err
	}
	if finalized {
		return StateFinalized, nil
	}

	ps, err := t.store.ReadPartState(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return StateEmpty, nil
		}
		return StateEmpty, err
	}

	if ps.TotalParts == nil {
		return StateCollecting, nil
	}

	switch total := *ps.TotalParts; {
	case ps.CompletedParts == total:
		return StateComplete, nil
	case ps.CompletedParts > total:
		t.logger.WarnWithContext(ctx, "run has more distinct parts than its total",
			zap.String("run_id", runID),
			zap.Int("total_parts", total),
			zap.Int("completed_parts", ps.CompletedParts),
		)
		return StateCollecting, fmt.Errorf("%w: run '%s' expects %d parts, recorded %d", ErrExcessParts, runID, total, ps.CompletedParts)
	default:
		return StateCollecting, nil
	}
}

// Record adds partID and the run total in one serialized step and reports
// whether the run is complete afterwards. This is what a receiver calls for
// each delivered chunk. Parts of a finalized run return [ErrRunFinalized].
func (t *Tracker) Record(ctx context.Context, runID, partID string, total int) (bool, error) {
	ctx, span := tracer.Start(ctx, "fanin.Record")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID), attribute.String("part_id", partID))

	if err := storage.ValidateTotalParts(total); err != nil {
		return false, err
	}

	unlock := t.lock(runID)
	defer unlock()

	if err := t.checkNotFinalized(ctx, runID, partID); err != nil {
		return false, err
	}

	added, err := t.addLocked(ctx, runID, partID)
	if err != nil {
		return false, err
	}

	if err := t.store.SetTotalParts(ctx, runID, total); err != nil {
		return false, err
	}

	state, err := t.stateLocked(ctx, runID)
	if err != nil {
		return false, err
	}

	complete := state == StateComplete
	span.SetAttributes(attribute.Bool("complete", complete))
	if complete && added {
		completedRunCounter.Inc()
	}
	return complete, nil
}

// Delete releases all state of runID.
func (t *Tracker) Delete(ctx context.Context, runID string) error {
	ctx, span := tracer.Start(ctx, "fanin.Delete")
	defer span.End()

	unlock := t.lock(runID)
	defer unlock()

	return t.store.DeletePartState(ctx, runID)
}

// Finalize releases the state of a reconciled run and marks it so that later
// deliveries of its parts return [ErrRunFinalized] instead of starting over.
func (t *Tracker) Finalize(ctx context.Context, runID string) error {
	ctx, span := tracer.Start(ctx, "fanin.Finalize")
	defer span.End()

	unlock := t.lock(runID)
	defer unlock()

	return t.store.FinalizeRun(ctx, runID)
}

// PurgeFinalized forgets runs finalized before the given time. A part of such
// a run delivered afterwards is treated as a new run.
func (t *Tracker) PurgeFinalized(ctx context.Context, before time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "fanin.PurgeFinalized")
	defer span.End()

	purged, err := t.store.PurgeFinalizedRuns(ctx, before)
	if err != nil {
		return 0, err
	}

	t.logger.DebugWithContext(ctx, "purged finalized runs",
		zap.Int("purged", purged),
		zap.Time("before", before),
	)
	return purged, nil
}
