package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/openfga/membersync/internal/build"
	"github.com/openfga/membersync/pkg/delta"
	"github.com/openfga/membersync/pkg/fanin"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/membership"
	"github.com/openfga/membersync/pkg/notify"
	"github.com/openfga/membersync/pkg/telemetry"
)

var (
	runCompletedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "reconcile_run_count",
		Help:      "The total number of completed runs, by outcome.",
	}, []string{"outcome"})

	appliedMembersCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "reconcile_applied_member_count",
		Help:      "The total number of members added to or removed from destinations.",
	}, []string{"action"})
)

// Outcome describes what happened to one delivered part.
type Outcome struct {
	RunID  string
	PartID string

	// Complete is true once every part of the run has been received. The
	// remaining fields are only set when it is.
	Complete bool

	Delta   delta.Result
	Verdict delta.Verdict

	// Applied is true when the delta was written to the destination.
	Applied bool
}

// Receiver turns delivered parts back into runs and reconciles each complete
// run against its destination. It is safe for concurrent use.
type Receiver struct {
	store   Store
	tracker *fanin.Tracker
	guard   *delta.Guard
	reader  MembershipReader
	applier Applier
	sink    notify.Sink
	logger  logger.Logger

	thresholdAdd    float64
	thresholdRemove float64
	maxViolations   int
	dryRun          bool

	// job id => struct{}, consumed by the next completed run of the job
	ignoreOnce sync.Map

	finalizeGroup singleflight.Group
}

type ReceiverOption func(*Receiver)

// WithThresholds sets the addition and removal thresholds, in percent.
func WithThresholds(add, remove float64) ReceiverOption {
	return func(r *Receiver) {
		r.thresholdAdd = add
		r.thresholdRemove = remove
	}
}

func WithMaxConsecutiveViolations(n int) ReceiverOption {
	return func(r *Receiver) {
		r.maxViolations = n
	}
}

// WithDryRun computes and reports deltas without applying them.
func WithDryRun(dryRun bool) ReceiverOption {
	return func(r *Receiver) {
		r.dryRun = dryRun
	}
}

func WithSink(s notify.Sink) ReceiverOption {
	return func(r *Receiver) {
		r.sink = s
	}
}

func WithReceiverLogger(l logger.Logger) ReceiverOption {
	return func(r *Receiver) {
		r.logger = l
	}
}

func NewReceiver(store Store, reader MembershipReader, applier Applier, opts ...ReceiverOption) *Receiver {
	r := &Receiver{
		store:           store,
		reader:          reader,
		applier:         applier,
		sink:            notify.NoopSink{},
		logger:          logger.NewNoopLogger(),
		thresholdAdd:    100,
		thresholdRemove: 100,
		maxViolations:   delta.DefaultMaxConsecutiveViolations,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.tracker = fanin.NewTracker(store, fanin.WithLogger(r.logger))
	r.guard = delta.NewGuard(store,
		delta.WithMaxConsecutiveViolations(r.maxViolations),
		delta.WithLogger(r.logger),
	)

	return r
}

// IgnoreThresholdOnce lets the next completed run of jobID through even if it
// exceeds a threshold.
func (r *Receiver) IgnoreThresholdOnce(jobID string) {
	r.ignoreOnce.Store(jobID, struct{}{})
}

// Receive handles one delivered payload. Redelivering a part is harmless:
// parts of a run that was already reconciled are dropped. When a complete run
// fails to reconcile its state is kept, so redelivering any of its parts
// retries.
func (r *Receiver) Receive(ctx context.Context, payload []byte) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "reconcile.Receive")
	defer span.End()

	part, err := membership.DecodePart(payload)
	if err != nil {
		return nil, err
	}
	runID := part.Set.RunID
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.String("part_id", part.PartID),
	)

	finalized, err := r.store.IsRunFinalized(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read state of run %s: %w", runID, err)
	}
	if finalized {
		return r.dropLatePart(ctx, runID, part.PartID, false)
	}

	if err := r.store.WriteChunk(ctx, runID, part.PartID, payload); err != nil {
		return nil, fmt.Errorf("store part %s of run %s: %w", part.PartID, runID, err)
	}

	complete, err := r.tracker.Record(ctx, runID, part.PartID, part.Set.Chunk.TotalChunkCount)
	if errors.Is(err, fanin.ErrRunFinalized) {
		// the run was finalized after the check above
		return r.dropLatePart(ctx, runID, part.PartID, true)
	}
	if err != nil {
		telemetry.TraceError(span, err)
		return nil, err
	}
	if !complete {
		return &Outcome{RunID: runID, PartID: part.PartID}, nil
	}

	v, err, _ := r.finalizeGroup.Do(runID, func() (interface{}, error) {
		return r.finalize(ctx, runID)
	})
	if errors.Is(err, fanin.ErrRunFinalized) {
		return r.dropLatePart(ctx, runID, part.PartID, true)
	}
	if err != nil {
		telemetry.TraceError(span, err)
		return nil, err
	}

	outcome := *v.(*Outcome)
	outcome.PartID = part.PartID
	return &outcome, nil
}

// PurgeFinalizedRuns forgets runs reconciled more than olderThan ago. Parts of
// such runs delivered afterwards are no longer recognized as late.
func (r *Receiver) PurgeFinalizedRuns(ctx context.Context, olderThan time.Duration) (int, error) {
	return r.tracker.PurgeFinalized(ctx, time.Now().Add(-olderThan))
}

func (r *Receiver) dropLatePart(ctx context.Context, runID, partID string, written bool) (*Outcome, error) {
	r.logger.DebugWithContext(ctx, "part of finished run ignored",
		zap.String("run_id", runID),
		zap.String("part_id", partID),
	)
	runCompletedCounter.WithLabelValues("late_part").Inc()

	if written {
		if err := r.store.DeleteChunks(ctx, runID); err != nil {
			return nil, fmt.Errorf("delete parts of run %s: %w", runID, err)
		}
	}
	return &Outcome{RunID: runID, PartID: partID}, nil
}

func (r *Receiver) finalize(ctx context.Context, runID string) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "reconcile.finalize")
	defer span.End()

	// a run that completed again after it was reconciled
	finalized, err := r.store.IsRunFinalized(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read state of run %s: %w", runID, err)
	}
	if finalized {
		return nil, fmt.Errorf("%w: %s", fanin.ErrRunFinalized, runID)
	}

	set, err := r.merge(ctx, runID)
	if err != nil {
		return nil, err
	}

	current, err := r.reader.CurrentMembers(ctx, set.Destination)
	if err != nil {
		return nil, fmt.Errorf("read current members of %s: %w", set.Destination, err)
	}

	_, ignoreOnce := r.ignoreOnce.LoadAndDelete(set.JobID)
	result := delta.Calculate(set.MemberSet(), current, delta.Options{
		Exclusionary:        set.Exclusionary,
		ThresholdAdd:        r.thresholdAdd,
		ThresholdRemove:     r.thresholdRemove,
		IgnoreThresholdOnce: ignoreOnce,
		DryRun:              r.dryRun,
	})

	verdict, err := r.guard.Evaluate(ctx, set.JobID, result)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{RunID: runID, Complete: true, Delta: result, Verdict: verdict}
	log := r.logger.With(
		zap.String("run_id", runID),
		zap.String("job_id", set.JobID),
		zap.Stringer("destination", set.Destination),
	)
	fields := []zap.Field{
		zap.Int("additions", result.Additions.Len()),
		zap.Int("removals", result.Removals.Len()),
	}

	switch {
	case verdict.Skipped:
		log.InfoWithContext(ctx, "skipping run of disabled job", fields...)
		runCompletedCounter.WithLabelValues("job_disabled").Inc()

	case result.ViolatesThreshold:
		n := notify.ThresholdViolation(set, result, verdict.Violations)
		if verdict.JobDisabled {
			n = notify.JobDisabled(set, result, verdict.Violations)
		}
		if err := r.sink.Notify(ctx, n); err != nil {
			log.ErrorWithContext(ctx, "failed to send notification", append(fields, zap.Error(err))...)
		}
		runCompletedCounter.WithLabelValues("threshold_violation").Inc()

	case result.DryRun:
		log.InfoWithContext(ctx, "dry run, delta not applied", fields...)
		runCompletedCounter.WithLabelValues("dry_run").Inc()

	case verdict.Apply && !result.IsEmpty():
		if err := r.applier.Apply(ctx, set.Destination, result.Additions, result.Removals); err != nil {
			return nil, fmt.Errorf("apply delta of run %s to %s: %w", runID, set.Destination, err)
		}
		outcome.Applied = true
		appliedMembersCounter.WithLabelValues(membership.ActionAdd.String()).Add(float64(result.Additions.Len()))
		appliedMembersCounter.WithLabelValues(membership.ActionRemove.String()).Add(float64(result.Removals.Len()))
		log.InfoWithContext(ctx, "applied delta", fields...)
		runCompletedCounter.WithLabelValues("applied").Inc()

	default:
		runCompletedCounter.WithLabelValues("unchanged").Inc()
	}

	if err := r.tracker.Finalize(ctx, runID); err != nil {
		return nil, err
	}
	if err := r.store.DeleteChunks(ctx, runID); err != nil {
		return nil, fmt.Errorf("delete parts of run %s: %w", runID, err)
	}

	return outcome, nil
}

// merge reassembles the full membership of runID from its stored parts.
func (r *Receiver) merge(ctx context.Context, runID string) (membership.MembershipSet, error) {
	payloads, err := r.store.ReadChunks(ctx, runID)
	if err != nil {
		return membership.MembershipSet{}, fmt.Errorf("read parts of run %s: %w", runID, err)
	}

	chunks := make([]membership.MembershipSet, 0, len(payloads))
	for _, payload := range payloads {
		part, err := membership.DecodePart(payload)
		if err != nil {
			return membership.MembershipSet{}, err
		}
		chunks = append(chunks, part.Set)
	}

	return membership.Merge(chunks)
}
