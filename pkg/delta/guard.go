package delta

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/openfga/membersync/internal/build"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/storage"
)

// DefaultMaxConsecutiveViolations is the number of consecutive threshold
// violations after which a job is disabled.
const DefaultMaxConsecutiveViolations = 3

var tracer = otel.Tracer("membersync/pkg/delta")

var (
	thresholdViolationCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "threshold_violation_count",
		Help:      "The total number of deltas blocked because they exceeded a threshold.",
	})

	jobDisabledCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "job_disabled_count",
		Help:      "The total number of jobs disabled after too many consecutive threshold violations.",
	})
)

// Verdict is the decision of a [Guard] for one result.
type Verdict struct {
	// Apply is true when the delta may be written to the destination.
	Apply bool

	// Violations is the job's consecutive violation count after this evaluation.
	Violations int

	// JobDisabled is true when the job is disabled, either by this evaluation
	// or earlier.
	JobDisabled bool

	// Skipped is true when the job was already disabled, so the result was
	// neither counted nor allowed.
	Skipped bool
}

// Guard tracks consecutive threshold violations per job and disables jobs
// that keep violating.
type Guard struct {
	store         storage.JobStore
	maxViolations int
	logger        logger.Logger
}

// GuardOption configures a [Guard].
type GuardOption func(*Guard)

// WithMaxConsecutiveViolations sets how many consecutive violations disable a job.
func WithMaxConsecutiveViolations(n int) GuardOption {
	return func(g *Guard) {
		g.maxViolations = n
	}
}

func WithLogger(l logger.Logger) GuardOption {
	return func(g *Guard) {
		g.logger = l
	}
}

// NewGuard returns a guard persisting job state in store.
func NewGuard(store storage.JobStore, opts ...GuardOption) *Guard {
	g := &Guard{
		store:         store,
		maxViolations: DefaultMaxConsecutiveViolations,
		logger:        logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.maxViolations < 1 {
		g.maxViolations = DefaultMaxConsecutiveViolations
	}

	return g
}

// Evaluate records the outcome of result for jobID and decides whether it may
// be applied. A result exceeding both thresholds counts as one violation.
// A clean run that is not a dry run resets the counter. Disabled jobs never apply.
func (g *Guard) Evaluate(ctx context.Context, jobID string, result Result) (Verdict, error) {
	ctx, span := tracer.Start(ctx, "delta.Evaluate")
	defer span.End()
	span.SetAttributes(attribute.String("job_id", jobID))

	job, err := g.store.ReadJob(ctx, jobID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Verdict{}, fmt.Errorf("read job %s: %w", jobID, err)
	}

	var violations int
	if job != nil {
		violations = job.ConsecutiveViolations
		if job.Status == storage.JobStatusDisabled {
			return Verdict{Violations: violations, JobDisabled: true, Skipped: true}, nil
		}
	}

	switch {
	case result.ViolatesThreshold:
		thresholdViolationCounter.Inc()

		violations, err = g.store.IncrementViolations(ctx, jobID)
		if err != nil {
			return Verdict{}, fmt.Errorf("increment violations of job %s: %w", jobID, err)
		}

		g.logger.WarnWithContext(ctx, "delta exceeds threshold",
			zap.String("job_id", jobID),
			zap.Float64("addition_percentage", result.AdditionPercentage),
			zap.Float64("removal_percentage", result.RemovalPercentage),
			zap.Int("consecutive_violations", violations),
		)

		if violations < g.maxViolations {
			return Verdict{Violations: violations}, nil
		}

		if err := g.store.SetJobStatus(ctx, jobID, storage.JobStatusDisabled); err != nil {
			return Verdict{}, fmt.Errorf("disable job %s: %w", jobID, err)
		}
		jobDisabledCounter.Inc()
		g.logger.ErrorWithContext(ctx, "job disabled after consecutive threshold violations",
			zap.String("job_id", jobID),
			zap.Int("consecutive_violations", violations),
		)
		return Verdict{Violations: violations, JobDisabled: true}, nil

	case result.DryRun:
		return Verdict{Violations: violations}, nil

	default:
		if violations > 0 || job == nil {
			if err := g.store.ResetViolations(ctx, jobID); err != nil {
				return Verdict{}, fmt.Errorf("reset violations of job %s: %w", jobID, err)
			}
		}
		return Verdict{Apply: true}, nil
	}
}
