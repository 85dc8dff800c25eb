package notify

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/openfga/membersync/internal/build"
	"github.com/openfga/membersync/pkg/logger"
)

var notificationCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: build.ProjectName,
	Name:      "notification_count",
	Help:      "The total number of notifications emitted, by kind.",
}, []string{"kind"})

// LogSink writes notifications to a logger.
type LogSink struct {
	logger logger.Logger
}

var _ Sink = (*LogSink)(nil)

func NewLogSink(l logger.Logger) *LogSink {
	return &LogSink{logger: l}
}

func (s *LogSink) Notify(ctx context.Context, n Notification) error {
	notificationCounter.WithLabelValues(n.Kind.String()).Inc()

	fields := []zap.Field{zap.String("kind", n.Kind.String())}
	switch n.Kind {
	case KindThresholdViolation, KindJobDisabled:
		fields = append(fields,
			zap.String("job_id", n.JobID),
			zap.String("run_id", n.RunID),
			zap.Stringer("destination", n.Destination),
			zap.Int("consecutive_violations", n.Violations),
		)
		if n.Delta != nil {
			fields = append(fields,
				zap.Int("additions", n.Delta.Additions.Len()),
				zap.Int("removals", n.Delta.Removals.Len()),
				zap.Float64("addition_percentage", n.Delta.AdditionPercentage),
				zap.Float64("removal_percentage", n.Delta.RemovalPercentage),
			)
		}
	case KindCycleReport:
		cycles := make([]string, 0, len(n.Cycles))
		for _, c := range n.Cycles {
			cycles = append(cycles, c.String())
		}
		fields = append(fields,
			zap.Stringer("root", n.Root),
			zap.Strings("cycles", cycles),
		)
	default:
		return fmt.Errorf("unsupported notification kind: %s", n.Kind)
	}

	if n.Kind == KindJobDisabled {
		s.logger.ErrorWithContext(ctx, "sync job disabled", fields...)
		return nil
	}
	s.logger.WarnWithContext(ctx, "sync notification", fields...)
	return nil
}

// MultiSink delivers every notification to all of its sinks concurrently.
// Delivery continues when a sink fails; all failures are returned together.
type MultiSink struct {
	sinks []Sink
}

var _ Sink = (*MultiSink)(nil)

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Notify(ctx context.Context, n Notification) error {
	p := pool.New().WithErrors().WithContext(ctx)
	for _, sink := range m.sinks {
		p.Go(func(ctx context.Context) error {
			return sink.Notify(ctx, n)
		})
	}
	return p.Wait()
}

// NoopSink drops every notification.
type NoopSink struct{}

var _ Sink = NoopSink{}

func (NoopSink) Notify(context.Context, Notification) error { return nil }
