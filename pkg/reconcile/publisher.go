package reconcile

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/openfga/membersync/internal/concurrency"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/membership"
	"github.com/openfga/membersync/pkg/telemetry"
)

const defaultMaxConcurrentSends = 10

var tracer = otel.Tracer("membersync/pkg/reconcile")

// Publisher sends the desired membership of runs through a [Transport].
type Publisher struct {
	transport          Transport
	maxPerChunk        int
	maxConcurrentSends int
	logger             logger.Logger
}

type PublisherOption func(*Publisher)

// WithMaxMembersPerChunk sets how many members go into one part.
func WithMaxMembersPerChunk(n int) PublisherOption {
	return func(p *Publisher) {
		p.maxPerChunk = n
	}
}

// WithMaxConcurrentSends bounds the number of parts in flight.
func WithMaxConcurrentSends(n int) PublisherOption {
	return func(p *Publisher) {
		p.maxConcurrentSends = n
	}
}

func WithPublisherLogger(l logger.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = l
	}
}

func NewPublisher(transport Transport, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		transport:          transport,
		maxPerChunk:        membership.DefaultMaxMembersPerChunk,
		maxConcurrentSends: defaultMaxConcurrentSends,
		logger:             logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Publish splits set into parts and sends them concurrently. A run id is
// assigned when set has none. The first send error cancels the remaining
// sends; publishing the same run again is safe because receivers deduplicate
// parts.
func (p *Publisher) Publish(ctx context.Context, set membership.MembershipSet) (string, error) {
	ctx, span := tracer.Start(ctx, "reconcile.Publish")
	defer span.End()

	if set.RunID == "" {
		set.RunID = membership.NewRunID()
	}
	span.SetAttributes(
		attribute.String("run_id", set.RunID),
		attribute.String("job_id", set.JobID),
	)

	chunks, err := membership.Split(set, p.maxPerChunk)
	if err != nil {
		return "", err
	}

	pool := concurrency.NewPool(ctx, p.maxConcurrentSends)
	for _, part := range membership.Parts(chunks) {
		payload, err := membership.EncodePart(part)
		if err != nil {
			// let sends already started finish before returning
			_ = pool.Wait()
			return "", fmt.Errorf("encode part %s of run %s: %w", part.PartID, set.RunID, err)
		}

		pool.Go(func(ctx context.Context) error {
			if err := p.transport.SendChunk(ctx, payload); err != nil {
				return fmt.Errorf("send part %s of run %s: %w", part.PartID, set.RunID, err)
			}
			return nil
		})
	}

	if err := pool.Wait(); err != nil {
		telemetry.TraceError(span, err)
		return "", err
	}

	span.SetAttributes(attribute.Int("parts", len(chunks)))
	p.logger.InfoWithContext(ctx, "published run",
		zap.String("run_id", set.RunID),
		zap.String("job_id", set.JobID),
		zap.Int("members", len(set.Members)),
		zap.Int("parts", len(chunks)),
	)

	return set.RunID, nil
}
