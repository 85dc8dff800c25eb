// Package reconcile wires the sync engine together. A [Publisher] splits the
// desired membership of a run into parts and sends them through a
// [Transport]; a [Receiver] collects the parts of each run and, once all have
// arrived, computes and applies the delta against the destination.
package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openfga/membersync/pkg/crawler"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/membership"
	"github.com/openfga/membersync/pkg/notify"
	"github.com/openfga/membersync/pkg/storage"
)

//go:generate mockgen -source reconcile.go -destination ../../internal/mocks/mock_reconcile.go -package mocks Transport,MembershipReader,Applier

// Transport carries encoded parts from a publisher to a receiver. Delivery
// may be out of order and may repeat a part.
type Transport interface {
	SendChunk(ctx context.Context, payload []byte) error
}

// MembershipReader reads the current members of a destination.
type MembershipReader interface {
	CurrentMembers(ctx context.Context, dest membership.Destination) (membership.Set, error)
}

// Applier writes a delta to a destination.
type Applier interface {
	Apply(ctx context.Context, dest membership.Destination, additions, removals membership.Set) error
}

// Store is the durable state a [Receiver] needs.
type Store interface {
	storage.PartStateStore
	storage.ChunkStore
	storage.JobStore
}

// DesiredFromGroup returns the transitive users of root. Cycles are reported
// to sink but do not fail the call. Any group that could not be expanded
// fails the call, since syncing a partial membership would remove members
// that only sit behind the failed branch.
func DesiredFromGroup(ctx context.Context, c *crawler.Crawler, root uuid.UUID, sink notify.Sink, l logger.Logger) (membership.Set, error) {
	result, err := c.Crawl(ctx, root)
	if err != nil {
		return nil, err
	}

	if result.HasCycles() {
		if err := sink.Notify(ctx, notify.CycleReport(root, result.Cycles)); err != nil {
			l.WarnWithContext(ctx, "failed to report group cycles",
				zap.String("root", root.String()),
				zap.Error(err),
			)
		}
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("incomplete crawl of group '%s': %w", root, err)
	}

	return result.Users, nil
}
