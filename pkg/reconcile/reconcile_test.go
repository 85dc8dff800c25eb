package reconcile

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openfga/membersync/pkg/crawler"
	"github.com/openfga/membersync/pkg/directory"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/membership"
	"github.com/openfga/membersync/pkg/notify"
	"github.com/openfga/membersync/pkg/testutils"
)

var testDestination = membership.Destination{Type: "group", ID: "engineering"}

type collectingTransport struct {
	mu       sync.Mutex
	payloads [][]byte // GUARDED_BY(mu)
}

func (c *collectingTransport) SendChunk(_ context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, slices.Clone(payload))
	return nil
}

func (c *collectingTransport) Payloads() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.payloads)
}

// fakeDestination is an in-memory destination that applies deltas for real.
type fakeDestination struct {
	mu        sync.Mutex
	members   membership.Set // GUARDED_BY(mu)
	applied   int            // GUARDED_BY(mu)
	failApply error          // GUARDED_BY(mu)
}

func newFakeDestination(ids ...uuid.UUID) *fakeDestination {
	return &fakeDestination{members: membership.SetOf(ids...)}
}

func (d *fakeDestination) CurrentMembers(context.Context, membership.Destination) (membership.Set, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.members), nil
}

func (d *fakeDestination) Apply(_ context.Context, _ membership.Destination, additions, removals membership.Set) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failApply != nil {
		err := d.failApply
		d.failApply = nil
		return err
	}

	for id := range additions {
		d.members[id] = membership.Member(id)
	}
	for id := range removals {
		delete(d.members, id)
	}
	d.applied++
	return nil
}

func (d *fakeDestination) IDs() []uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Collect(maps.Keys(d.members))
}

func (d *fakeDestination) Applied() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applied
}

type recordingSink struct {
	mu            sync.Mutex
	notifications []notify.Notification // GUARDED_BY(mu)
}

func (s *recordingSink) Notify(_ context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *recordingSink) Kinds() []notify.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]notify.Kind, 0, len(s.notifications))
	for _, n := range s.notifications {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func membersOf(ids ...uuid.UUID) []membership.MemberIdentity {
	members := make([]membership.MemberIdentity, 0, len(ids))
	for _, id := range ids {
		members = append(members, membership.Member(id))
	}
	return members
}

func desiredSet(jobID string, ids ...uuid.UUID) membership.MembershipSet {
	return membership.MembershipSet{
		Destination: testDestination,
		JobID:       jobID,
		Members:     membersOf(ids...),
	}
}

func publish(t *testing.T, set membership.MembershipSet, maxPerChunk int) [][]byte {
	t.Helper()

	transport := &collectingTransport{}
	_, err := NewPublisher(transport, WithMaxMembersPerChunk(maxPerChunk)).Publish(context.Background(), set)
	require.NoError(t, err)
	return transport.Payloads()
}

// deliver hands every payload to r in order and returns the outcomes of the
// deliveries that completed their run.
func deliver(t *testing.T, r *Receiver, payloads [][]byte) []*Outcome {
	t.Helper()

	var complete []*Outcome
	for _, payload := range payloads {
		outcome, err := r.Receive(context.Background(), payload)
		require.NoError(t, err)
		if outcome.Complete {
			complete = append(complete, outcome)
		}
	}
	return complete
}

func TestDesiredFromGroup(t *testing.T) {
	ctx := context.Background()
	ids := testutils.UUIDs("desired-from-group", 6)
	root, g1, g2, u1, u2, missing := ids[0], ids[1], ids[2], ids[3], ids[4], ids[5]

	t.Run("reports_cycles", func(t *testing.T) {
		graph := directory.NewGraph()
		graph.AddGroup(root, crawler.GroupRef(g1))
		graph.AddGroup(g1, crawler.UserRef(u1), crawler.GroupRef(g2))
		graph.AddGroup(g2, crawler.UserRef(u2), crawler.GroupRef(g1))

		sink := &recordingSink{}
		users, err := DesiredFromGroup(ctx, crawler.NewCrawler(graph), root, sink, logger.NewNoopLogger())
		require.NoError(t, err)
		require.ElementsMatch(t, []uuid.UUID{u1, u2}, slices.Collect(maps.Keys(users)))

		require.Equal(t, []notify.Kind{notify.KindCycleReport}, sink.Kinds())
		require.Equal(t, root, sink.notifications[0].Root)
		require.Len(t, sink.notifications[0].Cycles, 1)
		require.ElementsMatch(t, []uuid.UUID{g1, g2}, sink.notifications[0].Cycles[0].Path())
	})

	t.Run("fails_closed_on_unreadable_group", func(t *testing.T) {
		graph := directory.NewGraph()
		graph.AddGroup(root, crawler.UserRef(u1), crawler.GroupRef(missing))

		sink := &recordingSink{}
		users, err := DesiredFromGroup(ctx, crawler.NewCrawler(graph), root, sink, logger.NewNoopLogger())
		require.ErrorIs(t, err, crawler.ErrGroupNotFound)
		require.Nil(t, users)
		require.Empty(t, sink.Kinds())
	})

	t.Run("missing_root", func(t *testing.T) {
		_, err := DesiredFromGroup(ctx, crawler.NewCrawler(directory.NewGraph()), root, notify.NoopSink{}, logger.NewNoopLogger())
		require.ErrorIs(t, err, crawler.ErrGroupNotFound)
	})

	t.Run("notification_failure_is_logged", func(t *testing.T) {
		graph := directory.NewGraph()
		graph.AddGroup(root, crawler.UserRef(u1), crawler.GroupRef(root))

		l, logs := logger.NewObserverLogger("warn")
		users, err := DesiredFromGroup(ctx, crawler.NewCrawler(graph), root, failingSink{}, l)
		require.NoError(t, err)
		require.True(t, users.Contains(u1))
		require.Equal(t, 1, logs.FilterMessage("failed to report group cycles").Len())
	})
}

type failingSink struct{}

func (failingSink) Notify(context.Context, notify.Notification) error {
	return errors.New("sink unavailable")
}
