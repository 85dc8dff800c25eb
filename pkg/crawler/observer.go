package crawler

import (
	"context"

	"github.com/google/uuid"

	"github.com/openfga/membersync/internal/concurrency"
)

//go:generate mockgen -source observer.go -destination ../../internal/mocks/mock_observer.go -package mocks Observer

// Observer receives crawl events as they happen.
//
// Callbacks are invoked concurrently from the crawl's worker goroutines, so
// implementations must be safe for concurrent use. Use [ChannelObserver] to
// consume events from a single goroutine instead.
type Observer interface {
	// UserFound is called once per distinct user.
	UserFound(ctx context.Context, userID uuid.UUID)

	// GroupFound is called once per distinct group, including the root.
	GroupFound(ctx context.Context, groupID uuid.UUID)

	CycleFound(ctx context.Context, cycle CycleRecord)

	FetchFailed(ctx context.Context, groupID uuid.UUID, err error)
}

// NoopObserver ignores every event.
type NoopObserver struct{}

var _ Observer = NoopObserver{}

func (NoopObserver) UserFound(context.Context, uuid.UUID)          {}
func (NoopObserver) GroupFound(context.Context, uuid.UUID)         {}
func (NoopObserver) CycleFound(context.Context, CycleRecord)       {}
func (NoopObserver) FetchFailed(context.Context, uuid.UUID, error) {}

// EventKind identifies the callback an [Event] stands for.
type EventKind int

const (
	EventUserFound EventKind = iota + 1
	EventGroupFound
	EventCycleFound
	EventFetchFailed
)

func (k EventKind) String() string {
	switch k {
	case EventUserFound:
		return "user_found"
	case EventGroupFound:
		return "group_found"
	case EventCycleFound:
		return "cycle_found"
	case EventFetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

// Event is a single observer callback delivered through a [ChannelObserver].
type Event struct {
	Kind EventKind

	// ID is the user or group the event refers to. It is unset for cycles.
	ID uuid.UUID

	Cycle CycleRecord
	Err   error
}

// ChannelObserver funnels concurrent callbacks into one channel. Events are
// dropped once ctx passed to the callback is done, so a slow consumer can
// never block a cancelled crawl.
type ChannelObserver struct {
	events chan Event
}

var _ Observer = (*ChannelObserver)(nil)

// NewChannelObserver returns an observer whose channel holds up to buffer
// events before callbacks block.
func NewChannelObserver(buffer int) *ChannelObserver {
	return &ChannelObserver{events: make(chan Event, max(buffer, 0))}
}

// Events returns the channel events are delivered on.
func (o *ChannelObserver) Events() <-chan Event {
	return o.events
}

// Close closes the events channel. It must only be called once the crawl
// using this observer has returned.
func (o *ChannelObserver) Close() {
	close(o.events)
}

func (o *ChannelObserver) UserFound(ctx context.Context, userID uuid.UUID) {
	concurrency.TrySendThroughChannel(ctx, Event{Kind: EventUserFound, ID: userID}, o.events)
}

func (o *ChannelObserver) GroupFound(ctx context.Context, groupID uuid.UUID) {
	concurrency.TrySendThroughChannel(ctx, Event{Kind: EventGroupFound, ID: groupID}, o.events)
}

func (o *ChannelObserver) CycleFound(ctx context.Context, cycle CycleRecord) {
	concurrency.TrySendThroughChannel(ctx, Event{Kind: EventCycleFound, Cycle: cycle}, o.events)
}

func (o *ChannelObserver) FetchFailed(ctx context.Context, groupID uuid.UUID, err error) {
	concurrency.TrySendThroughChannel(ctx, Event{Kind: EventFetchFailed, ID: groupID, Err: err}, o.events)
}
