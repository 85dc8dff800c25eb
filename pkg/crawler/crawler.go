// Package crawler computes the transitive members of a group through nested
// group references. Groups are expanded concurrently and cycles are reported
// instead of followed.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/openfga/membersync/internal/build"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/membership"
)

// DefaultMaxConcurrentReads bounds concurrent [GroupDirectory.Children] calls.
const DefaultMaxConcurrentReads = 50

// ErrGroupNotFound is returned when the root group of a crawl does not exist.
var ErrGroupNotFound = errors.New("group not found")

var tracer = otel.Tracer("membersync/pkg/crawler")

var (
	expansionCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "crawl_expansion_count",
		Help:      "The total number of group expansions performed by the crawler.",
	})

	cycleCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "crawl_cycle_count",
		Help:      "The total number of nested group cycles detected by the crawler.",
	})

	fetchFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "crawl_fetch_failure_count",
		Help:      "The total number of groups whose children could not be read.",
	})
)

// Crawler walks a [GroupDirectory]. A Crawler holds no per-crawl state and
// may run several crawls at once.
type Crawler struct {
	directory          GroupDirectory
	observer           Observer
	logger             logger.Logger
	maxConcurrentReads int64
}

type CrawlerOption func(*Crawler)

// WithObserver registers o for the events of every crawl.
func WithObserver(o Observer) CrawlerOption {
	return func(c *Crawler) {
		c.observer = o
	}
}

func WithLogger(l logger.Logger) CrawlerOption {
	return func(c *Crawler) {
		c.logger = l
	}
}

// WithMaxConcurrentReads bounds the number of directory reads in flight.
// Values below 1 keep the default.
func WithMaxConcurrentReads(n int) CrawlerOption {
	return func(c *Crawler) {
		if n > 0 {
			c.maxConcurrentReads = int64(n)
		}
	}
}

func NewCrawler(directory GroupDirectory, opts ...CrawlerOption) *Crawler {
	c := &Crawler{
		directory:          directory,
		observer:           NoopObserver{},
		logger:             logger.NewNoopLogger(),
		maxConcurrentReads: DefaultMaxConcurrentReads,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// crawl is the state shared by all expansions of one Crawl call. Every field
// is safe for concurrent use; contention only happens per entry.
type crawl struct {
	*Crawler

	sem *semaphore.Weighted
	wg  conc.WaitGroup

	// claimed groups, also the reachable set: group id => struct{}
	visited sync.Map

	// discovered users: user id => struct{}
	users sync.Map

	// group id => *atomic.Int64
	expansions sync.Map

	// group id => []uuid.UUID, written once by the expansion that claimed the group
	edges sync.Map

	mu       sync.Mutex
	cycles   []CycleRecord  // GUARDED_BY(mu).
	failures []FetchFailure // GUARDED_BY(mu).
}

// Crawl returns every user reachable from root. It returns an error only when
// root cannot be resolved; failures to expand nested groups are reported in
// [Result.Failures] and the remaining branches are still crawled.
func (c *Crawler) Crawl(ctx context.Context, root uuid.UUID) (*Result, error) {
	ctx, span := tracer.Start(ctx, "crawler.Crawl")
	defer span.End()
	span.SetAttributes(attribute.String("root", root.String()))

	exists, err := c.directory.Exists(ctx, root)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to resolve root group '%s': %w", root, err)
	}
	if !exists {
		span.SetStatus(codes.Error, ErrGroupNotFound.Error())
		return nil, fmt.Errorf("%w: '%s'", ErrGroupNotFound, root)
	}

	cr := &crawl{
		Crawler: c,
		sem:     semaphore.NewWeighted(c.maxConcurrentReads),
	}

	cr.wg.Go(func() {
		cr.expand(ctx, root, nil)
	})
	cr.wg.Wait()

	result := cr.result(root)
	span.SetAttributes(
		attribute.Int("users", result.Users.Len()),
		attribute.Int("groups", len(result.Groups)),
		attribute.Int("cycles", len(result.Cycles)),
		attribute.Int("failures", len(result.Failures)),
	)

	return result, nil
}

// expand resolves groupID reached through path, the chain of ancestors on
// this branch.
func (cr *crawl) expand(ctx context.Context, groupID uuid.UUID, path []uuid.UUID) {
	if i := slices.Index(path, groupID); i >= 0 {
		cr.recordCycle(ctx, NewCycleRecord(path[i:]...))
		return
	}

	if _, claimed := cr.visited.LoadOrStore(groupID, struct{}{}); claimed {
		return
	}
	cr.observer.GroupFound(ctx, groupID)

	children, err := cr.children(ctx, groupID)
	if err != nil {
		cr.recordFailure(ctx, groupID, err)
		return
	}

	branch := append(slices.Clip(path), groupID)
	var groups []uuid.UUID
	seen := make(map[uuid.UUID]struct{})
	for _, child := range children {
		switch child.Kind {
		case ChildKindUser:
			if _, seen := cr.users.LoadOrStore(child.ID, struct{}{}); !seen {
				cr.observer.UserFound(ctx, child.ID)
			}
		case ChildKindGroup:
			if _, dup := seen[child.ID]; dup {
				continue
			}
			seen[child.ID] = struct{}{}
			groups = append(groups, child.ID)
			childID := child.ID
			cr.wg.Go(func() {
				cr.expand(ctx, childID, branch)
			})
		default:
			cr.logger.WarnWithContext(ctx, "ignoring child of unknown kind",
				zap.String("group_id", groupID.String()),
				zap.String("child", child.String()),
			)
		}
	}
	cr.edges.Store(groupID, groups)
}

func (cr *crawl) children(ctx context.Context, groupID uuid.UUID) ([]ChildRef, error) {
	if err := cr.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer cr.sem.Release(1)

	counter, _ := cr.expansions.LoadOrStore(groupID, new(atomic.Int64))
	counter.(*atomic.Int64).Add(1)
	expansionCounter.Inc()

	return cr.directory.Children(ctx, groupID)
}

func (cr *crawl) recordCycle(ctx context.Context, cycle CycleRecord) {
	cycleCounter.Inc()
	cr.logger.DebugWithContext(ctx, "nested group cycle detected", zap.Stringer("cycle", cycle))

	cr.mu.Lock()
	cr.cycles = append(cr.cycles, cycle)
	cr.mu.Unlock()

	cr.observer.CycleFound(ctx, cycle)
}

func (cr *crawl) recordFailure(ctx context.Context, groupID uuid.UUID, err error) {
	fetchFailureCounter.Inc()
	cr.logger.WarnWithContext(ctx, "failed to expand group",
		zap.String("group_id", groupID.String()),
		zap.Error(err),
	)

	cr.mu.Lock()
	cr.failures = append(cr.failures, FetchFailure{GroupID: groupID, Err: err})
	cr.mu.Unlock()

	cr.observer.FetchFailed(ctx, groupID, err)
}

// result must only be called after all expansions have finished.
func (cr *crawl) result(root uuid.UUID) *Result {
	r := &Result{
		Root:       root,
		Users:      membership.Set{},
		Expansions: make(map[uuid.UUID]int),
		Edges:      make(map[uuid.UUID][]uuid.UUID),
		Cycles:     cr.cycles,
		Failures:   cr.failures,
	}

	cr.users.Range(func(key, _ any) bool {
		r.Users.Add(membership.Member(key.(uuid.UUID)))
		return true
	})
	cr.visited.Range(func(key, _ any) bool {
		r.Groups = append(r.Groups, key.(uuid.UUID))
		return true
	})
	cr.expansions.Range(func(key, value any) bool {
		r.Expansions[key.(uuid.UUID)] = int(value.(*atomic.Int64).Load())
		return true
	})
	cr.edges.Range(func(key, value any) bool {
		r.Edges[key.(uuid.UUID)] = value.([]uuid.UUID)
		return true
	})

	slices.SortFunc(r.Groups, compareIDs)
	slices.SortFunc(r.Cycles, func(a, b CycleRecord) int {
		return slices.CompareFunc(a.path, b.path, compareIDs)
	})
	slices.SortFunc(r.Failures, func(a, b FetchFailure) int {
		return compareIDs(a.GroupID, b.GroupID)
	})

	return r
}

func compareIDs(a, b uuid.UUID) int {
	return slices.Compare(a[:], b[:])
}
