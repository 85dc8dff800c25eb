package directory

import (
	"context"
	"slices"
	"time"

	"github.com/Yiling-J/theine-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/openfga/membersync/internal/build"
	"github.com/openfga/membersync/pkg/crawler"
)

const (
	DefaultCacheMaxSize = 10000
	DefaultCacheTTL     = time.Minute
)

var (
	childrenCacheTotalCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "directory_children_cache_total_count",
		Help:      "The total number of group children lookups through the cache.",
	})

	childrenCacheHitCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "directory_children_cache_hit_count",
		Help:      "The total number of group children lookups served from the cache.",
	})
)

// CachedDirectory caches the children of groups read from another directory
// for a fixed TTL. Concurrent misses for the same group share one read.
type CachedDirectory struct {
	crawler.GroupDirectory

	cache       *theine.Cache[uuid.UUID, []crawler.ChildRef]
	lookupGroup singleflight.Group
	maxSize     int64
	ttl         time.Duration
}

var _ crawler.GroupDirectory = (*CachedDirectory)(nil)

type CachedDirectoryOpt func(*CachedDirectory)

func WithCacheMaxSize(n int64) CachedDirectoryOpt {
	return func(c *CachedDirectory) {
		c.maxSize = n
	}
}

func WithCacheTTL(ttl time.Duration) CachedDirectoryOpt {
	return func(c *CachedDirectory) {
		c.ttl = ttl
	}
}

// NewCachedDirectory wraps inner.
func NewCachedDirectory(inner crawler.GroupDirectory, opts ...CachedDirectoryOpt) (*CachedDirectory, error) {
	c := &CachedDirectory{
		GroupDirectory: inner,
		maxSize:        DefaultCacheMaxSize,
		ttl:            DefaultCacheTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	cache, err := theine.NewBuilder[uuid.UUID, []crawler.ChildRef](c.maxSize).Build()
	if err != nil {
		return nil, err
	}
	c.cache = cache

	return c, nil
}

// Children see [crawler.GroupDirectory].Children. Errors are never cached.
func (c *CachedDirectory) Children(ctx context.Context, groupID uuid.UUID) ([]crawler.ChildRef, error) {
	childrenCacheTotalCounter.Inc()

	if children, ok := c.cache.Get(groupID); ok {
		childrenCacheHitCounter.Inc()
		return slices.Clone(children), nil
	}

	// the read is shared with concurrent callers and must outlive this one
	sharedCtx := context.WithoutCancel(ctx)
	ch := c.lookupGroup.DoChan(groupID.String(), func() (interface{}, error) {
		children, err := c.GroupDirectory.Children(sharedCtx, groupID)
		if err != nil {
			return nil, err
		}
		c.cache.SetWithTTL(groupID, children, 1, c.ttl)
		return children, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]crawler.ChildRef)), nil
	}
}

// Exists see [crawler.GroupDirectory].Exists. A cached group is known to exist.
func (c *CachedDirectory) Exists(ctx context.Context, groupID uuid.UUID) (bool, error) {
	if _, ok := c.cache.Get(groupID); ok {
		return true, nil
	}
	return c.GroupDirectory.Exists(ctx, groupID)
}

// Invalidate drops the cached children of groupID.
func (c *CachedDirectory) Invalidate(groupID uuid.UUID) {
	c.cache.Delete(groupID)
}

// Close releases the cache.
func (c *CachedDirectory) Close() {
	c.cache.Close()
}
