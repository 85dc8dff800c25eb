// Package directory provides [crawler.GroupDirectory] implementations.
package directory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/openfga/membersync/pkg/crawler"
)

// Graph is an in-memory group directory. It is safe for concurrent use.
type Graph struct {
	mu     sync.RWMutex
	groups map[uuid.UUID][]crawler.ChildRef // GUARDED_BY(mu).
}

var _ crawler.GroupDirectory = (*Graph)(nil)

func NewGraph() *Graph {
	return &Graph{groups: make(map[uuid.UUID][]crawler.ChildRef)}
}

// AddGroup registers groupID with the given direct members, replacing any
// members it had before.
func (g *Graph) AddGroup(groupID uuid.UUID, children ...crawler.ChildRef) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.groups[groupID] = slices.Clone(children)
}

// AddChild appends child to the members of parent, registering parent if needed.
func (g *Graph) AddChild(parent uuid.UUID, child crawler.ChildRef) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.groups[parent] = append(g.groups[parent], child)
}

// RemoveGroup forgets groupID. References to it from other groups are kept.
func (g *Graph) RemoveGroup(groupID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.groups, groupID)
}

// Groups returns the registered group ids in sorted order.
func (g *Graph) Groups() []uuid.UUID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return slices.SortedFunc(maps.Keys(g.groups), func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
}

// Children see [crawler.GroupDirectory].Children.
func (g *Graph) Children(_ context.Context, groupID uuid.UUID) ([]crawler.ChildRef, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	children, ok := g.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", crawler.ErrGroupNotFound, groupID)
	}
	return slices.Clone(children), nil
}

// Exists see [crawler.GroupDirectory].Exists.
func (g *Graph) Exists(_ context.Context, groupID uuid.UUID) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.groups[groupID]
	return ok, nil
}
