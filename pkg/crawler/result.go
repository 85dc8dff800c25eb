package crawler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/openfga/membersync/pkg/membership"
)

// CycleRecord is the ancestor chain of a detected cycle, from the first
// occurrence of the repeated group up to the group that referenced it again.
type CycleRecord struct {
	path []uuid.UUID
}

// NewCycleRecord copies path into a new record.
func NewCycleRecord(path ...uuid.UUID) CycleRecord {
	return CycleRecord{path: slices.Clone(path)}
}

// Path returns a copy of the groups forming the cycle.
func (c CycleRecord) Path() []uuid.UUID {
	return slices.Clone(c.path)
}

func (c CycleRecord) Len() int {
	return len(c.path)
}

// String renders the cycle closed on its first group, e.g. "a -> b -> a".
func (c CycleRecord) String() string {
	if len(c.path) == 0 {
		return ""
	}
	parts := make([]string, 0, len(c.path)+1)
	for _, id := range c.path {
		parts = append(parts, id.String())
	}
	parts = append(parts, c.path[0].String())
	return strings.Join(parts, " -> ")
}

// FetchFailure is a group whose children could not be read.
type FetchFailure struct {
	GroupID uuid.UUID
	Err     error
}

func (f FetchFailure) Error() string {
	return fmt.Sprintf("failed to expand group '%s': %v", f.GroupID, f.Err)
}

func (f FetchFailure) Unwrap() error {
	return f.Err
}

// Result is the outcome of one crawl.
type Result struct {
	Root uuid.UUID

	// Users holds every distinct user reachable from Root.
	Users membership.Set

	// Groups holds every distinct group reachable from Root, Root included,
	// ordered by id.
	Groups []uuid.UUID

	// Cycles holds the cycles seen while expanding. A group is expanded only
	// by the first branch that claims it, so a cycle can go unreported when
	// another branch reaches one of its groups first. Use FindAllCycles on
	// Edges for the complete set.
	Cycles   []CycleRecord
	Failures []FetchFailure

	// Expansions counts how many times the children of each group were read.
	Expansions map[uuid.UUID]int

	// Edges maps each expanded group to its direct child groups.
	Edges map[uuid.UUID][]uuid.UUID
}

// Err returns all fetch failures combined, or nil if the crawl was complete.
// Callers deriving membership from a partial crawl must treat a non-nil
// value as fatal.
func (r *Result) Err() error {
	var merr *multierror.Error
	for _, f := range r.Failures {
		merr = multierror.Append(merr, f)
	}
	return merr.ErrorOrNil()
}

// HasCycles reports whether at least one cycle was detected.
func (r *Result) HasCycles() bool {
	return len(r.Cycles) > 0
}
