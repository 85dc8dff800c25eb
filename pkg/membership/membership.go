// Package membership defines the membership data model exchanged between source
// providers and destinations, and the chunking protocol used to move large
// membership sets through size-limited transports.
package membership

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/openfga/membersync/pkg/id"
)

// Action tags a member with the change it represents. Equality of members never
// takes the action into account.
type Action int

const (
	ActionNone Action = iota
	ActionAdd
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionRemove:
		return "remove"
	default:
		return "none"
	}
}

// ParseAction is the inverse of Action.String. Unknown values map to ActionNone.
func ParseAction(s string) Action {
	switch s {
	case "add":
		return ActionAdd
	case "remove":
		return ActionRemove
	default:
		return ActionNone
	}
}

// MemberIdentity identifies a single member by an opaque 128-bit id.
type MemberIdentity struct {
	ID     uuid.UUID
	Action Action
}

func Member(id uuid.UUID) MemberIdentity {
	return MemberIdentity{ID: id}
}

func (m MemberIdentity) String() string {
	return m.ID.String()
}

// Destination references the group or channel being synchronized.
type Destination struct {
	Type string
	ID   string
}

func (d Destination) String() string {
	return fmt.Sprintf("%s:%s", d.Type, d.ID)
}

func (d Destination) IsZero() bool {
	return d.Type == "" && d.ID == ""
}

// ChunkMeta describes where a chunk sits within the run that produced it.
type ChunkMeta struct {
	// ChunkIndex is the zero based position of the chunk within its run.
	ChunkIndex int

	// TotalChunkCount is the number of chunks the run was split into. Every
	// chunk of a run carries the same value.
	TotalChunkCount int

	// IsLastChunk is true for exactly one chunk of a run.
	IsLastChunk bool
}

// MembershipSet is the desired membership of a destination as produced by a
// source provider for a single run, or one chunk of it.
type MembershipSet struct {
	Destination Destination

	// JobID identifies the sync job the run belongs to. Violation counters are
	// tracked per job.
	JobID string

	// Exclusionary sets list members to remove rather than the full target state.
	Exclusionary bool

	RunID   string
	Members []MemberIdentity
	Chunk   ChunkMeta
}

// MemberSet returns the members as a Set. Duplicate ids collapse into one entry.
func (m MembershipSet) MemberSet() Set {
	return NewSet(m.Members...)
}

// ChunkPart is one chunk of a run plus the identifier used to deduplicate its
// delivery during fan-in.
type ChunkPart struct {
	PartID string
	Set    MembershipSet
}

// NewRunID returns a new, time ordered, run identifier.
func NewRunID() string {
	return id.MustNewString()
}

// Set is a collection of members keyed by id.
type Set map[uuid.UUID]MemberIdentity

// NewSet builds a Set from members. Later duplicates overwrite earlier ones.
func NewSet(members ...MemberIdentity) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s[m.ID] = m
	}
	return s
}

// SetOf builds a Set of untagged members.
func SetOf(ids ...uuid.UUID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = MemberIdentity{ID: id}
	}
	return s
}

func (s Set) Add(m MemberIdentity) {
	s[m.ID] = m
}

func (s Set) Contains(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Equal reports whether both sets hold the same ids. Actions are ignored.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// Members returns the members ordered by id.
func (s Set) Members() []MemberIdentity {
	sorted := NewSortedSet()
	for _, m := range s {
		sorted.Add(m)
	}
	return sorted.Values()
}
