package membership

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// SortedSet stores members (no duplicate ids) ordered by the string form of
// their id, so that output built from it is deterministic.
type SortedSet struct {
	inner *redblacktree.Tree
}

func NewSortedSet() *SortedSet {
	return &SortedSet{
		inner: redblacktree.NewWithStringComparator(),
	}
}

func (r *SortedSet) Add(m MemberIdentity) {
	r.inner.Put(m.ID.String(), m)
}

func (r *SortedSet) Exists(m MemberIdentity) bool {
	_, ok := r.inner.Get(m.ID.String())
	return ok
}

func (r *SortedSet) Size() int {
	return r.inner.Size()
}

// Values returns the members in ascending id order.
func (r *SortedSet) Values() []MemberIdentity {
	values := r.inner.Values()
	out := make([]MemberIdentity, 0, len(values))
	for _, v := range values {
		out = append(out, v.(MemberIdentity))
	}
	return out
}

// Strings returns the ids in ascending order.
func (r *SortedSet) Strings() []string {
	keys := r.inner.Keys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.(string))
	}
	return out
}
