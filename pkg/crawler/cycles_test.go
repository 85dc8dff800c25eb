package crawler

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openfga/membersync/pkg/testutils"
)

func TestFindAllCycles(t *testing.T) {
	ids := testutils.UUIDs("cycles", 4)
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, compareIDs)
	a, b, c, d := sorted[0], sorted[1], sorted[2], sorted[3]

	// a -> b -> c -> a, b -> a, d -> d
	r := &Result{
		Root:   a,
		Groups: []uuid.UUID{a, b, c, d},
		Edges: map[uuid.UUID][]uuid.UUID{
			a: {b, d},
			b: {c, a},
			c: {a},
			d: {d},
		},
	}

	cycles := FindAllCycles(r)
	paths := make([][]uuid.UUID, 0, len(cycles))
	for _, cycle := range cycles {
		paths = append(paths, cycle.Path())
	}

	require.Equal(t, [][]uuid.UUID{
		{a, b},
		{a, b, c},
		{d},
	}, paths)
}

func TestFindAllCyclesAcyclic(t *testing.T) {
	ids := testutils.UUIDs("acyclic", 3)
	r := &Result{
		Root:  ids[0],
		Edges: map[uuid.UUID][]uuid.UUID{ids[0]: {ids[1], ids[2]}, ids[1]: {ids[2]}},
	}
	require.Empty(t, FindAllCycles(r))
}

func TestRotateToSmallest(t *testing.T) {
	ids := testutils.UUIDs("rotate", 3)
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, compareIDs)

	require.Equal(t, sorted, rotateToSmallest([]uuid.UUID{sorted[1], sorted[2], sorted[0]}))
	require.Empty(t, rotateToSmallest(nil))
}

func TestEncodeDOT(t *testing.T) {
	ids := testutils.UUIDs("dot", 2)
	r := &Result{
		Root:   ids[0],
		Groups: ids,
		Edges:  map[uuid.UUID][]uuid.UUID{ids[0]: {ids[1]}, ids[1]: {ids[1]}},
	}

	out, err := EncodeDOT(r)
	require.NoError(t, err)

	dot := string(out)
	require.True(t, strings.HasPrefix(dot, "digraph groups {"))
	require.Contains(t, dot, "rankdir=LR")
	require.Equal(t, 1, strings.Count(dot, "doublecircle"))
	require.Contains(t, dot, `"`+ids[1].String()+`" -> "`+ids[1].String()+`"`, "self references are drawn")
}

func TestCycleRecordIsImmutable(t *testing.T) {
	ids := testutils.UUIDs("immutable", 2)
	path := []uuid.UUID{ids[0], ids[1]}
	record := NewCycleRecord(path...)

	path[0] = uuid.Nil
	got := record.Path()
	got[1] = uuid.Nil

	require.Equal(t, []uuid.UUID{ids[0], ids[1]}, record.Path())
	require.Equal(t, 2, record.Len())
	require.Empty(t, CycleRecord{}.String())
}
