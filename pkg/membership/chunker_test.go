package membership

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newMembers(n int) []MemberIdentity {
	members := make([]MemberIdentity, 0, n)
	for i := 0; i < n; i++ {
		members = append(members, Member(uuid.New()))
	}
	return members
}

func newMembershipSet(n int) MembershipSet {
	return MembershipSet{
		Destination: Destination{Type: "group", ID: "engineering"},
		JobID:       "job-1",
		RunID:       NewRunID(),
		Members:     newMembers(n),
	}
}

func TestSplit(t *testing.T) {
	t.Run("five_members_chunk_size_two", func(t *testing.T) {
		set := newMembershipSet(5)

		chunks, err := Split(set, 2)
		require.NoError(t, err)
		require.Len(t, chunks, 3)

		sizes := []int{len(chunks[0].Members), len(chunks[1].Members), len(chunks[2].Members)}
		require.Equal(t, []int{2, 2, 1}, sizes)

		for i, c := range chunks {
			require.Equal(t, 3, c.Chunk.TotalChunkCount)
			require.Equal(t, i, c.Chunk.ChunkIndex)
			require.Equal(t, i == 2, c.Chunk.IsLastChunk)
			require.Equal(t, set.RunID, c.RunID)
			require.Equal(t, set.Destination, c.Destination)
			require.Equal(t, set.JobID, c.JobID)
		}
	})

	t.Run("empty_membership_yields_one_empty_chunk", func(t *testing.T) {
		set := newMembershipSet(0)
		set.Exclusionary = true

		chunks, err := Split(set, DefaultMaxMembersPerChunk)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		require.Empty(t, chunks[0].Members)
		require.True(t, chunks[0].Chunk.IsLastChunk)
		require.Equal(t, 1, chunks[0].Chunk.TotalChunkCount)
		require.True(t, chunks[0].Exclusionary)
	})

	t.Run("exact_multiple", func(t *testing.T) {
		chunks, err := Split(newMembershipSet(6), 3)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		require.Len(t, chunks[1].Members, 3)
	})

	t.Run("invalid_chunk_size", func(t *testing.T) {
		_, err := Split(newMembershipSet(3), 0)
		require.ErrorIs(t, err, ErrInvalidChunkSize)
	})

	t.Run("does_not_mutate_input", func(t *testing.T) {
		set := newMembershipSet(4)
		original := append([]MemberIdentity(nil), set.Members...)

		chunks, err := Split(set, 3)
		require.NoError(t, err)
		chunks[0].Members[0] = Member(uuid.New())

		require.Equal(t, original, set.Members)
	})
}

func TestMerge(t *testing.T) {
	t.Run("no_chunks", func(t *testing.T) {
		_, err := Merge(nil)
		require.ErrorIs(t, err, ErrNoPartsToMerge)
		require.EqualError(t, err, "no parts to merge")
	})

	t.Run("order_independent", func(t *testing.T) {
		set := newMembershipSet(10)
		chunks, err := Split(set, 3)
		require.NoError(t, err)

		reversed := make([]MembershipSet, 0, len(chunks))
		for i := len(chunks) - 1; i >= 0; i-- {
			reversed = append(reversed, chunks[i])
		}

		a, err := Merge(chunks)
		require.NoError(t, err)
		b, err := Merge(reversed)
		require.NoError(t, err)

		require.True(t, a.MemberSet().Equal(b.MemberSet()))
		require.Equal(t, set.RunID, b.RunID)
		require.True(t, b.Chunk.IsLastChunk)
		require.Equal(t, 1, b.Chunk.TotalChunkCount)
	})

	t.Run("mismatched_runs", func(t *testing.T) {
		a, err := Split(newMembershipSet(1), 1)
		require.NoError(t, err)
		b, err := Split(newMembershipSet(1), 1)
		require.NoError(t, err)

		_, err = Merge(append(a, b...))
		require.ErrorIs(t, err, ErrMismatchedChunks)
	})
}

func TestSplitMergeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		set := newMembershipSet(r.Intn(50))
		k := 1 + r.Intn(12)

		chunks, err := Split(set, k)
		require.NoError(t, err)

		lastChunks := 0
		for _, c := range chunks {
			require.Equal(t, len(chunks), c.Chunk.TotalChunkCount)
			require.LessOrEqual(t, len(c.Members), k)
			if c.Chunk.IsLastChunk {
				lastChunks++
			}
		}
		require.Equal(t, 1, lastChunks)

		r.Shuffle(len(chunks), func(i, j int) { chunks[i], chunks[j] = chunks[j], chunks[i] })

		merged, err := Merge(chunks)
		require.NoError(t, err)
		require.True(t, set.MemberSet().Equal(merged.MemberSet()), "members=%d k=%d", len(set.Members), k)
	}
}

func TestPartID(t *testing.T) {
	set := newMembershipSet(7)
	chunks, err := Split(set, 3)
	require.NoError(t, err)

	parts := Parts(chunks)
	require.Len(t, parts, 3)

	seen := map[string]struct{}{}
	for i, p := range parts {
		require.Equal(t, PartID(chunks[i]), p.PartID)
		seen[p.PartID] = struct{}{}
	}
	require.Len(t, seen, 3)

	t.Run("stable_under_member_reordering", func(t *testing.T) {
		c := chunks[0]
		shuffled := c
		shuffled.Members = []MemberIdentity{c.Members[2], c.Members[0], c.Members[1]}
		require.Equal(t, PartID(c), PartID(shuffled))
	})

	t.Run("empty_chunks_differ_by_index", func(t *testing.T) {
		a := MembershipSet{Chunk: ChunkMeta{ChunkIndex: 0}}
		b := MembershipSet{Chunk: ChunkMeta{ChunkIndex: 1}}
		require.NotEqual(t, PartID(a), PartID(b))
	})
}
