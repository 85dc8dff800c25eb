package membership

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// DefaultMaxMembersPerChunk keeps an encoded chunk under the 256KB message limit of
// common brokers. Callers should read the effective value from configuration.
const DefaultMaxMembersPerChunk = 3765

var (
	// ErrNoPartsToMerge is returned when Merge is called without chunks. An empty
	// result is never returned in that case because it would be indistinguishable
	// from a deliberately empty group.
	ErrNoPartsToMerge = errors.New("no parts to merge")

	ErrInvalidChunkSize = errors.New("max members per chunk must be at least 1")

	// ErrMismatchedChunks is returned when chunks of different runs or destinations
	// are merged together.
	ErrMismatchedChunks = errors.New("chunks belong to different runs")
)

// Split partitions set.Members into consecutive chunks of at most maxPerChunk
// members. It always returns at least one chunk, even for an empty membership.
// The input is not modified.
func Split(set MembershipSet, maxPerChunk int) ([]MembershipSet, error) {
	if maxPerChunk < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, maxPerChunk)
	}

	total := (len(set.Members) + maxPerChunk - 1) / maxPerChunk
	if total == 0 {
		total = 1
	}

	chunks := make([]MembershipSet, 0, total)
	for i := 0; i < total; i++ {
		start := i * maxPerChunk
		end := min(start+maxPerChunk, len(set.Members))

		members := make([]MemberIdentity, 0, end-start)
		if start < end {
			members = append(members, set.Members[start:end]...)
		}

		chunks = append(chunks, MembershipSet{
			Destination:  set.Destination,
			JobID:        set.JobID,
			Exclusionary: set.Exclusionary,
			RunID:        set.RunID,
			Members:      members,
			Chunk: ChunkMeta{
				ChunkIndex:      i,
				TotalChunkCount: total,
				IsLastChunk:     i == total-1,
			},
		})
	}

	return chunks, nil
}

// Merge concatenates the members of chunks into one MembershipSet. Chunk order
// does not matter. All chunks must share run id and destination.
func Merge(chunks []MembershipSet) (MembershipSet, error) {
	if len(chunks) == 0 {
		return MembershipSet{}, ErrNoPartsToMerge
	}

	first := chunks[0]
	size := 0
	for _, c := range chunks {
		if c.RunID != first.RunID || c.Destination != first.Destination {
			return MembershipSet{}, fmt.Errorf("%w: run '%s' for '%s' and run '%s' for '%s'",
				ErrMismatchedChunks, first.RunID, first.Destination, c.RunID, c.Destination)
		}
		size += len(c.Members)
	}

	members := make([]MemberIdentity, 0, size)
	for _, c := range chunks {
		members = append(members, c.Members...)
	}

	return MembershipSet{
		Destination:  first.Destination,
		JobID:        first.JobID,
		Exclusionary: first.Exclusionary,
		RunID:        first.RunID,
		Members:      members,
		Chunk: ChunkMeta{
			TotalChunkCount: 1,
			IsLastChunk:     true,
		},
	}, nil
}

// Parts wraps chunks with their part identifiers.
func Parts(chunks []MembershipSet) []ChunkPart {
	parts := make([]ChunkPart, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, ChunkPart{PartID: PartID(c), Set: c})
	}
	return parts
}

// PartID derives a stable identifier from the chunk position and its member ids,
// so a redelivered chunk always maps to the same part.
func PartID(chunk MembershipSet) string {
	ids := make([]string, 0, len(chunk.Members))
	for _, m := range chunk.Members {
		ids = append(ids, m.ID.String())
	}
	slices.Sort(ids)

	d := xxhash.New()
	for _, s := range ids {
		_, _ = d.WriteString(s)
	}

	return fmt.Sprintf("%d-%016x", chunk.Chunk.ChunkIndex, d.Sum64())
}
