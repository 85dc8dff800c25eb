package membership

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrInvalidPayload is returned when an encoded chunk cannot be decoded.
var ErrInvalidPayload = errors.New("invalid chunk payload")

// EncodePart serializes a chunk part into a self-describing protobuf Struct.
func EncodePart(part ChunkPart) ([]byte, error) {
	members := make([]any, 0, len(part.Set.Members))
	for _, m := range part.Set.Members {
		if m.Action == ActionNone {
			members = append(members, m.ID.String())
			continue
		}
		members = append(members, map[string]any{
			"id":     m.ID.String(),
			"action": m.Action.String(),
		})
	}

	s, err := structpb.NewStruct(map[string]any{
		"partId":          part.PartID,
		"runId":           part.Set.RunID,
		"jobId":           part.Set.JobID,
		"destinationType": part.Set.Destination.Type,
		"destinationId":   part.Set.Destination.ID,
		"exclusionary":    part.Set.Exclusionary,
		"chunkIndex":      part.Set.Chunk.ChunkIndex,
		"totalChunkCount": part.Set.Chunk.TotalChunkCount,
		"isLastChunk":     part.Set.Chunk.IsLastChunk,
		"members":         members,
	})
	if err != nil {
		return nil, fmt.Errorf("encode chunk part: %w", err)
	}

	return proto.Marshal(s)
}

// DecodePart is the inverse of EncodePart.
func DecodePart(payload []byte) (ChunkPart, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(payload, s); err != nil {
		return ChunkPart{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	fields := s.GetFields()
	part := ChunkPart{
		PartID: fields["partId"].GetStringValue(),
		Set: MembershipSet{
			Destination: Destination{
				Type: fields["destinationType"].GetStringValue(),
				ID:   fields["destinationId"].GetStringValue(),
			},
			JobID:        fields["jobId"].GetStringValue(),
			Exclusionary: fields["exclusionary"].GetBoolValue(),
			RunID:        fields["runId"].GetStringValue(),
			Chunk: ChunkMeta{
				ChunkIndex:      int(fields["chunkIndex"].GetNumberValue()),
				TotalChunkCount: int(fields["totalChunkCount"].GetNumberValue()),
				IsLastChunk:     fields["isLastChunk"].GetBoolValue(),
			},
		},
	}

	if part.PartID == "" || part.Set.RunID == "" || part.Set.Chunk.TotalChunkCount < 1 {
		return ChunkPart{}, fmt.Errorf("%w: missing part id, run id or chunk count", ErrInvalidPayload)
	}

	values := fields["members"].GetListValue().GetValues()
	part.Set.Members = make([]MemberIdentity, 0, len(values))
	for _, v := range values {
		m, err := decodeMember(v)
		if err != nil {
			return ChunkPart{}, err
		}
		part.Set.Members = append(part.Set.Members, m)
	}

	return part, nil
}

func decodeMember(v *structpb.Value) (MemberIdentity, error) {
	raw := v.GetStringValue()
	action := ActionNone
	if obj := v.GetStructValue(); obj != nil {
		raw = obj.GetFields()["id"].GetStringValue()
		action = ParseAction(obj.GetFields()["action"].GetStringValue())
	}

	memberID, err := uuid.Parse(raw)
	if err != nil {
		return MemberIdentity{}, fmt.Errorf("%w: member id '%s': %w", ErrInvalidPayload, raw, err)
	}

	return MemberIdentity{ID: memberID, Action: action}, nil
}
