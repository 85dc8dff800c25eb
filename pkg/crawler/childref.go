package crawler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

//go:generate mockgen -source childref.go -destination ../../internal/mocks/mock_group_directory.go -package mocks GroupDirectory

// ChildKind tells whether a [ChildRef] points to a user or a nested group.
type ChildKind int

const (
	ChildKindUnspecified ChildKind = iota
	ChildKindUser
	ChildKindGroup
)

func (k ChildKind) String() string {
	switch k {
	case ChildKindUser:
		return "user"
	case ChildKindGroup:
		return "group"
	default:
		return fmt.Sprintf("ChildKind(%d)", int(k))
	}
}

// ChildRef is a direct member of a group: either a user or another group.
type ChildRef struct {
	Kind ChildKind
	ID   uuid.UUID
}

// UserRef returns a reference to a user.
func UserRef(id uuid.UUID) ChildRef {
	return ChildRef{Kind: ChildKindUser, ID: id}
}

// GroupRef returns a reference to a nested group.
func GroupRef(id uuid.UUID) ChildRef {
	return ChildRef{Kind: ChildKindGroup, ID: id}
}

func (c ChildRef) String() string {
	return fmt.Sprintf("%s:%s", c.Kind, c.ID)
}

// GroupDirectory resolves the direct members of groups.
type GroupDirectory interface {
	// Children returns the direct members of groupID. Implementations return
	// an error wrapping [ErrGroupNotFound] when the group does not exist.
	Children(ctx context.Context, groupID uuid.UUID) ([]ChildRef, error)

	// Exists reports whether groupID exists.
	Exists(ctx context.Context, groupID uuid.UUID) (bool, error)
}
