package directory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/openfga/membersync/internal/mocks"
	"github.com/openfga/membersync/pkg/crawler"
	"github.com/openfga/membersync/pkg/testutils"
)

func TestGraph(t *testing.T) {
	ctx := context.Background()
	ids := testutils.UUIDs("graph", 3)
	g := NewGraph()

	exists, err := g.Exists(ctx, ids[0])
	require.NoError(t, err)
	require.False(t, exists)

	_, err = g.Children(ctx, ids[0])
	require.ErrorIs(t, err, crawler.ErrGroupNotFound)

	g.AddGroup(ids[0], crawler.UserRef(ids[1]))
	g.AddChild(ids[0], crawler.GroupRef(ids[2]))

	children, err := g.Children(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, []crawler.ChildRef{crawler.UserRef(ids[1]), crawler.GroupRef(ids[2])}, children)

	t.Run("children_are_copies", func(t *testing.T) {
		children[0] = crawler.UserRef(uuid.Nil)
		again, err := g.Children(ctx, ids[0])
		require.NoError(t, err)
		require.Equal(t, ids[1], again[0].ID)
	})

	t.Run("remove", func(t *testing.T) {
		g.RemoveGroup(ids[0])
		exists, err := g.Exists(ctx, ids[0])
		require.NoError(t, err)
		require.False(t, exists)
		require.Empty(t, g.Groups())
	})
}

func TestLoadGraphFile(t *testing.T) {
	ctx := context.Background()
	g, err := LoadGraphFile("testdata/groups.yaml")
	require.NoError(t, err)
	require.Len(t, g.Groups(), 4)

	root := uuid.MustParse("9daff68d-c8bd-5da6-9690-0e716c1b61e9")
	children, err := g.Children(ctx, root)
	require.NoError(t, err)
	require.Len(t, children, 2)
	for _, child := range children {
		require.Equal(t, crawler.ChildKindGroup, child.Kind)
	}

	sre := uuid.MustParse("6359bc99-b34c-57ef-86a3-c4bdf6700dcc")
	children, err = g.Children(ctx, sre)
	require.NoError(t, err)
	require.Equal(t, []crawler.ChildKind{crawler.ChildKindUser, crawler.ChildKindUser, crawler.ChildKindGroup},
		[]crawler.ChildKind{children[0].Kind, children[1].Kind, children[2].Kind})
}

func TestLoadGraphErrors(t *testing.T) {
	ids := testutils.UUIDs("fixture", 2)

	tests := []struct {
		name    string
		fixture string
	}{
		{
			name:    "not_yaml",
			fixture: "groups: [",
		},
		{
			name:    "unknown_field",
			fixture: "groups:\n  - id: " + ids[0].String() + "\n    owners: []\n",
		},
		{
			name:    "invalid_group_id",
			fixture: "groups:\n  - id: nope\n",
		},
		{
			name:    "invalid_user_id",
			fixture: "groups:\n  - id: " + ids[0].String() + "\n    users: [nope]\n",
		},
		{
			name:    "invalid_nested_group_id",
			fixture: "groups:\n  - id: " + ids[0].String() + "\n    groups: [nope]\n",
		},
		{
			name:    "duplicate_group",
			fixture: "groups:\n  - id: " + ids[1].String() + "\n  - id: " + ids[1].String() + "\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadGraph(strings.NewReader(tc.fixture))
			require.ErrorIs(t, err, ErrInvalidFixture)
		})
	}

	t.Run("missing_file", func(t *testing.T) {
		_, err := LoadGraphFile("testdata/missing.yaml")
		require.Error(t, err)
	})
}

func TestCachedDirectory(t *testing.T) {
	ctx := context.Background()
	ids := testutils.UUIDs("cached", 2)
	children := []crawler.ChildRef{crawler.UserRef(ids[1])}

	t.Run("second_read_is_cached", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		inner := mocks.NewMockGroupDirectory(ctrl)
		inner.EXPECT().Children(gomock.Any(), ids[0]).Times(1).Return(children, nil)

		cached, err := NewCachedDirectory(inner)
		require.NoError(t, err)
		t.Cleanup(cached.Close)

		for i := 0; i < 3; i++ {
			got, err := cached.Children(ctx, ids[0])
			require.NoError(t, err)
			require.Equal(t, children, got)
		}

		exists, err := cached.Exists(ctx, ids[0])
		require.NoError(t, err)
		require.True(t, exists)
	})

	t.Run("errors_are_not_cached", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		inner := mocks.NewMockGroupDirectory(ctrl)
		boom := errors.New("boom")
		gomock.InOrder(
			inner.EXPECT().Children(gomock.Any(), ids[0]).Return(nil, boom),
			inner.EXPECT().Children(gomock.Any(), ids[0]).Return(children, nil),
		)

		cached, err := NewCachedDirectory(inner)
		require.NoError(t, err)
		t.Cleanup(cached.Close)

		_, err = cached.Children(ctx, ids[0])
		require.ErrorIs(t, err, boom)

		got, err := cached.Children(ctx, ids[0])
		require.NoError(t, err)
		require.Equal(t, children, got)
	})

	t.Run("cancelled_caller_does_not_fail_waiters", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})

		ctrl := gomock.NewController(t)
		inner := mocks.NewMockGroupDirectory(ctrl)
		inner.EXPECT().Children(gomock.Any(), ids[0]).Times(1).DoAndReturn(
			func(ctx context.Context, _ uuid.UUID) ([]crawler.ChildRef, error) {
				close(started)
				<-release
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				return children, nil
			})

		cached, err := NewCachedDirectory(inner)
		require.NoError(t, err)
		t.Cleanup(cached.Close)

		firstCtx, cancel := context.WithCancel(ctx)
		firstErr := make(chan error, 1)
		go func() {
			_, err := cached.Children(firstCtx, ids[0])
			firstErr <- err
		}()
		<-started
		cancel()
		require.ErrorIs(t, <-firstErr, context.Canceled)

		type result struct {
			children []crawler.ChildRef
			err      error
		}
		second := make(chan result, 1)
		go func() {
			got, err := cached.Children(ctx, ids[0])
			second <- result{got, err}
		}()
		close(release)

		res := <-second
		require.NoError(t, res.err)
		require.Equal(t, children, res.children)
	})

	t.Run("invalidate", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		inner := mocks.NewMockGroupDirectory(ctrl)
		inner.EXPECT().Children(gomock.Any(), ids[0]).Times(2).Return(children, nil)

		cached, err := NewCachedDirectory(inner, WithCacheTTL(time.Hour), WithCacheMaxSize(10))
		require.NoError(t, err)
		t.Cleanup(cached.Close)

		_, err = cached.Children(ctx, ids[0])
		require.NoError(t, err)
		cached.Invalidate(ids[0])
		_, err = cached.Children(ctx, ids[0])
		require.NoError(t, err)
	})

	t.Run("exists_falls_through_on_miss", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		inner := mocks.NewMockGroupDirectory(ctrl)
		inner.EXPECT().Exists(gomock.Any(), ids[0]).Return(false, nil)

		cached, err := NewCachedDirectory(inner)
		require.NoError(t, err)
		t.Cleanup(cached.Close)

		exists, err := cached.Exists(ctx, ids[0])
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("concurrent_reads", func(t *testing.T) {
		cached, err := NewCachedDirectory(NewGraph())
		require.NoError(t, err)
		t.Cleanup(cached.Close)

		graph := cached.GroupDirectory.(*Graph)
		graph.AddGroup(ids[0], children...)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := cached.Children(ctx, ids[0])
				if err != nil {
					t.Errorf("children: %v", err)
					return
				}
				if len(got) != 1 {
					t.Errorf("expected one child, got %d", len(got))
				}
			}()
		}
		wg.Wait()
	})
}
