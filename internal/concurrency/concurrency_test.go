package concurrency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrySendThroughChannel(t *testing.T) {
	var testcases = map[string]struct {
		ctxCancelled bool
		message      struct{}
	}{
		`ctx_cancel`: {
			ctxCancelled: true,
			message:      struct{}{},
		},
		`no_ctx_cancel`: {
			ctxCancelled: false,
			message:      struct{}{},
		},
	}

	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			var channel chan struct{}
			ctx := context.Background()

			var cancelFunc context.CancelFunc
			if tc.ctxCancelled {
				channel = make(chan struct{})
				ctx, cancelFunc = context.WithCancel(ctx)
				cancelFunc()
			} else {
				channel = make(chan struct{}, 1)
			}
			TrySendThroughChannel(ctx, tc.message, channel)
			if tc.ctxCancelled {
				close(channel)
				_, ok := <-channel
				require.False(t, ok)
			} else {
				element, ok := <-channel
				require.True(t, ok)
				require.NotNil(t, element)
			}
		})
	}
}

func TestNewPool(t *testing.T) {
	t.Run("first_error_is_returned", func(t *testing.T) {
		p := NewPool(context.Background(), 2)
		boom := errors.New("boom")
		p.Go(func(ctx context.Context) error { return boom })
		p.Go(func(ctx context.Context) error { return nil })
		require.ErrorIs(t, p.Wait(), boom)
	})

	t.Run("limit_is_respected", func(t *testing.T) {
		var running, peak atomic.Int32
		p := NewPool(context.Background(), 3)
		for i := 0; i < 20; i++ {
			p.Go(func(ctx context.Context) error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				running.Add(-1)
				return nil
			})
		}
		require.NoError(t, p.Wait())
		require.LessOrEqual(t, peak.Load(), int32(3))
	})

	t.Run("non_positive_limit_runs_serially", func(t *testing.T) {
		p := NewPool(context.Background(), 0)
		count := 0
		for i := 0; i < 5; i++ {
			p.Go(func(ctx context.Context) error {
				count++
				return nil
			})
		}
		require.NoError(t, p.Wait())
		require.Equal(t, 5, count)
	})
}
