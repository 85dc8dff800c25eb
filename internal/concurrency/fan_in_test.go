package concurrency

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestDrain(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})

	ch := make(chan int, 10)
	for i := 1; i <= 10; i++ {
		ch <- i
	}
	close(ch)

	sum := 0
	wg := Drain(ch, func(v int) {
		sum += v
	})
	wg.Wait()

	require.Equal(t, 55, sum)
}

func TestDrainEmptyChannel(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})

	ch := make(chan string)
	close(ch)

	calls := 0
	Drain(ch, func(string) { calls++ }).Wait()
	require.Zero(t, calls)
}
