package concurrency

import (
	"sync"
)

// Drain consumes ch on a single goroutine until it is closed, handing every
// message to drain. The returned WaitGroup is released once ch is exhausted.
func Drain[T any](ch <-chan T, drain func(T)) *sync.WaitGroup {
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for msg := range ch {
			drain(msg)
		}
	}()
	return wg
}
