package saes

import (
	"runtime"
	"sync"
)

// maxWorkers bounds the goroutines started by one bulk call.
const maxWorkers = 4

func (c *Cipher) workerCount(blocks int) int {
	w := runtime.NumCPU()
	if c.workers > 0 {
		w = c.workers
	}
	return max(min(w, maxWorkers, blocks), 1)
}

// parallel splits [0, blocks) into contiguous ranges and runs fn on each in
// its own goroutine, returning once all ranges are done. Ranges never overlap,
// so fn may write its slice of a shared output without locking.
func (c *Cipher) parallel(blocks int, fn func(lo, hi int)) {
	w := c.workerCount(blocks)
	if w == 1 {
		fn(0, blocks)
		return
	}

	per, rem := blocks/w, blocks%w
	var wg sync.WaitGroup
	lo := 0
	for i := 0; i < w; i++ {
		hi := lo + per
		if i < rem {
			hi++
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
		lo = hi
	}
	wg.Wait()
}
