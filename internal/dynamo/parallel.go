package dynamo

import (
	"runtime"
	"sync"
)

// Chunks splits [0, n) into at most workers contiguous ranges, none
// shorter than minChunk unless n itself is.
func Chunks(n, minChunk, workers int) [][2]int {
	if n <= 0 {
		return nil
	}
	if minChunk < 1 {
		minChunk = 1
	}
	workers = max(1, min(workers, n/minChunk))
	size := (n + workers - 1) / workers

	out := make([][2]int, 0, workers)
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}

// ParallelFor runs fn over the chunks of [0, n), one goroutine per chunk
// beyond the first, which runs on the caller's goroutine.
func ParallelFor(n, minChunk int, fn func(start, end int)) {
	chunks := Chunks(n, minChunk, runtime.GOMAXPROCS(0))
	if len(chunks) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(chunks) - 1)
	for _, c := range chunks[1:] {
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(c[0], c[1])
	}
	fn(chunks[0][0], chunks[0][1])
	wg.Wait()
}
