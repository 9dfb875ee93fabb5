// Package eval implements the Evaluation Engine of spec.md §4.2: it
// scores one or more Prompts over a Dataset using reference-based,
// consistency, and robustness metric suites, fanning out case scoring
// with bounded concurrency.
package eval

import (
	"context"
	"sync"
)

// runCases scores a slice of n items concurrently, bounded by
// parallelism, preserving result ordering by index regardless of
// completion order (spec.md §4.2's per-case ordering guarantee).
// Cancellation is cooperative: once ctx is done, no new work starts,
// but already-dispatched workers finish or hit their own deadline.
// This generalizes orchestration/executor.go's bounded worker-pool
// shape from "DAG levels" to "independent dataset cases", which need
// no level barrier since cases don't depend on each other.
func runCases[T any](ctx context.Context, n int, parallelism int, work func(ctx context.Context, index int) T) []T {
	if parallelism < 1 {
		parallelism = 1
	}
	results := make([]T, n)
	if n == 0 {
		return results
	}

	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

dispatch:
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break dispatch // stop scheduling new cases; in-flight ones below still drain
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = work(ctx, idx)
		}(i)
	}
	wg.Wait()
	return results
}
