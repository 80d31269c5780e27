package workers

import (
	"context"
	"sync"
)

type job[T any] struct {
	index int
	item  T
}

// Each calls fn for every item using n workers and returns the errors by
// item index. Items not started before ctx ends get ctx.Err().
func Each[T any](ctx context.Context, n int, items []T, fn func(ctx context.Context, item T) error) []error {
	errs := make([]error, len(items))
	if len(items) == 0 {
		return errs
	}
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}

	jobs := make(chan job[T])
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					errs[j.index] = err
					continue
				}
				errs[j.index] = fn(ctx, j.item)
			}
		}()
	}

	for i, item := range items {
		select {
		case jobs <- job[T]{index: i, item: item}:
		case <-ctx.Done():
			for k := i; k < len(items); k++ {
				errs[k] = ctx.Err()
			}
			close(jobs)
			wg.Wait()
			return errs
		}
	}
	close(jobs)
	wg.Wait()
	return errs
}
