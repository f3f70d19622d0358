package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// PanicError is returned for an item whose task panicked.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Batch runs fn over items with at most workers in flight and a per-item
// timeout. A failing item does not stop the others. The returned slice has
// one entry per item, nil where fn succeeded.
//
//	errs := async.Batch(ctx, days, 4, time.Minute, func(ctx context.Context, day time.Time) error {
//		_, err := aggregator.AggregateDaily(ctx, day)
//		return err
//	})
func Batch[T any](ctx context.Context, items []T, workers int, timeout time.Duration,
	fn func(context.Context, T) error) []error {

	if workers <= 0 {
		workers = 1
	}
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(workers)
	var mu sync.Mutex
	for i, item := range items {
		g.Go(func() error {
			err := run(ctx, timeout, item, fn)
			mu.Lock()
			errs[i] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func run[T any](ctx context.Context, timeout time.Duration, item T, fn func(context.Context, T) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, item)
}

// Failed counts the non-nil entries of a Batch result.
func Failed(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
