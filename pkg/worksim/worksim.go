// Package worksim simulates latency and CPU cost so callers can inject it and
// tests can replace it.
//
// Suspend models a wait that yields (a remote call): it returns as soon as the
// context ends. Block models a short blocking hold that cannot be abandoned.
package worksim

import (
	"context"
	"time"
)

// Func waits for d or until ctx ends.
type Func func(ctx context.Context, d time.Duration) error

// Suspend waits for d unless ctx ends first.
func Suspend(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Block holds the calling goroutine for d regardless of ctx.
func Block(_ context.Context, d time.Duration) error {
	if d > 0 {
		time.Sleep(d)
	}
	return nil
}

// None returns immediately.
func None(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
