package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// WithSignals returns a context cancelled on SIGINT or SIGTERM.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(ch)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// Workers tracks background loops so shutdown can wait for them to return.
type Workers struct {
	log *slog.Logger
	g   errgroup.Group
}

func NewWorkers(log *slog.Logger) *Workers {
	return &Workers{log: log}
}

// Go starts fn. A non-nil error is logged and reported by Wait.
func (w *Workers) Go(name string, fn func() error) {
	w.g.Go(func() error {
		err := fn()
		if err != nil {
			w.log.Error("worker stopped with error", "worker", name, "err", err)
		}
		return err
	})
}

// Wait blocks until every worker returned or ctx is done.
func (w *Workers) Wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- w.g.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Step is one named teardown action.
type Step struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Drain runs steps in order under one shared deadline. Failed steps are
// logged and do not stop later ones.
func Drain(log *slog.Logger, timeout time.Duration, steps ...Step) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, s := range steps {
		if err := s.Fn(ctx); err != nil {
			log.Error("shutdown step failed", "step", s.Name, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
