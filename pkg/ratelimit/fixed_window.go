// Package ratelimit implements a fixed-window admission controller with a
// bounded FIFO wait queue.
package ratelimit

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"
)

var ErrRejected = errors.New("rate limit exceeded")

type Options struct {
	PermitLimit int
	Window      time.Duration
	QueueLimit  int
}

// FixedWindow grants PermitLimit permits per Window. Requests arriving while
// no permit is left wait in a queue of at most QueueLimit entries and are
// admitted oldest first when the next window opens; anything beyond that is
// rejected immediately.
type FixedWindow struct {
	opts Options

	mu        sync.Mutex
	available int
	queue     *list.List // of chan struct{}
}

func NewFixedWindow(opts Options) *FixedWindow {
	if opts.PermitLimit < 0 {
		opts.PermitLimit = 0
	}
	if opts.QueueLimit < 0 {
		opts.QueueLimit = 0
	}
	return &FixedWindow{
		opts:      opts,
		available: opts.PermitLimit,
		queue:     list.New(),
	}
}

// Run replenishes permits at every window boundary until ctx ends.
func (l *FixedWindow) Run(ctx context.Context) {
	t := time.NewTicker(l.opts.Window)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.replenish()
		}
	}
}

// Acquire takes one permit, waiting in the queue if needed. It returns
// ErrRejected without waiting when both permits and queue are exhausted.
func (l *FixedWindow) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if l.available > 0 && l.queue.Len() == 0 {
		l.available--
		l.mu.Unlock()
		return nil
	}
	if l.queue.Len() >= l.opts.QueueLimit {
		l.mu.Unlock()
		return ErrRejected
	}
	ready := make(chan struct{})
	elem := l.queue.PushBack(ready)
	l.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		defer l.mu.Unlock()
		select {
		case <-ready:
			// granted while we were giving up; hand the permit back
			l.available++
			l.drain()
		default:
			l.queue.Remove(elem)
		}
		return ctx.Err()
	}
}

func (l *FixedWindow) replenish() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.available = l.opts.PermitLimit
	l.drain()
}

// drain admits queued waiters oldest first. Callers hold mu.
func (l *FixedWindow) drain() {
	for l.available > 0 && l.queue.Len() > 0 {
		front := l.queue.Front()
		l.queue.Remove(front)
		l.available--
		close(front.Value.(chan struct{}))
	}
}

func (l *FixedWindow) queued() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.Len()
}
