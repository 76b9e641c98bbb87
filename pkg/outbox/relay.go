package outbox

import (
	"context"
	"log/slog"
	"time"
)

type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error
}

type Relay struct {
	log       *slog.Logger
	store     Store
	dispatch  *Dispatcher
	relayID   string
	batchSize int
	interval  time.Duration
	lease     time.Duration
}

type RelayOption func(*Relay)

func WithInterval(d time.Duration) RelayOption { return func(r *Relay) { r.interval = d } }
func WithBatchSize(n int) RelayOption          { return func(r *Relay) { r.batchSize = n } }
func WithLease(d time.Duration) RelayOption    { return func(r *Relay) { r.lease = d } }

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, relayID string, opts ...RelayOption) *Relay {
	r := &Relay{
		log:       log,
		store:     store,
		dispatch:  dispatch,
		relayID:   relayID,
		batchSize: 100,
		interval:  500 * time.Millisecond,
		lease:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C:
			r.tick(ctx)
		}
	}
}

func (r *Relay) tick(ctx context.Context) {
	events, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
	if err != nil {
		r.log.Error("relay lock batch error", "err", err)
		return
	}
	if len(events) == 0 {
		return
	}

	ids := make([]int64, 0, len(events))
	for i, e := range events {
		if err := r.dispatch.Dispatch(ctx, e); err != nil {
			r.log.Error("outbox dispatch failed", "event_id", e.ID, "err", err)
			if e.Exhausted() {
				r.log.Warn("outbox event parked", "event_id", e.ID, "type", e.Type, "attempts", e.RetryCount+1)
			}
			if err := r.store.MarkFailed(ctx, e.ID, err.Error()); err != nil {
				r.log.Error("relay mark failed error", "event_id", e.ID, "err", err)
			}
			continue
		}
		ids = append(ids, e.ID)
		// long batches must not outlive their lease
		if i > 0 && i%25 == 0 {
			pending := make([]int64, 0, len(events)-i-1)
			for _, rest := range events[i+1:] {
				pending = append(pending, rest.ID)
			}
			if len(pending) > 0 {
				if err := r.store.ExtendLease(ctx, r.relayID, pending, r.lease); err != nil {
					r.log.Error("relay extend lease error", "err", err)
				}
			}
		}
	}
	if len(ids) > 0 {
		if err := r.store.MarkSent(ctx, ids); err != nil {
			r.log.Error("relay mark sent error", "err", err)
		}
	}
}
