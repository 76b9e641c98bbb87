package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmehra2102/myshop/pkg/outbox"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxStore leases pending outbox rows to one relay at a time. Rows whose
// lease ran out are picked up again.
type OutboxStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool}
}

func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, type, payload, headers, traceparent, created_at, retry_count
		FROM outbox
		WHERE status = 'pending' OR (status = 'in_progress' AND lease_until < now())
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, batchSize)
	if err != nil {
		return nil, fmt.Errorf("select outbox batch: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (outbox.Event, error) {
		var ev outbox.Event
		err := row.Scan(&ev.ID, &ev.AggregateType, &ev.AggregateID, &ev.Type, &ev.Payload, &ev.Headers, &ev.Traceparent, &ev.CreatedAt, &ev.RetryCount)
		ev.Status = outbox.StatusInProgress
		ev.RelayID = relayID
		return ev, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan outbox batch: %w", err)
	}
	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	_, err = tx.Exec(ctx, `UPDATE outbox SET status='in_progress', relay_id=$1, lease_until=now() + make_interval(secs => $2) WHERE id = ANY($3)`,
		relayID, lease.Seconds(), ids)
	if err != nil {
		return nil, fmt.Errorf("lease outbox batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.pool.Exec(ctx, `UPDATE outbox SET status='sent', lease_until=NULL WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("mark sent: no rows updated for %d ids", len(ids))
	}
	return nil
}

// MarkFailed puts the row back to pending so a later tick retries it, or
// parks it as failed once it has used up outbox.MaxAttempts.
func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox
		SET status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END,
		    last_error = $2, retry_count = retry_count + 1, lease_until = NULL
		WHERE id = $1
	`, id, errMsg, outbox.MaxAttempts)
	return err
}

func (s *OutboxStore) ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET lease_until=now() + make_interval(secs => $1) WHERE id = ANY($2) AND relay_id=$3`, lease.Seconds(), ids, relayID)
	return err
}
