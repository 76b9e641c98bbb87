package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dmehra2102/myshop/internal/inventory/application"
	"github.com/dmehra2102/myshop/internal/inventory/application/ledgertest"
	invdomain "github.com/dmehra2102/myshop/internal/inventory/domain"
	invpg "github.com/dmehra2102/myshop/internal/inventory/infrastructure/postgres"
	orderdomain "github.com/dmehra2102/myshop/internal/order/domain"
	orderkafka "github.com/dmehra2102/myshop/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/myshop/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/myshop/pkg/logging"
	"github.com/dmehra2102/myshop/pkg/outbox"
	"github.com/dmehra2102/myshop/pkg/repository"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresLedgerContract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) application.Ledger {
		truncate(t)
		products := invpg.NewProductRepository(logging.Discard(), pool)
		for _, id := range []string{"p-1", "p-2"} {
			p := invdomain.NewProduct(id, decimal.NewFromInt(1), 0)
			p.ID = id
			_, err := products.Add(context.Background(), p)
			require.NoError(t, err)
		}
		return invpg.NewLedger(logging.Discard(), pool)
	})
}

func TestProductRepositoryKeepsLedgerStock(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	products := invpg.NewProductRepository(logging.Discard(), pool)
	ledger := invpg.NewLedger(logging.Discard(), pool)

	p := invdomain.NewProduct("Camera", decimal.RequireFromString("4990.99"), 12)
	_, err := products.Add(ctx, p)
	require.NoError(t, err)

	_, ok, err := ledger.TryReserve(ctx, p.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)

	p.Stock = 99
	_, err = products.Update(ctx, p)
	require.NoError(t, err)

	got, err := products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)
	assert.True(t, p.Price.Equal(got.Price))

	_, err = products.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrderRepositoryWritesOutbox(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	orders := orderpg.NewRepository(logging.Discard(), pool)

	o := orderdomain.NewOrder("c-1", orderdomain.StatusWaitingForPayment, time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC))
	o.AddLineItem("p-1", 2, decimal.RequireFromString("199.99"))
	o.AddLineItem("p-2", 1, decimal.RequireFromString("10.00"))
	_, err := orders.Add(ctx, o)
	require.NoError(t, err)

	require.NoError(t, o.TransitionTo(orderdomain.StatusCancelled))
	_, err = orders.Update(ctx, o)
	require.NoError(t, err)

	got, err := orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusCancelled, got.Status)
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, "p-1", got.LineItems[0].ProductID)
	assert.True(t, o.Total().Equal(got.Total()))

	inYear, err := orders.FindBetween(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, inYear, 1)

	var types []string
	rows, err := pool.Query(ctx, `SELECT type FROM outbox WHERE aggregate_id=$1 ORDER BY id`, o.ID)
	require.NoError(t, err)
	for rows.Next() {
		var typ string
		require.NoError(t, rows.Scan(&typ))
		types = append(types, typ)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{orderdomain.EventOrderPlaced, orderdomain.EventOrderStatusChanged}, types)
}

func TestOutboxRelayPublishesToKafka(t *testing.T) {
	truncate(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	orders := orderpg.NewRepository(logging.Discard(), pool)
	o := orderdomain.NewOrder("c-1", orderdomain.StatusWaitingForPayment, time.Now())
	o.AddLineItem("p-1", 1, decimal.NewFromInt(5))
	_, err := orders.Add(ctx, o)
	require.NoError(t, err)

	const topic = "order.events.test"
	writer := orderkafka.NewWriter(env.KAddr)
	defer writer.Close()
	relay := outbox.NewRelay(logging.Discard(), orderpg.NewOutboxStore(logging.Discard(), pool),
		outbox.NewDispatcher(logging.Discard(), writer, topic), "it-relay", outbox.WithInterval(100*time.Millisecond))
	go func() { _ = relay.Run(ctx) }()

	reader := kafka.NewReader(kafka.ReaderConfig{Brokers: env.KAddr, Topic: topic, GroupID: "it"})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, o.ID, string(msg.Key))

	var placed orderdomain.OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Value, &placed))
	assert.Equal(t, o.ID, placed.OrderID)

	require.Eventually(t, func() bool {
		var status string
		err := pool.QueryRow(ctx, `SELECT status FROM outbox WHERE aggregate_id=$1`, o.ID).Scan(&status)
		return err == nil && status == string(outbox.StatusSent)
	}, 10*time.Second, 100*time.Millisecond)
}
