package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	orderdomain "github.com/dmehra2102/myshop/internal/order/domain"
	"github.com/dmehra2102/myshop/pkg/worksim"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeOrders(n int) []orderdomain.Order {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	orders := make([]orderdomain.Order, n)
	for i := range orders {
		o := orderdomain.NewOrder("c-1", orderdomain.StatusFullyPaid, base.Add(time.Duration(i)*time.Hour))
		o.ID = fmt.Sprintf("order-%03d", i)
		o.AddLineItem(fmt.Sprintf("p-%d", i%3), i%4+1, decimal.NewFromInt(10))
		orders[i] = o
	}
	return orders
}

func TestGenerateEmpty(t *testing.T) {
	g := NewGenerator(GeneratorOptions{Concurrency: 5, Work: worksim.None})

	report, err := g.Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Header, report)
}

func TestGenerateKeepsInputOrder(t *testing.T) {
	orders := makeOrders(10)
	// the first computations to start take the longest
	var started atomic.Int32
	var mu sync.Mutex
	var finished int
	g := NewGenerator(GeneratorOptions{Concurrency: 10, Work: func(ctx context.Context, _ time.Duration) error {
		n := started.Add(1)
		if err := worksim.Suspend(ctx, time.Duration(11-n)*3*time.Millisecond); err != nil {
			return err
		}
		mu.Lock()
		finished++
		mu.Unlock()
		return nil
	}})

	report, err := g.Generate(context.Background(), orders)
	require.NoError(t, err)

	lines := strings.Split(report, "\n")
	require.Len(t, lines, len(orders)+1)
	assert.Equal(t, Header, lines[0])
	for i, o := range orders {
		want := o.ID + ", " + o.OrderDate.Format(time.RFC3339) + ", " + OrderHash(o)
		assert.Equal(t, want, lines[i+1])
	}
	assert.Equal(t, len(orders), finished)
}

func TestGenerateIsDeterministic(t *testing.T) {
	orders := makeOrders(15)
	g1 := NewGenerator(GeneratorOptions{Concurrency: 1, Work: worksim.None})
	g5 := NewGenerator(GeneratorOptions{Concurrency: 5, Work: worksim.None})

	a, err := g1.Generate(context.Background(), orders)
	require.NoError(t, err)
	b, err := g5.Generate(context.Background(), orders)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	g := NewGenerator(GeneratorOptions{Concurrency: 3, HashCost: 5 * time.Millisecond, Work: func(ctx context.Context, d time.Duration) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer running.Add(-1)
		return worksim.Suspend(ctx, d)
	}})

	_, err := g.Generate(context.Background(), makeOrders(12))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, int32(3), peak.Load())
}

func TestGenerateHonoursHashCost(t *testing.T) {
	g := NewGenerator(GeneratorOptions{Concurrency: 2, HashCost: 20 * time.Millisecond})

	start := time.Now()
	_, err := g.Generate(context.Background(), makeOrders(4))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestGenerateStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	g := NewGenerator(GeneratorOptions{Concurrency: 2, Work: func(context.Context, time.Duration) error { return boom }})

	_, err := g.Generate(context.Background(), makeOrders(5))
	assert.ErrorIs(t, err, boom)
}

func TestGenerateCancelled(t *testing.T) {
	g := NewGenerator(GeneratorOptions{Concurrency: 2, HashCost: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.Generate(ctx, makeOrders(5))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOrderHashChain(t *testing.T) {
	o := makeOrders(1)[0]
	item := o.LineItems[0]

	line := sha256Hex(item.ProductID + fmt.Sprint(item.Quantity))
	want := sha256Hex(o.ID + o.OrderDate.Format(time.RFC3339) + sha256Hex(line))
	assert.Equal(t, want, OrderHash(o))

	other := o.Clone()
	other.LineItems[0].Quantity++
	assert.NotEqual(t, OrderHash(o), OrderHash(other))
}
