package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	orderdomain "github.com/dmehra2102/myshop/internal/order/domain"
	"github.com/dmehra2102/myshop/pkg/worksim"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const Header = "OrderId, OrderDate, OrderHash"

type GeneratorOptions struct {
	// Concurrency bounds how many order hashes are computed at once.
	Concurrency int
	// HashCost is the minimum time one order hash takes.
	HashCost time.Duration
	// Work spends HashCost; it defaults to worksim.Suspend.
	Work worksim.Func
}

// Generator builds the order hash report. Rows keep the order of the input
// whatever order the hashes finish in.
type Generator struct {
	opts GeneratorOptions
	gate *semaphore.Weighted
}

func NewGenerator(opts GeneratorOptions) *Generator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Work == nil {
		opts.Work = worksim.Suspend
	}
	return &Generator{
		opts: opts,
		gate: semaphore.NewWeighted(int64(opts.Concurrency)),
	}
}

func (g *Generator) Generate(ctx context.Context, orders []orderdomain.Order) (string, error) {
	rows := make([]string, len(orders))

	eg, gctx := errgroup.WithContext(ctx)
	for i := range orders {
		if err := g.gate.Acquire(gctx, 1); err != nil {
			break
		}
		eg.Go(func() error {
			defer g.gate.Release(1)
			row, err := g.row(gctx, orders[i])
			if err != nil {
				return fmt.Errorf("hash order %s: %w", orders[i].ID, err)
			}
			rows[i] = row
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(Header)
	for _, row := range rows {
		b.WriteByte('\n')
		b.WriteString(row)
	}
	return b.String(), nil
}

func (g *Generator) row(ctx context.Context, o orderdomain.Order) (string, error) {
	if err := g.opts.Work(ctx, g.opts.HashCost); err != nil {
		return "", err
	}
	date := o.OrderDate.UTC().Format(time.RFC3339)
	return o.ID + ", " + date + ", " + OrderHash(o), nil
}

// OrderHash chains the line hashes of o into a hash over id and date.
func OrderHash(o orderdomain.Order) string {
	var lines strings.Builder
	for _, item := range o.LineItems {
		lines.WriteString(sha256Hex(item.ProductID + strconv.Itoa(item.Quantity)))
	}
	itemsHash := sha256Hex(lines.String())
	return sha256Hex(o.ID + o.OrderDate.UTC().Format(time.RFC3339) + itemsHash)
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
