package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	orderdomain "github.com/dmehra2102/myshop/internal/order/domain"
	"github.com/dmehra2102/myshop/pkg/repository"
	"golang.org/x/sync/singleflight"
)

type OrderRepository = repository.Repository[orderdomain.Order]

// dateRangeFinder is implemented by order stores that can filter by date
// on their side.
type dateRangeFinder interface {
	FindBetween(ctx context.Context, from, to time.Time) ([]orderdomain.Order, error)
}

type Service struct {
	log    *slog.Logger
	orders OrderRepository
	gen    *Generator
	group  singleflight.Group
}

func NewService(log *slog.Logger, orders OrderRepository, gen *Generator) *Service {
	return &Service{log: log, orders: orders, gen: gen}
}

// YearlyReport reports every order dated in year, oldest first. Concurrent
// calls for the same year share one computation, which keeps running when
// a caller gives up.
func (s *Service) YearlyReport(ctx context.Context, year int) (string, error) {
	ch := s.group.DoChan(strconv.Itoa(year), func() (any, error) {
		return s.generate(context.WithoutCancel(ctx), year)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			s.log.Debug("yearly report shared", "year", year)
		}
		return res.Val.(string), nil
	}
}

func (s *Service) generate(ctx context.Context, year int) (string, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	var (
		orders []orderdomain.Order
		err    error
	)
	if f, ok := s.orders.(dateRangeFinder); ok {
		orders, err = f.FindBetween(ctx, from, to)
	} else {
		orders, err = s.orders.Find(ctx, func(o orderdomain.Order) bool {
			d := o.OrderDate.UTC()
			return !d.Before(from) && d.Before(to)
		})
	}
	if err != nil {
		return "", fmt.Errorf("load orders of %d: %w", year, err)
	}

	slices.SortStableFunc(orders, func(a, b orderdomain.Order) int {
		if c := a.OrderDate.Compare(b.OrderDate); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	start := time.Now()
	report, err := s.gen.Generate(ctx, orders)
	if err != nil {
		return "", err
	}
	s.log.Info("yearly report generated", "year", year, "orders", len(orders), "took", time.Since(start))
	return report, nil
}
