package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/myshop/internal/config"
	custapp "github.com/dmehra2102/myshop/internal/customer/application"
	custdomain "github.com/dmehra2102/myshop/internal/customer/domain"
	custpg "github.com/dmehra2102/myshop/internal/customer/infrastructure/postgres"
	"github.com/dmehra2102/myshop/internal/customer/infrastructure/shipping"
	invapp "github.com/dmehra2102/myshop/internal/inventory/application"
	invdomain "github.com/dmehra2102/myshop/internal/inventory/domain"
	invhttp "github.com/dmehra2102/myshop/internal/inventory/infrastructure/http"
	invmemory "github.com/dmehra2102/myshop/internal/inventory/infrastructure/memory"
	invpg "github.com/dmehra2102/myshop/internal/inventory/infrastructure/postgres"
	invredis "github.com/dmehra2102/myshop/internal/inventory/infrastructure/redis"
	orderapp "github.com/dmehra2102/myshop/internal/order/application"
	orderdomain "github.com/dmehra2102/myshop/internal/order/domain"
	orderhttp "github.com/dmehra2102/myshop/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/myshop/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/myshop/internal/order/infrastructure/postgres"
	payapp "github.com/dmehra2102/myshop/internal/payment/application"
	paydomain "github.com/dmehra2102/myshop/internal/payment/domain"
	paykafka "github.com/dmehra2102/myshop/internal/payment/infrastructure/kafka"
	paypg "github.com/dmehra2102/myshop/internal/payment/infrastructure/postgres"
	platformgrpc "github.com/dmehra2102/myshop/internal/platform/grpc"
	platformpg "github.com/dmehra2102/myshop/internal/platform/postgres"
	reportapp "github.com/dmehra2102/myshop/internal/report/application"
	reporthttp "github.com/dmehra2102/myshop/internal/report/infrastructure/http"
	"github.com/dmehra2102/myshop/pkg/idempotency"
	"github.com/dmehra2102/myshop/pkg/logging"
	"github.com/dmehra2102/myshop/pkg/outbox"
	"github.com/dmehra2102/myshop/pkg/ratelimit"
	"github.com/dmehra2102/myshop/pkg/repository"
	"github.com/dmehra2102/myshop/pkg/shutdown"
	"github.com/dmehra2102/myshop/pkg/tracing"
)

type stores struct {
	products  invapp.ProductRepository
	customers orderapp.CustomerRepository
	orders    orderapp.OrderRepository
	payments  payapp.PaymentRepository
	outbox    outbox.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTELEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

	// Storage
	var pool *pgxpool.Pool
	if cfg.PostgresURL != "" {
		if err := platformpg.Migrate(log, cfg.PostgresURL); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		pool, err = platformpg.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("pg connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
	}
	st := newStores(log, pool, cfg.Ledger)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("redis ping failed", "err", err)
			os.Exit(1)
		}
	}

	var ledger invapp.Ledger
	switch cfg.Ledger {
	case config.LedgerRedis:
		ledger = invredis.NewLedger(log, rdb)
	case config.LedgerPostgres:
		ledger = invpg.NewLedger(log, pool)
	default:
		ledger = invmemory.NewLedger()
	}
	log.Info("stock ledger selected", "ledger", cfg.Ledger)

	catalog := invapp.NewCatalog(log, st.products, ledger)
	if cfg.SeedDemo {
		err = catalog.Seed(ctx, invdomain.DemoProducts())
	} else {
		err = catalog.SyncLedger(ctx)
	}
	if err != nil {
		log.Error("catalog init failed", "err", err)
		os.Exit(1)
	}

	// Application
	ship := shipping.NewService(log, shipping.Options{
		Latency:       cfg.ShippingLatency,
		RemoteLatency: cfg.ShippingRemoteLatency,
	})
	payments := payapp.NewService(log, st.payments)
	proc := orderapp.NewProcessor(log, orderapp.Deps{
		Validator: custapp.NewValidator(ship),
		Products:  st.products,
		Customers: st.customers,
		Orders:    st.orders,
		Ledger:    ledger,
		Payments:  payments,
	})
	reports := reportapp.NewService(log, st.orders, reportapp.NewGenerator(reportapp.GeneratorOptions{
		Concurrency: cfg.ReportConcurrency,
		HashCost:    cfg.ReportHashCost,
	}))

	workers := shutdown.NewWorkers(log)

	// HTTP
	productLimiter := ratelimit.NewFixedWindow(ratelimit.Options{
		PermitLimit: cfg.ProductLimit.Permits,
		Window:      cfg.ProductLimit.Window,
		QueueLimit:  cfg.ProductLimit.Queue,
	})
	workers.Go("product-limiter", func() error { productLimiter.Run(ctx); return nil })

	var orderOpts []orderhttp.Option
	if cfg.ReserveLimit.Permits > 0 {
		reserveLimiter := ratelimit.NewFixedWindow(ratelimit.Options{
			PermitLimit: cfg.ReserveLimit.Permits,
			Window:      cfg.ReserveLimit.Window,
			QueueLimit:  cfg.ReserveLimit.Queue,
		})
		workers.Go("reserve-limiter", func() error { reserveLimiter.Run(ctx); return nil })
		orderOpts = append(orderOpts, orderhttp.WithReserveGate(ratelimit.Middleware(log, "reserve", reserveLimiter)))
	}
	var idem *idempotency.Store
	if rdb != nil {
		idem = idempotency.NewStore(rdb, cfg.IdempotencyTTL)
		orderOpts = append(orderOpts, orderhttp.WithIdempotency(idem))
	}

	handler := newRouter(routes{
		orders:   orderhttp.NewHandler(log, proc, orderOpts...).Routes(),
		products: invhttp.NewHandler(log, catalog, ratelimit.Middleware(log, "products", productLimiter)).Routes(),
		reports:  reporthttp.NewHandler(log, reports).Routes(),
	}, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	// Messaging
	if len(cfg.KafkaBrokers) > 0 {
		if st.outbox != nil {
			writer := orderkafka.NewWriter(cfg.KafkaBrokers)
			defer writer.Close()
			dispatch := outbox.NewDispatcher(log, writer, cfg.OutboxTopic)
			relay := outbox.NewRelay(log, st.outbox, dispatch, cfg.ServiceName+"-relay")
			workers.Go("outbox-relay", func() error { return relay.Run(ctx) })
		}

		reader := paykafka.NewReader(cfg.KafkaBrokers, cfg.PaymentTopic, cfg.ConsumerGroup)
		consumer := paykafka.NewConsumer(log, reader, proc, idem)
		workers.Go("payment-consumer", func() error {
			err := consumer.Run(ctx)
			if err != nil {
				cancel()
			}
			return err
		})
	}

	// gRPC health
	gs := platformgrpc.NewServer(log)
	if err := platformgrpc.Run(cfg.GRPCAddr, gs); err != nil {
		log.Error("grpc listen failed", "err", err)
		os.Exit(1)
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	_ = shutdown.Drain(log, cfg.ShutdownTimeout,
		shutdown.Step{Name: "grpc", Fn: func(context.Context) error { gs.Stop(); return nil }},
		shutdown.Step{Name: "http", Fn: srv.Shutdown},
		shutdown.Step{Name: "workers", Fn: workers.Wait},
	)
	log.Info("shutdown complete")
}

func newStores(log *slog.Logger, pool *pgxpool.Pool, ledger config.LedgerKind) stores {
	if pool == nil {
		return stores{
			products:  repository.NewMemory[invdomain.Product](),
			customers: repository.NewMemory[custdomain.Customer](),
			orders:    repository.NewMemory[orderdomain.Order](),
			payments:  repository.NewMemory[paydomain.Payment](),
		}
	}
	var productOpts []invpg.ProductOption
	if ledger != config.LedgerPostgres {
		productOpts = append(productOpts, invpg.WithStockSnapshots())
	}
	return stores{
		products:  invpg.NewProductRepository(log, pool, productOpts...),
		customers: custpg.NewRepository(log, pool),
		orders:    orderpg.NewRepository(log, pool),
		payments:  paypg.NewRepository(log, pool),
		outbox:    orderpg.NewOutboxStore(log, pool),
	}
}
