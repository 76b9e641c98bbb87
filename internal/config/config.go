// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type LedgerKind string

const (
	LedgerMemory   LedgerKind = "memory"
	LedgerRedis    LedgerKind = "redis"
	LedgerPostgres LedgerKind = "postgres"
)

type Limit struct {
	Permits int
	Window  time.Duration
	Queue   int
}

type Config struct {
	ServiceName     string
	HTTPAddr        string
	GRPCAddr        string
	LogLevel        string
	OTELEndpoint    string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// PostgresURL selects Postgres repositories; empty keeps everything in
	// memory.
	PostgresURL    string
	RedisAddr      string
	KafkaBrokers   []string
	OutboxTopic    string
	PaymentTopic   string
	ConsumerGroup  string
	IdempotencyTTL time.Duration

	Ledger   LedgerKind
	SeedDemo bool

	ShippingLatency       time.Duration
	ShippingRemoteLatency time.Duration

	ReportConcurrency int
	ReportHashCost    time.Duration

	ProductLimit Limit
	// ReserveLimit is off while Permits is 0.
	ReserveLimit Limit
}

func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	e := &reader{getenv: getenv}
	cfg := Config{
		ServiceName:     e.str("SERVICE_NAME", "shop-api"),
		HTTPAddr:        e.str("HTTP_ADDR", ":8080"),
		GRPCAddr:        e.str("GRPC_ADDR", ":50051"),
		LogLevel:        e.str("LOG_LEVEL", "info"),
		OTELEndpoint:    e.str("OTEL_ENDPOINT", ""),
		RequestTimeout:  e.duration("REQUEST_TIMEOUT", 60*time.Second),
		ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),

		PostgresURL:    e.str("PG_URL", ""),
		RedisAddr:      e.str("REDIS_ADDR", ""),
		KafkaBrokers:   e.list("KAFKA_ADDR"),
		OutboxTopic:    e.str("OUTBOX_TOPIC", "order.events"),
		PaymentTopic:   e.str("PAYMENT_TOPIC", "payment.events"),
		ConsumerGroup:  e.str("CONSUMER_GROUP", "shop-api"),
		IdempotencyTTL: e.duration("IDEMPOTENCY_TTL", 10*time.Minute),

		Ledger:   LedgerKind(strings.ToLower(e.str("LEDGER", string(LedgerMemory)))),
		SeedDemo: e.boolean("SEED_DEMO", true),

		ShippingLatency:       e.duration("SHIPPING_LATENCY", time.Millisecond),
		ShippingRemoteLatency: e.duration("SHIPPING_REMOTE_LATENCY", 3*time.Second),

		ReportConcurrency: e.integer("REPORT_CONCURRENCY", 5),
		ReportHashCost:    e.duration("REPORT_HASH_COST", 10*time.Millisecond),

		ProductLimit: Limit{
			Permits: e.integer("PRODUCT_PERMITS", 10),
			Window:  e.duration("PRODUCT_WINDOW", 5*time.Second),
			Queue:   e.integer("PRODUCT_QUEUE", 10),
		},
		ReserveLimit: Limit{
			Permits: e.integer("RESERVE_PERMITS", 0),
			Window:  e.duration("RESERVE_WINDOW", time.Second),
			Queue:   e.integer("RESERVE_QUEUE", 0),
		},
	}
	if err := errors.Join(e.errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	switch c.Ledger {
	case LedgerMemory:
	case LedgerRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("LEDGER=redis needs REDIS_ADDR"))
		}
	case LedgerPostgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("LEDGER=postgres needs PG_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER %q", c.Ledger))
	}
	if len(c.KafkaBrokers) > 0 && c.RedisAddr == "" {
		errs = append(errs, errors.New("KAFKA_ADDR needs REDIS_ADDR for consumer idempotency"))
	}
	if c.ReportConcurrency < 1 {
		errs = append(errs, errors.New("REPORT_CONCURRENCY must be at least 1"))
	}
	if c.ProductLimit.Permits < 1 || c.ProductLimit.Window <= 0 || c.ProductLimit.Queue < 0 {
		errs = append(errs, errors.New("PRODUCT_PERMITS, PRODUCT_WINDOW and PRODUCT_QUEUE must be positive"))
	}
	if c.ReserveLimit.Permits < 0 || (c.ReserveLimit.Permits > 0 && c.ReserveLimit.Window <= 0) {
		errs = append(errs, errors.New("RESERVE_PERMITS needs a positive RESERVE_WINDOW"))
	}
	return errors.Join(errs...)
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(k, def string) string {
	if v := strings.TrimSpace(r.getenv(k)); v != "" {
		return v
	}
	return def
}

func (r *reader) integer(k string, def int) int {
	v := r.str(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return n
}

func (r *reader) duration(k string, def time.Duration) time.Duration {
	v := r.str(k, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return d
}

func (r *reader) boolean(k string, def bool) bool {
	v := r.str(k, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return b
}

func (r *reader) list(k string) []string {
	var out []string
	for _, part := range strings.Split(r.str(k, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
