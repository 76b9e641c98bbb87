package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	orderdomain "github.com/dmehra2102/myshop/internal/order/domain"
	"github.com/dmehra2102/myshop/internal/payment/domain"
	"github.com/dmehra2102/myshop/pkg/idempotency"
	"github.com/dmehra2102/myshop/pkg/outbox"
	"github.com/dmehra2102/myshop/pkg/tracing"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Orders is the part of the order lifecycle payment events drive.
type Orders interface {
	FinalizeOrder(ctx context.Context, orderID, paymentReference string) (orderdomain.Result, error)
	CancelOrder(ctx context.Context, orderID, reason string) (orderdomain.Result, error)
}

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	log    *slog.Logger
	reader Reader
	orders Orders
	idem   *idempotency.Store
	tracer trace.Tracer

	retryInitial time.Duration
	retryMax     time.Duration
}

type ConsumerOption func(*Consumer)

// WithRetryBackoff sets the bounds of the exponential wait between attempts
// at a failing message.
func WithRetryBackoff(initial, maxWait time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.retryInitial = initial
		c.retryMax = maxWait
	}
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader Reader, orders Orders, idem *idempotency.Store, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		log:          log,
		reader:       reader,
		orders:       orders,
		idem:         idem,
		tracer:       otel.Tracer("payment-consumer"),
		retryInitial: 500 * time.Millisecond,
		retryMax:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes until ctx ends. Messages of a partition are applied in
// order: a failing message is retried with backoff and the next one is not
// fetched until it was handled and committed. A committed offset therefore
// never moves past an event that was not applied.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch payment event: %w", err)
		}

		notify := func(err error, wait time.Duration) {
			c.log.Error("payment event failed, retrying", "partition", msg.Partition, "offset", msg.Offset, "wait", wait, "err", err)
		}
		err = backoff.RetryNotify(func() error { return c.process(ctx, msg) }, backoff.WithContext(c.backoff(), ctx), notify)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("payment event at offset %d: %w", msg.Offset, err)
		}
	}
}

func (c *Consumer) backoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitial
	b.MaxInterval = c.retryMax
	b.MaxElapsedTime = 0
	return b
}

// process applies msg once and commits it. A message already marked in the
// idempotency store is only committed. A failed handler releases its mark
// so the next attempt runs it again.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
	} else if err := c.handle(ctx, msg); err != nil {
		if err := c.idem.Forget(context.WithoutCancel(ctx), key); err != nil {
			c.log.Error("idempotency release failed", "key", key, "err", err)
		}
		return err
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	eventType := tracing.HeaderValue(msg.Headers, outbox.EventTypeHeader)
	msgCtx, span := c.tracer.Start(tracing.ExtractKafkaHeaders(ctx, msg.Headers), "Consume"+eventType,
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var (
		res orderdomain.Result
		err error
	)
	switch eventType {
	case domain.EventPaymentConfirmed:
		var ev domain.PaymentConfirmed
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.log.Error("unmarshal failed, dropping", "type", eventType, "err", err)
			return nil
		}
		span.SetAttributes(attribute.String("order_id", ev.OrderID))
		res, err = c.orders.FinalizeOrder(msgCtx, ev.OrderID, ev.Reference)
	case domain.EventPaymentFailed:
		var ev domain.PaymentFailed
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.log.Error("unmarshal failed, dropping", "type", eventType, "err", err)
			return nil
		}
		span.SetAttributes(attribute.String("order_id", ev.OrderID))
		res, err = c.orders.CancelOrder(msgCtx, ev.OrderID, "payment failed: "+ev.Reason)
	default:
		c.log.Warn("unknown event type ignored", "type", eventType)
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !res.OK() {
		// business rejections are final; redelivery would not change them
		c.log.Warn("payment event rejected", "type", eventType, "kind", res.Failure.Kind, "reasons", res.Failure.Reasons)
		return nil
	}
	c.log.Info("payment event applied", "type", eventType, "order_id", res.Order.ID, "status", res.Order.Status)
	return nil
}
