package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/dmehra2102/myshop/pkg/tracing"
	"github.com/segmentio/kafka-go"
)

const (
	EventTypeHeader     = "event_type"
	AggregateTypeHeader = "aggregate_type"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Dispatcher publishes outbox rows. Aggregate types with a route go to
// their own topic, everything else to the default topic.
type Dispatcher struct {
	log      *slog.Logger
	producer Producer
	topic    string
	routes   map[string]string
}

type DispatcherOption func(*Dispatcher)

// WithRoute sends events of aggregateType to topic.
func WithRoute(aggregateType, topic string) DispatcherOption {
	return func(d *Dispatcher) { d.routes[aggregateType] = topic }
}

func NewDispatcher(log *slog.Logger, producer Producer, topic string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{log: log, producer: producer, topic: topic, routes: make(map[string]string)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Topic(aggregateType string) string {
	if t, ok := d.routes[aggregateType]; ok {
		return t
	}
	return d.topic
}

// Message maps event onto a Kafka message keyed by its aggregate id.
// Stored headers come first in key order, then the event and aggregate
// types, then the trace context: the stored traceparent when the row has
// one, else the context of ctx.
func (d *Dispatcher) Message(ctx context.Context, event Event) kafka.Message {
	headers := make([]kafka.Header, 0, len(event.Headers)+3)
	for _, k := range slices.Sorted(maps.Keys(event.Headers)) {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(event.Headers[k])})
	}
	headers = append(headers,
		kafka.Header{Key: EventTypeHeader, Value: []byte(event.Type)},
		kafka.Header{Key: AggregateTypeHeader, Value: []byte(event.AggregateType)},
	)
	if event.Traceparent != "" {
		headers = append(headers, kafka.Header{Key: tracing.TraceparentHeader, Value: []byte(event.Traceparent)})
	} else {
		headers = tracing.InjectKafkaHeaders(ctx, headers)
	}

	return kafka.Message{
		Topic:   d.Topic(event.AggregateType),
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	msg := d.Message(ctx, event)
	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s %d to %s: %w", event.Type, event.ID, msg.Topic, err)
	}
	d.log.Debug("outbox dispatched", "event_id", event.ID, "type", event.Type, "topic", msg.Topic)
	return nil
}
