package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter returns the writer the outbox relay publishes order events
// with. Messages are keyed by order id and hashed to a partition, so the
// events of one order stay in order.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}
