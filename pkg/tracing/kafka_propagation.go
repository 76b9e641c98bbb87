package tracing

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const TraceparentHeader = "traceparent"

// KafkaCarrier lets the otel propagator read and write message headers.
type KafkaCarrier struct {
	Headers *[]kafka.Header
}

var _ propagation.TextMapCarrier = KafkaCarrier{}

func (c KafkaCarrier) Get(key string) string {
	return HeaderValue(*c.Headers, key)
}

// Set replaces an existing header of the same key.
func (c KafkaCarrier) Set(key, value string) {
	for i, h := range *c.Headers {
		if h.Key == key {
			(*c.Headers)[i].Value = []byte(value)
			return
		}
	}
	*c.Headers = append(*c.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c KafkaCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.Headers))
	for _, h := range *c.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func InjectKafkaHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	otel.GetTextMapPropagator().Inject(ctx, KafkaCarrier{Headers: &headers})
	return headers
}

func ExtractKafkaHeaders(ctx context.Context, headers []kafka.Header) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, KafkaCarrier{Headers: &headers})
}

// HeaderValue returns the first header named key, or "".
func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
