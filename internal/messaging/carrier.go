package messaging

import (
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
)

const (
	headerEventType   = "event-type"
	headerContentType = "content-type"
)

// headerCarrier reads and writes the headers of one Kafka message. It carries
// the trace context as well as the event metadata.
type headerCarrier struct {
	headers *[]kafka.Header
}

var _ propagation.TextMapCarrier = headerCarrier{}

func carrierFor(msg *kafka.Message) headerCarrier {
	return headerCarrier{headers: &msg.Headers}
}

func (c headerCarrier) index(key string) int {
	for i, h := range *c.headers {
		if h.Key == key {
			return i
		}
	}
	return -1
}

func (c headerCarrier) Get(key string) string {
	if i := c.index(key); i >= 0 {
		return string((*c.headers)[i].Value)
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	if i := c.index(key); i >= 0 {
		(*c.headers)[i].Value = []byte(value)
		return
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(*c.headers))
	for i, h := range *c.headers {
		keys[i] = h.Key
	}
	return keys
}
