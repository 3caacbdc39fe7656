package broker

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrierOverwritesKeys(t *testing.T) {
	var headers []kafka.Header
	c := headerCarrier{headers: &headers}

	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	c.Set("baggage", "k=v")

	assert.Len(t, headers, 2)
	assert.Equal(t, "b", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"traceparent", "baggage"}, c.Keys())
}

func TestHeaderCarrierRoundTripsSpanContext(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	var msg kafka.Message
	prop := propagation.TraceContext{}
	prop.Inject(ctx, headerCarrier{headers: &msg.Headers})

	got := trace.SpanContextFromContext(prop.Extract(context.Background(), headerCarrier{headers: &msg.Headers}))
	assert.Equal(t, traceID, got.TraceID())
	assert.True(t, got.IsRemote())
}
