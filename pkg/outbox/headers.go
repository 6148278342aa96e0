// Package outbox carries request context across the transactional outbox:
// headers are captured when a message is stored and restored when it is
// relayed or consumed.
package outbox

import (
	"context"
	"maps"
	"slices"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tuanvumaihuynh/inventory-service/pkg/correlationid"
)

// BuildHeaders captures the trace context and correlation ID of ctx.
func BuildHeaders(ctx context.Context) map[string]string {
	headers := map[string]string{}

	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))

	if correlationID, ok := correlationid.FromContext(ctx); ok {
		headers[correlationid.Header] = correlationID
	}

	return headers
}

// ExtractContextFromHeaders is the inverse of BuildHeaders.
func ExtractContextFromHeaders(ctx context.Context, headers map[string]string) context.Context {
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))

	if correlationID, ok := headers[correlationid.Header]; ok {
		ctx = correlationid.NewContext(ctx, correlationID)
	}

	return ctx
}

// RecordHeaders converts stored headers to Kafka headers, sorted by key.
func RecordHeaders(headers map[string]string) []kgo.RecordHeader {
	recHeaders := make([]kgo.RecordHeader, 0, len(headers))
	for _, k := range slices.Sorted(maps.Keys(headers)) {
		recHeaders = append(recHeaders, kgo.RecordHeader{Key: k, Value: []byte(headers[k])})
	}
	return recHeaders
}

// InjectCorrelationIDFromRecord returns ctx carrying the record's
// correlation ID, or ctx unchanged when the record has none.
func InjectCorrelationIDFromRecord(ctx context.Context, rec *kgo.Record) context.Context {
	for _, header := range rec.Headers {
		if header.Key == correlationid.Header {
			return correlationid.NewContext(ctx, string(header.Value))
		}
	}
	return ctx
}
