package mq

import (
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
)

var (
	tracer = otel.Tracer("internal/storage/mq")
	// kTracer hooks both clients so produce and fetch spans follow the
	// record headers across the broker.
	kTracer = kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
)
