package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer taken from the provider.
const InstrumentationName = "tiergate/tier"

// OTel starts internal spans on an OpenTelemetry tracer provider.
type OTel struct {
	tracer trace.Tracer
}

// NewOTel uses tp, or the global provider when tp is nil.
func NewOTel(tp trace.TracerProvider) *OTel {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &OTel{tracer: tp.Tracer(InstrumentationName)}
}

func (t *OTel) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(keyValues(attrs)...),
	)
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(keyValues(attrs)...)
}
