package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/handlepool/pkg/errors"
	"github.com/ajitpratap0/handlepool/pkg/pool"
)

// Span wraps a tracing span and batches attributes until End
type Span struct {
	span       trace.Span
	attributes []attribute.KeyValue
}

// NewSpan starts a span named operationName as a child of ctx
func NewSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	ctx, span := Tracer().Start(ctx, operationName)
	return ctx, &Span{span: span}
}

// SetAttribute adds an attribute to the span (batched until End)
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError marks the span failed with err. Retryable pool errors
// (exhausted, rate limited) are recorded as events instead, since they are
// an expected outcome under load.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	if errors.IsRetryable(err) {
		s.AddEvent("unavailable", attribute.String("error.type", string(errors.GetType(err))))
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// End flushes the batched attributes and ends the span
func (s *Span) End() {
	if len(s.attributes) > 0 {
		s.span.SetAttributes(s.attributes...)
	}
	s.span.End()
}

// TraceAcquire calls p.Acquire inside a "pool.acquire" span
func TraceAcquire[T comparable](ctx context.Context, p *pool.Pool[T]) (T, error) {
	_, span := NewSpan(ctx, "pool.acquire")
	defer span.End()

	h, err := p.Acquire()
	span.SetAttribute("pool.error_type", errorType(err))
	span.SetAttribute("pool.in_use", p.InUseCount())
	span.RecordError(err)
	return h, err
}

// TraceRelease calls p.Release inside a "pool.release" span
func TraceRelease[T comparable](ctx context.Context, p *pool.Pool[T], h T) error {
	_, span := NewSpan(ctx, "pool.release")
	defer span.End()

	err := p.Release(h)
	span.SetAttribute("pool.error_type", errorType(err))
	span.SetAttribute("pool.free", p.FreeCount())
	span.RecordError(err)
	return err
}

func errorType(err error) string {
	if err == nil {
		return "none"
	}
	return string(errors.GetType(err))
}

// LoggerWithTrace adds the trace and span IDs found in ctx to logger
func LoggerWithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
