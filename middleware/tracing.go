package middleware

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vitalvas/astra/routing"
	"github.com/vitalvas/astra/web"
)

const defaultTracerName = "astra"

// TracingConfig configures the OpenTelemetry tracing middleware.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "astra").
	TracerName string

	// TracerProvider overrides the global tracer provider.
	TracerProvider trace.TracerProvider

	// Filter determines which requests to trace. Return true to trace.
	// When nil, all requests are traced.
	Filter func(req *web.Request) bool

	// AttributeExtractor extracts custom attributes from the request,
	// called for each traced request.
	AttributeExtractor func(req *web.Request) []attribute.KeyValue
}

// Tracing returns a middleware that opens a span per request, propagating
// it through the handler context. Errors set the span status; the response
// status code is recorded as an attribute.
//
// The tracer defaults to the global OpenTelemetry tracer provider;
// configure it in main() before serving.
func Tracing(cfg TracingConfig) Middleware {
	name := cfg.TracerName
	if name == "" {
		name = defaultTracerName
	}

	var tracer trace.Tracer
	if cfg.TracerProvider != nil {
		tracer = cfg.TracerProvider.Tracer(name)
	} else {
		tracer = otel.Tracer(name)
	}

	return func(next routing.Handler) routing.Handler {
		return func(ctx context.Context, req *web.Request) (*web.Response, error) {
			if cfg.Filter != nil && !cfg.Filter(req) {
				return next(ctx, req)
			}

			attrs := []attribute.KeyValue{
				attribute.String("http.request.method", req.Method()),
				attribute.String("url.path", req.Path()),
			}
			if cfg.AttributeExtractor != nil {
				attrs = append(attrs, cfg.AttributeExtractor(req)...)
			}

			ctx, span := tracer.Start(ctx, req.Method()+" "+req.Path(),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			resp, err := next(ctx, req)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())

				var webErr *web.Error
				if errors.As(err, &webErr) {
					span.SetAttributes(attribute.Int("http.response.status_code", webErr.Status))
				}
				return nil, err
			}

			span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
			if resp.Status >= 500 {
				span.SetStatus(codes.Error, strconv.Itoa(resp.Status))
			}
			return resp, nil
		}
	}
}
