package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hivecrm/contactbook/internal/config"
)

const exporterTimeout = 10 * time.Second

// Provider owns the tracer provider lifecycle. Without a collector endpoint
// it installs a noop provider, so span creation stays in the code paths but
// records nothing.
type Provider struct {
	serviceName string
	tp          *sdktrace.TracerProvider
}

// Tracer returns a tracer named after the service.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tp == nil {
		return otel.Tracer(p.name())
	}
	return p.tp.Tracer(p.name())
}

func (p *Provider) name() string {
	if p == nil || p.serviceName == "" {
		return "contactbook"
	}
	return p.serviceName
}

// Shutdown flushes any buffered spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

// New builds the tracing provider from OTEL_EXPORTER_OTLP_* configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Provider, error) {
	if cfg.TelemetryEndpoint == "" {
		otel.SetTracerProvider(trace.NewNoopTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		return &Provider{serviceName: cfg.ServiceName}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.TelemetryEndpoint)}
	if cfg.TelemetryInsecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithProcess(),
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if logger != nil {
		logger.Info("tracing enabled",
			zap.String("service", cfg.ServiceName),
			zap.String("endpoint", cfg.TelemetryEndpoint),
		)
	}

	return &Provider{serviceName: cfg.ServiceName, tp: tp}, nil
}
