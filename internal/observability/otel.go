package observability

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Config struct {
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	Insecure     bool
}

var (
	initOnce sync.Once
	shutdown func(context.Context) error
)

// Init sets up the global tracer provider. Without an OTLP endpoint spans
// are still created but never exported, which keeps the span call sites in
// the pipeline unconditional. Returns a shutdown func (nil when tracing is
// not exporting).
func Init(ctx context.Context, cfg Config) func(context.Context) error {
	initOnce.Do(func() {
		serviceName := strings.TrimSpace(cfg.ServiceName)
		if serviceName == "" {
			serviceName = "invention-brain"
		}
		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.DeploymentEnvironmentKey.String(strings.TrimSpace(cfg.Environment)),
		))
		if err != nil {
			log.Printf("brain-observability resource_init_failed err=%q", err.Error())
		}

		opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
		endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
		if endpoint != "" {
			expOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
			if cfg.Insecure {
				expOpts = append(expOpts, otlptracehttp.WithInsecure())
			}
			exporter, err := otlptracehttp.New(ctx, expOpts...)
			if err != nil {
				log.Printf("brain-observability exporter_init_failed endpoint=%s err=%q", endpoint, err.Error())
			} else {
				opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
			}
		}

		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		shutdown = tp.Shutdown
		if endpoint != "" {
			log.Printf("brain-observability tracing_initialized service=%s endpoint=%s", serviceName, endpoint)
		}
	})
	return shutdown
}
