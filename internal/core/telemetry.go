package core

import (
	"context"

	"figures/internal/configuration"
	"figures/internal/models"

	"github.com/grafana/pyroscope-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// StartTracing installs an OTLP/HTTP tracer provider. The returned function
// flushes pending spans.
func StartTracing(ctx context.Context, config models.TelemetryConfiguration) func(context.Context) error {
	if !config.Enabled {
		return func(context.Context) error { return nil }
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		zap.L().Fatal("Failed to create trace exporter", zap.String("endpoint", config.Endpoint), zap.Error(err))
	}

	serviceName := config.ServiceName
	if serviceName == "" {
		serviceName = configuration.AppName
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	zap.L().Info("Tracing enabled", zap.String("endpoint", config.Endpoint), zap.String("service", serviceName))
	return provider.Shutdown
}

// StartProfiling pushes continuous profiles to a Pyroscope server.
func StartProfiling(config models.ProfilingConfiguration, appIdentity string) {
	if !config.Enabled {
		return
	}

	_, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: configuration.AppName,
		ServerAddress:   config.ServerURL,
		Tags:            map[string]string{"instance": appIdentity},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		zap.L().Error("Failed to start profiler", zap.String("server", config.ServerURL), zap.Error(err))
		return
	}
	zap.L().Info("Profiling enabled", zap.String("server", config.ServerURL))
}
