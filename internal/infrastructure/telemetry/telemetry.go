// Package telemetry wires OpenTelemetry traces, metrics and logs, plus
// Pyroscope continuous profiling, for the print shop backend.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/printshop/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// Version is reported as service.version; overridden at build time with -ldflags.
var Version = "dev"

const providerShutdownTimeout = 10 * time.Second

// ExportConfig is what every OTLP signal needs to reach the collector.
// A provider built from a disabled config exports nothing.
type ExportConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	Environment       string
	Insecure          bool
}

func (c ExportConfig) resource() (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(c.ServiceName),
			semconv.ServiceVersion(Version),
			semconv.DeploymentEnvironmentName(c.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// stopSDK shuts an SDK provider down within providerShutdownTimeout
func stopSDK(ctx context.Context, signal string, stop func(context.Context) error, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, providerShutdownTimeout)
	defer cancel()

	if err := stop(ctx); err != nil {
		logger.Error("Error shutting down "+signal+" provider", zap.Error(err))
		return fmt.Errorf("failed to shutdown %s provider: %w", signal, err)
	}
	return nil
}

// Providers groups every telemetry component started for the process
type Providers struct {
	Tracer   *TracerProvider
	Meter    *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler
}

// Setup starts the providers selected by cfg. Disabled signals get no-op
// providers so callers never need nil checks.
func Setup(ctx context.Context, cfg config.TelemetryConfig, env string, logger *zap.Logger) (*Providers, error) {
	export := func(enabled bool) ExportConfig {
		return ExportConfig{
			Enabled:           cfg.Enabled && enabled,
			CollectorEndpoint: cfg.CollectorEndpoint,
			ServiceName:       cfg.ServiceName,
			Environment:       env,
			Insecure:          cfg.Insecure,
		}
	}

	p := &Providers{}
	fail := func(err error) (*Providers, error) {
		_ = p.Shutdown(ctx)
		return nil, err
	}

	var err error
	if p.Tracer, err = NewTracerProvider(ctx, TracingConfig{ExportConfig: export(true), SamplingRatio: cfg.SamplingRatio}, logger); err != nil {
		return fail(err)
	}
	if p.Meter, err = NewMeterProvider(ctx, MetricsConfig{ExportConfig: export(cfg.MetricsEnabled)}, logger); err != nil {
		return fail(err)
	}
	if p.Logs, err = NewLoggerProvider(ctx, export(cfg.LogsEnabled), logger); err != nil {
		return fail(err)
	}
	p.Profiler, err = NewProfiler(ProfilerConfig{
		Enabled:         cfg.ProfilingEnabled,
		ServerAddress:   cfg.ProfilingServer,
		ApplicationName: cfg.ProfilingAppName,
		Environment:     env,
	}, logger)
	if err != nil {
		return fail(err)
	}

	// Span ids only reach the profiles when both run
	if p.Profiler.IsEnabled() {
		p.Tracer.EnableSpanProfiles()
	}
	return p, nil
}

// Shutdown flushes and stops every provider, profiler first
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Profiler != nil {
		errs = append(errs, p.Profiler.Stop())
	}
	if p.Logs != nil {
		errs = append(errs, p.Logs.Shutdown(ctx))
	}
	if p.Meter != nil {
		errs = append(errs, p.Meter.Shutdown(ctx))
	}
	if p.Tracer != nil {
		errs = append(errs, p.Tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
