// Package otel owns the engine's OpenTelemetry wiring: a log provider the
// slog bridge hangs off, and access to the global meter the dispatcher and
// workers instrument against.
package otel

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config selects the export targets. At least one of LogWriter and Endpoint
// must be set when Enabled is.
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	// LogWriter receives pretty-printed OTel log records, normally the
	// session log file.
	LogWriter io.Writer
	// Endpoint adds an OTLP/HTTP log exporter when non-empty.
	Endpoint string
	Insecure bool
}

// Provider bundles the configured log pipeline. A disabled provider is a
// valid no-op value, so callers never branch on configuration.
type Provider struct {
	logProvider *sdklog.LoggerProvider
	config      Config
}

// New builds the provider. Disabled configs return a no-op provider and no
// error.
func New(cfg Config) (*Provider, error) {
	p := &Provider{config: cfg}
	if !cfg.Enabled {
		return p, nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var processors []sdklog.Processor
	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(
			stdoutlog.WithWriter(cfg.LogWriter),
			stdoutlog.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create file log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(exp,
			sdklog.WithExportTimeout(cfg.BatchTimeout)))
	}
	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(exp,
			sdklog.WithExportTimeout(cfg.BatchTimeout)))
	}
	if len(processors) == 0 {
		return nil, fmt.Errorf("otel enabled but no log writer or endpoint configured")
	}

	providerOpts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, proc := range processors {
		providerOpts = append(providerOpts, sdklog.WithProcessor(proc))
	}
	p.logProvider = sdklog.NewLoggerProvider(providerOpts...)
	return p, nil
}

// LoggerProvider returns the log provider for the otelslog bridge, nil when
// disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Meter returns a named meter from the global provider. It is a no-op until
// a metric SDK is installed globally.
func (p *Provider) Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Flush exports everything pending. Called when a run completes so short
// commands don't lose their tail records to batching.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush failed: %w", err)
	}
	return nil
}

// Shutdown flushes and tears the pipeline down at process exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}

// Enabled reports whether the config turned the pipeline on.
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}
