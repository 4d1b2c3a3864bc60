// Package otel owns the OpenTelemetry providers of one CLI invocation: an
// optional log pipeline bridged from slog, and an in-process meter used for
// request statistics.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ErrNoLogOutput is returned when log export is enabled without a writer or endpoint.
var ErrNoLogOutput = errors.New("otel log export enabled but no log writer or endpoint configured")

// Config selects which pipelines the Provider builds.
type Config struct {
	// Enabled turns on log export.
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	BatchTimeout   time.Duration
	LogWriter      io.Writer // pretty-printed records, usually the session log
	Endpoint       string    // OTLP/HTTP collector, optional
	Insecure       bool
	// Metrics keeps request counters in memory so Counters can report them.
	Metrics bool
}

// Provider holds the providers built from a Config. Its zero parts are nil
// and every method tolerates that.
type Provider struct {
	cfg    Config
	logs   *sdklog.LoggerProvider
	meters *sdkmetric.MeterProvider
	reader *sdkmetric.ManualReader
}

// New builds the configured pipelines.
func New(cfg Config) (*Provider, error) {
	p := &Provider{cfg: cfg}
	if !cfg.Enabled && !cfg.Metrics {
		return p, nil
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	if cfg.Metrics {
		p.reader = sdkmetric.NewManualReader()
		p.meters = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(p.reader),
		)
	}

	if cfg.Enabled {
		p.logs, err = newLoggerProvider(cfg, res)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

func newLoggerProvider(cfg Config, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	batch := func(e sdklog.Exporter) sdklog.LoggerProviderOption {
		return sdklog.WithProcessor(sdklog.NewBatchProcessor(e, sdklog.WithExportTimeout(cfg.BatchTimeout)))
	}

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("otel file exporter: %w", err)
		}
		opts = append(opts, batch(exp))
	}

	if cfg.Endpoint != "" {
		httpOpts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			httpOpts = append(httpOpts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(context.Background(), httpOpts...)
		if err != nil {
			return nil, fmt.Errorf("otel OTLP exporter: %w", err)
		}
		opts = append(opts, batch(exp))
	}

	if len(opts) == 1 {
		return nil, ErrNoLogOutput
	}
	return sdklog.NewLoggerProvider(opts...), nil
}

// LoggerProvider feeds the otelslog bridge; nil when log export is off.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

// Meter returns a meter from the in-process provider, or a no-op meter.
func (p *Provider) Meter(name string) metric.Meter {
	if p.meters == nil {
		return noop.Meter{}
	}
	return p.meters.Meter(name)
}

// Install registers the meter provider globally so otel.Meter callers report to it.
func (p *Provider) Install() {
	if p.meters != nil {
		otel.SetMeterProvider(p.meters)
	}
}

// Counters collects every int64 sum and totals it per metric name.
func (p *Provider) Counters(ctx context.Context) (map[string]int64, error) {
	totals := make(map[string]int64)
	if p.reader == nil {
		return totals, nil
	}

	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	return totals, nil
}

// Flush pushes buffered log records to the exporters.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.ForceFlush(ctx); err != nil {
		return fmt.Errorf("flush logs: %w", err)
	}
	return nil
}

// Shutdown stops both providers, reporting every failure.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.meters != nil {
		if err := p.meters.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meters: %w", err))
		}
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown logs: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Enabled reports whether log export is on.
func (p *Provider) Enabled() bool {
	return p.cfg.Enabled
}
