// Package observability configures the process-wide slog logger, optionally
// exporting records through the OpenTelemetry logs pipeline.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// instrumentationName identifies log records emitted through the OTel bridge.
const instrumentationName = "github.com/florianilch/authhelper"

// Exporter names accepted by Options.Exporter.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Options describes the logging setup.
type Options struct {
	Level  slog.Level
	Format string // text|json, used without an exporter

	// Exporter selects an OTel log exporter. Empty or ExporterNone logs to stderr.
	Exporter string
	// Endpoint overrides the OTLP endpoint URL.
	Endpoint string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// ShutdownFunc flushes and stops the logging pipeline.
type ShutdownFunc func(ctx context.Context) error

// Instrument installs the default slog logger described by opts.
func Instrument(ctx context.Context, opts Options) (ShutdownFunc, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	if opts.Exporter == "" || opts.Exporter == ExporterNone {
		handler, err := newHandler(out, opts.Level, opts.Format)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(slog.New(handler))
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("creating %s log exporter: %w", opts.Exporter, err)
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(opts.Level))
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))

	// OTel reports its own failures through a global handler; keep them visible
	fallback, err := newHandler(out, slog.LevelWarn, opts.Format)
	if err != nil {
		return nil, err
	}
	fallbackLogger := slog.New(fallback)
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		fallbackLogger.Error("opentelemetry error", "error", err)
	}))

	slog.SetDefault(slog.New(otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))))

	return provider.Shutdown, nil
}

func newHandler(out io.Writer, level slog.Level, format string) (slog.Handler, error) {
	handlerOpts := &slog.HandlerOptions{Level: level}
	switch format {
	case "", "text":
		return slog.NewTextHandler(out, handlerOpts), nil
	case "json":
		return slog.NewJSONHandler(out, handlerOpts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

func newExporter(ctx context.Context, opts Options) (sdklog.Exporter, error) {
	switch opts.Exporter {
	case ExporterStdout:
		return stdoutlog.New(stdoutlog.WithWriter(opts.outputOrStdout()))
	case ExporterOTLPHTTP:
		var exporterOpts []otlploghttp.Option
		if opts.Endpoint != "" {
			exporterOpts = append(exporterOpts, otlploghttp.WithEndpointURL(opts.Endpoint))
		}
		return otlploghttp.New(ctx, exporterOpts...)
	case ExporterOTLPGRPC:
		var exporterOpts []otlploggrpc.Option
		if opts.Endpoint != "" {
			exporterOpts = append(exporterOpts, otlploggrpc.WithEndpointURL(opts.Endpoint))
		}
		return otlploggrpc.New(ctx, exporterOpts...)
	default:
		return nil, errors.New("unknown exporter")
	}
}

func (o Options) outputOrStdout() io.Writer {
	if o.Output != nil {
		return o.Output
	}
	return os.Stdout
}

// severity maps a slog level to the minimum OTel severity passed to exporters.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level < slog.LevelInfo:
		return minsev.SeverityDebug
	case level < slog.LevelWarn:
		return minsev.SeverityInfo
	case level < slog.LevelError:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
