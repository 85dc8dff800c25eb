// Package telemetry sets up OpenTelemetry tracing for membersync processes.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"github.com/openfga/membersync/internal/build"
)

const exporterDialTimeout = 2 * time.Second

type TracerOption func(t *tracerConfig)

func WithOTLPEndpoint(endpoint string) TracerOption {
	return func(t *tracerConfig) {
		t.endpoint = endpoint
	}
}

func WithServiceName(serviceName string) TracerOption {
	return func(t *tracerConfig) {
		t.serviceName = serviceName
	}
}

func WithSamplingRatio(samplingRatio float64) TracerOption {
	return func(t *tracerConfig) {
		t.samplingRatio = samplingRatio
	}
}

// WithTLS makes the OTLP exporter connect over TLS instead of plaintext.
func WithTLS(enabled bool) TracerOption {
	return func(t *tracerConfig) {
		t.tls = enabled
	}
}

// WithExporter replaces the OTLP exporter, which is then never dialed.
func WithExporter(exp sdktrace.SpanExporter) TracerOption {
	return func(t *tracerConfig) {
		t.exporter = exp
	}
}

type tracerConfig struct {
	endpoint      string
	serviceName   string
	samplingRatio float64
	tls           bool
	exporter      sdktrace.SpanExporter
}

// NewTracerProvider builds a batching tracer provider exporting over OTLP/gRPC
// and installs it, together with the W3C propagators, as the global provider.
func NewTracerProvider(opts ...TracerOption) (*sdktrace.TracerProvider, error) {
	cfg := &tracerConfig{
		serviceName: build.ProjectName,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(cfg.serviceName),
			semconv.ServiceVersionKey.String(build.Version),
		))
	if err != nil {
		return nil, err
	}

	exp := cfg.exporter
	if exp == nil {
		ctx, cancel := context.WithTimeout(context.Background(), exporterDialTimeout)
		defer cancel()

		exporterOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.endpoint),
			otlptracegrpc.WithDialOption(grpc.WithUserAgent(build.ProjectName + "/" + build.Version)),
		}
		if !cfg.tls {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}

		exp, err = otlptracegrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to establish a connection with the otlp exporter: %w", err)
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.samplingRatio))),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exp)),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetTracerProvider(tp)

	return tp, nil
}

func MustNewTracerProvider(opts ...TracerOption) *sdktrace.TracerProvider {
	tp, err := NewTracerProvider(opts...)
	if err != nil {
		panic(err)
	}
	return tp
}

// TraceError marks span as failed with err.
func TraceError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
