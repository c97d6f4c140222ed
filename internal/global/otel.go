package global

import (
	"context"
	"crypto/tls"
	"errors"

	"github.com/ChiaYuChang/sharpai/pkgs/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

var ErrNoCollectorEndpoint = errors.New("collector endpoint is required")

// InitTraceProvider exports SDK spans to an OTLP collector over gRPC and
// installs the provider globally. The returned function flushes and shuts
// the provider down.
func InitTraceProvider(ctx context.Context, cfg *OtelConfig) (func(context.Context) error, error) {
	if !cfg.Enabled() {
		return nil, ErrNoCollectorEndpoint
	}

	Logger.Info().
		Str("endpoint", cfg.CollectorEndpoint).
		Str("service_name", cfg.ServiceName).
		Float64("sample_ratio", cfg.SampleRatio).
		Msg("Initializing OpenTelemetry trace provider")

	creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if cfg.Insecure {
		creds = insecure.NewCredentials()
		Logger.Warn().
			Msg("gRPC connection is using insecure credentials (no TLS). Do not expose this endpoint to the public internet.")
	}

	conn, err := grpc.NewClient(cfg.CollectorEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(utils.DefaultIfZero(cfg.ServiceName, "sharpai")),
			semconv.DeploymentEnvironment(Mode()),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(cfg.SampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{}))

	return tp.Shutdown, nil
}
