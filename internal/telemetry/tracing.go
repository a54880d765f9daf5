package telemetry

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pocketomega/pocket-flow/internal/config"
	"github.com/pocketomega/pocket-flow/pkg/core"
)

const instrumentationName = "github.com/pocketomega/pocket-flow"

// Tracing is a core.Observer that opens one span per node visit. Nested flows
// produce nested spans because each visit runs under the context its span was
// started in.
type Tracing struct {
	tracer trace.Tracer
}

// NewTracing creates a tracing observer. A nil provider means the global one.
func NewTracing(tp trace.TracerProvider) *Tracing {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracing{tracer: tp.Tracer(instrumentationName)}
}

func (t *Tracing) NodeStarted(ctx context.Context, ev core.NodeEvent) context.Context {
	attrs := []attribute.KeyValue{
		attribute.String("pocketflow.run_id", ev.RunID),
		attribute.String("pocketflow.node", ev.Node),
	}
	if ev.Flow != "" {
		attrs = append(attrs,
			attribute.String("pocketflow.flow", ev.Flow),
			attribute.Int("pocketflow.step", ev.Step),
		)
	}
	ctx, _ = t.tracer.Start(ctx, ev.Node, trace.WithAttributes(attrs...))
	return ctx
}

func (t *Tracing) NodeFinished(ctx context.Context, ev core.NodeEvent) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("pocketflow.action", string(ev.Action)))
	if ev.Err != nil {
		span.RecordError(ev.Err)
		span.SetStatus(codes.Error, ev.Err.Error())
	}
	span.End()
}

func (t *Tracing) RetryScheduled(ctx context.Context, ev core.RetryEvent) {
	trace.SpanFromContext(ctx).AddEvent("retry", trace.WithAttributes(
		attribute.Int("pocketflow.attempt", ev.Attempt),
		attribute.Int("pocketflow.max_retries", ev.MaxRetries),
		attribute.String("pocketflow.wait", ev.Wait.String()),
		attribute.String("error", errString(ev.Err)),
	))
}

func (t *Tracing) FallbackInvoked(ctx context.Context, ev core.RetryEvent) {
	trace.SpanFromContext(ctx).AddEvent("fallback", trace.WithAttributes(
		attribute.Int("pocketflow.attempts", ev.Attempt+1),
		attribute.String("error", errString(ev.Err)),
	))
}

func (t *Tracing) Diagnostic(ctx context.Context, d core.Diagnostic) {
	trace.SpanFromContext(ctx).AddEvent("diagnostic", trace.WithAttributes(
		attribute.String("pocketflow.diagnostic", string(d.Kind)),
		attribute.String("pocketflow.node", d.Node),
		attribute.String("message", d.Message),
	))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Providers holds the SDK TracerProvider. When tracing is disabled tp is nil
// and Shutdown is a no-op.
type Providers struct {
	tp *sdktrace.TracerProvider
}

// InitTracing sets up an OTLP gRPC exporter and registers the TracerProvider
// globally. When cfg.Enabled is false, nothing connects anywhere.
func InitTracing(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*Providers, error) {
	if logger == nil {
		logger = zap.L()
	}
	if !cfg.Enabled {
		logger.Debug("tracing disabled, using noop provider")
		return &Providers{}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(Version()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing initialized",
		zap.String("endpoint", cfg.OTLPEndpoint),
		zap.String("service_name", cfg.ServiceName),
		zap.Float64("sample_rate", cfg.SampleRate),
	)
	return &Providers{tp: tp}, nil
}

// TracerProvider returns the SDK provider, or the global one when tracing is off.
func (p *Providers) TracerProvider() trace.TracerProvider {
	if p == nil || p.tp == nil {
		return otel.GetTracerProvider()
	}
	return p.tp
}

// Enabled reports whether an SDK provider was installed.
func (p *Providers) Enabled() bool { return p != nil && p.tp != nil }

// Shutdown flushes pending spans and closes the exporter.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	return nil
}

// Version returns the module version from build info, "dev" when unknown.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
