package telemetry

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/config"
)

// InstrumentationName is the meter and tracer scope used by toolflow.
const InstrumentationName = "github.com/BaSui01/toolflow"

// AgentNameKey 资源属性：进程内承载的 Agent 名称
const AgentNameKey = attribute.Key("toolflow.agent.name")

// ServiceInfo 描述写入 OTel resource 的服务身份。
// 空字段回退到配置中的 service_name 与构建信息中的版本。
type ServiceInfo struct {
	Name      string
	Version   string
	AgentName string
}

// Providers holds the SDK providers and the scoped tracer/meter handed to
// the agent and the envelope observer. When telemetry is disabled the
// providers are nil and Tracer/Meter fall back to the global noop ones.
type Providers struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	tracer trace.Tracer
	meter  metric.Meter
}

// Init installs OTLP/gRPC trace and metric pipelines as the global
// providers. Disabled config returns noop Providers without dialing.
func Init(ctx context.Context, cfg config.TelemetryConfig, svc ServiceInfo, logger *zap.Logger) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("telemetry disabled, using noop providers")
		return &Providers{}, nil
	}

	res, err := newResource(ctx, cfg, svc)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(cfg.SampleRate)),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("telemetry initialized",
		zap.String("endpoint", cfg.OTLPEndpoint),
		zap.String("service_name", serviceName(cfg, svc)),
		zap.String("agent", svc.AgentName),
		zap.Float64("sample_rate", cfg.SampleRate),
	)

	return &Providers{
		tp:     tp,
		mp:     mp,
		tracer: tp.Tracer(InstrumentationName + "/agent"),
		meter:  mp.Meter(InstrumentationName),
	}, nil
}

// Sampler 按比例采样，但始终尊重上游 span 的采样决定。
// rate 超出 [0,1] 时截断。
func Sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case rate <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

func newResource(ctx context.Context, cfg config.TelemetryConfig, svc ServiceInfo) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(serviceName(cfg, svc)),
		semconv.ServiceVersionKey.String(serviceVersion(svc)),
	}
	if name := strings.TrimSpace(svc.AgentName); name != "" {
		attrs = append(attrs, AgentNameKey.String(name))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}
	return res, nil
}

func serviceName(cfg config.TelemetryConfig, svc ServiceInfo) string {
	if svc.Name != "" {
		return svc.Name
	}
	if cfg.ServiceName != "" {
		return cfg.ServiceName
	}
	return "toolflow"
}

func serviceVersion(svc ServiceInfo) string {
	if svc.Version != "" && svc.Version != "dev" {
		return svc.Version
	}
	return buildVersion()
}

// Enabled reports whether real SDK providers are installed.
func (p *Providers) Enabled() bool {
	return p != nil && p.tp != nil
}

// Tracer returns the tracer for agent spans. Safe on nil and noop Providers.
func (p *Providers) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return otel.Tracer(InstrumentationName + "/agent")
	}
	return p.tracer
}

// Meter returns the meter for envelope instruments. Safe on nil and noop Providers.
func (p *Providers) Meter() metric.Meter {
	if p == nil || p.meter == nil {
		return otel.Meter(InstrumentationName)
	}
	return p.meter
}

// Shutdown flushes pending spans/metrics and closes exporters.
// Safe to call on nil or noop Providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// buildVersion extracts the module version from Go build info.
// Falls back to "dev" if unavailable.
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
