package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/BaSui01/toolflow/agent"
)

// EnvelopeObserver records processed requests as OTel metrics. With the
// global noop MeterProvider it costs nothing.
type EnvelopeObserver struct {
	requests metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewEnvelopeObserver creates the instruments on meter; nil uses the
// global MeterProvider.
func NewEnvelopeObserver(meter metric.Meter) (*EnvelopeObserver, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	requests, err := meter.Int64Counter("toolflow.agent.requests",
		metric.WithDescription("Processed agent requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("create requests counter: %w", err)
	}
	errs, err := meter.Int64Counter("toolflow.agent.errors",
		metric.WithDescription("Error envelopes by error code"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, fmt.Errorf("create errors counter: %w", err)
	}
	duration, err := meter.Float64Histogram("toolflow.agent.duration",
		metric.WithDescription("Agent request processing duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &EnvelopeObserver{requests: requests, errors: errs, duration: duration}, nil
}

// ObserveEnvelope implements agent.Observer.
func (o *EnvelopeObserver) ObserveEnvelope(ctx context.Context, ev agent.Event) {
	attrs := metric.WithAttributes(
		attribute.String("agent", ev.Agent),
		attribute.String("strategy", string(ev.Strategy)),
		attribute.String("type", ev.Envelope.Type),
	)
	o.requests.Add(ctx, 1, attrs)
	o.duration.Record(ctx, float64(ev.Duration.Microseconds())/1000, attrs)

	if ev.ErrorCode != "" {
		o.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("agent", ev.Agent),
			attribute.String("code", string(ev.ErrorCode)),
		))
	}
}
