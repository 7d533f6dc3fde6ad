package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/agent"
	"github.com/BaSui01/toolflow/contract"
	"github.com/BaSui01/toolflow/tool"
	"github.com/BaSui01/toolflow/types"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(agg metricdata.Aggregation) int64 {
	s, ok := agg.(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	var total int64
	for _, dp := range s.DataPoints {
		total += dp.Value
	}
	return total
}

func TestEnvelopeObserver_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	obs, err := NewEnvelopeObserver(mp.Meter(InstrumentationName))
	require.NoError(t, err)

	ctx := context.Background()
	obs.ObserveEnvelope(ctx, agent.Event{
		Agent:    "a",
		Strategy: agent.StrategyTagged,
		Envelope: agent.Envelope{Type: agent.KindEcho},
		Duration: 2 * time.Millisecond,
	})
	obs.ObserveEnvelope(ctx, agent.Event{
		Agent:     "a",
		Strategy:  agent.StrategyTagged,
		Envelope:  agent.Envelope{Type: agent.KindError},
		ErrorCode: types.ErrToolExecution,
	})

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(data["toolflow.agent.requests"]))
	assert.Equal(t, int64(1), sumOf(data["toolflow.agent.errors"]))

	hist, ok := data["toolflow.agent.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}

func TestEnvelopeObserver_GlobalNoop(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	obs, err := NewEnvelopeObserver(nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		obs.ObserveEnvelope(context.Background(), agent.Event{Agent: "a"})
	})
}

// Agent 处理请求时应产生 agent.process 与 agent.execute 两个 span，
// 并与 EnvelopeObserver 协同工作。
func TestAgentSpansAndMetrics(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	obs, err := NewEnvelopeObserver(mp.Meter(InstrumentationName))
	require.NoError(t, err)

	echo := tool.MustNew(tool.Definition{
		ID:    "echo",
		Input: contract.Object().Prop("text", contract.String()).Require("text"),
		Execute: func(_ context.Context, in map[string]any) (any, error) {
			return map[string]any{"echo": in["text"]}, nil
		},
	})

	a, err := agent.New(agent.Config{
		Name:  "traced",
		Tools: []*tool.Tool{echo},
		Routes: []agent.TagRoute{{
			Tag:    "echo",
			ToolID: "echo",
			Kind:   agent.KindEcho,
			Build: func(req agent.Request) (map[string]any, map[string]any) {
				return map[string]any{"text": req.Message}, nil
			},
		}},
		Observers: []agent.Observer{obs},
		Logger:    zap.NewNop(),
		Tracer:    tp.Tracer(InstrumentationName),
	})
	require.NoError(t, err)

	env := a.Process(context.Background(), agent.Request{Message: "hi", Type: "echo"})
	require.False(t, env.IsError(), env.Error)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"agent.process", "agent.execute"}, names)
	assert.Equal(t, int64(1), sumOf(collect(t, reader)["toolflow.agent.requests"]))
}
