package toolflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/toolflow/agent"
	"github.com/BaSui01/toolflow/tools"
	"github.com/BaSui01/toolflow/types"
)

func TestNew_Defaults(t *testing.T) {
	a, err := New(WithWeather(tools.WeatherOptions{Seed: 1}))
	require.NoError(t, err)

	assert.Equal(t, DefaultName, a.Name())
	assert.Equal(t, DefaultInstructions, a.Instructions())
	assert.Equal(t, agent.DefaultVersion, a.Version())
	assert.Equal(t, []string{tools.WeatherToolID, tools.CalculatorToolID, tools.EchoToolID}, a.ToolIDs())
}

func TestNew_Options(t *testing.T) {
	var seen []string
	a, err := New(
		WithName("Helper"),
		WithInstructions("Be brief."),
		WithVersion("2.1.0"),
		WithModel("anthropic", "claude"),
		WithTools("echo"),
		WithObservers(agent.ObserverFunc(func(_ context.Context, ev agent.Event) {
			seen = append(seen, ev.Envelope.Type)
		})),
	)
	require.NoError(t, err)

	assert.Equal(t, "Helper", a.Name())
	assert.Equal(t, agent.ModelRef{Provider: "anthropic", Name: "claude"}, a.Model())
	assert.Equal(t, []string{tools.EchoToolID}, a.ToolIDs())

	env := a.Process(context.Background(), agent.Request{Message: "Calculate 2 + 2"})
	assert.Equal(t, agent.KindGeneral, env.Type)
	assert.Equal(t, []string{agent.KindGeneral}, seen)
}

func TestNew_UnknownTool(t *testing.T) {
	_, err := New(WithTools("translator"))
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestNew_EmptyName(t *testing.T) {
	_, err := New(WithName("  "))
	assert.ErrorIs(t, err, agent.ErrConfigInvalid)
}

func TestNew_Selector(t *testing.T) {
	a, err := New(WithSelector(func(req agent.Request) (agent.Decision, bool) {
		if req.Type != "shout" {
			return agent.Decision{}, false
		}
		return agent.Decision{
			Kind:   agent.KindEcho,
			ToolID: tools.EchoToolID,
			Input:  map[string]any{"text": req.Message, "uppercase": true},
		}, true
	}))
	require.NoError(t, err)

	env := a.Process(context.Background(), agent.Request{Message: "hello", Type: "shout"})
	require.Equal(t, agent.KindEcho, env.Type, env.Error)
	assert.Equal(t, "HELLO", env.Data.(map[string]any)["echo"])
}

func TestProcess_DefaultAgent(t *testing.T) {
	env := Process(context.Background(), agent.Request{Message: "Calculate 15 * 7"})
	require.Equal(t, agent.KindCalculation, env.Type, env.Error)
	assert.Equal(t, 105.0, env.Data.(map[string]any)["result"])

	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}
