// Package toolflow provides a top-level convenience entry point for building
// the standard tool-augmented agent with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/toolflow"
//
//	a, err := toolflow.New(toolflow.WithName("Helper"), toolflow.WithTools("weather", "calculator"))
//	env := a.Process(ctx, agent.Request{Message: "Calculate 15 * 7"})
//
//	// or, with the process-wide default agent:
//	env := toolflow.Process(ctx, agent.Request{Message: "What's the weather in London?", Type: "weather"})
package toolflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/agent"
	"github.com/BaSui01/toolflow/tools"
	"github.com/BaSui01/toolflow/types"
)

// Defaults used by New when no option overrides them.
const (
	DefaultName         = "toolflow-agent"
	DefaultInstructions = "You are a helpful assistant with access to tools."
)

// Option configures the agent created by New.
type Option func(*options)

type options struct {
	name         string
	instructions string
	version      string
	model        agent.ModelRef
	toolIDs      []string
	weather      tools.WeatherOptions
	selector     agent.Selector
	observers    []agent.Observer
	logger       *zap.Logger
}

// WithName sets the agent name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithInstructions sets the agent instructions.
func WithInstructions(instructions string) Option {
	return func(o *options) { o.instructions = instructions }
}

// WithVersion sets the agent version. Defaults to agent.DefaultVersion.
func WithVersion(version string) Option {
	return func(o *options) { o.version = version }
}

// WithModel sets the opaque model reference.
func WithModel(provider, name string) Option {
	return func(o *options) { o.model = agent.ModelRef{Provider: provider, Name: name} }
}

// WithTools restricts the agent to the given standard tool ids, in order.
// No call (or no ids) enables every standard tool.
func WithTools(ids ...string) Option {
	return func(o *options) { o.toolIDs = append(o.toolIDs, ids...) }
}

// WithWeather configures the simulated weather tool (seed, latency, cache).
func WithWeather(w tools.WeatherOptions) Option {
	return func(o *options) { o.weather = w }
}

// WithSelector installs a custom selector that runs before standard dispatch.
func WithSelector(s agent.Selector) Option {
	return func(o *options) { o.selector = s }
}

// WithObservers registers envelope observers (metrics, journal).
func WithObservers(obs ...agent.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs...) }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New builds an agent over the standard weather, calculator and echo tools.
func New(opts ...Option) (*agent.Agent, error) {
	o := &options{
		name:         DefaultName,
		instructions: DefaultInstructions,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.weather.Logger == nil {
		o.weather.Logger = o.logger
	}

	kit, err := tools.Standard(tools.Options{Weather: o.weather})
	if err != nil {
		return nil, fmt.Errorf("build standard tools: %w", err)
	}
	selected, err := kit.Select(o.toolIDs...)
	if err != nil {
		return nil, err
	}

	return agent.New(agent.Config{
		Name:         o.name,
		Instructions: o.instructions,
		Version:      o.version,
		Model:        o.model,
		Tools:        selected.Tools(),
		Routes:       selected.Routes(),
		Patterns:     selected.Patterns(),
		Selector:     o.selector,
		Observers:    o.observers,
		Logger:       o.logger,
	})
}

// defaultAgent is built once, on first use, and shared by every caller.
var defaultAgent = sync.OnceValues(func() (*agent.Agent, error) {
	return New()
})

// Default returns the process-wide standard agent.
func Default() (*agent.Agent, error) {
	return defaultAgent()
}

// Process runs req through the process-wide standard agent. It always
// returns an envelope; a construction failure becomes an error envelope.
func Process(ctx context.Context, req agent.Request) agent.Envelope {
	a, err := defaultAgent()
	if err != nil {
		return agent.Envelope{
			Type:             agent.KindError,
			Message:          "Agent is not available",
			Error:            err.Error(),
			Agent:            DefaultName,
			Timestamp:        time.Now().UTC().Format(agent.TimestampFormat),
			ExecutionContext: map[string]any{
				agent.CtxInputReceived: req,
				agent.CtxErrorType:     string(types.GetErrorCode(err)),
			},
		}
	}
	return a.Process(ctx, req)
}
