package agent

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/internal/ctxkeys"
	"github.com/BaSui01/toolflow/tool"
	"github.com/BaSui01/toolflow/types"
)

// ModelRef is an opaque model descriptor. The core never calls the model.
type ModelRef struct {
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Name     string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Config 定义 Agent 构造参数
type Config struct {
	Name         string
	Instructions string
	Version      string
	Model        ModelRef

	// Tools are registered in order into the agent's own registry.
	Tools    []*tool.Tool
	Routes   []TagRoute
	Patterns []Pattern

	// Selector runs before the standard dispatcher when set.
	Selector  Selector
	Observers []Observer

	Logger *zap.Logger
	Tracer trace.Tracer
	// Now overrides the clock for timestamps (tests).
	Now func() time.Time
}

// Agent holds identity, a model reference and a private tool registry.
// It has no per-request mutable state; Process is safe for concurrent use.
type Agent struct {
	name         string
	instructions string
	version      string
	model        ModelRef

	registry   *tool.Registry
	dispatcher *dispatcher
	observers  []Observer

	logger *zap.Logger
	tracer trace.Tracer
	clock  func() time.Time
}

// New builds an Agent. Every configuration problem (empty name, nil or
// duplicate tools, dangling routes) is reported here rather than at
// request time.
func New(cfg Config) (*Agent, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrConfigInvalid)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "agent"), zap.String("agent", name))

	registry := tool.NewRegistry(logger)
	for i, t := range cfg.Tools {
		if t == nil {
			return nil, fmt.Errorf("%w: tool at index %d is nil", ErrConfigInvalid, i)
		}
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}

	d, err := newDispatcher(cfg.Selector, cfg.Routes, cfg.Patterns, registry)
	if err != nil {
		return nil, err
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/BaSui01/toolflow/agent")
	}
	clock := cfg.Now
	if clock == nil {
		clock = time.Now
	}

	version := cfg.Version
	if version == "" {
		version = DefaultVersion
	}

	return &Agent{
		name:         name,
		instructions: cfg.Instructions,
		version:      version,
		model:        cfg.Model,
		registry:     registry,
		dispatcher:   d,
		observers:    append([]Observer(nil), cfg.Observers...),
		logger:       logger,
		tracer:       tracer,
		clock:        clock,
	}, nil
}

// DefaultVersion is used when Config.Version is empty.
const DefaultVersion = "1.0.0"

// Process is the single entry point: dispatch, execute, wrap. It always
// returns one envelope and never panics.
func (a *Agent) Process(ctx context.Context, req Request) Envelope {
	start := a.now()
	original := req

	if strings.TrimSpace(req.Message) == "" {
		req.Message = NoMessage
	}

	if _, ok := ctxkeys.RequestID(ctx); !ok {
		ctx = ctxkeys.WithRequestID(ctx, uuid.NewString())
	}

	ctx, span := a.tracer.Start(ctx, "agent.process", trace.WithAttributes(
		attribute.String("agent.name", a.name),
		attribute.String("request.type", req.Type),
	))
	defer span.End()

	var dec Decision
	env, code := func() (env Envelope, code types.ErrorCode) {
		defer func() {
			if r := recover(); r != nil {
				code = types.ErrUnknown
				err := types.NewError(code, fmt.Sprintf("panic while processing request: %v", r))
				env = a.errorEnvelope(original, dec, requestIDFrom(ctx), code, err)
				a.logger.Error("request panicked", zap.Any("panic", r))
			}
		}()
		dec = a.dispatcher.dispatch(req)
		return a.run(ctx, req, original, dec)
	}()

	span.SetAttributes(
		attribute.String("response.type", env.Type),
		attribute.String("agent.strategy", string(dec.Strategy)),
	)

	a.notify(ctx, Event{
		Agent:     a.name,
		Request:   original,
		Strategy:  dec.Strategy,
		ToolID:    dec.ToolID,
		Pattern:   dec.Pattern,
		Envelope:  env,
		ErrorCode: code,
		Duration:  a.now().Sub(start),
	})
	return env
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Instructions returns the agent instructions.
func (a *Agent) Instructions() string { return a.instructions }

// Version returns the agent version.
func (a *Agent) Version() string { return a.version }

// Model returns the opaque model reference.
func (a *Agent) Model() ModelRef { return a.model }

// Tools lists registered tools in registration order.
func (a *Agent) Tools() iter.Seq[tool.Summary] { return a.registry.List() }

// ToolIDs returns registered tool ids in registration order.
func (a *Agent) ToolIDs() []string { return a.registry.IDs() }

// Tool returns the registered tool with the given id.
func (a *Agent) Tool(id string) (*tool.Tool, error) { return a.registry.Get(id) }

// Identity is the serializable description of an agent.
type Identity struct {
	Name         string         `json:"name"`
	Instructions string         `json:"instructions,omitempty"`
	Version      string         `json:"version"`
	Model        ModelRef       `json:"model"`
	Tools        []tool.Summary `json:"tools"`
}

// Identity returns the agent's identity and capabilities.
func (a *Agent) Identity() Identity {
	return Identity{
		Name:         a.name,
		Instructions: a.instructions,
		Version:      a.version,
		Model:        a.model,
		Tools:        a.registry.Summaries(),
	}
}
