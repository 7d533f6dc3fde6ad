package declarative

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/agent"
	"github.com/BaSui01/toolflow/tools"
)

// AgentFactory turns an AgentDefinition into a running Agent, resolving
// tool ids against a tools.Kit catalog.
type AgentFactory struct {
	catalog   *tools.Kit
	observers []agent.Observer
	logger    *zap.Logger
}

// NewAgentFactory creates a new AgentFactory.
func NewAgentFactory(catalog *tools.Kit, logger *zap.Logger, observers ...agent.Observer) *AgentFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentFactory{
		catalog:   catalog,
		observers: observers,
		logger:    logger,
	}
}

// Validate checks that required fields are present and constraints are met.
func (f *AgentFactory) Validate(def *AgentDefinition) error {
	return def.Validate()
}

// ToAgentConfig converts a validated definition into agent.Config.
// Unknown tool ids fail here, before any agent exists.
func (f *AgentFactory) ToAgentConfig(def *AgentDefinition) (agent.Config, error) {
	if err := f.Validate(def); err != nil {
		return agent.Config{}, err
	}
	if f.catalog == nil {
		return agent.Config{}, fmt.Errorf("agent factory has no tool catalog")
	}

	kit, err := f.catalog.Select(def.Tools...)
	if err != nil {
		return agent.Config{}, fmt.Errorf("agent definition %q: %w", def.Name, err)
	}

	cfg := agent.Config{
		Name:         def.Name,
		Instructions: def.EffectiveInstructions(),
		Version:      def.Version,
		Model:        agent.ModelRef{Provider: def.Model.Provider, Name: def.Model.Model},
		Tools:        kit.Tools(),
		Routes:       kit.Routes(),
		Patterns:     kit.Patterns(),
		Observers:    f.observers,
		Logger:       f.logger,
	}

	f.logger.Debug("converted agent definition to config",
		zap.String("name", def.Name),
		zap.String("source", def.Source),
		zap.String("model", def.Model.Model),
		zap.Strings("tools", kit.IDs()),
	)

	return cfg, nil
}

// Build validates def and constructs the Agent.
func (f *AgentFactory) Build(def *AgentDefinition) (*agent.Agent, error) {
	cfg, err := f.ToAgentConfig(def)
	if err != nil {
		return nil, err
	}
	return agent.New(cfg)
}
