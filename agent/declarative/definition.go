package declarative

import (
	"errors"
	"fmt"
	"strings"
)

// AgentDefinition is a declarative Agent description, mirroring the
// agent constructor contract {name, instructions, version, model, tools}.
// It is deserialized from YAML or JSON files by YAMLLoader.
type AgentDefinition struct {
	// Identity
	Name         string `yaml:"name" json:"name"`
	Instructions string `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty"` // used when instructions is empty
	Version      string `yaml:"version,omitempty" json:"version,omitempty"`

	// Opaque model reference; never called by the core
	Model ModelDefinition `yaml:"model,omitempty" json:"model,omitempty"`

	// Tool ids resolved against the catalog; empty means every catalog tool
	Tools []string `yaml:"tools,omitempty" json:"tools,omitempty"`

	// Metadata
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`

	// Source is the file the definition was loaded from, if any.
	Source string `yaml:"-" json:"-"`
}

// ModelDefinition names the model provider and model.
type ModelDefinition struct {
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty"`
	Model    string `yaml:"model,omitempty" json:"model,omitempty"`
}

// EffectiveInstructions returns Instructions, falling back to Description.
func (d *AgentDefinition) EffectiveInstructions() string {
	if d.Instructions != "" {
		return d.Instructions
	}
	return d.Description
}

// Validate checks the structural rules every definition must satisfy.
// Tool ids are not resolved here; that needs a catalog.
func (d *AgentDefinition) Validate() error {
	if d == nil {
		return errors.New("agent definition is nil")
	}
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("agent definition: name is required")
	}
	if d.Model.Model != "" && d.Model.Provider == "" {
		return errors.New("agent definition: model provider is required when model is set")
	}
	seen := make(map[string]bool, len(d.Tools))
	for _, id := range d.Tools {
		id = strings.TrimSpace(id)
		if id == "" {
			return errors.New("agent definition: tool id must not be empty")
		}
		if seen[id] {
			return fmt.Errorf("agent definition: tool %q listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

// normalize trims identity fields and lower-cases tool ids so that
// "  Calculator " and "calculator" resolve to the same catalog entry.
func (d *AgentDefinition) normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Instructions = strings.TrimSpace(d.Instructions)
	d.Description = strings.TrimSpace(d.Description)
	d.Version = strings.TrimSpace(d.Version)
	d.Model.Provider = strings.TrimSpace(d.Model.Provider)
	d.Model.Model = strings.TrimSpace(d.Model.Model)
	for i, id := range d.Tools {
		d.Tools[i] = strings.ToLower(strings.TrimSpace(id))
	}
}
