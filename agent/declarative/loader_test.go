package declarative

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/agent"
	"github.com/BaSui01/toolflow/tools"
	"github.com/BaSui01/toolflow/types"
)

// ============================================================
// YAMLLoader tests
// ============================================================

func TestYAMLLoader_LoadFile_YAML(t *testing.T) {
	content := `
name: Weather Assistant
instructions: You are a helpful weather assistant.
version: "1.2.0"
model:
  provider: openai
  model: gpt-4
tools:
  - weather
  - calculator
metadata:
  env: test
`
	path := writeTemp(t, "agent.yaml", content)
	loader := NewYAMLLoader()

	def, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Weather Assistant", def.Name)
	assert.Equal(t, "You are a helpful weather assistant.", def.Instructions)
	assert.Equal(t, "1.2.0", def.Version)
	assert.Equal(t, "openai", def.Model.Provider)
	assert.Equal(t, "gpt-4", def.Model.Model)
	assert.Equal(t, []string{"weather", "calculator"}, def.Tools)
	assert.Equal(t, "test", def.Metadata["env"])
}

func TestYAMLLoader_LoadFile_JSON(t *testing.T) {
	content := `{
  "name": "JSON Agent",
  "description": "Answers arithmetic questions",
  "model": {"provider": "anthropic", "model": "claude-3"},
  "tools": ["calculator"]
}`
	path := writeTemp(t, "agent.json", content)
	loader := NewYAMLLoader()

	def, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "JSON Agent", def.Name)
	assert.Equal(t, "anthropic", def.Model.Provider)
	assert.Equal(t, "claude-3", def.Model.Model)
	assert.Equal(t, []string{"calculator"}, def.Tools)
	assert.Equal(t, "Answers arithmetic questions", def.EffectiveInstructions())
}

func TestYAMLLoader_LoadFile_YMLExtension(t *testing.T) {
	path := writeTemp(t, "agent.yml", "name: YML Agent\n")
	loader := NewYAMLLoader()

	def, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "YML Agent", def.Name)
}

func TestYAMLLoader_LoadFile_NotFound(t *testing.T) {
	loader := NewYAMLLoader()
	_, err := loader.LoadFile(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read agent definition file")
}

func TestYAMLLoader_LoadFile_UnsupportedExtension(t *testing.T) {
	path := writeTemp(t, "agent.toml", "name = 'test'")
	loader := NewYAMLLoader()

	_, err := loader.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file extension")
}

func TestYAMLLoader_LoadFile_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "bad.yaml", "{{invalid yaml")
	loader := NewYAMLLoader()

	_, err := loader.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse YAML")
}

func TestYAMLLoader_LoadFile_InvalidJSON(t *testing.T) {
	path := writeTemp(t, "bad.json", "{invalid json}")
	loader := NewYAMLLoader()

	_, err := loader.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse JSON")
}

func TestYAMLLoader_LoadBytes_UnsupportedFormat(t *testing.T) {
	loader := NewYAMLLoader()
	_, err := loader.LoadBytes([]byte("data"), "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestYAMLLoader_LoadBytes_MinimalDefinition(t *testing.T) {
	loader := NewYAMLLoader()

	def, err := loader.LoadBytes([]byte(`name: Minimal`), "yaml")
	require.NoError(t, err)
	assert.Equal(t, "Minimal", def.Name)
	// Zero values for optional fields
	assert.Empty(t, def.Instructions)
	assert.Empty(t, def.Version)
	assert.Empty(t, def.Tools)
	assert.Empty(t, def.Model.Provider)
}

func TestYAMLLoader_LoadFile_RecordsSource(t *testing.T) {
	path := writeTemp(t, "agent.yaml", "name: Sourced\n")

	def, err := NewYAMLLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, def.Source)
}

func TestYAMLLoader_LoadBytes_Normalizes(t *testing.T) {
	content := `
name: "  Spaced Agent  "
version: " 1.0.0 "
model:
  provider: " openai "
  model: gpt-4
tools: ["  Calculator ", ECHO]
`
	def, err := NewYAMLLoader().LoadBytes([]byte(content), "yaml")
	require.NoError(t, err)

	assert.Equal(t, "Spaced Agent", def.Name)
	assert.Equal(t, "1.0.0", def.Version)
	assert.Equal(t, "openai", def.Model.Provider)
	assert.Equal(t, []string{"calculator", "echo"}, def.Tools)

	a, err := newTestFactory(t).Build(def)
	require.NoError(t, err)
	assert.Equal(t, []string{tools.CalculatorToolID, tools.EchoToolID}, a.ToolIDs())
}

func TestYAMLLoader_LoadBytes_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		format  string
		wantErr string
	}{
		{name: "empty yaml", data: "  \n", format: "yaml", wantErr: "agent definition is empty"},
		{name: "empty json", data: "", format: "json", wantErr: "agent definition is empty"},
		{name: "unknown yaml key", data: "name: x\ntool: [echo]\n", format: "yaml", wantErr: "field tool not found"},
		{name: "unknown json key", data: `{"name":"x","tool":["echo"]}`, format: "json", wantErr: `unknown field "tool"`},
		{name: "missing name", data: "version: 1.0.0\n", format: "yaml", wantErr: "name is required"},
		{name: "duplicate after normalize", data: "name: x\ntools: [echo, ' Echo']\n", format: "yaml", wantErr: `tool "echo" listed twice`},
		{name: "model without provider", data: `{"name":"x","model":{"model":"gpt-4"}}`, format: "json", wantErr: "model provider is required"},
	}

	loader := NewYAMLLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.LoadBytes([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestYAMLLoader_LoadFile_ErrorNamesPath(t *testing.T) {
	path := writeTemp(t, "agent.yaml", "")

	_, err := NewYAMLLoader().LoadFile(path)
	require.ErrorIs(t, err, ErrEmptyDefinition)
	assert.Contains(t, err.Error(), path)
}

// ============================================================
// AgentFactory tests
// ============================================================

func newTestFactory(t *testing.T) *AgentFactory {
	t.Helper()
	kit, err := tools.Standard(tools.Options{Weather: tools.WeatherOptions{Seed: 5}})
	require.NoError(t, err)
	return NewAgentFactory(kit, zap.NewNop())
}

func TestAgentFactory_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     *AgentDefinition
		wantErr string
	}{
		{name: "nil definition", def: nil, wantErr: "agent definition is nil"},
		{name: "missing name", def: &AgentDefinition{Name: "  "}, wantErr: "name is required"},
		{
			name:    "model without provider",
			def:     &AgentDefinition{Name: "test", Model: ModelDefinition{Model: "gpt-4"}},
			wantErr: "model provider is required",
		},
		{
			name:    "empty tool id",
			def:     &AgentDefinition{Name: "test", Tools: []string{"echo", ""}},
			wantErr: "tool id must not be empty",
		},
		{
			name:    "duplicate tool id",
			def:     &AgentDefinition{Name: "test", Tools: []string{"echo", "echo"}},
			wantErr: `tool "echo" listed twice`,
		},
		{name: "valid minimal", def: &AgentDefinition{Name: "test"}},
		{
			name: "valid full",
			def: &AgentDefinition{
				Name:         "Full Agent",
				Instructions: "You are helpful.",
				Version:      "2.0.0",
				Model:        ModelDefinition{Provider: "openai", Model: "gpt-4"},
				Tools:        []string{"calculator"},
			},
		},
	}

	factory := newTestFactory(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := factory.Validate(tt.def)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestAgentFactory_Build(t *testing.T) {
	factory := newTestFactory(t)

	a, err := factory.Build(&AgentDefinition{
		Name:        "Calc",
		Description: "Does arithmetic",
		Model:       ModelDefinition{Provider: "openai", Model: "gpt-4"},
		Tools:       []string{"calculator"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Calc", a.Name())
	assert.Equal(t, "Does arithmetic", a.Instructions())
	assert.Equal(t, agent.DefaultVersion, a.Version())
	assert.Equal(t, agent.ModelRef{Provider: "openai", Name: "gpt-4"}, a.Model())
	assert.Equal(t, []string{tools.CalculatorToolID}, a.ToolIDs())

	env := a.Process(context.Background(), agent.Request{Message: "Calculate 6 * 7"})
	require.False(t, env.IsError(), env.Error)
	assert.Equal(t, 42.0, env.Data.(map[string]any)["result"])

	// weather 不在工具列表中，请求应回退
	env = a.Process(context.Background(), agent.Request{Message: "weather please", Type: "weather"})
	assert.Equal(t, agent.KindGeneral, env.Type)
}

func TestAgentFactory_Build_AllToolsWhenEmpty(t *testing.T) {
	factory := newTestFactory(t)

	a, err := factory.Build(&AgentDefinition{Name: "Everything"})
	require.NoError(t, err)
	assert.Equal(t, []string{tools.WeatherToolID, tools.CalculatorToolID, tools.EchoToolID}, a.ToolIDs())
}

func TestAgentFactory_Build_UnknownTool(t *testing.T) {
	factory := newTestFactory(t)

	_, err := factory.Build(&AgentDefinition{Name: "Bad", Tools: []string{"translator"}})
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), `agent definition "Bad"`)
}

func TestAgentFactory_NoCatalog(t *testing.T) {
	factory := NewAgentFactory(nil, nil)

	_, err := factory.ToAgentConfig(&AgentDefinition{Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tool catalog")
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
