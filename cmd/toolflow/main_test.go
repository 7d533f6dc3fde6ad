package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/toolflow/agent"
	"github.com/BaSui01/toolflow/config"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("TOOLFLOW_WEATHER_LATENCY", "0s")
	t.Setenv("TOOLFLOW_WEATHER_SEED", "42")
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "toolflow "+Version)
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Unknown command: frobnicate")
}

func TestRun_NoArgs(t *testing.T) {
	code, _, errOut := runCLI(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Usage:")
}

func TestRun_Invoke(t *testing.T) {
	code, out, errOut := runCLI(t, "invoke", "--message", "Calculate 15 * 7")
	require.Equal(t, 0, code, errOut)

	var env agent.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, agent.KindCalculation, env.Type)
	assert.Equal(t, "15 * 7 = 105", env.Message)
}

func TestRun_InvokeWithContext(t *testing.T) {
	code, out, errOut := runCLI(t, "invoke", "--type", "weather", "--context", "city=Paris", "--message", "how is it?")
	require.Equal(t, 0, code, errOut)

	var env agent.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, agent.KindWeather, env.Type)
	assert.Equal(t, "Paris", env.Data.(map[string]any)["city"])
}

func TestRun_InvokePositionalMessage(t *testing.T) {
	code, out, errOut := runCLI(t, "invoke", "echo", "positional")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Echo: positional")
}

func TestRun_InvokeBadContext(t *testing.T) {
	code, _, _ := runCLI(t, "invoke", "--context", "novalue", "--message", "hi")
	assert.Equal(t, 1, code)
}

func TestRun_InvokeInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: -1\n"), 0o644))

	code, _, errOut := runCLI(t, "invoke", "--config", path, "--message", "hi")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid HTTP port")
}

func TestRun_Tools(t *testing.T) {
	code, out, errOut := runCLI(t, "tools")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "toolflow-agent")
	assert.Contains(t, out, "weather")
	assert.Contains(t, out, "calculator")
	assert.Contains(t, out, "echo")
}

func TestRun_ToolsJSONWithSelection(t *testing.T) {
	t.Setenv("TOOLFLOW_AGENT_TOOLS", "echo")
	code, out, errOut := runCLI(t, "tools", "--json")
	require.Equal(t, 0, code, errOut)

	var summaries []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "echo", summaries[0]["id"])
}

func TestRun_ToolsUnknownTool(t *testing.T) {
	t.Setenv("TOOLFLOW_AGENT_TOOLS", "translator")
	code, _, errOut := runCLI(t, "tools")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "translator")
}

func TestRun_Health(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	code, out, _ := runCLI(t, "health", "--addr", ok.URL)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "OK")

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	code, _, errOut := runCLI(t, "health", "--addr", down.URL, "--path", "/ready")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "status 503")
}

func TestInitLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := config.DefaultLogConfig()
		cfg.Format = format
		cfg.OutputPaths = []string{"stderr"}
		logger := initLogger(cfg)
		require.NotNil(t, logger)
		logger.Debug("not emitted")
	}
}
