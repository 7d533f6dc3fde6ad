package tools

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/toolflow/contract"
	"github.com/BaSui01/toolflow/tool"
)

// EchoToolID is the id of the echo tool.
const EchoToolID = "echo"

// NewEcho builds the echo tool.
func NewEcho() (*tool.Tool, error) {
	return tool.New(tool.Definition{
		ID:          EchoToolID,
		Description: "Echo back the provided text",
		Input: contract.Object().
			Prop("text", contract.String()).
			Prop("uppercase", contract.Boolean().WithDefault(false)).
			Require("text"),
		Output: contract.Object().
			Prop("echo", contract.String()).
			Prop("length", contract.Number()).
			Require("echo", "length"),
		Execute: func(_ context.Context, in map[string]any) (any, error) {
			text := in["text"].(string)
			if in["uppercase"].(bool) {
				text = strings.ToUpper(text)
			}
			return map[string]any{"echo": text, "length": utf8.RuneCountInString(text)}, nil
		},
	})
}

func renderEcho(data any, _ map[string]any) string {
	m, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	text, _ := m["echo"].(string)
	return "Echo: " + text
}
