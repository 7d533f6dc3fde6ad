package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/BaSui01/toolflow/contract"
	"github.com/BaSui01/toolflow/tool"
	"github.com/BaSui01/toolflow/tools/expr"
)

// CalculatorToolID is the id of the arithmetic calculator tool.
const CalculatorToolID = "calculator"

// NewCalculator builds the calculator tool. Expressions are parsed by
// tools/expr; nothing is evaluated as code.
func NewCalculator() (*tool.Tool, error) {
	return tool.New(tool.Definition{
		ID:          CalculatorToolID,
		Description: "Evaluate arithmetic expressions (+ - * / % ^ and parentheses)",
		Input: contract.Object().
			Prop("expression", contract.String().WithDescription("Arithmetic expression, e.g. 15 * 7")).
			Require("expression"),
		Output: contract.Object().
			Prop("expression", contract.String()).
			Prop("result", contract.Number()).
			Require("expression", "result"),
		Execute: func(_ context.Context, in map[string]any) (any, error) {
			src := strings.TrimSpace(in["expression"].(string))
			result, err := expr.Eval(src)
			if err != nil {
				return nil, fmt.Errorf("evaluate %q: %w", src, err)
			}
			return map[string]any{"expression": src, "result": result}, nil
		},
	})
}

func renderCalculation(data any, _ map[string]any) string {
	m, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	result, _ := m["result"].(float64)
	return fmt.Sprintf("%v = %s", m["expression"], strconv.FormatFloat(result, 'f', -1, 64))
}
