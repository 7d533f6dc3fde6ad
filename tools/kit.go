package tools

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/BaSui01/toolflow/agent"
	"github.com/BaSui01/toolflow/tool"
	"github.com/BaSui01/toolflow/types"
)

// Tags of the built-in routes.
const (
	TagWeather     = "weather"
	TagCalculation = "calculation"
	TagEcho        = "echo"
)

// Names of the built-in patterns, in priority order.
const (
	PatternWeather    = "weather"
	PatternCalculate  = "calculate"
	PatternEcho       = "echo"
	PatternArithmetic = "arithmetic"
)

// Detected values added to the execution context.
const (
	DetectedCity       = "detectedCity"
	DetectedExpression = "detectedExpression"
	DetectedText       = "detectedText"
)

var (
	weatherRe   = regexp.MustCompile(`(?i)\bweather\b.*?\b(?:in|for|at)\s+(\p{L}[\p{L} .'-]*?)\s*(?:today|tomorrow|now|right now)?\s*[?.!]*\s*$`)
	calculateRe = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:calculate|compute|evaluate|calc)\b[\s:]*(.+?)\s*[?!=.]*\s*$`)
	echoRe      = regexp.MustCompile(`(?i)^\s*(?:echo|repeat|say)\b[\s:,-]*(.*?)\s*$`)

	operand    = `\(*\s*[-+]?(?:\d+(?:\.\d+)?|\.\d+)\s*\)*`
	arithExpr  = `(` + operand + `(?:\s*[-+*/%^×÷xX]\s*` + operand + `)+)`
	arithQuery = `(?i)^\s*(?:(?:what|how\s+much)(?:\s+is|\s+are|'s)?\s+)?`
	// arithRe 要求表达式占满整条消息，电话号码、日期等夹在句中的数字不会命中
	arithRe = regexp.MustCompile(arithQuery + arithExpr + `\s*[?=!.]*\s*$`)
	// arithSearchRe 仅用于显式 calculation 标签，从任意位置提取表达式
	arithSearchRe = regexp.MustCompile(arithExpr)
)

// Options configures the standard kit.
type Options struct {
	Weather WeatherOptions
}

// Kit bundles tools with the routes and patterns that reach them.
type Kit struct {
	tools    []*tool.Tool
	routes   []agent.TagRoute
	patterns []agent.Pattern
}

// Standard builds the weather, calculator and echo tools with their
// routing table. Pattern priority: weather, calculate, echo, arithmetic.
// "calculate 2+2" therefore matches calculate, never arithmetic, and
// "echo 3 - 1" stays an echo.
func Standard(opts Options) (*Kit, error) {
	weather, err := NewWeather(opts.Weather)
	if err != nil {
		return nil, err
	}
	calculator, err := NewCalculator()
	if err != nil {
		return nil, err
	}
	echo, err := NewEcho()
	if err != nil {
		return nil, err
	}

	return &Kit{
		tools:    []*tool.Tool{weather, calculator, echo},
		routes:   StandardRoutes(),
		patterns: StandardPatterns(),
	}, nil
}

// StandardRoutes returns the tag routes of the built-in tools.
func StandardRoutes() []agent.TagRoute {
	return []agent.TagRoute{
		{
			Tag:    TagWeather,
			ToolID: WeatherToolID,
			Kind:   agent.KindWeather,
			Build:  buildWeatherInput,
			Render: renderWeather,
		},
		{
			Tag:    TagCalculation,
			ToolID: CalculatorToolID,
			Kind:   agent.KindCalculation,
			Build:  buildCalculationInput,
			Render: renderCalculation,
		},
		{
			Tag:    TagEcho,
			ToolID: EchoToolID,
			Kind:   agent.KindEcho,
			Build:  buildEchoInput,
			Render: renderEcho,
		},
	}
}

// StandardPatterns returns the ordered free-text patterns.
func StandardPatterns() []agent.Pattern {
	return []agent.Pattern{
		{Name: PatternWeather, Tag: TagWeather, Expr: weatherRe, Extract: extractWeather},
		{Name: PatternCalculate, Tag: TagCalculation, Expr: calculateRe, Extract: extractExpression},
		{Name: PatternEcho, Tag: TagEcho, Expr: echoRe, Extract: extractEcho},
		{Name: PatternArithmetic, Tag: TagCalculation, Expr: arithRe, Extract: extractExpression},
	}
}

// Tools returns the kit's tools in registration order.
func (k *Kit) Tools() []*tool.Tool { return slices.Clone(k.tools) }

// Routes returns the kit's tag routes.
func (k *Kit) Routes() []agent.TagRoute { return slices.Clone(k.routes) }

// Patterns returns the kit's patterns in priority order.
func (k *Kit) Patterns() []agent.Pattern { return slices.Clone(k.patterns) }

// IDs returns the tool ids in registration order.
func (k *Kit) IDs() []string {
	ids := make([]string, len(k.tools))
	for i, t := range k.tools {
		ids[i] = t.ID()
	}
	return ids
}

// Lookup returns the tool with the given id.
func (k *Kit) Lookup(id string) (*tool.Tool, bool) {
	for _, t := range k.tools {
		if t.ID() == id {
			return t, true
		}
	}
	return nil, false
}

// Select returns a kit restricted to ids, in the order given. Routes and
// patterns whose tool is not selected are dropped. No ids selects all.
func (k *Kit) Select(ids ...string) (*Kit, error) {
	if len(ids) == 0 {
		return k, nil
	}

	out := &Kit{}
	chosen := make(map[string]bool, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		t, ok := k.Lookup(id)
		if !ok {
			return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("unknown tool %q", id)).WithToolID(id)
		}
		if chosen[id] {
			continue
		}
		chosen[id] = true
		out.tools = append(out.tools, t)
	}

	tags := make(map[string]bool)
	for _, r := range k.routes {
		if chosen[r.ToolID] {
			out.routes = append(out.routes, r)
			tags[r.Tag] = true
		}
	}
	for _, p := range k.patterns {
		if tags[p.Tag] {
			out.patterns = append(out.patterns, p)
		}
	}
	return out, nil
}

// ====== 输入构建与提取 ======

func buildWeatherInput(req agent.Request) (map[string]any, map[string]any) {
	input := map[string]any{}
	detected := map[string]any{}

	if m := weatherRe.FindStringSubmatch(req.Message); m != nil {
		input["city"] = strings.TrimSpace(m[1])
	} else if city, ok := req.ContextString("city"); ok {
		input["city"] = city
	}
	if units, ok := req.ContextString("units"); ok {
		input["units"] = units
	}
	if city, ok := input["city"]; ok {
		detected[DetectedCity] = city
	}
	return input, detected
}

func extractWeather(m []string, req agent.Request) (map[string]any, map[string]any) {
	city := strings.TrimSpace(m[1])
	input := map[string]any{"city": city}
	if units, ok := req.ContextString("units"); ok {
		input["units"] = units
	}
	return input, map[string]any{DetectedCity: city}
}

func buildCalculationInput(req agent.Request) (map[string]any, map[string]any) {
	expression := strings.TrimSpace(req.Message)
	if m := calculateRe.FindStringSubmatch(req.Message); m != nil {
		expression = strings.TrimSpace(m[1])
	} else if m := arithSearchRe.FindStringSubmatch(req.Message); m != nil {
		expression = strings.TrimSpace(m[1])
	}
	return map[string]any{"expression": expression}, map[string]any{DetectedExpression: expression}
}

func extractExpression(m []string, _ agent.Request) (map[string]any, map[string]any) {
	expression := strings.TrimSpace(m[1])
	return map[string]any{"expression": expression}, map[string]any{DetectedExpression: expression}
}

func buildEchoInput(req agent.Request) (map[string]any, map[string]any) {
	input := map[string]any{"text": req.Message}
	if upper, ok := req.Context["uppercase"].(bool); ok {
		input["uppercase"] = upper
	}
	return input, map[string]any{DetectedText: req.Message}
}

func extractEcho(m []string, _ agent.Request) (map[string]any, map[string]any) {
	return map[string]any{"text": m[1]}, map[string]any{DetectedText: m[1]}
}
