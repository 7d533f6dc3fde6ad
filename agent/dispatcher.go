package agent

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"strings"

	"github.com/BaSui01/toolflow/tool"
	"github.com/BaSui01/toolflow/types"
)

// Strategy names how a request was routed.
type Strategy string

const (
	StrategyTagged   Strategy = "tagged"
	StrategyPattern  Strategy = "pattern"
	StrategyFallback Strategy = "fallback"
	StrategyCustom   Strategy = "custom"
)

// HandlerFunc handles a request inline instead of through a registered tool.
type HandlerFunc func(ctx context.Context, req Request) (any, error)

// RenderFunc builds the user-facing message from a successful result.
type RenderFunc func(data any, detected map[string]any) string

// Decision is the dispatcher's choice for one request. Exactly one of
// ToolID and Handler is set.
type Decision struct {
	Strategy Strategy
	Kind     string
	ToolID   string
	Input    map[string]any
	Handler  HandlerFunc
	Render   RenderFunc
	Pattern  string
	Detected map[string]any
}

// Selector is the extension point for custom routing. Returning false
// hands the request to the standard dispatcher.
type Selector func(req Request) (Decision, bool)

// TagRoute binds an explicit request type to a tool.
type TagRoute struct {
	Tag    string
	ToolID string
	Kind   string
	// Build derives the tool input and any detected values from the request.
	// A nil Build passes the request context as input.
	Build  func(req Request) (input, detected map[string]any)
	Render RenderFunc
}

// Pattern is one entry of the ordered free-text routing table. The first
// pattern whose Expr matches the message wins; later entries are not tried.
type Pattern struct {
	Name    string
	Tag     string
	Expr    *regexp.Regexp
	Extract func(match []string, req Request) (input, detected map[string]any)
}

type dispatcher struct {
	selector Selector
	routes   map[string]TagRoute
	patterns []Pattern
	registry *tool.Registry
}

func newDispatcher(selector Selector, routes []TagRoute, patterns []Pattern, registry *tool.Registry) (*dispatcher, error) {
	d := &dispatcher{
		selector: selector,
		routes:   make(map[string]TagRoute, len(routes)),
		registry: registry,
	}

	for _, r := range routes {
		tag := normalizeTag(r.Tag)
		if tag == "" {
			return nil, types.NewError(types.ErrInvalidRoute, "route tag must not be empty")
		}
		if _, dup := d.routes[tag]; dup {
			return nil, types.NewError(types.ErrInvalidRoute, fmt.Sprintf("duplicate route tag %q", tag))
		}
		if !registry.Has(r.ToolID) {
			return nil, types.NewError(types.ErrInvalidRoute, fmt.Sprintf("route %q references unknown tool %q", tag, r.ToolID)).
				WithToolID(r.ToolID)
		}
		if r.Kind == "" || IsErrorKind(r.Kind) {
			return nil, types.NewError(types.ErrInvalidRoute, fmt.Sprintf("route %q has invalid response kind %q", tag, r.Kind))
		}
		r.Tag = tag
		d.routes[tag] = r
	}

	for _, p := range patterns {
		if p.Expr == nil || p.Name == "" {
			return nil, types.NewError(types.ErrInvalidRoute, "pattern needs a name and an expression")
		}
		tag := normalizeTag(p.Tag)
		if _, ok := d.routes[tag]; !ok {
			return nil, types.NewError(types.ErrInvalidRoute, fmt.Sprintf("pattern %q references unknown tag %q", p.Name, p.Tag))
		}
		p.Tag = tag
		d.patterns = append(d.patterns, p)
	}

	return d, nil
}

// dispatch picks a handler in fixed priority: custom selector, explicit
// tag, ordered patterns, general fallback. It never fails.
func (d *dispatcher) dispatch(req Request) Decision {
	if d.selector != nil {
		if dec, ok := d.selector(req); ok {
			if dec.Strategy == "" {
				dec.Strategy = StrategyCustom
			}
			return dec
		}
	}

	if tag := normalizeTag(req.Type); tag != "" {
		if route, ok := d.routes[tag]; ok {
			input, detected := buildRouteInput(route, req)
			return route.decision(StrategyTagged, "", input, detected)
		}
	}

	for _, p := range d.patterns {
		match := p.Expr.FindStringSubmatch(req.Message)
		if match == nil {
			continue
		}
		var input, detected map[string]any
		if p.Extract != nil {
			input, detected = p.Extract(match, req)
		}
		return d.routes[p.Tag].decision(StrategyPattern, p.Name, input, detected)
	}

	return d.fallback()
}

func (r TagRoute) decision(strategy Strategy, pattern string, input, detected map[string]any) Decision {
	return Decision{
		Strategy: strategy,
		Kind:     r.Kind,
		ToolID:   r.ToolID,
		Input:    input,
		Render:   r.Render,
		Pattern:  pattern,
		Detected: detected,
	}
}

func buildRouteInput(route TagRoute, req Request) (map[string]any, map[string]any) {
	if route.Build != nil {
		return route.Build(req)
	}
	return maps.Clone(req.Context), nil
}

// fallback echoes the message and advertises every registered tool,
// verbatim from the registry.
func (d *dispatcher) fallback() Decision {
	summaries := d.registry.Summaries()
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ID
	}

	return Decision{
		Strategy: StrategyFallback,
		Kind:     KindGeneral,
		Handler: func(_ context.Context, req Request) (any, error) {
			return map[string]any{
				"message":        req.Message,
				"toolsAvailable": ids,
			}, nil
		},
		Render: func(_ any, _ map[string]any) string {
			return generalMessage(ids)
		},
		Detected: map[string]any{
			CtxToolsAvailable: ids,
			CtxCapabilities:   summaries,
		},
	}
}

func generalMessage(ids []string) string {
	if len(ids) == 0 {
		return "I received your message, but no tools are available."
	}
	return fmt.Sprintf("I received your message. I can help with: %s.", strings.Join(ids, ", "))
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
