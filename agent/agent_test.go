package agent

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/contract"
	"github.com/BaSui01/toolflow/internal/ctxkeys"
	"github.com/BaSui01/toolflow/tool"
	"github.com/BaSui01/toolflow/types"
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

func upperTool(t testing.TB) *tool.Tool {
	t.Helper()
	return tool.MustNew(tool.Definition{
		ID:          "upper",
		Description: "Uppercases text",
		Input:       contract.Object().Prop("text", contract.String()).Require("text"),
		Output:      contract.Object().Prop("text", contract.String()).Require("text"),
		Execute: func(_ context.Context, in map[string]any) (any, error) {
			s := in["text"].(string)
			out := make([]rune, 0, len(s))
			for _, r := range s {
				if r >= 'a' && r <= 'z' {
					r -= 'a' - 'A'
				}
				out = append(out, r)
			}
			return map[string]any{"text": string(out)}, nil
		},
	})
}

func failingTool(t testing.TB, cause error) *tool.Tool {
	t.Helper()
	return tool.MustNew(tool.Definition{
		ID:          "flaky",
		Description: "Always fails",
		Input:       contract.Object(),
		Execute: func(context.Context, map[string]any) (any, error) {
			return nil, cause
		},
	})
}

func upperRoutes() ([]TagRoute, []Pattern) {
	routes := []TagRoute{{
		Tag:    "upper",
		ToolID: "upper",
		Kind:   "upper_response",
		Build: func(req Request) (map[string]any, map[string]any) {
			return map[string]any{"text": req.Message}, nil
		},
		Render: func(data any, _ map[string]any) string {
			return data.(map[string]any)["text"].(string)
		},
	}}
	patterns := []Pattern{{
		Name: "shout",
		Tag:  "upper",
		Expr: regexp.MustCompile(`(?i)^shout\s+(.+)$`),
		Extract: func(m []string, _ Request) (map[string]any, map[string]any) {
			return map[string]any{"text": m[1]}, map[string]any{"detectedText": m[1]}
		},
	}}
	return routes, patterns
}

func newTestAgent(t testing.TB, mutate ...func(*Config)) *Agent {
	t.Helper()
	routes, patterns := upperRoutes()
	cfg := Config{
		Name:         "Test Agent",
		Instructions: "Be helpful.",
		Model:        ModelRef{Provider: "openai", Name: "gpt-4"},
		Tools:        []*tool.Tool{upperTool(t)},
		Routes:       routes,
		Patterns:     patterns,
		Logger:       zap.NewNop(),
		Now:          func() time.Time { return testNow },
	}
	for _, m := range mutate {
		m(&cfg)
	}
	a, err := New(cfg)
	require.NoError(t, err)
	return a
}

func TestNew_ConfigErrors(t *testing.T) {
	routes, patterns := upperRoutes()

	tests := []struct {
		name string
		cfg  Config
		code types.ErrorCode
		is   error
	}{
		{name: "empty name", cfg: Config{Name: "  "}, is: ErrConfigInvalid},
		{name: "nil tool", cfg: Config{Name: "a", Tools: []*tool.Tool{nil}}, is: ErrConfigInvalid},
		{
			name: "duplicate tool",
			cfg:  Config{Name: "a", Tools: []*tool.Tool{upperTool(t), upperTool(t)}},
			code: types.ErrDuplicateToolID,
		},
		{
			name: "route to unknown tool",
			cfg:  Config{Name: "a", Routes: routes},
			code: types.ErrInvalidRoute,
		},
		{
			name: "pattern to unknown tag",
			cfg:  Config{Name: "a", Tools: []*tool.Tool{upperTool(t)}, Patterns: patterns},
			code: types.ErrInvalidRoute,
		},
		{
			name: "route with error kind",
			cfg: Config{Name: "a", Tools: []*tool.Tool{upperTool(t)}, Routes: []TagRoute{
				{Tag: "upper", ToolID: "upper", Kind: "error_custom"},
			}},
			code: types.ErrInvalidRoute,
		},
		{
			name: "duplicate tag",
			cfg: Config{Name: "a", Tools: []*tool.Tool{upperTool(t)}, Routes: []TagRoute{
				{Tag: "Upper", ToolID: "upper", Kind: "k"},
				{Tag: "upper ", ToolID: "upper", Kind: "k"},
			}},
			code: types.ErrInvalidRoute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, a)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			if tt.code != "" {
				assert.Equal(t, tt.code, types.GetErrorCode(err))
			}
		})
	}
}

func TestAgent_Identity(t *testing.T) {
	a := newTestAgent(t)

	assert.Equal(t, "Test Agent", a.Name())
	assert.Equal(t, "Be helpful.", a.Instructions())
	assert.Equal(t, DefaultVersion, a.Version())
	assert.Equal(t, ModelRef{Provider: "openai", Name: "gpt-4"}, a.Model())
	assert.Equal(t, []string{"upper"}, a.ToolIDs())

	id := a.Identity()
	assert.Equal(t, []tool.Summary{{ID: "upper", Description: "Uppercases text"}}, id.Tools)

	var listed []string
	for s := range a.Tools() {
		listed = append(listed, s.ID)
	}
	assert.Equal(t, []string{"upper"}, listed)
}

func TestAgent_ToolsAreIsolatedPerAgent(t *testing.T) {
	shared := upperTool(t)
	a := newTestAgent(t, func(c *Config) { c.Tools = []*tool.Tool{shared} })
	b := newTestAgent(t, func(c *Config) {
		c.Tools = []*tool.Tool{shared, failingTool(t, errors.New("x"))}
	})

	assert.Equal(t, []string{"upper"}, a.ToolIDs())
	assert.Equal(t, []string{"upper", "flaky"}, b.ToolIDs())
}

func TestProcess_Tagged(t *testing.T) {
	a := newTestAgent(t)

	env := a.Process(context.Background(), Request{Message: "hello", Type: " UPPER "})

	assert.Equal(t, "upper_response", env.Type)
	assert.Equal(t, "HELLO", env.Message)
	assert.Equal(t, map[string]any{"text": "HELLO"}, env.Data)
	assert.Equal(t, "2026-01-02T03:04:05.006Z", env.Timestamp)
	assert.Equal(t, string(StrategyTagged), env.ExecutionContext[CtxStrategy])
	assert.Equal(t, "upper", env.ExecutionContext[CtxToolUsed])
	assert.Equal(t, " UPPER ", env.ExecutionContext[CtxRequestedType])
	assert.False(t, env.IsError())
}

func TestProcess_PatternAndDetected(t *testing.T) {
	a := newTestAgent(t)

	env := a.Process(context.Background(), Request{Message: "shout go team"})

	assert.Equal(t, "GO TEAM", env.Message)
	assert.Equal(t, "shout", env.ExecutionContext[CtxMatchedPattern])
	assert.Equal(t, "go team", env.ExecutionContext["detectedText"])
}

func TestProcess_BlankMessageUsesSentinel(t *testing.T) {
	a := newTestAgent(t)

	env := a.Process(context.Background(), Request{Message: "   ", Type: "upper"})
	assert.Equal(t, "NO MESSAGE PROVIDED", env.Message)

	env = a.Process(context.Background(), Request{})
	assert.Equal(t, KindGeneral, env.Type)
	assert.Equal(t, NoMessage, env.Data.(map[string]any)["message"])
}

func TestProcess_FallbackAdvertisesRegistry(t *testing.T) {
	a := newTestAgent(t, func(c *Config) {
		c.Tools = append(c.Tools, failingTool(t, errors.New("x")))
	})

	env := a.Process(context.Background(), Request{Message: "hi", Type: "unknown_tag"})

	assert.Equal(t, KindGeneral, env.Type)
	assert.Equal(t, []string{"upper", "flaky"}, env.ExecutionContext[CtxToolsAvailable])
	assert.Equal(t, []tool.Summary{
		{ID: "upper", Description: "Uppercases text"},
		{ID: "flaky", Description: "Always fails"},
	}, env.ExecutionContext[CtxCapabilities])
	assert.Equal(t, string(StrategyFallback), env.ExecutionContext[CtxHandler])
	assert.Contains(t, env.Message, "upper, flaky")
}

func TestProcess_ExecutionFailure(t *testing.T) {
	cause := errors.New("backend unavailable")
	a := newTestAgent(t, func(c *Config) {
		c.Tools = append(c.Tools, failingTool(t, cause))
		c.Routes = append(c.Routes, TagRoute{Tag: "flaky", ToolID: "flaky", Kind: "flaky_response"})
	})

	req := Request{Message: "go", Type: "flaky", Context: map[string]any{"k": "v"}}
	env := a.Process(context.Background(), req)

	assert.Equal(t, KindError, env.Type)
	assert.True(t, env.IsError())
	assert.Contains(t, env.Error, "flaky")
	assert.Contains(t, env.Error, "backend unavailable")
	assert.Equal(t, req, env.ExecutionContext[CtxInputReceived])
	assert.Equal(t, string(types.ErrToolExecution), env.ExecutionContext[CtxErrorType])
	assert.Equal(t, "flaky", env.ExecutionContext[CtxToolUsed])
	assert.NotContains(t, env.Message, "backend unavailable")
	assert.Nil(t, env.Data)
}

func TestProcess_RecordsExecutionDuration(t *testing.T) {
	var offset atomic.Int64
	clock := func() time.Time { return testNow.Add(time.Duration(offset.Load())) }
	slow := func(id string, d time.Duration, err error) *tool.Tool {
		return tool.MustNew(tool.Definition{
			ID:          id,
			Description: "Advances the clock",
			Input:       contract.Object(),
			Execute: func(context.Context, map[string]any) (any, error) {
				offset.Add(int64(d))
				return map[string]any{}, err
			},
		})
	}

	a := newTestAgent(t, func(c *Config) {
		c.Now = clock
		c.Tools = append(c.Tools, slow("slow", 40*time.Millisecond, nil), slow("broken", 15*time.Millisecond, errors.New("boom")))
		c.Routes = append(c.Routes,
			TagRoute{Tag: "slow", ToolID: "slow", Kind: "slow_response"},
			TagRoute{Tag: "broken", ToolID: "broken", Kind: "broken_response"},
		)
	})

	env := a.Process(context.Background(), Request{Message: "go", Type: "slow"})
	require.False(t, env.IsError())
	assert.Equal(t, int64(40), env.ExecutionContext[CtxDurationMS])

	env = a.Process(context.Background(), Request{Message: "go", Type: "broken"})
	require.True(t, env.IsError())
	assert.Equal(t, int64(15), env.ExecutionContext[CtxDurationMS])
}

func TestProcess_InputViolationListsFields(t *testing.T) {
	a := newTestAgent(t, func(c *Config) {
		c.Routes[0].Build = func(Request) (map[string]any, map[string]any) {
			return map[string]any{"text": 12}, nil
		}
	})

	env := a.Process(context.Background(), Request{Message: "x", Type: "upper"})

	assert.Equal(t, string(types.ErrContractViolation), env.ExecutionContext[CtxErrorType])
	assert.Equal(t, "input", env.ExecutionContext[CtxStage])
	assert.Equal(t, []contract.Violation{{Path: "text", Reason: "expected string, got number"}}, env.ExecutionContext[CtxViolations])
}

func TestProcess_CustomSelector(t *testing.T) {
	var calls atomic.Int32
	a := newTestAgent(t, func(c *Config) {
		c.Selector = func(req Request) (Decision, bool) {
			calls.Add(1)
			switch req.Message {
			case "custom":
				return Decision{
					Kind: "custom_response",
					Handler: func(context.Context, Request) (any, error) {
						return map[string]any{"ok": true}, nil
					},
				}, true
			case "ghost":
				return Decision{Kind: "ghost_response", ToolID: "ghost"}, true
			case "bad-kind":
				return Decision{Kind: "error_custom", ToolID: "upper", Input: map[string]any{"text": "a"}}, true
			case "panic":
				return Decision{Kind: "p", Handler: func(context.Context, Request) (any, error) { panic("boom") }}, true
			}
			return Decision{}, false
		}
	})
	ctx := context.Background()

	env := a.Process(ctx, Request{Message: "custom", Type: "upper"})
	assert.Equal(t, "custom_response", env.Type)
	assert.Equal(t, string(StrategyCustom), env.ExecutionContext[CtxStrategy])

	env = a.Process(ctx, Request{Message: "hello", Type: "upper"})
	assert.Equal(t, "upper_response", env.Type, "selector declined, standard dispatch runs")

	env = a.Process(ctx, Request{Message: "ghost"})
	assert.Equal(t, string(types.ErrNotFound), env.ExecutionContext[CtxErrorType])

	env = a.Process(ctx, Request{Message: "bad-kind"})
	assert.Equal(t, string(types.ErrUnknown), env.ExecutionContext[CtxErrorType])

	env = a.Process(ctx, Request{Message: "panic"})
	assert.Equal(t, KindError, env.Type)
	assert.Equal(t, string(types.ErrUnknown), env.ExecutionContext[CtxErrorType])
	assert.Contains(t, env.Error, "boom")

	assert.Equal(t, int32(5), calls.Load())
}

func TestProcess_SelectorPanicContained(t *testing.T) {
	a := newTestAgent(t, func(c *Config) {
		c.Selector = func(Request) (Decision, bool) { panic("selector bug") }
	})

	req := Request{Message: "anything"}
	env := a.Process(context.Background(), req)

	assert.Equal(t, KindError, env.Type)
	assert.Equal(t, string(types.ErrUnknown), env.ExecutionContext[CtxErrorType])
	assert.Equal(t, req, env.ExecutionContext[CtxInputReceived])
}

func TestProcess_RequestIDFromContext(t *testing.T) {
	a := newTestAgent(t)

	ctx := ctxkeys.WithRequestID(context.Background(), "req-123")
	env := a.Process(ctx, Request{Message: "hi"})
	assert.Equal(t, "req-123", env.ExecutionContext[CtxRequestID])

	env = a.Process(context.Background(), Request{Message: "hi"})
	assert.Len(t, env.ExecutionContext[CtxRequestID], 36)
}

func TestProcess_Observers(t *testing.T) {
	var mu sync.Mutex
	var events []Event

	a := newTestAgent(t, func(c *Config) {
		c.Observers = []Observer{
			ObserverFunc(func(context.Context, Event) { panic("observer bug") }),
			ObserverFunc(func(_ context.Context, ev Event) {
				mu.Lock()
				defer mu.Unlock()
				events = append(events, ev)
			}),
		}
	})

	env := a.Process(context.Background(), Request{Message: "shout hi"})
	assert.Equal(t, "HI", env.Message)

	require.Len(t, events, 1)
	assert.Equal(t, "Test Agent", events[0].Agent)
	assert.Equal(t, StrategyPattern, events[0].Strategy)
	assert.Equal(t, "upper", events[0].ToolID)
	assert.Equal(t, "shout", events[0].Pattern)
	assert.Equal(t, types.ErrorCode(""), events[0].ErrorCode)
	assert.Equal(t, env, events[0].Envelope)
}

func TestProcess_Concurrent(t *testing.T) {
	a := newTestAgent(t)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := "shout a"
			if i%2 == 0 {
				msg = "plain"
			}
			env := a.Process(context.Background(), Request{Message: msg})
			if i%2 == 0 {
				assert.Equal(t, KindGeneral, env.Type)
			} else {
				assert.Equal(t, "A", env.Message)
			}
		}(i)
	}
	wg.Wait()
}
