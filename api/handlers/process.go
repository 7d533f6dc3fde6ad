package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/agent"
	"github.com/BaSui01/toolflow/types"
)

// AgentSource yields the agent that should serve the current request.
type AgentSource interface {
	Current() *agent.Agent
}

// AgentHolder is an AgentSource whose agent can be swapped atomically,
// e.g. when the agent definition file is reloaded.
type AgentHolder struct {
	p atomic.Pointer[agent.Agent]
}

// NewAgentHolder 创建持有 a 的 AgentHolder
func NewAgentHolder(a *agent.Agent) *AgentHolder {
	h := &AgentHolder{}
	h.p.Store(a)
	return h
}

// Current 返回当前 agent
func (h *AgentHolder) Current() *agent.Agent { return h.p.Load() }

// Swap 替换 agent，返回旧值
func (h *AgentHolder) Swap(a *agent.Agent) *agent.Agent { return h.p.Swap(a) }

// =============================================================================
// 🤖 Agent Handler
// =============================================================================

// AgentHandler 处理 /v1/process、/v1/tools 与 /v1/agent
type AgentHandler struct {
	agents  AgentSource
	timeout time.Duration
	logger  *zap.Logger
}

// NewAgentHandler 创建 AgentHandler；timeout 为 0 表示不限时
func NewAgentHandler(agents AgentSource, timeout time.Duration, logger *zap.Logger) *AgentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentHandler{
		agents:  agents,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "agent_handler")),
	}
}

// HandleProcess 处理 POST /v1/process。
// 成功与错误信封均返回 200，由信封 type 区分；请求体无法解析时返回 400。
func (h *AgentHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	var req agent.Request
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	a, ok := h.current(w)
	if !ok {
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	env := a.Process(ctx, req)
	WriteJSON(w, http.StatusOK, env)
}

// HandleListTools 处理 GET /v1/tools
func (h *AgentHandler) HandleListTools(w http.ResponseWriter, r *http.Request) {
	a, ok := h.current(w)
	if !ok {
		return
	}
	WriteSuccess(w, a.Identity().Tools)
}

// HandleIdentity 处理 GET /v1/agent
func (h *AgentHandler) HandleIdentity(w http.ResponseWriter, r *http.Request) {
	a, ok := h.current(w)
	if !ok {
		return
	}
	WriteSuccess(w, a.Identity())
}

func (h *AgentHandler) current(w http.ResponseWriter) (*agent.Agent, bool) {
	a := h.agents.Current()
	if a == nil {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrServiceUnavailable, "agent is not available", h.logger)
		return nil, false
	}
	return a, true
}
