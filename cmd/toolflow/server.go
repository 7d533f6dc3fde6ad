package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/api/handlers"
	"github.com/BaSui01/toolflow/config"
	"github.com/BaSui01/toolflow/internal/server"
)

// skipAuthPaths 无需认证的路径
var skipAuthPaths = []string{"/health", "/healthz", "/ready", "/version", "/metrics"}

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 toolflow 的主服务器
type Server struct {
	cfg    *config.Config
	rt     *runtime
	logger *zap.Logger

	// 当前 Agent；定义文件热重载时原子替换
	agents *handlers.AgentHolder

	httpManager    *server.Manager
	metricsManager *server.Manager

	healthHandler  *handlers.HealthHandler
	agentHandler   *handlers.AgentHandler
	journalHandler *handlers.JournalHandler

	watcher *config.FileWatcher

	// 限流器与 watcher 的生命周期
	cancel context.CancelFunc
}

// NewServer 创建服务器并构建初始 Agent
func NewServer(cfg *config.Config, rt *runtime, logger *zap.Logger) (*Server, error) {
	a, err := rt.buildAgent()
	if err != nil {
		return nil, fmt.Errorf("failed to build agent: %w", err)
	}
	logger.Info("Agent ready",
		zap.String("agent", a.Name()),
		zap.String("version", a.Version()),
		zap.Strings("tools", a.ToolIDs()),
	)

	return &Server{
		cfg:    cfg,
		rt:     rt,
		logger: logger,
		agents: handlers.NewAgentHolder(a),
	}, nil
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.initHandlers()

	if err := s.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if s.rt.collector != nil {
		if err := s.startMetricsServer(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	if s.cfg.Agent.WatchDefinition && s.cfg.Agent.DefinitionPath != "" {
		if err := s.startDefinitionWatcher(ctx); err != nil {
			return fmt.Errorf("failed to watch agent definition: %w", err)
		}
	}

	s.logger.Info("All servers started",
		zap.String("http_addr", s.httpManager.Addr()),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("hot_reload_enabled", s.watcher != nil),
	)
	return nil
}

// initHandlers 初始化所有 handlers 与就绪检查
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.agentHandler = handlers.NewAgentHandler(s.agents, s.cfg.Agent.RequestTimeout, s.logger)

	if s.rt.cache != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("redis", s.rt.cache.Ping))
	}
	if s.rt.journal != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("journal", s.rt.journal.Ping))
		s.journalHandler = handlers.NewJournalHandler(s.rt.journal, s.logger)
	}
}

// routes 注册路由并构建中间件链
func (s *Server) routes(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("POST /v1/process", s.agentHandler.HandleProcess)
	mux.HandleFunc("GET /v1/tools", s.agentHandler.HandleListTools)
	mux.HandleFunc("GET /v1/agent", s.agentHandler.HandleIdentity)

	if s.journalHandler != nil {
		mux.HandleFunc("GET /v1/journal", s.journalHandler.HandleList)
		mux.HandleFunc("GET /v1/journal/stats", s.journalHandler.HandleStats)
		mux.HandleFunc("GET /v1/journal/{id}", s.journalHandler.HandleGet)
	}

	sc := s.cfg.Server
	chain := []Middleware{
		Recovery(s.logger),
		RequestID(),
		OTelTracing(),
	}
	if s.rt.collector != nil {
		chain = append(chain, MetricsMiddleware(s.rt.collector))
	}
	chain = append(chain,
		SecurityHeaders(),
		RequestLogger(s.logger),
		CORS(sc.CORSAllowedOrigins),
	)
	switch {
	case sc.JWT.Enabled():
		chain = append(chain, JWTAuth(sc.JWT, skipAuthPaths, s.logger))
	case len(sc.APIKeys) > 0:
		chain = append(chain, APIKeyAuth(sc.APIKeys, skipAuthPaths, sc.AllowQueryAPIKey, s.logger))
	}
	chain = append(chain, RateLimiter(ctx, sc.RateLimitRPS, sc.RateLimitBurst, s.logger))

	return Chain(mux, chain...)
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

func (s *Server) startHTTPServer(ctx context.Context) error {
	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(s.routes(ctx), serverConfig, s.logger)
	return s.httpManager.Start()
}

// startMetricsServer 在独立端口暴露 /metrics
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	return s.metricsManager.Start()
}

// =============================================================================
// 🔄 定义文件热重载
// =============================================================================

func (s *Server) startDefinitionWatcher(ctx context.Context) error {
	w, err := config.NewFileWatcher([]string{s.cfg.Agent.DefinitionPath},
		config.WithWatcherLogger(s.logger),
		config.WithDebounceDelay(200*time.Millisecond),
	)
	if err != nil {
		return err
	}
	w.OnChange(s.reloadAgent)
	if err := w.Start(ctx); err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// reloadAgent 重新构建 Agent；失败时保留旧 Agent 继续服务
func (s *Server) reloadAgent(ev config.FileEvent) {
	if ev.Op == config.FileOpRemove {
		s.logger.Warn("agent definition removed, keeping current agent", zap.String("path", ev.Path))
		return
	}

	a, err := s.rt.buildAgent()
	if err != nil {
		s.logger.Error("agent reload failed, keeping current agent",
			zap.String("path", ev.Path),
			zap.Error(err),
		)
		return
	}

	old := s.agents.Swap(a)
	s.logger.Info("agent reloaded",
		zap.String("path", ev.Path),
		zap.String("previous", old.Name()),
		zap.String("agent", a.Name()),
		zap.String("version", a.Version()),
	)
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 阻塞到 ctx 结束、收到信号或 HTTP 服务异常退出，然后关闭全部服务
func (s *Server) WaitForShutdown(ctx context.Context) error {
	var err error
	if s.httpManager != nil {
		err = s.httpManager.WaitForShutdown(ctx)
	}
	return errors.Join(err, s.Shutdown(context.Background()))
}

// Shutdown 优雅关闭所有服务，重复调用安全
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Starting graceful shutdown...")

	if s.cancel != nil {
		s.cancel()
	}

	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Stop())
	}
	if s.httpManager != nil {
		errs = append(errs, s.httpManager.Shutdown(ctx))
	}
	if s.metricsManager != nil {
		errs = append(errs, s.metricsManager.Shutdown(ctx))
	}

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error("shutdown finished with errors", zap.Error(err))
	} else {
		s.logger.Info("Graceful shutdown completed")
	}
	return err
}
