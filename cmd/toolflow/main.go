// =============================================================================
// toolflow 主入口
// =============================================================================
// 使用方法:
//
//	toolflow serve                                 # 启动服务
//	toolflow serve --config config.yaml            # 指定配置文件
//	toolflow invoke --message "Calculate 15 * 7"   # 单次调用并打印信封
//	toolflow tools                                 # 列出工具
//	toolflow version                               # 显示版本信息
//	toolflow health                                # 健康检查
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/toolflow/agent"
	"github.com/BaSui01/toolflow/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run 分派子命令并返回进程退出码
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "serve":
		err = runServe(args[1:])
	case "invoke":
		err = runInvoke(args[1:], stdout)
	case "tools":
		err = runTools(args[1:], stdout)
	case "version":
		printVersion(stdout)
	case "health":
		err = runHealthCheck(args[1:], stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting toolflow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	ctx := context.Background()
	rt, err := newRuntime(ctx, cfg, logger, runtimeOptions{metrics: true, version: Version})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("runtime close failed", zap.Error(err))
		}
	}()

	srv, err := NewServer(cfg, rt, logger)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		_ = srv.Shutdown(ctx)
		return err
	}

	err = srv.WaitForShutdown(ctx)
	logger.Info("toolflow stopped")
	return err
}

// =============================================================================
// ⚡ invoke / tools 命令
// =============================================================================

// contextFlag 收集重复的 --context key=value
type contextFlag map[string]any

func (c contextFlag) String() string {
	parts := make([]string, 0, len(c))
	for k, v := range c {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ",")
}

func (c contextFlag) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("context must be key=value, got %q", value)
	}
	c[strings.TrimSpace(k)] = v
	return nil
}

func runInvoke(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("invoke", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	message := fs.String("message", "", "Request message")
	reqType := fs.String("type", "", "Request type tag (weather, calculation, echo)")
	timeout := fs.Duration("timeout", 0, "Request timeout (defaults to agent.request_timeout)")
	reqCtx := contextFlag{}
	fs.Var(reqCtx, "context", "Request context entry key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *message == "" && fs.NArg() > 0 {
		*message = strings.Join(fs.Args(), " ")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	a, closeFn, err := buildCLIAgent(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	d := *timeout
	if d == 0 {
		d = cfg.Agent.RequestTimeout
	}
	ctx := context.Background()
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	req := agent.Request{Message: *message, Type: *reqType}
	if len(reqCtx) > 0 {
		req.Context = reqCtx
	}
	env := a.Process(ctx, req)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

func runTools(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("tools", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	a, closeFn, err := buildCLIAgent(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	identity := a.Identity()
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(identity.Tools)
	}

	fmt.Fprintf(stdout, "%s %s\n", identity.Name, identity.Version)
	for _, t := range identity.Tools {
		fmt.Fprintf(stdout, "  %-12s %s\n", t.ID, t.Description)
	}
	return nil
}

// buildCLIAgent 构建不带指标观察者的 Agent，日志只输出警告以上
func buildCLIAgent(cfg *config.Config) (*agent.Agent, func(), error) {
	logCfg := cfg.Log
	logCfg.Level = "warn"
	logCfg.OutputPaths = []string{"stderr"}
	logger := initLogger(logCfg)

	rt, err := newRuntime(context.Background(), cfg, logger, runtimeOptions{})
	if err != nil {
		return nil, nil, err
	}
	a, err := rt.buildAgent()
	if err != nil {
		_ = rt.Close()
		return nil, nil, err
	}
	return a, func() {
		_ = rt.Close()
		_ = logger.Sync()
	}, nil
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	path := fs.String("path", "/health", "Health endpoint (/health or /ready)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimRight(*addr, "/") + *path)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	fmt.Fprintln(stdout, "OK")
	return nil
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "toolflow %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `toolflow - tool-augmented agent

Usage:
  toolflow <command> [options]

Commands:
  serve     Start the HTTP server
  invoke    Process one request and print the envelope
  tools     List the agent's tools
  version   Show version information
  health    Check server health
  help      Show this help message

Options for 'serve', 'invoke', 'tools':
  --config <path>   Path to configuration file (YAML)

Options for 'invoke':
  --message <text>  Request message
  --type <tag>      Request type tag
  --context k=v     Context entry (repeatable)
  --timeout <dur>   Request timeout

Examples:
  toolflow serve --config /etc/toolflow/config.yaml
  toolflow invoke --message "What's the weather in London?" --type weather
  toolflow invoke --message "weather" --type weather --context city=Paris
  toolflow tools --json
  toolflow health --addr http://localhost:8080`)
}

// =============================================================================
// 🔧 配置与日志
// =============================================================================

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Join(errors.New("invalid config"), err)
	}
	return cfg, nil
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
