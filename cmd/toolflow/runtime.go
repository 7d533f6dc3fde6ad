package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/agent"
	"github.com/BaSui01/toolflow/agent/declarative"
	"github.com/BaSui01/toolflow/config"
	"github.com/BaSui01/toolflow/internal/cache"
	"github.com/BaSui01/toolflow/internal/database"
	"github.com/BaSui01/toolflow/internal/journal"
	"github.com/BaSui01/toolflow/internal/metrics"
	"github.com/BaSui01/toolflow/internal/telemetry"
	"github.com/BaSui01/toolflow/tools"
)

// metricsNamespace Prometheus 指标命名空间
const metricsNamespace = "toolflow"

// runtime 持有构建 Agent 所需的全部依赖：工具目录、缓存、日志库与观察者
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger

	kit       *tools.Kit
	cache     *cache.Manager
	journal   *journal.Store
	collector *metrics.Collector
	otel      *telemetry.Providers
	observers []agent.Observer
}

// runtimeOptions 控制哪些可选组件被装配
type runtimeOptions struct {
	// metrics 为 true 时初始化 OTel 并注册 Prometheus 与 OTel 观察者（serve）
	metrics bool
	// version 写入 OTel resource 的 service.version
	version string
}

// newRuntime 按配置装配依赖。Redis 不可用时降级为无缓存；
// 日志库已启用但无法打开时返回错误。
func newRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts runtimeOptions) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}

	if opts.metrics {
		rt.collector = metrics.NewCollector(metricsNamespace, logger)
		rt.observers = append(rt.observers, rt.collector)

		providers, err := telemetry.Init(ctx, cfg.Telemetry, telemetry.ServiceInfo{
			Name:      cfg.Telemetry.ServiceName,
			Version:   opts.version,
			AgentName: rt.agentName(),
		}, logger)
		if err != nil {
			logger.Warn("failed to initialize telemetry", zap.Error(err))
		}
		rt.otel = providers

		otelObserver, err := telemetry.NewEnvelopeObserver(rt.otel.Meter())
		if err != nil {
			logger.Warn("OTel envelope observer disabled", zap.Error(err))
		} else {
			rt.observers = append(rt.observers, otelObserver)
		}
	}

	if cfg.Redis.Enabled {
		if err := rt.openCache(); err != nil {
			logger.Warn("Redis not available, weather cache disabled", zap.Error(err))
		}
	}

	if cfg.Journal.Enabled {
		if err := rt.openJournal(ctx); err != nil {
			rt.Close()
			return nil, err
		}
		rt.observers = append(rt.observers, rt.journal)
	}

	weather := tools.WeatherOptions{
		Seed:     cfg.Weather.Seed,
		Latency:  cfg.Weather.Latency,
		CacheTTL: cfg.Weather.CacheTTL,
		Logger:   logger,
	}
	if rt.cache != nil {
		weather.Cache = rt.cache
	}

	kit, err := tools.Standard(tools.Options{Weather: weather})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build tool kit: %w", err)
	}
	rt.kit = kit

	return rt, nil
}

func (rt *runtime) openCache() error {
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Addr = rt.cfg.Redis.Addr
	cacheCfg.Password = rt.cfg.Redis.Password
	cacheCfg.DB = rt.cfg.Redis.DB
	cacheCfg.KeyPrefix = rt.cfg.Redis.KeyPrefix
	if rt.cfg.Redis.PoolSize > 0 {
		cacheCfg.PoolSize = rt.cfg.Redis.PoolSize
	}
	if rt.cfg.Weather.CacheTTL > 0 {
		cacheCfg.DefaultTTL = rt.cfg.Weather.CacheTTL
	}

	c, err := cache.NewManager(cacheCfg, rt.logger)
	if err != nil {
		return err
	}
	rt.cache = c

	if rt.collector != nil {
		rt.collector.RegisterCacheStats("weather", func() (uint64, uint64) {
			s := c.Stats()
			return s.Hits, s.Misses
		})
	}
	return nil
}

func (rt *runtime) openJournal(ctx context.Context) error {
	jc := rt.cfg.Journal
	poolCfg := database.DefaultPoolConfig()
	if jc.MaxOpenConns > 0 {
		poolCfg.MaxOpenConns = jc.MaxOpenConns
	}
	if jc.MaxIdleConns > 0 {
		poolCfg.MaxIdleConns = jc.MaxIdleConns
	}
	if jc.ConnMaxLifetime > 0 {
		poolCfg.ConnMaxLifetime = jc.ConnMaxLifetime
	}

	pool, err := database.Open(jc.Driver, jc.DSN(), poolCfg, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to open journal database: %w", err)
	}

	opts := []journal.Option{journal.WithLogger(rt.logger)}
	if rt.collector != nil {
		opts = append(opts, journal.WithWriteHook(rt.collector.RecordJournalWrite))
	}
	store, err := journal.NewStore(pool, opts...)
	if err != nil {
		_ = pool.Close()
		return err
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := store.Migrate(migrateCtx); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to migrate journal: %w", err)
	}

	rt.journal = store
	rt.logger.Info("Envelope journal enabled", zap.String("driver", jc.Driver))
	return nil
}

// buildAgent 构建 Agent：设置了定义文件时走声明式工厂，否则使用 agent 配置段
func (rt *runtime) buildAgent() (*agent.Agent, error) {
	if path := rt.cfg.Agent.DefinitionPath; path != "" {
		def, err := declarative.NewYAMLLoader().LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg, err := declarative.NewAgentFactory(rt.kit, rt.logger, rt.observers...).ToAgentConfig(def)
		if err != nil {
			return nil, err
		}
		cfg.Tracer = rt.otel.Tracer()
		return agent.New(cfg)
	}

	ac := rt.cfg.Agent
	selected, err := rt.kit.Select(ac.Tools...)
	if err != nil {
		return nil, err
	}
	return agent.New(agent.Config{
		Name:         ac.Name,
		Instructions: ac.Instructions,
		Version:      ac.Version,
		Model:        agent.ModelRef{Provider: ac.ModelProvider, Name: ac.Model},
		Tools:        selected.Tools(),
		Routes:       selected.Routes(),
		Patterns:     selected.Patterns(),
		Observers:    rt.observers,
		Tracer:       rt.otel.Tracer(),
		Logger:       rt.logger,
	})
}

// agentName 返回 resource 上标注的 Agent 名称；定义文件优先，读取失败时退回配置段
func (rt *runtime) agentName() string {
	if path := rt.cfg.Agent.DefinitionPath; path != "" {
		if def, err := declarative.NewYAMLLoader().LoadFile(path); err == nil {
			return def.Name
		}
	}
	return rt.cfg.Agent.Name
}

// Close 释放缓存、日志库连接并刷新 OTel 导出器
func (rt *runtime) Close() error {
	var errs []error
	if rt.otel.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, rt.otel.Shutdown(ctx))
		cancel()
	}
	if rt.cache != nil {
		errs = append(errs, rt.cache.Close())
	}
	if rt.journal != nil {
		errs = append(errs, rt.journal.Close())
	}
	return errors.Join(errs...)
}
