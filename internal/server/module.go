package server

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-msgbox/config"
	"github.com/dep2p/go-msgbox/internal/metrics"
	"github.com/dep2p/go-msgbox/internal/overlay"
	"github.com/dep2p/go-msgbox/internal/server/store"
	"github.com/dep2p/go-msgbox/pkg/interfaces"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Wallet     interfaces.Wallet

	// Ledger 进程内叠加网络（可选，ServeOverlay 时挂载）
	Ledger *overlay.Ledger `optional:"true"`

	// Registry prometheus 注册表（可选，Metrics.Enabled 时使用）
	Registry *prometheus.Registry `optional:"true"`
}

// OpenStore 按统一配置打开消息存储
func OpenStore(cfg *config.Config) (store.Store, error) {
	if cfg == nil || cfg.Storage.Engine != config.StoreBadger {
		return store.NewMemory(), nil
	}
	return store.OpenBadger(store.BadgerConfig{
		Path:       cfg.Storage.DBPath(),
		SyncWrites: cfg.Storage.SyncWrites,
	})
}

// ConfigFromUnified 从统一配置创建主机选项
func ConfigFromUnified(cfg *config.Config) []Option {
	if cfg == nil {
		return nil
	}
	return []Option{
		WithAddr(cfg.Server.Listen),
		WithAuthWindow(cfg.Server.AuthWindow.Std()),
		WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
		WithMaxBodySize(cfg.Server.MaxBodySize),
		WithShutdownTimeout(cfg.Server.ShutdownTimeout.Std()),
	}
}

// ProvideServer 提供消息主机
func ProvideServer(input ModuleInput) (*Server, error) {
	s, err := OpenStore(input.UnifiedCfg)
	if err != nil {
		return nil, err
	}
	opts := ConfigFromUnified(input.UnifiedCfg)
	cfg := input.UnifiedCfg
	if input.Registry != nil && (cfg == nil || cfg.Metrics.Enabled) {
		opts = append(opts, WithMetrics(metrics.NewHost(input.Registry), input.Registry))
	}
	if input.Ledger != nil && (cfg == nil || cfg.Server.ServeOverlay) {
		opts = append(opts, WithOverlay(overlay.NewHandler(input.Ledger)))
	}
	srv, err := New(input.Wallet, s, opts...)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return srv, nil
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("server",
		fx.Provide(ProvideServer),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return srv.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return srv.Stop()
		},
	})
}
