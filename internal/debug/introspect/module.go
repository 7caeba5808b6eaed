package introspect

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-msgbox/config"
	"github.com/dep2p/go-msgbox/internal/messaging"
	"github.com/dep2p/go-msgbox/internal/overlay"
	"github.com/dep2p/go-msgbox/internal/server"
)

// Module 返回自省服务 Fx 模块
func Module() fx.Option {
	return fx.Module("introspect",
		fx.Provide(NewFromParams),
		fx.Invoke(registerLifecycle),
	)
}

// IntrospectParams 自省服务依赖参数
type IntrospectParams struct {
	fx.In

	UnifiedCfg *config.Config    `optional:"true"`
	Client     *messaging.Client `optional:"true"`
	Host       *server.Server    `optional:"true"`
	Ledger     *overlay.Ledger   `optional:"true"`
}

// IntrospectOutput 自省服务输出
type IntrospectOutput struct {
	fx.Out

	Server *Server
}

// ConfigFromUnified 从统一配置创建自省服务配置，禁用时返回 nil
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil || !cfg.Diagnostics.EnableIntrospect {
		return nil
	}
	addr := cfg.Diagnostics.IntrospectAddr
	if addr == "" {
		addr = DefaultAddr
	}
	return &Config{Addr: addr}
}

// NewFromParams 从参数创建自省服务
func NewFromParams(params IntrospectParams) IntrospectOutput {
	cfg := ConfigFromUnified(params.UnifiedCfg)
	if cfg == nil {
		return IntrospectOutput{}
	}
	cfg.Client = params.Client
	cfg.Host = params.Host
	cfg.Ledger = params.Ledger
	return IntrospectOutput{Server: New(*cfg)}
}

func registerLifecycle(lc fx.Lifecycle, server *Server) {
	if server == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return server.Stop()
		},
	})
}
