package overlay

import (
	"net/http"

	"go.uber.org/fx"

	"github.com/dep2p/go-msgbox/config"
	"github.com/dep2p/go-msgbox/pkg/interfaces"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// ModuleOutput 定义模块输出服务
//
// 未配置 Endpoint 时使用进程内 Ledger，并同时输出供主机挂载；
// 配置了 Endpoint 时 Ledger 为 nil。
type ModuleOutput struct {
	fx.Out

	Resolver    interfaces.LookupResolver
	Broadcaster interfaces.Broadcaster
	Ledger      *Ledger
}

// ProvideServices 提供叠加网络解析与广播
func ProvideServices(input ModuleInput) ModuleOutput {
	cfg := input.UnifiedCfg
	if cfg == nil || cfg.Overlay.Endpoint == "" {
		l := NewLedger()
		logger.Info("使用进程内叠加网络")
		return ModuleOutput{Resolver: l, Broadcaster: l, Ledger: l}
	}
	c := NewClient(cfg.Overlay.Endpoint, &http.Client{Timeout: cfg.Overlay.Timeout.Std()})
	return ModuleOutput{Resolver: c, Broadcaster: c}
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("overlay",
		fx.Provide(ProvideServices),
	)
}
