package registry

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-msgbox/config"
	"github.com/dep2p/go-msgbox/pkg/interfaces"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	UnifiedCfg  *config.Config `optional:"true"`
	Wallet      interfaces.Wallet
	Resolver    interfaces.LookupResolver
	Broadcaster interfaces.Broadcaster
}

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	Registry interfaces.AdvertisementRegistry
}

// ConfigFromUnified 从统一配置创建注册表选项
func ConfigFromUnified(cfg *config.Config) []Option {
	if cfg == nil {
		return nil
	}
	return []Option{
		WithDefaultHost(cfg.Client.Host),
		WithCache(cfg.Client.HostCacheTTL.Std(), DefaultConfig().CacheSize),
	}
}

// ProvideServices 提供广告注册表
func ProvideServices(input ModuleInput) ModuleOutput {
	r := New(input.Wallet, input.Resolver, input.Broadcaster, ConfigFromUnified(input.UnifiedCfg)...)
	return ModuleOutput{Registry: r}
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("registry",
		fx.Provide(ProvideServices),
	)
}
