package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"

	"github.com/dep2p/go-msgbox/config"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// ModuleOutput 定义模块输出服务
//
// Metrics.Enabled 为 false 时 Registry 与 Client 均为 nil，记录方法为空操作。
type ModuleOutput struct {
	fx.Out

	Registry *prometheus.Registry
	Client   *Client
}

// ProvideServices 创建独立注册表与客户端指标
func ProvideServices(input ModuleInput) ModuleOutput {
	if input.UnifiedCfg != nil && !input.UnifiedCfg.Metrics.Enabled {
		return ModuleOutput{}
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return ModuleOutput{Registry: reg, Client: NewClient(reg)}
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideServices),
	)
}
