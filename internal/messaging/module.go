package messaging

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-msgbox/config"
	"github.com/dep2p/go-msgbox/internal/metrics"
	"github.com/dep2p/go-msgbox/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// UnifiedCfg 统一配置（可选）
	UnifiedCfg *config.Config `optional:"true"`

	Wallet    interfaces.Wallet
	Registry  interfaces.AdvertisementRegistry
	Transport interfaces.RequestTransport

	// Dialer 全双工拨号器（可选，缺失时 SendLive 总是回退）
	Dialer interfaces.DuplexDialer `optional:"true"`

	// Metrics 客户端指标（可选）
	Metrics *metrics.Client `optional:"true"`
}

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	Client     *Client
	MessageBox interfaces.MessageBox
}

// ============================================================================
//                              服务提供
// ============================================================================

// ConfigFromUnified 从统一配置创建消息核心选项
func ConfigFromUnified(cfg *config.Config) []Option {
	if cfg == nil {
		return nil
	}
	return []Option{
		WithDefaultHost(cfg.Client.Host),
		WithLiveAckTimeout(cfg.Client.LiveAckTimeout.Std()),
	}
}

// ProvideServices 提供模块服务
func ProvideServices(input ModuleInput) ModuleOutput {
	opts := ConfigFromUnified(input.UnifiedCfg)
	opts = append(opts, WithMetrics(input.Metrics))

	dialer := input.Dialer
	if input.UnifiedCfg != nil && !input.UnifiedCfg.Client.EnableLive {
		dialer = nil
	}

	client := New(input.Wallet, input.Registry, input.Transport, dialer, opts...)
	return ModuleOutput{Client: client, MessageBox: client}
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("messaging",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

// registerLifecycle 停止时断开全双工通道
func registerLifecycle(lc fx.Lifecycle, client *Client) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			logger.Info("消息客户端停止")
			return client.Disconnect()
		},
	})
}
