// Package transport 汇集客户端的请求/响应与全双工通道
//
// 子包：
//   - auth:   请求认证（签名、校验、防重放）
//   - rpc:    HTTP 请求/响应通道
//   - duplex: websocket 全双工通道
package transport

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-msgbox/config"
	"github.com/dep2p/go-msgbox/internal/transport/auth"
	"github.com/dep2p/go-msgbox/internal/transport/duplex"
	"github.com/dep2p/go-msgbox/internal/transport/rpc"
	"github.com/dep2p/go-msgbox/internal/wallet"
	"github.com/dep2p/go-msgbox/pkg/interfaces"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Wallet     interfaces.Wallet
}

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	Signer    *auth.Signer
	Transport interfaces.RequestTransport
	Dialer    interfaces.DuplexDialer
}

// ConfigFromUnified 从统一配置创建请求通道选项
func ConfigFromUnified(cfg *config.Config) []rpc.Option {
	if cfg == nil {
		return nil
	}
	return []rpc.Option{
		rpc.WithTimeout(cfg.Client.RequestTimeout.Std()),
		rpc.WithMaxRetries(cfg.Client.MaxRetries),
	}
}

// ProvideServices 提供签名器与两类通道
//
// 主机在握手中签名证明身份，客户端用任意方校验器验证。
func ProvideServices(input ModuleInput) ModuleOutput {
	signer := auth.NewSigner(input.Wallet, nil)
	verifier := auth.NewVerifier(wallet.NewAnyone(), nil, 0)
	return ModuleOutput{
		Signer:    signer,
		Transport: rpc.New(signer, ConfigFromUnified(input.UnifiedCfg)...),
		Dialer:    duplex.NewDialer(signer, verifier),
	}
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideServices),
	)
}
