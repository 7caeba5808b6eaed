package payment

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-msgbox/pkg/interfaces"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Wallet     interfaces.Wallet
	MessageBox interfaces.MessageBox
}

// ProvideService 提供支付扩展
func ProvideService(input ModuleInput) *Service {
	return New(input.Wallet, input.MessageBox)
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("payment",
		fx.Provide(ProvideService),
	)
}
