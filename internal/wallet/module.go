package wallet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

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
type ModuleOutput struct {
	fx.Out

	Wallet    *Wallet
	Interface interfaces.Wallet
}

// FromConfig 按身份配置加载钱包
//
//   - KeyFile 为空：生成临时身份
//   - KeyFile 存在：加载
//   - KeyFile 不存在：AutoGenerate 时生成并保存，否则返回 ErrKeyFileMissing
func FromConfig(cfg config.IdentityConfig) (*Wallet, error) {
	if cfg.KeyFile == "" {
		return Generate()
	}
	if !cfg.AutoGenerate {
		if _, err := os.Stat(cfg.KeyFile); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyFileMissing, cfg.KeyFile)
		}
	}
	return LoadOrCreate(cfg.KeyFile)
}

// ProvideWallet 提供本地钱包
func ProvideWallet(input ModuleInput) (ModuleOutput, error) {
	cfg := config.DefaultIdentityConfig()
	if input.UnifiedCfg != nil {
		cfg = input.UnifiedCfg.Identity
	}
	w, err := FromConfig(cfg)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Wallet: w, Interface: w}, nil
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("wallet",
		fx.Provide(ProvideWallet),
	)
}
