package msgbox

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-msgbox/config"
	"github.com/dep2p/go-msgbox/internal/debug/introspect"
	"github.com/dep2p/go-msgbox/internal/messaging"
	"github.com/dep2p/go-msgbox/internal/metrics"
	"github.com/dep2p/go-msgbox/internal/overlay"
	"github.com/dep2p/go-msgbox/internal/payment"
	"github.com/dep2p/go-msgbox/internal/registry"
	"github.com/dep2p/go-msgbox/internal/server"
	"github.com/dep2p/go-msgbox/internal/transport"
	"github.com/dep2p/go-msgbox/internal/wallet"
	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
)

var fxLogger = log.Logger("msgbox/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 身份: Wallet
//  2. 基础设施: Metrics → Overlay → Registry → Transport
//  3. 服务: Messaging → Payment
//  4. 可选: Server（内嵌主机）→ Introspect（本地诊断）
func buildFxApp(cfg *config.Config, o *options, node *Node) (*fx.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(cfg),
	}

	if o.wallet != nil {
		w := o.wallet
		modules = append(modules, fx.Provide(func() interfaces.Wallet { return w }))
	} else {
		modules = append(modules, wallet.Module())
	}

	modules = append(modules,
		metrics.Module(),
		overlay.Module(),
		registry.Module(),
		transport.Module(),
		messaging.Module(),
		payment.Module(),
	)

	if o.serve {
		modules = append(modules,
			server.Module(),
			fx.Invoke(func(srv *server.Server) { node.server = srv }),
		)
		fxLogger.Debug("已加载内嵌主机模块", "listen", cfg.Server.Listen)
	}

	if cfg.Diagnostics.EnableIntrospect {
		modules = append(modules, introspect.Module())
	}

	if len(o.fxOptions) > 0 {
		modules = append(modules, o.fxOptions...)
	}

	modules = append(modules,
		fx.Invoke(injectNodeComponents(node)),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	return fx.New(modules...), nil
}

// nodeInjectParams 注入到 Node 的组件
type nodeInjectParams struct {
	fx.In

	Wallet   interfaces.Wallet
	Registry interfaces.AdvertisementRegistry
	Client   *messaging.Client
	Payments *payment.Service
}

func injectNodeComponents(node *Node) interface{} {
	return func(params nodeInjectParams) {
		node.wallet = params.Wallet
		node.registry = params.Registry
		node.client = params.Client
		node.payments = params.Payments
	}
}
