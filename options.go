package msgbox

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-msgbox/config"
	"github.com/dep2p/go-msgbox/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 基础配置（为空时使用默认配置）
	config *config.Config

	// 身份配置
	wallet  interfaces.Wallet
	keyFile string

	// 消息核心
	host           string
	liveAckTimeout time.Duration

	// 叠加网络
	overlayEndpoint string

	// 内嵌主机
	serve  bool
	listen string

	// 存储配置
	storage struct {
		engine  string
		dataDir string
	}

	// 本地自省服务
	introspect struct {
		enable bool
		addr   string
	}

	// 用户自定义 Fx 选项
	fxOptions []fx.Option
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{}
}

// toInternalConfig 在基础配置上应用显式选项
func (o *options) toInternalConfig() *config.Config {
	cfg := config.NewConfig()
	if o.config != nil {
		c := *o.config
		cfg = &c
	}
	if o.keyFile != "" {
		cfg.Identity.KeyFile = o.keyFile
	}
	if o.host != "" {
		cfg.Client.Host = o.host
	}
	if o.liveAckTimeout > 0 {
		cfg.Client.LiveAckTimeout = config.Duration(o.liveAckTimeout)
	}
	if o.overlayEndpoint != "" {
		cfg.Overlay.Endpoint = o.overlayEndpoint
	}
	if o.listen != "" {
		cfg.Server.Listen = o.listen
	}
	if o.storage.engine != "" {
		cfg.Storage.Engine = o.storage.engine
	}
	if o.storage.dataDir != "" {
		cfg.Storage.DataDir = o.storage.dataDir
	}
	if o.introspect.enable {
		cfg.Diagnostics.EnableIntrospect = true
		if o.introspect.addr != "" {
			cfg.Diagnostics.IntrospectAddr = o.introspect.addr
		}
	}
	return cfg
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置选项
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 以完整配置为基础，其他选项在其上覆盖
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		o.config = cfg
		return nil
	}
}

// WithIdentityFromFile 从文件加载身份，文件不存在时生成
func WithIdentityFromFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return errors.New("identity key file path is empty")
		}
		o.keyFile = path
		return nil
	}
}

// WithWallet 使用外部钱包，优先于身份文件
func WithWallet(w interfaces.Wallet) Option {
	return func(o *options) error {
		if w == nil {
			return errors.New("wallet is nil")
		}
		o.wallet = w
		return nil
	}
}

// WithHost 设置默认消息主机
func WithHost(host string) Option {
	return func(o *options) error {
		o.host = host
		return nil
	}
}

// WithLiveAckTimeout 设置实时发送等待确认的时间
func WithLiveAckTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("invalid live ack timeout: %v", d)
		}
		o.liveAckTimeout = d
		return nil
	}
}

// WithOverlayEndpoint 使用远端叠加网络；未设置时使用进程内叠加网络
func WithOverlayEndpoint(endpoint string) Option {
	return func(o *options) error {
		o.overlayEndpoint = endpoint
		return nil
	}
}

// WithServer 启用内嵌消息主机，listen 为空时使用配置中的监听地址
//
// 内嵌主机使用节点自身的身份，并挂载进程内叠加网络。
func WithServer(listen string) Option {
	return func(o *options) error {
		o.serve = true
		o.listen = listen
		return nil
	}
}

// WithStorage 设置内嵌主机的存储引擎与数据目录
func WithStorage(engine, dataDir string) Option {
	return func(o *options) error {
		if engine != config.StoreMemory && engine != config.StoreBadger {
			return fmt.Errorf("unknown storage engine %q", engine)
		}
		o.storage.engine = engine
		o.storage.dataDir = dataDir
		return nil
	}
}

// WithIntrospect 启用本地自省服务，addr 为空时使用配置中的地址
func WithIntrospect(addr string) Option {
	return func(o *options) error {
		o.introspect.enable = true
		o.introspect.addr = addr
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
