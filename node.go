package msgbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-msgbox/config"
	"github.com/dep2p/go-msgbox/internal/messaging"
	"github.com/dep2p/go-msgbox/internal/payment"
	"github.com/dep2p/go-msgbox/internal/server"
	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

var logger = log.Logger("msgbox")

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 已创建，未启动
	StateIdle NodeState = iota

	// StateStarting 启动中
	StateStarting

	// StateRunning 运行中
	StateRunning

	// StateStopping 停止中
	StateStopping

	// StateStopped 已停止（不可再启动）
	StateStopped

	// StateClosed 已关闭
	StateClosed
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// startTimeout Fx App 启动超时
const startTimeout = 30 * time.Second

// Node msgbox 节点
//
// Node 是门面（Facade），聚合钱包、消息核心、支付扩展，
// 以及通过 WithServer 启用的内嵌消息主机。
type Node struct {
	config *config.Config
	app    *fx.App

	// 由 Fx 注入
	wallet   interfaces.Wallet
	registry interfaces.AdvertisementRegistry
	client   *messaging.Client
	payments *payment.Service
	server   *server.Server

	mu      sync.RWMutex
	state   NodeState
	started bool
	closed  bool
}

// ════════════════════════════════════════════════════════════════════════════
//                              构造与生命周期
// ════════════════════════════════════════════════════════════════════════════

// New 创建新节点
//
// 创建节点但不启动，需要调用 Start() 启动。
func New(_ context.Context, opts ...Option) (*Node, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	node := &Node{config: o.toInternalConfig()}
	app, err := buildFxApp(node.config, o, node)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	node.app = app
	return node, nil
}

// Start 快捷启动函数，等价于 New() + Start()
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := node.Start(ctx); err != nil {
		_ = node.Close()
		return nil, err
	}
	return node, nil
}

// Start 启动节点（内嵌主机开始监听）
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed || n.state == StateStopped {
		return ErrNodeClosed
	}
	if n.started {
		return ErrAlreadyStarted
	}

	n.state = StateStarting
	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := n.app.Start(startCtx); err != nil {
		n.state = StateIdle
		logger.Error("节点启动失败", "error", err)
		return fmt.Errorf("start failed: %w", err)
	}

	n.started = true
	n.state = StateRunning
	logger.Info("节点已启动", "identityKey", log.TruncateID(n.identityKey(), 16), "host", n.config.Client.Host)
	return nil
}

// Stop 停止节点
//
// 断开全双工通道并停止内嵌主机。Fx 应用只能启动一次，停止后节点不可再启动。
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if !n.started {
		return ErrNotStarted
	}
	return n.stopLocked(ctx)
}

func (n *Node) stopLocked(ctx context.Context) error {
	n.state = StateStopping
	err := n.app.Stop(ctx)
	n.state = StateStopped
	n.started = false
	if err != nil {
		logger.Error("停止节点失败", "error", err)
		return fmt.Errorf("stop fx app: %w", err)
	}
	logger.Info("节点已停止")
	return nil
}

// Close 关闭节点并释放所有资源，可重复调用
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	var err error
	if n.started {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = n.stopLocked(ctx)
		cancel()
	}
	n.closed = true
	n.state = StateClosed
	return err
}

// State 当前状态
func (n *Node) State() NodeState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// ════════════════════════════════════════════════════════════════════════════
//                              组件访问
// ════════════════════════════════════════════════════════════════════════════

// IdentityKey 节点身份公钥
func (n *Node) IdentityKey() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.identityKey()
}

func (n *Node) identityKey() string {
	if n.wallet == nil {
		return ""
	}
	id, err := n.wallet.GetPublicKey(context.Background(), types.PublicKeyArgs{IdentityKey: true})
	if err != nil {
		return ""
	}
	return id
}

// Config 节点生效的配置
func (n *Node) Config() *config.Config { return n.config }

// Messages 消息核心
func (n *Node) Messages() *messaging.Client { return n.client }

// Payments 支付扩展
func (n *Node) Payments() *payment.Service { return n.payments }

// Registry 广告注册表
func (n *Node) Registry() interfaces.AdvertisementRegistry { return n.registry }

// Server 内嵌主机，未启用时返回 ErrServerDisabled
func (n *Node) Server() (*server.Server, error) {
	if n.server == nil {
		return nil, ErrServerDisabled
	}
	return n.server, nil
}
