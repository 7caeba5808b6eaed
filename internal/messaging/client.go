package messaging

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

var logger = log.Logger("messaging")

// State 客户端生命周期状态
type State int32

const (
	// StateUninitialized 尚未初始化
	StateUninitialized State = iota
	// StateInitializing 正在解析身份并确保主机已广告
	StateInitializing
	// StateReady 可以收发
	StateReady
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Client 消息核心
//
// 身份公钥、全双工通道、已加入房间集合与生命周期状态是唯一的共享可变状态，
// 由 mu 保护，且每次变更前都先检查是否已生效。
type Client struct {
	wallet   interfaces.Wallet
	registry interfaces.AdvertisementRegistry
	rpc      interfaces.RequestTransport
	dialer   interfaces.DuplexDialer
	config   *Config

	mu       sync.Mutex
	state    State
	host     string
	identity string
	channel  interfaces.DuplexChannel
	rooms    map[string]struct{}
	stops    map[string]context.CancelFunc

	group singleflight.Group
}

var _ interfaces.MessageBox = (*Client)(nil)

// New 创建消息核心
//
// dialer 可以为 nil，此时 SendLive 总是回退到 Send，Listen 不可用。
func New(w interfaces.Wallet, registry interfaces.AdvertisementRegistry, rpc interfaces.RequestTransport,
	dialer interfaces.DuplexDialer, opts ...Option) *Client {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &Client{
		wallet:   w,
		registry: registry,
		rpc:      rpc,
		dialer:   dialer,
		config:   config,
		rooms:    make(map[string]struct{}),
		stops:    make(map[string]context.CancelFunc),
	}
}

// State 当前生命周期状态
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Host 当前初始化的主机；未初始化时返回默认主机
func (c *Client) Host() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.host != "" {
		return c.host
	}
	return c.config.DefaultHost
}

// Rooms 已加入的房间
func (c *Client) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// LiveConnected 全双工通道是否在线
func (c *Client) LiveConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel != nil && c.channel.Connected()
}

// IdentityKey 返回并缓存身份公钥
func (c *Client) IdentityKey(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.identity != "" {
		id := c.identity
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("identity", func() (any, error) {
		return c.wallet.GetPublicKey(ctx, types.PublicKeyArgs{IdentityKey: true})
	})
	if err != nil {
		return "", err
	}
	id := v.(string)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == "" {
		c.identity = id
	}
	return c.identity, nil
}

// Init 为 host 初始化；host 为空时使用默认主机
//
// 已在同一主机上就绪时直接返回。并发调用共享同一次初始化。
// 切换到不同主机时断开旧的全双工通道并重新初始化。
func (c *Client) Init(ctx context.Context, host string) error {
	if host == "" {
		host = c.config.DefaultHost
	}
	if host == "" {
		return ErrNoHost
	}

	c.mu.Lock()
	if c.state == StateReady && c.host == host {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	_, err, _ := c.group.Do("init:"+host, func() (any, error) {
		return nil, c.initialize(ctx, host)
	})
	return err
}

func (c *Client) initialize(ctx context.Context, host string) error {
	c.mu.Lock()
	if c.state == StateReady && c.host == host {
		c.mu.Unlock()
		return nil
	}
	previous := c.host
	c.state = StateInitializing
	c.host = host
	var stale interfaces.DuplexChannel
	if previous != "" && previous != host {
		stale = c.detachChannelLocked()
	}
	c.mu.Unlock()

	if stale != nil {
		_ = stale.Close()
	}

	err := c.ensureAdvertised(ctx, host)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.host != host {
		return fmt.Errorf("%w: %s superseded by %s", ErrHostChanged, host, c.host)
	}
	if err != nil {
		c.state = StateUninitialized
		return err
	}
	c.state = StateReady
	logger.Info("消息客户端已就绪", "host", host, "identityKey", log.TruncateID(c.identity, 16))
	return nil
}

// ensureAdvertised 没有与 host 完全匹配的广告时 anoint
func (c *Client) ensureAdvertised(ctx context.Context, host string) error {
	identity, err := c.IdentityKey(ctx)
	if err != nil {
		return err
	}
	for _, token := range c.registry.Query(ctx, identity, host) {
		if token.Host == host {
			return nil
		}
	}
	txid, err := c.registry.Anoint(ctx, host)
	if err != nil {
		return fmt.Errorf("messaging: anoint %s: %w", host, err)
	}
	logger.Info("已为主机发布广告", "host", host, "txid", log.TruncateID(txid, 16))
	return nil
}

// assertReady 未就绪时以当前主机（或默认主机）懒初始化
func (c *Client) assertReady(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateReady {
		c.mu.Unlock()
		return nil
	}
	host := c.host
	c.mu.Unlock()
	return c.Init(ctx, host)
}

// counterparty 向自身发送时对端为 self
func (c *Client) counterparty(ctx context.Context, other string) (string, error) {
	identity, err := c.IdentityKey(ctx)
	if err != nil {
		return "", err
	}
	if other == "" || other == identity {
		return types.CounterpartySelf, nil
	}
	return other, nil
}
