package duplex

import "time"

// Config 全双工通道配置
type Config struct {
	// Path websocket 端点路径
	Path string

	// HandshakeTimeout 连接与认证握手超时
	HandshakeTimeout time.Duration

	// WriteTimeout 单帧写超时
	WriteTimeout time.Duration

	// SubscriptionBuffer 每个房间订阅的缓冲大小
	SubscriptionBuffer int
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Path:               "/ws",
		HandshakeTimeout:   10 * time.Second,
		WriteTimeout:       10 * time.Second,
		SubscriptionBuffer: 32,
	}
}

// Option 配置选项函数
type Option func(*Config)

// WithPath 设置端点路径
func WithPath(path string) Option {
	return func(c *Config) {
		c.Path = path
	}
}

// WithHandshakeTimeout 设置握手超时
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.HandshakeTimeout = d
	}
}

// WithSubscriptionBuffer 设置订阅缓冲大小
func WithSubscriptionBuffer(n int) Option {
	return func(c *Config) {
		c.SubscriptionBuffer = n
	}
}
