package messaging

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-msgbox/internal/metrics"
)

// Config 消息核心配置
type Config struct {
	// DefaultHost 默认主机，懒初始化与主机解析兜底
	DefaultHost string

	// LiveAckTimeout 实时发送等待房间确认的时间
	LiveAckTimeout time.Duration

	// Clock 计时器来源
	Clock clock.Clock

	// Metrics 可选指标
	Metrics *metrics.Client
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		LiveAckTimeout: 10 * time.Second,
		Clock:          clock.New(),
	}
}

// Option 配置选项函数
type Option func(*Config)

// WithDefaultHost 设置默认主机
func WithDefaultHost(host string) Option {
	return func(c *Config) {
		c.DefaultHost = host
	}
}

// WithLiveAckTimeout 设置实时确认超时
func WithLiveAckTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.LiveAckTimeout = d
	}
}

// WithClock 设置时钟
func WithClock(clk clock.Clock) Option {
	return func(c *Config) {
		c.Clock = clk
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Client) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}
