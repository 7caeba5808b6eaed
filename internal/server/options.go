package server

import (
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-msgbox/internal/metrics"
)

// Config 主机配置
type Config struct {
	// Addr 监听地址
	Addr string

	// AuthWindow 认证时间戳允许偏差
	AuthWindow time.Duration

	// RateLimit 每个身份每秒请求数，0 表示不限流
	RateLimit float64

	// RateBurst 突发上限
	RateBurst int

	// MaxBodySize 请求体上限
	MaxBodySize int64

	// WSPath 全双工接入路径
	WSPath string

	// HandshakeTimeout 全双工握手超时
	HandshakeTimeout time.Duration

	// WriteTimeout 全双工单帧写超时
	WriteTimeout time.Duration

	// ShutdownTimeout 优雅关闭超时
	ShutdownTimeout time.Duration

	// Clock 时钟
	Clock clock.Clock

	// Metrics 主机指标（可选）
	Metrics *metrics.Host

	// Gatherer 非空时在 /metrics 暴露
	Gatherer prometheus.Gatherer

	// Overlay 非空时挂载到 /overlay/
	Overlay http.Handler
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Addr:             "127.0.0.1:8760",
		AuthWindow:       30 * time.Second,
		MaxBodySize:      1 << 20,
		WSPath:           "/ws",
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ShutdownTimeout:  5 * time.Second,
		Clock:            clock.New(),
	}
}

// Option 配置选项函数
type Option func(*Config)

// WithAddr 设置监听地址
func WithAddr(addr string) Option {
	return func(c *Config) {
		c.Addr = addr
	}
}

// WithAuthWindow 设置认证时间窗口
func WithAuthWindow(d time.Duration) Option {
	return func(c *Config) {
		c.AuthWindow = d
	}
}

// WithRateLimit 设置每身份限流
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Config) {
		c.RateLimit = perSecond
		c.RateBurst = burst
	}
}

// WithMaxBodySize 设置请求体上限
func WithMaxBodySize(n int64) Option {
	return func(c *Config) {
		c.MaxBodySize = n
	}
}

// WithClock 设置时钟
func WithClock(clk clock.Clock) Option {
	return func(c *Config) {
		c.Clock = clk
	}
}

// WithMetrics 设置指标及其暴露来源
func WithMetrics(m *metrics.Host, g prometheus.Gatherer) Option {
	return func(c *Config) {
		c.Metrics = m
		c.Gatherer = g
	}
}

// WithOverlay 在 /overlay/ 下挂载叠加网络服务
func WithOverlay(h http.Handler) Option {
	return func(c *Config) {
		c.Overlay = h
	}
}

// WithShutdownTimeout 设置优雅关闭超时
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ShutdownTimeout = d
	}
}
