package config

import (
	"errors"
	"net"
	"time"
)

// ServerConfig 消息主机配置
type ServerConfig struct {
	// Listen 监听地址
	Listen string `json:"listen"`

	// AuthWindow 请求时间戳允许偏差
	AuthWindow Duration `json:"auth_window"`

	// RateLimit 每个身份每秒请求数，0 关闭限流
	RateLimit float64 `json:"rate_limit"`

	// RateBurst 限流突发上限
	RateBurst int `json:"rate_burst"`

	// MaxBodySize 请求体大小上限（字节）
	MaxBodySize int64 `json:"max_body_size"`

	// ServeOverlay 同时在 /overlay 下提供内存叠加网络
	ServeOverlay bool `json:"serve_overlay"`

	// ShutdownTimeout 优雅关闭超时
	ShutdownTimeout Duration `json:"shutdown_timeout"`
}

// DefaultServerConfig 返回默认主机配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Listen:          "127.0.0.1:8760",
		AuthWindow:      Duration(30 * time.Second),
		RateLimit:       20,
		RateBurst:       40,
		MaxBodySize:     1 << 20,
		ServeOverlay:    true,
		ShutdownTimeout: Duration(5 * time.Second),
	}
}

// Validate 验证主机配置
func (c ServerConfig) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return errors.New("server: listen must be host:port")
	}
	if c.AuthWindow <= 0 {
		return errors.New("server: auth_window must be positive")
	}
	if c.RateLimit < 0 {
		return errors.New("server: rate_limit cannot be negative")
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		return errors.New("server: rate_burst must be positive when rate_limit is set")
	}
	if c.MaxBodySize <= 0 {
		return errors.New("server: max_body_size must be positive")
	}
	return nil
}
