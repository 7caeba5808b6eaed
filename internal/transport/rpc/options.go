package rpc

import "time"

// Config 请求通道配置
type Config struct {
	// Timeout 单次请求超时
	Timeout time.Duration

	// MaxRetries 传输失败时的重试次数（仅 transport 错误重试）
	MaxRetries int

	// RetryDelay 重试间隔
	RetryDelay time.Duration

	// MaxResponseSize 响应体大小上限
	MaxResponseSize int64
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		MaxRetries:      1,
		RetryDelay:      100 * time.Millisecond,
		MaxResponseSize: 16 << 20,
	}
}

// Option 配置选项函数
type Option func(*Config)

// WithTimeout 设置超时时间
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithMaxRetries 设置最大重试次数
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithRetryDelay 设置重试延迟
func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) {
		c.RetryDelay = d
	}
}
