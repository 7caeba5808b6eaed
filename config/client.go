package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ClientConfig 消息客户端配置
type ClientConfig struct {
	// Host 默认消息主机
	Host string `json:"host"`

	// LiveAckTimeout 实时发送等待确认的时间
	LiveAckTimeout Duration `json:"live_ack_timeout"`

	// RequestTimeout 单次请求超时
	RequestTimeout Duration `json:"request_timeout"`

	// MaxRetries 传输失败重试次数
	MaxRetries int `json:"max_retries"`

	// HostCacheTTL 主机解析缓存时间，0 关闭缓存
	HostCacheTTL Duration `json:"host_cache_ttl"`

	// EnableLive 是否使用全双工通道
	EnableLive bool `json:"enable_live"`
}

// DefaultClientConfig 返回默认客户端配置
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:           "http://127.0.0.1:8760",
		LiveAckTimeout: Duration(10 * time.Second),
		RequestTimeout: Duration(30 * time.Second),
		MaxRetries:     1,
		HostCacheTTL:   Duration(30 * time.Second),
		EnableLive:     true,
	}
}

// Validate 验证客户端配置
func (c ClientConfig) Validate() error {
	if c.Host == "" {
		return errors.New("client: host cannot be empty")
	}
	if err := validateURL(c.Host); err != nil {
		return fmt.Errorf("client: host: %w", err)
	}
	if c.LiveAckTimeout <= 0 {
		return errors.New("client: live_ack_timeout must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("client: request_timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("client: max_retries cannot be negative")
	}
	if c.HostCacheTTL < 0 {
		return errors.New("client: host_cache_ttl cannot be negative")
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
