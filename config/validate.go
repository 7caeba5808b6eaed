package config

import (
	"errors"
	"time"
)

// ValidateAll 验证整个配置的有效性
//
// Config.Validate() 的别名，对 nil 返回错误。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并修复常见问题
//
// 可修复的问题：
//   - 非正超时 -> 使用默认值
//   - 限流开启但突发为 0 -> 突发取限流值向上取整
//   - 未知日志级别/格式 -> 使用默认值
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	defClient := DefaultClientConfig()
	if c.Client.LiveAckTimeout <= 0 {
		c.Client.LiveAckTimeout = defClient.LiveAckTimeout
	}
	if c.Client.RequestTimeout <= 0 {
		c.Client.RequestTimeout = defClient.RequestTimeout
	}
	if c.Client.MaxRetries < 0 {
		c.Client.MaxRetries = 0
	}

	if c.Overlay.Timeout <= 0 {
		c.Overlay.Timeout = DefaultOverlayConfig().Timeout
	}

	if c.Server.AuthWindow <= 0 {
		c.Server.AuthWindow = Duration(30 * time.Second)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst <= 0 {
		burst := int(c.Server.RateLimit)
		if float64(burst) < c.Server.RateLimit {
			burst++
		}
		c.Server.RateBurst = burst
	}

	if c.Log.Validate() != nil {
		c.Log = DefaultLogConfig()
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
