package config

import (
	"fmt"
	"time"
)

// OverlayConfig 叠加网络配置
type OverlayConfig struct {
	// Endpoint 叠加网络 HTTP 服务地址
	// 为空时使用进程内存账本（仅用于开发与测试）
	Endpoint string `json:"endpoint"`

	// Timeout 查询与广播超时
	Timeout Duration `json:"timeout"`
}

// DefaultOverlayConfig 返回默认叠加网络配置
func DefaultOverlayConfig() OverlayConfig {
	return OverlayConfig{
		Endpoint: "",
		Timeout:  Duration(10 * time.Second),
	}
}

// Validate 验证叠加网络配置
func (c OverlayConfig) Validate() error {
	if c.Endpoint != "" {
		if err := validateURL(c.Endpoint); err != nil {
			return fmt.Errorf("overlay: endpoint: %w", err)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("overlay: timeout must be positive")
	}
	return nil
}
