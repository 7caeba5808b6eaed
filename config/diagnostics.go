package config

import "errors"

// DiagnosticsConfig 诊断配置
type DiagnosticsConfig struct {
	// EnableIntrospect 启用本地自省服务（/debug/introspect、pprof）
	EnableIntrospect bool `json:"enable_introspect"`

	// IntrospectAddr 自省服务监听地址，应只绑定本地
	IntrospectAddr string `json:"introspect_addr"`
}

// DefaultDiagnosticsConfig 返回默认诊断配置
func DefaultDiagnosticsConfig() DiagnosticsConfig {
	return DiagnosticsConfig{
		EnableIntrospect: false,
		IntrospectAddr:   "127.0.0.1:6060",
	}
}

// Validate 验证诊断配置
func (c DiagnosticsConfig) Validate() error {
	if c.EnableIntrospect && c.IntrospectAddr == "" {
		return errors.New("diagnostics: introspect_addr is required when introspect is enabled")
	}
	return nil
}
