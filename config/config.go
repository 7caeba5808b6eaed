// Package config 提供统一的配置管理
//
// 主 Config 嵌入所有子配置，每个子配置在独立文件中定义，
// 支持 JSON 加载/保存与 MSGBOX_ 前缀的环境变量覆盖。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Client.Host = "https://box.example"
//
//	// 从文件加载，再应用环境变量
//	cfg, err := config.LoadFile("msgbox.json")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
//	    return err
//	}
package config

// Config 是 msgbox 的完整配置结构
//
//   - Identity: 本地钱包密钥
//   - Client: 消息核心（默认主机、实时确认超时、请求通道）
//   - Overlay: 叠加网络查询与广播
//   - Server: 消息主机（监听地址、认证窗口、限流）
//   - Storage: 主机消息存储
//   - Log: 日志
//   - Metrics: prometheus 指标
//   - Diagnostics: 本地自省服务
type Config struct {
	// Identity 身份配置
	Identity IdentityConfig `json:"identity"`

	// Client 消息客户端配置
	Client ClientConfig `json:"client"`

	// Overlay 叠加网络配置
	Overlay OverlayConfig `json:"overlay"`

	// Server 消息主机配置
	Server ServerConfig `json:"server"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage"`

	// Log 日志配置
	Log LogConfig `json:"log"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Diagnostics 诊断配置
	Diagnostics DiagnosticsConfig `json:"diagnostics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Identity:    DefaultIdentityConfig(),
		Client:      DefaultClientConfig(),
		Overlay:     DefaultOverlayConfig(),
		Server:      DefaultServerConfig(),
		Storage:     DefaultStorageConfig(),
		Log:         DefaultLogConfig(),
		Metrics:     DefaultMetricsConfig(),
		Diagnostics: DefaultDiagnosticsConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := c.Identity.Validate(); err != nil {
		return err
	}
	if err := c.Client.Validate(); err != nil {
		return err
	}
	if err := c.Overlay.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return c.Diagnostics.Validate()
}
