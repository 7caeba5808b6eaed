package registry

import "time"

// Config 广告注册表配置
type Config struct {
	// DefaultHost 没有任何广告时 ResolveHost 返回的主机
	DefaultHost string

	// CacheTTL 主机解析结果缓存时间，0 表示不缓存
	CacheTTL time.Duration

	// CacheSize 缓存条目上限
	CacheSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		CacheTTL:  30 * time.Second,
		CacheSize: 1024,
	}
}

// Option 配置选项
type Option func(*Config)

// WithDefaultHost 设置默认主机
func WithDefaultHost(host string) Option {
	return func(c *Config) { c.DefaultHost = host }
}

// WithCache 设置缓存时间与容量
func WithCache(ttl time.Duration, size int) Option {
	return func(c *Config) {
		c.CacheTTL = ttl
		c.CacheSize = size
	}
}
