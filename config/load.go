package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "MSGBOX_"

// FromJSON 在默认配置上合并 JSON
//
// 未出现的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

// LoadFile 读取 JSON 配置文件
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return FromJSON(data)
}

// Save 以缩进 JSON 写入文件
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// LookupFunc 环境变量查找函数，签名与 os.LookupEnv 一致
type LookupFunc func(key string) (string, bool)

// ApplyEnv 用 MSGBOX_ 前缀的环境变量覆盖配置
//
// 支持的变量：
//
//	MSGBOX_KEY_FILE          identity.key_file
//	MSGBOX_HOST              client.host
//	MSGBOX_LIVE_ACK_TIMEOUT  client.live_ack_timeout
//	MSGBOX_OVERLAY           overlay.endpoint
//	MSGBOX_LISTEN            server.listen
//	MSGBOX_RATE_LIMIT        server.rate_limit
//	MSGBOX_STORE             storage.engine
//	MSGBOX_DATA_DIR          storage.data_dir
//	MSGBOX_LOG_LEVEL         log.level
//	MSGBOX_LOG_FORMAT        log.format
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("KEY_FILE"); ok {
		c.Identity.KeyFile = v
	}
	if v, ok := get("HOST"); ok {
		c.Client.Host = v
	}
	if v, ok := get("LIVE_ACK_TIMEOUT"); ok {
		var d Duration
		if err := d.UnmarshalJSON([]byte(strconv.Quote(v))); err != nil {
			return fmt.Errorf("config: %sLIVE_ACK_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Client.LiveAckTimeout = d
	}
	if v, ok := get("OVERLAY"); ok {
		c.Overlay.Endpoint = v
	}
	if v, ok := get("LISTEN"); ok {
		c.Server.Listen = v
	}
	if v, ok := get("RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: %sRATE_LIMIT: %w", EnvPrefix, err)
		}
		c.Server.RateLimit = f
	}
	if v, ok := get("STORE"); ok {
		c.Storage.Engine = v
	}
	if v, ok := get("DATA_DIR"); ok {
		c.Storage.DataDir = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.Log.Format = strings.ToLower(v)
	}
	return nil
}
