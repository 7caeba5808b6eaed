package main

import (
	"flag"
	"os"
	"strings"

	"github.com/dep2p/go-msgbox/config"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
)

// ============================================================================
//                              配置加载（CLI 专用）
// ============================================================================

// commonFlags 所有子命令共享的参数
type commonFlags struct {
	configFile   string
	identityFile string
	host         string
	overlay      string
	logLevel     string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "配置文件路径（JSON）")
	fs.StringVar(&c.identityFile, "identity", "", "身份密钥文件路径")
	fs.StringVar(&c.host, "host", "", "默认消息主机 URL")
	fs.StringVar(&c.overlay, "overlay", "", "叠加网络 URL（为空时使用进程内叠加网络）")
	fs.StringVar(&c.logLevel, "log-level", "", "日志级别 (debug/info/warn/error)")
}

// loadConfig 按优先级合成配置
//
// 配置优先级（从高到低）：
//  1. 命令行参数
//  2. 环境变量（MSGBOX_* 前缀）
//  3. 配置文件
//  4. 默认值
//
// hostOverlay 为 true 且未配置叠加网络时，使用默认主机挂载的 /overlay。
func (c *commonFlags) loadConfig(hostOverlay bool) (*config.Config, error) {
	cfg := config.NewConfig()
	if c.configFile != "" {
		loaded, err := config.LoadFile(c.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if c.identityFile != "" {
		cfg.Identity.KeyFile = c.identityFile
	}
	if c.host != "" {
		cfg.Client.Host = c.host
	}
	if c.overlay != "" {
		cfg.Overlay.Endpoint = c.overlay
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if hostOverlay && cfg.Overlay.Endpoint == "" {
		cfg.Overlay.Endpoint = strings.TrimRight(cfg.Client.Host, "/") + "/overlay"
	}
	return config.ValidateAndFix(cfg)
}

// setupLogging 按配置重建默认 logger，日志始终写到 stderr
func setupLogging(cfg *config.Config) {
	log.Setup(os.Stderr, log.ParseLevel(cfg.Log.Level), log.Format(cfg.Log.Format))
}
