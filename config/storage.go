package config

import (
	"fmt"
	"path/filepath"
)

// 存储引擎
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
)

// StorageConfig 主机消息存储配置
//
// badger 引擎的数据目录结构：
//
//	${DataDir}/
//	└── msgbox.db/      # BadgerDB
type StorageConfig struct {
	// Engine 存储引擎: "memory" 或 "badger"
	Engine string `json:"engine"`

	// DataDir 数据目录
	DataDir string `json:"data_dir"`

	// SyncWrites 每次写入是否同步落盘
	SyncWrites bool `json:"sync_writes"`
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Engine:  StoreMemory,
		DataDir: "./data",
	}
}

// Validate 验证存储配置
func (c *StorageConfig) Validate() error {
	switch c.Engine {
	case StoreMemory:
	case StoreBadger:
		if c.DataDir == "" {
			return fmt.Errorf("storage: data_dir cannot be empty for %s", StoreBadger)
		}
	default:
		return fmt.Errorf("storage: unknown engine %q", c.Engine)
	}
	return nil
}

// DBPath 返回 BadgerDB 路径
func (c *StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "msgbox.db")
}
