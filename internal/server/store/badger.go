package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

var logger = log.Logger("server/store")

// 键前缀
var (
	prefixMessage = []byte("m/")
	prefixIndex   = []byte("i/")
)

// BadgerConfig badger 存储配置
type BadgerConfig struct {
	// Path 数据目录；InMemory 为 true 时忽略
	Path string

	// InMemory 不落盘，用于测试
	InMemory bool

	// SyncWrites 每次写入同步落盘
	SyncWrites bool

	// GCInterval 值日志垃圾回收间隔，0 关闭
	GCInterval time.Duration
}

// Badger 基于 BadgerDB 的持久化存储
type Badger struct {
	db     *badger.DB
	closed atomic.Bool

	gcStop chan struct{}
	gcWg   sync.WaitGroup
}

var _ Store = (*Badger)(nil)

// OpenBadger 打开 badger 存储
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	b := &Badger{db: db, gcStop: make(chan struct{})}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		b.startGC(cfg.GCInterval)
	}
	return b, nil
}

func messageKey(recipient, box, id string) []byte {
	return []byte(string(prefixMessage) + recipient + "/" + box + "/" + id)
}

func boxPrefix(recipient, box string) []byte {
	return []byte(string(prefixMessage) + recipient + "/" + box + "/")
}

func indexKey(recipient, id string) []byte {
	return []byte(string(prefixIndex) + recipient + "/" + id)
}

// Put 实现 Store
func (b *Badger) Put(_ context.Context, msg *types.WireMessage) (bool, error) {
	if err := validate(msg); err != nil {
		return false, err
	}
	if b.closed.Load() {
		return false, ErrClosed
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return false, err
	}

	stored := false
	err = b.db.Update(func(txn *badger.Txn) error {
		idx := indexKey(msg.Recipient, msg.MessageID)
		if _, err := txn.Get(idx); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(idx, []byte(msg.MessageBox)); err != nil {
			return err
		}
		if err := txn.Set(messageKey(msg.Recipient, msg.MessageBox, msg.MessageID), value); err != nil {
			return err
		}
		stored = true
		return nil
	})
	return stored, err
}

// List 实现 Store
func (b *Badger) List(_ context.Context, recipient, box string) ([]*types.WireMessage, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	out := []*types.WireMessage{}
	prefix := boxPrefix(recipient, box)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var msg types.WireMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				logger.Warn("跳过无法解析的消息", "key", string(it.Item().Key()), "err", err)
				continue
			}
			out = append(out, &msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortOldestFirst(out)
	return out, nil
}

// Acknowledge 实现 Store
func (b *Badger) Acknowledge(_ context.Context, recipient string, ids []string) (int, error) {
	if b.closed.Load() {
		return 0, ErrClosed
	}
	n := 0
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			idx := indexKey(recipient, id)
			item, err := txn.Get(idx)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			box, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := txn.Delete(messageKey(recipient, string(box), id)); err != nil {
				return err
			}
			if err := txn.Delete(idx); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close 实现 Store
func (b *Badger) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(b.gcStop)
	b.gcWg.Wait()
	return b.db.Close()
}

// startGC 启动值日志垃圾回收后台任务
func (b *Badger) startGC(interval time.Duration) {
	b.gcWg.Add(1)
	go func() {
		defer b.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-b.gcStop:
				return
			case <-ticker.C:
				b.runGC()
			}
		}
	}()
}

// runGC 回收直到没有可重写的文件
func (b *Badger) runGC() {
	for {
		if b.closed.Load() {
			return
		}
		err := b.db.RunValueLogGC(0.5)
		if err == nil {
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) {
			logger.Debug("值日志垃圾回收失败", "err", err)
		}
		return
	}
}
